package calendar

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	DateLayout = "02/01/2006" // DD/MM/YYYY
	TimeLayout = "15:04"      // HH:MM, 24h
)

var (
	ErrInvalidDate = errors.New("invalid date, expected DD/MM/YYYY")
	ErrInvalidTime = errors.New("invalid time, expected HH:MM")
)

// FieldError reports which input field failed to parse.
type FieldError struct {
	Field string
	Value string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Field, e.Value, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }

// FormatDateToString renders the calendar day of t as DD/MM/YYYY.
func FormatDateToString(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseStringToDate parses DD/MM/YYYY into midnight of that day in loc.
// Impossible days such as 31/02/2025 are rejected.
func ParseStringToDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	if len(s) != len(DateLayout) {
		return time.Time{}, ErrInvalidDate
	}
	t, err := time.ParseInLocation(DateLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidDate, err)
	}
	return t, nil
}

// FormatTime renders the wall clock of t as HH:MM.
func FormatTime(t time.Time) string {
	return t.Format(TimeLayout)
}

// ParseTime parses HH:MM and returns the offset from midnight.
func ParseTime(s string) (time.Duration, error) {
	if len(s) != len(TimeLayout) {
		return 0, ErrInvalidTime
	}
	t, err := time.Parse(TimeLayout, s)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidTime, err)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

// Combine resolves a DD/MM/YYYY day and HH:MM clock into an instant in loc.
// The returned error is a *FieldError naming dateField or timeField.
func Combine(date, clock string, loc *time.Location, dateField, timeField string) (time.Time, error) {
	day, err := ParseStringToDate(date, loc)
	if err != nil {
		return time.Time{}, &FieldError{Field: dateField, Value: date, Err: err}
	}
	offset, err := ParseTime(clock)
	if err != nil {
		return time.Time{}, &FieldError{Field: timeField, Value: clock, Err: err}
	}
	return AtOffset(day, offset), nil
}

// AtOffset returns the wall-clock instant offset after midnight of day.
// It uses time.Date so DST transitions keep the requested wall time.
func AtOffset(day time.Time, offset time.Duration) time.Time {
	h := int(offset / time.Hour)
	m := int((offset % time.Hour) / time.Minute)
	return time.Date(day.Year(), day.Month(), day.Day(), h, m, 0, 0, day.Location())
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func IsSameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// IsToday reports whether t falls on the same day as now().
func IsToday(t time.Time, now func() time.Time) bool {
	return IsSameDay(t, now().In(t.Location()))
}

var weekDays = []string{"Dom", "Lun", "Mar", "Mié", "Jue", "Vie", "Sáb"}

var weekDayNames = []string{"domingo", "lunes", "martes", "miércoles", "jueves", "viernes", "sábado"}

var monthNames = []string{
	"Enero", "Febrero", "Marzo", "Abril", "Mayo", "Junio",
	"Julio", "Agosto", "Septiembre", "Octubre", "Noviembre", "Diciembre",
}

// WeekDays returns short weekday labels, Sunday first.
func WeekDays() []string {
	return append([]string(nil), weekDays...)
}

func MonthNames() []string {
	return append([]string(nil), monthNames...)
}

// FormatDisplayDate renders the long form used by the agenda header,
// e.g. "lunes, 10 de marzo de 2025".
func FormatDisplayDate(t time.Time) string {
	return fmt.Sprintf("%s, %d de %s de %d",
		weekDayNames[t.Weekday()],
		t.Day(),
		strings.ToLower(monthNames[t.Month()-1]),
		t.Year(),
	)
}
