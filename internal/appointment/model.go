package appointment

import (
	"time"

	"github.com/hackgods/clinic-agenda/internal/calendar"
	"github.com/hackgods/clinic-agenda/internal/validation"
)

type Type string

const (
	TypeInPerson Type = "in_person"
	TypeVirtual  Type = "virtual"
	TypePhone    Type = "phone"
)

type Status string

const (
	StatusScheduled  Status = "scheduled"
	StatusConfirmed  Status = "confirmed"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
	StatusNoShow     Status = "no_show"
)

// Active statuses hold their room and psychologist.
func (s Status) Active() bool {
	switch s {
	case StatusScheduled, StatusConfirmed, StatusInProgress:
		return true
	}
	return false
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

const (
	MinDuration     = 15
	MaxDuration     = 180
	MaxNotesLength  = 500
	FirstStartHour  = 8
	LastStartHour   = 18
	DefaultDuration = 60
)

// Appointment is a booked session. Date is DD/MM/YYYY and Time is HH:MM in
// the clinic's local time zone. The validate tags hold the booking rules that
// do not depend on the current time.
type Appointment struct {
	ID               string    `json:"id"`
	PatientID        string    `json:"patientId" validate:"required"`
	PatientName      string    `json:"patientName,omitempty"`
	PsychologistID   string    `json:"psychologistId" validate:"required"`
	PsychologistName string    `json:"psychologistName,omitempty"`
	Date             string    `json:"date" validate:"required,ddmmyyyy"`
	Time             string    `json:"time" validate:"required,hhmm,hourrange=8 18"`
	Duration         int       `json:"duration" validate:"min=15,max=180,step=15"`
	Type             Type      `json:"type" validate:"required,oneof=in_person virtual phone"`
	Status           Status    `json:"status" validate:"omitempty,oneof=scheduled confirmed in_progress completed cancelled no_show"`
	Priority         Priority  `json:"priority,omitempty" validate:"omitempty,oneof=low medium high"`
	RoomID           string    `json:"roomId,omitempty" validate:"required_if=Type in_person"`
	RoomName         string    `json:"room,omitempty"`
	VirtualLink      string    `json:"virtualLink,omitempty" validate:"required_if=Type virtual,omitempty,http_url"`
	Notes            string    `json:"notes,omitempty" validate:"max=500"`
	ReminderSent     bool      `json:"reminderSent"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// Start resolves Date and Time in loc.
func (a Appointment) Start(loc *time.Location) (time.Time, error) {
	return calendar.Combine(a.Date, a.Time, loc, "date", "time")
}

// Span is the half-open interval the appointment occupies.
func (a Appointment) Span(loc *time.Location) (calendar.Span, error) {
	start, err := a.Start(loc)
	if err != nil {
		return calendar.Span{}, err
	}
	return calendar.NewSpan(start, time.Duration(a.Duration)*time.Minute), nil
}

// Day returns midnight of the appointment date in loc.
func (a Appointment) Day(loc *time.Location) (time.Time, error) {
	d, err := calendar.ParseStringToDate(a.Date, loc)
	if err != nil {
		return time.Time{}, &calendar.FieldError{Field: "date", Value: a.Date, Err: err}
	}
	return d, nil
}

// Validate applies the booking rules to a new or rescheduled appointment.
// Field rules come from the validate tags; only the checks against now are
// made here.
func (a Appointment) Validate(now time.Time, loc *time.Location) error {
	if err := validation.Struct(a); err != nil {
		return err
	}

	day, err := a.Day(loc)
	if err != nil {
		return validation.Invalid("date", "invalid date format (DD/MM/YYYY)")
	}
	if day.Before(calendar.StartOfDay(now.In(loc))) {
		return validation.Invalid("date", "date cannot be before today")
	}
	start, err := a.Start(loc)
	if err != nil {
		return validation.Invalid("time", "invalid time format (HH:MM)")
	}
	if start.Before(now) {
		return validation.Invalid("time", "appointment cannot start in the past")
	}
	return nil
}

// transitions lists, per target status, the statuses it may be reached from.
var transitions = map[Status][]Status{
	StatusConfirmed:  {StatusScheduled},
	StatusInProgress: {StatusScheduled, StatusConfirmed},
	StatusCompleted:  {StatusInProgress},
	StatusCancelled:  {StatusScheduled, StatusConfirmed},
	StatusNoShow:     {StatusScheduled, StatusConfirmed},
}

// CanTransition reports whether from may move to to.
func CanTransition(from, to Status) bool {
	for _, s := range transitions[to] {
		if s == from {
			return true
		}
	}
	return false
}

// CanReschedule is true while the session has not started.
func (a Appointment) CanReschedule() bool {
	return a.Status == StatusScheduled || a.Status == StatusConfirmed
}

// EventLog is one row of an appointment's history.
type EventLog struct {
	ID            int64
	EventType     string
	AppointmentID string
	Payload       []byte
	CreatedAt     time.Time
}
