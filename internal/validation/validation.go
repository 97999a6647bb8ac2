// Package validation checks structs against their `validate` tags and
// reports the first rejected field by its JSON name.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/hackgods/clinic-agenda/internal/calendar"
)

// Error names the field that was rejected.
type Error struct {
	Field  string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Invalid builds an *Error for checks that cannot be expressed as tags.
func Invalid(field, format string, args ...any) *Error {
	return &Error{Field: field, Reason: fmt.Sprintf(format, args...)}
}

var (
	once sync.Once
	std  *validator.Validate
)

func instance() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(jsonName)
		for tag, fn := range map[string]validator.Func{
			"ddmmyyyy":  isDate,
			"hhmm":      isClock,
			"hourrange": inHourRange,
			"step":      isMultipleOf,
			"notblank":  notBlank,
		} {
			if err := v.RegisterValidation(tag, fn); err != nil {
				panic(err)
			}
		}
		std = v
	})
	return std
}

func jsonName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	switch name {
	case "-":
		return ""
	case "":
		return f.Name
	}
	return name
}

// Struct validates v and returns nil or an *Error for the first field that
// failed.
func Struct(v any) error {
	err := instance().Struct(v)
	if err == nil {
		return nil
	}
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return err
	}
	fe := errs[0]
	return &Error{Field: fe.Field(), Reason: reason(fe)}
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if", "notblank":
		return "is required"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "min", "gte":
		return "must be at least " + fe.Param()
	case "max", "lte":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("cannot exceed %s characters", fe.Param())
		}
		return "must be at most " + fe.Param()
	case "step":
		return "must be a multiple of " + fe.Param()
	case "ddmmyyyy":
		return "invalid date format (DD/MM/YYYY)"
	case "hhmm":
		return "invalid time format (HH:MM)"
	case "hourrange":
		lo, hi, _ := hours(fe.Param())
		return fmt.Sprintf("must be between %02d:00 and %02d:59", lo, hi)
	case "http_url":
		return "must be a valid http(s) URL"
	}
	return "failed " + fe.Tag() + " check"
}

func isDate(fl validator.FieldLevel) bool {
	_, err := calendar.ParseStringToDate(fl.Field().String(), time.UTC)
	return err == nil
}

func isClock(fl validator.FieldLevel) bool {
	_, err := calendar.ParseTime(fl.Field().String())
	return err == nil
}

// inHourRange accepts HH:MM whose hour lies in "lo hi", both inclusive.
// Malformed clocks pass so that hhmm reports them.
func inHourRange(fl validator.FieldLevel) bool {
	lo, hi, err := hours(fl.Param())
	if err != nil {
		panic(fmt.Sprintf("hourrange: %v", err))
	}
	offset, err := calendar.ParseTime(fl.Field().String())
	if err != nil {
		return true
	}
	h := int(offset / time.Hour)
	return h >= lo && h <= hi
}

func hours(param string) (lo, hi int, err error) {
	parts := strings.Fields(param)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("want two hours, got %q", param)
	}
	if lo, err = strconv.Atoi(parts[0]); err != nil {
		return 0, 0, err
	}
	if hi, err = strconv.Atoi(parts[1]); err != nil {
		return 0, 0, err
	}
	return lo, hi, nil
}

func isMultipleOf(fl validator.FieldLevel) bool {
	n, err := strconv.ParseInt(fl.Param(), 10, 64)
	if err != nil || n <= 0 {
		panic(fmt.Sprintf("step: bad parameter %q", fl.Param()))
	}
	switch fl.Field().Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return fl.Field().Int()%n == 0
	}
	return false
}

func notBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}
