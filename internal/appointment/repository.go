package appointment

import (
	"context"
	"errors"
	"time"
)

var (
	ErrPatientNotFound      = errors.New("patient not found")
	ErrPsychologistNotFound = errors.New("psychologist not found")
	ErrAppointmentNotFound  = errors.New("appointment not found")
)

// Person is a patient or psychologist reference with its display name.
type Person struct {
	ID   string
	Name string
}

// Repository contains all DB interactions needed by the service.
type Repository interface {
	GetPatientByID(ctx context.Context, id string) (*Person, error)
	GetPsychologistByID(ctx context.Context, id string) (*Person, error)

	GetAppointmentByID(ctx context.Context, id string) (*Appointment, error)
	// ListByDate returns every appointment on day regardless of status,
	// ordered by start time.
	ListByDate(ctx context.Context, day time.Time) ([]Appointment, error)
	// ListRange returns every appointment from day from to day to, both
	// inclusive, ordered by date and start time.
	ListRange(ctx context.Context, from, to time.Time) ([]Appointment, error)
	// ListUpcoming returns up to limit active appointments starting at or
	// after the clinic wall-clock time after.
	ListUpcoming(ctx context.Context, after time.Time, limit int) ([]Appointment, error)
	Statistics(ctx context.Context, p Periods) (*Statistics, error)

	// Creation and updates
	CreateAppointment(ctx context.Context, a Appointment) (*Appointment, error)
	UpdateAppointmentStatus(ctx context.Context, id string, from, to Status) (*Appointment, error)
	RescheduleAppointment(ctx context.Context, a Appointment) (*Appointment, error)
	MarkReminderSent(ctx context.Context, id string, at time.Time) error

	// Event logging
	InsertEvent(ctx context.Context, ev EventLog) error
	ListEvents(ctx context.Context, appointmentID string) ([]EventLog, error)
}
