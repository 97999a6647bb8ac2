package agenda

import (
	"context"
	"errors"
	"time"

	"github.com/hackgods/clinic-agenda/internal/appointment"
)

var (
	ErrTaskNotFound  = errors.New("task not found")
	ErrAlertNotFound = errors.New("alert not found")
)

// AppointmentSource is the read side the agenda needs from appointments.
// appointment.Repository satisfies it.
type AppointmentSource interface {
	ListByDate(ctx context.Context, day time.Time) ([]appointment.Appointment, error)
}

// Store holds tasks, staff-raised alerts and alert resolutions.
type Store interface {
	TasksForDate(ctx context.Context, day time.Time) ([]Task, error)
	CreateTask(ctx context.Context, day time.Time, t Task) (*Task, error)
	CompleteTask(ctx context.Context, id string) (*Task, error)

	StoredAlerts(ctx context.Context, day time.Time) ([]Alert, error)
	InsertAlert(ctx context.Context, day time.Time, a Alert) error

	// ResolvedAlerts returns the ids resolved for day, derived or stored.
	ResolvedAlerts(ctx context.Context, day time.Time) (map[string]bool, error)
	ResolveAlert(ctx context.Context, day time.Time, id string, at time.Time) error
}

// Cache keeps built agendas between requests. *redisclient.JSONCache
// satisfies it. Set takes the generation read before the snapshot was
// fetched.
type Cache interface {
	Get(ctx context.Context, key string, out any) (bool, error)
	Generation(ctx context.Context) (int64, error)
	Set(ctx context.Context, gen int64, key string, v any) error
	Invalidate(ctx context.Context) error
}
