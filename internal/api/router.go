package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-agenda/internal/agenda"
	"github.com/hackgods/clinic-agenda/internal/appointment"
	"github.com/hackgods/clinic-agenda/internal/catalog"
)

type AppointmentService interface {
	Create(ctx context.Context, a appointment.Appointment) (*appointment.Appointment, error)
	UpdateStatus(ctx context.Context, id string, change appointment.StatusChange) (*appointment.Appointment, error)
	Reschedule(ctx context.Context, id string, req appointment.RescheduleRequest) (*appointment.Appointment, error)
	ListForDate(ctx context.Context, date string) ([]appointment.Appointment, error)
	ListRange(ctx context.Context, from, to string) ([]appointment.Appointment, error)
	Upcoming(ctx context.Context, limit int) ([]appointment.Appointment, error)
	Statistics(ctx context.Context) (*appointment.Statistics, error)
	Get(ctx context.Context, id string) (*appointment.Appointment, error)
	History(ctx context.Context, id string) ([]appointment.EventLog, error)
	MarkReminderSent(ctx context.Context, id string) error
}

type AgendaService interface {
	Today() string
	Agenda(ctx context.Context, date string) (*agenda.Data, error)
	Events(ctx context.Context, date string) ([]agenda.CalendarEvent, error)
	ResolveAlert(ctx context.Context, date, id string) error
	RaiseAlert(ctx context.Context, date string, a agenda.Alert) (*agenda.Alert, error)
	CreateTask(ctx context.Context, date string, t agenda.Task) (*agenda.Task, error)
	CompleteTask(ctx context.Context, id string) (*agenda.Task, error)
}

type RoomSource interface {
	Get() *catalog.Catalog
}

type RouterConfig struct {
	Appointments AppointmentService
	Agenda       AgendaService
	Rooms        RoomSource
	Location     *time.Location
	Now          func() time.Time
	Health       *HealthHandler
	Metrics      http.Handler
	Log          zerolog.Logger
}

func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}

	r := chi.NewRouter()

	// Apply middleware
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Log))

	if cfg.Health != nil {
		r.Get("/health/live", cfg.Health.Liveness)
		r.Get("/health/ready", cfg.Health.Readiness)
	}
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/agenda", func(r chi.Router) {
			r.Get("/", getAgendaHandler(cfg.Agenda))
			r.Get("/export", exportAgendaHandler(cfg.Agenda))
			r.Post("/alerts", raiseAlertHandler(cfg.Agenda))
			r.Patch("/alerts/{id}/resolve", resolveAlertHandler(cfg.Agenda))
			r.Post("/tasks", createTaskHandler(cfg.Agenda))
			r.Patch("/tasks/{id}/complete", completeTaskHandler(cfg.Agenda))
		})

		r.Get("/calendar/events", calendarEventsHandler(cfg.Agenda, cfg.Appointments, cfg.Location))
		r.Get("/calendar/grid", calendarGridHandler(cfg.Location, cfg.Now))

		r.Get("/rooms", listRoomsHandler(cfg.Rooms))
		r.Get("/rooms/slots", roomSlotsHandler(cfg.Rooms, cfg.Appointments, cfg.Location, cfg.Now))

		r.Route("/appointments", func(r chi.Router) {
			r.Post("/", createAppointmentHandler(cfg.Appointments))
			r.Get("/", listAppointmentsHandler(cfg.Appointments, cfg.Agenda))
			r.Get("/upcoming", upcomingHandler(cfg.Appointments))
			r.Get("/statistics", statisticsHandler(cfg.Appointments))
			r.Get("/{id}", getAppointmentHandler(cfg.Appointments))
			r.Get("/{id}/history", appointmentHistoryHandler(cfg.Appointments))
			r.Post("/{id}/status", updateStatusHandler(cfg.Appointments))
			r.Post("/{id}/reschedule", rescheduleHandler(cfg.Appointments))
			r.Post("/{id}/reminder-sent", reminderSentHandler(cfg.Appointments))
		})
	})

	return r
}

// dateParam returns ?date= or the clinic's current date.
func dateParam(r *http.Request, svc AgendaService) string {
	if d := r.URL.Query().Get("date"); d != "" {
		return d
	}
	return svc.Today()
}

// rangeParams reports whether ?from= or ?to= was given. A range query
// ignores ?date=.
func rangeParams(r *http.Request) (from, to string, ok bool) {
	q := r.URL.Query()
	from, to = q.Get("from"), q.Get("to")
	return from, to, q.Has("from") || q.Has("to")
}
