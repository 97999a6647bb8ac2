package agenda

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-agenda/internal/appointment"
	"github.com/hackgods/clinic-agenda/internal/calendar"
	"github.com/hackgods/clinic-agenda/internal/catalog"
	"github.com/hackgods/clinic-agenda/internal/metrics"
	"github.com/hackgods/clinic-agenda/internal/validation"
)

// RoomSource yields the current room catalog. *catalog.Holder satisfies it.
type RoomSource interface {
	Get() *catalog.Catalog
}

// Service fetches a full snapshot for a day, builds it and caches the
// result. Mutations go to the store first and then drop every cached day.
type Service struct {
	appts AppointmentSource
	store Store
	rooms RoomSource
	cache Cache
	agg   *Aggregator
	clock Clock
	log   zerolog.Logger
}

func NewService(appts AppointmentSource, store Store, rooms RoomSource, cache Cache, agg *Aggregator, log zerolog.Logger) *Service {
	return &Service{
		appts: appts,
		store: store,
		rooms: rooms,
		cache: cache,
		agg:   agg,
		clock: agg.clock,
		log:   log.With().Str("component", "agenda").Logger(),
	}
}

func (s *Service) parseDay(date string) (time.Time, error) {
	day, err := calendar.ParseStringToDate(date, s.agg.Location())
	if err != nil {
		return time.Time{}, &calendar.FieldError{Field: "date", Value: date, Err: err}
	}
	return day, nil
}

// Today returns the current clinic date as DD/MM/YYYY.
func (s *Service) Today() string {
	return calendar.FormatDateToString(s.clock().In(s.agg.Location()))
}

// Agenda returns the agenda for date, served from cache when fresh.
func (s *Service) Agenda(ctx context.Context, date string) (*Data, error) {
	if _, err := s.parseDay(date); err != nil {
		return nil, err
	}

	if s.cache != nil {
		var cached Data
		ok, err := s.cache.Get(ctx, date, &cached)
		if err != nil {
			s.log.Warn().Err(err).Str("date", date).Msg("agenda cache read failed")
		}
		if ok {
			metrics.IncAgendaBuild("cache", "hit")
			return &cached, nil
		}
	}

	return s.Refresh(ctx, date)
}

// Refresh rebuilds date from a fresh snapshot and stores it in the cache.
// Any fetch failure aborts the build.
func (s *Service) Refresh(ctx context.Context, date string) (*Data, error) {
	cacheable := s.cache != nil
	var gen int64
	if cacheable {
		var err error
		if gen, err = s.cache.Generation(ctx); err != nil {
			s.log.Warn().Err(err).Msg("agenda cache generation read failed")
			cacheable = false
		}
	}

	started := time.Now()
	data, err := s.build(ctx, date)
	metrics.ObserveAgendaBuild(time.Since(started).Seconds())
	if err != nil {
		metrics.IncAgendaBuild("build", "error")
		return nil, err
	}
	metrics.IncAgendaBuild("build", "ok")

	if cacheable {
		if err := s.cache.Set(ctx, gen, date, data); err != nil {
			s.log.Warn().Err(err).Str("date", date).Msg("agenda cache write failed")
		}
	}
	return data, nil
}

func (s *Service) build(ctx context.Context, date string) (*Data, error) {
	day, err := s.parseDay(date)
	if err != nil {
		return nil, err
	}

	appts, err := s.appts.ListByDate(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("fetch appointments: %w", err)
	}
	tasks, err := s.store.TasksForDate(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("fetch tasks: %w", err)
	}
	stored, err := s.store.StoredAlerts(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("fetch alerts: %w", err)
	}
	resolved, err := s.store.ResolvedAlerts(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("fetch alert resolutions: %w", err)
	}

	return s.agg.Build(Input{
		Date:         date,
		Appointments: appts,
		Rooms:        s.rooms.Get(),
		Tasks:        tasks,
		Stored:       stored,
		Resolved:     resolved,
	})
}

// Events projects the appointments of date onto calendar events.
func (s *Service) Events(ctx context.Context, date string) ([]CalendarEvent, error) {
	data, err := s.Agenda(ctx, date)
	if err != nil {
		return nil, err
	}
	return CalendarEvents(data.Appointments, s.agg.Location())
}

// ResolveAlert records id as resolved on date. The id must belong to an
// alert currently on that day's agenda.
func (s *Service) ResolveAlert(ctx context.Context, date, id string) error {
	day, err := s.parseDay(date)
	if err != nil {
		return err
	}

	data, err := s.build(ctx, date)
	if err != nil {
		return err
	}
	found := false
	for _, a := range data.Alerts {
		if a.ID == id {
			found = true
			break
		}
	}
	if !found {
		return ErrAlertNotFound
	}

	if err := s.store.ResolveAlert(ctx, day, id, s.clock()); err != nil {
		return err
	}
	s.log.Info().Str("alert_id", id).Str("date", date).Msg("alert resolved")
	s.Invalidate(ctx)
	return nil
}

func (s *Service) CompleteTask(ctx context.Context, id string) (*Task, error) {
	t, err := s.store.CompleteTask(ctx, id)
	if err != nil {
		if errors.Is(err, ErrTaskNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("complete task: %w", err)
	}
	s.Invalidate(ctx)
	return t, nil
}

func (s *Service) CreateTask(ctx context.Context, date string, t Task) (*Task, error) {
	day, err := s.parseDay(date)
	if err != nil {
		return nil, err
	}
	if err := validation.Struct(t); err != nil {
		return nil, err
	}
	if t.Priority == "" {
		t.Priority = appointment.PriorityMedium
	}
	t.ID = uuid.NewString()
	t.Completed = false

	created, err := s.store.CreateTask(ctx, day, t)
	if err != nil {
		return nil, err
	}
	s.Invalidate(ctx)
	return created, nil
}

// PlanFollowUp puts a follow-up task for a completed session on date, assigned
// to the psychologist who ran it. It satisfies appointment.FollowUpPlanner.
func (s *Service) PlanFollowUp(ctx context.Context, a appointment.Appointment, date string) error {
	patient := displayOr(a.PatientName, a.PatientID)
	_, err := s.CreateTask(ctx, date, Task{
		Description:       fmt.Sprintf("Seguimiento con %s (sesión del %s a las %s)", patient, a.Date, a.Time),
		Type:              TaskFollowUp,
		Priority:          a.Priority,
		AssignedTo:        displayOr(a.PsychologistName, a.PsychologistID),
		RelatedPatient:    patient,
		EstimatedDuration: a.Duration,
	})
	if err != nil {
		return fmt.Errorf("plan follow-up for %s: %w", a.ID, err)
	}
	return nil
}

// RaiseAlert stores a staff-raised alert on date.
func (s *Service) RaiseAlert(ctx context.Context, date string, a Alert) (*Alert, error) {
	day, err := s.parseDay(date)
	if err != nil {
		return nil, err
	}
	if a.Type == "" {
		a.Type = AlertInfo
	}
	if a.Severity == "" {
		a.Severity = SeverityLow
	}
	if err := validation.Struct(a); err != nil {
		return nil, err
	}

	a.ID = uuid.NewString()
	a.Timestamp = s.clock()
	a.Resolved = false
	if err := s.store.InsertAlert(ctx, day, a); err != nil {
		return nil, err
	}
	s.Invalidate(ctx)
	return &a, nil
}

// Invalidate drops every cached agenda. Failures are logged; entries expire
// on their own TTL anyway.
func (s *Service) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.log.Warn().Err(err).Msg("agenda cache invalidation failed")
	}
}

// PublishGauges exports the room and open-alert counts of d.
func PublishGauges(d *Data) {
	alerts := map[[2]string]int{}
	for _, a := range d.Alerts {
		if !a.Resolved {
			alerts[[2]string{string(a.Type), string(a.Severity)}]++
		}
	}
	rooms := map[string]int{}
	for _, r := range d.Rooms {
		rooms[string(r.Status)]++
	}
	metrics.SetOpenAlerts(alerts)
	metrics.SetRooms(rooms)
}
