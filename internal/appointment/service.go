package appointment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-agenda/internal/calendar"
	"github.com/hackgods/clinic-agenda/internal/catalog"
	redisclient "github.com/hackgods/clinic-agenda/internal/redis"
	"github.com/hackgods/clinic-agenda/internal/validation"
)

const (
	EventAppointmentCreated       = "APPOINTMENT_CREATED"
	EventAppointmentStatusChanged = "APPOINTMENT_STATUS_CHANGED"
	EventAppointmentRescheduled   = "APPOINTMENT_RESCHEDULED"
	EventReminderSent             = "REMINDER_SENT"
)

var (
	ErrRoomConflict            = errors.New("room already booked for that time")
	ErrPsychologistConflict    = errors.New("psychologist already booked for that time")
	ErrResourceBusy            = errors.New("room or psychologist is currently being booked, please retry")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
	ErrRoomUnavailable         = errors.New("room is under maintenance")
)

// RoomSource yields the current room catalog. *catalog.Holder satisfies it.
type RoomSource interface {
	Get() *catalog.Catalog
}

// FollowUpPlanner books the follow-up a completed session asks for.
type FollowUpPlanner interface {
	PlanFollowUp(ctx context.Context, a Appointment, date string) error
}

const (
	// MaxRangeDays bounds ListRange so a month grid with its leading and
	// trailing weeks fits in one call.
	MaxRangeDays    = 62
	DefaultUpcoming = 10
	MaxUpcoming     = 100
)

type Service struct {
	repo     Repository
	locker   redisclient.Locker
	rooms    RoomSource
	loc      *time.Location
	now      func() time.Time
	log      zerolog.Logger
	onChange func(ctx context.Context)
	followUp FollowUpPlanner
}

func NewService(repo Repository, locker redisclient.Locker, rooms RoomSource, loc *time.Location, log zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		locker: locker,
		rooms:  rooms,
		loc:    loc,
		now:    time.Now,
		log:    log.With().Str("component", "appointments").Logger(),
	}
}

// WithClock replaces the wall clock, mostly for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// OnChange registers a hook that runs after every successful write.
func (s *Service) OnChange(fn func(ctx context.Context)) {
	s.onChange = fn
}

// WithFollowUps sets where follow-ups requested on completion are booked.
func (s *Service) WithFollowUps(p FollowUpPlanner) *Service {
	s.followUp = p
	return s
}

// Create books a new appointment. Room and psychologist are locked for the
// day while existing bookings are re-read, so two concurrent requests for
// overlapping times cannot both pass the conflict check.
func (s *Service) Create(ctx context.Context, a Appointment) (*Appointment, error) {
	if a.Status == "" {
		a.Status = StatusScheduled
	}
	if a.Duration == 0 {
		a.Duration = DefaultDuration
	}
	if a.Priority == "" {
		a.Priority = PriorityMedium
	}
	if a.Status != StatusScheduled && a.Status != StatusConfirmed {
		return nil, validation.Invalid("status", "new appointments must be scheduled or confirmed")
	}
	if err := a.Validate(s.now(), s.loc); err != nil {
		return nil, err
	}

	if _, err := s.repo.GetPatientByID(ctx, a.PatientID); err != nil {
		if errors.Is(err, ErrPatientNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load patient: %w", err)
	}
	if _, err := s.repo.GetPsychologistByID(ctx, a.PsychologistID); err != nil {
		if errors.Is(err, ErrPsychologistNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load psychologist: %w", err)
	}
	if err := s.checkRoom(a.RoomID); err != nil {
		return nil, err
	}

	var created *Appointment
	err := redisclient.WithLocks(ctx, s.locker, lockKeys(a), func(lockCtx context.Context) error {
		if err := s.checkDay(lockCtx, a); err != nil {
			return err
		}

		a.ID = uuid.NewString()
		appt, err := s.repo.CreateAppointment(lockCtx, a)
		if err != nil {
			return fmt.Errorf("create appointment: %w", err)
		}
		created = appt

		s.logEvent(lockCtx, appt.ID, EventAppointmentCreated, map[string]any{
			"date":            appt.Date,
			"time":            appt.Time,
			"duration":        appt.Duration,
			"room_id":         appt.RoomID,
			"psychologist_id": appt.PsychologistID,
		})
		return nil
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrResourceBusy
		}
		return nil, err
	}

	s.fillRoomName(created)
	s.changed(ctx)
	s.log.Info().Str("appointment_id", created.ID).Str("date", created.Date).Str("time", created.Time).Msg("appointment created")
	return created, nil
}

// StatusChange is a lifecycle move plus what staff recorded with it. Reason
// applies to cancellations and no-shows; notes and the follow-up to
// completions.
type StatusChange struct {
	Status           Status `json:"status" validate:"required,oneof=scheduled confirmed in_progress completed cancelled no_show"`
	Reason           string `json:"reason" validate:"max=500"`
	Notes            string `json:"notes" validate:"max=500"`
	RequiresFollowUp bool   `json:"requiresFollowup"`
	FollowUpDate     string `json:"followupDate" validate:"required_if=RequiresFollowUp true,omitempty,ddmmyyyy"`
}

func (c StatusChange) validate(now time.Time, loc *time.Location) error {
	if err := validation.Struct(c); err != nil {
		return err
	}
	if c.RequiresFollowUp && c.Status != StatusCompleted {
		return validation.Invalid("requiresFollowup", "only a completed session can request a follow-up")
	}
	if c.FollowUpDate != "" {
		day, err := calendar.ParseStringToDate(c.FollowUpDate, loc)
		if err != nil {
			return validation.Invalid("followupDate", "invalid date format (DD/MM/YYYY)")
		}
		if day.Before(calendar.StartOfDay(now.In(loc))) {
			return validation.Invalid("followupDate", "follow-up cannot be before today")
		}
	}
	return nil
}

// UpdateStatus moves an appointment along its lifecycle. The reason, notes
// and follow-up go to the history entry; a requested follow-up is handed to
// the FollowUpPlanner once the status is stored.
func (s *Service) UpdateStatus(ctx context.Context, id string, change StatusChange) (*Appointment, error) {
	if err := change.validate(s.now(), s.loc); err != nil {
		return nil, err
	}
	to := change.Status

	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load appointment: %w", err)
	}
	if !CanTransition(appt.Status, to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, appt.Status, to)
	}

	updated, err := s.repo.UpdateAppointmentStatus(ctx, appt.ID, appt.Status, to)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			// status changed underneath us
			return nil, fmt.Errorf("%w: %s is no longer %s", ErrInvalidStatusTransition, appt.ID, appt.Status)
		}
		return nil, fmt.Errorf("update status: %w", err)
	}

	payload := map[string]any{
		"from": appt.Status,
		"to":   to,
	}
	if change.Reason != "" {
		payload["reason"] = change.Reason
	}
	if change.Notes != "" {
		payload["notes"] = change.Notes
	}
	if change.RequiresFollowUp {
		payload["requiresFollowup"] = true
		payload["followupDate"] = change.FollowUpDate
	}
	s.logEvent(ctx, updated.ID, EventAppointmentStatusChanged, payload)
	s.fillRoomName(updated)

	if change.RequiresFollowUp && s.followUp != nil {
		if err := s.followUp.PlanFollowUp(ctx, *updated, change.FollowUpDate); err != nil {
			s.log.Error().Err(err).Str("appointment_id", updated.ID).Str("followup_date", change.FollowUpDate).Msg("failed to plan follow-up")
		}
	}
	s.changed(ctx)
	return updated, nil
}

// RescheduleRequest carries the new slot. Empty fields keep their current value.
type RescheduleRequest struct {
	Date     string
	Time     string
	Duration int
	RoomID   string
}

func (s *Service) Reschedule(ctx context.Context, id string, req RescheduleRequest) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load appointment: %w", err)
	}
	if !appt.CanReschedule() {
		return nil, fmt.Errorf("%w: cannot reschedule a %s appointment", ErrInvalidStatusTransition, appt.Status)
	}

	next := *appt
	if req.Date != "" {
		next.Date = req.Date
	}
	if req.Time != "" {
		next.Time = req.Time
	}
	if req.Duration != 0 {
		next.Duration = req.Duration
	}
	if req.RoomID != "" {
		next.RoomID = req.RoomID
	}

	if err := next.Validate(s.now(), s.loc); err != nil {
		return nil, err
	}
	if err := s.checkRoom(next.RoomID); err != nil {
		return nil, err
	}

	var updated *Appointment
	err = redisclient.WithLocks(ctx, s.locker, lockKeys(next), func(lockCtx context.Context) error {
		if err := s.checkDay(lockCtx, next); err != nil {
			return err
		}

		res, err := s.repo.RescheduleAppointment(lockCtx, next)
		if err != nil {
			if errors.Is(err, ErrAppointmentNotFound) {
				return fmt.Errorf("%w: %s can no longer be rescheduled", ErrInvalidStatusTransition, next.ID)
			}
			return fmt.Errorf("reschedule appointment: %w", err)
		}
		updated = res

		s.logEvent(lockCtx, res.ID, EventAppointmentRescheduled, map[string]any{
			"from": map[string]any{"date": appt.Date, "time": appt.Time, "duration": appt.Duration, "room_id": appt.RoomID},
			"to":   map[string]any{"date": res.Date, "time": res.Time, "duration": res.Duration, "room_id": res.RoomID},
		})
		return nil
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrResourceBusy
		}
		return nil, err
	}

	s.fillRoomName(updated)
	s.changed(ctx)
	return updated, nil
}

// ListForDate returns every appointment on a DD/MM/YYYY date.
func (s *Service) ListForDate(ctx context.Context, date string) ([]Appointment, error) {
	day, err := calendar.ParseStringToDate(date, s.loc)
	if err != nil {
		return nil, &calendar.FieldError{Field: "date", Value: date, Err: err}
	}

	appts, err := s.repo.ListByDate(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	for i := range appts {
		s.fillRoomName(&appts[i])
	}
	return appts, nil
}

// ListRange returns the appointments from one DD/MM/YYYY date to another,
// both inclusive.
func (s *Service) ListRange(ctx context.Context, from, to string) ([]Appointment, error) {
	start, err := calendar.ParseStringToDate(from, s.loc)
	if err != nil {
		return nil, &calendar.FieldError{Field: "from", Value: from, Err: err}
	}
	end, err := calendar.ParseStringToDate(to, s.loc)
	if err != nil {
		return nil, &calendar.FieldError{Field: "to", Value: to, Err: err}
	}
	if end.Before(start) {
		return nil, validation.Invalid("to", "must not be before from")
	}
	if end.After(start.AddDate(0, 0, MaxRangeDays-1)) {
		return nil, validation.Invalid("to", "range cannot exceed %d days", MaxRangeDays)
	}

	appts, err := s.repo.ListRange(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	for i := range appts {
		s.fillRoomName(&appts[i])
	}
	return appts, nil
}

// Upcoming returns the next active appointments from now on. A limit of 0
// means DefaultUpcoming.
func (s *Service) Upcoming(ctx context.Context, limit int) ([]Appointment, error) {
	switch {
	case limit == 0:
		limit = DefaultUpcoming
	case limit < 0 || limit > MaxUpcoming:
		return nil, validation.Invalid("limit", "must be between 1 and %d", MaxUpcoming)
	}

	appts, err := s.repo.ListUpcoming(ctx, s.now().In(s.loc), limit)
	if err != nil {
		return nil, fmt.Errorf("list upcoming appointments: %w", err)
	}
	for i := range appts {
		s.fillRoomName(&appts[i])
	}
	return appts, nil
}

// Statistics counts appointments by status and type and over today, this
// week and this month.
func (s *Service) Statistics(ctx context.Context) (*Statistics, error) {
	st, err := s.repo.Statistics(ctx, PeriodsFor(s.now(), s.loc))
	if err != nil {
		return nil, fmt.Errorf("appointment statistics: %w", err)
	}
	return st, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	s.fillRoomName(appt)
	return appt, nil
}

func (s *Service) History(ctx context.Context, id string) ([]EventLog, error) {
	if _, err := s.repo.GetAppointmentByID(ctx, id); err != nil {
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	events, err := s.repo.ListEvents(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

// MarkReminderSent flags the reminder for id as delivered.
func (s *Service) MarkReminderSent(ctx context.Context, id string) error {
	if err := s.repo.MarkReminderSent(ctx, id, s.now()); err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return err
		}
		return fmt.Errorf("mark reminder sent: %w", err)
	}
	s.logEvent(ctx, id, EventReminderSent, map[string]any{})
	s.changed(ctx)
	return nil
}

// CheckConflicts reports whether candidate overlaps any active appointment in
// existing that shares its room or psychologist. The candidate's own id is
// ignored so a reschedule does not collide with itself.
func CheckConflicts(existing []Appointment, candidate Appointment, loc *time.Location) error {
	span, err := candidate.Span(loc)
	if err != nil {
		return err
	}

	for _, e := range existing {
		if e.ID == candidate.ID || !e.Status.Active() {
			continue
		}
		other, err := e.Span(loc)
		if err != nil {
			return err
		}
		if !span.Overlaps(other) {
			continue
		}
		if candidate.RoomID != "" && e.RoomID == candidate.RoomID {
			return fmt.Errorf("%w: overlaps appointment %s at %s", ErrRoomConflict, e.ID, e.Time)
		}
		if e.PsychologistID == candidate.PsychologistID {
			return fmt.Errorf("%w: overlaps appointment %s at %s", ErrPsychologistConflict, e.ID, e.Time)
		}
	}
	return nil
}

func (s *Service) checkDay(ctx context.Context, a Appointment) error {
	day, err := a.Day(s.loc)
	if err != nil {
		return err
	}
	existing, err := s.repo.ListByDate(ctx, day)
	if err != nil {
		return fmt.Errorf("list appointments: %w", err)
	}
	return CheckConflicts(existing, a, s.loc)
}

func (s *Service) checkRoom(id string) error {
	if id == "" {
		return nil
	}
	room, ok := s.rooms.Get().Room(id)
	if !ok {
		return fmt.Errorf("%w: %s", catalog.ErrRoomNotFound, id)
	}
	if !room.Available {
		return fmt.Errorf("%w: %s", ErrRoomUnavailable, room.Name)
	}
	return nil
}

func (s *Service) fillRoomName(a *Appointment) {
	if a == nil || a.RoomID == "" {
		return
	}
	if room, ok := s.rooms.Get().Room(a.RoomID); ok {
		a.RoomName = room.Name
	}
}

func (s *Service) changed(ctx context.Context) {
	if s.onChange != nil {
		s.onChange(ctx)
	}
}

func lockKeys(a Appointment) []string {
	keys := []string{"psychologist:" + a.PsychologistID + ":" + a.Date}
	if a.RoomID != "" {
		keys = append(keys, "room:"+a.RoomID+":"+a.Date)
	}
	return keys
}

func (s *Service) logEvent(ctx context.Context, appointmentID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.log.Error().Err(err).Str("event", eventType).Msg("failed to marshal event payload")
		data = nil
	}

	ev := EventLog{
		EventType:     eventType,
		AppointmentID: appointmentID,
		Payload:       data,
		CreatedAt:     s.now(),
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		s.log.Error().Err(err).Str("event", eventType).Str("appointment_id", appointmentID).Msg("failed to insert event log")
	}
}
