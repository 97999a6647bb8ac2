package agenda

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/hackgods/clinic-agenda/internal/appointment"
	"github.com/hackgods/clinic-agenda/internal/calendar"
	"github.com/hackgods/clinic-agenda/internal/catalog"
)

const (
	DefaultReminderLead   = 60 * time.Minute
	DefaultOverdueHigh    = 60 * time.Minute
	DefaultMaxSuggestions = 3
)

type AlertOptions struct {
	Location       *time.Location
	ReminderLead   time.Duration
	OverdueHigh    time.Duration
	MaxSuggestions int
}

func DefaultAlertOptions() AlertOptions {
	return AlertOptions{
		Location:       time.UTC,
		ReminderLead:   DefaultReminderLead,
		OverdueHigh:    DefaultOverdueHigh,
		MaxSuggestions: DefaultMaxSuggestions,
	}
}

func (o AlertOptions) withDefaults() AlertOptions {
	d := DefaultAlertOptions()
	if o.Location == nil {
		o.Location = d.Location
	}
	if o.ReminderLead <= 0 {
		o.ReminderLead = d.ReminderLead
	}
	if o.OverdueHigh <= 0 {
		o.OverdueHigh = d.OverdueHigh
	}
	if o.MaxSuggestions <= 0 {
		o.MaxSuggestions = d.MaxSuggestions
	}
	return o
}

// DeriveAlerts inspects one day of appointments and tasks and reports
// double bookings, overdue tasks, unsent reminders and bookings in rooms
// under maintenance. Appointments on other days are ignored. The result is
// ordered by severity (highest first), then timestamp, then id.
func DeriveAlerts(date string, appts []appointment.Appointment, rooms *catalog.Catalog, tasks []Task, now time.Time, opts AlertOptions) ([]Alert, error) {
	opts = opts.withDefaults()

	day, bookings, err := collectDay(date, appts, opts.Location)
	if err != nil {
		return nil, err
	}

	alerts := conflictAlerts(day, bookings, rooms, now, opts)

	overdue, err := overdueAlerts(date, day, tasks, now, opts)
	if err != nil {
		return nil, err
	}
	alerts = append(alerts, overdue...)
	alerts = append(alerts, reminderAlerts(day, bookings, now, opts)...)
	alerts = append(alerts, maintenanceAlerts(day, bookings, rooms)...)

	sortAlerts(alerts)
	return alerts, nil
}

func conflictAlerts(day time.Time, bookings []booking, rooms *catalog.Catalog, now time.Time, opts AlertOptions) []Alert {
	var out []Alert
	for i := 0; i < len(bookings); i++ {
		a := bookings[i]
		if a.appt.Status == appointment.StatusCancelled {
			continue
		}
		for j := i + 1; j < len(bookings); j++ {
			b := bookings[j]
			if b.appt.Status == appointment.StatusCancelled {
				continue
			}
			overlap, ok := a.span.Intersection(b.span)
			if !ok {
				continue
			}
			sameRoom := a.appt.RoomID != "" && a.appt.RoomID == b.appt.RoomID
			samePsych := a.appt.PsychologistID != "" && a.appt.PsychologistID == b.appt.PsychologistID
			if !sameRoom && !samePsych {
				continue
			}

			// bookings are sorted, so b is the later one
			var shared []string
			if sameRoom {
				shared = append(shared, "la sala "+roomName(rooms, b.appt))
			}
			if samePsych {
				shared = append(shared, "el profesional "+displayOr(b.appt.PsychologistName, b.appt.PsychologistID))
			}

			out = append(out, Alert{
				ID:   alertID(AlertConflict, day, a.appt.ID, b.appt.ID),
				Type: AlertConflict,
				Message: fmt.Sprintf("Conflicto de horario a las %s: las citas %s y %s comparten %s",
					calendar.FormatTime(overlap.Start), a.appt.ID, b.appt.ID, strings.Join(shared, " y ")),
				Severity:           SeverityHigh,
				Timestamp:          overlap.Start,
				ActionRequired:     true,
				RelatedAppointment: b.appt.ID,
				Appointments:       []string{a.appt.ID, b.appt.ID},
				Suggestions:        conflictSuggestions(day, b, bookings, rooms, sameRoom, samePsych, now, opts),
			})
		}
	}
	return out
}

// conflictSuggestions proposes free canonical slots for the later booking
// across every contended resource and, for room clashes, other rooms that
// are free for its current interval.
func conflictSuggestions(day time.Time, later booking, bookings []booking, rooms *catalog.Catalog, sameRoom, samePsych bool, now time.Time, opts AlertOptions) []string {
	if rooms == nil {
		return nil
	}

	var busy []calendar.Span
	for _, o := range bookings {
		if o.appt.ID == later.appt.ID || o.appt.Status == appointment.StatusCancelled {
			continue
		}
		if (sameRoom && o.appt.RoomID == later.appt.RoomID) ||
			(samePsych && o.appt.PsychologistID == later.appt.PsychologistID) {
			busy = append(busy, o.span)
		}
	}

	patient := displayOr(later.appt.PatientName, later.appt.PatientID)
	var out []string
	for _, start := range rooms.NextFreeSlots(day, later.span.Duration(), now, busy, opts.MaxSuggestions) {
		out = append(out, fmt.Sprintf("Reprogramar cita de %s para las %s", patient, calendar.FormatTime(start)))
	}
	if sameRoom {
		for _, r := range freeRooms(rooms, later, bookings) {
			out = append(out, fmt.Sprintf("Cambiar cita de %s a %s", patient, r.Name))
		}
	}
	return out
}

func overdueAlerts(date string, day time.Time, tasks []Task, now time.Time, opts AlertOptions) ([]Alert, error) {
	var out []Alert
	for _, t := range tasks {
		if t.Completed || t.DueTime == "" {
			continue
		}
		due, err := calendar.Combine(date, t.DueTime, opts.Location, "date", "dueTime")
		if err != nil {
			return nil, err
		}
		if !due.Before(now) {
			continue
		}

		late := now.Sub(due)
		severity := SeverityMedium
		if late > opts.OverdueHigh {
			severity = SeverityHigh
		}
		out = append(out, Alert{
			ID:   alertID(AlertWarning, day, t.ID),
			Type: AlertWarning,
			Message: fmt.Sprintf("Tarea vencida: %s (vencía a las %s, %d min de retraso)",
				t.Description, t.DueTime, int(late/time.Minute)),
			Severity:       severity,
			Timestamp:      due,
			ActionRequired: true,
			RelatedTask:    t.ID,
		})
	}
	return out, nil
}

func reminderAlerts(day time.Time, bookings []booking, now time.Time, opts AlertOptions) []Alert {
	var out []Alert
	for _, b := range bookings {
		if b.appt.ReminderSent {
			continue
		}
		if b.appt.Status != appointment.StatusScheduled && b.appt.Status != appointment.StatusConfirmed {
			continue
		}
		until := b.span.Start.Sub(now)
		if until < 0 || until > opts.ReminderLead {
			continue
		}
		out = append(out, Alert{
			ID:   alertID(AlertReminder, day, b.appt.ID),
			Type: AlertReminder,
			Message: fmt.Sprintf("Recordatorio pendiente: la cita de %s a las %s no ha sido notificada",
				displayOr(b.appt.PatientName, b.appt.PatientID), b.appt.Time),
			Severity:           SeverityMedium,
			Timestamp:          b.span.Start,
			ActionRequired:     true,
			RelatedAppointment: b.appt.ID,
			Appointments:       []string{b.appt.ID},
			Suggestions:        []string{"Llamar al paciente", "Enviar SMS de recordatorio"},
		})
	}
	return out
}

func maintenanceAlerts(day time.Time, bookings []booking, rooms *catalog.Catalog) []Alert {
	if rooms == nil {
		return nil
	}
	var out []Alert
	for _, b := range bookings {
		if !b.appt.Status.Active() || b.appt.RoomID == "" {
			continue
		}
		room, ok := rooms.Room(b.appt.RoomID)
		if !ok || room.Available {
			continue
		}
		patient := displayOr(b.appt.PatientName, b.appt.PatientID)
		var suggestions []string
		for _, r := range freeRooms(rooms, b, bookings) {
			suggestions = append(suggestions, fmt.Sprintf("Cambiar cita de %s a %s", patient, r.Name))
		}
		out = append(out, Alert{
			ID:   alertID(AlertUrgent, day, b.appt.ID),
			Type: AlertUrgent,
			Message: fmt.Sprintf("La cita de %s a las %s está asignada a %s, que está en mantenimiento",
				patient, b.appt.Time, room.Name),
			Severity:           SeverityCritical,
			Timestamp:          b.span.Start,
			ActionRequired:     true,
			RelatedAppointment: b.appt.ID,
			Appointments:       []string{b.appt.ID},
			Suggestions:        suggestions,
		})
	}
	return out
}

// freeRooms lists available rooms, other than target's own, with no
// non-cancelled booking overlapping target.
func freeRooms(rooms *catalog.Catalog, target booking, bookings []booking) []catalog.Room {
	var out []catalog.Room
	for _, r := range rooms.Rooms() {
		if !r.Available || r.ID == target.appt.RoomID {
			continue
		}
		free := true
		for _, o := range bookings {
			if o.appt.Status == appointment.StatusCancelled || o.appt.RoomID != r.ID {
				continue
			}
			if o.span.Overlaps(target.span) {
				free = false
				break
			}
		}
		if free {
			out = append(out, r)
		}
	}
	return out
}

// alertID is stable for the same kind, subjects and day, so a resolution
// stored against it survives recomputation.
func alertID(kind AlertKind, day time.Time, subjects ...string) string {
	ids := append([]string(nil), subjects...)
	sort.Strings(ids)
	key := string(kind) + "|" + calendar.FormatDateToString(day) + "|" + strings.Join(ids, "|")
	return fmt.Sprintf("%016x", xxhash.Sum64String(key))
}

func sortAlerts(alerts []Alert) {
	sort.SliceStable(alerts, func(i, j int) bool {
		a, b := alerts[i], alerts[j]
		if ra, rb := a.Severity.rank(), b.Severity.rank(); ra != rb {
			return ra > rb
		}
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.Before(b.Timestamp)
		}
		return a.ID < b.ID
	})
}

func roomName(rooms *catalog.Catalog, a appointment.Appointment) string {
	if rooms != nil {
		if r, ok := rooms.Room(a.RoomID); ok {
			return r.Name
		}
	}
	return displayOr(a.RoomName, a.RoomID)
}

func displayOr(name, id string) string {
	if name != "" {
		return name
	}
	return id
}
