package agenda

import (
	"sort"
	"time"

	"github.com/hackgods/clinic-agenda/internal/appointment"
	"github.com/hackgods/clinic-agenda/internal/calendar"
	"github.com/hackgods/clinic-agenda/internal/catalog"
)

// Input is one snapshot of everything an agenda day is built from.
// Stored holds alerts raised outside the deriver; Resolved marks alert ids
// that were resolved by staff.
type Input struct {
	Date         string
	Appointments []appointment.Appointment
	Rooms        *catalog.Catalog
	Tasks        []Task
	Stored       []Alert
	Resolved     map[string]bool
}

// Aggregator builds agenda days. It holds no state besides its clock and
// options, so one value can be shared.
type Aggregator struct {
	clock Clock
	opts  AlertOptions
}

func NewAggregator(clock Clock, opts AlertOptions) *Aggregator {
	if clock == nil {
		clock = time.Now
	}
	return &Aggregator{clock: clock, opts: opts.withDefaults()}
}

func (ag *Aggregator) Location() *time.Location {
	return ag.opts.Location
}

type booking struct {
	appt appointment.Appointment
	span calendar.Span
}

// collectDay keeps the appointments that fall on date, ordered by start and
// then id.
func collectDay(date string, appts []appointment.Appointment, loc *time.Location) (time.Time, []booking, error) {
	day, err := calendar.ParseStringToDate(date, loc)
	if err != nil {
		return time.Time{}, nil, &calendar.FieldError{Field: "date", Value: date, Err: err}
	}

	var out []booking
	for _, a := range appts {
		aday, err := a.Day(loc)
		if err != nil {
			return time.Time{}, nil, err
		}
		if !aday.Equal(day) {
			continue
		}
		span, err := a.Span(loc)
		if err != nil {
			return time.Time{}, nil, err
		}
		out = append(out, booking{appt: a, span: span})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].span.Start.Equal(out[j].span.Start) {
			return out[i].span.Start.Before(out[j].span.Start)
		}
		return out[i].appt.ID < out[j].appt.ID
	})
	return day, out, nil
}

// Build produces the agenda for in.Date. It never reads the wall clock
// directly and never mutates its input.
func (ag *Aggregator) Build(in Input) (*Data, error) {
	now := ag.clock().In(ag.opts.Location)
	rooms := in.Rooms
	if rooms == nil {
		rooms = catalog.Default()
	}

	day, bookings, err := collectDay(in.Date, in.Appointments, ag.opts.Location)
	if err != nil {
		return nil, err
	}

	appts := make([]appointment.Appointment, len(bookings))
	for i, b := range bookings {
		a := b.appt
		if r, ok := rooms.Room(a.RoomID); ok {
			a.RoomName = r.Name
		}
		appts[i] = a
	}

	derived, err := DeriveAlerts(in.Date, in.Appointments, rooms, in.Tasks, now, ag.opts)
	if err != nil {
		return nil, err
	}
	alerts := mergeAlerts(derived, in.Stored, in.Resolved)

	data := &Data{
		Date:         calendar.FormatDateToString(day),
		Appointments: appts,
		Rooms:        roomStatuses(rooms, bookings, now),
		Tasks:        append([]Task{}, in.Tasks...),
		Alerts:       alerts,
	}
	data.Stats = computeStats(data)
	return data, nil
}

func roomStatuses(rooms *catalog.Catalog, bookings []booking, now time.Time) []AgendaRoom {
	list := rooms.Rooms()
	out := make([]AgendaRoom, 0, len(list))

	for _, r := range list {
		ar := AgendaRoom{
			ID:        r.ID,
			Name:      r.Name,
			Capacity:  r.Capacity,
			Equipment: r.Equipment,
		}
		if ar.Equipment == nil {
			ar.Equipment = []string{}
		}

		if !r.Available {
			ar.Status = RoomMaintenance
			out = append(out, ar)
			continue
		}

		var current *booking
		reserved := false
		for i := range bookings {
			b := &bookings[i]
			if b.appt.RoomID != r.ID || !b.appt.Status.Active() {
				continue
			}
			if b.span.Contains(now) {
				if current == nil {
					current = b
				}
				continue
			}
			if b.span.Start.After(now) && b.appt.Status != appointment.StatusInProgress {
				reserved = true
			}
		}

		switch {
		case current != nil:
			end := current.span.End
			ar.Status = RoomOccupied
			ar.NextAvailable = &end
			ar.CurrentAppointment = &CurrentAppointment{
				ID:      current.appt.ID,
				Patient: displayOr(current.appt.PatientName, current.appt.PatientID),
				EndTime: calendar.FormatTime(end),
			}
		case reserved:
			at := now
			ar.Status = RoomReserved
			ar.NextAvailable = &at
		default:
			at := now
			ar.Status = RoomAvailable
			ar.NextAvailable = &at
		}
		out = append(out, ar)
	}
	return out
}

// mergeAlerts adds stored alerts the deriver did not produce and applies
// resolution flags.
func mergeAlerts(derived, stored []Alert, resolved map[string]bool) []Alert {
	out := make([]Alert, 0, len(derived)+len(stored))
	seen := make(map[string]bool, len(derived))
	for _, a := range derived {
		seen[a.ID] = true
		out = append(out, a)
	}
	for _, a := range stored {
		if seen[a.ID] {
			continue
		}
		seen[a.ID] = true
		out = append(out, a)
	}
	for i := range out {
		if resolved[out[i].ID] {
			out[i].Resolved = true
		}
	}
	sortAlerts(out)
	return out
}

func computeStats(d *Data) Stats {
	var s Stats
	s.TotalAppointments = len(d.Appointments)
	for _, a := range d.Appointments {
		if a.Status == appointment.StatusCompleted {
			s.CompletedAppointments++
		}
	}
	for _, r := range d.Rooms {
		if r.Status == RoomAvailable {
			s.AvailableRooms++
		}
	}
	for _, t := range d.Tasks {
		if !t.Completed {
			s.PendingTasks++
		}
	}
	for _, a := range d.Alerts {
		if a.Severity == SeverityCritical && !a.Resolved {
			s.CriticalAlerts++
		}
	}
	if s.TotalAppointments > 0 {
		s.Efficiency = float64(s.CompletedAppointments) / float64(s.TotalAppointments)
	}
	return s
}
