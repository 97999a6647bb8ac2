package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/hackgods/clinic-agenda/internal/agenda"
	"github.com/hackgods/clinic-agenda/internal/appointment"
	"github.com/hackgods/clinic-agenda/internal/calendar"
	"github.com/hackgods/clinic-agenda/internal/catalog"
)

// calendarEventsHandler serves one day from the cached agenda, or a
// ?from=&to= range straight from the appointment store.
func calendarEventsHandler(svc AgendaService, appts AppointmentService, loc *time.Location) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var events []agenda.CalendarEvent
		var err error
		if from, to, ok := rangeParams(r); ok {
			var list []appointment.Appointment
			list, err = appts.ListRange(r.Context(), from, to)
			if err == nil {
				if events, err = agenda.CalendarEvents(list, loc); err != nil {
					err = fmt.Errorf("stored appointment is unreadable: %v", err)
				}
			}
		} else {
			events, err = svc.Events(r.Context(), dateParam(r, svc))
		}
		if err != nil {
			handleError(w, err)
			return
		}
		if events == nil {
			events = []agenda.CalendarEvent{}
		}
		writeJSON(w, http.StatusOK, events)
	}
}

func calendarGridHandler(loc *time.Location, now func() time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		today := now().In(loc)
		year, month := today.Year(), int(today.Month())

		q := r.URL.Query()
		if v := q.Get("year"); v != "" {
			y, err := strconv.Atoi(v)
			if err != nil || y < 1 || y > 9999 {
				writeFieldError(w, "year", "year must be a number between 1 and 9999")
				return
			}
			year = y
		}
		if v := q.Get("month"); v != "" {
			m, err := strconv.Atoi(v)
			if err != nil || m < 1 || m > 12 {
				writeFieldError(w, "month", "month must be between 1 and 12")
				return
			}
			month = m
		}

		grid := calendar.DayGrid(year, time.Month(month))
		days := make([]GridDay, len(grid))
		for i, d := range grid {
			days[i] = GridDay{
				Date:    calendar.FormatDateToString(d),
				Day:     d.Day(),
				InMonth: int(d.Month()) == month,
				IsToday: d.Year() == today.Year() && d.YearDay() == today.YearDay(),
			}
		}

		writeJSON(w, http.StatusOK, GridResponse{
			Year:      year,
			Month:     month,
			MonthName: calendar.MonthNames()[month-1],
			WeekDays:  calendar.WeekDays(),
			Days:      days,
		})
	}
}

func listRoomsHandler(rooms RoomSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, rooms.Get().Rooms())
	}
}

// roomSlotsHandler lists the canonical start times on a date where a
// booking of the given duration fits in the room.
func roomSlotsHandler(rooms RoomSource, appts AppointmentService, loc *time.Location, now func() time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		date := q.Get("date")
		if date == "" {
			date = calendar.FormatDateToString(now().In(loc))
		}
		day, err := calendar.ParseStringToDate(date, loc)
		if err != nil {
			writeFieldError(w, "date", err.Error())
			return
		}

		roomID := q.Get("room")
		if roomID == "" {
			writeFieldError(w, "room", "room is required")
			return
		}
		cat := rooms.Get()
		room, ok := cat.Room(roomID)
		if !ok {
			handleError(w, catalog.ErrRoomNotFound)
			return
		}
		if !room.Available {
			handleError(w, appointment.ErrRoomUnavailable)
			return
		}

		duration := appointment.DefaultDuration
		if v := q.Get("duration"); v != "" {
			d, err := strconv.Atoi(v)
			if err != nil || d < appointment.MinDuration || d > appointment.MaxDuration {
				writeFieldError(w, "duration", fmt.Sprintf("duration must be between %d and %d minutes", appointment.MinDuration, appointment.MaxDuration))
				return
			}
			duration = d
		}

		list, err := appts.ListForDate(r.Context(), date)
		if err != nil {
			handleError(w, err)
			return
		}
		var busy []calendar.Span
		for _, a := range list {
			if a.RoomID != roomID || !a.Status.Active() {
				continue
			}
			span, err := a.Span(loc)
			if err != nil {
				handleError(w, fmt.Errorf("appointment %s has an unreadable slot: %v", a.ID, err))
				return
			}
			busy = append(busy, span)
		}

		starts := cat.NextFreeSlots(day, time.Duration(duration)*time.Minute, now(), busy, len(cat.TimeSlots()))
		slots := make([]string, 0, len(starts))
		for _, s := range starts {
			slots = append(slots, calendar.FormatTime(s))
		}

		writeJSON(w, http.StatusOK, SlotsResponse{Date: date, RoomID: roomID, Duration: duration, Slots: slots})
	}
}
