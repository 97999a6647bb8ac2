package agenda

import (
	"time"

	"github.com/hackgods/clinic-agenda/internal/appointment"
)

var typeLabels = map[appointment.Type]string{
	appointment.TypeInPerson: "Presencial",
	appointment.TypeVirtual:  "Virtual",
	appointment.TypePhone:    "Telefónica",
}

// CalendarEvents maps appointments one to one onto calendar events, keeping
// their order.
func CalendarEvents(appts []appointment.Appointment, loc *time.Location) ([]CalendarEvent, error) {
	out := make([]CalendarEvent, 0, len(appts))
	for _, a := range appts {
		span, err := a.Span(loc)
		if err != nil {
			return nil, err
		}

		label, ok := typeLabels[a.Type]
		if !ok {
			label = string(a.Type)
		}
		patient := displayOr(a.PatientName, a.PatientID)

		out = append(out, CalendarEvent{
			ID:           a.ID,
			Title:        patient + " - " + label,
			Start:        span.Start,
			End:          span.End,
			Type:         a.Type,
			Status:       a.Status,
			Patient:      patient,
			Psychologist: displayOr(a.PsychologistName, a.PsychologistID),
			Room:         a.RoomName,
		})
	}
	return out, nil
}
