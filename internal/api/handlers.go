package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hackgods/clinic-agenda/internal/appointment"
	"github.com/hackgods/clinic-agenda/internal/metrics"
)

func createAppointmentHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		appt, err := svc.Create(r.Context(), req.toAppointment())
		metrics.IncAppointmentWrite("create", outcome(err))
		if err != nil {
			handleError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, appt)
	}
}

func listAppointmentsHandler(svc AppointmentService, ag AgendaService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if from, to, ok := rangeParams(r); ok {
			appts, err := svc.ListRange(r.Context(), from, to)
			if err != nil {
				handleError(w, err)
				return
			}
			if appts == nil {
				appts = []appointment.Appointment{}
			}
			writeJSON(w, http.StatusOK, AppointmentListResponse{From: from, To: to, Appointments: appts})
			return
		}

		date := dateParam(r, ag)
		appts, err := svc.ListForDate(r.Context(), date)
		if err != nil {
			handleError(w, err)
			return
		}
		if appts == nil {
			appts = []appointment.Appointment{}
		}
		writeJSON(w, http.StatusOK, AppointmentListResponse{Date: date, Appointments: appts})
	}
}

func upcomingHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 0
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				writeFieldError(w, "limit", "limit must be a number")
				return
			}
			limit = n
		}

		appts, err := svc.Upcoming(r.Context(), limit)
		if err != nil {
			handleError(w, err)
			return
		}
		if appts == nil {
			appts = []appointment.Appointment{}
		}
		writeJSON(w, http.StatusOK, appts)
	}
}

func statisticsHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := svc.Statistics(r.Context())
		if err != nil {
			handleError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, st)
	}
}

func getAppointmentHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		appt, err := svc.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			handleError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, appt)
	}
}

func appointmentHistoryHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		events, err := svc.History(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			handleError(w, err)
			return
		}

		resp := make([]EventResponse, 0, len(events))
		for _, ev := range events {
			item := EventResponse{ID: ev.ID, EventType: ev.EventType, CreatedAt: ev.CreatedAt}
			if json.Valid(ev.Payload) {
				item.Payload = ev.Payload
			}
			resp = append(resp, item)
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func updateStatusHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req UpdateStatusRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		appt, err := svc.UpdateStatus(r.Context(), chi.URLParam(r, "id"), appointment.StatusChange{
			Status:           appointment.Status(req.Status),
			Reason:           req.Reason,
			Notes:            req.Notes,
			RequiresFollowUp: req.RequiresFollowUp,
			FollowUpDate:     req.FollowUpDate,
		})
		metrics.IncAppointmentWrite("status", outcome(err))
		if err != nil {
			handleError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, appt)
	}
}

func rescheduleHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RescheduleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		appt, err := svc.Reschedule(r.Context(), chi.URLParam(r, "id"), appointment.RescheduleRequest{
			Date:     req.Date,
			Time:     req.Time,
			Duration: req.Duration,
			RoomID:   req.RoomID,
		})
		metrics.IncAppointmentWrite("reschedule", outcome(err))
		if err != nil {
			handleError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, appt)
	}
}

func reminderSentHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := svc.MarkReminderSent(r.Context(), chi.URLParam(r, "id"))
		metrics.IncAppointmentWrite("reminder", outcome(err))
		if err != nil {
			handleError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
