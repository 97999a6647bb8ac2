package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hackgods/clinic-agenda/internal/agenda"
	"github.com/hackgods/clinic-agenda/internal/appointment"
	"github.com/hackgods/clinic-agenda/internal/calendar"
	"github.com/hackgods/clinic-agenda/internal/catalog"
	redisclient "github.com/hackgods/clinic-agenda/internal/redis"
	"github.com/hackgods/clinic-agenda/internal/validation"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}

func writeFieldError(w http.ResponseWriter, field, details string) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation_error", Field: field, Details: details})
}

// handleError maps service errors onto HTTP responses.
func handleError(w http.ResponseWriter, err error) {
	var ve *validation.Error
	var fe *calendar.FieldError

	switch {
	case errors.As(err, &ve):
		writeFieldError(w, ve.Field, ve.Reason)
	case errors.As(err, &fe):
		writeFieldError(w, fe.Field, fe.Error())

	case errors.Is(err, appointment.ErrPatientNotFound):
		writeError(w, http.StatusNotFound, "patient_not_found", err.Error())
	case errors.Is(err, appointment.ErrPsychologistNotFound):
		writeError(w, http.StatusNotFound, "psychologist_not_found", err.Error())
	case errors.Is(err, appointment.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, catalog.ErrRoomNotFound):
		writeError(w, http.StatusNotFound, "room_not_found", err.Error())
	case errors.Is(err, agenda.ErrTaskNotFound):
		writeError(w, http.StatusNotFound, "task_not_found", err.Error())
	case errors.Is(err, agenda.ErrAlertNotFound):
		writeError(w, http.StatusNotFound, "alert_not_found", err.Error())

	case errors.Is(err, appointment.ErrRoomConflict):
		writeError(w, http.StatusConflict, "room_conflict", err.Error())
	case errors.Is(err, appointment.ErrPsychologistConflict):
		writeError(w, http.StatusConflict, "psychologist_conflict", err.Error())
	case errors.Is(err, appointment.ErrRoomUnavailable):
		writeError(w, http.StatusConflict, "room_unavailable", err.Error())
	case errors.Is(err, appointment.ErrInvalidStatusTransition):
		writeError(w, http.StatusConflict, "invalid_status_transition", err.Error())
	case errors.Is(err, appointment.ErrResourceBusy),
		errors.Is(err, redisclient.ErrLockNotAcquired):
		writeError(w, http.StatusConflict, "resource_busy", "room or psychologist is currently being booked, please retry shortly")

	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

// outcome labels a write for metrics.
func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	var ve *validation.Error
	switch {
	case errors.As(err, &ve):
		return "invalid"
	case errors.Is(err, appointment.ErrRoomConflict), errors.Is(err, appointment.ErrPsychologistConflict):
		return "conflict"
	case errors.Is(err, appointment.ErrResourceBusy):
		return "busy"
	}
	return "error"
}
