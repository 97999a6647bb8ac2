package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/hackgods/clinic-agenda/internal/export"
)

func getAgendaHandler(svc AgendaService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := svc.Agenda(r.Context(), dateParam(r, svc))
		if err != nil {
			handleError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, data)
	}
}

// exportAgendaHandler serves the agenda of ?date= as an XLSX download.
func exportAgendaHandler(svc AgendaService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		date := dateParam(r, svc)
		data, err := svc.Agenda(r.Context(), date)
		if err != nil {
			handleError(w, err)
			return
		}

		var buf bytes.Buffer
		if err := export.WriteAgenda(&buf, data); err != nil {
			handleError(w, err)
			return
		}

		name := "agenda-" + strings.ReplaceAll(date, "/", "-") + ".xlsx"
		w.Header().Set("Content-Type", export.ContentType)
		w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
		w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
		w.WriteHeader(http.StatusOK)
		_, _ = buf.WriteTo(w)
	}
}

func resolveAlertHandler(svc AgendaService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.ResolveAlert(r.Context(), dateParam(r, svc), chi.URLParam(r, "id")); err != nil {
			handleError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func raiseAlertHandler(svc AgendaService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RaiseAlertRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		alert, err := svc.RaiseAlert(r.Context(), dateParam(r, svc), req.toAlert())
		if err != nil {
			handleError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, alert)
	}
}

func createTaskHandler(svc AgendaService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateTaskRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		task, err := svc.CreateTask(r.Context(), dateParam(r, svc), req.toTask())
		if err != nil {
			handleError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, task)
	}
}

func completeTaskHandler(svc AgendaService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		task, err := svc.CompleteTask(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			handleError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, task)
	}
}
