package api

import (
	"encoding/json"
	"time"

	"github.com/hackgods/clinic-agenda/internal/agenda"
	"github.com/hackgods/clinic-agenda/internal/appointment"
)

type CreateAppointmentRequest struct {
	PatientID      string `json:"patientId"`
	PsychologistID string `json:"psychologistId"`
	Date           string `json:"date"`
	Time           string `json:"time"`
	Duration       int    `json:"duration"`
	Type           string `json:"type"`
	Status         string `json:"status,omitempty"`
	Priority       string `json:"priority,omitempty"`
	RoomID         string `json:"roomId,omitempty"`
	VirtualLink    string `json:"virtualLink,omitempty"`
	Notes          string `json:"notes,omitempty"`
}

func (r CreateAppointmentRequest) toAppointment() appointment.Appointment {
	return appointment.Appointment{
		PatientID:      r.PatientID,
		PsychologistID: r.PsychologistID,
		Date:           r.Date,
		Time:           r.Time,
		Duration:       r.Duration,
		Type:           appointment.Type(r.Type),
		Status:         appointment.Status(r.Status),
		Priority:       appointment.Priority(r.Priority),
		RoomID:         r.RoomID,
		VirtualLink:    r.VirtualLink,
		Notes:          r.Notes,
	}
}

type UpdateStatusRequest struct {
	Status           string `json:"status"`
	Reason           string `json:"reason,omitempty"`
	Notes            string `json:"notes,omitempty"`
	RequiresFollowUp bool   `json:"requiresFollowup,omitempty"`
	FollowUpDate     string `json:"followupDate,omitempty"`
}

type RescheduleRequest struct {
	Date     string `json:"date,omitempty"`
	Time     string `json:"time,omitempty"`
	Duration int    `json:"duration,omitempty"`
	RoomID   string `json:"roomId,omitempty"`
}

type CreateTaskRequest struct {
	Description       string `json:"description"`
	Type              string `json:"type"`
	Priority          string `json:"priority,omitempty"`
	DueTime           string `json:"dueTime,omitempty"`
	AssignedTo        string `json:"assignedTo"`
	RelatedPatient    string `json:"relatedPatient,omitempty"`
	EstimatedDuration int    `json:"estimatedDuration"`
}

func (r CreateTaskRequest) toTask() agenda.Task {
	return agenda.Task{
		Description:       r.Description,
		Type:              agenda.TaskType(r.Type),
		Priority:          appointment.Priority(r.Priority),
		DueTime:           r.DueTime,
		AssignedTo:        r.AssignedTo,
		RelatedPatient:    r.RelatedPatient,
		EstimatedDuration: r.EstimatedDuration,
	}
}

type RaiseAlertRequest struct {
	Type               string   `json:"type,omitempty"`
	Message            string   `json:"message"`
	Severity           string   `json:"severity,omitempty"`
	ActionRequired     bool     `json:"actionRequired"`
	RelatedAppointment string   `json:"relatedAppointment,omitempty"`
	Suggestions        []string `json:"suggestions,omitempty"`
}

func (r RaiseAlertRequest) toAlert() agenda.Alert {
	return agenda.Alert{
		Type:               agenda.AlertKind(r.Type),
		Message:            r.Message,
		Severity:           agenda.Severity(r.Severity),
		ActionRequired:     r.ActionRequired,
		RelatedAppointment: r.RelatedAppointment,
		Suggestions:        r.Suggestions,
	}
}

type AppointmentListResponse struct {
	Date         string                    `json:"date,omitempty"`
	From         string                    `json:"from,omitempty"`
	To           string                    `json:"to,omitempty"`
	Appointments []appointment.Appointment `json:"appointments"`
}

type EventResponse struct {
	ID        int64           `json:"id"`
	EventType string          `json:"eventType"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

type GridDay struct {
	Date    string `json:"date"`
	Day     int    `json:"day"`
	InMonth bool   `json:"inMonth"`
	IsToday bool   `json:"isToday"`
}

type GridResponse struct {
	Year      int       `json:"year"`
	Month     int       `json:"month"`
	MonthName string    `json:"monthName"`
	WeekDays  []string  `json:"weekDays"`
	Days      []GridDay `json:"days"`
}

type SlotsResponse struct {
	Date     string   `json:"date"`
	RoomID   string   `json:"roomId"`
	Duration int      `json:"duration"`
	Slots    []string `json:"slots"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Field   string `json:"field,omitempty"`
	Details string `json:"details,omitempty"`
}
