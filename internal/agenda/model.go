package agenda

import (
	"time"

	"github.com/hackgods/clinic-agenda/internal/appointment"
)

// Clock returns the current instant. Every function that needs "now" takes
// one so derivation stays deterministic under test.
type Clock func() time.Time

type TaskType string

const (
	TaskClinical       TaskType = "clinical"
	TaskAdministrative TaskType = "administrative"
	TaskFollowUp       TaskType = "follow_up"
	TaskEvaluation     TaskType = "evaluation"
)

// Task is a to-do item on a given agenda day. DueTime is HH:MM on that day.
type Task struct {
	ID                string               `json:"id"`
	Description       string               `json:"description" validate:"notblank,max=500"`
	Type              TaskType             `json:"type" validate:"required,oneof=clinical administrative follow_up evaluation"`
	Priority          appointment.Priority `json:"priority" validate:"omitempty,oneof=low medium high"`
	DueTime           string               `json:"dueTime,omitempty" validate:"omitempty,hhmm"`
	Completed         bool                 `json:"completed"`
	AssignedTo        string               `json:"assignedTo"`
	RelatedPatient    string               `json:"relatedPatient,omitempty"`
	EstimatedDuration int                  `json:"estimatedDuration" validate:"gte=0"`
}

type AlertKind string

const (
	AlertConflict AlertKind = "conflict"
	AlertReminder AlertKind = "reminder"
	AlertWarning  AlertKind = "warning"
	AlertInfo     AlertKind = "info"
	AlertUrgent   AlertKind = "urgent"
)

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

func (s Severity) rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	}
	return 0
}

type Alert struct {
	ID                 string    `json:"id"`
	Type               AlertKind `json:"type" validate:"required,oneof=conflict reminder warning info urgent"`
	Message            string    `json:"message" validate:"notblank,max=500"`
	Severity           Severity  `json:"severity" validate:"required,oneof=low medium high critical"`
	Timestamp          time.Time `json:"timestamp"`
	Resolved           bool      `json:"resolved"`
	ActionRequired     bool      `json:"actionRequired"`
	RelatedAppointment string    `json:"relatedAppointment,omitempty"`
	Appointments       []string  `json:"appointments,omitempty"`
	RelatedTask        string    `json:"relatedTask,omitempty"`
	Suggestions        []string  `json:"suggestions,omitempty"`
}

type RoomStatus string

const (
	RoomAvailable   RoomStatus = "available"
	RoomOccupied    RoomStatus = "occupied"
	RoomMaintenance RoomStatus = "maintenance"
	RoomReserved    RoomStatus = "reserved"
)

type CurrentAppointment struct {
	ID      string `json:"id"`
	Patient string `json:"patient"`
	EndTime string `json:"endTime"`
}

// AgendaRoom is a catalog room with its status at the time of the build.
// A nil NextAvailable means unknown.
type AgendaRoom struct {
	ID                 string              `json:"id"`
	Name               string              `json:"name"`
	Status             RoomStatus          `json:"status"`
	CurrentAppointment *CurrentAppointment `json:"currentAppointment,omitempty"`
	NextAvailable      *time.Time          `json:"nextAvailable,omitempty"`
	Capacity           int                 `json:"capacity"`
	Equipment          []string            `json:"equipment"`
}

type Stats struct {
	TotalAppointments     int     `json:"totalAppointments"`
	CompletedAppointments int     `json:"completedAppointments"`
	AvailableRooms        int     `json:"availableRooms"`
	PendingTasks          int     `json:"pendingTasks"`
	CriticalAlerts        int     `json:"criticalAlerts"`
	Efficiency            float64 `json:"efficiency"`
}

// Data is the agenda for one day.
type Data struct {
	Date         string                    `json:"date"`
	Appointments []appointment.Appointment `json:"appointments"`
	Rooms        []AgendaRoom              `json:"rooms"`
	Tasks        []Task                    `json:"tasks"`
	Alerts       []Alert                   `json:"alerts"`
	Stats        Stats                     `json:"stats"`
}

type CalendarEvent struct {
	ID           string             `json:"id"`
	Title        string             `json:"title"`
	Start        time.Time          `json:"start"`
	End          time.Time          `json:"end"`
	Type         appointment.Type   `json:"type"`
	Status       appointment.Status `json:"status"`
	Patient      string             `json:"patient"`
	Psychologist string             `json:"psychologist"`
	Room         string             `json:"room,omitempty"`
}
