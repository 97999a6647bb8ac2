package appointment

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/clinic-agenda/internal/validation"
)

var testNow = time.Date(2025, time.March, 10, 8, 0, 0, 0, time.UTC)

func validAppointment() Appointment {
	return Appointment{
		PatientID:      "pat-1",
		PsychologistID: "psy-1",
		Date:           "10/03/2025",
		Time:           "09:00",
		Duration:       45,
		Type:           TypeInPerson,
		Status:         StatusScheduled,
		RoomID:         "sala-1",
	}
}

func TestValidateAcceptsBooking(t *testing.T) {
	require.NoError(t, validAppointment().Validate(testNow, time.UTC))

	virtual := validAppointment()
	virtual.Type = TypeVirtual
	virtual.RoomID = ""
	virtual.VirtualLink = "https://meet.example.com/abc"
	require.NoError(t, virtual.Validate(testNow, time.UTC))

	phone := validAppointment()
	phone.Type = TypePhone
	phone.RoomID = ""
	require.NoError(t, phone.Validate(testNow, time.UTC))
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(a *Appointment)
		field string
	}{
		{"missing patient", func(a *Appointment) { a.PatientID = "" }, "patientId"},
		{"missing psychologist", func(a *Appointment) { a.PsychologistID = "" }, "psychologistId"},
		{"bad date", func(a *Appointment) { a.Date = "2025-03-10" }, "date"},
		{"past date", func(a *Appointment) { a.Date = "09/03/2025" }, "date"},
		{"bad time", func(a *Appointment) { a.Time = "9am" }, "time"},
		{"one digit hour", func(a *Appointment) { a.Time = "9:00" }, "time"},
		{"impossible date", func(a *Appointment) { a.Date = "31/02/2025" }, "date"},
		{"bad status", func(a *Appointment) { a.Status = "done" }, "status"},
		{"too early", func(a *Appointment) { a.Time = "07:30" }, "time"},
		{"too late", func(a *Appointment) { a.Time = "19:00" }, "time"},
		{"starting now", func(a *Appointment) { a.Time = "08:00" }, ""},
		{"short", func(a *Appointment) { a.Duration = 10 }, "duration"},
		{"long", func(a *Appointment) { a.Duration = 195 }, "duration"},
		{"off step", func(a *Appointment) { a.Duration = 50 }, "duration"},
		{"unknown type", func(a *Appointment) { a.Type = "video" }, "type"},
		{"unknown priority", func(a *Appointment) { a.Priority = "urgent" }, "priority"},
		{"in person without room", func(a *Appointment) { a.RoomID = "" }, "roomId"},
		{"virtual without link", func(a *Appointment) { a.Type = TypeVirtual }, "virtualLink"},
		{"bad link", func(a *Appointment) { a.VirtualLink = "meet/abc" }, "virtualLink"},
		{"ftp link", func(a *Appointment) { a.VirtualLink = "ftp://example.com" }, "virtualLink"},
		{"long notes", func(a *Appointment) { a.Notes = strings.Repeat("n", MaxNotesLength+1) }, "notes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := validAppointment()
			tt.edit(&a)
			err := a.Validate(testNow, time.UTC)
			if tt.field == "" {
				// 08:00 equals now and is accepted
				assert.NoError(t, err)
				return
			}
			var ve *validation.Error
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestValidateStartInPast(t *testing.T) {
	a := validAppointment()
	a.Time = "09:00"
	err := a.Validate(testNow.Add(90*time.Minute), time.UTC)

	var ve *validation.Error
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "time", ve.Field)
}

func TestNotesLimitCountsRunes(t *testing.T) {
	a := validAppointment()
	a.Notes = strings.Repeat("ñ", MaxNotesLength)
	assert.NoError(t, a.Validate(testNow, time.UTC))
}

func TestSpan(t *testing.T) {
	a := Appointment{Date: "10/03/2025", Time: "14:30", Duration: 45}
	span, err := a.Span(time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, time.March, 10, 14, 30, 0, 0, time.UTC), span.Start)
	assert.Equal(t, time.Date(2025, time.March, 10, 15, 15, 0, 0, time.UTC), span.End)
}

func TestCanTransition(t *testing.T) {
	allowed := map[[2]Status]bool{
		{StatusScheduled, StatusConfirmed}:  true,
		{StatusScheduled, StatusInProgress}: true,
		{StatusConfirmed, StatusInProgress}: true,
		{StatusInProgress, StatusCompleted}: true,
		{StatusScheduled, StatusCancelled}:  true,
		{StatusConfirmed, StatusCancelled}:  true,
		{StatusScheduled, StatusNoShow}:     true,
		{StatusConfirmed, StatusNoShow}:     true,
	}
	all := []Status{StatusScheduled, StatusConfirmed, StatusInProgress, StatusCompleted, StatusCancelled, StatusNoShow}

	for _, from := range all {
		for _, to := range all {
			assert.Equal(t, allowed[[2]Status{from, to}], CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestActiveStatuses(t *testing.T) {
	assert.True(t, StatusScheduled.Active())
	assert.True(t, StatusConfirmed.Active())
	assert.True(t, StatusInProgress.Active())
	assert.False(t, StatusCompleted.Active())
	assert.False(t, StatusCancelled.Active())
	assert.False(t, StatusNoShow.Active())
}
