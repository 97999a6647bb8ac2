package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/hackgods/clinic-agenda/internal/agenda"
	"github.com/hackgods/clinic-agenda/internal/appointment"
	"github.com/hackgods/clinic-agenda/internal/calendar"
	"github.com/hackgods/clinic-agenda/internal/catalog"
	"github.com/hackgods/clinic-agenda/internal/export"
	"github.com/hackgods/clinic-agenda/internal/metrics"
	"github.com/hackgods/clinic-agenda/internal/validation"
)

var testNow = time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

type fakeAppointments struct {
	createErr error
	created   appointment.Appointment
	list      []appointment.Appointment
	change    appointment.StatusChange
	limit     int
}

func (f *fakeAppointments) Create(_ context.Context, a appointment.Appointment) (*appointment.Appointment, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = a
	a.ID = "appt-1"
	return &a, nil
}

func (f *fakeAppointments) UpdateStatus(_ context.Context, id string, change appointment.StatusChange) (*appointment.Appointment, error) {
	if err := validation.Struct(change); err != nil {
		return nil, err
	}
	if id != "appt-1" {
		return nil, appointment.ErrAppointmentNotFound
	}
	f.change = change
	return &appointment.Appointment{ID: id, Status: change.Status}, nil
}

func (f *fakeAppointments) Reschedule(_ context.Context, id string, req appointment.RescheduleRequest) (*appointment.Appointment, error) {
	return nil, appointment.ErrRoomConflict
}

func (f *fakeAppointments) ListForDate(_ context.Context, date string) ([]appointment.Appointment, error) {
	if _, err := calendar.ParseStringToDate(date, time.UTC); err != nil {
		return nil, &calendar.FieldError{Field: "date", Value: date, Err: err}
	}
	var out []appointment.Appointment
	for _, a := range f.list {
		if a.Date == date {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeAppointments) ListRange(_ context.Context, from, to string) ([]appointment.Appointment, error) {
	start, err := calendar.ParseStringToDate(from, time.UTC)
	if err != nil {
		return nil, &calendar.FieldError{Field: "from", Value: from, Err: err}
	}
	end, err := calendar.ParseStringToDate(to, time.UTC)
	if err != nil {
		return nil, &calendar.FieldError{Field: "to", Value: to, Err: err}
	}
	var out []appointment.Appointment
	for _, a := range f.list {
		day, _ := calendar.ParseStringToDate(a.Date, time.UTC)
		if !day.Before(start) && !day.After(end) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeAppointments) Upcoming(_ context.Context, limit int) ([]appointment.Appointment, error) {
	if limit < 0 || limit > appointment.MaxUpcoming {
		return nil, validation.Invalid("limit", "must be between 1 and %d", appointment.MaxUpcoming)
	}
	f.limit = limit
	return f.list, nil
}

func (f *fakeAppointments) Statistics(context.Context) (*appointment.Statistics, error) {
	return &appointment.Statistics{
		Total:    len(f.list),
		ByStatus: map[appointment.Status]int{appointment.StatusScheduled: len(f.list)},
		ByType:   map[appointment.Type]int{},
	}, nil
}

func (f *fakeAppointments) Get(_ context.Context, id string) (*appointment.Appointment, error) {
	for _, a := range f.list {
		if a.ID == id {
			return &a, nil
		}
	}
	return nil, appointment.ErrAppointmentNotFound
}

func (f *fakeAppointments) History(_ context.Context, id string) ([]appointment.EventLog, error) {
	return []appointment.EventLog{
		{ID: 1, EventType: appointment.EventAppointmentCreated, AppointmentID: id, Payload: []byte(`{"time":"09:00"}`)},
	}, nil
}

func (f *fakeAppointments) MarkReminderSent(_ context.Context, id string) error {
	return nil
}

type fakeAgenda struct {
	lastDate string
	resolved []string
}

func (f *fakeAgenda) Today() string { return "10/03/2025" }

func (f *fakeAgenda) Agenda(_ context.Context, date string) (*agenda.Data, error) {
	f.lastDate = date
	return &agenda.Data{Date: date}, nil
}

func (f *fakeAgenda) Events(_ context.Context, date string) ([]agenda.CalendarEvent, error) {
	return nil, nil
}

func (f *fakeAgenda) ResolveAlert(_ context.Context, date, id string) error {
	if id != "a1" {
		return agenda.ErrAlertNotFound
	}
	f.resolved = append(f.resolved, date+"/"+id)
	return nil
}

func (f *fakeAgenda) RaiseAlert(_ context.Context, date string, a agenda.Alert) (*agenda.Alert, error) {
	if a.Message == "" {
		return nil, &validation.Error{Field: "message", Reason: "message is required"}
	}
	a.ID = "stored-1"
	return &a, nil
}

func (f *fakeAgenda) CreateTask(_ context.Context, date string, t agenda.Task) (*agenda.Task, error) {
	t.ID = "task-1"
	return &t, nil
}

func (f *fakeAgenda) CompleteTask(_ context.Context, id string) (*agenda.Task, error) {
	return nil, agenda.ErrTaskNotFound
}

type fixture struct {
	appts  *fakeAppointments
	agenda *fakeAgenda
	router http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{appts: &fakeAppointments{}, agenda: &fakeAgenda{}}
	f.router = NewRouter(RouterConfig{
		Appointments: f.appts,
		Agenda:       f.agenda,
		Rooms:        catalog.NewHolder(catalog.Default()),
		Location:     time.UTC,
		Now:          func() time.Time { return testNow },
		Health:       NewHealthHandler(okPing, okPing, "test", "v0"),
		Log:          zerolog.New(io.Discard),
	})
	return f
}

func okPing(context.Context) error { return nil }

func failPing(context.Context) error { return errors.New("down") }

func (f *fixture) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestReadiness(t *testing.T) {
	cases := []struct {
		name       string
		pg, redis  PingFunc
		wantCode   int
		wantStatus string
	}{
		{"all up", okPing, okPing, http.StatusOK, "ok"},
		{"redis down", okPing, failPing, http.StatusOK, "degraded"},
		{"postgres down", failPing, okPing, http.StatusServiceUnavailable, "error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewHealthHandler(tc.pg, tc.redis, "test", "v0")
			rec := httptest.NewRecorder()
			h.Readiness(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

			assert.Equal(t, tc.wantCode, rec.Code)
			var resp ReadinessResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tc.wantStatus, resp.Status)
			assert.Len(t, resp.Dependencies, 2)
		})
	}
}

func TestRequestIDIsEchoed(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	assert.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))

	rec = f.do(t, http.MethodGet, "/health/live", "")
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestCreateAppointment(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/appointments",
		`{"patientId":"p1","psychologistId":"ps1","date":"10/03/2025","time":"09:00","duration":45,"type":"in_person","roomId":"sala-1"}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	var got appointment.Appointment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "appt-1", got.ID)
	assert.Equal(t, 45, f.appts.created.Duration)
	assert.Equal(t, appointment.TypeInPerson, f.appts.created.Type)
	assert.Equal(t, "sala-1", f.appts.created.RoomID)
}

func TestCreateAppointmentErrors(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		wantCode  int
		wantError string
		wantField string
	}{
		{"validation", &validation.Error{Field: "time", Reason: "invalid time format (HH:MM)"}, http.StatusBadRequest, "validation_error", "time"},
		{"room conflict", appointment.ErrRoomConflict, http.StatusConflict, "room_conflict", ""},
		{"psychologist conflict", appointment.ErrPsychologistConflict, http.StatusConflict, "psychologist_conflict", ""},
		{"busy", appointment.ErrResourceBusy, http.StatusConflict, "resource_busy", ""},
		{"unavailable room", appointment.ErrRoomUnavailable, http.StatusConflict, "room_unavailable", ""},
		{"unknown patient", appointment.ErrPatientNotFound, http.StatusNotFound, "patient_not_found", ""},
		{"unknown room", catalog.ErrRoomNotFound, http.StatusNotFound, "room_not_found", ""},
		{"storage", errors.New("connection reset"), http.StatusInternalServerError, "internal_error", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			f.appts.createErr = tc.err

			rec := f.do(t, http.MethodPost, "/api/v1/appointments", `{"patientId":"p1"}`)

			assert.Equal(t, tc.wantCode, rec.Code)
			resp := decodeError(t, rec)
			assert.Equal(t, tc.wantError, resp.Error)
			assert.Equal(t, tc.wantField, resp.Field)
		})
	}
}

func TestCreateAppointmentRejectsBadJSON(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/api/v1/appointments", `{"patientId":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_request_body", decodeError(t, rec).Error)
}

func TestUpdateStatus(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/appointments/appt-1/status", `{"status":"confirmed"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, appointment.StatusChange{Status: appointment.StatusConfirmed}, f.appts.change)

	rec = f.do(t, http.MethodPost, "/api/v1/appointments/appt-1/status",
		`{"status":"completed","notes":"buen avance","requiresFollowup":true,"followupDate":"17/03/2025"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, appointment.StatusChange{
		Status:           appointment.StatusCompleted,
		Notes:            "buen avance",
		RequiresFollowUp: true,
		FollowUpDate:     "17/03/2025",
	}, f.appts.change)

	rec = f.do(t, http.MethodPost, "/api/v1/appointments/appt-1/status", `{"status":"cancelled","reason":"enfermedad"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "enfermedad", f.appts.change.Reason)

	rec = f.do(t, http.MethodPost, "/api/v1/appointments/appt-1/status", `{"status":"completed","requiresFollowup":true}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "followupDate", decodeError(t, rec).Field)

	rec = f.do(t, http.MethodPost, "/api/v1/appointments/appt-1/status", `{"status":"archived"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "status", decodeError(t, rec).Field)

	rec = f.do(t, http.MethodPost, "/api/v1/appointments/missing/status", `{"status":"confirmed"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRescheduleConflict(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/api/v1/appointments/appt-1/reschedule", `{"time":"10:00"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "room_conflict", decodeError(t, rec).Error)
}

func TestListAppointments(t *testing.T) {
	f := newFixture(t)
	f.appts.list = []appointment.Appointment{
		{ID: "a", Date: "10/03/2025", Time: "09:00"},
		{ID: "b", Date: "11/03/2025", Time: "09:00"},
	}

	rec := f.do(t, http.MethodGet, "/api/v1/appointments", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp AppointmentListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "10/03/2025", resp.Date)
	require.Len(t, resp.Appointments, 1)
	assert.Equal(t, "a", resp.Appointments[0].ID)

	rec = f.do(t, http.MethodGet, "/api/v1/appointments?date=12/03/2025", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"appointments":[]`)

	rec = f.do(t, http.MethodGet, "/api/v1/appointments?date=2025-03-10", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "date", decodeError(t, rec).Field)
}

func TestListAppointmentsRange(t *testing.T) {
	f := newFixture(t)
	f.appts.list = []appointment.Appointment{
		{ID: "a", Date: "10/03/2025", Time: "09:00"},
		{ID: "b", Date: "14/03/2025", Time: "09:00"},
		{ID: "c", Date: "20/03/2025", Time: "09:00"},
	}

	rec := f.do(t, http.MethodGet, "/api/v1/appointments?from=10/03/2025&to=16/03/2025&date=20/03/2025", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp AppointmentListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.Date)
	assert.Equal(t, "10/03/2025", resp.From)
	assert.Equal(t, "16/03/2025", resp.To)
	require.Len(t, resp.Appointments, 2)
	assert.Equal(t, "b", resp.Appointments[1].ID)

	rec = f.do(t, http.MethodGet, "/api/v1/appointments?from=10/03/2025", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "to", decodeError(t, rec).Field)
}

func TestUpcomingAppointments(t *testing.T) {
	f := newFixture(t)
	f.appts.list = []appointment.Appointment{{ID: "a", Date: "10/03/2025", Time: "09:00"}}

	rec := f.do(t, http.MethodGet, "/api/v1/appointments/upcoming", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, f.appts.limit)
	var list []appointment.Appointment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)

	rec = f.do(t, http.MethodGet, "/api/v1/appointments/upcoming?limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, f.appts.limit)

	rec = f.do(t, http.MethodGet, "/api/v1/appointments/upcoming?limit=many", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "limit", decodeError(t, rec).Field)

	rec = f.do(t, http.MethodGet, "/api/v1/appointments/upcoming?limit=500", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "limit", decodeError(t, rec).Field)

	f.appts.list = nil
	rec = f.do(t, http.MethodGet, "/api/v1/appointments/upcoming", "")
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}

func TestAppointmentStatistics(t *testing.T) {
	f := newFixture(t)
	f.appts.list = []appointment.Appointment{{ID: "a"}, {ID: "b"}}

	rec := f.do(t, http.MethodGet, "/api/v1/appointments/statistics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var st appointment.Statistics
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, 2, st.Total)
	assert.Equal(t, 2, st.ByStatus[appointment.StatusScheduled])
}

func TestAppointmentHistory(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/api/v1/appointments/appt-1/history", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp []EventResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp, 1)
	assert.Equal(t, appointment.EventAppointmentCreated, resp[0].EventType)
	assert.JSONEq(t, `{"time":"09:00"}`, string(resp[0].Payload))
}

func TestGetAgendaDefaultsToToday(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/v1/agenda", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "10/03/2025", f.agenda.lastDate)

	rec = f.do(t, http.MethodGet, "/api/v1/agenda?date=11/03/2025", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "11/03/2025", f.agenda.lastDate)
}

func TestExportAgenda(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/v1/agenda/export?date=11/03/2025", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, export.ContentType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "agenda-11-03-2025.xlsx")
	assert.Equal(t, "11/03/2025", f.agenda.lastDate)

	wb, err := excelize.OpenReader(rec.Body)
	require.NoError(t, err)
	defer wb.Close()
	assert.Equal(t, export.SheetAppointments, wb.GetSheetName(0))
}

func TestResolveAlert(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPatch, "/api/v1/agenda/alerts/a1/resolve?date=11/03/2025", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"11/03/2025/a1"}, f.agenda.resolved)

	rec = f.do(t, http.MethodPatch, "/api/v1/agenda/alerts/nope/resolve", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "alert_not_found", decodeError(t, rec).Error)
}

func TestRaiseAlertAndTasks(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/agenda/alerts", `{"message":"Corte de luz en Sala 2"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/v1/agenda/alerts", `{"message":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "message", decodeError(t, rec).Field)

	rec = f.do(t, http.MethodPost, "/api/v1/agenda/tasks", `{"description":"Llamar","type":"follow_up","assignedTo":"ps1","estimatedDuration":10}`)
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = f.do(t, http.MethodPatch, "/api/v1/agenda/tasks/t9/complete", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "task_not_found", decodeError(t, rec).Error)
}

func TestCalendarEventsNeverNull(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/api/v1/calendar/events", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}

func TestCalendarEventsRange(t *testing.T) {
	f := newFixture(t)
	f.appts.list = []appointment.Appointment{
		{ID: "a", PatientName: "Ana", Date: "10/03/2025", Time: "09:00", Duration: 45, Type: appointment.TypeVirtual},
		{ID: "b", PatientName: "Luis", Date: "12/03/2025", Time: "10:00", Duration: 60, Type: appointment.TypeInPerson},
		{ID: "c", PatientName: "Eva", Date: "20/03/2025", Time: "10:00", Duration: 60, Type: appointment.TypePhone},
	}

	rec := f.do(t, http.MethodGet, "/api/v1/calendar/events?from=10/03/2025&to=16/03/2025", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var events []agenda.CalendarEvent
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &events))
	require.Len(t, events, 2)
	assert.Equal(t, "Ana - Virtual", events[0].Title)
	assert.Equal(t, time.Date(2025, 3, 12, 11, 0, 0, 0, time.UTC), events[1].End.UTC())

	rec = f.do(t, http.MethodGet, "/api/v1/calendar/events?from=2025-03-10&to=16/03/2025", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "from", decodeError(t, rec).Field)

	f.appts.list = append(f.appts.list, appointment.Appointment{ID: "bad", Date: "11/03/2025", Time: "9h", Duration: 60})
	rec = f.do(t, http.MethodGet, "/api/v1/calendar/events?from=10/03/2025&to=16/03/2025", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestCalendarGrid(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/v1/calendar/grid?year=2025&month=3", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var grid GridResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &grid))
	assert.Equal(t, "Marzo", grid.MonthName)
	assert.Equal(t, []string{"Dom", "Lun", "Mar", "Mié", "Jue", "Vie", "Sáb"}, grid.WeekDays)
	require.Len(t, grid.Days, calendar.GridSize)
	assert.Equal(t, "23/02/2025", grid.Days[0].Date)
	assert.False(t, grid.Days[0].InMonth)
	assert.Equal(t, "01/03/2025", grid.Days[6].Date)
	assert.True(t, grid.Days[6].InMonth)

	var today []string
	for _, d := range grid.Days {
		if d.IsToday {
			today = append(today, d.Date)
		}
	}
	assert.Equal(t, []string{"10/03/2025"}, today)
}

func TestCalendarGridRejectsBadMonth(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/api/v1/calendar/grid?year=2025&month=13", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "month", decodeError(t, rec).Field)
}

func TestRooms(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/api/v1/rooms", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var rooms []catalog.Room
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rooms))
	require.Len(t, rooms, 4)
	assert.Equal(t, "Sala 1 - Consulta Individual", rooms[0].Name)
	assert.False(t, rooms[3].Available)
}

func TestRoomSlots(t *testing.T) {
	f := newFixture(t)
	f.appts.list = []appointment.Appointment{
		{ID: "a", Date: "10/03/2025", Time: "09:00", Duration: 60, RoomID: "sala-1", Status: appointment.StatusScheduled},
		{ID: "b", Date: "10/03/2025", Time: "11:00", Duration: 60, RoomID: "sala-1", Status: appointment.StatusCancelled},
		{ID: "c", Date: "10/03/2025", Time: "12:00", Duration: 60, RoomID: "sala-2", Status: appointment.StatusScheduled},
	}

	rec := f.do(t, http.MethodGet, "/api/v1/rooms/slots?date=10/03/2025&room=sala-1&duration=60", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp SlotsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 60, resp.Duration)
	assert.Contains(t, resp.Slots, "08:00")
	assert.NotContains(t, resp.Slots, "08:30")
	assert.NotContains(t, resp.Slots, "09:00")
	assert.NotContains(t, resp.Slots, "09:30")
	assert.Contains(t, resp.Slots, "10:00")
	assert.Contains(t, resp.Slots, "11:00")
	assert.Contains(t, resp.Slots, "12:00")
	assert.Len(t, resp.Slots, 18)
}

func TestRoomSlotsRejectsUnreadableBooking(t *testing.T) {
	f := newFixture(t)
	f.appts.list = []appointment.Appointment{
		{ID: "a", Date: "10/03/2025", Time: "09:00", Duration: 60, RoomID: "sala-1", Status: appointment.StatusScheduled},
		{ID: "broken", Date: "10/03/2025", Time: "9h", Duration: 60, RoomID: "sala-1", Status: appointment.StatusConfirmed},
	}

	rec := f.do(t, http.MethodGet, "/api/v1/rooms/slots?date=10/03/2025&room=sala-1&duration=60", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, "internal_error", resp.Error)
	assert.Empty(t, resp.Field)
	assert.Contains(t, resp.Details, "broken")
}

func TestRoomSlotsErrors(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/v1/rooms/slots?date=10/03/2025", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "room", decodeError(t, rec).Field)

	rec = f.do(t, http.MethodGet, "/api/v1/rooms/slots?room=sala-9", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/v1/rooms/slots?room=sala-4", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "room_unavailable", decodeError(t, rec).Error)

	rec = f.do(t, http.MethodGet, "/api/v1/rooms/slots?room=sala-1&duration=500", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "duration", decodeError(t, rec).Field)
}

func TestMetricsEndpoint(t *testing.T) {
	metrics.Register()
	f := &fixture{appts: &fakeAppointments{}, agenda: &fakeAgenda{}}
	f.router = NewRouter(RouterConfig{
		Appointments: f.appts,
		Agenda:       f.agenda,
		Rooms:        catalog.NewHolder(catalog.Default()),
		Location:     time.UTC,
		Now:          func() time.Time { return testNow },
		Metrics:      promhttp.Handler(),
		Log:          zerolog.New(io.Discard),
	})

	f.do(t, http.MethodGet, "/api/v1/rooms", "")
	rec := f.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `clinic_agenda_http_requests_total{code="200",route="/api/v1/rooms"}`)
}
