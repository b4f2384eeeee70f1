package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfman30/clinic-booking-assistant/internal/appointments"
	"github.com/wolfman30/clinic-booking-assistant/internal/booking"
	"github.com/wolfman30/clinic-booking-assistant/internal/reminders"
	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
)

type stubManager struct {
	commands []booking.Command
	result   booking.Result
	err      error
}

func (s *stubManager) Handle(_ context.Context, cmd booking.Command) (booking.Result, error) {
	s.commands = append(s.commands, cmd)
	return s.result, s.err
}

func newAdminRouter(t *testing.T, manager *stubManager, store appointments.Store) http.Handler {
	t.Helper()
	h := NewAdminAppointmentsHandler(manager, store, logging.Default())
	h.now = func() time.Time { return time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC) }
	r := chi.NewRouter()
	r.Get("/admin/appointments", h.ListForPatient)
	r.Post("/admin/appointments", h.Create)
	r.Get("/admin/appointments/{id}", h.Get)
	r.Patch("/admin/appointments/{id}", h.Update)
	r.Delete("/admin/appointments/{id}", h.Cancel)
	return r
}

func TestAdminCreateAppointment(t *testing.T) {
	manager := &stubManager{result: booking.Result{OK: true, EventID: "evt-1"}}
	router := newAdminRouter(t, manager, appointments.NewMemoryStore())

	body := `{"patient_phone_e164":"+593987654321","patient_name":"Carlos","start_iso":"2025-08-12T10:00:00","end_iso":"2025-08-12T11:00:00"}`
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/admin/appointments", strings.NewReader(body)))

	assert.Equal(t, http.StatusCreated, rr.Code)
	require.Len(t, manager.commands, 1)
	assert.Equal(t, booking.ActionCreate, manager.commands[0].Action)
	assert.Equal(t, "Carlos", manager.commands[0].PatientName)
	assert.JSONEq(t, `{"ok":true,"event_id":"evt-1"}`, rr.Body.String())
}

func TestAdminCreateStatusMapping(t *testing.T) {
	cases := []struct {
		name   string
		result booking.Result
		err    error
		want   int
	}{
		{"conflict", booking.Result{Conflict: true}, nil, http.StatusConflict},
		{"invalid", booking.Result{}, fmt.Errorf("%w: start_iso", booking.ErrInvalidCommand), http.StatusBadRequest},
		{"upstream", booking.Result{}, reminders.ErrUpstreamUnavailable, http.StatusBadGateway},
		{"partial", booking.Result{EventID: "evt-1", Error: "schedule_failed"}, errors.New("lambda"), http.StatusBadGateway},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := newAdminRouter(t, &stubManager{result: tc.result, err: tc.err}, appointments.NewMemoryStore())
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/admin/appointments", strings.NewReader(`{}`)))
			assert.Equal(t, tc.want, rr.Code)
		})
	}
}

func TestAdminUpdateAndCancelUsePathID(t *testing.T) {
	manager := &stubManager{result: booking.Result{OK: true}}
	router := newAdminRouter(t, manager, appointments.NewMemoryStore())

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPatch, "/admin/appointments/evt-7", strings.NewReader(`{"notes":"control"}`)))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/admin/appointments/evt-7", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	require.Len(t, manager.commands, 2)
	assert.Equal(t, booking.ActionUpdate, manager.commands[0].Action)
	assert.Equal(t, "evt-7", manager.commands[0].EventID)
	require.NotNil(t, manager.commands[0].Notes)
	assert.Equal(t, "control", *manager.commands[0].Notes)
	assert.Equal(t, booking.ActionCancel, manager.commands[1].Action)
	assert.Equal(t, "evt-7", manager.commands[1].EventID)
}

func seedAppointment(t *testing.T, store appointments.Store, id, phone, when string) {
	t.Helper()
	require.NoError(t, store.SaveSchedule(context.Background(), &appointments.Record{
		AppointmentID:    id,
		PatientPhoneE164: phone,
		ApptTimeISO:      when,
	}))
}

func TestAdminGetAppointment(t *testing.T) {
	store := appointments.NewMemoryStore()
	seedAppointment(t, store, "evt-1", "+1", "2025-08-12T15:00:00Z")
	require.NoError(t, store.MarkConfirmed(context.Background(), "evt-1", "2025-08-11T16:00:00Z"))
	router := newAdminRouter(t, &stubManager{}, store)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/admin/appointments/evt-1", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var got map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, "confirmed", got["effective_status"])

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/admin/appointments/missing", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestAdminListForPatient(t *testing.T) {
	store := appointments.NewMemoryStore()
	seedAppointment(t, store, "past", "+1", "2025-07-01T15:00:00Z")
	seedAppointment(t, store, "next", "+1", "2025-08-12T15:00:00Z")
	router := newAdminRouter(t, &stubManager{}, store)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/admin/appointments?phone=%2B1", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var got struct {
		Appointments []appointmentView `json:"appointments"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	require.Len(t, got.Appointments, 1)
	assert.Equal(t, "next", got.Appointments[0].AppointmentID)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/admin/appointments", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

// recordingManager stores a record under the command's appointment id, as the
// reminder orchestrator does after a create.
type recordingManager struct {
	store appointments.Store
}

func (m *recordingManager) Handle(ctx context.Context, cmd booking.Command) (booking.Result, error) {
	id := cmd.AppointmentID
	if id == "" {
		id = "evt-9"
	}
	if err := m.store.SaveSchedule(ctx, &appointments.Record{
		AppointmentID:    id,
		PatientPhoneE164: cmd.PatientPhoneE164,
		ApptTimeISO:      "2025-08-12T15:00:00Z",
	}); err != nil {
		return booking.Result{}, err
	}
	return booking.Result{OK: true, EventID: "evt-9", AppointmentID: id}, nil
}

func TestAdminGetUsesAppointmentIDFromCreate(t *testing.T) {
	store := appointments.NewMemoryStore()
	h := NewAdminAppointmentsHandler(&recordingManager{store: store}, store, logging.Default())
	r := chi.NewRouter()
	r.Post("/admin/appointments", h.Create)
	r.Get("/admin/appointments/{id}", h.Get)

	body := `{"appointment_id":"appt-001","patient_phone_e164":"+593987654321","start_iso":"2025-08-12T10:00:00","end_iso":"2025-08-12T11:00:00"}`
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/admin/appointments", strings.NewReader(body)))
	require.Equal(t, http.StatusCreated, rr.Code)
	var created booking.Result
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	assert.Equal(t, "evt-9", created.EventID)
	assert.Equal(t, "appt-001", created.AppointmentID)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/admin/appointments/"+created.AppointmentID, nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var got map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, "appt-001", got["appointment_id"])

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/admin/appointments/evt-9", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
