package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/wolfman30/clinic-booking-assistant/internal/appointments"
	"github.com/wolfman30/clinic-booking-assistant/internal/booking"
	httpmiddleware "github.com/wolfman30/clinic-booking-assistant/internal/http/middleware"
	"github.com/wolfman30/clinic-booking-assistant/internal/reminders"
	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
)

// BookingManager runs appointment commands.
type BookingManager interface {
	Handle(ctx context.Context, cmd booking.Command) (booking.Result, error)
}

// AdminAppointmentsHandler exposes appointment management to clinic staff.
type AdminAppointmentsHandler struct {
	manager BookingManager
	store   appointments.Store
	now     func() time.Time
	logger  *logging.Logger
}

func NewAdminAppointmentsHandler(manager BookingManager, store appointments.Store, logger *logging.Logger) *AdminAppointmentsHandler {
	if manager == nil || store == nil {
		panic("handlers: booking manager and appointment store are required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &AdminAppointmentsHandler{manager: manager, store: store, now: time.Now, logger: logger}
}

type appointmentRequest struct {
	AppointmentID    string  `json:"appointment_id,omitempty"`
	PatientPhoneE164 string  `json:"patient_phone_e164,omitempty"`
	PatientName      string  `json:"patient_name,omitempty"`
	StartISO         string  `json:"start_iso,omitempty"`
	EndISO           string  `json:"end_iso,omitempty"`
	Notes            *string `json:"notes,omitempty"`
}

func (req appointmentRequest) command(action, eventID string) booking.Command {
	return booking.Command{
		Action:           action,
		AppointmentID:    req.AppointmentID,
		EventID:          eventID,
		PatientPhoneE164: req.PatientPhoneE164,
		PatientName:      req.PatientName,
		StartISO:         req.StartISO,
		EndISO:           req.EndISO,
		Notes:            req.Notes,
	}
}

type appointmentView struct {
	appointments.Record
	EffectiveStatus appointments.Status `json:"effective_status"`
}

func (h *AdminAppointmentsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req appointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	h.run(w, r, req.command(booking.ActionCreate, ""), http.StatusCreated)
}

// Update moves or annotates the calendar event named by {id}. Send
// appointment_id in the body when it differs from the event id.
func (h *AdminAppointmentsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req appointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	h.run(w, r, req.command(booking.ActionUpdate, chi.URLParam(r, "id")), http.StatusOK)
}

// Cancel deletes the calendar event named by {id}. The optional JSON body
// carries the patient phone for the owner alert and the appointment_id when
// it differs from the event id.
func (h *AdminAppointmentsHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	var req appointmentRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
	}
	h.run(w, r, req.command(booking.ActionCancel, chi.URLParam(r, "id")), http.StatusOK)
}

// Get looks {id} up as an appointment id, the appointment_id returned by
// Create. It equals the event id unless one was supplied on create.
func (h *AdminAppointmentsHandler) Get(w http.ResponseWriter, r *http.Request) {
	rec, err := h.store.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, appointments.ErrNotFound) {
		writeError(w, http.StatusNotFound, "appointment not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to load appointment", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load appointment")
		return
	}
	writeJSON(w, http.StatusOK, appointmentView{Record: *rec, EffectiveStatus: rec.EffectiveStatus()})
}

// ListForPatient returns upcoming appointments for ?phone=.
func (h *AdminAppointmentsHandler) ListForPatient(w http.ResponseWriter, r *http.Request) {
	phone := strings.TrimSpace(r.URL.Query().Get("phone"))
	if phone == "" {
		writeError(w, http.StatusBadRequest, "phone is required")
		return
	}
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	recs, err := h.store.QueryByPatient(r.Context(), phone, reminders.FormatUTC(h.now()), limit)
	if err != nil {
		h.logger.Error("failed to query appointments", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to query appointments")
		return
	}
	views := make([]appointmentView, 0, len(recs))
	for i := range recs {
		views = append(views, appointmentView{Record: recs[i], EffectiveStatus: recs[i].EffectiveStatus()})
	}
	writeJSON(w, http.StatusOK, map[string]any{"appointments": views})
}

func (h *AdminAppointmentsHandler) run(w http.ResponseWriter, r *http.Request, cmd booking.Command, okStatus int) {
	actor := httpmiddleware.AdminSubject(r.Context())
	h.logger.Info("admin appointment command", "action", cmd.Action, "event_id", cmd.EventID, "actor", actor)
	result, err := h.manager.Handle(r.Context(), cmd)
	switch {
	case errors.Is(err, booking.ErrInvalidCommand):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, reminders.ErrInvalidPayload), errors.Is(err, reminders.ErrInvalidTimestamp):
		writeError(w, http.StatusBadRequest, err.Error())
	case err != nil && result.EventID != "":
		h.logger.Error("appointment command partially applied", "action", cmd.Action, "event_id", result.EventID, "error", err)
		writeJSON(w, http.StatusBadGateway, result)
	case err != nil:
		h.logger.Error("appointment command failed", "action", cmd.Action, "error", err)
		writeError(w, http.StatusBadGateway, "upstream unavailable")
	case result.Conflict:
		writeJSON(w, http.StatusConflict, result)
	case !result.OK:
		writeJSON(w, http.StatusBadRequest, result)
	default:
		writeJSON(w, okStatus, result)
	}
}
