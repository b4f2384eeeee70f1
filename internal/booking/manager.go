// Package booking creates, moves and cancels calendar appointments and keeps
// the reminder lifecycle in step with them.
package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wolfman30/clinic-booking-assistant/internal/appointments"
	"github.com/wolfman30/clinic-booking-assistant/internal/calendar"
	"github.com/wolfman30/clinic-booking-assistant/internal/notify"
	"github.com/wolfman30/clinic-booking-assistant/internal/reminders"
	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("clinic.internal.booking")

var ErrInvalidCommand = errors.New("booking: invalid command")

const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionCancel = "cancel"

	ownerTimeLayout = "02/01/2006 15:04"
)

// Calendar is the calendar collaborator.
type Calendar interface {
	IsFree(ctx context.Context, start, end time.Time) (bool, error)
	CreateEvent(ctx context.Context, ev calendar.Event) (*calendar.Event, error)
	UpdateEvent(ctx context.Context, eventID string, patch calendar.EventPatch) (*calendar.Event, error)
	DeleteEvent(ctx context.Context, eventID string) error
}

// OwnerNotifier alerts the clinic owner.
type OwnerNotifier interface {
	Notify(ctx context.Context, alert notify.Alert) error
}

// Command is the appointments manager event. Start and end are clinic-local
// wall times unless they carry an offset.
type Command struct {
	Action           string  `json:"action"`
	AppointmentID    string  `json:"appointment_id,omitempty"`
	EventID          string  `json:"event_id,omitempty"`
	PatientPhoneE164 string  `json:"patient_phone_e164,omitempty"`
	PatientName      string  `json:"patient_name,omitempty"`
	StartISO         string  `json:"start_iso,omitempty"`
	EndISO           string  `json:"end_iso,omitempty"`
	Notes            *string `json:"notes,omitempty"`
}

// Result mirrors the manager's JSON response.
type Result struct {
	OK            bool   `json:"ok"`
	EventID       string `json:"event_id,omitempty"`
	AppointmentID string `json:"appointment_id,omitempty"`
	Conflict      bool   `json:"conflict,omitempty"`
	Error         string `json:"error,omitempty"`

	Steps []reminders.StepOutcome `json:"-"`
}

type Config struct {
	ClinicName string
	Location   *time.Location
	Timeout    time.Duration
}

// Manager runs appointment commands against the calendar, the reminder
// scheduler and the record store.
type Manager struct {
	calendar  Calendar
	requester reminders.Requester
	scheduler reminders.TriggerScheduler
	store     appointments.Store
	owner     OwnerNotifier
	cfg       Config
	logger    *logging.Logger
}

func NewManager(cal Calendar, requester reminders.Requester, scheduler reminders.TriggerScheduler, store appointments.Store, owner OwnerNotifier, cfg Config, logger *logging.Logger) *Manager {
	if cal == nil || requester == nil || scheduler == nil || store == nil || owner == nil {
		panic("booking: calendar, requester, scheduler, store and owner notifier are required")
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = reminders.DefaultCallTimeout
	}
	if strings.TrimSpace(cfg.ClinicName) == "" {
		cfg.ClinicName = "Pelvis Therapy"
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Manager{
		calendar:  cal,
		requester: requester,
		scheduler: scheduler,
		store:     store,
		owner:     owner,
		cfg:       cfg,
		logger:    logger,
	}
}

// Handle dispatches on cmd.Action. Unknown actions are not an error.
func (m *Manager) Handle(ctx context.Context, cmd Command) (Result, error) {
	ctx, span := tracer.Start(ctx, "booking.handle")
	defer span.End()
	action := strings.ToLower(strings.TrimSpace(cmd.Action))
	span.SetAttributes(attribute.String("clinic.booking.action", action))

	switch action {
	case ActionCreate, ActionUpdate, ActionCancel:
	default:
		m.logger.Warn("unknown appointments action", "action", cmd.Action)
		return Result{OK: false, Error: "unknown_action"}, nil
	}
	if cmd.AppointmentID != "" {
		if err := reminders.ValidateAppointmentID(cmd.AppointmentID); err != nil {
			span.RecordError(err)
			return Result{}, fmt.Errorf("%w: appointment_id: %w", ErrInvalidCommand, err)
		}
	}

	var (
		result Result
		err    error
	)
	switch action {
	case ActionCreate:
		result, err = m.create(ctx, cmd)
	case ActionUpdate:
		result, err = m.update(ctx, cmd)
	case ActionCancel:
		result, err = m.cancel(ctx, cmd)
	}
	if err != nil {
		span.RecordError(err)
	}
	return result, err
}

func (m *Manager) create(ctx context.Context, cmd Command) (Result, error) {
	if strings.TrimSpace(cmd.PatientPhoneE164) == "" {
		return Result{}, fmt.Errorf("%w: patient_phone_e164 is required", ErrInvalidCommand)
	}
	start, end, err := m.window(cmd.StartISO, cmd.EndISO)
	if err != nil {
		return Result{}, err
	}

	callCtx, cancel := context.WithTimeout(ctx, m.cfg.Timeout)
	free, err := m.calendar.IsFree(callCtx, start, end)
	cancel()
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", reminders.ErrUpstreamUnavailable, err)
	}
	if !free {
		m.logger.Info("appointment slot busy", "start", reminders.FormatUTC(start))
		return Result{OK: false, Conflict: true}, nil
	}

	name := patientName(cmd.PatientName)
	notes := ""
	if cmd.Notes != nil {
		notes = *cmd.Notes
	}
	callCtx, cancel = context.WithTimeout(ctx, m.cfg.Timeout)
	created, err := m.calendar.CreateEvent(callCtx, calendar.Event{
		Summary:     fmt.Sprintf("%s - %s", m.cfg.ClinicName, name),
		Description: notes,
		Start:       start,
		End:         end,
	})
	cancel()
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", reminders.ErrUpstreamUnavailable, err)
	}

	m.notifyOwner(ctx, cmd.PatientPhoneE164, start, fmt.Sprintf("Agendado (eventId=%s)", created.ID))

	appointmentID := cmd.AppointmentID
	if appointmentID == "" {
		appointmentID = created.ID
	}
	if err := m.requestSchedule(ctx, appointmentID, cmd.PatientPhoneE164, name, start); err != nil {
		return Result{OK: false, EventID: created.ID, AppointmentID: appointmentID, Error: "schedule_failed"}, err
	}
	return Result{OK: true, EventID: created.ID, AppointmentID: appointmentID}, nil
}

func (m *Manager) update(ctx context.Context, cmd Command) (Result, error) {
	if strings.TrimSpace(cmd.EventID) == "" {
		return Result{}, fmt.Errorf("%w: event_id is required", ErrInvalidCommand)
	}
	var (
		patch     calendar.EventPatch
		start     time.Time
		moveStart bool
	)
	if cmd.StartISO != "" || cmd.EndISO != "" {
		s, e, err := m.window(cmd.StartISO, cmd.EndISO)
		if err != nil {
			return Result{}, err
		}
		start, moveStart = s, true
		patch.Start, patch.End = &s, &e
	}
	patch.Description = cmd.Notes

	callCtx, cancel := context.WithTimeout(ctx, m.cfg.Timeout)
	_, err := m.calendar.UpdateEvent(callCtx, cmd.EventID, patch)
	cancel()
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", reminders.ErrUpstreamUnavailable, err)
	}

	m.notifyOwner(ctx, cmd.PatientPhoneE164, start, fmt.Sprintf("Actualizado (eventId=%s)", cmd.EventID))

	if !moveStart {
		return Result{OK: true, EventID: cmd.EventID}, nil
	}
	appointmentID := cmd.AppointmentID
	if appointmentID == "" {
		appointmentID = cmd.EventID
	}
	phone, name := cmd.PatientPhoneE164, cmd.PatientName
	if phone == "" {
		if rec, err := m.getRecord(ctx, appointmentID); err == nil {
			phone = rec.PatientPhoneE164
			if name == "" {
				name = rec.PatientName
			}
		}
	}
	if err := m.requestSchedule(ctx, appointmentID, phone, patientName(name), start); err != nil {
		return Result{OK: false, EventID: cmd.EventID, AppointmentID: appointmentID, Error: "schedule_failed"}, err
	}
	return Result{OK: true, EventID: cmd.EventID, AppointmentID: appointmentID}, nil
}

func (m *Manager) cancel(ctx context.Context, cmd Command) (Result, error) {
	if strings.TrimSpace(cmd.EventID) == "" {
		return Result{}, fmt.Errorf("%w: event_id is required", ErrInvalidCommand)
	}
	callCtx, cancel := context.WithTimeout(ctx, m.cfg.Timeout)
	err := m.calendar.DeleteEvent(callCtx, cmd.EventID)
	cancel()
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", reminders.ErrUpstreamUnavailable, err)
	}

	appointmentID := cmd.AppointmentID
	if appointmentID == "" {
		appointmentID = cmd.EventID
	}
	var steps []reminders.StepOutcome
	rec, err := m.getRecord(ctx, appointmentID)
	switch {
	case err == nil:
		steps = reminders.CancelTriggers(ctx, m.scheduler, *rec, m.cfg.Timeout, m.logger)
		callCtx, cancel := context.WithTimeout(ctx, m.cfg.Timeout)
		err := m.store.Delete(callCtx, appointmentID)
		cancel()
		if err != nil {
			m.logger.Error("failed to delete appointment record", "appointment_id", appointmentID, "error", err)
		}
	case errors.Is(err, appointments.ErrNotFound):
		m.logger.Info("no appointment record to clean up", "appointment_id", appointmentID)
	default:
		m.logger.Error("failed to load appointment record", "appointment_id", appointmentID, "error", err)
	}

	var when time.Time
	if cmd.StartISO != "" {
		when, _ = ParseLocal(cmd.StartISO, m.cfg.Location)
	}
	m.notifyOwner(ctx, cmd.PatientPhoneE164, when, fmt.Sprintf("Cancelado (eventId=%s)", cmd.EventID))
	return Result{OK: true, EventID: cmd.EventID, AppointmentID: appointmentID, Steps: steps}, nil
}

func (m *Manager) window(startISO, endISO string) (time.Time, time.Time, error) {
	start, err := ParseLocal(startISO, m.cfg.Location)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: start_iso: %w", ErrInvalidCommand, err)
	}
	end, err := ParseLocal(endISO, m.cfg.Location)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: end_iso: %w", ErrInvalidCommand, err)
	}
	if !end.After(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: end_iso must be after start_iso", ErrInvalidCommand)
	}
	return start, end, nil
}

func (m *Manager) getRecord(ctx context.Context, appointmentID string) (*appointments.Record, error) {
	callCtx, cancel := context.WithTimeout(ctx, m.cfg.Timeout)
	defer cancel()
	return m.store.Get(callCtx, appointmentID)
}

func (m *Manager) requestSchedule(ctx context.Context, appointmentID, phone, name string, start time.Time) error {
	callCtx, cancel := context.WithTimeout(ctx, m.cfg.Timeout)
	defer cancel()
	err := m.requester.RequestSchedule(callCtx, reminders.ScheduleRequest{
		AppointmentID:    appointmentID,
		PatientPhoneE164: phone,
		PatientName:      name,
		ApptTimeISO:      reminders.FormatUTC(start),
	})
	if err != nil {
		m.logger.Error("reminder scheduling request failed", "appointment_id", appointmentID, "error", err)
		return err
	}
	m.logger.Info("reminder scheduling requested", "appointment_id", appointmentID)
	return nil
}

func (m *Manager) notifyOwner(ctx context.Context, patient string, when time.Time, status string) {
	alert := notify.Alert{Patient: patient, Status: status}
	if !when.IsZero() {
		alert.When = when.In(m.cfg.Location).Format(ownerTimeLayout)
	}
	callCtx, cancel := context.WithTimeout(ctx, m.cfg.Timeout)
	defer cancel()
	if err := m.owner.Notify(callCtx, alert); err != nil {
		m.logger.Error("owner notification failed", "status", status, "error", err)
	}
}

func patientName(name string) string {
	if strings.TrimSpace(name) == "" {
		return reminders.DefaultPatientName
	}
	return name
}
