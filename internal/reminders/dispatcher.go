package reminders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wolfman30/clinic-booking-assistant/internal/appointments"
	"github.com/wolfman30/clinic-booking-assistant/internal/observability/metrics"
	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
	"go.opentelemetry.io/otel/attribute"
)

// Messenger delivers reminder traffic for the dispatcher.
type Messenger interface {
	SendReminder(ctx context.Context, rec appointments.Record, action Action) error
	AlertOwnerUnconfirmed(ctx context.Context, rec appointments.Record) error
}

// Outcome is the coarse result of a trigger firing.
type Outcome string

const (
	OutcomeSent    Outcome = "sent"
	OutcomeSkipped Outcome = "skipped"
)

// Skip reasons.
const (
	ReasonNotFound         = "not_found"
	ReasonAlreadyConfirmed = "already_confirmed"
	ReasonUnknownAction    = "unknown_action"
)

// DispatchResult reports what a trigger firing did.
type DispatchResult struct {
	Outcome Outcome `json:"outcome"`
	Detail  string  `json:"detail"`
}

func (r DispatchResult) String() string {
	return string(r.Outcome) + ": " + r.Detail
}

// Dispatcher decides, per trigger firing, whether to message the patient or the owner.
type Dispatcher struct {
	store     appointments.Store
	messenger Messenger
	timeout   time.Duration
	metrics   *metrics.ReminderMetrics
	logger    *logging.Logger
}

func NewDispatcher(store appointments.Store, messenger Messenger, timeout time.Duration, m *metrics.ReminderMetrics, logger *logging.Logger) *Dispatcher {
	if store == nil {
		panic("reminders: appointment store cannot be nil")
	}
	if messenger == nil {
		panic("reminders: messenger cannot be nil")
	}
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Dispatcher{store: store, messenger: messenger, timeout: timeout, metrics: m, logger: logger}
}

// Dispatch handles one trigger firing. Send failures are returned wrapped in
// ErrUpstreamUnavailable and never reported as sent.
func (d *Dispatcher) Dispatch(ctx context.Context, p Payload) (DispatchResult, error) {
	ctx, span := tracer.Start(ctx, "reminders.dispatch")
	defer span.End()
	span.SetAttributes(
		attribute.String("clinic.appointment_id", p.AppointmentID),
		attribute.String("clinic.action", string(p.Action)),
	)

	getCtx, cancel := context.WithTimeout(ctx, d.timeout)
	rec, err := d.store.Get(getCtx, p.AppointmentID)
	cancel()
	if errors.Is(err, appointments.ErrNotFound) {
		d.logger.Info("reminder trigger for missing appointment", "appointment_id", p.AppointmentID, "action", p.Action)
		return d.finish(p.Action, DispatchResult{Outcome: OutcomeSkipped, Detail: ReasonNotFound}), nil
	}
	if err != nil {
		span.RecordError(err)
		return DispatchResult{}, fmt.Errorf("%w: get %s: %w", ErrUpstreamUnavailable, p.AppointmentID, err)
	}
	action, ok := ParseAction(string(p.Action))
	if !ok {
		d.logger.Warn("reminder trigger with unknown action", "appointment_id", p.AppointmentID, "action", p.Action)
		return d.finish(p.Action, DispatchResult{Outcome: OutcomeSkipped, Detail: ReasonUnknownAction}), nil
	}
	if rec.PatientPhoneE164 == "" {
		rec.PatientPhoneE164 = p.PatientPhoneE164
	}
	if rec.PatientName == "" {
		rec.PatientName = p.PatientName
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	switch action {
	case ActionFirst:
		err = d.messenger.SendReminder(sendCtx, *rec, action)
	case ActionSecond:
		if rec.Confirmed() {
			return d.finish(action, DispatchResult{Outcome: OutcomeSkipped, Detail: ReasonAlreadyConfirmed}), nil
		}
		err = d.messenger.SendReminder(sendCtx, *rec, action)
	case ActionEscalation:
		if rec.Confirmed() {
			return d.finish(action, DispatchResult{Outcome: OutcomeSkipped, Detail: ReasonAlreadyConfirmed}), nil
		}
		err = d.messenger.AlertOwnerUnconfirmed(sendCtx, *rec)
	}
	if err != nil {
		d.metrics.ObserveDispatch(string(action), "error")
		d.logger.Error("failed to send reminder", "appointment_id", p.AppointmentID, "action", action, "error", err)
		span.RecordError(err)
		return DispatchResult{}, fmt.Errorf("%w: send %s for %s: %w", ErrUpstreamUnavailable, action, p.AppointmentID, err)
	}
	return d.finish(action, DispatchResult{Outcome: OutcomeSent, Detail: action.sentLabel()}), nil
}

func (d *Dispatcher) finish(action Action, result DispatchResult) DispatchResult {
	d.metrics.ObserveDispatch(string(action), string(result.Outcome))
	d.logger.Info("reminder dispatched", "action", action, "result", result.String())
	return result
}
