package reminders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/wolfman30/clinic-booking-assistant/internal/appointments"
	"github.com/wolfman30/clinic-booking-assistant/internal/observability/metrics"
	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
	"go.opentelemetry.io/otel/attribute"
)

// StepOutcome records one independent best-effort step.
type StepOutcome struct {
	Step   string `json:"step"`
	Target string `json:"target,omitempty"`
	OK     bool   `json:"ok"`
	Err    error  `json:"-"`
}

// ErrorText returns the step error text, or empty.
func (s StepOutcome) ErrorText() string {
	if s.Err == nil {
		return ""
	}
	return s.Err.Error()
}

func (s StepOutcome) MarshalJSON() ([]byte, error) {
	type plain StepOutcome
	return json.Marshal(struct {
		plain
		Error string `json:"error,omitempty"`
	}{plain(s), s.ErrorText()})
}

// ConfirmResult is the outcome of an affirmative reply.
type ConfirmResult struct {
	Found  bool                 `json:"found"`
	Record *appointments.Record `json:"record,omitempty"`
	Steps  []StepOutcome        `json:"steps,omitempty"`
}

// Confirmer marks a patient's nearest future appointment as confirmed and
// cancels the triggers that would still nag them.
type Confirmer struct {
	store     appointments.Store
	scheduler TriggerScheduler
	timeout   time.Duration
	metrics   *metrics.ReminderMetrics
	logger    *logging.Logger
	now       func() time.Time
}

func NewConfirmer(store appointments.Store, scheduler TriggerScheduler, timeout time.Duration, m *metrics.ReminderMetrics, logger *logging.Logger) *Confirmer {
	if store == nil {
		panic("reminders: appointment store cannot be nil")
	}
	if scheduler == nil {
		panic("reminders: trigger scheduler cannot be nil")
	}
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Confirmer{store: store, scheduler: scheduler, timeout: timeout, metrics: m, logger: logger, now: time.Now}
}

// Confirm only returns an error when the lookup itself fails. The status
// write and trigger deletions are attempted independently and reported in Steps.
func (c *Confirmer) Confirm(ctx context.Context, phoneE164 string) (ConfirmResult, error) {
	ctx, span := tracer.Start(ctx, "reminders.confirm")
	defer span.End()

	now := c.now().UTC()
	queryCtx, cancel := context.WithTimeout(ctx, c.timeout)
	rec, err := appointments.NextFutureForPatient(queryCtx, c.store, phoneE164, FormatUTC(now))
	cancel()
	if errors.Is(err, appointments.ErrNotFound) {
		c.metrics.ObserveConfirmation("not_found")
		return ConfirmResult{Found: false}, nil
	}
	if err != nil {
		c.metrics.ObserveConfirmation("error")
		span.RecordError(err)
		return ConfirmResult{}, fmt.Errorf("%w: query patient appointments: %w", ErrUpstreamUnavailable, err)
	}
	span.SetAttributes(attribute.String("clinic.appointment_id", rec.AppointmentID))

	steps := make([]StepOutcome, 0, 3)
	steps = append(steps, c.markConfirmed(ctx, rec, now))
	steps = append(steps, c.deleteTrigger(ctx, "delete_r2", rec.R2ScheduleName))
	steps = append(steps, c.deleteTrigger(ctx, "delete_esc", rec.EscScheduleName))

	if rec.ConfirmedAt == "" && steps[0].OK {
		rec.ConfirmedAt = FormatUTC(now)
		rec.Status = appointments.StatusConfirmed
	}
	c.metrics.ObserveConfirmation("confirmed")
	c.logger.Info("appointment confirmed by patient", "appointment_id", rec.AppointmentID)
	return ConfirmResult{Found: true, Record: rec, Steps: steps}, nil
}

func (c *Confirmer) markConfirmed(ctx context.Context, rec *appointments.Record, now time.Time) StepOutcome {
	step := StepOutcome{Step: "mark_confirmed", Target: rec.AppointmentID}
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	err := c.store.MarkConfirmed(callCtx, rec.AppointmentID, FormatUTC(now))
	switch {
	case err == nil:
		step.OK = true
	case errors.Is(err, appointments.ErrAlreadyConfirmed):
		step.OK = true
		step.Err = err
		c.logger.Info("appointment was already confirmed", "appointment_id", rec.AppointmentID)
	default:
		step.Err = err
		c.logger.Error("failed to mark appointment confirmed", "appointment_id", rec.AppointmentID, "error", err)
	}
	return step
}

func (c *Confirmer) deleteTrigger(ctx context.Context, stepName, name string) StepOutcome {
	return deleteTriggerStep(ctx, c.scheduler, c.timeout, c.logger, stepName, name)
}

func deleteTriggerStep(ctx context.Context, scheduler TriggerScheduler, timeout time.Duration, logger *logging.Logger, stepName, name string) StepOutcome {
	step := StepOutcome{Step: stepName, Target: name}
	if name == "" {
		step.OK = true
		return step
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := scheduler.Delete(callCtx, name); err != nil {
		step.Err = err
		logger.Warn("failed to delete reminder trigger", "schedule", name, "error", err)
		return step
	}
	step.OK = true
	return step
}
