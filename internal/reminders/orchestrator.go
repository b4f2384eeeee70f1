package reminders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wolfman30/clinic-booking-assistant/internal/appointments"
	"github.com/wolfman30/clinic-booking-assistant/internal/observability/metrics"
	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("clinic.internal.reminders")

// DefaultCallTimeout bounds every collaborator call when no timeout is configured.
const DefaultCallTimeout = 10 * time.Second

// OrchestratorConfig tunes trigger computation.
type OrchestratorConfig struct {
	Namer       Namer
	FastMode    bool
	CallTimeout time.Duration
	Metrics     *metrics.ReminderMetrics
	// Now overrides the clock in tests.
	Now func() time.Time
}

// ScheduleResult is returned to the caller of the scheduling entry point.
type ScheduleResult struct {
	OK       bool         `json:"ok"`
	R1       string       `json:"r1"`
	R2       string       `json:"r2"`
	Esc      string       `json:"esc"`
	FastMode bool         `json:"fast_mode"`
	Names    TriggerNames `json:"names"`
}

// Orchestrator computes, upserts and records the three reminder triggers of an appointment.
type Orchestrator struct {
	scheduler TriggerScheduler
	store     appointments.Store
	cfg       OrchestratorConfig
	logger    *logging.Logger
}

func NewOrchestrator(scheduler TriggerScheduler, store appointments.Store, cfg OrchestratorConfig, logger *logging.Logger) *Orchestrator {
	if scheduler == nil {
		panic("reminders: trigger scheduler cannot be nil")
	}
	if store == nil {
		panic("reminders: appointment store cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = DefaultCallTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Orchestrator{scheduler: scheduler, store: store, cfg: cfg, logger: logger}
}

// Schedule upserts the triggers and then writes the record. There is no
// rollback: a failure part way leaves earlier triggers in place and is
// returned wrapped in ErrUpstreamUnavailable.
func (o *Orchestrator) Schedule(ctx context.Context, req ScheduleRequest) (ScheduleResult, error) {
	ctx, span := tracer.Start(ctx, "reminders.schedule")
	defer span.End()
	span.SetAttributes(
		attribute.String("clinic.appointment_id", req.AppointmentID),
		attribute.Bool("clinic.fast_mode", o.cfg.FastMode),
	)

	if err := req.Validate(); err != nil {
		span.RecordError(err)
		return ScheduleResult{}, err
	}
	appt, err := ParseAppointmentTime(req.ApptTimeISO)
	if err != nil {
		span.RecordError(err)
		return ScheduleResult{}, err
	}
	names, err := o.cfg.Namer.Names(req.AppointmentID)
	if err != nil {
		span.RecordError(err)
		return ScheduleResult{}, err
	}

	name := strings.TrimSpace(req.PatientName)
	if name == "" {
		name = DefaultPatientName
	}
	now := o.cfg.Now().UTC()
	sched := ComputeSchedule(appt, now, o.cfg.FastMode).EnsureFuture(now)
	apptISO := FormatUTC(appt)

	for _, action := range Actions() {
		trigger := Trigger{
			Name: names.For(action),
			At:   sched.At(action),
			Payload: Payload{
				AppointmentID:    req.AppointmentID,
				PatientPhoneE164: req.PatientPhoneE164,
				PatientName:      name,
				ApptTimeISO:      apptISO,
				Action:           action,
			},
		}
		callCtx, cancel := context.WithTimeout(ctx, o.cfg.CallTimeout)
		err := o.scheduler.Upsert(callCtx, trigger)
		cancel()
		if err != nil {
			o.cfg.Metrics.ObserveTrigger(string(action), "error")
			o.logger.Error("failed to upsert reminder trigger", "appointment_id", req.AppointmentID, "schedule", trigger.Name, "error", err)
			span.RecordError(err)
			return ScheduleResult{}, fmt.Errorf("%w: upsert %s: %w", ErrUpstreamUnavailable, trigger.Name, err)
		}
		o.cfg.Metrics.ObserveTrigger(string(action), "ok")
	}

	rec := &appointments.Record{
		AppointmentID:    req.AppointmentID,
		PatientPhoneE164: req.PatientPhoneE164,
		PatientName:      name,
		ApptTimeISO:      apptISO,
		R1ScheduleName:   names.R1,
		R2ScheduleName:   names.R2,
		EscScheduleName:  names.Escalation,
	}
	callCtx, cancel := context.WithTimeout(ctx, o.cfg.CallTimeout)
	err = o.store.SaveSchedule(callCtx, rec)
	cancel()
	if err != nil {
		o.logger.Error("failed to save appointment record", "appointment_id", req.AppointmentID, "error", err)
		span.RecordError(err)
		return ScheduleResult{}, fmt.Errorf("%w: save record %s: %w", ErrUpstreamUnavailable, req.AppointmentID, err)
	}

	result := ScheduleResult{
		OK:       true,
		R1:       FormatUTC(sched.R1),
		R2:       FormatUTC(sched.R2),
		Esc:      FormatUTC(sched.Escalation),
		FastMode: o.cfg.FastMode,
		Names:    names,
	}
	o.logger.Info("reminders scheduled",
		"appointment_id", req.AppointmentID,
		"r1", result.R1,
		"r2", result.R2,
		"esc", result.Esc,
		"fast_mode", o.cfg.FastMode,
	)
	return result, nil
}
