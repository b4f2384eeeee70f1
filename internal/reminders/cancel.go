package reminders

import (
	"context"
	"time"

	"github.com/wolfman30/clinic-booking-assistant/internal/appointments"
	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
)

// CancelTriggers deletes all three triggers of a cancelled appointment. Every
// deletion is attempted; failures are only reported in the returned steps.
func CancelTriggers(ctx context.Context, scheduler TriggerScheduler, rec appointments.Record, timeout time.Duration, logger *logging.Logger) []StepOutcome {
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	if logger == nil {
		logger = logging.Default()
	}
	return []StepOutcome{
		deleteTriggerStep(ctx, scheduler, timeout, logger, "delete_r1", rec.R1ScheduleName),
		deleteTriggerStep(ctx, scheduler, timeout, logger, "delete_r2", rec.R2ScheduleName),
		deleteTriggerStep(ctx, scheduler, timeout, logger, "delete_esc", rec.EscScheduleName),
	}
}
