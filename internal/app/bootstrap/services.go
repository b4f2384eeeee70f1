package bootstrap

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
	"github.com/wolfman30/clinic-booking-assistant/internal/appointments"
	"github.com/wolfman30/clinic-booking-assistant/internal/booking"
	"github.com/wolfman30/clinic-booking-assistant/internal/channels/whatsapp"
	appconfig "github.com/wolfman30/clinic-booking-assistant/internal/config"
	"github.com/wolfman30/clinic-booking-assistant/internal/inbound"
	"github.com/wolfman30/clinic-booking-assistant/internal/notify"
	"github.com/wolfman30/clinic-booking-assistant/internal/observability/metrics"
	"github.com/wolfman30/clinic-booking-assistant/internal/reminders"
	"github.com/wolfman30/clinic-booking-assistant/internal/secrets"
	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
)

// Services is the assembled application graph shared by the binaries.
type Services struct {
	Config       *appconfig.Config
	AWS          *AWSClients
	Metrics      *metrics.ReminderMetrics
	Secrets      *secrets.Store
	Store        appointments.Store
	Scheduler    Scheduler
	Orchestrator *reminders.Orchestrator
	Requester    reminders.Requester
	WhatsApp     *whatsapp.Client
	Owner        *notify.OwnerNotifier
	Messenger    *notify.ReminderMessenger
	Dispatcher   *reminders.Dispatcher
	Confirmer    *reminders.Confirmer
	Redis        *redis.Client
	Inbound      *inbound.Router
	// Booking is nil when Google Calendar is not configured.
	Booking *booking.Manager
}

// BuildServices wires every component from configuration. Optional parts
// (Redis, catalog, calendar) degrade with a log line instead of failing.
func BuildServices(ctx context.Context, cfg *appconfig.Config, aws *AWSClients, m *metrics.ReminderMetrics, logger *logging.Logger) *Services {
	if logger == nil {
		logger = logging.Default()
	}
	s := &Services{Config: cfg, AWS: aws, Metrics: m}
	s.Secrets = secrets.NewStore(aws.Secrets)
	s.Store = BuildStore(cfg, aws, logger)
	s.Scheduler = BuildScheduler(cfg, aws, logger)
	s.Orchestrator = BuildOrchestrator(cfg, s.Scheduler, s.Store, m, logger)
	s.Requester = BuildRequester(cfg, aws, s.Orchestrator)

	s.WhatsApp = BuildWhatsAppClient(cfg, s.Secrets)
	s.Owner = BuildOwnerNotifier(cfg, s.WhatsApp, BuildEmailSender(cfg, aws, logger), logger)
	s.Messenger = BuildReminderMessenger(cfg, s.WhatsApp, s.Owner, logger)
	s.Dispatcher = reminders.NewDispatcher(s.Store, s.Messenger, cfg.OutboundTimeout, m, logger)
	s.Confirmer = reminders.NewConfirmer(s.Store, s.Scheduler, cfg.OutboundTimeout, m, logger)

	s.Redis = BuildRedisClient(ctx, cfg, logger, true)
	deps := inbound.Deps{
		Texts:      s.WhatsApp,
		Owner:      s.Owner,
		Confirmer:  s.Confirmer,
		Classifier: BuildClassifier(cfg, aws, logger),
		Deduper:    BuildDeduper(s.Redis, cfg, logger),
		Metrics:    m,
		Timeout:    cfg.OutboundTimeout,
	}
	if cat, err := BuildCatalog(ctx, cfg, aws); err != nil {
		logger.Warn("services catalog unavailable; info questions get the auto-reply", "error", err)
	} else {
		deps.Catalog = cat
	}
	s.Inbound = inbound.NewRouter(deps, inbound.Messages{
		ConfirmationAck: cfg.ConfirmationAckMessage,
		NoPending:       cfg.NoPendingMessage,
		AutoReply:       cfg.AutoReplyMessage,
	}, logger)

	cal, err := BuildCalendar(ctx, cfg, s.Secrets, logger)
	switch {
	case errors.Is(err, ErrCalendarDisabled):
		logger.Info("google calendar not configured; appointments manager disabled")
	case err != nil:
		logger.Error("google calendar unavailable; appointments manager disabled", "error", err)
	default:
		s.Booking = booking.NewManager(cal, s.Requester, s.Scheduler, s.Store, s.Owner, booking.Config{
			ClinicName: cfg.ClinicName,
			Location:   ClinicLocation(cfg, logger),
			Timeout:    cfg.OutboundTimeout,
		}, logger)
	}
	return s
}

// Close releases pooled connections.
func (s *Services) Close() {
	if s.Redis != nil {
		_ = s.Redis.Close()
	}
}
