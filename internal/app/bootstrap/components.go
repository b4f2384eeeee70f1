package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wolfman30/clinic-booking-assistant/internal/appointments"
	"github.com/wolfman30/clinic-booking-assistant/internal/calendar"
	"github.com/wolfman30/clinic-booking-assistant/internal/catalog"
	"github.com/wolfman30/clinic-booking-assistant/internal/channels/whatsapp"
	appconfig "github.com/wolfman30/clinic-booking-assistant/internal/config"
	"github.com/wolfman30/clinic-booking-assistant/internal/intent"
	"github.com/wolfman30/clinic-booking-assistant/internal/notify"
	"github.com/wolfman30/clinic-booking-assistant/internal/observability/metrics"
	"github.com/wolfman30/clinic-booking-assistant/internal/reminders"
	"github.com/wolfman30/clinic-booking-assistant/internal/secrets"
	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
)

// Scheduler is a trigger scheduler that can also read triggers back.
type Scheduler interface {
	reminders.TriggerScheduler
	reminders.TriggerReader
}

// ClinicLocation resolves the clinic timezone, falling back to UTC.
func ClinicLocation(cfg *appconfig.Config, logger *logging.Logger) *time.Location {
	loc, err := time.LoadLocation(cfg.ClinicTimezone)
	if err != nil {
		if logger != nil {
			logger.Warn("unknown clinic timezone; using UTC", "tz", cfg.ClinicTimezone, "error", err)
		}
		return time.UTC
	}
	return loc
}

func BuildStore(cfg *appconfig.Config, aws *AWSClients, logger *logging.Logger) appointments.Store {
	if cfg.UseMemoryBackends {
		logger.Info("using in-memory appointment store")
		return appointments.NewMemoryStore()
	}
	return appointments.NewDynamoStore(aws.Dynamo, cfg.AppointmentsTable, cfg.PatientIndexName, logger)
}

func BuildScheduler(cfg *appconfig.Config, aws *AWSClients, logger *logging.Logger) Scheduler {
	if cfg.UseMemoryBackends {
		logger.Info("using in-memory trigger scheduler")
		return reminders.NewMemoryScheduler()
	}
	return reminders.NewEventBridgeScheduler(aws.Scheduler, reminders.EventBridgeConfig{
		TargetARN: cfg.ReminderDispatcherARN,
		RoleARN:   cfg.SchedulerRoleARN,
		GroupName: cfg.SchedulerGroup,
	}, logger)
}

func BuildOrchestrator(cfg *appconfig.Config, sched reminders.TriggerScheduler, store appointments.Store, m *metrics.ReminderMetrics, logger *logging.Logger) *reminders.Orchestrator {
	return reminders.NewOrchestrator(sched, store, reminders.OrchestratorConfig{
		Namer:       reminders.Namer{Prefix: cfg.TriggerPrefix, Stage: cfg.Stage},
		FastMode:    cfg.FastMode,
		CallTimeout: cfg.OutboundTimeout,
		Metrics:     m,
	}, logger)
}

// BuildRequester picks how booking hands schedule requests to the orchestrator:
// SQS queue, async Lambda invoke, or in-process.
func BuildRequester(cfg *appconfig.Config, aws *AWSClients, orchestrator *reminders.Orchestrator) reminders.Requester {
	switch {
	case strings.TrimSpace(cfg.ScheduleRequestQueueURL) != "":
		return reminders.NewSQSRequester(aws.SQS, cfg.ScheduleRequestQueueURL)
	case strings.TrimSpace(cfg.ReminderSchedulerName) != "":
		return reminders.NewLambdaRequester(aws.Lambda, cfg.ReminderSchedulerName)
	default:
		return reminders.NewDirectRequester(orchestrator)
	}
}

// BuildWhatsAppClient uses env credentials when present, otherwise the Secrets Manager document.
func BuildWhatsAppClient(cfg *appconfig.Config, secretStore *secrets.Store) *whatsapp.Client {
	var creds whatsapp.CredentialsProvider
	if cfg.WhatsAppAccessToken != "" && cfg.WhatsAppPhoneNumberID != "" {
		creds = whatsapp.StaticCredentials{AccessToken: cfg.WhatsAppAccessToken, PhoneNumberID: cfg.WhatsAppPhoneNumberID}
	} else {
		creds = whatsapp.NewSecretCredentials(secretStore, cfg.WhatsAppSecretName)
	}
	client := whatsapp.NewClient(creds)
	client.SetGraphAPIBase(cfg.GraphAPIBase)
	client.SetTimeout(cfg.OutboundTimeout)
	return client
}

func BuildEmailSender(cfg *appconfig.Config, aws *AWSClients, logger *logging.Logger) notify.EmailSender {
	emailCfg := notify.EmailConfig{
		Provider:       cfg.EmailProvider,
		SESFromEmail:   cfg.SESFromEmail,
		SendGridAPIKey: cfg.SendGridAPIKey,
		SendGridFrom:   cfg.SendGridFromEmail,
		SenderName:     cfg.SenderName,
	}
	if cfg.EmailProvider == "ses" && aws != nil && aws.SES != nil {
		return notify.NewEmailSender(emailCfg, aws.SES, logger)
	}
	return notify.NewEmailSender(emailCfg, nil, logger)
}

func BuildOwnerNotifier(cfg *appconfig.Config, templates notify.TemplateSender, email notify.EmailSender, logger *logging.Logger) *notify.OwnerNotifier {
	return notify.NewOwnerNotifier(templates, email, notify.OwnerConfig{
		Phone:    cfg.OwnerPhone,
		Template: cfg.OwnerTemplate,
		Language: cfg.TemplateLanguage,
		Email:    cfg.OwnerEmail,
	}, logger)
}

func BuildReminderMessenger(cfg *appconfig.Config, templates notify.TemplateSender, owner *notify.OwnerNotifier, logger *logging.Logger) *notify.ReminderMessenger {
	return notify.NewReminderMessenger(templates, owner, notify.ReminderTemplates{
		First:    cfg.FirstReminderTemplate,
		Second:   cfg.SecondReminderTemplate,
		Language: cfg.TemplateLanguage,
	}, ClinicLocation(cfg, logger), logger)
}

// BuildClassifier uses Bedrock when a model id is configured.
func BuildClassifier(cfg *appconfig.Config, aws *AWSClients, logger *logging.Logger) intent.Classifier {
	model := strings.TrimSpace(cfg.BedrockModelID)
	if model == "" || aws == nil || aws.Bedrock == nil {
		return intent.KeywordClassifier{}
	}
	logger.Info("bedrock intent classifier enabled", "model", model)
	return intent.NewBedrockClassifier(aws.Bedrock, model, logger)
}

// BuildCatalog loads the services catalog from S3 when a bucket is set, else from disk.
func BuildCatalog(ctx context.Context, cfg *appconfig.Config, aws *AWSClients) (*catalog.Catalog, error) {
	if cfg.ServicesCatalogBucket != "" && aws != nil && aws.S3 != nil {
		return catalog.LoadS3(ctx, aws.S3, cfg.ServicesCatalogBucket, cfg.ServicesCatalogKey)
	}
	return catalog.LoadFile(cfg.ServicesCatalogPath)
}

var ErrCalendarDisabled = errors.New("bootstrap: google calendar not configured")

// BuildCalendar reads the service-account key from Secrets Manager.
func BuildCalendar(ctx context.Context, cfg *appconfig.Config, secretStore *secrets.Store, logger *logging.Logger) (*calendar.GoogleCalendar, error) {
	if strings.TrimSpace(cfg.GoogleCalendarID) == "" {
		return nil, ErrCalendarDisabled
	}
	key, err := secretStore.String(ctx, cfg.GoogleCalendarSecretName)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: load calendar credentials: %w", err)
	}
	return calendar.NewFromServiceAccount(ctx, []byte(key), cfg.GoogleCalendarID, ClinicLocation(cfg, logger), logger)
}
