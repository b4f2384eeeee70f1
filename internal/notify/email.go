package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
)

const defaultSenderName = "Pelvis Therapy"

// EmailSender delivers the plain-text email copy of an owner alert.
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// EmailMessage is a plain-text email to one recipient.
type EmailMessage struct {
	To      string
	Subject string
	Body    string
}

// SendGridSender delivers owner copies through the SendGrid v3 API.
type SendGridSender struct {
	client    *sendgrid.Client
	fromEmail string
	fromName  string
	logger    *logging.Logger
}

type SendGridConfig struct {
	APIKey    string
	FromEmail string
	FromName  string
}

// NewSendGridSender returns nil when no API key is configured.
func NewSendGridSender(cfg SendGridConfig, logger *logging.Logger) *SendGridSender {
	if cfg.APIKey == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.FromName == "" {
		cfg.FromName = defaultSenderName
	}
	return &SendGridSender{
		client:    sendgrid.NewSendClient(cfg.APIKey),
		fromEmail: cfg.FromEmail,
		fromName:  cfg.FromName,
		logger:    logger,
	}
}

func (s *SendGridSender) Send(ctx context.Context, msg EmailMessage) error {
	if s == nil || s.client == nil {
		return fmt.Errorf("notify: sendgrid client not configured")
	}

	message := mail.NewV3Mail()
	message.SetFrom(mail.NewEmail(s.fromName, s.fromEmail))
	message.Subject = msg.Subject
	personalization := mail.NewPersonalization()
	personalization.AddTos(mail.NewEmail("", msg.To))
	message.AddPersonalizations(personalization)
	message.AddContent(mail.NewContent("text/plain", msg.Body))

	response, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("notify: sendgrid send: %w", err)
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("notify: sendgrid status %d", response.StatusCode)
	}
	s.logger.Debug("owner email sent", "provider", "sendgrid", "to", msg.To, "status", response.StatusCode)
	return nil
}

// StubEmailSender only logs. It stands in when no provider is configured.
type StubEmailSender struct {
	logger *logging.Logger
}

func NewStubEmailSender(logger *logging.Logger) *StubEmailSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &StubEmailSender{logger: logger}
}

func (s *StubEmailSender) Send(_ context.Context, msg EmailMessage) error {
	s.logger.Info("owner email copy skipped", "reason", "no_provider", "subject", msg.Subject)
	return nil
}

// EmailConfig selects and configures the owner email provider.
type EmailConfig struct {
	Provider       string // ses, sendgrid or none
	SESFromEmail   string
	SendGridAPIKey string
	SendGridFrom   string
	SenderName     string
}

// NewEmailSender builds the configured sender. The SES client is only used
// when the provider is "ses". Unknown or unconfigured providers yield the stub.
func NewEmailSender(cfg EmailConfig, ses sesAPI, logger *logging.Logger) EmailSender {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "ses":
		if sender := NewSESSender(ses, SESConfig{FromEmail: cfg.SESFromEmail, FromName: cfg.SenderName}, logger); sender != nil {
			return sender
		}
	case "sendgrid":
		if sender := NewSendGridSender(SendGridConfig{APIKey: cfg.SendGridAPIKey, FromEmail: cfg.SendGridFrom, FromName: cfg.SenderName}, logger); sender != nil {
			return sender
		}
	}
	return NewStubEmailSender(logger)
}
