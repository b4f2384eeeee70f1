package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/wolfman30/clinic-booking-assistant/internal/channels/whatsapp"
	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
)

// TemplateSender sends an approved WhatsApp template.
type TemplateSender interface {
	SendTemplate(ctx context.Context, to, name, lang string, params []whatsapp.Param) (*whatsapp.SendResponse, error)
}

// Alert is the three-field owner notification.
type Alert struct {
	Patient string
	When    string
	Status  string
}

func (a Alert) params() []whatsapp.Param {
	patient := a.Patient
	if patient == "" {
		patient = "desconocido"
	}
	when := a.When
	if when == "" {
		when = "N/A"
	}
	return []whatsapp.Param{
		{Name: "paciente", Value: patient},
		{Name: "fecha_hora", Value: when},
		{Name: "estado", Value: a.Status},
	}
}

// OwnerConfig addresses the clinic owner.
type OwnerConfig struct {
	Phone    string
	Template string
	Language string
	Email    string
}

// OwnerNotifier alerts the clinic owner over WhatsApp, with an optional email copy.
type OwnerNotifier struct {
	templates TemplateSender
	email     EmailSender
	cfg       OwnerConfig
	logger    *logging.Logger
}

func NewOwnerNotifier(templates TemplateSender, email EmailSender, cfg OwnerConfig, logger *logging.Logger) *OwnerNotifier {
	if templates == nil {
		panic("notify: template sender cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.Template == "" {
		cfg.Template = "owner_alert_v2"
	}
	if cfg.Language == "" {
		cfg.Language = "es_EC"
	}
	return &OwnerNotifier{templates: templates, email: email, cfg: cfg, logger: logger}
}

// Notify sends the owner template. The email copy never fails the call.
func (n *OwnerNotifier) Notify(ctx context.Context, alert Alert) error {
	if strings.TrimSpace(n.cfg.Phone) == "" {
		return fmt.Errorf("notify: owner phone not configured")
	}
	if _, err := n.templates.SendTemplate(ctx, n.cfg.Phone, n.cfg.Template, n.cfg.Language, alert.params()); err != nil {
		return fmt.Errorf("notify: owner template: %w", err)
	}
	n.sendEmailCopy(ctx, alert)
	return nil
}

func (n *OwnerNotifier) sendEmailCopy(ctx context.Context, alert Alert) {
	if n.email == nil || n.cfg.Email == "" {
		return
	}
	msg := EmailMessage{
		To:      n.cfg.Email,
		Subject: fmt.Sprintf("[%s] %s", alert.Status, alert.Patient),
		Body:    fmt.Sprintf("Paciente: %s\nFecha/hora: %s\nEstado: %s\n", alert.Patient, alert.When, alert.Status),
	}
	if err := n.email.Send(ctx, msg); err != nil {
		n.logger.Warn("owner email copy failed", "error", err)
	}
}
