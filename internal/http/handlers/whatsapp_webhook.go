package handlers

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/wolfman30/clinic-booking-assistant/internal/channels/whatsapp"
	"github.com/wolfman30/clinic-booking-assistant/internal/inbound"
	"github.com/wolfman30/clinic-booking-assistant/internal/observability/metrics"
	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const maxWebhookBody = 1 << 20

var tracer = otel.Tracer("clinic.internal.http.handlers")

// EventRouter consumes parsed WhatsApp webhook events.
type EventRouter interface {
	HandleEvent(ctx context.Context, event whatsapp.WebhookEvent) []inbound.Outcome
}

// WhatsAppWebhookHandler serves the Meta verification handshake and inbound deliveries.
type WhatsAppWebhookHandler struct {
	verifyToken string
	appSecret   string
	router      EventRouter
	metrics     *metrics.ReminderMetrics
	logger      *logging.Logger
}

func NewWhatsAppWebhookHandler(verifyToken, appSecret string, router EventRouter, m *metrics.ReminderMetrics, logger *logging.Logger) *WhatsAppWebhookHandler {
	if router == nil {
		panic("handlers: whatsapp event router cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &WhatsAppWebhookHandler{
		verifyToken: verifyToken,
		appSecret:   strings.TrimSpace(appSecret),
		router:      router,
		metrics:     m,
		logger:      logger,
	}
}

// Challenge answers the GET handshake: 200 with the challenge, or 403.
func (h *WhatsAppWebhookHandler) Challenge(query url.Values) (int, string) {
	challenge, ok := whatsapp.VerifyChallenge(query, h.verifyToken)
	if !ok {
		h.logger.Warn("whatsapp webhook verification rejected", "mode", query.Get("hub.mode"))
		return http.StatusForbidden, "forbidden"
	}
	return http.StatusOK, challenge
}

// Process handles a POST body. Only a bad signature is rejected; every other
// outcome is acknowledged so Meta does not redeliver.
func (h *WhatsAppWebhookHandler) Process(ctx context.Context, body []byte, signature string) int {
	ctx, span := tracer.Start(ctx, "whatsapp.webhook")
	defer span.End()
	start := time.Now()
	defer func() {
		h.metrics.ObserveWebhookLatency("whatsapp", time.Since(start).Seconds())
	}()

	if h.appSecret != "" && !whatsapp.VerifySignature(h.appSecret, body, signature) {
		h.logger.Warn("invalid whatsapp webhook signature")
		h.metrics.ObserveInbound("webhook", "invalid_signature")
		return http.StatusUnauthorized
	}

	event, err := whatsapp.ParseWebhook(body)
	if err != nil {
		h.logger.Error("failed to parse whatsapp webhook", "error", err)
		h.metrics.ObserveInbound("webhook", "invalid_payload")
		span.RecordError(err)
		return http.StatusOK
	}
	outcomes := h.router.HandleEvent(ctx, event)
	span.SetAttributes(attribute.Int("clinic.whatsapp.messages", len(outcomes)))
	return http.StatusOK
}

func (h *WhatsAppWebhookHandler) Verify(w http.ResponseWriter, r *http.Request) {
	status, body := h.Challenge(r.URL.Query())
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func (h *WhatsAppWebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		h.logger.Error("failed to read whatsapp webhook body", "error", err)
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
		return
	}
	status := h.Process(r.Context(), body, r.Header.Get(whatsapp.SignatureHeader))
	if status != http.StatusOK {
		http.Error(w, "invalid signature", status)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
