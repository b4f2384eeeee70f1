// Package inbound routes patient WhatsApp messages to confirmation, service
// info or the auto-reply.
package inbound

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/wolfman30/clinic-booking-assistant/internal/channels/whatsapp"
	"github.com/wolfman30/clinic-booking-assistant/internal/intent"
	"github.com/wolfman30/clinic-booking-assistant/internal/notify"
	"github.com/wolfman30/clinic-booking-assistant/internal/observability/metrics"
	"github.com/wolfman30/clinic-booking-assistant/internal/reminders"
	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("clinic.internal.inbound")

// TextSender sends a free-form WhatsApp message.
type TextSender interface {
	SendText(ctx context.Context, to, body string) (*whatsapp.SendResponse, error)
}

// OwnerNotifier alerts the clinic owner.
type OwnerNotifier interface {
	Notify(ctx context.Context, alert notify.Alert) error
}

// Confirmer confirms a patient's next appointment.
type Confirmer interface {
	Confirm(ctx context.Context, phoneE164 string) (reminders.ConfirmResult, error)
}

// Answerer renders service info replies.
type Answerer interface {
	Answer(question string) string
}

// Messages are the fixed patient-facing replies.
type Messages struct {
	ConfirmationAck string
	NoPending       string
	AutoReply       string
}

// Outcome names what the router did with a message.
type Outcome string

const (
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeConfirmed Outcome = "confirmed"
	OutcomeNoPending Outcome = "no_pending"
	OutcomeInfo      Outcome = "info"
	OutcomeAutoReply Outcome = "auto_reply"
)

const (
	ownerPreviewLen  = 80
	confirmedStatus  = "Paciente confirmó"
	inboundStatusFmt = "mensaje entrante: "
)

// Deps bundles the router collaborators. Deduper, Classifier, Catalog and
// Metrics are optional.
type Deps struct {
	Texts      TextSender
	Owner      OwnerNotifier
	Confirmer  Confirmer
	Classifier intent.Classifier
	Catalog    Answerer
	Deduper    Deduper
	Metrics    *metrics.ReminderMetrics
	Timeout    time.Duration
}

// Router handles inbound text messages.
type Router struct {
	deps     Deps
	messages Messages
	logger   *logging.Logger
}

func NewRouter(deps Deps, messages Messages, logger *logging.Logger) *Router {
	if deps.Texts == nil || deps.Owner == nil || deps.Confirmer == nil {
		panic("inbound: text sender, owner notifier and confirmer are required")
	}
	if deps.Classifier == nil {
		deps.Classifier = intent.KeywordClassifier{}
	}
	if deps.Deduper == nil {
		deps.Deduper = noDedupe{}
	}
	if deps.Timeout <= 0 {
		deps.Timeout = reminders.DefaultCallTimeout
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Router{deps: deps, messages: messages, logger: logger}
}

// HandleEvent processes every text message in a webhook event. Statuses are only logged.
func (r *Router) HandleEvent(ctx context.Context, event whatsapp.WebhookEvent) []Outcome {
	messages, statuses := whatsapp.Extract(event)
	for _, st := range statuses {
		r.logger.Info("whatsapp delivery status", "message_id", st.ID, "status", st.Status, "recipient", st.RecipientID)
		r.deps.Metrics.ObserveInbound("status", st.Status)
	}
	outcomes := make([]Outcome, 0, len(messages))
	for _, msg := range messages {
		outcomes = append(outcomes, r.Handle(ctx, msg))
	}
	return outcomes
}

// Handle routes one message. Every outbound call is best effort and logged.
func (r *Router) Handle(ctx context.Context, msg whatsapp.InboundMessage) Outcome {
	ctx, span := tracer.Start(ctx, "inbound.handle")
	defer span.End()
	span.SetAttributes(attribute.String("clinic.whatsapp.message_id", msg.MessageID))

	if !r.deps.Deduper.FirstSeen(ctx, msg.MessageID) {
		r.logger.Info("duplicate inbound message", "message_id", msg.MessageID)
		r.deps.Metrics.ObserveInbound("text", string(OutcomeDuplicate))
		return OutcomeDuplicate
	}

	r.notifyOwner(ctx, notify.Alert{Patient: msg.From, When: "N/A", Status: inboundStatusFmt + preview(msg.Text, ownerPreviewLen)})

	var outcome Outcome
	if intent.IsAffirmative(msg.Text) {
		outcome = r.confirm(ctx, msg.From)
	} else {
		outcome = r.route(ctx, msg)
	}
	span.SetAttributes(attribute.String("clinic.inbound.outcome", string(outcome)))
	r.deps.Metrics.ObserveInbound("text", string(outcome))
	return outcome
}

func (r *Router) confirm(ctx context.Context, from string) Outcome {
	callCtx, cancel := context.WithTimeout(ctx, r.deps.Timeout)
	result, err := r.deps.Confirmer.Confirm(callCtx, from)
	cancel()
	if err != nil {
		r.logger.Error("confirmation lookup failed", "from", from, "error", err)
	}
	if err != nil || !result.Found {
		r.reply(ctx, from, r.messages.NoPending)
		return OutcomeNoPending
	}
	r.reply(ctx, from, r.messages.ConfirmationAck)
	r.notifyOwner(ctx, notify.Alert{Patient: from, When: result.Record.ApptTimeISO, Status: confirmedStatus})
	return OutcomeConfirmed
}

func (r *Router) route(ctx context.Context, msg whatsapp.InboundMessage) Outcome {
	callCtx, cancel := context.WithTimeout(ctx, r.deps.Timeout)
	kind, err := r.deps.Classifier.Classify(callCtx, msg.Text)
	cancel()
	if err != nil {
		r.logger.Warn("intent classification failed", "error", err)
		kind = intent.Appointments
	}
	if kind == intent.Info && r.deps.Catalog != nil {
		r.reply(ctx, msg.From, r.deps.Catalog.Answer(msg.Text))
		return OutcomeInfo
	}
	r.reply(ctx, msg.From, r.messages.AutoReply)
	return OutcomeAutoReply
}

func (r *Router) reply(ctx context.Context, to, body string) {
	callCtx, cancel := context.WithTimeout(ctx, r.deps.Timeout)
	defer cancel()
	if _, err := r.deps.Texts.SendText(callCtx, to, body); err != nil {
		r.logger.Error("failed to send reply", "to", to, "error", err)
	}
}

func (r *Router) notifyOwner(ctx context.Context, alert notify.Alert) {
	callCtx, cancel := context.WithTimeout(ctx, r.deps.Timeout)
	defer cancel()
	if err := r.deps.Owner.Notify(callCtx, alert); err != nil {
		r.logger.Error("owner notification failed", "status", alert.Status, "error", err)
	}
}

func preview(text string, max int) string {
	if utf8.RuneCountInString(text) <= max {
		return text
	}
	return string([]rune(text)[:max])
}
