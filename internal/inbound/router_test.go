package inbound

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfman30/clinic-booking-assistant/internal/appointments"
	"github.com/wolfman30/clinic-booking-assistant/internal/channels/whatsapp"
	"github.com/wolfman30/clinic-booking-assistant/internal/notify"
	"github.com/wolfman30/clinic-booking-assistant/internal/reminders"
	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
)

type sentText struct {
	to   string
	body string
}

type fakeTexts struct {
	mu   sync.Mutex
	sent []sentText
	err  error
}

func (f *fakeTexts) SendText(_ context.Context, to, body string) (*whatsapp.SendResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentText{to: to, body: body})
	if f.err != nil {
		return nil, f.err
	}
	return &whatsapp.SendResponse{}, nil
}

type fakeOwner struct {
	alerts []notify.Alert
	err    error
}

func (f *fakeOwner) Notify(_ context.Context, alert notify.Alert) error {
	f.alerts = append(f.alerts, alert)
	return f.err
}

type stubAnswerer struct{}

func (stubAnswerer) Answer(question string) string { return "catalog: " + question }

type failingConfirmer struct{}

func (failingConfirmer) Confirm(context.Context, string) (reminders.ConfirmResult, error) {
	return reminders.ConfirmResult{}, errors.New("dynamo down")
}

var testMessages = Messages{
	ConfirmationAck: "confirmada",
	NoPending:       "sin cita",
	AutoReply:       "hola",
}

type harness struct {
	store     *appointments.MemoryStore
	scheduler *reminders.MemoryScheduler
	texts     *fakeTexts
	owner     *fakeOwner
	router    *Router
}

func newHarness(t *testing.T, dedupe Deduper) *harness {
	t.Helper()
	h := &harness{
		store:     appointments.NewMemoryStore(),
		scheduler: reminders.NewMemoryScheduler(),
		texts:     &fakeTexts{},
		owner:     &fakeOwner{},
	}
	confirmer := reminders.NewConfirmer(h.store, h.scheduler, time.Second, nil, logging.Default())
	h.router = NewRouter(Deps{
		Texts:     h.texts,
		Owner:     h.owner,
		Confirmer: confirmer,
		Catalog:   stubAnswerer{},
		Deduper:   dedupe,
	}, testMessages, logging.Default())
	return h
}

func scheduleFuture(t *testing.T, h *harness, id, phone string) reminders.ScheduleResult {
	t.Helper()
	orch := reminders.NewOrchestrator(h.scheduler, h.store, reminders.OrchestratorConfig{}, logging.Default())
	result, err := orch.Schedule(context.Background(), reminders.ScheduleRequest{
		AppointmentID:    id,
		PatientPhoneE164: phone,
		PatientName:      "Ana",
		ApptTimeISO:      "2099-03-10T15:00:00Z",
	})
	require.NoError(t, err)
	return result
}

func TestRouterConfirmsNextAppointment(t *testing.T) {
	h := newHarness(t, nil)
	scheduled := scheduleFuture(t, h, "A1", "+593987654321")

	outcome := h.router.Handle(context.Background(), whatsapp.InboundMessage{
		MessageID: "wamid.1",
		From:      "+593987654321",
		Text:      "SI",
	})
	assert.Equal(t, OutcomeConfirmed, outcome)

	rec, err := h.store.Get(context.Background(), "A1")
	require.NoError(t, err)
	assert.True(t, rec.Confirmed())
	assert.Equal(t, appointments.StatusConfirmed, rec.EffectiveStatus())

	names := h.scheduler.Names()
	assert.Contains(t, names, scheduled.Names.R1)
	assert.NotContains(t, names, scheduled.Names.R2)
	assert.NotContains(t, names, scheduled.Names.Escalation)

	require.Len(t, h.texts.sent, 1)
	assert.Equal(t, "confirmada", h.texts.sent[0].body)

	require.Len(t, h.owner.alerts, 2)
	assert.Equal(t, "mensaje entrante: SI", h.owner.alerts[0].Status)
	assert.Equal(t, "Paciente confirmó", h.owner.alerts[1].Status)
	assert.Equal(t, "2099-03-10T15:00:00Z", h.owner.alerts[1].When)
}

func TestRouterNoPendingAppointment(t *testing.T) {
	h := newHarness(t, nil)

	outcome := h.router.Handle(context.Background(), whatsapp.InboundMessage{MessageID: "m", From: "+1555", Text: "Sí."})
	assert.Equal(t, OutcomeNoPending, outcome)
	require.Len(t, h.texts.sent, 1)
	assert.Equal(t, "sin cita", h.texts.sent[0].body)
	assert.Len(t, h.owner.alerts, 1)
}

func TestRouterConfirmLookupFailureRepliesNoPending(t *testing.T) {
	texts := &fakeTexts{}
	router := NewRouter(Deps{Texts: texts, Owner: &fakeOwner{}, Confirmer: failingConfirmer{}}, testMessages, logging.Default())

	outcome := router.Handle(context.Background(), whatsapp.InboundMessage{From: "+1", Text: "ok"})
	assert.Equal(t, OutcomeNoPending, outcome)
	require.Len(t, texts.sent, 1)
	assert.Equal(t, "sin cita", texts.sent[0].body)
}

func TestRouterInfoQuestionUsesCatalog(t *testing.T) {
	h := newHarness(t, nil)

	outcome := h.router.Handle(context.Background(), whatsapp.InboundMessage{From: "+1", Text: "¿Cuál es el precio?"})
	assert.Equal(t, OutcomeInfo, outcome)
	require.Len(t, h.texts.sent, 1)
	assert.True(t, strings.HasPrefix(h.texts.sent[0].body, "catalog: "))
}

func TestRouterFallsBackToAutoReply(t *testing.T) {
	h := newHarness(t, nil)

	outcome := h.router.Handle(context.Background(), whatsapp.InboundMessage{From: "+1", Text: "quiero agendar"})
	assert.Equal(t, OutcomeAutoReply, outcome)
	require.Len(t, h.texts.sent, 1)
	assert.Equal(t, "hola", h.texts.sent[0].body)
}

func TestRouterOwnerPreviewTruncated(t *testing.T) {
	h := newHarness(t, nil)
	long := strings.Repeat("á", 120)

	h.router.Handle(context.Background(), whatsapp.InboundMessage{From: "+1", Text: long})
	require.NotEmpty(t, h.owner.alerts)
	assert.Equal(t, "mensaje entrante: "+strings.Repeat("á", 80), h.owner.alerts[0].Status)
	assert.Equal(t, "N/A", h.owner.alerts[0].When)
}

func TestRouterSurvivesSendAndNotifyFailures(t *testing.T) {
	h := newHarness(t, nil)
	h.texts.err = errors.New("graph 500")
	h.owner.err = errors.New("template rejected")

	outcome := h.router.Handle(context.Background(), whatsapp.InboundMessage{From: "+1", Text: "hola"})
	assert.Equal(t, OutcomeAutoReply, outcome)
}

func TestRouterDropsDuplicateMessages(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	h := newHarness(t, NewRedisDeduper(client, time.Hour, logging.Default()))
	msg := whatsapp.InboundMessage{MessageID: "wamid.dup", From: "+1", Text: "hola"}

	assert.Equal(t, OutcomeAutoReply, h.router.Handle(context.Background(), msg))
	assert.Equal(t, OutcomeDuplicate, h.router.Handle(context.Background(), msg))
	assert.Len(t, h.texts.sent, 1)
	assert.Len(t, h.owner.alerts, 1)

	ttl := mr.TTL(dedupeKeyPrefix + "wamid.dup")
	assert.Equal(t, time.Hour, ttl)
}

func TestRedisDeduperFailsOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	dedupe := NewRedisDeduper(client, time.Minute, logging.Default())

	mr.Close()
	assert.True(t, dedupe.FirstSeen(context.Background(), "wamid.x"))
	assert.True(t, dedupe.FirstSeen(context.Background(), "wamid.x"))
}

func TestHandleEventRoutesTextMessages(t *testing.T) {
	h := newHarness(t, nil)
	event := whatsapp.WebhookEvent{
		Object: "whatsapp_business_account",
		Entry: []whatsapp.Entry{{
			Changes: []whatsapp.Change{{
				Field: "messages",
				Value: whatsapp.Value{
					Messages: []whatsapp.Message{
						{ID: "m1", From: "15550001", Type: "text", Text: &whatsapp.TextContent{Body: "hola"}},
						{ID: "m2", From: "15550001", Type: "image"},
					},
					Statuses: []whatsapp.Status{{ID: "s1", Status: "delivered", RecipientID: "15550001"}},
				},
			}},
		}},
	}

	outcomes := h.router.HandleEvent(context.Background(), event)
	assert.Equal(t, []Outcome{OutcomeAutoReply}, outcomes)
	require.Len(t, h.texts.sent, 1)
	assert.Equal(t, "+15550001", h.texts.sent[0].to)
}
