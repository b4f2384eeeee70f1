package bootstrap

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfman30/clinic-booking-assistant/internal/appointments"
	appconfig "github.com/wolfman30/clinic-booking-assistant/internal/config"
	"github.com/wolfman30/clinic-booking-assistant/internal/intent"
	"github.com/wolfman30/clinic-booking-assistant/internal/notify"
	"github.com/wolfman30/clinic-booking-assistant/internal/reminders"
	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
)

func testClients() *AWSClients {
	return NewAWSClients(aws.Config{Region: "us-east-1"})
}

func TestBuildRedisClientDisabled(t *testing.T) {
	assert.Nil(t, BuildRedisClient(context.Background(), &appconfig.Config{}, logging.New("error"), true))
}

func TestBuildRedisClientVerifies(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := &appconfig.Config{RedisAddr: mr.Addr(), DedupeTTL: time.Hour}
	client := BuildRedisClient(context.Background(), cfg, logging.New("error"), true)
	require.NotNil(t, client)
	t.Cleanup(func() { _ = client.Close() })
	assert.NotNil(t, BuildDeduper(client, cfg, logging.New("error")))

	mr.Close()
	assert.Nil(t, BuildRedisClient(context.Background(), cfg, logging.New("error"), true))
}

func TestBuildMemoryBackends(t *testing.T) {
	cfg := &appconfig.Config{UseMemoryBackends: true}
	logger := logging.New("error")
	_, isMemStore := BuildStore(cfg, testClients(), logger).(*appointments.MemoryStore)
	assert.True(t, isMemStore)
	_, isMemSched := BuildScheduler(cfg, testClients(), logger).(*reminders.MemoryScheduler)
	assert.True(t, isMemSched)
}

func TestBuildAWSBackends(t *testing.T) {
	cfg := &appconfig.Config{AppointmentsTable: "appointments", PatientIndexName: "gsi1"}
	logger := logging.New("error")
	_, isDynamo := BuildStore(cfg, testClients(), logger).(*appointments.DynamoStore)
	assert.True(t, isDynamo)
	_, isEventBridge := BuildScheduler(cfg, testClients(), logger).(*reminders.EventBridgeScheduler)
	assert.True(t, isEventBridge)
}

func TestBuildRequesterSelection(t *testing.T) {
	logger := logging.New("error")
	cfg := &appconfig.Config{UseMemoryBackends: true}
	orch := BuildOrchestrator(cfg, reminders.NewMemoryScheduler(), appointments.NewMemoryStore(), nil, logger)

	_, direct := BuildRequester(cfg, testClients(), orch).(*reminders.DirectRequester)
	assert.True(t, direct)

	cfg.ReminderSchedulerName = "pt-dev-reminder-scheduler"
	_, viaLambda := BuildRequester(cfg, testClients(), orch).(*reminders.LambdaRequester)
	assert.True(t, viaLambda)

	cfg.ScheduleRequestQueueURL = "https://sqs.us-east-1.amazonaws.com/123/schedule"
	_, viaSQS := BuildRequester(cfg, testClients(), orch).(*reminders.SQSRequester)
	assert.True(t, viaSQS)
}

func TestBuildClassifierFallsBackToKeywords(t *testing.T) {
	logger := logging.New("error")
	_, keyword := BuildClassifier(&appconfig.Config{}, testClients(), logger).(intent.KeywordClassifier)
	assert.True(t, keyword)

	_, bedrock := BuildClassifier(&appconfig.Config{BedrockModelID: "anthropic.claude-3-haiku"}, testClients(), logger).(*intent.BedrockClassifier)
	assert.True(t, bedrock)
}

func TestBuildEmailSenderNone(t *testing.T) {
	sender := BuildEmailSender(&appconfig.Config{EmailProvider: "none"}, testClients(), logging.New("error"))
	_, stub := sender.(*notify.StubEmailSender)
	assert.True(t, stub)
}

func TestClinicLocationFallback(t *testing.T) {
	assert.Equal(t, time.UTC, ClinicLocation(&appconfig.Config{ClinicTimezone: "Mars/Olympus"}, nil))
	assert.Equal(t, "America/Guayaquil", ClinicLocation(&appconfig.Config{ClinicTimezone: "America/Guayaquil"}, nil).String())
}

func TestBuildCalendarDisabled(t *testing.T) {
	_, err := BuildCalendar(context.Background(), &appconfig.Config{}, nil, logging.New("error"))
	assert.ErrorIs(t, err, ErrCalendarDisabled)
}
