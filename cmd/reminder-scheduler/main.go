package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/wolfman30/clinic-booking-assistant/cmd/mainconfig"
	"github.com/wolfman30/clinic-booking-assistant/internal/app/bootstrap"
	appconfig "github.com/wolfman30/clinic-booking-assistant/internal/config"
	"github.com/wolfman30/clinic-booking-assistant/internal/reminders"
	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
)

type scheduleHandler struct {
	orchestrator *reminders.Orchestrator
	logger       *logging.Logger
}

func main() {
	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)

	awsCfg, err := mainconfig.LoadAWSConfig(context.Background(), cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}
	clients := bootstrap.NewAWSClients(awsCfg)
	store := bootstrap.BuildStore(cfg, clients, logger)
	sched := bootstrap.BuildScheduler(cfg, clients, logger)

	h := &scheduleHandler{
		orchestrator: bootstrap.BuildOrchestrator(cfg, sched, store, nil, logger),
		logger:       logger,
	}
	lambda.Start(h.Handle)
}

// Handle accepts either a direct schedule request or an SQS batch of them.
func (h *scheduleHandler) Handle(ctx context.Context, raw json.RawMessage) (any, error) {
	var envelope struct {
		Records []json.RawMessage `json:"Records"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && len(envelope.Records) > 0 {
		var batch events.SQSEvent
		if err := json.Unmarshal(raw, &batch); err != nil {
			return nil, fmt.Errorf("decode sqs event: %w", err)
		}
		return h.handleBatch(ctx, batch), nil
	}

	req, err := reminders.DecodeScheduleRequest(raw)
	if err != nil {
		h.logger.Error("invalid schedule request", "error", err)
		return nil, err
	}
	return h.orchestrator.Schedule(ctx, req)
}

// handleBatch reports failed messages individually so only they are redelivered.
func (h *scheduleHandler) handleBatch(ctx context.Context, batch events.SQSEvent) events.SQSEventResponse {
	var resp events.SQSEventResponse
	for _, msg := range batch.Records {
		req, err := reminders.DecodeScheduleRequest([]byte(msg.Body))
		if err != nil {
			h.logger.Error("dropping invalid schedule request", "message_id", msg.MessageId, "error", err)
			continue
		}
		if _, err := h.orchestrator.Schedule(ctx, req); err != nil {
			h.logger.Error("schedule request failed", "message_id", msg.MessageId, "appointment_id", req.AppointmentID, "error", err)
			resp.BatchItemFailures = append(resp.BatchItemFailures, events.SQSBatchItemFailure{ItemIdentifier: msg.MessageId})
		}
	}
	return resp
}
