package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/wolfman30/clinic-booking-assistant/cmd/mainconfig"
	"github.com/wolfman30/clinic-booking-assistant/internal/app/bootstrap"
	appconfig "github.com/wolfman30/clinic-booking-assistant/internal/config"
	"github.com/wolfman30/clinic-booking-assistant/internal/reminders"
	"github.com/wolfman30/clinic-booking-assistant/internal/secrets"
	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
)

type dispatchHandler struct {
	dispatcher *reminders.Dispatcher
	logger     *logging.Logger
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
	wa := bootstrap.BuildWhatsAppClient(cfg, secrets.NewStore(clients.Secrets))
	owner := bootstrap.BuildOwnerNotifier(cfg, wa, bootstrap.BuildEmailSender(cfg, clients, logger), logger)
	messenger := bootstrap.BuildReminderMessenger(cfg, wa, owner, logger)

	h := &dispatchHandler{
		dispatcher: reminders.NewDispatcher(store, messenger, cfg.OutboundTimeout, nil, logger),
		logger:     logger,
	}
	lambda.Start(h.Handle)
}

// Handle processes one trigger firing. The payload is the trigger's input document.
func (h *dispatchHandler) Handle(ctx context.Context, raw json.RawMessage) (reminders.DispatchResult, error) {
	payload, err := reminders.DecodePayload(raw)
	if err != nil {
		h.logger.Error("invalid reminder payload", "error", err)
		return reminders.DispatchResult{}, err
	}
	return h.dispatcher.Dispatch(ctx, payload)
}
