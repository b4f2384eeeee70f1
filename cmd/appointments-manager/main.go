package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/wolfman30/clinic-booking-assistant/cmd/mainconfig"
	"github.com/wolfman30/clinic-booking-assistant/internal/app/bootstrap"
	"github.com/wolfman30/clinic-booking-assistant/internal/booking"
	appconfig "github.com/wolfman30/clinic-booking-assistant/internal/config"
	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
)

type commandHandler interface {
	Handle(ctx context.Context, cmd booking.Command) (booking.Result, error)
}

func main() {
	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)

	ctx := context.Background()
	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}
	services := bootstrap.BuildServices(ctx, cfg, bootstrap.NewAWSClients(awsCfg), nil, logger)
	if services.Booking == nil {
		logger.Error("appointments manager requires GCAL_CALENDAR_ID and calendar credentials")
		os.Exit(1)
	}

	lambda.Start(func(ctx context.Context, raw json.RawMessage) (booking.Result, error) {
		return handle(ctx, services.Booking, raw, logger)
	})
}

func handle(ctx context.Context, manager commandHandler, raw json.RawMessage, logger *logging.Logger) (booking.Result, error) {
	var cmd booking.Command
	if err := json.Unmarshal(raw, &cmd); err != nil {
		logger.Error("invalid appointments command", "error", err)
		return booking.Result{OK: false, Error: "invalid_payload"}, nil
	}
	logger.Info("appointments command received", "action", cmd.Action, "appointment_id", cmd.AppointmentID, "event_id", cmd.EventID)
	result, err := manager.Handle(ctx, cmd)
	if errors.Is(err, booking.ErrInvalidCommand) {
		logger.Warn("rejected appointments command", "action", cmd.Action, "error", err)
		return booking.Result{OK: false, Error: "invalid_command"}, nil
	}
	return result, err
}
