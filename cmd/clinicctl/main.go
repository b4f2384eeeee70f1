// Command clinicctl repairs appointments whose reminder orchestration failed part way.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/wolfman30/clinic-booking-assistant/cmd/mainconfig"
	"github.com/wolfman30/clinic-booking-assistant/internal/app/bootstrap"
	"github.com/wolfman30/clinic-booking-assistant/internal/appointments"
	appconfig "github.com/wolfman30/clinic-booking-assistant/internal/config"
	"github.com/wolfman30/clinic-booking-assistant/internal/reminders"
	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
)

// deps are the collaborators the subcommands operate on.
type deps struct {
	store        appointments.Store
	scheduler    bootstrap.Scheduler
	orchestrator *reminders.Orchestrator
	confirmer    *reminders.Confirmer
	timeout      time.Duration
	logger       *logging.Logger
}

func main() {
	if err := newRootCmd(nil).Execute(); err != nil {
		os.Exit(1)
	}
}

func loadDeps(ctx context.Context) (*deps, error) {
	_ = godotenv.Load()
	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	clients := bootstrap.NewAWSClients(awsCfg)
	store := bootstrap.BuildStore(cfg, clients, logger)
	sched := bootstrap.BuildScheduler(cfg, clients, logger)
	return &deps{
		store:        store,
		scheduler:    sched,
		orchestrator: bootstrap.BuildOrchestrator(cfg, sched, store, nil, logger),
		confirmer:    reminders.NewConfirmer(store, sched, cfg.OutboundTimeout, nil, logger),
		timeout:      cfg.OutboundTimeout,
		logger:       logger,
	}, nil
}

// newRootCmd builds the command tree. A nil d is loaded from the environment on first use.
func newRootCmd(d *deps) *cobra.Command {
	root := &cobra.Command{
		Use:          "clinicctl",
		Short:        "Inspect and repair appointment reminders",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if d != nil {
				return nil
			}
			loaded, err := loadDeps(cmd.Context())
			if err != nil {
				return err
			}
			d = loaded
			return nil
		},
	}
	get := func() *deps { return d }
	root.AddCommand(
		newShowCmd(get),
		newRescheduleCmd(get),
		newConfirmCmd(get),
		newPurgeCmd(get),
	)
	return root
}

type triggerView struct {
	Name       string `json:"name"`
	Expression string `json:"expression,omitempty"`
	Missing    bool   `json:"missing,omitempty"`
	Error      string `json:"error,omitempty"`
}

func newShowCmd(get func() *deps) *cobra.Command {
	return &cobra.Command{
		Use:   "show <appointment-id>",
		Short: "Print an appointment record and the state of its triggers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d := get()
			rec, err := d.store.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			var triggers []triggerView
			for _, name := range rec.ScheduleNames() {
				view := triggerView{Name: name}
				info, err := d.scheduler.Get(cmd.Context(), name)
				switch {
				case err == nil:
					view.Expression = info.Expression
				case isNotFound(err):
					view.Missing = true
				default:
					view.Error = err.Error()
				}
				triggers = append(triggers, view)
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"record":           rec,
				"effective_status": rec.EffectiveStatus(),
				"triggers":         triggers,
			})
		},
	}
}

func newRescheduleCmd(get func() *deps) *cobra.Command {
	var at string
	cmd := &cobra.Command{
		Use:   "reschedule <appointment-id>",
		Short: "Re-run reminder scheduling for an appointment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d := get()
			rec, err := d.store.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			when := rec.ApptTimeISO
			if at != "" {
				when = at
			}
			result, err := d.orchestrator.Schedule(cmd.Context(), reminders.ScheduleRequest{
				AppointmentID:    rec.AppointmentID,
				PatientPhoneE164: rec.PatientPhoneE164,
				PatientName:      rec.PatientName,
				ApptTimeISO:      when,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "new appointment time (RFC3339); defaults to the stored time")
	return cmd
}

func newConfirmCmd(get func() *deps) *cobra.Command {
	return &cobra.Command{
		Use:   "confirm <patient-phone-e164>",
		Short: "Confirm a patient's next appointment as if they replied SI",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := get().confirmer.Confirm(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !result.Found {
				fmt.Fprintln(cmd.OutOrStdout(), "no pending appointment")
				return nil
			}
			return printJSON(cmd.OutOrStdout(), result.Steps)
		},
	}
}

func newPurgeCmd(get func() *deps) *cobra.Command {
	return &cobra.Command{
		Use:   "purge-triggers <appointment-id>",
		Short: "Delete all reminder triggers of an appointment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d := get()
			rec, err := d.store.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			steps := reminders.CancelTriggers(cmd.Context(), d.scheduler, *rec, d.timeout, d.logger)
			return printJSON(cmd.OutOrStdout(), steps)
		},
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, reminders.ErrTriggerNotFound)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
