package main

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfman30/clinic-booking-assistant/internal/appointments"
	"github.com/wolfman30/clinic-booking-assistant/internal/reminders"
	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
)

func newTestDeps(t *testing.T) (*deps, *reminders.MemoryScheduler) {
	t.Helper()
	store := appointments.NewMemoryStore()
	sched := reminders.NewMemoryScheduler()
	logger := logging.New("error")
	orch := reminders.NewOrchestrator(sched, store, reminders.OrchestratorConfig{}, logger)
	_, err := orch.Schedule(context.Background(), reminders.ScheduleRequest{
		AppointmentID:    "A1",
		PatientPhoneE164: "+593987654321",
		PatientName:      "Ana",
		ApptTimeISO:      "2099-08-12T15:00:00Z",
	})
	require.NoError(t, err)
	return &deps{
		store:        store,
		scheduler:    sched,
		orchestrator: orch,
		confirmer:    reminders.NewConfirmer(store, sched, 0, nil, logger),
		logger:       logger,
	}, sched
}

func run(t *testing.T, d *deps, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(d)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestShowReportsMissingTriggers(t *testing.T) {
	d, sched := newTestDeps(t)
	rec, err := d.store.Get(context.Background(), "A1")
	require.NoError(t, err)
	require.NoError(t, sched.Delete(context.Background(), rec.R2ScheduleName))

	out, err := run(t, d, "show", "A1")
	require.NoError(t, err)
	var got struct {
		EffectiveStatus string        `json:"effective_status"`
		Triggers        []triggerView `json:"triggers"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "scheduled", got.EffectiveStatus)
	require.Len(t, got.Triggers, 3)
	assert.False(t, got.Triggers[0].Missing)
	assert.Contains(t, got.Triggers[0].Expression, "at(")
	assert.True(t, got.Triggers[1].Missing)
}

func TestRescheduleMovesTriggers(t *testing.T) {
	d, sched := newTestDeps(t)
	out, err := run(t, d, "reschedule", "A1", "--at", "2099-08-20T15:00:00Z")
	require.NoError(t, err)
	assert.Contains(t, out, `"r1": "2099-08-19T15:00:00Z"`)

	rec, err := d.store.Get(context.Background(), "A1")
	require.NoError(t, err)
	assert.Equal(t, "2099-08-20T15:00:00Z", rec.ApptTimeISO)
	assert.Len(t, sched.Names(), 3)
}

func TestConfirmAndPurge(t *testing.T) {
	d, sched := newTestDeps(t)

	out, err := run(t, d, "confirm", "+593987654321")
	require.NoError(t, err)
	assert.Contains(t, out, "mark_confirmed")
	assert.Len(t, sched.Names(), 1)

	out, err = run(t, d, "confirm", "+10000000000")
	require.NoError(t, err)
	assert.Contains(t, out, "no pending appointment")

	_, err = run(t, d, "purge-triggers", "A1")
	require.NoError(t, err)
	assert.Empty(t, sched.Names())
}

func TestShowUnknownAppointment(t *testing.T) {
	d, _ := newTestDeps(t)
	_, err := run(t, d, "show", "missing")
	require.ErrorIs(t, err, appointments.ErrNotFound)
}
