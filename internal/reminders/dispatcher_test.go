package reminders

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfman30/clinic-booking-assistant/internal/appointments"
	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
)

func seedRecord(t *testing.T, store appointments.Store, id, phone, at string, confirmed bool) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.SaveSchedule(ctx, &appointments.Record{
		AppointmentID:    id,
		PatientPhoneE164: phone,
		PatientName:      "Ana",
		ApptTimeISO:      at,
		R1ScheduleName:   "pt-dev-" + id + "-r1",
		R2ScheduleName:   "pt-dev-" + id + "-r2",
		EscScheduleName:  "pt-dev-" + id + "-esc",
	}))
	if confirmed {
		require.NoError(t, store.MarkConfirmed(ctx, id, "2025-08-11T16:00:00Z"))
	}
}

func TestDispatcherConfirmationGate(t *testing.T) {
	tests := []struct {
		action    Action
		confirmed bool
		want      DispatchResult
		sentKind  string
	}{
		{ActionFirst, false, DispatchResult{OutcomeSent, "r1"}, "patient"},
		{ActionFirst, true, DispatchResult{OutcomeSent, "r1"}, "patient"},
		{ActionSecond, false, DispatchResult{OutcomeSent, "r2"}, "patient"},
		{ActionSecond, true, DispatchResult{OutcomeSkipped, ReasonAlreadyConfirmed}, ""},
		{ActionEscalation, false, DispatchResult{OutcomeSent, "owner_alert"}, "owner"},
		{ActionEscalation, true, DispatchResult{OutcomeSkipped, ReasonAlreadyConfirmed}, ""},
	}
	for _, tt := range tests {
		name := string(tt.action)
		if tt.confirmed {
			name += "/confirmed"
		}
		t.Run(name, func(t *testing.T) {
			store := appointments.NewMemoryStore()
			seedRecord(t, store, "abc", "+593991234567", "2025-08-12T15:00:00Z", tt.confirmed)
			messenger := &fakeMessenger{}
			d := NewDispatcher(store, messenger, 0, nil, logging.Default())

			got, err := d.Dispatch(context.Background(), Payload{
				AppointmentID:    "abc",
				PatientPhoneE164: "+593991234567",
				Action:           tt.action,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			if tt.sentKind == "" {
				assert.Empty(t, messenger.sent)
				return
			}
			require.Len(t, messenger.sent, 1)
			assert.Equal(t, tt.sentKind, messenger.sent[0].kind)
			assert.Equal(t, "abc", messenger.sent[0].rec.AppointmentID)
		})
	}
}

func TestDispatcherMissingRecordIsSkipped(t *testing.T) {
	messenger := &fakeMessenger{}
	d := NewDispatcher(appointments.NewMemoryStore(), messenger, 0, nil, nil)

	for _, action := range Actions() {
		got, err := d.Dispatch(context.Background(), Payload{AppointmentID: "gone", PatientPhoneE164: "+1", Action: action})
		require.NoError(t, err)
		assert.Equal(t, DispatchResult{OutcomeSkipped, ReasonNotFound}, got)
	}
	assert.Empty(t, messenger.sent)
}

func TestDispatcherUnknownAction(t *testing.T) {
	store := appointments.NewMemoryStore()
	seedRecord(t, store, "abc", "+1", "2025-08-12T15:00:00Z", false)
	d := NewDispatcher(store, &fakeMessenger{}, 0, nil, nil)

	got, err := d.Dispatch(context.Background(), Payload{AppointmentID: "abc", PatientPhoneE164: "+1", Action: "third"})
	require.NoError(t, err)
	assert.Equal(t, "skipped: unknown_action", got.String())
}

func TestDispatcherLooksUpRecordBeforeAction(t *testing.T) {
	d := NewDispatcher(appointments.NewMemoryStore(), &fakeMessenger{}, 0, nil, nil)

	got, err := d.Dispatch(context.Background(), Payload{AppointmentID: "gone", PatientPhoneE164: "+1", Action: "third"})
	require.NoError(t, err)
	assert.Equal(t, "skipped: not_found", got.String())

	store := &flakyStore{MemoryStore: appointments.NewMemoryStore(), getErr: errors.New("timeout")}
	d = NewDispatcher(store, &fakeMessenger{}, 0, nil, nil)
	_, err = d.Dispatch(context.Background(), Payload{AppointmentID: "abc", PatientPhoneE164: "+1", Action: "third"})
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
}

func TestDispatcherSendFailurePropagates(t *testing.T) {
	store := appointments.NewMemoryStore()
	seedRecord(t, store, "abc", "+1", "2025-08-12T15:00:00Z", false)
	d := NewDispatcher(store, &fakeMessenger{err: errors.New("graph api 500")}, 0, nil, nil)

	got, err := d.Dispatch(context.Background(), Payload{AppointmentID: "abc", PatientPhoneE164: "+1", Action: ActionSecond})
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
	assert.NotEqual(t, OutcomeSent, got.Outcome)
}

func TestDispatcherStoreFailurePropagates(t *testing.T) {
	store := &flakyStore{MemoryStore: appointments.NewMemoryStore(), getErr: errors.New("timeout")}
	d := NewDispatcher(store, &fakeMessenger{}, 0, nil, nil)

	_, err := d.Dispatch(context.Background(), Payload{AppointmentID: "abc", PatientPhoneE164: "+1", Action: ActionFirst})
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
}
