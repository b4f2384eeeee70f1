package appointments

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T, store Store, id, phone, at string) {
	t.Helper()
	require.NoError(t, store.SaveSchedule(context.Background(), &Record{
		AppointmentID:    id,
		PatientPhoneE164: phone,
		ApptTimeISO:      at,
	}))
}

func TestMemoryStore_NextFutureSkipsPast(t *testing.T) {
	store := NewMemoryStore()
	seed(t, store, "past", "+1", "2025-01-01T10:00:00Z")
	seed(t, store, "future", "+1", "2025-03-01T10:00:00Z")

	got, err := NextFutureForPatient(context.Background(), store, "+1", "2025-02-01T00:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, "future", got.AppointmentID)
}

func TestMemoryStore_NextFuturePicksEarliest(t *testing.T) {
	store := NewMemoryStore()
	seed(t, store, "later", "+1", "2025-04-01T10:00:00Z")
	seed(t, store, "sooner", "+1", "2025-03-01T10:00:00Z")
	seed(t, store, "other-patient", "+2", "2025-02-15T10:00:00Z")

	got, err := NextFutureForPatient(context.Background(), store, "+1", "2025-02-01T00:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, "sooner", got.AppointmentID)
}

func TestMemoryStore_NoFutureAppointment(t *testing.T) {
	store := NewMemoryStore()
	seed(t, store, "past", "+1", "2025-01-01T10:00:00Z")

	_, err := NextFutureForPatient(context.Background(), store, "+1", "2025-01-01T10:00:00Z")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestMemoryStore_MarkConfirmedOnce(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	seed(t, store, "abc", "+1", "2025-03-01T10:00:00Z")

	require.NoError(t, store.MarkConfirmed(ctx, "abc", "2025-02-28T10:00:00Z"))
	err := store.MarkConfirmed(ctx, "abc", "2025-02-28T11:00:00Z")
	assert.ErrorIs(t, err, ErrAlreadyConfirmed)

	rec, err := store.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "2025-02-28T10:00:00Z", rec.ConfirmedAt)
	assert.Equal(t, StatusConfirmed, rec.Status)

	assert.ErrorIs(t, store.MarkConfirmed(ctx, "missing", "x"), ErrNotFound)
}

func TestMemoryStore_RescheduleKeepsConfirmation(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	seed(t, store, "abc", "+1", "2025-03-01T10:00:00Z")
	require.NoError(t, store.MarkConfirmed(ctx, "abc", "2025-02-28T10:00:00Z"))

	seed(t, store, "abc", "+1", "2025-03-02T10:00:00Z")
	rec, err := store.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, StatusScheduled, rec.Status)
	assert.Equal(t, StatusConfirmed, rec.EffectiveStatus())
	assert.Equal(t, "2025-03-02T10:00:00Z", rec.GSI1SK)
}

func TestMemoryStore_DeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	seed(t, store, "abc", "+1", "2025-03-01T10:00:00Z")

	require.NoError(t, store.Delete(ctx, "abc"))
	require.NoError(t, store.Delete(ctx, "abc"))
	_, err := store.Get(ctx, "abc")
	assert.ErrorIs(t, err, ErrNotFound)
}
