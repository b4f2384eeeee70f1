package reminders

import (
	"context"
	"errors"
	"sync"

	"github.com/wolfman30/clinic-booking-assistant/internal/appointments"
)

type sentMessage struct {
	kind   string
	action Action
	rec    appointments.Record
}

type fakeMessenger struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (m *fakeMessenger) SendReminder(_ context.Context, rec appointments.Record, action Action) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMessage{kind: "patient", action: action, rec: rec})
	return nil
}

func (m *fakeMessenger) AlertOwnerUnconfirmed(_ context.Context, rec appointments.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMessage{kind: "owner", action: ActionEscalation, rec: rec})
	return nil
}

// flakyStore wraps a MemoryStore and fails selected operations.
type flakyStore struct {
	*appointments.MemoryStore
	saveErr    error
	confirmErr error
	queryErr   error
	getErr     error
}

func (s *flakyStore) Get(ctx context.Context, id string) (*appointments.Record, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.MemoryStore.Get(ctx, id)
}

func (s *flakyStore) SaveSchedule(ctx context.Context, rec *appointments.Record) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	return s.MemoryStore.SaveSchedule(ctx, rec)
}

func (s *flakyStore) MarkConfirmed(ctx context.Context, id, at string) error {
	if s.confirmErr != nil {
		return s.confirmErr
	}
	return s.MemoryStore.MarkConfirmed(ctx, id, at)
}

func (s *flakyStore) QueryByPatient(ctx context.Context, phone, after string, limit int) ([]appointments.Record, error) {
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	return s.MemoryStore.QueryByPatient(ctx, phone, after, limit)
}

// flakyScheduler wraps a MemoryScheduler and fails deletes or upserts for chosen names.
type flakyScheduler struct {
	*MemoryScheduler
	failUpsert map[string]bool
	failDelete map[string]bool
	deleted    []string
}

func (s *flakyScheduler) Upsert(ctx context.Context, trigger Trigger) error {
	if s.failUpsert[trigger.Name] {
		return errors.New("scheduler unavailable")
	}
	return s.MemoryScheduler.Upsert(ctx, trigger)
}

func (s *flakyScheduler) Delete(ctx context.Context, name string) error {
	s.deleted = append(s.deleted, name)
	if s.failDelete[name] {
		return errors.New("scheduler unavailable")
	}
	return s.MemoryScheduler.Delete(ctx, name)
}
