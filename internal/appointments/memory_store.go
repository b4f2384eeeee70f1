package appointments

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-process Store used by the local server and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

func (s *MemoryStore) Get(_ context.Context, appointmentID string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[appointmentID]
	if !ok {
		return nil, ErrNotFound
	}
	return &rec, nil
}

func (s *MemoryStore) SaveSchedule(_ context.Context, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := *rec
	next.withKeys()
	next.Status = StatusScheduled
	if existing, ok := s.records[rec.AppointmentID]; ok {
		next.ConfirmedAt = existing.ConfirmedAt
	}
	s.records[rec.AppointmentID] = next
	return nil
}

func (s *MemoryStore) MarkConfirmed(_ context.Context, appointmentID, confirmedAt string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[appointmentID]
	if !ok {
		return ErrNotFound
	}
	if rec.Confirmed() {
		return ErrAlreadyConfirmed
	}
	rec.ConfirmedAt = confirmedAt
	rec.Status = StatusConfirmed
	s.records[appointmentID] = rec
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, appointmentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, appointmentID)
	return nil
}

func (s *MemoryStore) QueryByPatient(_ context.Context, phoneE164, after string, limit int) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Record
	for _, rec := range s.records {
		if rec.PatientPhoneE164 == phoneE164 && rec.ApptTimeISO > after {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ApptTimeISO < out[j].ApptTimeISO })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
