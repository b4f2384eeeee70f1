package reminders

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
)

// MemoryScheduler keeps triggers in process. Used by the local server and tests.
type MemoryScheduler struct {
	mu       sync.Mutex
	triggers map[string]Trigger
}

var (
	_ TriggerScheduler = (*MemoryScheduler)(nil)
	_ TriggerReader    = (*MemoryScheduler)(nil)
)

func NewMemoryScheduler() *MemoryScheduler {
	return &MemoryScheduler{triggers: make(map[string]Trigger)}
}

func (s *MemoryScheduler) Upsert(_ context.Context, trigger Trigger) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.triggers[trigger.Name] = trigger
	return nil
}

func (s *MemoryScheduler) Delete(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.triggers, name)
	return nil
}

func (s *MemoryScheduler) Get(_ context.Context, name string) (*TriggerInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	trigger, ok := s.triggers[name]
	if !ok {
		return nil, ErrTriggerNotFound
	}
	input, _ := json.Marshal(trigger.Payload)
	return &TriggerInfo{
		Name:       trigger.Name,
		Expression: atExpression(trigger.At),
		Input:      string(input),
	}, nil
}

// Trigger returns a stored trigger by name.
func (s *MemoryScheduler) Trigger(name string) (Trigger, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	trigger, ok := s.triggers[name]
	return trigger, ok
}

// Names lists stored trigger names in sorted order.
func (s *MemoryScheduler) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.triggers))
	for name := range s.triggers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
