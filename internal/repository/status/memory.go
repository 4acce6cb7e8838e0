package status

import (
	"context"
	"sync"
	"time"

	"github.com/aliskhannn/media-uniquer/internal/model"
)

type memoryEntry struct {
	status    model.Status
	updatedAt time.Time
}

// MemoryStore keeps records in process memory. Records do not survive a restart.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (s *MemoryStore) Put(_ context.Context, id string, st model.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[id] = memoryEntry{status: st, updatedAt: s.now()}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (model.Status, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[id]
	if !ok {
		return model.Status{}, ErrStatusNotFound
	}
	return e.status, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[id]; !ok {
		return ErrStatusNotFound
	}
	delete(s.entries, id)
	return nil
}

func (s *MemoryStore) Expire(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, e := range s.entries {
		if e.updatedAt.Before(cutoff) {
			delete(s.entries, id)
			removed++
		}
	}
	return removed, nil
}

func (s *MemoryStore) Close() error { return nil }
