package share

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is the fallback share store when redis is not configured.
// Same shape as the redis store, not durable.
type MemoryStore struct {
	mu     sync.Mutex
	shares map[string]memoryEntry
	now    func() time.Time
}

type memoryEntry struct {
	share     Share
	expiresAt time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		shares: make(map[string]memoryEntry),
		now:    time.Now,
	}
}

// SetClock overrides the time source, used by expiry tests.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *MemoryStore) Set(_ context.Context, share Share) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shares[share.ID] = memoryEntry{share: share, expiresAt: s.now().Add(TTL)}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Share, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.shares[id]
	if !ok || s.now().After(entry.expiresAt) {
		delete(s.shares, id)
		return nil, errShareGone
	}
	cp := entry.share
	return &cp, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.shares[id]; !ok {
		return errShareGone
	}
	delete(s.shares, id)
	return nil
}

func (s *MemoryStore) TTL(_ context.Context, id string) (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.shares[id]
	if !ok {
		return 0, errShareGone
	}
	remaining := entry.expiresAt.Sub(s.now())
	if remaining <= 0 {
		delete(s.shares, id)
		return 0, errShareGone
	}
	return remaining, nil
}
