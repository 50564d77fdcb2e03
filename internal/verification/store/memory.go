package store

import (
	"context"
	"sync"

	"credverse/internal/verification/models"
)

// InMemoryStore keeps verification records in process memory.
type InMemoryStore struct {
	mu      sync.RWMutex
	records []models.Record
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(_ context.Context, record models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
	return nil
}

func (s *InMemoryStore) ListByCredential(_ context.Context, credentialID string) ([]models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Record
	for _, r := range s.records {
		if r.CredentialID == credentialID {
			out = append(out, r)
		}
	}
	return out, nil
}

// CountByVerifier returns how many records a verifier has produced.
// Feeds the velocity risk check.
func (s *InMemoryStore) CountByVerifier(_ context.Context, verifierID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, r := range s.records {
		if r.VerifierID == verifierID {
			count++
		}
	}
	return count, nil
}
