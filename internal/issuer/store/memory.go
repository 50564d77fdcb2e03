package store

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"credverse/internal/issuer/models"
	"credverse/pkg/platform/sentinel"
)

// InMemoryStore keeps issuers in process memory. Used in tests and when
// postgres is not configured.
type InMemoryStore struct {
	mu      sync.RWMutex
	byID    map[uuid.UUID]*models.Issuer
	idByDID map[string]uuid.UUID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		byID:    make(map[uuid.UUID]*models.Issuer),
		idByDID: make(map[string]uuid.UUID),
	}
}

func (s *InMemoryStore) Create(_ context.Context, issuer *models.Issuer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.idByDID[issuer.DID]; exists {
		return sentinel.ErrConflict
	}
	cp := *issuer
	s.byID[issuer.ID] = &cp
	s.idByDID[issuer.DID] = issuer.ID
	return nil
}

func (s *InMemoryStore) Update(_ context.Context, issuer *models.Issuer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[issuer.ID]; !exists {
		return sentinel.ErrNotFound
	}
	cp := *issuer
	s.byID[issuer.ID] = &cp
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id uuid.UUID) (*models.Issuer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	issuer, exists := s.byID[id]
	if !exists {
		return nil, sentinel.ErrNotFound
	}
	cp := *issuer
	return &cp, nil
}

func (s *InMemoryStore) FindByDID(_ context.Context, did string) (*models.Issuer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, exists := s.idByDID[did]
	if !exists {
		return nil, sentinel.ErrNotFound
	}
	cp := *s.byID[id]
	return &cp, nil
}
