package store

import (
	"context"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"credverse/internal/credential/models"
	"credverse/pkg/platform/sentinel"
)

// InMemoryStore keeps credentials in process memory.
type InMemoryStore struct {
	mu     sync.RWMutex
	byID   map[uuid.UUID]*models.Credential
	byHash map[common.Hash]uuid.UUID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		byID:   make(map[uuid.UUID]*models.Credential),
		byHash: make(map[common.Hash]uuid.UUID),
	}
}

func (s *InMemoryStore) Create(_ context.Context, cred *models.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[cred.ID]; exists {
		return sentinel.ErrConflict
	}
	if _, exists := s.byHash[cred.ContentHash]; exists {
		return sentinel.ErrConflict
	}
	cp := clone(cred)
	s.byID[cred.ID] = cp
	s.byHash[cred.ContentHash] = cred.ID
	return nil
}

func (s *InMemoryStore) Update(_ context.Context, cred *models.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[cred.ID]; !exists {
		return sentinel.ErrNotFound
	}
	s.byID[cred.ID] = clone(cred)
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id uuid.UUID) (*models.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cred, exists := s.byID[id]
	if !exists {
		return nil, sentinel.ErrNotFound
	}
	return clone(cred), nil
}

func (s *InMemoryStore) FindByHash(_ context.Context, h common.Hash) (*models.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, exists := s.byHash[h]
	if !exists {
		return nil, sentinel.ErrNotFound
	}
	return clone(s.byID[id]), nil
}

func (s *InMemoryStore) ListByIssuer(_ context.Context, issuerID uuid.UUID) ([]*models.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Credential
	for _, cred := range s.byID {
		if cred.IssuerID == issuerID {
			out = append(out, clone(cred))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// IncrementUsage bumps the usage counter and returns the new count.
func (s *InMemoryStore) IncrementUsage(_ context.Context, id uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cred, exists := s.byID[id]
	if !exists {
		return 0, sentinel.ErrNotFound
	}
	cred.UsageCount++
	return cred.UsageCount, nil
}

func clone(cred *models.Credential) *models.Credential {
	cp := *cred
	if cred.Payload != nil {
		cp.Payload = make(map[string]any, len(cred.Payload))
		for k, v := range cred.Payload {
			cp.Payload[k] = v
		}
	}
	return &cp
}
