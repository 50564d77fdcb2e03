package store

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"credverse/internal/bulk/models"
	"credverse/pkg/platform/sentinel"
)

// InMemoryStore keeps bulk jobs in process memory.
type InMemoryStore struct {
	mu   sync.RWMutex
	jobs map[uuid.UUID]*models.Job
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{jobs: make(map[uuid.UUID]*models.Job)}
}

func (s *InMemoryStore) Create(_ context.Context, job *models.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.ID]; exists {
		return sentinel.ErrConflict
	}
	s.jobs[job.ID] = clone(job)
	return nil
}

func (s *InMemoryStore) Update(_ context.Context, job *models.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.ID]; !exists {
		return sentinel.ErrNotFound
	}
	s.jobs[job.ID] = clone(job)
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id uuid.UUID) (*models.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, exists := s.jobs[id]
	if !exists {
		return nil, sentinel.ErrNotFound
	}
	return clone(job), nil
}

func clone(job *models.Job) *models.Job {
	cp := *job
	cp.Items = append([]models.Item{}, job.Items...)
	cp.Results = append([]models.ItemResult{}, job.Results...)
	cp.Errors = append([]string{}, job.Errors...)
	return &cp
}
