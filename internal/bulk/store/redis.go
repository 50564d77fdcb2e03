package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"credverse/internal/bulk/models"
	"credverse/pkg/platform/sentinel"
)

const (
	jobKeyPrefix = "bulk:job:"
	queueKey     = "bulk:queue"
	jobTTL       = 24 * time.Hour
)

// RedisStore persists bulk jobs as JSON values and doubles as the job
// queue. Jobs expire a day after their last update.
type RedisStore struct {
	client redis.Cmdable
}

func NewRedisStore(client redis.Cmdable) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Create(ctx context.Context, job *models.Job) error {
	key := jobKeyPrefix + job.ID.String()
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal bulk job: %w", err)
	}
	ok, err := s.client.SetNX(ctx, key, data, jobTTL).Result()
	if err != nil {
		return fmt.Errorf("store bulk job: %w", err)
	}
	if !ok {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *RedisStore) Update(ctx context.Context, job *models.Job) error {
	key := jobKeyPrefix + job.ID.String()
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal bulk job: %w", err)
	}
	ok, err := s.client.SetXX(ctx, key, data, jobTTL).Result()
	if err != nil {
		return fmt.Errorf("update bulk job: %w", err)
	}
	if !ok {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *RedisStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	data, err := s.client.Get(ctx, jobKeyPrefix+id.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load bulk job: %w", err)
	}
	var job models.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("unmarshal bulk job: %w", err)
	}
	return &job, nil
}

// Enqueue pushes a job id onto the work queue.
func (s *RedisStore) Enqueue(ctx context.Context, id uuid.UUID) error {
	if err := s.client.LPush(ctx, queueKey, id.String()).Err(); err != nil {
		return fmt.Errorf("enqueue bulk job: %w", err)
	}
	return nil
}

// Dequeue blocks up to timeout for the next job id. Returns
// sentinel.ErrNotFound when the queue stayed empty.
func (s *RedisStore) Dequeue(ctx context.Context, timeout time.Duration) (uuid.UUID, error) {
	res, err := s.client.BRPop(ctx, timeout, queueKey).Result()
	if errors.Is(err, redis.Nil) {
		return uuid.Nil, sentinel.ErrNotFound
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("dequeue bulk job: %w", err)
	}
	id, err := uuid.Parse(res[1])
	if err != nil {
		return uuid.Nil, fmt.Errorf("parse queued job id: %w", err)
	}
	return id, nil
}
