// Package share issues short-lived share links for credentials. A share is
// a random id mapped to a credential for five minutes, resolvable once the
// holder presents it.
package share

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	dErrors "credverse/pkg/domain-errors"
	"credverse/pkg/platform/audit"
)

// TTL is how long a share link stays resolvable.
const TTL = 5 * time.Minute

// Share is the payload stored behind a share id.
type Share struct {
	ID           string    `json:"id"`
	CredentialID uuid.UUID `json:"credential_id"`
	OwnerID      uuid.UUID `json:"owner_id"`
	URI          string    `json:"uri"`
	CreatedAt    time.Time `json:"created_at"`
}

// Store holds shares with expiry.
type Store interface {
	Set(ctx context.Context, share Share) error
	Get(ctx context.Context, id string) (*Share, error)
	Delete(ctx context.Context, id string) error
	TTL(ctx context.Context, id string) (time.Duration, error)
}

// Service creates and resolves share links.
type Service struct {
	store Store
	audit audit.Publisher
}

func NewService(store Store, auditPub audit.Publisher) *Service {
	return &Service{store: store, audit: auditPub}
}

// Create mints a share link for a credential.
func (s *Service) Create(ctx context.Context, credentialID, ownerID uuid.UUID) (*Share, error) {
	raw := make([]byte, 16)
	if _, err := rand.Read(raw); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "generate share id")
	}
	id := hex.EncodeToString(raw)

	share := Share{
		ID:           id,
		CredentialID: credentialID,
		OwnerID:      ownerID,
		URI:          fmt.Sprintf("credverse://share/%s", id),
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.store.Set(ctx, share); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "persist share")
	}

	if s.audit != nil {
		s.audit.Publish(ctx, audit.NewEvent(audit.ActionShareCreated, ownerID.String(), credentialID.String(), "success").
			WithDetail("share_id", id))
	}
	return &share, nil
}

// Resolve returns the share behind an id, or NotFound once it expired.
func (s *Service) Resolve(ctx context.Context, id string) (*Share, error) {
	share, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "share not found or expired")
	}
	return share, nil
}

// Revoke drops a share before its natural expiry.
func (s *Service) Revoke(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return dErrors.Wrap(err, dErrors.CodeNotFound, "share not found or expired")
	}
	return nil
}

// TTL reports the remaining lifetime of a share.
func (s *Service) TTL(ctx context.Context, id string) (time.Duration, error) {
	ttl, err := s.store.TTL(ctx, id)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeNotFound, "share not found or expired")
	}
	return ttl, nil
}

var errShareGone = errors.New("share gone")

const shareKeyPrefix = "share:"

// RedisStore holds shares in redis with a SETEX-style TTL.
type RedisStore struct {
	client redis.Cmdable
}

func NewRedisStore(client redis.Cmdable) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Set(ctx context.Context, share Share) error {
	data, err := json.Marshal(share)
	if err != nil {
		return fmt.Errorf("marshal share: %w", err)
	}
	return s.client.Set(ctx, shareKeyPrefix+share.ID, data, TTL).Err()
}

func (s *RedisStore) Get(ctx context.Context, id string) (*Share, error) {
	data, err := s.client.Get(ctx, shareKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, errShareGone
	}
	if err != nil {
		return nil, fmt.Errorf("load share: %w", err)
	}
	var share Share
	if err := json.Unmarshal(data, &share); err != nil {
		return nil, fmt.Errorf("unmarshal share: %w", err)
	}
	return &share, nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	n, err := s.client.Del(ctx, shareKeyPrefix+id).Result()
	if err != nil {
		return fmt.Errorf("delete share: %w", err)
	}
	if n == 0 {
		return errShareGone
	}
	return nil
}

func (s *RedisStore) TTL(ctx context.Context, id string) (time.Duration, error) {
	ttl, err := s.client.TTL(ctx, shareKeyPrefix+id).Result()
	if err != nil {
		return 0, fmt.Errorf("share ttl: %w", err)
	}
	if ttl < 0 {
		return 0, errShareGone
	}
	return ttl, nil
}
