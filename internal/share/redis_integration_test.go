//go:build integration

package share_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	dErrors "credverse/pkg/domain-errors"
	"credverse/internal/share"
	"credverse/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	redis   *containers.RedisContainer
	service *share.Service
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.redis = mgr.GetRedis(s.T())
	s.service = share.NewService(share.NewRedisStore(s.redis.Client), nil)
}

func (s *RedisStoreSuite) SetupTest() {
	err := s.redis.FlushAll(context.Background())
	s.Require().NoError(err)
}

func (s *RedisStoreSuite) TestCreateAndResolve() {
	ctx := context.Background()
	credID := uuid.New()
	ownerID := uuid.New()

	created, err := s.service.Create(ctx, credID, ownerID)
	s.Require().NoError(err)
	s.Len(created.ID, 32)
	s.Equal("credverse://share/"+created.ID, created.URI)

	resolved, err := s.service.Resolve(ctx, created.ID)
	s.Require().NoError(err)
	s.Equal(credID, resolved.CredentialID)
	s.Equal(ownerID, resolved.OwnerID)

	ttl, err := s.service.TTL(ctx, created.ID)
	s.Require().NoError(err)
	s.Greater(ttl, 4*time.Minute)
	s.LessOrEqual(ttl, share.TTL)
}

func (s *RedisStoreSuite) TestResolveUnknown() {
	_, err := s.service.Resolve(context.Background(), "0123456789abcdef0123456789abcdef")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *RedisStoreSuite) TestRevokeDropsShare() {
	ctx := context.Background()
	created, err := s.service.Create(ctx, uuid.New(), uuid.New())
	s.Require().NoError(err)

	s.Require().NoError(s.service.Revoke(ctx, created.ID))

	_, err = s.service.Resolve(ctx, created.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	err = s.service.Revoke(ctx, created.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

// TestKeyExpiry drives the real redis TTL with a short-lived key written
// directly, since the service TTL is minutes.
func (s *RedisStoreSuite) TestKeyExpiry() {
	ctx := context.Background()
	created, err := s.service.Create(ctx, uuid.New(), uuid.New())
	s.Require().NoError(err)

	err = s.redis.Client.Expire(ctx, "share:"+created.ID, 100*time.Millisecond).Err()
	s.Require().NoError(err)

	s.Eventually(func() bool {
		_, err := s.service.Resolve(ctx, created.ID)
		return dErrors.HasCode(err, dErrors.CodeNotFound)
	}, 2*time.Second, 50*time.Millisecond)
}
