//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"credverse/internal/issuer/models"
	"credverse/internal/issuer/store"
	"credverse/pkg/platform/sentinel"
	"credverse/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = store.NewPostgresStore(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	err := s.postgres.TruncateTables(context.Background(), "issuers")
	s.Require().NoError(err)
}

func pgIssuer(did string) *models.Issuer {
	return &models.Issuer{
		ID:         uuid.New(),
		Name:       "Globex University",
		DID:        did,
		Domain:     "globex.example",
		Identity:   common.HexToAddress("0x7a58c0be72be218b41c608b7fe7c5bb630736c71"),
		SecretHash: []byte("$2a$10$fakehashfortesting"),
		WebhookURL: "https://globex.example/hooks",
		CreatedAt:  time.Now().UTC().Truncate(time.Microsecond),
	}
}

func (s *PostgresStoreSuite) TestCreateAndFind() {
	ctx := context.Background()
	issuer := pgIssuer("did:web:globex.example")

	s.Require().NoError(s.store.Create(ctx, issuer))

	byID, err := s.store.FindByID(ctx, issuer.ID)
	s.Require().NoError(err)
	s.Equal(issuer.DID, byID.DID)
	s.Equal(issuer.Identity, byID.Identity)
	s.Equal(issuer.SecretHash, byID.SecretHash)
	s.False(byID.Revoked)

	byDID, err := s.store.FindByDID(ctx, issuer.DID)
	s.Require().NoError(err)
	s.Equal(issuer.ID, byDID.ID)
}

func (s *PostgresStoreSuite) TestDuplicateDIDConflicts() {
	ctx := context.Background()

	s.Require().NoError(s.store.Create(ctx, pgIssuer("did:web:dup.example")))

	err := s.store.Create(ctx, pgIssuer("did:web:dup.example"))
	s.ErrorIs(err, sentinel.ErrConflict)
}

func (s *PostgresStoreSuite) TestUpdatePersistsRevocation() {
	ctx := context.Background()
	issuer := pgIssuer("did:web:revoke.example")
	s.Require().NoError(s.store.Create(ctx, issuer))

	now := time.Now().UTC().Truncate(time.Microsecond)
	issuer.Revoked = true
	issuer.RevokedAt = &now
	s.Require().NoError(s.store.Update(ctx, issuer))

	found, err := s.store.FindByID(ctx, issuer.ID)
	s.Require().NoError(err)
	s.True(found.Revoked)
	s.Require().NotNil(found.RevokedAt)
	s.WithinDuration(now, *found.RevokedAt, time.Second)
}

func (s *PostgresStoreSuite) TestUpdateUnknownIssuer() {
	err := s.store.Update(context.Background(), pgIssuer("did:web:ghost.example"))
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestFindUnknown() {
	_, err := s.store.FindByID(context.Background(), uuid.New())
	s.ErrorIs(err, sentinel.ErrNotFound)

	_, err = s.store.FindByDID(context.Background(), "did:web:nobody.example")
	s.ErrorIs(err, sentinel.ErrNotFound)
}
