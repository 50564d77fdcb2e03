//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"credverse/internal/verification/models"
	"credverse/internal/verification/store"
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
	err := s.postgres.TruncateTables(context.Background(), "verification_records")
	s.Require().NoError(err)
}

func pgRecord(credentialID, verifierID string, result models.Result) models.Record {
	return models.Record{
		ID:           uuid.New(),
		CredentialID: credentialID,
		ContentHash:  "0xdeadbeef",
		VerifierID:   verifierID,
		Result:       result,
		Reason:       "",
		IP:           "203.0.113.9",
		Device:       "Chrome on Linux",
		CreatedAt:    time.Now().UTC().Truncate(time.Microsecond),
	}
}

func (s *PostgresStoreSuite) TestAppendAndList() {
	ctx := context.Background()
	credID := uuid.NewString()

	first := pgRecord(credID, "verifier-a", models.ResultVerified)
	second := pgRecord(credID, "verifier-b", models.ResultFailed)
	second.Reason = "credential revoked"
	second.CreatedAt = first.CreatedAt.Add(time.Second)

	s.Require().NoError(s.store.Append(ctx, first))
	s.Require().NoError(s.store.Append(ctx, second))
	s.Require().NoError(s.store.Append(ctx, pgRecord(uuid.NewString(), "verifier-a", models.ResultVerified)))

	records, err := s.store.ListByCredential(ctx, credID)
	s.Require().NoError(err)
	s.Require().Len(records, 2)
	s.Equal(models.ResultVerified, records[0].Result)
	s.Equal(models.ResultFailed, records[1].Result)
	s.Equal("credential revoked", records[1].Reason)
	s.Equal("Chrome on Linux", records[0].Device)
}

func (s *PostgresStoreSuite) TestCountByVerifier() {
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		s.Require().NoError(s.store.Append(ctx, pgRecord(uuid.NewString(), "busy-verifier", models.ResultVerified)))
	}
	s.Require().NoError(s.store.Append(ctx, pgRecord(uuid.NewString(), "quiet-verifier", models.ResultVerified)))

	count, err := s.store.CountByVerifier(ctx, "busy-verifier")
	s.Require().NoError(err)
	s.Equal(3, count)

	count, err = s.store.CountByVerifier(ctx, "nobody")
	s.Require().NoError(err)
	s.Zero(count)
}
