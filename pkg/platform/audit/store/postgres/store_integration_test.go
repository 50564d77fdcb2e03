//go:build integration

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"credverse/pkg/platform/audit"
	"credverse/pkg/platform/audit/store/postgres"
	"credverse/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *postgres.Store
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
	s.store = postgres.New(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	err := s.postgres.TruncateTables(context.Background(), "audit_events")
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) TestAppendAndListByIssuer() {
	ctx := context.Background()

	event := audit.NewEvent(audit.ActionCredentialIssued, "issuer-1", "cred-1", "success").
		WithDetail("template_id", "degree-v1")
	s.Require().NoError(s.store.Append(ctx, event))
	s.Require().NoError(s.store.Append(ctx,
		audit.NewEvent(audit.ActionCredentialRevoked, "issuer-2", "cred-2", "success")))

	events, err := s.store.ListByIssuer(ctx, "issuer-1")
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(audit.ActionCredentialIssued, events[0].Action)
	s.Equal("degree-v1", events[0].Detail["template_id"])
	s.Equal("success", events[0].Outcome)
}

func (s *PostgresStoreSuite) TestListRecentNewestFirst() {
	ctx := context.Background()

	for i, action := range []audit.Action{audit.ActionIssuerRegistered, audit.ActionCredentialIssued, audit.ActionCredentialAnchored} {
		event := audit.NewEvent(action, "issuer-1", "", "success")
		event.Timestamp = time.Now().UTC().Add(time.Duration(i) * time.Second)
		s.Require().NoError(s.store.Append(ctx, event))
	}

	events, err := s.store.ListRecent(ctx, 2)
	s.Require().NoError(err)
	s.Require().Len(events, 2)
	s.Equal(audit.ActionCredentialAnchored, events[0].Action)
	s.Equal(audit.ActionCredentialIssued, events[1].Action)
}
