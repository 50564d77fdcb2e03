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
)

type MemoryStoreSuite struct {
	suite.Suite
	store *store.InMemoryStore
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) SetupTest() {
	s.store = store.NewInMemoryStore()
}

func (s *MemoryStoreSuite) newIssuer(did string) *models.Issuer {
	return &models.Issuer{
		ID:        uuid.New(),
		Name:      "Test Issuer",
		DID:       did,
		Domain:    "issuer.example.com",
		Identity:  common.HexToAddress("0x1111111111111111111111111111111111111111"),
		CreatedAt: time.Now().UTC(),
	}
}

func (s *MemoryStoreSuite) TestCreateAndFind() {
	issuer := s.newIssuer("did:web:issuer.example.com")
	s.Require().NoError(s.store.Create(context.Background(), issuer))

	byID, err := s.store.FindByID(context.Background(), issuer.ID)
	s.Require().NoError(err)
	s.Equal(issuer.DID, byID.DID)

	byDID, err := s.store.FindByDID(context.Background(), issuer.DID)
	s.Require().NoError(err)
	s.Equal(issuer.ID, byDID.ID)
}

func (s *MemoryStoreSuite) TestCreateDuplicateDID() {
	s.Require().NoError(s.store.Create(context.Background(), s.newIssuer("did:web:dup")))
	err := s.store.Create(context.Background(), s.newIssuer("did:web:dup"))
	s.ErrorIs(err, sentinel.ErrConflict)
}

func (s *MemoryStoreSuite) TestUpdateUnknownIssuer() {
	err := s.store.Update(context.Background(), s.newIssuer("did:web:ghost"))
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *MemoryStoreSuite) TestFindReturnsCopy() {
	issuer := s.newIssuer("did:web:copy")
	s.Require().NoError(s.store.Create(context.Background(), issuer))

	first, err := s.store.FindByID(context.Background(), issuer.ID)
	s.Require().NoError(err)
	first.Revoked = true

	second, err := s.store.FindByID(context.Background(), issuer.ID)
	s.Require().NoError(err)
	s.False(second.Revoked)
}
