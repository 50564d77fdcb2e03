package registry

import (
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/suite"

	"credverse/pkg/platform/sentinel"
)

type RegistrySuite struct {
	suite.Suite
	admin   common.Address
	issuerX common.Address
	issuerY common.Address
	reg     *Registry
}

func TestRegistrySuite(t *testing.T) {
	suite.Run(t, new(RegistrySuite))
}

func (s *RegistrySuite) SetupTest() {
	s.admin = common.HexToAddress("0x00000000000000000000000000000000000000ad")
	s.issuerX = common.HexToAddress("0x0000000000000000000000000000000000000001")
	s.issuerY = common.HexToAddress("0x0000000000000000000000000000000000000002")
	s.reg = New(s.admin)
}

func (s *RegistrySuite) register(identity common.Address) {
	s.Require().NoError(s.reg.RegisterIssuer(identity, "did:web:issuer.example", "issuer.example"))
}

func (s *RegistrySuite) TestRegisterIssuer() {
	s.Run("registers a new issuer", func() {
		s.register(s.issuerX)
		info := s.reg.IssuerInfo(s.issuerX)
		s.True(info.Registered)
		s.False(info.Revoked)
		s.Equal("did:web:issuer.example", info.DID)
	})

	s.Run("rejects duplicate registration", func() {
		err := s.reg.RegisterIssuer(s.issuerX, "did:web:other", "other.example")
		s.ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("rejects zero identity", func() {
		err := s.reg.RegisterIssuer(common.Address{}, "did:web:x", "x")
		s.ErrorIs(err, ErrInvalidIdentity)
	})

	s.Run("rejects empty did or domain", func() {
		s.ErrorIs(s.reg.RegisterIssuer(s.issuerY, "", "y.example"), ErrInvalidInput)
		s.ErrorIs(s.reg.RegisterIssuer(s.issuerY, "did:web:y", ""), ErrInvalidInput)
	})
}

func (s *RegistrySuite) TestAnchorIdempotency() {
	s.register(s.issuerX)
	s.register(s.issuerY)
	h := common.HexToHash("0x01")

	s.Require().NoError(s.reg.Anchor(s.issuerX, h))
	first := s.reg.AnchorInfo(h)
	s.True(first.Exists)
	s.Equal(s.issuerX, first.Submitter)

	// Second anchor fails regardless of caller and leaves the original intact.
	s.ErrorIs(s.reg.Anchor(s.issuerX, h), sentinel.ErrConflict)
	s.ErrorIs(s.reg.Anchor(s.issuerY, h), sentinel.ErrConflict)

	again := s.reg.AnchorInfo(h)
	s.Equal(first.Submitter, again.Submitter)
	s.Equal(first.Timestamp, again.Timestamp)
}

func (s *RegistrySuite) TestAnchorValidation() {
	s.register(s.issuerX)

	s.Run("rejects zero hash", func() {
		s.ErrorIs(s.reg.Anchor(s.issuerX, common.Hash{}), ErrInvalidInput)
	})

	s.Run("rejects unregistered identity", func() {
		s.ErrorIs(s.reg.Anchor(s.issuerY, common.HexToHash("0x02")), sentinel.ErrNotFound)
	})
}

func (s *RegistrySuite) TestRevocationOwnership() {
	s.register(s.issuerX)
	s.register(s.issuerY)
	h := common.HexToHash("0x03")
	s.Require().NoError(s.reg.Anchor(s.issuerX, h))

	s.Run("rejects revocation by non-submitter", func() {
		s.ErrorIs(s.reg.Revoke(s.issuerY, h, "takeover"), sentinel.ErrNotOwner)
		s.False(s.reg.IsRevoked(h))
	})

	s.Run("submitter revokes permanently", func() {
		s.Require().NoError(s.reg.Revoke(s.issuerX, h, "compromised"))
		s.True(s.reg.IsRevoked(h))

		events := s.reg.Events()
		s.Require().Len(events, 1)
		s.Equal(s.issuerX, events[0].Revoker)
		s.Equal("compromised", events[0].Reason)
	})

	s.Run("second revocation fails for anyone", func() {
		s.ErrorIs(s.reg.Revoke(s.issuerX, h, "again"), sentinel.ErrAlreadyRevoked)
		s.ErrorIs(s.reg.Revoke(s.issuerY, h, "again"), sentinel.ErrAlreadyRevoked)
		s.True(s.reg.IsRevoked(h))
	})

	s.Run("unknown hash is not found", func() {
		s.ErrorIs(s.reg.Revoke(s.issuerX, common.HexToHash("0xff"), "x"), sentinel.ErrNotFound)
	})
}

func (s *RegistrySuite) TestIssuerRevocationBlocksFutureOnly() {
	s.register(s.issuerX)
	h1 := common.HexToHash("0x04")
	s.Require().NoError(s.reg.Anchor(s.issuerX, h1))

	s.Run("only admin may revoke an issuer", func() {
		s.ErrorIs(s.reg.RevokeIssuer(s.issuerY, s.issuerX), sentinel.ErrNotOwner)
	})

	s.Require().NoError(s.reg.RevokeIssuer(s.admin, s.issuerX))

	s.Run("revoking twice fails", func() {
		s.ErrorIs(s.reg.RevokeIssuer(s.admin, s.issuerX), sentinel.ErrAlreadyRevoked)
	})

	s.Run("future anchors and revocations are blocked", func() {
		s.ErrorIs(s.reg.Anchor(s.issuerX, common.HexToHash("0x05")), sentinel.ErrIssuerRevoked)
		s.ErrorIs(s.reg.Revoke(s.issuerX, h1, "late"), sentinel.ErrIssuerRevoked)
	})

	s.Run("prior anchors are untouched", func() {
		info := s.reg.AnchorInfo(h1)
		s.True(info.Exists)
		s.False(s.reg.IsRevoked(h1))
	})

	s.Run("unknown issuer revocation is not found", func() {
		s.ErrorIs(s.reg.RevokeIssuer(s.admin, s.issuerY), sentinel.ErrNotFound)
	})
}

func (s *RegistrySuite) TestReadsNeverFail() {
	unknown := common.HexToHash("0xdead")
	info := s.reg.AnchorInfo(unknown)
	s.False(info.Exists)
	s.Equal(unknown, info.Hash)
	s.False(s.reg.IsRevoked(unknown))

	issuer := s.reg.IssuerInfo(s.issuerY)
	s.False(issuer.Registered)
	s.Equal(time.Time{}, issuer.RegisteredAt)
}
