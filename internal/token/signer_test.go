package token

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	dErrors "credverse/pkg/domain-errors"
)

type SignerSuite struct {
	suite.Suite
	ctx      context.Context
	keys     *InMemoryKeyProvider
	signer   *Signer
	issuerID uuid.UUID
}

func TestSignerSuite(t *testing.T) {
	suite.Run(t, new(SignerSuite))
}

func (s *SignerSuite) SetupTest() {
	s.ctx = context.Background()
	s.keys = NewInMemoryKeyProvider()
	s.signer = NewSigner(s.keys, "credverse-test")
	s.issuerID = uuid.New()
}

func (s *SignerSuite) signRequest() SignRequest {
	return SignRequest{
		CredentialID: uuid.New(),
		IssuerID:     s.issuerID,
		IssuerDID:    "did:web:issuer.example",
		TemplateID:   "degree-v1",
		Recipient:    "alice@example.org",
		ContentHash:  "0xabc",
		Payload:      map[string]any{"name": "A", "id": "1"},
		ExpiresIn:    time.Hour,
	}
}

func (s *SignerSuite) TestSignAndDecodeRoundTrip() {
	req := s.signRequest()
	signed, err := s.signer.Sign(s.ctx, req)
	s.Require().NoError(err)

	claims, err := s.signer.Decode(s.ctx, signed)
	s.Require().NoError(err)
	s.Equal(req.CredentialID.String(), claims.CredentialID)
	s.Equal(req.Recipient, claims.Recipient)
	s.Equal(req.ContentHash, claims.ContentHash)
	s.Equal("credverse-test", claims.Issuer)
}

func (s *SignerSuite) TestSignRequiresRecipient() {
	req := s.signRequest()
	req.Recipient = ""
	_, err := s.signer.Sign(s.ctx, req)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func (s *SignerSuite) TestDecodeFailsClosed() {
	s.Run("garbage token", func() {
		_, err := s.signer.Decode(s.ctx, "not-a-token")
		s.True(dErrors.HasCode(err, dErrors.CodeSignatureInvalid))
	})

	s.Run("unknown issuer", func() {
		other := NewSigner(NewInMemoryKeyProvider(), "credverse-test")
		signed, err := other.Sign(s.ctx, s.signRequest())
		s.Require().NoError(err)

		// Decode against a provider that never saw this issuer's key.
		_, err = s.signer.Decode(s.ctx, signed)
		s.True(dErrors.HasCode(err, dErrors.CodeSignatureInvalid))
	})

	s.Run("expired token", func() {
		req := s.signRequest()
		req.ExpiresIn = -time.Minute
		signed, err := s.signer.Sign(s.ctx, req)
		s.Require().NoError(err)

		_, err = s.signer.Decode(s.ctx, signed)
		s.True(dErrors.HasCode(err, dErrors.CodeSignatureInvalid))
	})
}

func (s *SignerSuite) TestTamperedPayloadIsRejected() {
	signed, err := s.signer.Sign(s.ctx, s.signRequest())
	s.Require().NoError(err)

	parts := strings.Split(signed, ".")
	s.Require().Len(parts, 3)

	body, err := base64.RawURLEncoding.DecodeString(parts[1])
	s.Require().NoError(err)

	var claims map[string]any
	s.Require().NoError(json.Unmarshal(body, &claims))
	claims["recipient"] = "mallory@example.org"
	tampered, err := json.Marshal(claims)
	s.Require().NoError(err)

	parts[1] = base64.RawURLEncoding.EncodeToString(tampered)
	_, err = s.signer.Decode(s.ctx, strings.Join(parts, "."))
	s.True(dErrors.HasCode(err, dErrors.CodeSignatureInvalid))
}

func (s *SignerSuite) TestKeyProviderIsStablePerIssuer() {
	first, err := s.keys.GetOrCreate(s.ctx, s.issuerID)
	s.Require().NoError(err)
	second, err := s.keys.GetOrCreate(s.ctx, s.issuerID)
	s.Require().NoError(err)
	s.Equal(first.Public, second.Public)

	pub, err := s.keys.Public(s.ctx, s.issuerID)
	s.Require().NoError(err)
	s.Equal(first.Public, pub)
}
