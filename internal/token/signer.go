// Package token signs and verifies compact credential tokens. A token binds
// a credential's claims to an issuer key so a verifier can check it without
// contacting the issuer.
package token

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	dErrors "credverse/pkg/domain-errors"
)

// Claims are the signed credential claims.
type Claims struct {
	CredentialID string         `json:"credential_id"`
	IssuerID     string         `json:"issuer_id"`
	IssuerDID    string         `json:"issuer_did"`
	TemplateID   string         `json:"template_id"`
	Recipient    string         `json:"recipient"`
	ContentHash  string         `json:"content_hash"`
	Payload      map[string]any `json:"payload"`
	jwt.RegisteredClaims
}

// SignRequest carries everything bound into a token.
type SignRequest struct {
	CredentialID uuid.UUID
	IssuerID     uuid.UUID
	IssuerDID    string
	TemplateID   string
	Recipient    string
	ContentHash  string
	Payload      map[string]any
	ExpiresIn    time.Duration
}

// Signer issues and verifies EdDSA credential tokens with per-issuer keys.
type Signer struct {
	keys   KeyProvider
	issuer string
}

// NewSigner builds a signer. issuer names this deployment in the token's iss
// claim.
func NewSigner(keys KeyProvider, issuer string) *Signer {
	return &Signer{keys: keys, issuer: issuer}
}

// Sign produces a signed credential token.
func (s *Signer) Sign(ctx context.Context, req SignRequest) (string, error) {
	if req.Recipient == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "recipient is required")
	}

	key, err := s.keys.GetOrCreate(ctx, req.IssuerID)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "issuer key unavailable")
	}

	now := time.Now()
	claims := Claims{
		CredentialID: req.CredentialID.String(),
		IssuerID:     req.IssuerID.String(),
		IssuerDID:    req.IssuerDID,
		TemplateID:   req.TemplateID,
		Recipient:    req.Recipient,
		ContentHash:  req.ContentHash,
		Payload:      req.Payload,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   req.Recipient,
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}
	// Zero means a non-expiring token. Negative offsets are honored so
	// callers control the clock relative to now.
	if req.ExpiresIn != 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(req.ExpiresIn))
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims).SignedString(key.Private)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "could not sign credential token")
	}
	return signed, nil
}

// Decode parses and verifies a token. It fails closed: malformed structure,
// unknown issuers, method confusion, and signature mismatches all come back
// as signature_invalid domain errors, never as panics.
func (s *Signer) Decode(ctx context.Context, tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		claims, ok := t.Claims.(*Claims)
		if !ok {
			return nil, jwt.ErrTokenInvalidClaims
		}
		issuerID, err := uuid.Parse(claims.IssuerID)
		if err != nil {
			return nil, jwt.ErrTokenInvalidClaims
		}
		key, err := s.keys.Public(ctx, issuerID)
		if err != nil {
			return nil, err
		}
		return key, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeSignatureInvalid, "token has expired")
		}
		if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return nil, dErrors.New(dErrors.CodeSignatureInvalid, "signature mismatch")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeSignatureInvalid, "invalid credential token")
	}
	if !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeSignatureInvalid, "invalid credential token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, dErrors.New(dErrors.CodeSignatureInvalid, "invalid token claims")
	}
	return claims, nil
}
