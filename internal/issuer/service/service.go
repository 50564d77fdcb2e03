package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"credverse/internal/issuer/models"
	"credverse/internal/ledger"
	dErrors "credverse/pkg/domain-errors"
	"credverse/pkg/platform/audit"
	"credverse/pkg/platform/sentinel"
)

// Store persists issuer records.
type Store interface {
	Create(ctx context.Context, issuer *models.Issuer) error
	Update(ctx context.Context, issuer *models.Issuer) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Issuer, error)
	FindByDID(ctx context.Context, did string) (*models.Issuer, error)
}

// Ledger is the slice of the ledger adapter the issuer module uses.
type Ledger interface {
	RegisterIssuer(ctx context.Context, identity common.Address, did, domain string) ledger.TxResult
	RevokeIssuer(ctx context.Context, identity common.Address) ledger.TxResult
}

// Service manages issuer registration and revocation.
type Service struct {
	store  Store
	ledger Ledger
	audit  audit.Publisher
	logger *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(p audit.Publisher) Option {
	return func(s *Service) {
		s.audit = p
	}
}

func New(store Store, l Ledger, opts ...Option) *Service {
	s := &Service{
		store:  store,
		ledger: l,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterRequest carries the fields needed to onboard an issuer.
type RegisterRequest struct {
	Name       string
	DID        string
	Domain     string
	WebhookURL string
}

// Register onboards an issuer: derives its ledger identity, registers it on
// the ledger, persists the record and returns the one-time API secret. The
// secret is stored only as a bcrypt hash and cannot be recovered later.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*models.Issuer, string, error) {
	if err := req.validate(); err != nil {
		return nil, "", err
	}

	if _, err := s.store.FindByDID(ctx, req.DID); err == nil {
		return nil, "", dErrors.New(dErrors.CodeConflict, "issuer DID already registered")
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, "", dErrors.Wrap(err, dErrors.CodeInternal, "lookup issuer")
	}

	id := uuid.New()
	identity := deriveIdentity(id)

	secret, secretHash, err := newAPISecret()
	if err != nil {
		return nil, "", dErrors.Wrap(err, dErrors.CodeInternal, "generate api secret")
	}

	res := s.ledger.RegisterIssuer(ctx, identity, req.DID, req.Domain)
	if !res.Success {
		s.emit(ctx, audit.NewEvent(audit.ActionIssuerRegistered, id.String(), "", "failure"))
		return nil, "", dErrors.Wrap(res.Err, dErrors.CodeUnavailable, "ledger issuer registration failed")
	}

	issuer := &models.Issuer{
		ID:         id,
		Name:       req.Name,
		DID:        req.DID,
		Domain:     req.Domain,
		Identity:   identity,
		SecretHash: secretHash,
		WebhookURL: req.WebhookURL,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.store.Create(ctx, issuer); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, "", dErrors.New(dErrors.CodeConflict, "issuer DID already registered")
		}
		return nil, "", dErrors.Wrap(err, dErrors.CodeInternal, "persist issuer")
	}

	s.logger.InfoContext(ctx, "issuer registered",
		"issuer_id", issuer.ID,
		"did", issuer.DID,
		"identity", issuer.Identity.Hex(),
		"ledger_ref", res.Reference,
	)
	s.emit(ctx, audit.NewEvent(audit.ActionIssuerRegistered, issuer.ID.String(), "", "success").
		WithDetail("ledger_ref", res.Reference))

	return issuer, secret, nil
}

// Revoke disables an issuer permanently. The local flag flips even when the
// ledger call fails so the platform stops trusting the issuer immediately.
func (s *Service) Revoke(ctx context.Context, id uuid.UUID) (*models.Issuer, error) {
	issuer, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if issuer.Revoked {
		return nil, dErrors.New(dErrors.CodeAlreadyRevoked, "issuer already revoked")
	}

	res := s.ledger.RevokeIssuer(ctx, issuer.Identity)
	if !res.Success {
		s.logger.WarnContext(ctx, "ledger issuer revocation failed",
			"issuer_id", issuer.ID,
			"error", res.Err,
		)
	}

	now := time.Now().UTC()
	issuer.Revoked = true
	issuer.RevokedAt = &now
	if err := s.store.Update(ctx, issuer); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "persist issuer revocation")
	}

	outcome := "success"
	if !res.Success {
		outcome = "ledger_failed"
	}
	s.emit(ctx, audit.NewEvent(audit.ActionIssuerRevoked, issuer.ID.String(), "", outcome).
		WithDetail("ledger_ref", res.Reference))

	return issuer, nil
}

// Get returns an issuer by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Issuer, error) {
	return s.get(ctx, id)
}

// Trusted reports whether an issuer exists and has not been revoked.
func (s *Service) Trusted(ctx context.Context, id uuid.UUID) (bool, error) {
	issuer, err := s.store.FindByID(ctx, id)
	if errors.Is(err, sentinel.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "lookup issuer")
	}
	return issuer.Trusted(), nil
}

// Authenticate checks an issuer API secret against the stored hash.
func (s *Service) Authenticate(ctx context.Context, id uuid.UUID, secret string) (*models.Issuer, error) {
	issuer, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if issuer.Revoked {
		return nil, dErrors.New(dErrors.CodeIssuerRevoked, "issuer revoked")
	}
	if bcrypt.CompareHashAndPassword(issuer.SecretHash, []byte(secret)) != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid issuer credentials")
	}
	return issuer, nil
}

func (s *Service) get(ctx context.Context, id uuid.UUID) (*models.Issuer, error) {
	issuer, err := s.store.FindByID(ctx, id)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "issuer not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "lookup issuer")
	}
	return issuer, nil
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.audit != nil {
		s.audit.Publish(ctx, event)
	}
}

func (r RegisterRequest) validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return dErrors.New(dErrors.CodeValidation, "issuer name is required")
	}
	if strings.TrimSpace(r.DID) == "" {
		return dErrors.New(dErrors.CodeValidation, "issuer DID is required")
	}
	if strings.TrimSpace(r.Domain) == "" {
		return dErrors.New(dErrors.CodeValidation, "issuer domain is required")
	}
	return nil
}

// deriveIdentity maps an issuer id onto a stable, nonzero ledger address.
func deriveIdentity(id uuid.UUID) common.Address {
	return common.BytesToAddress(ethcrypto.Keccak256(id[:]))
}

func newAPISecret() (string, []byte, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", nil, fmt.Errorf("read random: %w", err)
	}
	secret := hex.EncodeToString(raw)
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", nil, fmt.Errorf("hash secret: %w", err)
	}
	return secret, hash, nil
}
