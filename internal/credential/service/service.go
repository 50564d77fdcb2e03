package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"credverse/internal/credential/models"
	issuermodels "credverse/internal/issuer/models"
	"credverse/internal/ledger"
	"credverse/internal/ledger/hash"
	"credverse/internal/platform/metrics"
	"credverse/internal/token"
	dErrors "credverse/pkg/domain-errors"
	"credverse/pkg/platform/audit"
	"credverse/pkg/platform/sentinel"
)

// Store persists credentials.
type Store interface {
	Create(ctx context.Context, cred *models.Credential) error
	Update(ctx context.Context, cred *models.Credential) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Credential, error)
	FindByHash(ctx context.Context, h common.Hash) (*models.Credential, error)
	ListByIssuer(ctx context.Context, issuerID uuid.UUID) ([]*models.Credential, error)
	IncrementUsage(ctx context.Context, id uuid.UUID) (int, error)
}

// IssuerDirectory resolves issuers for validation.
type IssuerDirectory interface {
	Get(ctx context.Context, id uuid.UUID) (*issuermodels.Issuer, error)
}

// Ledger is the slice of the ledger adapter the orchestrator uses.
type Ledger interface {
	HashPayload(payload hash.Payload) (common.Hash, error)
	Anchor(ctx context.Context, identity common.Address, digest common.Hash) ledger.TxResult
	Revoke(ctx context.Context, identity common.Address, digest common.Hash, reason string) ledger.TxResult
}

// TokenSigner issues signed credential tokens.
type TokenSigner interface {
	Sign(ctx context.Context, req token.SignRequest) (string, error)
}

// Notifier delivers webhook events to issuer endpoints.
type Notifier interface {
	Notify(url string, event string, body map[string]any)
}

// Service orchestrates credential issuance, anchoring and revocation.
type Service struct {
	store   Store
	issuers IssuerDirectory
	ledger  Ledger
	signer  TokenSigner
	notify  Notifier
	audit   audit.Publisher
	metrics *metrics.Metrics
	logger  *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithNotifier(n Notifier) Option {
	return func(s *Service) {
		s.notify = n
	}
}

func WithAuditPublisher(p audit.Publisher) Option {
	return func(s *Service) {
		s.audit = p
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func New(store Store, issuers IssuerDirectory, l Ledger, signer TokenSigner, opts ...Option) *Service {
	s := &Service{
		store:   store,
		issuers: issuers,
		ledger:  l,
		signer:  signer,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IssueRequest carries the inputs for a single issuance.
type IssueRequest struct {
	IssuerID       uuid.UUID
	TemplateID     string
	Recipient      string
	RecipientEmail string
	Payload        hash.Payload
	ExpiresIn      time.Duration
}

// Issue runs the issuance pipeline: validate, hash, sign, persist, then a
// best-effort anchor. A failed anchor leaves the credential pending and
// never fails the issuance.
func (s *Service) Issue(ctx context.Context, req IssueRequest) (*models.Credential, error) {
	issuer, err := s.validIssuer(ctx, req.IssuerID)
	if err != nil {
		return nil, err
	}
	if err := req.validate(); err != nil {
		return nil, err
	}

	digest, err := s.ledger.HashPayload(req.Payload)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "payload not hashable")
	}

	credID := uuid.New()
	tokenString, err := s.signer.Sign(ctx, token.SignRequest{
		CredentialID: credID,
		IssuerID:     issuer.ID,
		IssuerDID:    issuer.DID,
		TemplateID:   req.TemplateID,
		Recipient:    req.Recipient,
		ContentHash:  digest.Hex(),
		Payload:      req.Payload,
		ExpiresIn:    req.ExpiresIn,
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "sign credential token")
	}

	now := time.Now().UTC()
	cred := &models.Credential{
		ID:             credID,
		IssuerID:       issuer.ID,
		TemplateID:     req.TemplateID,
		Recipient:      req.Recipient,
		RecipientEmail: req.RecipientEmail,
		Payload:        req.Payload,
		ContentHash:    digest,
		Token:          tokenString,
		Status:         models.StatusPending,
		CreatedAt:      now,
	}
	if req.ExpiresIn > 0 {
		expires := now.Add(req.ExpiresIn)
		cred.ExpiresAt = &expires
	}
	if err := s.store.Create(ctx, cred); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeAlreadyExists, "credential content already anchored")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "persist credential")
	}

	s.emit(ctx, audit.NewEvent(audit.ActionCredentialIssued, issuer.ID.String(), cred.ID.String(), "success"))
	if s.metrics != nil {
		s.metrics.IncrementIssued()
	}

	s.anchor(ctx, issuer, cred)
	s.notifyIssuer(issuer, "credential.issued", cred)

	return cred, nil
}

// anchor submits the content hash to the ledger and records the outcome.
func (s *Service) anchor(ctx context.Context, issuer *issuermodels.Issuer, cred *models.Credential) {
	res := s.ledger.Anchor(ctx, issuer.Identity, cred.ContentHash)
	outcome := "success"
	if res.Success {
		now := time.Now().UTC()
		cred.Status = models.StatusAnchored
		cred.LedgerRef = res.Reference
		cred.AnchoredAt = &now
		if err := s.store.Update(ctx, cred); err != nil {
			s.logger.ErrorContext(ctx, "failed to persist anchor result",
				"credential_id", cred.ID,
				"error", err,
			)
		}
	} else {
		outcome = "failure"
		s.logger.WarnContext(ctx, "credential anchoring failed",
			"credential_id", cred.ID,
			"issuer_id", issuer.ID,
			"error", res.Err,
		)
	}

	if s.metrics != nil {
		s.metrics.ObserveAnchor(outcome)
	}
	s.emit(ctx, audit.NewEvent(audit.ActionCredentialAnchored, issuer.ID.String(), cred.ID.String(), outcome).
		WithDetail("ledger_ref", res.Reference))
}

// Revoke marks a credential revoked. The local flag always flips; the
// ledger revocation is attempted when the credential is anchored and its
// outcome is recorded as LedgerRevoked.
func (s *Service) Revoke(ctx context.Context, credentialID, actorID uuid.UUID, reason string) (*models.Credential, error) {
	cred, err := s.get(ctx, credentialID)
	if err != nil {
		return nil, err
	}
	if cred.IssuerID != actorID {
		return nil, dErrors.New(dErrors.CodeUnauthorizedRevocation, "only the issuing organization can revoke")
	}
	if cred.Revoked {
		return nil, dErrors.New(dErrors.CodeAlreadyRevoked, "credential already revoked")
	}

	issuer, err := s.issuers.Get(ctx, cred.IssuerID)
	if err != nil {
		return nil, err
	}

	ledgerRevoked := false
	ledgerRef := ""
	if cred.Anchored() {
		res := s.ledger.Revoke(ctx, issuer.Identity, cred.ContentHash, reason)
		ledgerRevoked = res.Success
		ledgerRef = res.Reference
		if !res.Success {
			s.logger.WarnContext(ctx, "ledger revocation failed",
				"credential_id", cred.ID,
				"error", res.Err,
			)
		}
	}

	now := time.Now().UTC()
	cred.Revoked = true
	cred.LedgerRevoked = ledgerRevoked
	cred.RevocationReason = reason
	cred.RevokedAt = &now
	if err := s.store.Update(ctx, cred); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "persist revocation")
	}

	outcome := "success"
	if cred.Anchored() && !ledgerRevoked {
		outcome = "ledger_failed"
	}
	s.emit(ctx, audit.NewEvent(audit.ActionCredentialRevoked, issuer.ID.String(), cred.ID.String(), outcome).
		WithDetail("reason", reason).
		WithDetail("ledger_ref", ledgerRef))
	if s.metrics != nil {
		s.metrics.IncrementRevoked()
	}

	s.notifyIssuer(issuer, "credential.revoked", cred)
	return cred, nil
}

// Get returns a credential by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Credential, error) {
	return s.get(ctx, id)
}

// FindByHash returns the credential anchored under a content hash.
func (s *Service) FindByHash(ctx context.Context, h common.Hash) (*models.Credential, error) {
	cred, err := s.store.FindByHash(ctx, h)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "credential not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "lookup credential")
	}
	return cred, nil
}

// List returns all credentials issued by an issuer.
func (s *Service) List(ctx context.Context, issuerID uuid.UUID) ([]*models.Credential, error) {
	creds, err := s.store.ListByIssuer(ctx, issuerID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list credentials")
	}
	return creds, nil
}

// TouchUsage bumps the credential usage counter, used on share and verify.
func (s *Service) TouchUsage(ctx context.Context, id uuid.UUID) {
	if _, err := s.store.IncrementUsage(ctx, id); err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		s.logger.Warn("failed to bump usage counter", "credential_id", id, "error", err)
	}
}

func (s *Service) validIssuer(ctx context.Context, id uuid.UUID) (*issuermodels.Issuer, error) {
	issuer, err := s.issuers.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if issuer.Revoked {
		return nil, dErrors.New(dErrors.CodeIssuerRevoked, "issuer has been revoked")
	}
	return issuer, nil
}

func (s *Service) get(ctx context.Context, id uuid.UUID) (*models.Credential, error) {
	cred, err := s.store.FindByID(ctx, id)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "credential not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "lookup credential")
	}
	return cred, nil
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.audit != nil {
		s.audit.Publish(ctx, event)
	}
}

func (s *Service) notifyIssuer(issuer *issuermodels.Issuer, event string, cred *models.Credential) {
	if s.notify == nil || issuer.WebhookURL == "" {
		return
	}
	s.notify.Notify(issuer.WebhookURL, event, map[string]any{
		"credential_id": cred.ID.String(),
		"issuer_id":     issuer.ID.String(),
		"content_hash":  cred.ContentHash.Hex(),
		"status":        string(cred.Status),
		"revoked":       cred.Revoked,
	})
}

func (r IssueRequest) validate() error {
	if strings.TrimSpace(r.TemplateID) == "" {
		return dErrors.New(dErrors.CodeValidation, "template id is required")
	}
	if strings.TrimSpace(r.Recipient) == "" {
		return dErrors.New(dErrors.CodeValidation, "recipient is required")
	}
	if len(r.Payload) == 0 {
		return dErrors.New(dErrors.CodeValidation, "payload is required")
	}
	return nil
}
