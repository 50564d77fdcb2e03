package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	credmodels "credverse/internal/credential/models"
	"credverse/internal/ledger"
	"credverse/internal/platform/metrics"
	"credverse/internal/token"
	"credverse/internal/verification/device"
	"credverse/internal/verification/models"
	"credverse/pkg/platform/audit"
)

// RecordStore persists the verification trail.
type RecordStore interface {
	Append(ctx context.Context, record models.Record) error
	ListByCredential(ctx context.Context, credentialID string) ([]models.Record, error)
	CountByVerifier(ctx context.Context, verifierID string) (int, error)
}

// Ledger is the read-side slice of the ledger adapter.
type Ledger interface {
	Verify(ctx context.Context, digest common.Hash) (ledger.VerifyResult, error)
	IsRevoked(ctx context.Context, digest common.Hash) (bool, error)
	IssuerInfo(ctx context.Context, identity common.Address) (ledger.IssuerInfo, error)
}

// TokenDecoder verifies credential token signatures.
type TokenDecoder interface {
	Decode(ctx context.Context, tokenString string) (*token.Claims, error)
}

// IssuerDirectory answers issuer trust checks.
type IssuerDirectory interface {
	Trusted(ctx context.Context, id uuid.UUID) (bool, error)
}

// CredentialReader resolves locally stored credentials.
type CredentialReader interface {
	FindByHash(ctx context.Context, h common.Hash) (*credmodels.Credential, error)
	TouchUsage(ctx context.Context, id uuid.UUID)
}

// RiskScorer flags verification attempts that look abusive. The scoring
// arithmetic lives behind this port.
type RiskScorer interface {
	Suspicious(ctx context.Context, meta models.RequestMeta, priorAttempts int) bool
}

// Outcome is the result of a verification check.
type Outcome struct {
	Valid         bool
	Revoked       bool
	IssuerTrusted bool
	Status        models.Result
	Reason        string
	Credential    *credmodels.Credential
}

// Service answers verification requests. It is read-only apart from the
// record appended for every attempt, and it fails closed: any doubt about
// a signature yields an invalid outcome, never an error.
type Service struct {
	records RecordStore
	ledger  Ledger
	decoder TokenDecoder
	issuers IssuerDirectory
	creds   CredentialReader
	risk    RiskScorer
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

func WithRiskScorer(r RiskScorer) Option {
	return func(s *Service) {
		s.risk = r
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

func New(records RecordStore, l Ledger, decoder TokenDecoder, issuers IssuerDirectory, creds CredentialReader, opts ...Option) *Service {
	s := &Service{
		records: records,
		ledger:  l,
		decoder: decoder,
		issuers: issuers,
		creds:   creds,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// VerifyToken checks a presented credential token: signature, issuer trust
// and revocation state.
func (s *Service) VerifyToken(ctx context.Context, tokenString string, meta models.RequestMeta) (*Outcome, error) {
	claims, err := s.decoder.Decode(ctx, tokenString)
	if err != nil {
		outcome := &Outcome{Status: models.ResultFailed, Reason: "invalid signature"}
		s.record(ctx, outcome, "", "", meta)
		return outcome, nil
	}

	issuerID, err := uuid.Parse(claims.IssuerID)
	if err != nil {
		outcome := &Outcome{Status: models.ResultFailed, Reason: "malformed issuer claim"}
		s.record(ctx, outcome, claims.CredentialID, claims.ContentHash, meta)
		return outcome, nil
	}

	digest := common.HexToHash(claims.ContentHash)
	outcome := s.assess(ctx, digest, issuerID, meta)
	s.record(ctx, outcome, claims.CredentialID, claims.ContentHash, meta)
	return outcome, nil
}

// VerifyHash checks an anchored content hash directly, without a token.
// Issuer trust comes from the on-ledger submitter when no local credential
// matches the hash.
func (s *Service) VerifyHash(ctx context.Context, digest common.Hash, meta models.RequestMeta) (*Outcome, error) {
	res, err := s.ledger.Verify(ctx, digest)
	if err != nil {
		s.logger.WarnContext(ctx, "ledger verify failed, using local state", "error", err)
		return s.verifyHashLocally(ctx, digest, meta)
	}
	if !res.Exists {
		outcome := &Outcome{Status: models.ResultFailed, Reason: "hash not anchored"}
		s.record(ctx, outcome, "", digest.Hex(), meta)
		return outcome, nil
	}

	cred, _ := s.creds.FindByHash(ctx, digest)

	trusted := false
	if cred != nil {
		trusted, _ = s.issuers.Trusted(ctx, cred.IssuerID)
	} else if info, ierr := s.ledger.IssuerInfo(ctx, res.Submitter); ierr == nil {
		trusted = info.Registered && !info.Revoked
	}

	revoked := res.Revoked || (cred != nil && cred.Revoked)
	outcome := s.classify(ctx, trusted, revoked, cred, meta)
	credID := ""
	if cred != nil {
		credID = cred.ID.String()
	}
	s.record(ctx, outcome, credID, digest.Hex(), meta)
	return outcome, nil
}

// assess resolves trust and revocation for a signature-valid token.
func (s *Service) assess(ctx context.Context, digest common.Hash, issuerID uuid.UUID, meta models.RequestMeta) *Outcome {
	trusted, err := s.issuers.Trusted(ctx, issuerID)
	if err != nil {
		s.logger.WarnContext(ctx, "issuer trust lookup failed", "issuer_id", issuerID, "error", err)
		trusted = false
	}

	cred, _ := s.creds.FindByHash(ctx, digest)

	revoked, rerr := s.ledger.IsRevoked(ctx, digest)
	if rerr != nil {
		revoked = cred != nil && cred.Revoked
	} else if cred != nil && cred.Revoked {
		revoked = true
	}

	return s.classify(ctx, trusted, revoked, cred, meta)
}

func (s *Service) classify(ctx context.Context, trusted, revoked bool, cred *credmodels.Credential, meta models.RequestMeta) *Outcome {
	outcome := &Outcome{
		Revoked:       revoked,
		IssuerTrusted: trusted,
		Credential:    cred,
	}
	switch {
	case revoked:
		outcome.Status = models.ResultFailed
		outcome.Reason = "credential revoked"
	case !trusted:
		outcome.Status = models.ResultFailed
		outcome.Reason = "issuer not trusted"
	case s.suspicious(ctx, meta):
		outcome.Valid = true
		outcome.Status = models.ResultSuspicious
		outcome.Reason = "verification velocity"
	default:
		outcome.Valid = true
		outcome.Status = models.ResultVerified
	}

	if outcome.Valid && cred != nil {
		s.creds.TouchUsage(ctx, cred.ID)
	}
	return outcome
}

// verifyHashLocally answers a hash check from the credential store when the
// ledger read fails outright.
func (s *Service) verifyHashLocally(ctx context.Context, digest common.Hash, meta models.RequestMeta) (*Outcome, error) {
	cred, err := s.creds.FindByHash(ctx, digest)
	if err != nil || cred == nil || !cred.Anchored() {
		outcome := &Outcome{Status: models.ResultFailed, Reason: "hash not anchored"}
		s.record(ctx, outcome, "", digest.Hex(), meta)
		return outcome, nil
	}
	trusted, _ := s.issuers.Trusted(ctx, cred.IssuerID)
	outcome := s.classify(ctx, trusted, cred.Revoked, cred, meta)
	s.record(ctx, outcome, cred.ID.String(), digest.Hex(), meta)
	return outcome, nil
}

func (s *Service) suspicious(ctx context.Context, meta models.RequestMeta) bool {
	if s.risk == nil {
		return false
	}
	prior := 0
	if meta.VerifierID != "" {
		if count, err := s.records.CountByVerifier(ctx, meta.VerifierID); err == nil {
			prior = count
		}
	}
	return s.risk.Suspicious(ctx, meta, prior)
}

// record appends the verification trail entry. Append failures are logged,
// never surfaced.
func (s *Service) record(ctx context.Context, outcome *Outcome, credentialID, contentHash string, meta models.RequestMeta) {
	rec := models.Record{
		ID:           uuid.New(),
		CredentialID: credentialID,
		ContentHash:  contentHash,
		VerifierID:   meta.VerifierID,
		Result:       outcome.Status,
		Reason:       outcome.Reason,
		IP:           meta.IP,
		Device:       device.Summarize(meta.UserAgent),
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.records.Append(ctx, rec); err != nil {
		s.logger.ErrorContext(ctx, "failed to append verification record", "error", err)
	}

	if s.metrics != nil {
		s.metrics.ObserveVerification(string(outcome.Status))
	}
	s.emit(ctx, audit.NewEvent(audit.ActionVerification, "", credentialID, string(outcome.Status)).
		WithDetail("reason", outcome.Reason))
}

// History lists the verification trail for a credential.
func (s *Service) History(ctx context.Context, credentialID string) ([]models.Record, error) {
	return s.records.ListByCredential(ctx, credentialID)
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.audit != nil {
		s.audit.Publish(ctx, event)
	}
}
