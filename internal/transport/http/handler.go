// Package httptransport is the thin HTTP layer. Handlers decode requests,
// authenticate the caller and delegate to the domain services.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	bulkmodels "credverse/internal/bulk/models"
	credmodels "credverse/internal/credential/models"
	credservice "credverse/internal/credential/service"
	issuermodels "credverse/internal/issuer/models"
	issuerservice "credverse/internal/issuer/service"
	"credverse/internal/share"
	verifmodels "credverse/internal/verification/models"
	verifservice "credverse/internal/verification/service"
)

// CredentialService is the issuance surface the handlers need.
type CredentialService interface {
	Issue(ctx context.Context, req credservice.IssueRequest) (*credmodels.Credential, error)
	Revoke(ctx context.Context, credentialID, actorID uuid.UUID, reason string) (*credmodels.Credential, error)
	Get(ctx context.Context, id uuid.UUID) (*credmodels.Credential, error)
}

// BulkService accepts and reports bulk jobs.
type BulkService interface {
	Submit(ctx context.Context, issuerID uuid.UUID, items []bulkmodels.Item) (*bulkmodels.Job, error)
	Get(ctx context.Context, id uuid.UUID) (*bulkmodels.Job, error)
}

// IssuerService manages issuer registration and lookups.
type IssuerService interface {
	Register(ctx context.Context, req issuerservice.RegisterRequest) (*issuermodels.Issuer, string, error)
	Revoke(ctx context.Context, id uuid.UUID) (*issuermodels.Issuer, error)
	Get(ctx context.Context, id uuid.UUID) (*issuermodels.Issuer, error)
	Authenticate(ctx context.Context, id uuid.UUID, secret string) (*issuermodels.Issuer, error)
}

// VerificationService answers verification checks.
type VerificationService interface {
	VerifyToken(ctx context.Context, tokenString string, meta verifmodels.RequestMeta) (*verifservice.Outcome, error)
	VerifyHash(ctx context.Context, digest common.Hash, meta verifmodels.RequestMeta) (*verifservice.Outcome, error)
}

// ShareService mints and resolves share links.
type ShareService interface {
	Create(ctx context.Context, credentialID, ownerID uuid.UUID) (*share.Share, error)
	Resolve(ctx context.Context, id string) (*share.Share, error)
}

// Handler bundles the domain services behind the router.
type Handler struct {
	credentials  CredentialService
	bulk         BulkService
	issuers      IssuerService
	verification VerificationService
	shares       ShareService
	logger       *slog.Logger
}

func NewHandler(
	credentials CredentialService,
	bulk BulkService,
	issuers IssuerService,
	verification VerificationService,
	shares ShareService,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		credentials:  credentials,
		bulk:         bulk,
		issuers:      issuers,
		verification: verification,
		shares:       shares,
		logger:       logger,
	}
}

// authenticateIssuer resolves the caller from the issuer auth headers.
func (h *Handler) authenticateIssuer(r *http.Request) (*issuermodels.Issuer, error) {
	id, err := uuid.Parse(r.Header.Get("X-Issuer-ID"))
	if err != nil {
		return nil, errMissingIssuerAuth
	}
	secret := r.Header.Get("X-Issuer-Secret")
	if secret == "" {
		return nil, errMissingIssuerAuth
	}
	return h.issuers.Authenticate(r.Context(), id, secret)
}

func requestMeta(r *http.Request) verifmodels.RequestMeta {
	return verifmodels.RequestMeta{
		VerifierID: r.Header.Get("X-Verifier-ID"),
		IP:         r.RemoteAddr,
		UserAgent:  r.UserAgent(),
	}
}
