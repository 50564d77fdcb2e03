package ledger

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"credverse/internal/ledger/hash"
	"credverse/internal/ledger/registry"
	"credverse/internal/platform/metrics"
	dErrors "credverse/pkg/domain-errors"
	"credverse/pkg/platform/sentinel"
)

const defaultCallTimeout = 10 * time.Second

// Adapter is backend-agnostic access to the registry ledger. Mutating calls
// are wrapped with a timeout so a hung RPC can never block the orchestrator;
// a timed-out call is a failed call. The adapter never retries internally;
// retry policy belongs to callers.
type Adapter struct {
	backend Backend
	timeout time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option configures optional adapter collaborators.
type Option func(*Adapter)

// WithMetrics records the duration of every backend call.
func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Adapter) {
		a.metrics = m
	}
}

// New builds an adapter over backend. timeout bounds every ledger call; zero
// selects the default.
func New(backend Backend, timeout time.Duration, logger *slog.Logger, opts ...Option) *Adapter {
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}
	a := &Adapter{backend: backend, timeout: timeout, logger: logger}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// IsConfigured reports whether a live ledger endpoint backs this adapter.
func (a *Adapter) IsConfigured() bool {
	return a.backend.Configured()
}

// HashPayload computes the canonical content digest used as the anchor key.
func (a *Adapter) HashPayload(payload hash.Payload) (common.Hash, error) {
	digest, err := hash.Content(payload)
	if err != nil {
		return common.Hash{}, dErrors.Wrap(err, dErrors.CodeInvalidInput, "payload cannot be canonicalized")
	}
	return digest, nil
}

// RegisterIssuer commits an issuer registration.
func (a *Adapter) RegisterIssuer(ctx context.Context, identity common.Address, did, domain string) TxResult {
	return a.transact(ctx, "register_issuer", func(ctx context.Context) (string, error) {
		return a.backend.RegisterIssuer(ctx, identity, did, domain)
	})
}

// RevokeIssuer commits an issuer revocation.
func (a *Adapter) RevokeIssuer(ctx context.Context, identity common.Address) TxResult {
	return a.transact(ctx, "revoke_issuer", func(ctx context.Context) (string, error) {
		return a.backend.RevokeIssuer(ctx, identity)
	})
}

// Anchor commits a content hash for identity.
func (a *Adapter) Anchor(ctx context.Context, identity common.Address, digest common.Hash) TxResult {
	return a.transact(ctx, "anchor", func(ctx context.Context) (string, error) {
		return a.backend.Anchor(ctx, identity, digest)
	})
}

// Revoke flips the permanent revocation flag for digest.
func (a *Adapter) Revoke(ctx context.Context, identity common.Address, digest common.Hash, reason string) TxResult {
	return a.transact(ctx, "revoke", func(ctx context.Context) (string, error) {
		return a.backend.Revoke(ctx, identity, digest, reason)
	})
}

// Verify reads anchor existence and revocation state. A backend read failure
// surfaces as an error so callers can fall back to local state.
func (a *Adapter) Verify(ctx context.Context, digest common.Hash) (VerifyResult, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	defer a.observe(time.Now())

	result, err := a.backend.Verify(ctx, digest)
	if err != nil {
		return VerifyResult{}, translate(err)
	}
	return result, nil
}

// IsRevoked reads the revocation flag for digest.
func (a *Adapter) IsRevoked(ctx context.Context, digest common.Hash) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	defer a.observe(time.Now())

	revoked, err := a.backend.IsRevoked(ctx, digest)
	if err != nil {
		return false, translate(err)
	}
	return revoked, nil
}

// IssuerInfo reads the registry issuer record.
func (a *Adapter) IssuerInfo(ctx context.Context, identity common.Address) (IssuerInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	defer a.observe(time.Now())

	info, err := a.backend.IssuerInfo(ctx, identity)
	if err != nil {
		return IssuerInfo{}, translate(err)
	}
	return info, nil
}

func (a *Adapter) transact(ctx context.Context, op string, fn func(ctx context.Context) (string, error)) TxResult {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	defer a.observe(time.Now())

	reference, err := fn(ctx)
	if err != nil {
		translated := translate(err)
		if a.logger != nil {
			a.logger.WarnContext(ctx, "ledger call failed",
				"op", op,
				"code", string(dErrors.CodeOf(translated)),
				"error", err.Error(),
			)
		}
		return TxResult{Success: false, Err: translated}
	}
	return TxResult{Success: true, Reference: reference}
}

func (a *Adapter) observe(start time.Time) {
	if a.metrics != nil {
		a.metrics.ObserveLedgerCall(start)
	}
}

// translate maps backend sentinels onto the domain error taxonomy. Both
// backends return the same sentinel set, so the mapping lives in one place.
func translate(err error) error {
	switch {
	case errors.Is(err, registry.ErrInvalidIdentity), errors.Is(err, registry.ErrInvalidInput):
		return dErrors.Wrap(err, dErrors.CodeInvalidInput, err.Error())
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeAlreadyExists, "hash already anchored")
	case errors.Is(err, sentinel.ErrAlreadyRevoked):
		return dErrors.Wrap(err, dErrors.CodeAlreadyRevoked, "already revoked")
	case errors.Is(err, sentinel.ErrIssuerRevoked):
		return dErrors.Wrap(err, dErrors.CodeIssuerRevoked, "issuer capability revoked")
	case errors.Is(err, sentinel.ErrNotOwner):
		return dErrors.Wrap(err, dErrors.CodeUnauthorizedRevocation, "caller is not the submitter")
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return dErrors.Wrap(err, dErrors.CodeTimeout, "ledger call timed out")
	default:
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "ledger unavailable")
	}
}
