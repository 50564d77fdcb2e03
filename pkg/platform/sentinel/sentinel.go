package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores, the simulated registry,
// and the live contract binding return these (optionally wrapped) so services
// can translate them into domain errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: entity does not exist in store or registry
// - ErrConflict: uniqueness violated (e.g. a hash already anchored)
// - ErrAlreadyRevoked: revoked flag already set; revocation is monotonic
// - ErrIssuerRevoked: the acting issuer capability has been revoked
// - ErrNotOwner: caller is not the recorded submitter of an anchor
// - ErrInvalidState: entity in wrong state for requested operation
// - ErrUnavailable: backend temporarily unreachable (retryable by callers)
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound       = errors.New("not found")
	ErrConflict       = errors.New("conflict")
	ErrAlreadyRevoked = errors.New("already revoked")
	ErrIssuerRevoked  = errors.New("issuer revoked")
	ErrNotOwner       = errors.New("not owner")
	ErrInvalidState   = errors.New("invalid state")
	ErrUnavailable    = errors.New("unavailable")
)
