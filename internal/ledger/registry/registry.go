// Package registry implements the credential registry state machine: issuer
// registration, anchor commitments, and revocation flags.
//
// On a live deployment these rules are enforced by the on-chain contract and
// this package only backs the simulated ledger mode. The two must agree on
// every invariant so tests against simulated mode remain valid against the
// real ledger.
package registry

import (
	"errors"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"credverse/pkg/platform/sentinel"
)

var (
	// ErrInvalidIdentity rejects the zero address as an issuer identity.
	ErrInvalidIdentity = errors.New("invalid identity")
	// ErrInvalidInput rejects empty dids/domains and the zero hash.
	ErrInvalidInput = errors.New("invalid input")
)

// Issuer is the registered, non-revoked right of an identity to anchor and
// revoke credential hashes.
type Issuer struct {
	Identity     common.Address
	DID          string
	Domain       string
	Registered   bool
	Revoked      bool
	RegisteredAt time.Time
}

// Anchor is a commitment of a content hash, created exactly once per hash.
type Anchor struct {
	Hash      common.Hash
	Submitter common.Address
	Timestamp time.Time
	Exists    bool
}

// RevocationEvent is an append-only log entry emitted on credential revocation.
type RevocationEvent struct {
	Hash      common.Hash
	Revoker   common.Address
	Reason    string
	Timestamp time.Time
}

// Registry serializes all state mutations under one mutex, mirroring the
// native serialization guarantee of the ledger.
type Registry struct {
	mu      sync.RWMutex
	admin   common.Address
	issuers map[common.Address]*Issuer
	anchors map[common.Hash]*Anchor
	revoked map[common.Hash]bool
	events  []RevocationEvent
	now     func() time.Time
}

// New creates a registry administered by admin. The admin alone may revoke
// issuers; it needs no issuer capability of its own.
func New(admin common.Address) *Registry {
	return &Registry{
		admin:   admin,
		issuers: make(map[common.Address]*Issuer),
		anchors: make(map[common.Hash]*Anchor),
		revoked: make(map[common.Hash]bool),
		now:     time.Now,
	}
}

// RegisterIssuer grants identity an issuer capability.
func (r *Registry) RegisterIssuer(identity common.Address, did, domain string) error {
	if identity == (common.Address{}) {
		return ErrInvalidIdentity
	}
	if did == "" || domain == "" {
		return ErrInvalidInput
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.issuers[identity]; ok {
		return sentinel.ErrConflict
	}
	r.issuers[identity] = &Issuer{
		Identity:     identity,
		DID:          did,
		Domain:       domain,
		Registered:   true,
		RegisteredAt: r.now(),
	}
	return nil
}

// RevokeIssuer permanently strips identity's issuance capability. Anchors the
// issuer already made are untouched; only future anchor/revoke calls from the
// identity are blocked.
func (r *Registry) RevokeIssuer(admin, identity common.Address) error {
	if admin != r.admin {
		return sentinel.ErrNotOwner
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	issuer, ok := r.issuers[identity]
	if !ok {
		return sentinel.ErrNotFound
	}
	if issuer.Revoked {
		return sentinel.ErrAlreadyRevoked
	}
	issuer.Revoked = true
	return nil
}

// Anchor records a content hash commitment for identity. A hash can be
// anchored exactly once; a second attempt fails and leaves the original
// anchor untouched.
func (r *Registry) Anchor(identity common.Address, hash common.Hash) error {
	if hash == (common.Hash{}) {
		return ErrInvalidInput
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	issuer, ok := r.issuers[identity]
	if !ok {
		return sentinel.ErrNotFound
	}
	if issuer.Revoked {
		return sentinel.ErrIssuerRevoked
	}
	if _, ok := r.anchors[hash]; ok {
		return sentinel.ErrConflict
	}
	r.anchors[hash] = &Anchor{
		Hash:      hash,
		Submitter: identity,
		Timestamp: r.now(),
		Exists:    true,
	}
	return nil
}

// Revoke flips the permanent revoked flag for hash. Only the identity that
// submitted the anchor may revoke it.
func (r *Registry) Revoke(identity common.Address, hash common.Hash, reason string) error {
	if hash == (common.Hash{}) {
		return ErrInvalidInput
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	issuer, ok := r.issuers[identity]
	if !ok {
		return sentinel.ErrNotFound
	}
	if issuer.Revoked {
		return sentinel.ErrIssuerRevoked
	}
	anchor, ok := r.anchors[hash]
	if !ok {
		return sentinel.ErrNotFound
	}
	if r.revoked[hash] {
		return sentinel.ErrAlreadyRevoked
	}
	if anchor.Submitter != identity {
		return sentinel.ErrNotOwner
	}
	r.revoked[hash] = true
	r.events = append(r.events, RevocationEvent{
		Hash:      hash,
		Revoker:   identity,
		Reason:    reason,
		Timestamp: r.now(),
	})
	return nil
}

// AnchorInfo returns the anchor for hash. Reads never fail; unknown hashes
// return a zero anchor with Exists false.
func (r *Registry) AnchorInfo(hash common.Hash) Anchor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if anchor, ok := r.anchors[hash]; ok {
		return *anchor
	}
	return Anchor{Hash: hash}
}

// IssuerInfo returns the issuer record for identity, zero-valued when unknown.
func (r *Registry) IssuerInfo(identity common.Address) Issuer {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if issuer, ok := r.issuers[identity]; ok {
		return *issuer
	}
	return Issuer{Identity: identity}
}

// IsRevoked reports whether hash carries the permanent revoked flag.
func (r *Registry) IsRevoked(hash common.Hash) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.revoked[hash]
}

// Events returns a copy of the revocation event log.
func (r *Registry) Events() []RevocationEvent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]RevocationEvent, len(r.events))
	copy(out, r.events)
	return out
}
