package ledger

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"credverse/internal/ledger/registry"
)

// simReferencePrefix marks synthetic transaction references so they can never
// be mistaken for a live transaction hash.
const simReferencePrefix = "sim-"

// Simulated is the offline backend. It drives the in-process registry state
// machine and synthesizes internally consistent transaction references, so
// downstream logic exercises its full path without an RPC endpoint.
type Simulated struct {
	reg   *registry.Registry
	admin common.Address
	nonce atomic.Uint64
}

// NewSimulated builds a simulated backend around reg, with admin holding the
// issuer-revocation capability.
func NewSimulated(reg *registry.Registry, admin common.Address) *Simulated {
	return &Simulated{reg: reg, admin: admin}
}

func (s *Simulated) Configured() bool { return false }

func (s *Simulated) RegisterIssuer(_ context.Context, identity common.Address, did, domain string) (string, error) {
	if err := s.reg.RegisterIssuer(identity, did, domain); err != nil {
		return "", err
	}
	return s.reference(common.BytesToHash(identity.Bytes())), nil
}

func (s *Simulated) RevokeIssuer(_ context.Context, identity common.Address) (string, error) {
	if err := s.reg.RevokeIssuer(s.admin, identity); err != nil {
		return "", err
	}
	return s.reference(common.BytesToHash(identity.Bytes())), nil
}

func (s *Simulated) Anchor(_ context.Context, identity common.Address, digest common.Hash) (string, error) {
	if err := s.reg.Anchor(identity, digest); err != nil {
		return "", err
	}
	return s.reference(digest), nil
}

func (s *Simulated) Revoke(_ context.Context, identity common.Address, digest common.Hash, reason string) (string, error) {
	if err := s.reg.Revoke(identity, digest, reason); err != nil {
		return "", err
	}
	return s.reference(digest), nil
}

func (s *Simulated) Verify(_ context.Context, digest common.Hash) (VerifyResult, error) {
	anchor := s.reg.AnchorInfo(digest)
	return VerifyResult{
		Exists:     anchor.Exists,
		Revoked:    s.reg.IsRevoked(digest),
		Submitter:  anchor.Submitter,
		AnchoredAt: anchor.Timestamp,
	}, nil
}

func (s *Simulated) IsRevoked(_ context.Context, digest common.Hash) (bool, error) {
	return s.reg.IsRevoked(digest), nil
}

func (s *Simulated) IssuerInfo(_ context.Context, identity common.Address) (IssuerInfo, error) {
	info := s.reg.IssuerInfo(identity)
	return IssuerInfo{
		Identity:   info.Identity,
		DID:        info.DID,
		Domain:     info.Domain,
		Registered: info.Registered,
		Revoked:    info.Revoked,
	}, nil
}

// reference synthesizes a plausible, unique transaction reference. The sim-
// prefix keeps it distinguishable from a genuine ledger transaction hash.
func (s *Simulated) reference(seed common.Hash) string {
	var nonce [8]byte
	binary.BigEndian.PutUint64(nonce[:], s.nonce.Add(1))
	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], uint64(time.Now().UnixNano()))
	digest := crypto.Keccak256Hash(seed.Bytes(), nonce[:], ts[:])
	return fmt.Sprintf("%s%s", simReferencePrefix, digest.Hex())
}
