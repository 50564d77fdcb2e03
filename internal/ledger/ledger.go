// Package ledger adapts the registry ledger for the rest of the service.
//
// The backend is chosen once at construction: live (an Ethereum registry
// contract) or simulated (the in-process registry state machine). Call sites
// are backend-agnostic; development and tests run fully against simulated
// mode without an RPC endpoint.
package ledger

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Backend is the registry ledger seen through one mode. Implementations must
// enforce identical uniqueness and ownership invariants so switching modes
// changes no caller-visible behaviour.
type Backend interface {
	RegisterIssuer(ctx context.Context, identity common.Address, did, domain string) (string, error)
	RevokeIssuer(ctx context.Context, identity common.Address) (string, error)
	Anchor(ctx context.Context, identity common.Address, digest common.Hash) (string, error)
	Revoke(ctx context.Context, identity common.Address, digest common.Hash, reason string) (string, error)
	Verify(ctx context.Context, digest common.Hash) (VerifyResult, error)
	IsRevoked(ctx context.Context, digest common.Hash) (bool, error)
	IssuerInfo(ctx context.Context, identity common.Address) (IssuerInfo, error)

	// Configured reports whether a real ledger endpoint backs this instance.
	Configured() bool
}

// TxResult reports the outcome of a state-mutating ledger call. Err carries
// the typed domain error when Success is false.
type TxResult struct {
	Success   bool
	Reference string
	Err       error
}

// VerifyResult is the read-side view of an anchor. Reads never fail on the
// ledger itself; Exists false simply means the hash is unknown.
type VerifyResult struct {
	Exists     bool
	Revoked    bool
	Submitter  common.Address
	AnchoredAt time.Time
}

// IssuerInfo mirrors the on-chain issuer record.
type IssuerInfo struct {
	Identity   common.Address
	DID        string
	Domain     string
	Registered bool
	Revoked    bool
}
