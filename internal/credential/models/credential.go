package models

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"credverse/internal/ledger/hash"
)

// Status tracks a credential's anchoring lifecycle. Revocation is a
// separate monotonic flag so a credential stays anchored after revocation.
type Status string

const (
	StatusPending  Status = "pending"
	StatusAnchored Status = "anchored"
)

// Credential is an issued credential with its signed token and ledger
// anchoring state. LedgerRevoked records whether the on-ledger revocation
// succeeded; Revoked is the authoritative local flag.
type Credential struct {
	ID               uuid.UUID
	IssuerID         uuid.UUID
	TemplateID       string
	Recipient        string
	RecipientEmail   string
	Payload          hash.Payload
	ContentHash      common.Hash
	Token            string
	Status           Status
	LedgerRef        string
	Revoked          bool
	LedgerRevoked    bool
	RevocationReason string
	UsageCount       int
	CreatedAt        time.Time
	AnchoredAt       *time.Time
	RevokedAt        *time.Time
	ExpiresAt        *time.Time
}

// Anchored reports whether the credential hash is on the ledger.
func (c *Credential) Anchored() bool {
	return c.Status == StatusAnchored
}
