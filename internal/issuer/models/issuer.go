package models

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

// Issuer is an organization authorized to anchor credentials. Identity is
// its address on the registry ledger; SecretHash holds the bcrypt hash of
// the API secret returned exactly once at registration.
type Issuer struct {
	ID         uuid.UUID
	Name       string
	DID        string
	Domain     string
	Identity   common.Address
	SecretHash []byte
	WebhookURL string
	Revoked    bool
	CreatedAt  time.Time
	RevokedAt  *time.Time
}

// Trusted reports whether credentials from this issuer should verify.
func (i *Issuer) Trusted() bool {
	return !i.Revoked
}
