// Package audit defines the append-only audit trail for ledger-facing
// operations. Every issuance, anchor, revocation, bulk run and verification
// leaves an event behind.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Action identifies the operation that produced an event.
type Action string

const (
	ActionIssuerRegistered    Action = "issuer_registered"
	ActionIssuerRevoked       Action = "issuer_revoked"
	ActionCredentialIssued    Action = "credential_issued"
	ActionCredentialAnchored  Action = "credential_anchored"
	ActionCredentialRevoked   Action = "credential_revoked"
	ActionBulkJobSubmitted    Action = "bulk_job_submitted"
	ActionBulkJobCompleted    Action = "bulk_job_completed"
	ActionVerification        Action = "verification_performed"
	ActionShareCreated        Action = "share_created"
)

// Event is a single audit trail entry. Outcome is "success" or "failure";
// Detail carries operation-specific context such as a ledger tx reference.
type Event struct {
	ID           uuid.UUID
	Action       Action
	IssuerID     string
	CredentialID string
	Outcome      string
	Detail       map[string]string
	Timestamp    time.Time
}

// NewEvent builds an event with a fresh ID and the current time.
func NewEvent(action Action, issuerID, credentialID, outcome string) Event {
	return Event{
		ID:           uuid.New(),
		Action:       action,
		IssuerID:     issuerID,
		CredentialID: credentialID,
		Outcome:      outcome,
		Timestamp:    time.Now().UTC(),
	}
}

// WithDetail returns a copy of the event with an extra detail field set.
func (e Event) WithDetail(key, value string) Event {
	detail := make(map[string]string, len(e.Detail)+1)
	for k, v := range e.Detail {
		detail[k] = v
	}
	detail[key] = value
	e.Detail = detail
	return e
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByIssuer(ctx context.Context, issuerID string) ([]Event, error)
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}

// Publisher accepts events for eventual persistence. Implementations must
// never block the calling operation on sink failures.
type Publisher interface {
	Publish(ctx context.Context, event Event)
}
