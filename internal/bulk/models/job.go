package models

import (
	"time"

	"github.com/google/uuid"

	"credverse/internal/ledger/hash"
)

// Status is the lifecycle of a bulk job. A job that started processing
// always ends completed; failed means the job could not start at all.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Item is one credential to issue within a bulk job.
type Item struct {
	TemplateID     string        `json:"template_id"`
	Recipient      string        `json:"recipient"`
	RecipientEmail string        `json:"recipient_email,omitempty"`
	Payload        hash.Payload  `json:"payload"`
	ExpiresIn      time.Duration `json:"expires_in,omitempty"`
}

// ItemResult is the outcome slot for one item. Slots are allocated at
// submission so results always line up with submission order.
type ItemResult struct {
	Index        int    `json:"index"`
	CredentialID string `json:"credential_id,omitempty"`
	Error        string `json:"error,omitempty"`
}

// Job tracks a batch issuance run and its per-item results.
type Job struct {
	ID          uuid.UUID    `json:"id"`
	IssuerID    uuid.UUID    `json:"issuer_id"`
	Status      Status       `json:"status"`
	Items       []Item       `json:"items"`
	Results     []ItemResult `json:"results"`
	Total       int          `json:"total"`
	Processed   int          `json:"processed"`
	Succeeded   int          `json:"succeeded"`
	Failed      int          `json:"failed"`
	Errors      []string     `json:"errors,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	StartedAt   *time.Time   `json:"started_at,omitempty"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
}
