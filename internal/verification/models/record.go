package models

import (
	"time"

	"github.com/google/uuid"
)

// Result classifies a verification attempt.
type Result string

const (
	ResultVerified   Result = "verified"
	ResultFailed     Result = "failed"
	ResultSuspicious Result = "suspicious"
)

// Record is the audit row appended for every verification attempt,
// successful or not.
type Record struct {
	ID           uuid.UUID
	CredentialID string
	ContentHash  string
	VerifierID   string
	Result       Result
	Reason       string
	IP           string
	Device       string
	CreatedAt    time.Time
}

// RequestMeta carries verifier context captured at the transport edge.
type RequestMeta struct {
	VerifierID string
	IP         string
	UserAgent  string
}
