package httptransport

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	credmodels "credverse/internal/credential/models"
	credservice "credverse/internal/credential/service"
	dErrors "credverse/pkg/domain-errors"
)

var errMissingIssuerAuth = dErrors.New(dErrors.CodeUnauthorized, "issuer credentials required")

type credentialResponse struct {
	ID               string     `json:"id"`
	IssuerID         string     `json:"issuer_id"`
	TemplateID       string     `json:"template_id"`
	Recipient        string     `json:"recipient"`
	ContentHash      string     `json:"content_hash"`
	Token            string     `json:"token,omitempty"`
	Status           string     `json:"status"`
	LedgerRef        string     `json:"ledger_ref,omitempty"`
	Revoked          bool       `json:"revoked"`
	LedgerRevoked    bool       `json:"ledger_revoked"`
	RevocationReason string     `json:"revocation_reason,omitempty"`
	UsageCount       int        `json:"usage_count"`
	CreatedAt        time.Time  `json:"created_at"`
	AnchoredAt       *time.Time `json:"anchored_at,omitempty"`
	RevokedAt        *time.Time `json:"revoked_at,omitempty"`
}

func toCredentialResponse(cred *credmodels.Credential, includeToken bool) credentialResponse {
	resp := credentialResponse{
		ID:               cred.ID.String(),
		IssuerID:         cred.IssuerID.String(),
		TemplateID:       cred.TemplateID,
		Recipient:        cred.Recipient,
		ContentHash:      cred.ContentHash.Hex(),
		Status:           string(cred.Status),
		LedgerRef:        cred.LedgerRef,
		Revoked:          cred.Revoked,
		LedgerRevoked:    cred.LedgerRevoked,
		RevocationReason: cred.RevocationReason,
		UsageCount:       cred.UsageCount,
		CreatedAt:        cred.CreatedAt,
		AnchoredAt:       cred.AnchoredAt,
		RevokedAt:        cred.RevokedAt,
	}
	if includeToken {
		resp.Token = cred.Token
	}
	return resp
}

func (h *Handler) handleIssueCredential(w http.ResponseWriter, r *http.Request) {
	issuer, err := h.authenticateIssuer(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req issueCredentialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "malformed request body"))
		return
	}
	expiry, err := req.expiry()
	if err != nil {
		writeError(w, err)
		return
	}

	cred, err := h.credentials.Issue(r.Context(), credservice.IssueRequest{
		IssuerID:       issuer.ID,
		TemplateID:     req.TemplateID,
		Recipient:      req.Recipient,
		RecipientEmail: req.RecipientEmail,
		Payload:        req.Payload,
		ExpiresIn:      expiry,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCredentialResponse(cred, true))
}

func (h *Handler) handleGetCredential(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid credential id"))
		return
	}
	cred, err := h.credentials.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCredentialResponse(cred, false))
}

func (h *Handler) handleRevokeCredential(w http.ResponseWriter, r *http.Request) {
	issuer, err := h.authenticateIssuer(r)
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid credential id"))
		return
	}

	var req revokeCredentialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "malformed request body"))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, err)
		return
	}

	cred, err := h.credentials.Revoke(r.Context(), id, issuer.ID, req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCredentialResponse(cred, false))
}

func (h *Handler) handleBulkIssue(w http.ResponseWriter, r *http.Request) {
	issuer, err := h.authenticateIssuer(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req bulkIssueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "malformed request body"))
		return
	}
	items, err := req.toItems()
	if err != nil {
		writeError(w, err)
		return
	}

	job, err := h.bulk.Submit(r.Context(), issuer.ID, items)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, job)
}

func (h *Handler) handleGetBulkJob(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid job id"))
		return
	}
	job, err := h.bulk.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	// items are an internal processing detail
	job.Items = nil
	writeJSON(w, http.StatusOK, job)
}
