package httptransport

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	issuermodels "credverse/internal/issuer/models"
	issuerservice "credverse/internal/issuer/service"
	dErrors "credverse/pkg/domain-errors"
)

type issuerResponse struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	DID       string     `json:"did"`
	Domain    string     `json:"domain"`
	Identity  string     `json:"identity"`
	Revoked   bool       `json:"revoked"`
	CreatedAt time.Time  `json:"created_at"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
	// APISecret is only set in the registration response.
	APISecret string `json:"api_secret,omitempty"`
}

func toIssuerResponse(issuer *issuermodels.Issuer, secret string) issuerResponse {
	return issuerResponse{
		ID:        issuer.ID.String(),
		Name:      issuer.Name,
		DID:       issuer.DID,
		Domain:    issuer.Domain,
		Identity:  issuer.Identity.Hex(),
		Revoked:   issuer.Revoked,
		CreatedAt: issuer.CreatedAt,
		RevokedAt: issuer.RevokedAt,
		APISecret: secret,
	}
}

func (h *Handler) handleRegisterIssuer(w http.ResponseWriter, r *http.Request) {
	var req registerIssuerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "malformed request body"))
		return
	}

	issuer, secret, err := h.issuers.Register(r.Context(), issuerservice.RegisterRequest{
		Name:       req.Name,
		DID:        req.DID,
		Domain:     req.Domain,
		WebhookURL: req.WebhookURL,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toIssuerResponse(issuer, secret))
}

func (h *Handler) handleRevokeIssuer(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid issuer id"))
		return
	}
	issuer, err := h.issuers.Revoke(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toIssuerResponse(issuer, ""))
}

func (h *Handler) handleGetIssuer(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid issuer id"))
		return
	}
	issuer, err := h.issuers.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toIssuerResponse(issuer, ""))
}
