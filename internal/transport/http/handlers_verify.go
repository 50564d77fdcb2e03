package httptransport

import (
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"

	verifservice "credverse/internal/verification/service"
	dErrors "credverse/pkg/domain-errors"
)

type verifyResponse struct {
	Valid         bool   `json:"valid"`
	Revoked       bool   `json:"revoked"`
	IssuerTrusted bool   `json:"issuer_trusted"`
	Status        string `json:"status"`
	Reason        string `json:"reason,omitempty"`
	CredentialID  string `json:"credential_id,omitempty"`
	ContentHash   string `json:"content_hash,omitempty"`
}

func toVerifyResponse(outcome *verifservice.Outcome) verifyResponse {
	resp := verifyResponse{
		Valid:         outcome.Valid,
		Revoked:       outcome.Revoked,
		IssuerTrusted: outcome.IssuerTrusted,
		Status:        string(outcome.Status),
		Reason:        outcome.Reason,
	}
	if outcome.Credential != nil {
		resp.CredentialID = outcome.Credential.ID.String()
		resp.ContentHash = outcome.Credential.ContentHash.Hex()
	}
	return resp
}

func (h *Handler) handleVerifyToken(w http.ResponseWriter, r *http.Request) {
	tokenString := r.URL.Query().Get("token")
	if tokenString == "" {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "token query parameter is required"))
		return
	}
	outcome, err := h.verification.VerifyToken(r.Context(), tokenString, requestMeta(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toVerifyResponse(outcome))
}

func (h *Handler) handleVerifyHash(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "hash")
	if len(common.FromHex(raw)) != common.HashLength {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "hash must be 32 hex bytes"))
		return
	}
	outcome, err := h.verification.VerifyHash(r.Context(), common.HexToHash(raw), requestMeta(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toVerifyResponse(outcome))
}
