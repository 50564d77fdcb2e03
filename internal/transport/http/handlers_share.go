package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	dErrors "credverse/pkg/domain-errors"
)

func (h *Handler) handleShareCredential(w http.ResponseWriter, r *http.Request) {
	issuer, err := h.authenticateIssuer(r)
	if err != nil {
		writeError(w, err)
		return
	}
	credID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid credential id"))
		return
	}

	cred, err := h.credentials.Get(r.Context(), credID)
	if err != nil {
		writeError(w, err)
		return
	}
	if cred.IssuerID != issuer.ID {
		writeError(w, dErrors.New(dErrors.CodeForbidden, "credential belongs to another issuer"))
		return
	}

	created, err := h.shares.Create(r.Context(), credID, issuer.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) handleResolveShare(w http.ResponseWriter, r *http.Request) {
	resolved, err := h.shares.Resolve(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	cred, err := h.credentials.Get(r.Context(), resolved.CredentialID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"share":      resolved,
		"credential": toCredentialResponse(cred, true),
	})
}
