package httptransport

import (
	"strings"
	"time"

	bulkmodels "credverse/internal/bulk/models"
	"credverse/internal/ledger/hash"
	dErrors "credverse/pkg/domain-errors"
)

type issueCredentialRequest struct {
	TemplateID     string       `json:"template_id"`
	Recipient      string       `json:"recipient"`
	RecipientEmail string       `json:"recipient_email,omitempty"`
	Payload        hash.Payload `json:"payload"`
	ExpiresIn      string       `json:"expires_in,omitempty"`
}

func (r issueCredentialRequest) expiry() (time.Duration, error) {
	if r.ExpiresIn == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(r.ExpiresIn)
	if err != nil || d < 0 {
		return 0, dErrors.New(dErrors.CodeValidation, "expires_in must be a positive duration")
	}
	return d, nil
}

type bulkIssueRequest struct {
	Items []issueCredentialRequest `json:"items"`
}

func (r bulkIssueRequest) toItems() ([]bulkmodels.Item, error) {
	items := make([]bulkmodels.Item, len(r.Items))
	for i, item := range r.Items {
		expiry, err := item.expiry()
		if err != nil {
			return nil, err
		}
		items[i] = bulkmodels.Item{
			TemplateID:     item.TemplateID,
			Recipient:      item.Recipient,
			RecipientEmail: item.RecipientEmail,
			Payload:        item.Payload,
			ExpiresIn:      expiry,
		}
	}
	return items, nil
}

type revokeCredentialRequest struct {
	Reason string `json:"reason"`
}

func (r revokeCredentialRequest) validate() error {
	if strings.TrimSpace(r.Reason) == "" {
		return dErrors.New(dErrors.CodeValidation, "revocation reason is required")
	}
	return nil
}

type registerIssuerRequest struct {
	Name       string `json:"name"`
	DID        string `json:"did"`
	Domain     string `json:"domain"`
	WebhookURL string `json:"webhook_url,omitempty"`
}
