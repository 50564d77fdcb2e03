package httpErrors

import (
	"net/http"

	dErrors "credverse/pkg/domain-errors"
)

// ToHTTPStatus maps a domain error code to an HTTP status so handlers stay
// free of per-endpoint switch statements. Ledger conflicts and revocation
// ownership violations get their own statuses because verifiers and issuer
// integrations branch on them.
func ToHTTPStatus(code dErrors.Code) int {
	switch code {
	case dErrors.CodeInvalidInput, dErrors.CodeBadRequest, dErrors.CodeValidation:
		return http.StatusBadRequest
	case dErrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case dErrors.CodeForbidden, dErrors.CodeUnauthorizedRevocation, dErrors.CodeIssuerRevoked:
		return http.StatusForbidden
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeConflict, dErrors.CodeAlreadyExists, dErrors.CodeAlreadyRevoked:
		return http.StatusConflict
	case dErrors.CodeBatchTooLarge:
		return http.StatusRequestEntityTooLarge
	case dErrors.CodeSignatureInvalid:
		// Verification fails closed with a definitive verdict; reaching this
		// mapping means a caller surfaced the code as an error instead.
		return http.StatusUnprocessableEntity
	case dErrors.CodeTimeout:
		return http.StatusGatewayTimeout
	case dErrors.CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
