package dto

import "net/http"

// Error codes returned by the API
const (
	ErrCodeBadRequest       = "BAD_REQUEST"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeForbidden        = "FORBIDDEN"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeConflict         = "CONFLICT"
	ErrCodeInvalidState     = "INVALID_STATE"
	ErrCodeBlocked          = "BLOCKED_BY_RULE"
	ErrCodeWarning          = "GOVERNANCE_WARNING"
	ErrCodeApprovalRequired = "APPROVAL_REQUIRED"
	ErrCodeSelfApproval     = "SELF_APPROVAL"
	ErrCodeConfiguration    = "CONFIGURATION_ERROR"
	ErrCodeAccessDenied     = "MATRIX_ACCESS_DENIED"
	ErrCodeLimitExceeded    = "LIMIT_EXCEEDED"
	ErrCodeInternal         = "INTERNAL_ERROR"
)

// GetHTTPStatus maps an error code to its HTTP status
func GetHTTPStatus(code string) int {
	switch code {
	case ErrCodeBadRequest, ErrCodeInvalidState, ErrCodeConfiguration:
		return http.StatusBadRequest
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeForbidden, ErrCodeAccessDenied, ErrCodeSelfApproval:
		return http.StatusForbidden
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeConflict:
		return http.StatusConflict
	case ErrCodeBlocked, ErrCodeWarning, ErrCodeLimitExceeded:
		return http.StatusUnprocessableEntity
	case ErrCodeApprovalRequired:
		return http.StatusAccepted
	default:
		return http.StatusInternalServerError
	}
}
