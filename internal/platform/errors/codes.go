// Package errors provides structured, coded errors shared across services.
package errors

import "net/http"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Generic errors
	CodeValidationFailed Code = "VALIDATION_FAILED"
	CodeNotFound         Code = "NOT_FOUND"
	CodePermissionDenied Code = "PERMISSION_DENIED"
	CodeUnauthenticated  Code = "UNAUTHENTICATED"

	// Answer lifecycle errors
	CodeAnswerSelfAnswer      Code = "ANSWER_SELF_ANSWER"
	CodeAnswerDuplicate       Code = "ANSWER_DUPLICATE"
	CodeAnswerAlreadyAccepted Code = "ANSWER_ALREADY_ACCEPTED"
	CodeAnswerNotApproved     Code = "ANSWER_NOT_APPROVED"
	CodeAnswerStateUnchanged  Code = "ANSWER_STATE_UNCHANGED"

	// External platform errors
	CodeExternalServiceFailed  Code = "EXTERNAL_SERVICE_FAILED"
	CodeLinkedInReauthRequired Code = "LINKEDIN_REAUTH_REQUIRED"
)

// Kind is the coarse error taxonomy callers branch on.
type Kind string

const (
	KindValidation      Kind = "validation"
	KindNotFound        Kind = "not_found"
	KindAuthorization   Kind = "authorization"
	KindConflict        Kind = "conflict"
	KindExternalService Kind = "external_service"
	KindInternal        Kind = "internal"
)

// Kind maps a code to its taxonomy bucket.
func (c Code) Kind() Kind {
	switch c {
	case CodeValidationFailed:
		return KindValidation
	case CodeNotFound:
		return KindNotFound
	case CodePermissionDenied, CodeUnauthenticated:
		return KindAuthorization
	case CodeAnswerSelfAnswer,
		CodeAnswerDuplicate,
		CodeAnswerAlreadyAccepted,
		CodeAnswerNotApproved,
		CodeAnswerStateUnchanged:
		return KindConflict
	case CodeExternalServiceFailed, CodeLinkedInReauthRequired:
		return KindExternalService
	default:
		return KindInternal
	}
}

// HTTPStatus maps domain codes to HTTP response statuses.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeUnauthenticated:
		return http.StatusUnauthorized
	}
	switch c.Kind() {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindAuthorization:
		return http.StatusForbidden
	case KindConflict:
		return http.StatusConflict
	case KindExternalService:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
