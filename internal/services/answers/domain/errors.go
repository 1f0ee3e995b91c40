package domain

import (
	"errors"

	apperrors "github.com/louisbranch/answerdesk/internal/platform/errors"
)

var (
	// ErrNotFound is returned by stores when a record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned by stores when a write violates a uniqueness or
	// conditional-update guard.
	ErrConflict = errors.New("record conflict")
	// ErrStoreNotConfigured indicates the manager is missing persistence wiring.
	ErrStoreNotConfigured = errors.New("answer store is not configured")
)

var (
	ErrAnswerNotFound   = apperrors.New(apperrors.CodeNotFound, "answer not found")
	ErrQuestionNotFound = apperrors.New(apperrors.CodeNotFound, "question not found")
	ErrUserNotFound     = apperrors.New(apperrors.CodeNotFound, "user not found")

	ErrSelfAnswer      = apperrors.New(apperrors.CodeAnswerSelfAnswer, "experts cannot answer their own question")
	ErrDuplicateAnswer = apperrors.New(apperrors.CodeAnswerDuplicate, "expert already answered this question")
	ErrAlreadyAccepted = apperrors.New(apperrors.CodeAnswerAlreadyAccepted, "question already has an accepted answer")
	ErrNotApproved     = apperrors.New(apperrors.CodeAnswerNotApproved, "answer is not approved")
	ErrStateUnchanged  = apperrors.New(apperrors.CodeAnswerStateUnchanged, "answer is already in the requested moderation state")

	ErrNotExpert          = apperrors.New(apperrors.CodePermissionDenied, "only experts can answer questions")
	ErrCannotModerate     = apperrors.New(apperrors.CodePermissionDenied, "moderation requires moderator capability")
	ErrNotAnswerAuthor    = apperrors.New(apperrors.CodePermissionDenied, "only the author or an administrator can change this answer")
	ErrNotQuestionAuthor  = apperrors.New(apperrors.CodePermissionDenied, "only the question author can accept an answer")
	ErrDeleteAfterApprove = apperrors.New(apperrors.CodePermissionDenied, "answers that were approved can only be deleted by an administrator")
)

// validationError builds a field-scoped validation failure.
func validationError(field string, message string) error {
	return apperrors.WithMetadata(apperrors.CodeValidationFailed, message, map[string]string{"field": field})
}

// notFound maps a store miss to the given domain error and passes other
// failures through unchanged.
func notFound(err error, domainErr error) error {
	if errors.Is(err, ErrNotFound) {
		return domainErr
	}
	return err
}
