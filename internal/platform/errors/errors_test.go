package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestErrorIsMatchesByCode(t *testing.T) {
	t.Parallel()

	sentinel := New(CodeAnswerDuplicate, "expert already answered")
	err := fmt.Errorf("create answer: %w", New(CodeAnswerDuplicate, "different message"))
	if !stderrors.Is(err, sentinel) {
		t.Fatal("expected wrapped error to match sentinel by code")
	}
	if stderrors.Is(err, New(CodeNotFound, "")) {
		t.Fatal("expected code mismatch to fail")
	}
}

func TestWrapKeepsCause(t *testing.T) {
	t.Parallel()

	cause := stderrors.New("connection refused")
	err := Wrap(CodeExternalServiceFailed, "facebook publish failed", cause)
	if !stderrors.Is(err, cause) {
		t.Fatal("expected cause to be reachable")
	}
	if got := err.Error(); got != "facebook publish failed: connection refused" {
		t.Fatalf("error = %q", got)
	}
}

func TestCodeClassification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		code   Code
		kind   Kind
		status int
	}{
		{CodeValidationFailed, KindValidation, http.StatusBadRequest},
		{CodeNotFound, KindNotFound, http.StatusNotFound},
		{CodePermissionDenied, KindAuthorization, http.StatusForbidden},
		{CodeUnauthenticated, KindAuthorization, http.StatusUnauthorized},
		{CodeAnswerSelfAnswer, KindConflict, http.StatusConflict},
		{CodeAnswerDuplicate, KindConflict, http.StatusConflict},
		{CodeAnswerAlreadyAccepted, KindConflict, http.StatusConflict},
		{CodeAnswerNotApproved, KindConflict, http.StatusConflict},
		{CodeAnswerStateUnchanged, KindConflict, http.StatusConflict},
		{CodeExternalServiceFailed, KindExternalService, http.StatusBadGateway},
		{CodeLinkedInReauthRequired, KindExternalService, http.StatusBadGateway},
		{CodeUnknown, KindInternal, http.StatusInternalServerError},
	}
	for _, tc := range tests {
		t.Run(string(tc.code), func(t *testing.T) {
			if got := tc.code.Kind(); got != tc.kind {
				t.Errorf("Kind() = %q, want %q", got, tc.kind)
			}
			if got := tc.code.HTTPStatus(); got != tc.status {
				t.Errorf("HTTPStatus() = %d, want %d", got, tc.status)
			}
		})
	}
}

func TestKindOf(t *testing.T) {
	t.Parallel()

	if got := KindOf(nil); got != "" {
		t.Fatalf("KindOf(nil) = %q, want empty", got)
	}
	if got := KindOf(stderrors.New("boom")); got != KindInternal {
		t.Fatalf("KindOf(plain) = %q, want %q", got, KindInternal)
	}
	wrapped := fmt.Errorf("op: %w", New(CodeNotFound, "answer not found"))
	if got := KindOf(wrapped); got != KindNotFound {
		t.Fatalf("KindOf(wrapped) = %q, want %q", got, KindNotFound)
	}
}
