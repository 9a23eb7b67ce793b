package errors

import (
	"fmt"
	"net/http"
	"testing"
)

func TestCategorize(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"validation", NewValidationError("Email and password are required"), http.StatusBadRequest, CodeInvalidInput},
		{"ambiguous job", NewAmbiguousJobError(2), http.StatusBadRequest, CodeJobRequired},
		{"unauthorized", NewUnauthorizedError("Invalid email or password"), http.StatusUnauthorized, CodeUnauthorized},
		{"not found", NewNotFoundError("No active jobs found"), http.StatusNotFound, CodeNotFound},
		{"email in use", NewEmailInUseError(), http.StatusBadRequest, CodeEmailInUse},
		{"wrapped", fmt.Errorf("service: %w", NewNotFoundError("gone")), http.StatusNotFound, CodeNotFound},
		{"plain", fmt.Errorf("connection reset"), http.StatusInternalServerError, CodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Categorize(tt.err)
			if got.StatusCode != tt.wantStatus {
				t.Errorf("StatusCode = %d, want %d", got.StatusCode, tt.wantStatus)
			}
			if got.Code != tt.wantCode {
				t.Errorf("Code = %s, want %s", got.Code, tt.wantCode)
			}
		})
	}
}

func TestPublicMessage_HidesInternalCause(t *testing.T) {
	err := NewDatabaseError("insert user", fmt.Errorf("duplicate key value violates constraint"))

	if got := err.PublicMessage(); got != InternalMessage {
		t.Errorf("PublicMessage() = %q, want %q", got, InternalMessage)
	}
	if !IsSystemError(err) {
		t.Error("database error should be a system error")
	}
}

func TestIsUserError(t *testing.T) {
	if !IsUserError(NewValidationError("bad")) {
		t.Error("validation error should be a user error")
	}
	if IsUserError(NewInternalError("boom", nil)) {
		t.Error("internal error should not be a user error")
	}
	if IsUserError(nil) {
		t.Error("nil should not be a user error")
	}
}
