package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestConstructors(t *testing.T) {
	cause := errors.New("boom")

	tests := []struct {
		name       string
		err        *AppError
		errorType  ErrorType
		statusCode int
	}{
		{"validation", NewValidationError("bad", cause), ErrorTypeValidation, http.StatusBadRequest},
		{"network", NewNetworkError("bad", cause), ErrorTypeNetwork, http.StatusBadGateway},
		{"processing", NewProcessingError("bad", cause), ErrorTypeProcessing, http.StatusUnprocessableEntity},
		{"timeout", NewTimeoutError("bad", cause), ErrorTypeTimeout, http.StatusGatewayTimeout},
		{"internal", NewInternalError("bad", cause), ErrorTypeInternal, http.StatusInternalServerError},
		{"not found", NewNotFoundError("bad", cause), ErrorTypeNotFound, http.StatusNotFound},
		{"conflict", NewConflictError("bad", cause), ErrorTypeConflict, http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Type != tt.errorType {
				t.Errorf("Expected type %s, got %s", tt.errorType, tt.err.Type)
			}
			if tt.err.StatusCode != tt.statusCode {
				t.Errorf("Expected status %d, got %d", tt.statusCode, tt.err.StatusCode)
			}
			if !errors.Is(tt.err, cause) {
				t.Error("Expected cause to be unwrappable")
			}
		})
	}
}

func TestIsTypeThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("export csv: %w", NewValidationError("no images in batch", nil))

	if !IsType(wrapped, ErrorTypeValidation) {
		t.Error("Expected wrapped validation error to be detected")
	}
	if IsType(wrapped, ErrorTypeConflict) {
		t.Error("Expected wrapped validation error not to be a conflict")
	}
	if GetStatusCode(wrapped) != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", GetStatusCode(wrapped))
	}
	if GetStatusCode(errors.New("plain")) != http.StatusInternalServerError {
		t.Error("Expected 500 for plain errors")
	}
}

func TestWithDetails(t *testing.T) {
	base := NewConflictError("duplicate", nil)
	detailed := base.WithDetails("sequence 4")

	if detailed.Details != "sequence 4" {
		t.Errorf("Expected details, got %q", detailed.Details)
	}
	if base.Details != "" {
		t.Error("Expected original error to be unchanged")
	}
	if detailed.Error() != "conflict: duplicate" {
		t.Errorf("Expected message without cause, got %q", detailed.Error())
	}
}
