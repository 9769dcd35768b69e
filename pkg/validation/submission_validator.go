package validation

import (
	"fmt"
	"strings"

	apperrors "github.com/anime-shed/face-batch-inspector-go/internal/errors"
	"github.com/anime-shed/face-batch-inspector-go/pkg/models"
)

// SubmissionValidator checks the envelope of a result submission before it reaches the collector.
// Payload content is the normalizer's concern.
type SubmissionValidator struct {
	maxFilenameLength int
	allowedBackends   []models.BackendID
}

// NewSubmissionValidator creates a validator accepting every known backend
func NewSubmissionValidator() *SubmissionValidator {
	return &SubmissionValidator{
		maxFilenameLength: 255,
		allowedBackends:   models.AllBackends,
	}
}

// NewSubmissionValidatorWithBackends restricts submissions to the given backends
func NewSubmissionValidatorWithBackends(backends []models.BackendID) *SubmissionValidator {
	v := NewSubmissionValidator()
	if len(backends) > 0 {
		v.allowedBackends = backends
	}
	return v
}

// Validate returns a validation AppError describing the first problem found
func (v *SubmissionValidator) Validate(sub models.ResultSubmission) error {
	if sub.SequenceNumber <= 0 {
		return apperrors.NewValidationError("sequence number must be positive", nil).
			WithDetails(fmt.Sprintf("got %d", sub.SequenceNumber))
	}

	if strings.TrimSpace(sub.Filename) == "" {
		return apperrors.NewValidationError("filename cannot be empty", nil)
	}
	if len(sub.Filename) > v.maxFilenameLength {
		return apperrors.NewValidationError("filename too long", nil).
			WithDetails(fmt.Sprintf("%d bytes, limit %d", len(sub.Filename), v.maxFilenameLength))
	}

	if !v.isBackendAllowed(sub.Backend) {
		return apperrors.NewValidationError("backend not allowed", nil).
			WithDetails(string(sub.Backend))
	}

	if sub.AnalysisMode != "" && !sub.AnalysisMode.IsValid() {
		return apperrors.NewValidationError("invalid analysis mode", nil).
			WithDetails(string(sub.AnalysisMode))
	}

	// Malformed payloads are stored as error results, only a missing one is refused
	if len(sub.Payload) == 0 || string(sub.Payload) == "null" {
		return apperrors.NewValidationError("payload cannot be empty", nil)
	}

	return nil
}

func (v *SubmissionValidator) isBackendAllowed(backend models.BackendID) bool {
	for _, allowed := range v.allowedBackends {
		if backend == allowed {
			return true
		}
	}
	return false
}
