package validation

import (
	"fmt"
	"math"
	"sort"

	"github.com/anime-shed/face-batch-inspector-go/pkg/models"
)

// PayloadThresholds defines the ranges a normalized payload is expected to stay within
type PayloadThresholds struct {
	// Emotion score range after percent scaling
	MinScore float64
	MaxScore float64

	// Action Unit intensity range
	MinIntensity float64
	MaxIntensity float64
}

// DefaultPayloadThresholds returns the default payload thresholds
func DefaultPayloadThresholds() PayloadThresholds {
	return PayloadThresholds{
		MinScore:     0.0,
		MaxScore:     1.0,
		MinIntensity: 0.0,
		MaxIntensity: 1.0,
	}
}

// PayloadValidator reports sanity issues in normalized backend results.
// Issues are warnings: the result is stored regardless.
type PayloadValidator struct {
	thresholds PayloadThresholds
}

// NewPayloadValidator creates a new payload validator with default thresholds
func NewPayloadValidator() *PayloadValidator {
	return &PayloadValidator{
		thresholds: DefaultPayloadThresholds(),
	}
}

// NewPayloadValidatorWithThresholds creates a payload validator with custom thresholds
func NewPayloadValidatorWithThresholds(thresholds PayloadThresholds) *PayloadValidator {
	return &PayloadValidator{
		thresholds: thresholds,
	}
}

// PayloadIssue represents a payload validation issue
type PayloadIssue struct {
	Type        string  `json:"type"`
	Message     string  `json:"message"`
	Severity    string  `json:"severity"` // "warning", "info"
	Field       string  `json:"field,omitempty"`
	ActualValue float64 `json:"actual_value,omitempty"`
}

// Validate inspects one normalized result. Error results have nothing to check.
func (pv *PayloadValidator) Validate(result *models.BackendResult) []PayloadIssue {
	switch {
	case result.EmotionPayload() != nil:
		return pv.validateEmotion(result.EmotionPayload())
	case result.MusclePayload() != nil:
		return pv.validateActionUnits(result.MusclePayload().ActionUnits)
	case result.DeltaPayload() != nil:
		return pv.validateActionUnits(result.DeltaPayload().ActionUnits)
	default:
		return nil
	}
}

func (pv *PayloadValidator) validateEmotion(e *models.EmotionResult) []PayloadIssue {
	var issues []PayloadIssue

	for _, label := range models.CanonicalEmotions {
		score, ok := e.Score(label)
		if !ok {
			continue
		}
		if score < pv.thresholds.MinScore || score > pv.thresholds.MaxScore {
			issues = append(issues, PayloadIssue{
				Type:        "score_out_of_range",
				Message:     fmt.Sprintf("Score for %s is outside [%g, %g].", label, pv.thresholds.MinScore, pv.thresholds.MaxScore),
				Severity:    "warning",
				Field:       string(label),
				ActualValue: score,
			})
		}
	}

	if e.Dominant != "" && e.Dominant != models.EmotionUnknown {
		if _, ok := e.Score(e.Dominant); !ok {
			issues = append(issues, PayloadIssue{
				Type:     "dominant_without_score",
				Message:  fmt.Sprintf("Dominant emotion %q has no score.", e.Dominant),
				Severity: "warning",
				Field:    string(e.Dominant),
			})
		}
	}

	if e.Confidence != nil && (math.IsNaN(*e.Confidence) || *e.Confidence < pv.thresholds.MinScore || *e.Confidence > pv.thresholds.MaxScore) {
		issues = append(issues, PayloadIssue{
			Type:        "confidence_out_of_range",
			Message:     "Confidence score is outside the score range.",
			Severity:    "info",
			Field:       "confidence_score",
			ActualValue: *e.Confidence,
		})
	}

	return issues
}

func (pv *PayloadValidator) validateActionUnits(units map[string]models.ActionUnit) []PayloadIssue {
	codes := make([]string, 0, len(units))
	for code := range units {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	var issues []PayloadIssue
	for _, code := range codes {
		intensity := units[code].Intensity
		if intensity < pv.thresholds.MinIntensity || intensity > pv.thresholds.MaxIntensity {
			issues = append(issues, PayloadIssue{
				Type:        "intensity_out_of_range",
				Message:     fmt.Sprintf("Intensity of %s is outside [%g, %g].", code, pv.thresholds.MinIntensity, pv.thresholds.MaxIntensity),
				Severity:    "warning",
				Field:       code,
				ActualValue: intensity,
			})
		}
	}
	return issues
}

// ConvertIssuesToMessages converts payload issues to user-friendly messages
func (pv *PayloadValidator) ConvertIssuesToMessages(issues []PayloadIssue) []string {
	var messages []string
	for _, issue := range issues {
		messages = append(messages, issue.Message)
	}
	return messages
}
