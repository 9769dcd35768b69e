package validation

import (
	"encoding/json"
	"strings"
	"testing"

	apperrors "github.com/anime-shed/face-batch-inspector-go/internal/errors"
	"github.com/anime-shed/face-batch-inspector-go/pkg/models"
)

func validSubmission() models.ResultSubmission {
	return models.ResultSubmission{
		SequenceNumber: 1,
		Filename:       "p1_cognitive_task1.jpg",
		Backend:        models.BackendFER,
		Payload:        json.RawMessage(`{"emotions":{"happy":0.9},"dominant_emotion":"happy"}`),
	}
}

func TestSubmissionValidator_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*models.ResultSubmission)
		wantErr string
	}{
		{"valid", func(s *models.ResultSubmission) {}, ""},
		{"valid with mode", func(s *models.ResultSubmission) { s.AnalysisMode = models.ModeSingle }, ""},
		{"malformed payload is accepted", func(s *models.ResultSubmission) { s.Payload = json.RawMessage(`"oops"`) }, ""},
		{"zero sequence", func(s *models.ResultSubmission) { s.SequenceNumber = 0 }, "sequence number must be positive"},
		{"negative sequence", func(s *models.ResultSubmission) { s.SequenceNumber = -4 }, "sequence number must be positive"},
		{"blank filename", func(s *models.ResultSubmission) { s.Filename = "  " }, "filename cannot be empty"},
		{"long filename", func(s *models.ResultSubmission) { s.Filename = strings.Repeat("a", 300) }, "filename too long"},
		{"unknown backend", func(s *models.ResultSubmission) { s.Backend = "openface" }, "backend not allowed"},
		{"bad mode", func(s *models.ResultSubmission) { s.AnalysisMode = "dual" }, "invalid analysis mode"},
		{"missing payload", func(s *models.ResultSubmission) { s.Payload = nil }, "payload cannot be empty"},
		{"null payload", func(s *models.ResultSubmission) { s.Payload = json.RawMessage("null") }, "payload cannot be empty"},
	}

	v := NewSubmissionValidator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := validSubmission()
			tt.mutate(&sub)
			err := v.Validate(sub)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Expected no error, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
			if !apperrors.IsType(err, apperrors.ErrorTypeValidation) {
				t.Errorf("Expected validation error type, got %v", err)
			}
		})
	}
}

func TestNewSubmissionValidatorWithBackends(t *testing.T) {
	v := NewSubmissionValidatorWithBackends([]models.BackendID{models.BackendFACS})
	if err := v.Validate(validSubmission()); err == nil {
		t.Error("Expected fer to be refused when only facs is allowed")
	}

	sub := validSubmission()
	sub.Backend = models.BackendFACS
	if err := v.Validate(sub); err != nil {
		t.Errorf("Expected facs to be accepted, got %v", err)
	}
}

func TestPayloadValidator_Emotion(t *testing.T) {
	conf := 1.4
	tests := []struct {
		name   string
		result models.EmotionResult
		types  []string
	}{
		{
			name:   "clean",
			result: models.EmotionResult{Emotions: map[models.Emotion]float64{models.EmotionHappiness: 0.8}, Dominant: models.EmotionHappiness},
		},
		{
			name:   "score out of range",
			result: models.EmotionResult{Emotions: map[models.Emotion]float64{models.EmotionHappiness: 1.5, models.EmotionSadness: -0.1}, Dominant: models.EmotionHappiness},
			types:  []string{"score_out_of_range", "score_out_of_range"},
		},
		{
			name:   "dominant without score",
			result: models.EmotionResult{Emotions: map[models.Emotion]float64{models.EmotionHappiness: 0.2}, Dominant: "contempt"},
			types:  []string{"dominant_without_score"},
		},
		{
			name:   "unknown dominant",
			result: models.EmotionResult{Emotions: map[models.Emotion]float64{models.EmotionHappiness: 0.2}, Dominant: models.EmotionUnknown},
		},
		{
			name:   "confidence out of range",
			result: models.EmotionResult{Emotions: map[models.Emotion]float64{}, Confidence: &conf},
			types:  []string{"confidence_out_of_range"},
		},
	}

	v := NewPayloadValidator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			issues := v.Validate(models.NewEmotionResult(tt.result))
			if len(issues) != len(tt.types) {
				t.Fatalf("Expected %d issues, got %d: %v", len(tt.types), len(issues), issues)
			}
			for i, issue := range issues {
				if issue.Type != tt.types[i] {
					t.Errorf("Expected issue %d of type %s, got %s", i, tt.types[i], issue.Type)
				}
			}
		})
	}
}

func TestPayloadValidator_ActionUnits(t *testing.T) {
	v := NewPayloadValidator()
	muscle := models.NewMuscleResult(models.MuscleResult{
		ActionUnits: map[string]models.ActionUnit{
			"AU12": {Intensity: 2.5},
			"AU06": {Intensity: 0.4},
			"AU01": {Intensity: -0.2},
		},
	})

	issues := v.Validate(muscle)
	if len(issues) != 2 {
		t.Fatalf("Expected 2 issues, got %d", len(issues))
	}
	if issues[0].Field != "AU01" || issues[1].Field != "AU12" {
		t.Errorf("Expected issues sorted by AU code, got %s and %s", issues[0].Field, issues[1].Field)
	}

	delta := models.NewDeltaResult(models.DeltaResult{
		MuscleResult: models.MuscleResult{ActionUnits: map[string]models.ActionUnit{"AU04": {Intensity: 3}}},
	})
	if issues := v.Validate(delta); len(issues) != 1 || issues[0].Type != "intensity_out_of_range" {
		t.Errorf("Expected one intensity issue on the delta payload, got %v", issues)
	}

	if issues := v.Validate(models.NewErrorResult("no face")); issues != nil {
		t.Errorf("Expected no issues for an error result, got %v", issues)
	}
}

func TestPayloadValidator_CustomThresholds(t *testing.T) {
	v := NewPayloadValidatorWithThresholds(PayloadThresholds{MinScore: 0, MaxScore: 1, MinIntensity: 0, MaxIntensity: 5})
	muscle := models.NewMuscleResult(models.MuscleResult{ActionUnits: map[string]models.ActionUnit{"AU12": {Intensity: 2.5}}})
	if issues := v.Validate(muscle); len(issues) != 0 {
		t.Errorf("Expected no issues with a 0-5 intensity scale, got %v", issues)
	}
}

func TestConvertIssuesToMessages(t *testing.T) {
	v := NewPayloadValidator()
	issues := []PayloadIssue{{Message: "a"}, {Message: "b"}}
	messages := v.ConvertIssuesToMessages(issues)
	if len(messages) != 2 || messages[0] != "a" || messages[1] != "b" {
		t.Errorf("Expected [a b], got %v", messages)
	}
}
