package normalizer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/anime-shed/face-batch-inspector-go/pkg/models"
)

type rawEmotionPayload struct {
	Emotions     map[string]json.RawMessage `json:"emotions"`
	Dominant     string                     `json:"dominant_emotion"`
	Confidence   json.RawMessage            `json:"confidence_score"`
	FaceDetected *bool                      `json:"face_detected"`
	Error        string                     `json:"error"`
}

type rawMusclePayload struct {
	ActionUnits  map[string]models.ActionUnit `json:"action_units"`
	Combinations []models.FACSCombination     `json:"facs_combinations"`
	Analyzer     string                       `json:"analyzer"`
	FaceDetected *bool                        `json:"face_detected"`
	Error        string                       `json:"error"`
}

type rawDeltaPayload struct {
	rawMusclePayload

	HasBaseline        *bool                      `json:"has_baseline"`
	BaselineTimestamp  string                     `json:"baseline_timestamp"`
	BaselinePerson     string                     `json:"baseline_person"`
	Deltas             map[string]models.AUDelta  `json:"deltas"`
	SignificantChanges []models.SignificantChange `json:"significant_changes"`
	MovementPatterns   []models.MovementPattern   `json:"movement_patterns"`
	TotalMovement      float64                    `json:"total_movement"`
}

// Decode turns the raw JSON output of a backend into a normalized result.
// It never fails: backend errors and malformed payloads become error results.
func (n *Normalizer) Decode(backend models.BackendID, raw []byte) *models.BackendResult {
	if !backend.IsKnown() {
		return models.NewErrorResult(fmt.Sprintf("unknown backend %q", backend))
	}
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return models.NewErrorResult("malformed payload: empty")
	}

	switch backend.Kind() {
	case models.KindEmotion:
		return n.decodeEmotion(backend, raw)
	case models.KindMuscle:
		return decodeMuscle(raw)
	case models.KindMuscleDelta:
		return decodeDelta(raw)
	}
	return models.NewErrorResult(fmt.Sprintf("unknown backend %q", backend))
}

func (n *Normalizer) decodeEmotion(backend models.BackendID, raw []byte) *models.BackendResult {
	var p rawEmotionPayload
	if err := json.Unmarshal(sanitizeNonFinite(raw), &p); err != nil {
		return malformed(err)
	}
	if p.Error != "" {
		return errorResult(p.Error, p.FaceDetected)
	}
	if p.Emotions == nil {
		return missingField("emotions")
	}

	scores := make(map[string]float64, len(p.Emotions))
	for label, value := range p.Emotions {
		if v, ok := parseScore(value); ok {
			scores[label] = v
		}
	}
	scores = scaleScores(scores)

	emotions := make(map[models.Emotion]float64, len(scores))
	for label, v := range scores {
		emotions[models.Emotion(label)] = v
	}
	result := models.EmotionResult{
		Emotions:     emotions,
		Dominant:     models.Emotion(p.Dominant),
		FaceDetected: p.FaceDetected == nil || *p.FaceDetected,
	}
	if c, ok := parseScore(p.Confidence); ok {
		result.Confidence = &c
	}
	return n.Normalize(backend, models.NewEmotionResult(result))
}

func decodeMuscle(raw []byte) *models.BackendResult {
	var p rawMusclePayload
	if err := json.Unmarshal(sanitizeNonFinite(raw), &p); err != nil {
		return malformed(err)
	}
	if p.Error != "" {
		return errorResult(p.Error, p.FaceDetected)
	}
	if p.ActionUnits == nil {
		return missingField("action_units")
	}
	return models.NewMuscleResult(p.toMuscle())
}

func decodeDelta(raw []byte) *models.BackendResult {
	var p rawDeltaPayload
	if err := json.Unmarshal(sanitizeNonFinite(raw), &p); err != nil {
		return malformed(err)
	}
	if p.Error != "" {
		return errorResult(p.Error, p.FaceDetected)
	}
	if p.HasBaseline == nil {
		return missingField("has_baseline")
	}
	if *p.HasBaseline && p.Deltas == nil {
		return missingField("deltas")
	}
	return models.NewDeltaResult(models.DeltaResult{
		MuscleResult:       p.toMuscle(),
		HasBaseline:        *p.HasBaseline,
		BaselineTimestamp:  p.BaselineTimestamp,
		BaselinePerson:     p.BaselinePerson,
		Deltas:             p.Deltas,
		SignificantChanges: p.SignificantChanges,
		MovementPatterns:   p.MovementPatterns,
		TotalMovement:      finiteOrZero(p.TotalMovement),
	})
}

func (p rawMusclePayload) toMuscle() models.MuscleResult {
	return models.MuscleResult{
		ActionUnits:  p.ActionUnits,
		Combinations: p.Combinations,
		Analyzer:     p.Analyzer,
		FaceDetected: p.FaceDetected == nil || *p.FaceDetected,
	}
}

// parseScore accepts JSON numbers and numeric strings, rejecting null, NaN and infinities
func parseScore(raw json.RawMessage) (float64, bool) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return 0, false
	}
	s = strings.Trim(s, `"`)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || !isFinite(v) {
		return 0, false
	}
	return v, true
}

func finiteOrZero(v float64) float64 {
	if !isFinite(v) {
		return 0
	}
	return v
}

func errorResult(message string, faceDetected *bool) *models.BackendResult {
	r := models.NewErrorResult(message)
	if faceDetected != nil {
		r.Error.FaceDetected = *faceDetected
	}
	return r
}

func missingField(field string) *models.BackendResult {
	return models.NewErrorResult("malformed payload: missing " + field)
}

func malformed(err error) *models.BackendResult {
	return models.NewErrorResult("malformed payload: " + err.Error())
}

var nonFiniteTokens = [][]byte{[]byte("-Infinity"), []byte("Infinity"), []byte("NaN")}

// sanitizeNonFinite rewrites the bare NaN and Infinity literals some producers emit into null
func sanitizeNonFinite(raw []byte) []byte {
	var out []byte
	inString, escaped := false, false
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if inString {
			if escaped {
				escaped = false
			} else if c == '\\' {
				escaped = true
			} else if c == '"' {
				inString = false
			}
			if out != nil {
				out = append(out, c)
			}
			continue
		}
		if c == '"' {
			inString = true
		}
		replaced := false
		for _, tok := range nonFiniteTokens {
			if bytes.HasPrefix(raw[i:], tok) {
				if out == nil {
					out = append(make([]byte, 0, len(raw)), raw[:i]...)
				}
				out = append(out, "null"...)
				i += len(tok) - 1
				replaced = true
				break
			}
		}
		if !replaced && out != nil {
			out = append(out, c)
		}
	}
	if out == nil {
		return raw
	}
	return out
}
