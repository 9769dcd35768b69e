package models

// PayloadKind tags which variant of BackendResult is populated
type PayloadKind string

const (
	PayloadEmotion     PayloadKind = "emotion"
	PayloadMuscle      PayloadKind = "muscle"
	PayloadMuscleDelta PayloadKind = "muscle_delta"
	PayloadError       PayloadKind = "error"
)

// BackendResult is the normalized result of one backend for one image.
// Exactly one of the variant pointers matching Kind is set.
type BackendResult struct {
	Kind    PayloadKind    `json:"kind"`
	Emotion *EmotionResult `json:"emotion,omitempty"`
	Muscle  *MuscleResult  `json:"muscle,omitempty"`
	Delta   *DeltaResult   `json:"delta,omitempty"`
	Error   *ErrorResult   `json:"error,omitempty"`
}

// NewEmotionResult wraps an emotion payload
func NewEmotionResult(r EmotionResult) *BackendResult {
	return &BackendResult{Kind: PayloadEmotion, Emotion: &r}
}

// NewMuscleResult wraps a muscle payload
func NewMuscleResult(r MuscleResult) *BackendResult {
	return &BackendResult{Kind: PayloadMuscle, Muscle: &r}
}

// NewDeltaResult wraps a muscle-delta payload
func NewDeltaResult(r DeltaResult) *BackendResult {
	return &BackendResult{Kind: PayloadMuscleDelta, Delta: &r}
}

// NewErrorResult wraps a backend failure
func NewErrorResult(message string) *BackendResult {
	return &BackendResult{Kind: PayloadError, Error: &ErrorResult{Message: message}}
}

// IsError reports whether the result carries no usable data
func (r *BackendResult) IsError() bool {
	if r == nil {
		return true
	}
	switch r.Kind {
	case PayloadEmotion:
		return r.Emotion == nil
	case PayloadMuscle:
		return r.Muscle == nil
	case PayloadMuscleDelta:
		return r.Delta == nil
	default:
		return true
	}
}

// EmotionPayload returns the emotion variant, or nil for any other variant
func (r *BackendResult) EmotionPayload() *EmotionResult {
	if r == nil || r.Kind != PayloadEmotion {
		return nil
	}
	return r.Emotion
}

// MusclePayload returns the muscle variant, or nil for any other variant
func (r *BackendResult) MusclePayload() *MuscleResult {
	if r == nil || r.Kind != PayloadMuscle {
		return nil
	}
	return r.Muscle
}

// DeltaPayload returns the delta variant, or nil for any other variant
func (r *BackendResult) DeltaPayload() *DeltaResult {
	if r == nil || r.Kind != PayloadMuscleDelta {
		return nil
	}
	return r.Delta
}

// ErrorMessage returns the recorded failure, or "" for data-bearing results
func (r *BackendResult) ErrorMessage() string {
	if r == nil {
		return "no result"
	}
	if r.Kind == PayloadError && r.Error != nil {
		return r.Error.Message
	}
	return ""
}

// EmotionResult holds the scores of an emotion classifier, keyed by canonical label
type EmotionResult struct {
	Emotions     map[Emotion]float64 `json:"emotions"`
	Dominant     Emotion             `json:"dominant_emotion"`
	Confidence   *float64            `json:"confidence_score,omitempty"`
	FaceDetected bool                `json:"face_detected"`
}

// Score returns the score for e and whether it was reported
func (r *EmotionResult) Score(e Emotion) (float64, bool) {
	if r == nil || r.Emotions == nil {
		return 0, false
	}
	v, ok := r.Emotions[e]
	return v, ok
}

// Vector returns the scores aligned to CanonicalEmotions; unreported labels count as 0
func (r *EmotionResult) Vector() []float64 {
	vec := make([]float64, len(CanonicalEmotions))
	for i, e := range CanonicalEmotions {
		if v, ok := r.Score(e); ok {
			vec[i] = v
		}
	}
	return vec
}

// ActionUnit is one detected facial action unit
type ActionUnit struct {
	Intensity   float64 `json:"intensity"`
	Description string  `json:"description,omitempty"`
	MuscleGroup string  `json:"muscle_group,omitempty"`
}

// FACSCombination is a recognized multi-unit pattern such as a Duchenne smile
type FACSCombination struct {
	Pattern     string   `json:"pattern"`
	AUs         []string `json:"aus"`
	Description string   `json:"description,omitempty"`
	Intensity   float64  `json:"intensity"`
}

// MuscleResult holds the Action Units detected on one image
type MuscleResult struct {
	ActionUnits  map[string]ActionUnit `json:"action_units"`
	Combinations []FACSCombination     `json:"facs_combinations"`
	Analyzer     string                `json:"analyzer,omitempty"`
	FaceDetected bool                  `json:"face_detected"`
}

// AUDelta is the movement of one Action Unit relative to the baseline
type AUDelta struct {
	Delta       float64 `json:"delta"`
	Baseline    float64 `json:"baseline"`
	Current     float64 `json:"current"`
	Description string  `json:"description,omitempty"`
	ChangeType  string  `json:"change_type,omitempty"`
}

// SignificantChange is an Action Unit whose delta exceeded the backend's significance threshold
type SignificantChange struct {
	AU          string  `json:"au"`
	Delta       float64 `json:"delta"`
	Description string  `json:"description,omitempty"`
	ChangeType  string  `json:"change_type,omitempty"`
}

// MovementPattern is a named movement detected from deltas
type MovementPattern struct {
	Pattern     string  `json:"pattern"`
	Description string  `json:"description,omitempty"`
	Intensity   float64 `json:"intensity"`
}

// DeltaResult is a muscle result expressed relative to a stored neutral baseline
type DeltaResult struct {
	MuscleResult

	HasBaseline        bool                `json:"has_baseline"`
	BaselineTimestamp  string              `json:"baseline_timestamp,omitempty"`
	BaselinePerson     string              `json:"baseline_person,omitempty"`
	Deltas             map[string]AUDelta  `json:"deltas"`
	SignificantChanges []SignificantChange `json:"significant_changes"`
	MovementPatterns   []MovementPattern   `json:"movement_patterns"`
	TotalMovement      float64             `json:"total_movement"`
}

// ErrorResult records a backend failure for one image
type ErrorResult struct {
	Message      string `json:"message"`
	FaceDetected bool   `json:"face_detected"`
}
