package normalizer

import (
	"math"
	"sort"

	"github.com/anime-shed/face-batch-inspector-go/pkg/models"
)

// percentScaleThreshold marks a score map reported on a 0-100 scale
const percentScaleThreshold = 10.0

// Normalizer maps backend results onto the canonical emotion vocabulary
type Normalizer struct {
	tables       map[models.BackendID]LabelTable
	defaultTable LabelTable
}

// New creates a normalizer that applies table to every emotion backend
func New(table LabelTable) *Normalizer {
	if table == nil {
		table = DefaultLabelTable()
	}
	return &Normalizer{
		tables:       make(map[models.BackendID]LabelTable),
		defaultTable: table,
	}
}

// SetTable overrides the label table for one backend
func (n *Normalizer) SetTable(backend models.BackendID, table LabelTable) {
	n.tables[backend] = table
}

// Table returns the label table used for a backend
func (n *Normalizer) Table(backend models.BackendID) LabelTable {
	if t, ok := n.tables[backend]; ok {
		return t
	}
	return n.defaultTable
}

// Normalize applies the backend's label table to result
func (n *Normalizer) Normalize(backend models.BackendID, result *models.BackendResult) *models.BackendResult {
	return Normalize(result, n.Table(backend))
}

// Normalize returns a copy of result with emotion keys and the dominant label remapped through table.
// Unmappable keys are dropped and an unmappable or missing dominant label becomes unknown.
// Non-emotion variants are returned unchanged. Normalizing a canonical result yields an equal result.
func Normalize(result *models.BackendResult, table LabelTable) *models.BackendResult {
	if result == nil || result.Kind != models.PayloadEmotion || result.Emotion == nil {
		return result
	}
	src := result.Emotion
	out := models.EmotionResult{
		Emotions:     remapScores(src.Emotions, table),
		Dominant:     models.EmotionUnknown,
		FaceDetected: src.FaceDetected,
	}
	if src.Confidence != nil && isFinite(*src.Confidence) {
		c := *src.Confidence
		out.Confidence = &c
	}
	if dominant, ok := table.Lookup(string(src.Dominant)); ok {
		out.Dominant = dominant
	}
	return models.NewEmotionResult(out)
}

// remapScores keeps canonical keys first, then fills remaining labels from mapped keys in sorted order
func remapScores(scores map[models.Emotion]float64, table LabelTable) map[models.Emotion]float64 {
	if scores == nil {
		return nil
	}
	out := make(map[models.Emotion]float64, len(scores))
	var mapped []string
	for label, v := range scores {
		if !isFinite(v) {
			continue
		}
		if label.IsCanonical() {
			out[label] = v
			continue
		}
		mapped = append(mapped, string(label))
	}
	sort.Strings(mapped)
	for _, label := range mapped {
		target, ok := table.Lookup(label)
		if !ok {
			continue
		}
		if _, exists := out[target]; exists {
			continue
		}
		out[target] = scores[models.Emotion(label)]
	}
	return out
}

// scaleScores divides percentage-scale scores into [0,1]
func scaleScores(scores map[string]float64) map[string]float64 {
	var sum float64
	for _, v := range scores {
		sum += v
	}
	if sum <= percentScaleThreshold {
		return scores
	}
	scaled := make(map[string]float64, len(scores))
	for k, v := range scores {
		scaled[k] = v / 100
	}
	return scaled
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
