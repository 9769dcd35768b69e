package normalizer

import (
	"strings"

	"github.com/anime-shed/face-batch-inspector-go/pkg/models"
)

// LabelTable maps backend-native emotion labels onto the canonical set.
// Canonical labels always map to themselves and never need an entry.
type LabelTable map[string]models.Emotion

// legacyLabels are the short labels emitted by older classifier builds
var legacyLabels = map[string]models.Emotion{
	"angry": models.EmotionAnger,
	"happy": models.EmotionHappiness,
	"sad":   models.EmotionSadness,
}

// DefaultLabelTable returns the mapping applied to every emotion backend
func DefaultLabelTable() LabelTable {
	table := make(LabelTable, len(legacyLabels))
	for k, v := range legacyLabels {
		table[k] = v
	}
	return table
}

// IdentityLabelTable returns an empty table; only canonical labels survive normalization
func IdentityLabelTable() LabelTable {
	return LabelTable{}
}

// With returns a copy of the table extended with extra mappings.
// Entries whose target is not canonical are ignored.
func (t LabelTable) With(extra map[string]string) LabelTable {
	out := make(LabelTable, len(t)+len(extra))
	for k, v := range t {
		out[k] = v
	}
	for k, v := range extra {
		target := models.Emotion(strings.ToLower(strings.TrimSpace(v)))
		if !target.IsCanonical() {
			continue
		}
		out[strings.ToLower(strings.TrimSpace(k))] = target
	}
	return out
}

// Lookup maps a label onto the canonical set
func (t LabelTable) Lookup(label string) (models.Emotion, bool) {
	key := strings.ToLower(strings.TrimSpace(label))
	if e := models.Emotion(key); e.IsCanonical() {
		return e, true
	}
	if t == nil {
		return "", false
	}
	e, ok := t[key]
	if !ok || !e.IsCanonical() {
		return "", false
	}
	return e, true
}
