package models

// Emotion is a canonical emotion label
type Emotion string

const (
	EmotionAnger     Emotion = "anger"
	EmotionDisgust   Emotion = "disgust"
	EmotionFear      Emotion = "fear"
	EmotionSadness   Emotion = "sadness"
	EmotionNeutral   Emotion = "neutral"
	EmotionSurprise  Emotion = "surprise"
	EmotionHappiness Emotion = "happiness"

	// EmotionUnknown is the dominant label used when a backend's label cannot be mapped.
	// It is never a score key.
	EmotionUnknown Emotion = "unknown"
)

// CanonicalEmotions is the fixed label set in display and column order
var CanonicalEmotions = []Emotion{
	EmotionAnger,
	EmotionDisgust,
	EmotionFear,
	EmotionSadness,
	EmotionNeutral,
	EmotionSurprise,
	EmotionHappiness,
}

// IsCanonical reports whether e is one of the seven canonical labels
func (e Emotion) IsCanonical() bool {
	for _, c := range CanonicalEmotions {
		if c == e {
			return true
		}
	}
	return false
}

// EmotionIndex returns the position of e in CanonicalEmotions, or -1
func EmotionIndex(e Emotion) int {
	for i, c := range CanonicalEmotions {
		if c == e {
			return i
		}
	}
	return -1
}
