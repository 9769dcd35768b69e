package analyzer

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/anime-shed/face-batch-inspector-go/pkg/models"
)

var (
	negativeEmotions = []models.Emotion{models.EmotionAnger, models.EmotionSadness, models.EmotionFear, models.EmotionDisgust}
	positiveEmotions = []models.Emotion{models.EmotionHappiness, models.EmotionSurprise}
)

// summaryCalculator implements SummaryCalculator
type summaryCalculator struct {
	opts StatisticsOptions
}

// NewSummaryCalculator creates a summary statistics engine
func NewSummaryCalculator(opts StatisticsOptions) SummaryCalculator {
	return &summaryCalculator{opts: opts.normalized()}
}

// Summarize computes statistics for every backend present in the batch
func (sc *summaryCalculator) Summarize(records []models.BatchRecord) models.Summary {
	summary := models.Summary{
		TotalImages: len(records),
		Emotion:     []models.EmotionBackendSummary{},
	}

	present := make(map[models.BackendID]bool)
	for _, r := range records {
		for id, result := range r.Results {
			if result != nil {
				present[id] = true
			}
		}
	}

	for _, id := range models.AllBackends {
		if !present[id] {
			continue
		}
		switch id.Kind() {
		case models.KindEmotion:
			summary.Emotion = append(summary.Emotion, sc.summarizeEmotion(id, records))
		case models.KindMuscle:
			summary.Muscle = summarizeMuscle(id, records)
		case models.KindMuscleDelta:
			summary.Delta = summarizeDelta(id, records)
		}
	}
	return summary
}

func (sc *summaryCalculator) summarizeEmotion(id models.BackendID, records []models.BatchRecord) models.EmotionBackendSummary {
	s := models.EmotionBackendSummary{
		Backend:        id,
		Emotions:       make(map[models.Emotion]models.EmotionStat, len(models.CanonicalEmotions)),
		DominantCounts: make(map[models.Emotion]int),
	}

	samples := make(map[models.Emotion][]float64, len(models.CanonicalEmotions))
	for _, r := range records {
		result := r.Result(id)
		if result == nil {
			continue
		}
		emotion := result.EmotionPayload()
		if emotion == nil {
			s.Errors++
			continue
		}
		s.ImagesAnalyzed++
		s.DominantCounts[emotion.Dominant]++
		for _, e := range models.CanonicalEmotions {
			if v, ok := emotion.Score(e); ok && isFinite(v) {
				samples[e] = append(samples[e], v)
			}
		}
	}

	means := make(map[models.Emotion]float64, len(models.CanonicalEmotions))
	for _, e := range models.CanonicalEmotions {
		st := sc.EmotionStats(samples[e])
		s.Emotions[e] = st
		means[e] = st.Mean
	}
	s.Valence = sc.Valence(means)
	return s
}

// EmotionStats returns the mean and Bessel-corrected standard deviation of values.
// No samples yields zeros; a single sample has zero deviation.
func (sc *summaryCalculator) EmotionStats(values []float64) models.EmotionStat {
	st := models.EmotionStat{Samples: len(values)}
	if len(values) == 0 {
		return st
	}
	st.Mean = finiteOrZero(stat.Mean(values, nil))
	if len(values) > 1 {
		st.StdDev = finiteOrZero(stat.StdDev(values, nil))
	}
	return st
}

// Valence groups mean scores into negative, neutral and positive mass.
// The denominator never drops below NeutralFloor, so low neutral mass does not inflate the score.
func (sc *summaryCalculator) Valence(means map[models.Emotion]float64) models.Valence {
	v := models.Valence{Neutral: means[models.EmotionNeutral]}
	for _, e := range negativeEmotions {
		v.Negative += means[e]
	}
	for _, e := range positiveEmotions {
		v.Positive += means[e]
	}
	v.Score = finiteOrZero((v.Positive - v.Negative) / math.Max(v.Neutral, sc.opts.NeutralFloor))

	switch {
	case v.Score > sc.opts.ValenceThreshold:
		v.Classification = models.ValencePositive
	case v.Score < -sc.opts.ValenceThreshold:
		v.Classification = models.ValenceNegative
	default:
		v.Classification = models.ValenceNeutral
	}
	return v
}

func summarizeMuscle(id models.BackendID, records []models.BatchRecord) *models.MuscleSummary {
	s := &models.MuscleSummary{
		Backend:          id,
		AUFrequency:      make(map[string]int),
		PatternFrequency: make(map[string]int),
	}
	totalAUs := 0
	for _, r := range records {
		result := r.Result(id)
		if result == nil {
			continue
		}
		muscle := result.MusclePayload()
		if muscle == nil {
			s.Errors++
			continue
		}
		s.ImagesAnalyzed++
		totalAUs += len(muscle.ActionUnits)
		for code := range muscle.ActionUnits {
			s.AUFrequency[code]++
		}
		for _, c := range muscle.Combinations {
			s.PatternFrequency[c.Pattern]++
		}
	}
	s.AverageAUCount = rate(totalAUs, s.ImagesAnalyzed)
	return s
}

func summarizeDelta(id models.BackendID, records []models.BatchRecord) *models.DeltaSummary {
	s := &models.DeltaSummary{
		Backend:          id,
		AUFrequency:      make(map[string]int),
		PatternFrequency: make(map[string]int),
		SignificantAUs:   make(map[string]int),
	}
	var movement []float64
	totalAUs := 0
	for _, r := range records {
		result := r.Result(id)
		if result == nil {
			continue
		}
		delta := result.DeltaPayload()
		if delta == nil {
			s.Errors++
			continue
		}
		s.ImagesAnalyzed++
		totalAUs += len(delta.ActionUnits)
		for code := range delta.ActionUnits {
			s.AUFrequency[code]++
		}
		if !delta.HasBaseline {
			continue
		}
		s.BaselineImages++
		if isFinite(delta.TotalMovement) {
			movement = append(movement, delta.TotalMovement)
		}
		for _, p := range delta.MovementPatterns {
			s.PatternFrequency[p.Pattern]++
		}
		for _, c := range delta.SignificantChanges {
			s.SignificantAUs[c.AU]++
		}
	}
	s.AverageAUCount = rate(totalAUs, s.ImagesAnalyzed)
	if len(movement) > 0 {
		s.AverageTotalMovement = finiteOrZero(stat.Mean(movement, nil))
	}
	return s
}

func finiteOrZero(v float64) float64 {
	if !isFinite(v) {
		return 0
	}
	return v
}
