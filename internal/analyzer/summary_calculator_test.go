package analyzer

import (
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/anime-shed/face-batch-inspector-go/pkg/models"
)

func TestEmotionStats(t *testing.T) {
	calc := NewSummaryCalculator(DefaultStatisticsOptions())

	tests := []struct {
		name   string
		values []float64
		mean   float64
		stddev float64
	}{
		{"no samples", nil, 0, 0},
		{"single sample", []float64{0.7}, 0.7, 0},
		{"bessel corrected", []float64{2, 4, 4, 4, 5, 5, 7, 9}, 5, math.Sqrt(32.0 / 7.0)},
		{"two samples", []float64{0.2, 0.4}, 0.3, math.Sqrt(0.02)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := calc.EmotionStats(tt.values)
			if math.IsNaN(got.Mean) || math.IsNaN(got.StdDev) {
				t.Fatalf("Expected finite stats, got %+v", got)
			}
			if math.Abs(got.Mean-tt.mean) > 1e-9 {
				t.Errorf("Expected mean %f, got %f", tt.mean, got.Mean)
			}
			if math.Abs(got.StdDev-tt.stddev) > 1e-9 {
				t.Errorf("Expected stddev %f, got %f", tt.stddev, got.StdDev)
			}
			if got.Samples != len(tt.values) {
				t.Errorf("Expected %d samples, got %d", len(tt.values), got.Samples)
			}
		})
	}
}

func TestValence(t *testing.T) {
	calc := NewSummaryCalculator(DefaultStatisticsOptions())

	tests := []struct {
		name           string
		means          map[models.Emotion]float64
		score          float64
		classification models.ValenceClass
	}{
		{
			name:           "floor applies when neutral is zero",
			means:          map[models.Emotion]float64{models.EmotionHappiness: 0.3, models.EmotionAnger: 0.1},
			score:          0.2,
			classification: models.ValencePositive,
		},
		{
			name: "neutral above floor divides",
			means: map[models.Emotion]float64{
				models.EmotionNeutral: 2.0, models.EmotionSadness: 0.5, models.EmotionSurprise: 0.1,
			},
			score:          -0.2,
			classification: models.ValenceNegative,
		},
		{
			name:           "inside threshold",
			means:          map[models.Emotion]float64{models.EmotionHappiness: 0.15, models.EmotionFear: 0.1},
			score:          0.05,
			classification: models.ValenceNeutral,
		},
		{
			name:           "exactly at threshold stays neutral",
			means:          map[models.Emotion]float64{models.EmotionSurprise: 0.1},
			score:          0.1,
			classification: models.ValenceNeutral,
		},
		{
			name:           "empty",
			means:          map[models.Emotion]float64{},
			score:          0,
			classification: models.ValenceNeutral,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := calc.Valence(tt.means)
			if math.Abs(got.Score-tt.score) > 1e-9 {
				t.Errorf("Expected score %f, got %f", tt.score, got.Score)
			}
			if got.Classification != tt.classification {
				t.Errorf("Expected %s, got %s", tt.classification, got.Classification)
			}
		})
	}
}

func TestValence_ConfigurableConstants(t *testing.T) {
	means := map[models.Emotion]float64{models.EmotionHappiness: 0.3, models.EmotionNeutral: 0.5}

	calc := NewSummaryCalculator(DefaultStatisticsOptions().WithNeutralFloor(0.5).WithValenceThreshold(0.7))
	got := calc.Valence(means)
	if math.Abs(got.Score-0.6) > 1e-9 {
		t.Errorf("Expected score 0.6 with floor 0.5, got %f", got.Score)
	}
	if got.Classification != models.ValenceNeutral {
		t.Errorf("Expected neutral with threshold 0.7, got %s", got.Classification)
	}
}

func TestSummarize_Emotion(t *testing.T) {
	calc := NewSummaryCalculator(DefaultStatisticsOptions())

	records := []models.BatchRecord{
		multiRecord(1, map[models.BackendID]*models.BackendResult{
			models.BackendFER: emotionResult(models.EmotionHappiness, 0, 0, 0, 0, 0.2, 0, 0.8),
		}),
		multiRecord(2, map[models.BackendID]*models.BackendResult{
			models.BackendFER: emotionResult(models.EmotionHappiness, 0, 0, 0, 0, 0.4, 0, 0.6),
		}),
		multiRecord(3, map[models.BackendID]*models.BackendResult{
			models.BackendFER:      models.NewErrorResult("No face detected"),
			models.BackendDeepFace: models.NewErrorResult("No face detected"),
		}),
	}

	summary := calc.Summarize(records)
	if summary.TotalImages != 3 {
		t.Errorf("Expected 3 images, got %d", summary.TotalImages)
	}
	if len(summary.Emotion) != 2 {
		t.Fatalf("Expected 2 emotion backends, got %d", len(summary.Emotion))
	}

	fer := summary.Emotion[0]
	if fer.Backend != models.BackendFER {
		t.Errorf("Expected fer first, got %s", fer.Backend)
	}
	if fer.ImagesAnalyzed != 2 || fer.Errors != 1 {
		t.Errorf("Expected 2 analyzed and 1 error, got %d and %d", fer.ImagesAnalyzed, fer.Errors)
	}
	happiness := fer.Emotions[models.EmotionHappiness]
	if math.Abs(happiness.Mean-0.7) > 1e-9 {
		t.Errorf("Expected happiness mean 0.7, got %f", happiness.Mean)
	}
	if fer.DominantCounts[models.EmotionHappiness] != 2 {
		t.Errorf("Expected 2 happiness dominants, got %d", fer.DominantCounts[models.EmotionHappiness])
	}
	if fer.Valence.Classification != models.ValencePositive {
		t.Errorf("Expected positive valence, got %s", fer.Valence.Classification)
	}

	deepface := summary.Emotion[1]
	if deepface.ImagesAnalyzed != 0 || deepface.Errors != 1 {
		t.Errorf("Expected deepface with only an error, got %d analyzed %d errors", deepface.ImagesAnalyzed, deepface.Errors)
	}
	for _, e := range models.CanonicalEmotions {
		st := deepface.Emotions[e]
		if st.Mean != 0 || st.StdDev != 0 || st.Samples != 0 {
			t.Errorf("Expected zero stats for %s, got %+v", e, st)
		}
	}
	if summary.Muscle != nil || summary.Delta != nil {
		t.Error("Expected no muscle or delta summaries")
	}
}

func TestSummarize_MuscleAndDelta(t *testing.T) {
	calc := NewSummaryCalculator(DefaultStatisticsOptions())

	muscle := func(codes ...string) *models.BackendResult {
		aus := make(map[string]models.ActionUnit)
		for _, c := range codes {
			aus[c] = models.ActionUnit{Intensity: 0.5}
		}
		return models.NewMuscleResult(models.MuscleResult{
			ActionUnits:  aus,
			Combinations: []models.FACSCombination{{Pattern: "duchenne_smile", Intensity: 0.5}},
		})
	}
	delta := func(hasBaseline bool, movement float64) *models.BackendResult {
		return models.NewDeltaResult(models.DeltaResult{
			HasBaseline:        hasBaseline,
			Deltas:             map[string]models.AUDelta{"AU12": {Delta: movement}},
			SignificantChanges: []models.SignificantChange{{AU: "AU12", Delta: movement}},
			MovementPatterns:   []models.MovementPattern{{Pattern: "smile_formation"}},
			TotalMovement:      movement,
		})
	}

	records := []models.BatchRecord{
		{SequenceNumber: 1, AnalysisMode: models.ModeSingle, Results: map[models.BackendID]*models.BackendResult{
			models.BackendFACS:      muscle("AU06", "AU12"),
			models.BackendFACSDelta: delta(true, 0.4),
		}},
		{SequenceNumber: 2, AnalysisMode: models.ModeSingle, Results: map[models.BackendID]*models.BackendResult{
			models.BackendFACS:      muscle("AU12", "AU25", "AU26", "AU01"),
			models.BackendFACSDelta: delta(true, 0.8),
		}},
		{SequenceNumber: 3, AnalysisMode: models.ModeSingle, Results: map[models.BackendID]*models.BackendResult{
			models.BackendFACS:      models.NewErrorResult("no landmarks"),
			models.BackendFACSDelta: delta(false, 5),
		}},
	}

	summary := calc.Summarize(records)
	if summary.Muscle == nil || summary.Delta == nil {
		t.Fatal("Expected muscle and delta summaries")
	}
	if summary.Muscle.AverageAUCount != 3 {
		t.Errorf("Expected average AU count 3, got %f", summary.Muscle.AverageAUCount)
	}
	if summary.Muscle.AUFrequency["AU12"] != 2 {
		t.Errorf("Expected AU12 frequency 2, got %d", summary.Muscle.AUFrequency["AU12"])
	}
	if summary.Muscle.PatternFrequency["duchenne_smile"] != 2 {
		t.Errorf("Expected duchenne_smile frequency 2, got %d", summary.Muscle.PatternFrequency["duchenne_smile"])
	}
	if summary.Muscle.Errors != 1 {
		t.Errorf("Expected 1 muscle error, got %d", summary.Muscle.Errors)
	}

	if summary.Delta.ImagesAnalyzed != 3 || summary.Delta.BaselineImages != 2 {
		t.Errorf("Expected 3 analyzed and 2 baseline images, got %d and %d", summary.Delta.ImagesAnalyzed, summary.Delta.BaselineImages)
	}
	if math.Abs(summary.Delta.AverageTotalMovement-0.6) > 1e-9 {
		t.Errorf("Expected average movement 0.6, got %f", summary.Delta.AverageTotalMovement)
	}
	if summary.Delta.PatternFrequency["smile_formation"] != 2 {
		t.Errorf("Expected smile_formation frequency 2, got %d", summary.Delta.PatternFrequency["smile_formation"])
	}
}

func TestSummarize_DeltaOnlyActionUnits(t *testing.T) {
	calc := NewSummaryCalculator(DefaultStatisticsOptions())

	delta := func(codes ...string) *models.BackendResult {
		aus := make(map[string]models.ActionUnit)
		for _, c := range codes {
			aus[c] = models.ActionUnit{Intensity: 0.4}
		}
		return models.NewDeltaResult(models.DeltaResult{
			MuscleResult:  models.MuscleResult{ActionUnits: aus},
			HasBaseline:   true,
			Deltas:        map[string]models.AUDelta{"AU12": {Delta: 0.3}},
			TotalMovement: 0.3,
		})
	}
	records := []models.BatchRecord{
		{SequenceNumber: 1, AnalysisMode: models.ModeSingle, Results: map[models.BackendID]*models.BackendResult{
			models.BackendFACSDelta: delta("AU06", "AU12"),
		}},
		{SequenceNumber: 2, AnalysisMode: models.ModeSingle, Results: map[models.BackendID]*models.BackendResult{
			models.BackendFACSDelta: delta("AU12"),
		}},
	}

	summary := calc.Summarize(records)
	if summary.Muscle != nil {
		t.Errorf("Expected no muscle summary, got %+v", summary.Muscle)
	}
	if summary.Delta == nil {
		t.Fatal("Expected a delta summary")
	}
	if summary.Delta.AverageAUCount != 1.5 {
		t.Errorf("Expected average AU count 1.5, got %f", summary.Delta.AverageAUCount)
	}
	if summary.Delta.AUFrequency["AU12"] != 2 || summary.Delta.AUFrequency["AU06"] != 1 {
		t.Errorf("Expected AU12=2 and AU06=1, got %v", summary.Delta.AUFrequency)
	}
}

func TestSummarize_EmptyBatchIsFinite(t *testing.T) {
	calc := NewSummaryCalculator(DefaultStatisticsOptions())
	summary := calc.Summarize(nil)

	data, err := json.Marshal(summary)
	if err != nil {
		t.Fatalf("Expected empty summary to marshal, got %v", err)
	}
	if strings.Contains(string(data), "NaN") || strings.Contains(string(data), "Inf") {
		t.Errorf("Expected no NaN or Inf in %s", data)
	}

	noBaseline := calc.Summarize([]models.BatchRecord{{
		SequenceNumber: 1,
		Results: map[models.BackendID]*models.BackendResult{
			models.BackendFACSDelta: models.NewDeltaResult(models.DeltaResult{HasBaseline: false}),
		},
	}})
	if noBaseline.Delta.AverageTotalMovement != 0 {
		t.Errorf("Expected zero movement without baseline images, got %f", noBaseline.Delta.AverageTotalMovement)
	}
}
