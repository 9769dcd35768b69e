package analyzer

import "github.com/anime-shed/face-batch-inspector-go/pkg/models"

// ComparisonEngine compares emotion backends per image and across a batch
type ComparisonEngine interface {
	// Agreement reports whether two payloads share a dominant label
	Agreement(a, b *models.EmotionResult) bool

	// CompareRecord returns the comparison of one image, or nil when it does not apply
	CompareRecord(record models.BatchRecord) *models.Comparison

	// CompareBatch aggregates pairwise agreement and correlation over the batch
	CompareBatch(records []models.BatchRecord) models.BatchComparison
}

// SummaryCalculator computes per-backend statistics over a batch
type SummaryCalculator interface {
	Summarize(records []models.BatchRecord) models.Summary
	EmotionStats(values []float64) models.EmotionStat
	Valence(means map[models.Emotion]float64) models.Valence
}
