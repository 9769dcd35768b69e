package strategy

import (
	"github.com/anime-shed/face-batch-inspector-go/internal/analyzer"
	"github.com/anime-shed/face-batch-inspector-go/pkg/models"
)

// ModeStrategy decides how a reconciled record is compared across backends
type ModeStrategy interface {
	Compare(record models.BatchRecord) *models.Comparison
	GetStrategyName() string
}

// SingleModeStrategy never compares; one backend has nothing to agree with
type SingleModeStrategy struct{}

// NewSingleModeStrategy creates the strategy used for single-backend runs
func NewSingleModeStrategy() ModeStrategy {
	return &SingleModeStrategy{}
}

// Compare always returns nil
func (s *SingleModeStrategy) Compare(models.BatchRecord) *models.Comparison {
	return nil
}

// GetStrategyName returns the strategy name
func (s *SingleModeStrategy) GetStrategyName() string {
	return "single_backend"
}

// MultiModeStrategy runs the comparison engine on every record
type MultiModeStrategy struct {
	engine analyzer.ComparisonEngine
}

// NewMultiModeStrategy creates the strategy used for multi-backend runs
func NewMultiModeStrategy(engine analyzer.ComparisonEngine) ModeStrategy {
	return &MultiModeStrategy{engine: engine}
}

// Compare returns the record comparison, or nil when fewer than two emotion backends produced data
func (s *MultiModeStrategy) Compare(record models.BatchRecord) *models.Comparison {
	return s.engine.CompareRecord(record)
}

// GetStrategyName returns the strategy name
func (s *MultiModeStrategy) GetStrategyName() string {
	return "multi_backend"
}

// ComparisonContext picks the strategy matching each record's analysis mode
type ComparisonContext struct {
	strategies map[models.AnalysisMode]ModeStrategy
	fallback   ModeStrategy
}

// NewComparisonContext creates a context with the single and multi strategies registered
func NewComparisonContext(engine analyzer.ComparisonEngine) *ComparisonContext {
	single := NewSingleModeStrategy()
	return &ComparisonContext{
		strategies: map[models.AnalysisMode]ModeStrategy{
			models.ModeSingle: single,
			models.ModeMulti:  NewMultiModeStrategy(engine),
		},
		fallback: single,
	}
}

// SetStrategy replaces the strategy for a mode
func (c *ComparisonContext) SetStrategy(mode models.AnalysisMode, strategy ModeStrategy) {
	c.strategies[mode] = strategy
}

// StrategyFor returns the strategy registered for mode, falling back to single-backend behaviour
func (c *ComparisonContext) StrategyFor(mode models.AnalysisMode) ModeStrategy {
	if s, ok := c.strategies[mode]; ok {
		return s
	}
	return c.fallback
}

// ExecuteComparison compares the record with the strategy for its own mode
func (c *ComparisonContext) ExecuteComparison(record models.BatchRecord) *models.Comparison {
	return c.StrategyFor(record.AnalysisMode).Compare(record)
}
