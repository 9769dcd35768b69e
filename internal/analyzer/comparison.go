package analyzer

import (
	"math"
	"sort"

	"github.com/codycollier/wer"
	"gonum.org/v1/gonum/stat"

	"github.com/anime-shed/face-batch-inspector-go/pkg/models"
)

// comparisonEngine compares emotion backends per image and across a batch
type comparisonEngine struct {
	opts StatisticsOptions
}

// NewComparisonEngine creates a comparison engine
func NewComparisonEngine(opts StatisticsOptions) ComparisonEngine {
	return &comparisonEngine{opts: opts.normalized()}
}

// Agreement reports whether two emotion payloads share the same dominant label
func (e *comparisonEngine) Agreement(a, b *models.EmotionResult) bool {
	if a == nil || b == nil {
		return false
	}
	if e.opts.RequireCanonicalAgreement && !a.Dominant.IsCanonical() {
		return false
	}
	return a.Dominant == b.Dominant
}

// Correlation returns the Pearson correlation of two aligned score vectors,
// or nil when either vector has zero variance or the lengths differ
func Correlation(a, b []float64) *float64 {
	if len(a) != len(b) || len(a) < 2 {
		return nil
	}
	if isConstant(a) || isConstant(b) {
		return nil
	}
	r := stat.Correlation(a, b, nil)
	if !isFinite(r) {
		return nil
	}
	r = math.Max(-1, math.Min(1, r))
	return &r
}

// Consensus returns the plurality dominant label of one image.
// Ties are broken by canonical emotion order, unknown last.
func Consensus(dominants []models.Emotion) models.Consensus {
	votes := make(map[models.Emotion]int, len(dominants))
	for _, d := range dominants {
		votes[d]++
	}
	c := models.Consensus{
		Label:      models.EmotionUnknown,
		Confidence: models.ConfidenceLow,
		Votes:      votes,
		Backends:   len(dominants),
	}
	if len(dominants) == 0 {
		return c
	}

	labels := make([]models.Emotion, 0, len(votes))
	for label := range votes {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool {
		if votes[labels[i]] != votes[labels[j]] {
			return votes[labels[i]] > votes[labels[j]]
		}
		ri, rj := emotionRank(labels[i]), emotionRank(labels[j])
		if ri != rj {
			return ri < rj
		}
		return labels[i] < labels[j]
	})

	c.Label = labels[0]
	top := votes[c.Label]
	c.Unanimous = len(votes) == 1
	c.AgreementRatio = float64(top) / float64(len(dominants))
	switch {
	case c.Unanimous:
		c.Confidence = models.ConfidenceHigh
	case top*2 > len(dominants):
		c.Confidence = models.ConfidenceMedium
	}
	return c
}

// emotionRank orders canonical labels first, then anything else alphabetically after them
func emotionRank(e models.Emotion) int {
	if idx := models.EmotionIndex(e); idx >= 0 {
		return idx
	}
	return len(models.CanonicalEmotions)
}

// CompareRecord computes the comparison of one image.
// It returns nil unless the record is in multi mode with two or more usable emotion results.
func (e *comparisonEngine) CompareRecord(record models.BatchRecord) *models.Comparison {
	if record.AnalysisMode != models.ModeMulti {
		return nil
	}
	ids, results := record.ValidEmotionResults()
	if len(results) < 2 {
		return nil
	}

	cmp := &models.Comparison{}
	dominants := make([]models.Emotion, len(results))
	for i := range results {
		dominants[i] = results[i].Dominant
		for j := i + 1; j < len(results); j++ {
			cmp.Pairs = append(cmp.Pairs, models.PairwiseComparison{
				BackendA:    ids[i],
				BackendB:    ids[j],
				DominantA:   results[i].Dominant,
				DominantB:   results[j].Dominant,
				Agreement:   e.Agreement(results[i], results[j]),
				Correlation: Correlation(results[i].Vector(), results[j].Vector()),
			})
		}
	}
	cmp.Consensus = Consensus(dominants)
	return cmp
}

type pairKey struct {
	a, b models.BackendID
}

type pairAccumulator struct {
	agreements   int
	comparisons  int
	correlations []float64
	labelsA      []string
	labelsB      []string
}

// CompareBatch aggregates agreement and correlation over every image and backend pair
func (e *comparisonEngine) CompareBatch(records []models.BatchRecord) models.BatchComparison {
	out := models.BatchComparison{
		ConsensusLabels: make(map[models.Emotion]int),
		Pairs:           []models.PairAgreement{},
	}

	sorted := make([]models.BatchRecord, len(records))
	copy(sorted, records)
	models.SortRecords(sorted)

	pairs := make(map[pairKey]*pairAccumulator)
	var keys []pairKey
	var correlations []float64

	for _, record := range sorted {
		cmp := e.CompareRecord(record)
		if cmp == nil {
			continue
		}
		out.ImagesCompared++
		out.ConsensusLabels[cmp.Consensus.Label]++
		if cmp.Consensus.Unanimous {
			out.UnanimousImages++
		}

		for _, p := range cmp.Pairs {
			key := pairKey{p.BackendA, p.BackendB}
			acc, ok := pairs[key]
			if !ok {
				acc = &pairAccumulator{}
				pairs[key] = acc
				keys = append(keys, key)
			}
			acc.comparisons++
			out.Comparisons++
			if p.Agreement {
				acc.agreements++
				out.Agreements++
			}
			if p.Correlation != nil {
				acc.correlations = append(acc.correlations, *p.Correlation)
				correlations = append(correlations, *p.Correlation)
			}
			acc.labelsA = append(acc.labelsA, string(p.DominantA))
			acc.labelsB = append(acc.labelsB, string(p.DominantB))
		}
	}

	out.AgreementRate = rate(out.Agreements, out.Comparisons)
	out.CorrelationSamples = len(correlations)
	out.AverageCorrelation = meanOrNil(correlations)

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].a.Ordinal() != keys[j].a.Ordinal() {
			return keys[i].a.Ordinal() < keys[j].a.Ordinal()
		}
		return keys[i].b.Ordinal() < keys[j].b.Ordinal()
	})
	for _, key := range keys {
		acc := pairs[key]
		out.Pairs = append(out.Pairs, models.PairAgreement{
			BackendA:           key.a,
			BackendB:           key.b,
			Agreements:         acc.agreements,
			Comparisons:        acc.comparisons,
			Rate:               rate(acc.agreements, acc.comparisons),
			AverageCorrelation: meanOrNil(acc.correlations),
			SequenceDivergence: sequenceDivergence(acc.labelsA, acc.labelsB),
		})
	}
	return out
}

// sequenceDivergence is the word error rate of one backend's dominant-label sequence against the other's.
// Unlike per-image agreement it tolerates a label sequence shifted by one frame.
func sequenceDivergence(reference, candidate []string) *float64 {
	if len(reference) == 0 {
		return nil
	}
	d, _ := wer.WER(reference, candidate)
	if !isFinite(d) {
		return nil
	}
	return &d
}

func isConstant(values []float64) bool {
	for _, v := range values[1:] {
		if v != values[0] {
			return false
		}
	}
	return true
}

func rate(numerator, denominator int) float64 {
	if denominator == 0 {
		return 0
	}
	return float64(numerator) / float64(denominator)
}

func meanOrNil(values []float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	m := stat.Mean(values, nil)
	if !isFinite(m) {
		return nil
	}
	return &m
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
