package models

import "sort"

// BatchRecord is the reconciled result of every backend for one analyzed image
type BatchRecord struct {
	// SequenceNumber is assigned at capture time and is the canonical sort key
	SequenceNumber int    `json:"sequence_number"`
	Filename       string `json:"filename"`

	AnalysisMode AnalysisMode                 `json:"analysis_mode"`
	Results      map[BackendID]*BackendResult `json:"results"`

	// Comparison is present only when two or more emotion backends produced usable results
	Comparison *Comparison `json:"comparison,omitempty"`
}

// Result returns the payload of a backend, or nil when the backend did not run on this image
func (r BatchRecord) Result(backend BackendID) *BackendResult {
	if r.Results == nil {
		return nil
	}
	return r.Results[backend]
}

// Backends returns the backends present on this record in canonical order
func (r BatchRecord) Backends() []BackendID {
	backends := make([]BackendID, 0, len(r.Results))
	for id := range r.Results {
		backends = append(backends, id)
	}
	sort.Slice(backends, func(i, j int) bool {
		oi, oj := backends[i].Ordinal(), backends[j].Ordinal()
		if oi != oj {
			return oi < oj
		}
		return backends[i] < backends[j]
	})
	return backends
}

// ValidEmotionResults returns the non-error emotion payloads of this record in canonical backend order
func (r BatchRecord) ValidEmotionResults() ([]BackendID, []*EmotionResult) {
	var ids []BackendID
	var results []*EmotionResult
	for _, id := range r.Backends() {
		if !id.IsEmotion() {
			continue
		}
		if emotion := r.Results[id].EmotionPayload(); emotion != nil {
			ids = append(ids, id)
			results = append(results, emotion)
		}
	}
	return ids, results
}

// SortRecords orders records ascending by sequence number in place
func SortRecords(records []BatchRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].SequenceNumber < records[j].SequenceNumber
	})
}

// ConsensusConfidence grades how strongly backends agree on one image
type ConsensusConfidence string

const (
	ConfidenceHigh   ConsensusConfidence = "high"
	ConfidenceMedium ConsensusConfidence = "medium"
	ConfidenceLow    ConsensusConfidence = "low"
)

// PairwiseComparison compares two emotion backends on one image
type PairwiseComparison struct {
	BackendA  BackendID `json:"backend_a"`
	BackendB  BackendID `json:"backend_b"`
	DominantA Emotion   `json:"dominant_a"`
	DominantB Emotion   `json:"dominant_b"`
	Agreement bool      `json:"agreement"`
	// Correlation is nil when either score vector has zero variance
	Correlation *float64 `json:"correlation"`
}

// Consensus is the majority dominant label across the emotion backends of one image
type Consensus struct {
	Label          Emotion             `json:"label"`
	Unanimous      bool                `json:"unanimous"`
	Confidence     ConsensusConfidence `json:"confidence"`
	AgreementRatio float64             `json:"agreement_ratio"`
	Votes          map[Emotion]int     `json:"votes"`
	Backends       int                 `json:"backends"`
}

// Comparison holds the cross-backend comparison of one image
type Comparison struct {
	Pairs     []PairwiseComparison `json:"pairs"`
	Consensus Consensus            `json:"consensus"`
}

// PrimaryPair returns the first pairwise comparison, or nil
func (c *Comparison) PrimaryPair() *PairwiseComparison {
	if c == nil || len(c.Pairs) == 0 {
		return nil
	}
	return &c.Pairs[0]
}
