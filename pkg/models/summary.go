package models

// EmotionStat is the mean and sample standard deviation of one emotion score across a batch
type EmotionStat struct {
	Mean    float64 `json:"mean"`
	StdDev  float64 `json:"std_dev"`
	Samples int     `json:"samples"`
}

// ValenceClass is the direction of the net valence score
type ValenceClass string

const (
	ValencePositive ValenceClass = "positive"
	ValenceNeutral  ValenceClass = "neutral"
	ValenceNegative ValenceClass = "negative"
)

// Valence groups mean emotion mass into negative, neutral and positive and derives a net score
type Valence struct {
	Negative       float64      `json:"negative"`
	Neutral        float64      `json:"neutral"`
	Positive       float64      `json:"positive"`
	Score          float64      `json:"score"`
	Classification ValenceClass `json:"classification"`
}

// EmotionBackendSummary aggregates one emotion backend across the batch
type EmotionBackendSummary struct {
	Backend        BackendID               `json:"backend"`
	ImagesAnalyzed int                     `json:"images_analyzed"`
	Errors         int                     `json:"errors"`
	Emotions       map[Emotion]EmotionStat `json:"emotions"`
	DominantCounts map[Emotion]int         `json:"dominant_counts"`
	Valence        Valence                 `json:"valence"`
}

// MuscleSummary aggregates the Action Unit analyzer across the batch
type MuscleSummary struct {
	Backend          BackendID      `json:"backend"`
	ImagesAnalyzed   int            `json:"images_analyzed"`
	Errors           int            `json:"errors"`
	AverageAUCount   float64        `json:"average_au_count"`
	AUFrequency      map[string]int `json:"au_frequency"`
	PatternFrequency map[string]int `json:"pattern_frequency"`
}

// DeltaSummary aggregates baseline-delta results across the batch
type DeltaSummary struct {
	Backend              BackendID      `json:"backend"`
	ImagesAnalyzed       int            `json:"images_analyzed"`
	Errors               int            `json:"errors"`
	AverageAUCount       float64        `json:"average_au_count"`
	AUFrequency          map[string]int `json:"au_frequency"`
	BaselineImages       int            `json:"baseline_images"`
	AverageTotalMovement float64        `json:"average_total_movement"`
	PatternFrequency     map[string]int `json:"pattern_frequency"`
	SignificantAUs       map[string]int `json:"significant_au_frequency"`
}

// Summary is the full output of the summary statistics engine
type Summary struct {
	TotalImages int                     `json:"total_images"`
	Emotion     []EmotionBackendSummary `json:"emotion_backends"`
	Muscle      *MuscleSummary          `json:"muscle,omitempty"`
	Delta       *DeltaSummary           `json:"delta,omitempty"`
}

// PairAgreement aggregates the comparisons of one backend pair across the batch
type PairAgreement struct {
	BackendA    BackendID `json:"backend_a"`
	BackendB    BackendID `json:"backend_b"`
	Agreements  int       `json:"agreements"`
	Comparisons int       `json:"comparisons"`
	Rate        float64   `json:"rate"`
	// AverageCorrelation is nil when no image produced a defined correlation
	AverageCorrelation *float64 `json:"average_correlation"`
	// SequenceDivergence is the edit rate between the two dominant-label sequences
	SequenceDivergence *float64 `json:"sequence_divergence"`
}

// BatchComparison aggregates agreement and correlation across all images and backend pairs
type BatchComparison struct {
	ImagesCompared     int             `json:"images_compared"`
	Agreements         int             `json:"agreements"`
	Comparisons        int             `json:"comparisons"`
	AgreementRate      float64         `json:"agreement_rate"`
	AverageCorrelation *float64        `json:"average_correlation"`
	CorrelationSamples int             `json:"correlation_samples"`
	UnanimousImages    int             `json:"unanimous_images"`
	ConsensusLabels    map[Emotion]int `json:"consensus_labels"`
	Pairs              []PairAgreement `json:"pairs"`
}

// HasCorrelation reports whether at least one defined correlation contributed to the average
func (b BatchComparison) HasCorrelation() bool {
	return b.AverageCorrelation != nil
}
