package analyzer

// StatisticsOptions configures the comparison and summary engines
type StatisticsOptions struct {
	// Valence thresholds: scores above +ValenceThreshold are positive, below -ValenceThreshold negative
	ValenceThreshold float64

	// NeutralFloor is the minimum valence denominator. With the default of 1.0 the
	// score reduces to positive minus negative whenever neutral mass is below 1.
	NeutralFloor float64

	// RequireCanonicalAgreement makes two unknown dominant labels disagree
	RequireCanonicalAgreement bool

	// Performance options
	MaxWorkers int
}

// DefaultStatisticsOptions returns the options the exports are calibrated against
func DefaultStatisticsOptions() StatisticsOptions {
	return StatisticsOptions{
		ValenceThreshold:          0.1,
		NeutralFloor:              1.0,
		RequireCanonicalAgreement: true,
		MaxWorkers:                0, // Use default CPU count
	}
}

// WithValenceThreshold overrides the valence classification threshold
func (opts StatisticsOptions) WithValenceThreshold(threshold float64) StatisticsOptions {
	opts.ValenceThreshold = threshold
	return opts
}

// WithNeutralFloor overrides the valence denominator floor
func (opts StatisticsOptions) WithNeutralFloor(floor float64) StatisticsOptions {
	opts.NeutralFloor = floor
	return opts
}

// WithMaxWorkers sets the worker count used for concurrent ingestion
func (opts StatisticsOptions) WithMaxWorkers(workers int) StatisticsOptions {
	opts.MaxWorkers = workers
	return opts
}

// normalized replaces unusable values with defaults
func (opts StatisticsOptions) normalized() StatisticsOptions {
	def := DefaultStatisticsOptions()
	if opts.ValenceThreshold < 0 || !isFinite(opts.ValenceThreshold) {
		opts.ValenceThreshold = def.ValenceThreshold
	}
	if opts.NeutralFloor <= 0 || !isFinite(opts.NeutralFloor) {
		opts.NeutralFloor = def.NeutralFloor
	}
	return opts
}
