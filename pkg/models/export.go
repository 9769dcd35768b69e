package models

import "time"

// ExportFormat names one of the export projections
type ExportFormat string

const (
	FormatCSV      ExportFormat = "csv"
	FormatJSON     ExportFormat = "json"
	FormatEnriched ExportFormat = "enriched"
	FormatXLSX     ExportFormat = "xlsx"
	FormatParquet  ExportFormat = "parquet"
)

// ExportFormats lists the supported formats
var ExportFormats = []ExportFormat{FormatCSV, FormatJSON, FormatEnriched, FormatXLSX, FormatParquet}

// Schema is the export shape discovered from a batch
type Schema struct {
	// Backends appear in first-seen order across images sorted by sequence number
	Backends        []BackendID  `json:"backends"`
	EmotionBackends []BackendID  `json:"emotion_backends"`
	Mode            AnalysisMode `json:"mode"`
	// ActionUnits is the sorted union of AU codes found in delta payloads
	ActionUnits []string `json:"action_units"`
}

// Has reports whether the backend was discovered
func (s Schema) Has(backend BackendID) bool {
	for _, b := range s.Backends {
		if b == backend {
			return true
		}
	}
	return false
}

// HasComparison reports whether two or more emotion-capable backends were discovered
func (s Schema) HasComparison() bool {
	return len(s.EmotionBackends) >= 2
}

// Snapshot is everything a projector needs to render one artifact
type Snapshot struct {
	RunID       string
	Records     []BatchRecord
	Schema      Schema
	Summary     Summary
	Comparison  BatchComparison
	GeneratedAt time.Time
}

// Artifact is a rendered export
type Artifact struct {
	Format   ExportFormat `json:"format"`
	Filename string       `json:"filename"`
	MIMEType string       `json:"mime_type"`
	Content  []byte       `json:"-"`
}

// Size returns the content length in bytes
func (a Artifact) Size() int {
	return len(a.Content)
}
