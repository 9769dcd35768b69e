package export

import (
	"encoding/json"
	"time"

	apperrors "github.com/anime-shed/face-batch-inspector-go/internal/errors"
	"github.com/anime-shed/face-batch-inspector-go/pkg/models"
)

const jsonMIMEType = "application/json;charset=utf-8"

// RawJSONProjector dumps the records verbatim
type RawJSONProjector struct{}

// NewRawJSONProjector creates a raw JSON projector
func NewRawJSONProjector() *RawJSONProjector {
	return &RawJSONProjector{}
}

// Format returns the format this projector renders
func (p *RawJSONProjector) Format() models.ExportFormat {
	return models.FormatJSON
}

// Project renders the records as an indented JSON array
func (p *RawJSONProjector) Project(snap models.Snapshot) (models.Artifact, error) {
	if err := checkSnapshot(snap); err != nil {
		return models.Artifact{}, err
	}
	content, err := marshalIndent(sortedRecords(snap))
	if err != nil {
		return models.Artifact{}, err
	}
	return artifact(models.FormatJSON, snap, "json", jsonMIMEType, content), nil
}

// EnrichedExport is the document produced by the enriched JSON projector
type EnrichedExport struct {
	Metadata EnrichedMetadata `json:"metadata"`
	Images   []EnrichedImage  `json:"images"`
	Summary  EnrichedSummary  `json:"summary"`
}

// EnrichedMetadata describes the batch as a whole
type EnrichedMetadata struct {
	BatchSize       int                 `json:"batch_size"`
	AnalysisMode    models.AnalysisMode `json:"analysis_mode"`
	Backends        []models.BackendID  `json:"backends"`
	EmotionBackends []models.BackendID  `json:"emotion_backends"`
	ActionUnits     []string            `json:"action_units"`
	GeneratedAt     string              `json:"generated_at"`
	RunID           string              `json:"run_id,omitempty"`
}

// EnrichedImage is one record plus the metadata guessed from its filename
type EnrichedImage struct {
	models.BatchRecord
	FilenameMetadata FilenameMetadata `json:"filename_metadata"`
}

// EnrichedSummary carries the output of the statistics engines
type EnrichedSummary struct {
	Statistics models.Summary         `json:"statistics"`
	Comparison models.BatchComparison `json:"comparison"`
}

// EnrichedJSONProjector wraps the records with metadata and summary statistics
type EnrichedJSONProjector struct{}

// NewEnrichedJSONProjector creates an enriched JSON projector
func NewEnrichedJSONProjector() *EnrichedJSONProjector {
	return &EnrichedJSONProjector{}
}

// Format returns the format this projector renders
func (p *EnrichedJSONProjector) Format() models.ExportFormat {
	return models.FormatEnriched
}

// Project renders the enriched document
func (p *EnrichedJSONProjector) Project(snap models.Snapshot) (models.Artifact, error) {
	if err := checkSnapshot(snap); err != nil {
		return models.Artifact{}, err
	}
	content, err := marshalIndent(BuildEnriched(snap))
	if err != nil {
		return models.Artifact{}, err
	}
	return artifact(models.FormatEnriched, snap, "json", jsonMIMEType, content), nil
}

// BuildEnriched assembles the enriched document for a snapshot
func BuildEnriched(snap models.Snapshot) EnrichedExport {
	records := sortedRecords(snap)
	doc := EnrichedExport{
		Metadata: EnrichedMetadata{
			BatchSize:       len(records),
			AnalysisMode:    snap.Schema.Mode,
			Backends:        nonNil(snap.Schema.Backends),
			EmotionBackends: nonNil(snap.Schema.EmotionBackends),
			ActionUnits:     nonNilStrings(snap.Schema.ActionUnits),
			GeneratedAt:     snap.GeneratedAt.UTC().Format(time.RFC3339),
			RunID:           snap.RunID,
		},
		Images: make([]EnrichedImage, 0, len(records)),
		Summary: EnrichedSummary{
			Statistics: snap.Summary,
			Comparison: snap.Comparison,
		},
	}
	for _, r := range records {
		doc.Images = append(doc.Images, EnrichedImage{
			BatchRecord:      r,
			FilenameMetadata: ParseFilename(r.Filename),
		})
	}
	return doc
}

func marshalIndent(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, apperrors.NewInternalError("failed to encode JSON export", err)
	}
	return append(data, '\n'), nil
}

func nonNil(ids []models.BackendID) []models.BackendID {
	if ids == nil {
		return []models.BackendID{}
	}
	return ids
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
