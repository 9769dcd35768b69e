// Package export renders a batch snapshot into downloadable artifacts.
// Every projector is a pure function of the snapshot; none of them mutates the records.
package export

import (
	"strconv"
	"time"

	apperrors "github.com/anime-shed/face-batch-inspector-go/internal/errors"
	"github.com/anime-shed/face-batch-inspector-go/internal/repository"
	"github.com/anime-shed/face-batch-inspector-go/pkg/models"
)

const (
	filenamePrefix  = "facial_analysis_"
	timestampLayout = "20060102_150405"

	// NotAvailable marks a cell whose source value is absent
	NotAvailable = "N/A"
	// NoneListed marks a present but empty list
	NoneListed = "None"
)

// Projector renders a snapshot into one artifact
type Projector interface {
	Format() models.ExportFormat
	Project(snap models.Snapshot) (models.Artifact, error)
}

// Filename returns the suggested artifact name for a format and generation time.
// Formats sharing an extension get distinct names so sinks never overwrite one with the other.
func Filename(format models.ExportFormat, generatedAt time.Time, ext string) string {
	prefix := filenamePrefix
	if format == models.FormatEnriched {
		prefix += "enriched_"
	}
	return prefix + generatedAt.UTC().Format(timestampLayout) + "." + ext
}

// checkSnapshot refuses empty batches
func checkSnapshot(snap models.Snapshot) error {
	if len(snap.Records) == 0 {
		return apperrors.NewValidationError("no images in batch", repository.ErrEmptyBatch)
	}
	return nil
}

// sortedRecords returns the snapshot records ordered by sequence number without touching the snapshot
func sortedRecords(snap models.Snapshot) []models.BatchRecord {
	records := make([]models.BatchRecord, len(snap.Records))
	copy(records, snap.Records)
	models.SortRecords(records)
	return records
}

func artifact(format models.ExportFormat, snap models.Snapshot, ext, mime string, content []byte) models.Artifact {
	return models.Artifact{
		Format:   format,
		Filename: Filename(format, snap.GeneratedAt, ext),
		MIMEType: mime,
		Content:  content,
	}
}

// formatNumber renders v with four decimals, or N/A when v is not finite
func formatNumber(v float64) string {
	if !isFinite(v) {
		return NotAvailable
	}
	return strconv.FormatFloat(v, 'f', 4, 64)
}

func formatBool(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}
