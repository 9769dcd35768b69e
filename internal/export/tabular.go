package export

import (
	"bytes"
	"encoding/csv"
	"fmt"

	apperrors "github.com/anime-shed/face-batch-inspector-go/internal/errors"
	"github.com/anime-shed/face-batch-inspector-go/pkg/models"
)

const csvMIMEType = "text/csv;charset=utf-8"

// CSVProjector renders one row per image with backend-conditional columns
type CSVProjector struct{}

// NewCSVProjector creates a CSV projector
func NewCSVProjector() *CSVProjector {
	return &CSVProjector{}
}

// Format returns the format this projector renders
func (p *CSVProjector) Format() models.ExportFormat {
	return models.FormatCSV
}

// Project renders the snapshot as CSV with "\n" line endings
func (p *CSVProjector) Project(snap models.Snapshot) (models.Artifact, error) {
	if err := checkSnapshot(snap); err != nil {
		return models.Artifact{}, err
	}

	table, err := buildTable(snap)
	if err != nil {
		return models.Artifact{}, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(table.header); err != nil {
		return models.Artifact{}, apperrors.NewInternalError("failed to write CSV header", err)
	}
	for _, row := range table.rows {
		texts := make([]string, len(row))
		for i, c := range row {
			texts[i] = c.Text
		}
		if err := w.Write(texts); err != nil {
			return models.Artifact{}, apperrors.NewInternalError("failed to write CSV row", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return models.Artifact{}, apperrors.NewInternalError("failed to flush CSV", err)
	}

	return artifact(models.FormatCSV, snap, "csv", csvMIMEType, buf.Bytes()), nil
}

// table is the rendered grid shared by the CSV and spreadsheet projectors
type table struct {
	header []string
	rows   [][]cell
}

func buildTable(snap models.Snapshot) (table, error) {
	sets := layout(snap.Schema)
	t := table{header: headerRow(sets)}
	for _, record := range sortedRecords(snap) {
		row := recordRow(sets, record)
		if len(row) != len(t.header) {
			return table{}, apperrors.NewInternalError(
				fmt.Sprintf("row for image %d has %d cells, header has %d", record.SequenceNumber, len(row), len(t.header)), nil)
		}
		t.rows = append(t.rows, row)
	}
	return t, nil
}
