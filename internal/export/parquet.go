package export

import (
	"bytes"
	"sort"

	"github.com/parquet-go/parquet-go"

	apperrors "github.com/anime-shed/face-batch-inspector-go/internal/errors"
	"github.com/anime-shed/face-batch-inspector-go/pkg/models"
)

const parquetMIMEType = "application/vnd.apache.parquet"

// comparisonSource is the backend column value used for cross-backend rows
const comparisonSource = "comparison"

// MetricRow is one observation in the long-format parquet export
type MetricRow struct {
	SequenceNumber int64    `parquet:"sequence_number"`
	Filename       string   `parquet:"filename"`
	Backend        string   `parquet:"backend"`
	Kind           string   `parquet:"kind"`
	Metric         string   `parquet:"metric"`
	Label          *string  `parquet:"label,optional"`
	Value          *float64 `parquet:"value,optional"`
	Text           *string  `parquet:"text,optional"`
}

// ParquetProjector renders every score as its own row so analysis tools can pivot freely
type ParquetProjector struct{}

// NewParquetProjector creates a parquet projector
func NewParquetProjector() *ParquetProjector {
	return &ParquetProjector{}
}

// Format returns the format this projector renders
func (p *ParquetProjector) Format() models.ExportFormat {
	return models.FormatParquet
}

// Project renders the snapshot as a single parquet file
func (p *ParquetProjector) Project(snap models.Snapshot) (models.Artifact, error) {
	if err := checkSnapshot(snap); err != nil {
		return models.Artifact{}, err
	}

	rows := MetricRows(snap)
	var buf bytes.Buffer
	writer := parquet.NewGenericWriter[MetricRow](&buf)
	if _, err := writer.Write(rows); err != nil {
		return models.Artifact{}, apperrors.NewInternalError("failed to write parquet rows", err)
	}
	if err := writer.Close(); err != nil {
		return models.Artifact{}, apperrors.NewInternalError("failed to close parquet writer", err)
	}
	return artifact(models.FormatParquet, snap, "parquet", parquetMIMEType, buf.Bytes()), nil
}

// MetricRows flattens the snapshot in sequence, backend and metric order
func MetricRows(snap models.Snapshot) []MetricRow {
	var rows []MetricRow
	for _, record := range sortedRecords(snap) {
		base := MetricRow{SequenceNumber: int64(record.SequenceNumber), Filename: record.Filename}
		for _, id := range snap.Schema.Backends {
			result := record.Result(id)
			if result == nil {
				continue
			}
			row := base
			row.Backend = string(id)
			row.Kind = string(result.Kind)
			rows = append(rows, resultRows(row, result)...)
		}
		if pair := record.Comparison.PrimaryPair(); pair != nil && snap.Schema.HasComparison() {
			row := base
			row.Backend = comparisonSource
			row.Kind = comparisonSource
			label := string(pair.BackendA) + ":" + string(pair.BackendB)
			rows = append(rows, with(row, "agreement", &label, boolValue(pair.Agreement), nil))
			if pair.Correlation != nil {
				rows = append(rows, with(row, "correlation", &label, pair.Correlation, nil))
			}
			consensus := string(record.Comparison.Consensus.Label)
			rows = append(rows, with(row, "consensus", nil, floatPtr(record.Comparison.Consensus.AgreementRatio), &consensus))
		}
	}
	if rows == nil {
		rows = []MetricRow{}
	}
	return rows
}

func resultRows(row MetricRow, result *models.BackendResult) []MetricRow {
	if e := result.EmotionPayload(); e != nil {
		return emotionRows(row, e)
	}
	if m := result.MusclePayload(); m != nil {
		return muscleRows(row, m)
	}
	if d := result.DeltaPayload(); d != nil {
		return deltaRows(row, d)
	}
	// Error results and variants whose payload is missing
	msg := result.ErrorMessage()
	if msg == "" {
		msg = "missing " + string(result.Kind) + " payload"
	}
	return []MetricRow{with(row, "error", nil, nil, &msg)}
}

func emotionRows(row MetricRow, e *models.EmotionResult) []MetricRow {
	dominant := string(e.Dominant)
	out := []MetricRow{with(row, "dominant_emotion", nil, e.Confidence, &dominant)}
	for _, label := range models.CanonicalEmotions {
		if v, ok := e.Score(label); ok && isFinite(v) {
			name := string(label)
			out = append(out, with(row, "emotion_score", &name, floatPtr(v), nil))
		}
	}
	return out
}

func deltaRows(row MetricRow, d *models.DeltaResult) []MetricRow {
	out := []MetricRow{with(row, "has_baseline", nil, boolValue(d.HasBaseline), nil)}
	if !d.HasBaseline {
		return out
	}
	out = append(out, with(row, "total_movement", nil, finitePtr(d.TotalMovement), nil))
	for _, code := range sortedKeys(d.Deltas) {
		c := code
		out = append(out, with(row, "au_delta", &c, finitePtr(d.Deltas[code].Delta), nil))
	}
	for _, p := range d.MovementPatterns {
		name := p.Pattern
		out = append(out, with(row, "movement_pattern", nil, finitePtr(p.Intensity), &name))
	}
	return out
}

func muscleRows(row MetricRow, m *models.MuscleResult) []MetricRow {
	out := []MetricRow{with(row, "au_count", nil, floatPtr(float64(len(m.ActionUnits))), nil)}
	for _, code := range sortedKeys(m.ActionUnits) {
		c := code
		out = append(out, with(row, "au_intensity", &c, finitePtr(m.ActionUnits[code].Intensity), nil))
	}
	for _, combo := range m.Combinations {
		name := combo.Pattern
		out = append(out, with(row, "facs_combination", nil, finitePtr(combo.Intensity), &name))
	}
	return out
}

func with(row MetricRow, metric string, label *string, value *float64, text *string) MetricRow {
	row.Metric = metric
	row.Label = label
	row.Value = value
	row.Text = text
	return row
}

func floatPtr(v float64) *float64 {
	return &v
}

func finitePtr(v float64) *float64 {
	if !isFinite(v) {
		return nil
	}
	return &v
}

func boolValue(b bool) *float64 {
	if b {
		return floatPtr(1)
	}
	return floatPtr(0)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
