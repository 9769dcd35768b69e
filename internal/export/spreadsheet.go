package export

import (
	"fmt"
	"sort"
	"time"

	"github.com/xuri/excelize/v2"

	apperrors "github.com/anime-shed/face-batch-inspector-go/internal/errors"
	"github.com/anime-shed/face-batch-inspector-go/pkg/models"
)

const (
	xlsxMIMEType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	resultsSheet = "Results"
	summarySheet = "Summary"
	defaultSheet = "Sheet1"
)

// XLSXProjector renders the per-image table plus a summary sheet
type XLSXProjector struct{}

// NewXLSXProjector creates a spreadsheet projector
func NewXLSXProjector() *XLSXProjector {
	return &XLSXProjector{}
}

// Format returns the format this projector renders
func (p *XLSXProjector) Format() models.ExportFormat {
	return models.FormatXLSX
}

// Project renders the workbook. Document timestamps come from the snapshot so repeated exports are identical.
func (p *XLSXProjector) Project(snap models.Snapshot) (models.Artifact, error) {
	if err := checkSnapshot(snap); err != nil {
		return models.Artifact{}, err
	}
	t, err := buildTable(snap)
	if err != nil {
		return models.Artifact{}, err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(defaultSheet, resultsSheet); err != nil {
		return models.Artifact{}, xlsxError("rename sheet", err)
	}
	if err := writeResultsSheet(f, t); err != nil {
		return models.Artifact{}, err
	}
	if _, err := f.NewSheet(summarySheet); err != nil {
		return models.Artifact{}, xlsxError("create summary sheet", err)
	}
	if err := writeRows(f, summarySheet, summaryRows(snap)); err != nil {
		return models.Artifact{}, err
	}
	f.SetActiveSheet(0)

	stamp := snap.GeneratedAt.UTC().Format(time.RFC3339)
	if err := f.SetDocProps(&excelize.DocProperties{
		Title:    "Facial analysis batch export",
		Creator:  "face-batch-inspector",
		Created:  stamp,
		Modified: stamp,
	}); err != nil {
		return models.Artifact{}, xlsxError("set document properties", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return models.Artifact{}, xlsxError("write workbook", err)
	}
	return artifact(models.FormatXLSX, snap, "xlsx", xlsxMIMEType, buf.Bytes()), nil
}

func writeResultsSheet(f *excelize.File, t table) error {
	rows := make([][]interface{}, 0, len(t.rows)+1)
	header := make([]interface{}, len(t.header))
	for i, h := range t.header {
		header[i] = h
	}
	rows = append(rows, header)
	for _, row := range t.rows {
		values := make([]interface{}, len(row))
		for i, c := range row {
			if c.Number != nil {
				values[i] = *c.Number
			} else {
				values[i] = c.Text
			}
		}
		rows = append(rows, values)
	}
	if err := writeRows(f, resultsSheet, rows); err != nil {
		return err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return xlsxError("create header style", err)
	}
	last, err := excelize.CoordinatesToCellName(len(t.header), 1)
	if err != nil {
		return xlsxError("resolve header range", err)
	}
	if err := f.SetCellStyle(resultsSheet, "A1", last, bold); err != nil {
		return xlsxError("style header", err)
	}
	if err := f.SetPanes(resultsSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return xlsxError("freeze header", err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		start, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return xlsxError("resolve cell", err)
		}
		values := row
		if err := f.SetSheetRow(sheet, start, &values); err != nil {
			return xlsxError(fmt.Sprintf("write %s row %d", sheet, i+1), err)
		}
	}
	return nil
}

// summaryRows lays the batch statistics out as labelled blocks separated by blank rows
func summaryRows(snap models.Snapshot) [][]interface{} {
	rows := [][]interface{}{
		{"Metric", "Value"},
		{"Total Images", snap.Summary.TotalImages},
		{"Analysis Mode", string(snap.Schema.Mode)},
		{"Generated At", snap.GeneratedAt.UTC().Format(time.RFC3339)},
	}

	for _, es := range snap.Summary.Emotion {
		name := es.Backend.DisplayName()
		rows = append(rows,
			nil,
			[]interface{}{name, "Mean", "Std Dev", "Samples", "Dominant Count"},
		)
		for _, e := range models.CanonicalEmotions {
			stat := es.Emotions[e]
			rows = append(rows, []interface{}{string(e), stat.Mean, stat.StdDev, stat.Samples, es.DominantCounts[e]})
		}
		rows = append(rows,
			[]interface{}{"Images Analyzed", es.ImagesAnalyzed},
			[]interface{}{"Errors", es.Errors},
			[]interface{}{"Valence Score", es.Valence.Score},
			[]interface{}{"Valence", string(es.Valence.Classification)},
		)
	}

	if m := snap.Summary.Muscle; m != nil {
		rows = append(rows,
			nil,
			[]interface{}{m.Backend.DisplayName(), "Value"},
			[]interface{}{"Images Analyzed", m.ImagesAnalyzed},
			[]interface{}{"Errors", m.Errors},
			[]interface{}{"Average AU Count", m.AverageAUCount},
		)
		rows = append(rows, frequencyRows("AU", m.AUFrequency)...)
		rows = append(rows, frequencyRows("Pattern", m.PatternFrequency)...)
	}

	if d := snap.Summary.Delta; d != nil {
		rows = append(rows,
			nil,
			[]interface{}{d.Backend.DisplayName(), "Value"},
			[]interface{}{"Images Analyzed", d.ImagesAnalyzed},
			[]interface{}{"Errors", d.Errors},
			[]interface{}{"Average AU Count", d.AverageAUCount},
			[]interface{}{"Baseline Images", d.BaselineImages},
			[]interface{}{"Average Total Movement", d.AverageTotalMovement},
		)
		rows = append(rows, frequencyRows("AU", d.AUFrequency)...)
		rows = append(rows, frequencyRows("Significant AU", d.SignificantAUs)...)
		rows = append(rows, frequencyRows("Pattern", d.PatternFrequency)...)
	}

	if snap.Schema.HasComparison() {
		c := snap.Comparison
		rows = append(rows,
			nil,
			[]interface{}{"Comparison", "Value"},
			[]interface{}{"Images Compared", c.ImagesCompared},
			[]interface{}{"Agreement Rate", c.AgreementRate},
			[]interface{}{"Average Correlation", optionalValue(c.AverageCorrelation)},
			[]interface{}{"Unanimous Images", c.UnanimousImages},
		)
		for _, pair := range c.Pairs {
			label := pair.BackendA.DisplayName() + " vs " + pair.BackendB.DisplayName()
			rows = append(rows,
				[]interface{}{label + " Agreement Rate", pair.Rate},
				[]interface{}{label + " Average Correlation", optionalValue(pair.AverageCorrelation)},
			)
		}
	}
	return rows
}

// frequencyRows lists counts in descending order, ties by key
func frequencyRows(label string, counts map[string]int) [][]interface{} {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	rows := make([][]interface{}, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, []interface{}{label + " " + k, counts[k]})
	}
	return rows
}

func optionalValue(v *float64) interface{} {
	if v == nil || !isFinite(*v) {
		return NotAvailable
	}
	return *v
}

func xlsxError(action string, err error) error {
	return apperrors.NewInternalError("failed to "+action, err)
}
