package export

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/anime-shed/face-batch-inspector-go/pkg/models"
)

// primaryAUCount is how many of the strongest Action Units the tabular exports list
const primaryAUCount = 3

// listSeparator joins free-text lists inside a single cell
const listSeparator = "; "

// cell is one rendered value. Number is set when the value is numeric so spreadsheets keep the type.
type cell struct {
	Text   string
	Number *float64
}

func textCell(s string) cell {
	return cell{Text: s}
}

func numberCell(v float64) cell {
	if !isFinite(v) {
		return naCell()
	}
	return cell{Text: formatNumber(v), Number: &v}
}

func countCell(n int) cell {
	v := float64(n)
	return cell{Text: strconv.Itoa(n), Number: &v}
}

func naCell() cell {
	return cell{Text: NotAvailable}
}

func naCells(n int) []cell {
	out := make([]cell, n)
	for i := range out {
		out[i] = naCell()
	}
	return out
}

// columnSet is a group of adjacent columns driven by one part of the schema.
// cells must always return exactly len(headers()) values.
type columnSet interface {
	headers() []string
	cells(record models.BatchRecord) []cell
}

// layout builds the column sets for a discovered schema
func layout(schema models.Schema) []columnSet {
	sets := []columnSet{identityColumns{}}
	for _, id := range schema.Backends {
		switch id.Kind() {
		case models.KindEmotion:
			sets = append(sets, emotionColumns{backend: id})
		case models.KindMuscle:
			sets = append(sets, muscleColumns{backend: id})
		case models.KindMuscleDelta:
			sets = append(sets, deltaColumns{backend: id, codes: schema.ActionUnits})
		}
	}
	if schema.HasComparison() {
		sets = append(sets, comparisonColumns{})
	}
	return sets
}

func headerRow(sets []columnSet) []string {
	var out []string
	for _, s := range sets {
		out = append(out, s.headers()...)
	}
	return out
}

func recordRow(sets []columnSet, record models.BatchRecord) []cell {
	var out []cell
	for _, s := range sets {
		out = append(out, s.cells(record)...)
	}
	return out
}

type identityColumns struct{}

func (identityColumns) headers() []string {
	return []string{"Image Number", "Filename"}
}

func (identityColumns) cells(r models.BatchRecord) []cell {
	return []cell{countCell(r.SequenceNumber), textCell(r.Filename)}
}

type emotionColumns struct {
	backend models.BackendID
}

func (c emotionColumns) headers() []string {
	name := c.backend.DisplayName()
	caser := cases.Title(language.English)
	out := []string{name + " Dominant"}
	for _, e := range models.CanonicalEmotions {
		out = append(out, name+" "+caser.String(string(e)))
	}
	return out
}

func (c emotionColumns) cells(r models.BatchRecord) []cell {
	emotion := r.Result(c.backend).EmotionPayload()
	if emotion == nil {
		return naCells(1 + len(models.CanonicalEmotions))
	}
	out := []cell{textCell(string(emotion.Dominant))}
	for _, e := range models.CanonicalEmotions {
		if v, ok := emotion.Score(e); ok {
			out = append(out, numberCell(v))
		} else {
			out = append(out, naCell())
		}
	}
	return out
}

type muscleColumns struct {
	backend models.BackendID
}

func (c muscleColumns) headers() []string {
	name := c.backend.DisplayName()
	return []string{name + " Total AUs", name + " Primary AUs", name + " Face Detected"}
}

func (c muscleColumns) cells(r models.BatchRecord) []cell {
	muscle := r.Result(c.backend).MusclePayload()
	if muscle == nil {
		return naCells(3)
	}
	return []cell{
		countCell(len(muscle.ActionUnits)),
		textCell(joinList(primaryActionUnits(muscle.ActionUnits, primaryAUCount))),
		textCell(formatBool(muscle.FaceDetected)),
	}
}

// primaryActionUnits returns up to n codes ordered by descending intensity, ties by code
func primaryActionUnits(units map[string]models.ActionUnit, n int) []string {
	codes := make([]string, 0, len(units))
	for code := range units {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool {
		a, b := units[codes[i]].Intensity, units[codes[j]].Intensity
		if a != b {
			return a > b
		}
		return codes[i] < codes[j]
	})
	if len(codes) > n {
		codes = codes[:n]
	}
	return codes
}

type deltaColumns struct {
	backend models.BackendID
	codes   []string
}

func (c deltaColumns) headers() []string {
	name := c.backend.DisplayName()
	out := []string{
		name + " Has Baseline",
		name + " Total Movement",
		name + " Significant Changes",
		name + " Patterns",
	}
	for _, code := range c.codes {
		out = append(out, code+" Delta", code+" Baseline", code+" Current")
	}
	return out
}

func (c deltaColumns) cells(r models.BatchRecord) []cell {
	width := 4 + 3*len(c.codes)
	delta := r.Result(c.backend).DeltaPayload()
	if delta == nil {
		return naCells(width)
	}
	if !delta.HasBaseline {
		out := []cell{textCell(formatBool(false))}
		return append(out, naCells(width-1)...)
	}

	patterns := make([]string, 0, len(delta.MovementPatterns))
	for _, p := range delta.MovementPatterns {
		patterns = append(patterns, p.Pattern)
	}
	out := []cell{
		textCell(formatBool(true)),
		numberCell(delta.TotalMovement),
		countCell(len(delta.SignificantChanges)),
		textCell(joinList(patterns)),
	}
	for _, code := range c.codes {
		d, ok := delta.Deltas[code]
		if !ok {
			out = append(out, naCells(3)...)
			continue
		}
		out = append(out, numberCell(d.Delta), numberCell(d.Baseline), numberCell(d.Current))
	}
	return out
}

// comparisonColumns render the first backend pair of each image
type comparisonColumns struct{}

func (comparisonColumns) headers() []string {
	return []string{"Agreement", "Correlation"}
}

func (comparisonColumns) cells(r models.BatchRecord) []cell {
	pair := r.Comparison.PrimaryPair()
	if pair == nil {
		return naCells(2)
	}
	out := []cell{textCell(formatBool(pair.Agreement))}
	if pair.Correlation == nil {
		return append(out, naCell())
	}
	return append(out, numberCell(*pair.Correlation))
}

func joinList(items []string) string {
	if len(items) == 0 {
		return NoneListed
	}
	return strings.Join(items, listSeparator)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
