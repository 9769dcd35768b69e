package schema

import (
	"reflect"
	"testing"

	"github.com/anime-shed/face-batch-inspector-go/pkg/models"
)

func emotion() *models.BackendResult {
	return models.NewEmotionResult(models.EmotionResult{
		Emotions: map[models.Emotion]float64{models.EmotionNeutral: 1},
		Dominant: models.EmotionNeutral,
	})
}

func delta(codes ...string) *models.BackendResult {
	deltas := make(map[string]models.AUDelta)
	for _, c := range codes {
		deltas[c] = models.AUDelta{Delta: 0.1}
	}
	return models.NewDeltaResult(models.DeltaResult{HasBaseline: true, Deltas: deltas})
}

func rec(seq int, results map[models.BackendID]*models.BackendResult) models.BatchRecord {
	return models.BatchRecord{SequenceNumber: seq, AnalysisMode: models.ModeMulti, Results: results}
}

func TestDiscover(t *testing.T) {
	tests := []struct {
		name     string
		records  []models.BatchRecord
		backends []models.BackendID
		emotion  []models.BackendID
		mode     models.AnalysisMode
		aus      []string
	}{
		{
			name:     "empty",
			records:  nil,
			backends: []models.BackendID{},
			emotion:  []models.BackendID{},
			mode:     models.ModeSingle,
			aus:      []string{},
		},
		{
			name: "first seen in sequence order",
			records: []models.BatchRecord{
				rec(2, map[models.BackendID]*models.BackendResult{models.BackendFER: emotion()}),
				rec(1, map[models.BackendID]*models.BackendResult{models.BackendFACSDelta: delta("AU12")}),
				rec(3, map[models.BackendID]*models.BackendResult{models.BackendDeepFace: emotion()}),
			},
			backends: []models.BackendID{models.BackendFACSDelta, models.BackendFER, models.BackendDeepFace},
			emotion:  []models.BackendID{models.BackendFER, models.BackendDeepFace},
			mode:     models.ModeMulti,
			aus:      []string{"AU12"},
		},
		{
			name: "canonical order within one image",
			records: []models.BatchRecord{
				rec(1, map[models.BackendID]*models.BackendResult{
					models.BackendFACS:     models.NewMuscleResult(models.MuscleResult{}),
					models.BackendDeepFace: emotion(),
					models.BackendFER:      models.NewErrorResult("timeout"),
				}),
			},
			backends: []models.BackendID{models.BackendFER, models.BackendDeepFace, models.BackendFACS},
			emotion:  []models.BackendID{models.BackendFER, models.BackendDeepFace},
			mode:     models.ModeMulti,
			aus:      []string{},
		},
		{
			name: "single backend with sorted AU union",
			records: []models.BatchRecord{
				rec(1, map[models.BackendID]*models.BackendResult{models.BackendFACSDelta: delta("AU2", "AU12")}),
				rec(2, map[models.BackendID]*models.BackendResult{models.BackendFACSDelta: delta("AU1", "AU12")}),
				rec(3, map[models.BackendID]*models.BackendResult{models.BackendFACSDelta: models.NewErrorResult("No baseline set")}),
			},
			backends: []models.BackendID{models.BackendFACSDelta},
			emotion:  []models.BackendID{},
			mode:     models.ModeSingle,
			aus:      []string{"AU1", "AU12", "AU2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Discover(tt.records)
			if !reflect.DeepEqual(got.Backends, tt.backends) {
				t.Errorf("Expected backends %v, got %v", tt.backends, got.Backends)
			}
			if !reflect.DeepEqual(got.EmotionBackends, tt.emotion) {
				t.Errorf("Expected emotion backends %v, got %v", tt.emotion, got.EmotionBackends)
			}
			if got.Mode != tt.mode {
				t.Errorf("Expected mode %s, got %s", tt.mode, got.Mode)
			}
			if !reflect.DeepEqual(got.ActionUnits, tt.aus) {
				t.Errorf("Expected action units %v, got %v", tt.aus, got.ActionUnits)
			}
		})
	}
}

func TestDiscover_ReflectsMutation(t *testing.T) {
	records := []models.BatchRecord{
		rec(1, map[models.BackendID]*models.BackendResult{models.BackendFER: emotion()}),
	}
	before := Discover(records)

	records = append(records, rec(2, map[models.BackendID]*models.BackendResult{models.BackendFACSDelta: delta("AU4")}))
	after := Discover(records)

	if len(before.Backends) != 1 || len(after.Backends) != 2 {
		t.Errorf("Expected 1 then 2 backends, got %d then %d", len(before.Backends), len(after.Backends))
	}
	if len(after.ActionUnits) != 1 || after.ActionUnits[0] != "AU4" {
		t.Errorf("Expected AU4 after mutation, got %v", after.ActionUnits)
	}
}
