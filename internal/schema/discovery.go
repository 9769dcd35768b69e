// Package schema derives the export shape of a batch from the records it contains.
package schema

import (
	"sort"

	"github.com/anime-shed/face-batch-inspector-go/pkg/models"
)

// Discover scans records and returns the discovered backends, mode and Action Unit codes.
// It does not cache anything; every export calls it again.
func Discover(records []models.BatchRecord) models.Schema {
	sorted := make([]models.BatchRecord, len(records))
	copy(sorted, records)
	models.SortRecords(sorted)

	s := models.Schema{
		Backends:        []models.BackendID{},
		EmotionBackends: []models.BackendID{},
		ActionUnits:     []string{},
	}
	seen := make(map[models.BackendID]bool)
	codes := make(map[string]bool)

	for _, r := range sorted {
		for _, id := range r.Backends() {
			if r.Results[id] == nil || seen[id] {
				continue
			}
			seen[id] = true
			s.Backends = append(s.Backends, id)
			if id.IsEmotion() {
				s.EmotionBackends = append(s.EmotionBackends, id)
			}
		}
		for _, id := range r.Backends() {
			delta := r.Results[id].DeltaPayload()
			if delta == nil {
				continue
			}
			for code := range delta.Deltas {
				codes[code] = true
			}
		}
	}

	for code := range codes {
		s.ActionUnits = append(s.ActionUnits, code)
	}
	sort.Strings(s.ActionUnits)

	s.Mode = models.ModeSingle
	if len(s.Backends) >= 2 {
		s.Mode = models.ModeMulti
	}
	return s
}
