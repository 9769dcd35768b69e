package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/anime-shed/face-batch-inspector-go/internal/analyzer"
	"github.com/anime-shed/face-batch-inspector-go/internal/normalizer"
	"github.com/anime-shed/face-batch-inspector-go/internal/observer"
	"github.com/anime-shed/face-batch-inspector-go/internal/repository"
	"github.com/anime-shed/face-batch-inspector-go/internal/strategy"
	"github.com/anime-shed/face-batch-inspector-go/pkg/models"
)

const (
	ferPayload      = `{"emotions":{"happy":0.7,"neutral":0.2,"sad":0.1},"dominant_emotion":"happy","face_detected":true}`
	deepfacePayload = `{"emotions":{"happy":60,"neutral":30,"angry":10},"dominant_emotion":"happy","face_detected":true}`
	facsPayload     = `{"action_units":{"AU6":{"intensity":0.5},"AU12":{"intensity":0.8}},"facs_combinations":[],"face_detected":true}`
)

func newCollector(t *testing.T, mode models.AnalysisMode, expected ...models.BackendID) (*Collector, *repository.MemoryBatchRepository, *observer.MetricsObserver) {
	t.Helper()
	store := repository.NewMemoryBatchRepository("run-test")
	metrics := observer.NewMetricsObserver()
	events := observer.NewEventPublisher()
	events.Subscribe(metrics)

	engine := analyzer.NewComparisonEngine(analyzer.DefaultStatisticsOptions())
	c, err := New(normalizer.New(normalizer.DefaultLabelTable()), store, strategy.NewComparisonContext(engine), events, mode, expected)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	return c, store, metrics
}

func submission(seq int, backend models.BackendID, payload string) models.ResultSubmission {
	return models.ResultSubmission{
		SequenceNumber: seq,
		Filename:       fmt.Sprintf("frame_%d.jpg", seq),
		Backend:        backend,
		Payload:        json.RawMessage(payload),
	}
}

func TestSubmit_CompletesWhenAllExpectedArrive(t *testing.T) {
	c, store, _ := newCollector(t, models.ModeMulti, models.BackendFER, models.BackendDeepFace)
	ctx := context.Background()

	out, err := c.Submit(ctx, submission(1, models.BackendDeepFace, deepfacePayload))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if out.Completed || out.Pending != 1 {
		t.Errorf("Expected image pending after first backend, got %+v", out)
	}
	if store.Len() != 0 {
		t.Errorf("Expected nothing stored yet, got %d", store.Len())
	}

	out, err = c.Submit(ctx, submission(1, models.BackendFER, ferPayload))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !out.Completed || out.Pending != 0 {
		t.Errorf("Expected image completed, got %+v", out)
	}

	record, ok := store.Get(1)
	if !ok {
		t.Fatal("Expected record 1 to be stored")
	}
	if record.AnalysisMode != models.ModeMulti {
		t.Errorf("Expected multi mode, got %s", record.AnalysisMode)
	}
	fer := record.Result(models.BackendFER).EmotionPayload()
	if fer == nil || fer.Dominant != models.EmotionHappiness {
		t.Fatalf("Expected normalized FER happiness, got %+v", fer)
	}
	deepface := record.Result(models.BackendDeepFace).EmotionPayload()
	if v, _ := deepface.Score(models.EmotionHappiness); v != 0.6 {
		t.Errorf("Expected percent scores scaled to 0.6, got %f", v)
	}
	if record.Comparison == nil || !record.Comparison.PrimaryPair().Agreement {
		t.Errorf("Expected an agreeing comparison, got %+v", record.Comparison)
	}
}

func TestSubmit_SingleModeHasNoComparison(t *testing.T) {
	c, store, _ := newCollector(t, models.ModeSingle, models.BackendFER, models.BackendDeepFace)
	ctx := context.Background()
	for _, sub := range []models.ResultSubmission{
		submission(3, models.BackendFER, ferPayload),
		submission(3, models.BackendDeepFace, deepfacePayload),
	} {
		if _, err := c.Submit(ctx, sub); err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
	}
	record, _ := store.Get(3)
	if record.Comparison != nil {
		t.Errorf("Expected no comparison in single mode, got %+v", record.Comparison)
	}
}

func TestSubmit_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		setup    []models.ResultSubmission
		sub      models.ResultSubmission
		expected error
	}{
		{
			name:     "non-positive sequence",
			sub:      submission(0, models.BackendFER, ferPayload),
			expected: repository.ErrInvalidSequence,
		},
		{
			name:     "unknown backend",
			sub:      submission(1, models.BackendID("openface"), ferPayload),
			expected: ErrUnknownBackend,
		},
		{
			name:     "same backend twice",
			setup:    []models.ResultSubmission{submission(1, models.BackendFER, ferPayload)},
			sub:      submission(1, models.BackendFER, ferPayload),
			expected: ErrDuplicateResult,
		},
		{
			name:     "image already stored",
			setup:    []models.ResultSubmission{submission(1, models.BackendFER, ferPayload), submission(1, models.BackendFACS, facsPayload)},
			sub:      submission(1, models.BackendDeepFace, deepfacePayload),
			expected: repository.ErrDuplicateSequence,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _, metrics := newCollector(t, models.ModeMulti, models.BackendFER, models.BackendFACS)
			ctx := context.Background()
			for _, s := range tt.setup {
				if _, err := c.Submit(ctx, s); err != nil {
					t.Fatalf("Expected setup to succeed, got %v", err)
				}
			}
			_, err := c.Submit(ctx, tt.sub)
			if !errors.Is(err, tt.expected) {
				t.Errorf("Expected %v, got %v", tt.expected, err)
			}
			if got := metrics.GetMetrics()["results_rejected"]; got != int64(1) {
				t.Errorf("Expected 1 rejection event, got %v", got)
			}
		})
	}
}

func TestSubmit_MalformedPayloadStoredAsError(t *testing.T) {
	c, store, _ := newCollector(t, models.ModeSingle, models.BackendFACS)
	if _, err := c.Submit(context.Background(), submission(5, models.BackendFACS, `{"face_detected":true}`)); err != nil {
		t.Fatalf("Expected malformed payload to be accepted, got %v", err)
	}
	record, ok := store.Get(5)
	if !ok {
		t.Fatal("Expected record 5 to be stored")
	}
	if msg := record.Result(models.BackendFACS).ErrorMessage(); msg != "malformed payload: missing action_units" {
		t.Errorf("Expected missing action_units error, got %q", msg)
	}
}

func TestSettle_FillsMissingBackends(t *testing.T) {
	c, store, metrics := newCollector(t, models.ModeMulti, models.BackendFER, models.BackendDeepFace, models.BackendFACS)
	ctx := context.Background()
	subs := []models.ResultSubmission{
		submission(2, models.BackendFER, ferPayload),
		submission(1, models.BackendFER, ferPayload),
		submission(1, models.BackendDeepFace, deepfacePayload),
	}
	for _, s := range subs {
		if _, err := c.Submit(ctx, s); err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
	}

	settled, err := c.Settle(ctx)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if settled != 2 || c.Pending() != 0 || store.Len() != 2 {
		t.Fatalf("Expected 2 settled and stored, got settled=%d pending=%d stored=%d", settled, c.Pending(), store.Len())
	}

	second, _ := store.Get(2)
	if msg := second.Result(models.BackendDeepFace).ErrorMessage(); msg != MissingResultMessage {
		t.Errorf("Expected %q, got %q", MissingResultMessage, msg)
	}
	if second.Comparison != nil {
		t.Errorf("Expected no comparison with one valid emotion backend, got %+v", second.Comparison)
	}
	first, _ := store.Get(1)
	if first.Comparison == nil {
		t.Error("Expected a comparison for image 1")
	}
	if got := metrics.GetMetrics()["records_appended"]; got != int64(2) {
		t.Errorf("Expected 2 append events, got %v", got)
	}
}

func TestSubmit_ConcurrentArrivals(t *testing.T) {
	c, store, _ := newCollector(t, models.ModeMulti, models.BackendFER, models.BackendDeepFace, models.BackendFACS)
	ctx := context.Background()

	const images = 50
	var wg sync.WaitGroup
	for seq := images; seq >= 1; seq-- {
		for _, s := range []models.ResultSubmission{
			submission(seq, models.BackendFACS, facsPayload),
			submission(seq, models.BackendDeepFace, deepfacePayload),
			submission(seq, models.BackendFER, ferPayload),
		} {
			wg.Add(1)
			go func(s models.ResultSubmission) {
				defer wg.Done()
				if _, err := c.Submit(ctx, s); err != nil {
					t.Errorf("Expected no error, got %v", err)
				}
			}(s)
		}
	}
	wg.Wait()

	if store.Len() != images || c.Pending() != 0 {
		t.Fatalf("Expected %d records and nothing pending, got %d and %d", images, store.Len(), c.Pending())
	}
	for i, r := range store.All() {
		if r.SequenceNumber != i+1 {
			t.Errorf("Expected sequence %d at position %d, got %d", i+1, i, r.SequenceNumber)
		}
	}
}

func TestConfigure(t *testing.T) {
	tests := []struct {
		name     string
		mode     models.AnalysisMode
		expected []models.BackendID
		err      error
		order    []models.BackendID
	}{
		{"canonical order", models.ModeMulti, []models.BackendID{models.BackendFACS, models.BackendFER, models.BackendFER}, nil, []models.BackendID{models.BackendFER, models.BackendFACS}},
		{"empty", models.ModeSingle, nil, ErrNoExpectedBackends, nil},
		{"unknown backend", models.ModeSingle, []models.BackendID{"openface"}, ErrUnknownBackend, nil},
		{"bad mode", models.AnalysisMode("dual"), []models.BackendID{models.BackendFER}, ErrInvalidMode, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _, _ := newCollector(t, models.ModeSingle, models.BackendFER)
			err := c.Configure(tt.mode, tt.expected)
			if tt.err != nil {
				if !errors.Is(err, tt.err) {
					t.Errorf("Expected %v, got %v", tt.err, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			got := c.Expected()
			if len(got) != len(tt.order) {
				t.Fatalf("Expected %v, got %v", tt.order, got)
			}
			for i := range got {
				if got[i] != tt.order[i] {
					t.Errorf("Expected %v, got %v", tt.order, got)
				}
			}
		})
	}
}

func TestRestart(t *testing.T) {
	c, store, _ := newCollector(t, models.ModeMulti, models.BackendFER, models.BackendDeepFace)
	ctx := context.Background()

	for _, sub := range []models.ResultSubmission{
		submission(1, models.BackendFER, ferPayload),
		submission(1, models.BackendDeepFace, deepfacePayload),
		submission(2, models.BackendFER, ferPayload),
	} {
		if _, err := c.Submit(ctx, sub); err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
	}

	if err := c.Restart("run-bad", models.AnalysisMode("dual"), []models.BackendID{models.BackendFER}); !errors.Is(err, ErrInvalidMode) {
		t.Fatalf("Expected %v, got %v", ErrInvalidMode, err)
	}
	if store.RunID() != "run-test" || store.Len() != 1 || c.Pending() != 1 {
		t.Errorf("Expected an invalid restart to leave the run alone, got run %s with %d records and %d pending", store.RunID(), store.Len(), c.Pending())
	}

	if err := c.Restart("run-2", models.ModeSingle, []models.BackendID{models.BackendFACS}); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if store.RunID() != "run-2" || store.Len() != 0 || c.Pending() != 0 {
		t.Errorf("Expected a fresh run, got run %s with %d records and %d pending", store.RunID(), store.Len(), c.Pending())
	}
	if c.Mode() != models.ModeSingle || len(c.Expected()) != 1 || c.Expected()[0] != models.BackendFACS {
		t.Errorf("Expected single mode waiting on facs, got %s %v", c.Mode(), c.Expected())
	}
}

func TestRestart_ConcurrentSubmitsBelongToOneRun(t *testing.T) {
	c, store, _ := newCollector(t, models.ModeSingle, models.BackendFER)
	ctx := context.Background()

	const images = 200
	var wg sync.WaitGroup
	for seq := 1; seq <= images; seq++ {
		wg.Add(1)
		go func(seq int) {
			defer wg.Done()
			// Rejections are expected once a number lands in both runs
			_, _ = c.Submit(ctx, submission(seq, models.BackendFER, ferPayload))
		}(seq)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := c.Restart("run-2", models.ModeSingle, []models.BackendID{models.BackendFER}); err != nil {
			t.Errorf("Expected no error, got %v", err)
		}
	}()
	wg.Wait()

	if store.RunID() != "run-2" {
		t.Fatalf("Expected run-2, got %s", store.RunID())
	}
	if store.Len() > images {
		t.Errorf("Expected at most %d images in the new run, got %d", images, store.Len())
	}
	if c.Pending() != 0 {
		t.Errorf("Expected nothing pending in single-backend mode, got %d", c.Pending())
	}
}
