// Package collector reconciles per-backend results into one batch record per image.
// Results for the same image may arrive from different backends in any order and concurrently.
package collector

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/anime-shed/face-batch-inspector-go/internal/normalizer"
	"github.com/anime-shed/face-batch-inspector-go/internal/observer"
	"github.com/anime-shed/face-batch-inspector-go/internal/repository"
	"github.com/anime-shed/face-batch-inspector-go/internal/strategy"
	"github.com/anime-shed/face-batch-inspector-go/pkg/models"
)

// MissingResultMessage is recorded for an expected backend that never reported
const MissingResultMessage = "no result received"

var (
	// ErrUnknownBackend indicates a submission from a backend outside the fixed set
	ErrUnknownBackend = errors.New("unknown backend")

	// ErrDuplicateResult indicates a second result for the same image and backend
	ErrDuplicateResult = errors.New("duplicate backend result")

	// ErrNoExpectedBackends indicates a run configured without any backend to wait for
	ErrNoExpectedBackends = errors.New("at least one expected backend is required")

	// ErrInvalidMode indicates an analysis mode other than single or multi
	ErrInvalidMode = errors.New("invalid analysis mode")
)

// Outcome describes what a submission did to the batch
type Outcome struct {
	SequenceNumber int
	// Result is the normalized result as filed, nil for rejected submissions
	Result    *models.BackendResult
	Completed bool
	Pending   int
}

type pendingImage struct {
	filename string
	mode     models.AnalysisMode
	results  map[models.BackendID]*models.BackendResult
}

// Collector groups results by sequence number and appends a record once every expected backend reported
type Collector struct {
	mu          sync.Mutex
	normalizer  *normalizer.Normalizer
	store       repository.BatchRepository
	comparisons *strategy.ComparisonContext
	events      observer.Subject

	mode     models.AnalysisMode
	expected []models.BackendID
	pending  map[int]*pendingImage
}

// New creates a collector writing into store. events may be nil.
func New(
	n *normalizer.Normalizer,
	store repository.BatchRepository,
	comparisons *strategy.ComparisonContext,
	events observer.Subject,
	mode models.AnalysisMode,
	expected []models.BackendID,
) (*Collector, error) {
	c := &Collector{
		normalizer:  n,
		store:       store,
		comparisons: comparisons,
		events:      events,
	}
	if err := c.Configure(mode, expected); err != nil {
		return nil, err
	}
	return c, nil
}

// Configure sets the run mode and expected backends and drops every pending image
func (c *Collector) Configure(mode models.AnalysisMode, expected []models.BackendID) error {
	backends, err := runBackends(mode, expected)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.configureLocked(mode, backends)
	return nil
}

// Restart begins a new run: it reconfigures the collector and resets the store under one lock,
// so a concurrent Submit lands either in the old run or the new one. An invalid configuration
// leaves both untouched.
func (c *Collector) Restart(runID string, mode models.AnalysisMode, expected []models.BackendID) error {
	backends, err := runBackends(mode, expected)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.store.Reset(runID)
	c.configureLocked(mode, backends)
	return nil
}

func (c *Collector) configureLocked(mode models.AnalysisMode, backends []models.BackendID) {
	c.mode = mode
	c.expected = backends
	c.pending = make(map[int]*pendingImage)
}

func runBackends(mode models.AnalysisMode, expected []models.BackendID) ([]models.BackendID, error) {
	if !mode.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}
	return canonicalBackends(expected)
}

// Mode returns the run's analysis mode
func (c *Collector) Mode() models.AnalysisMode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// Expected returns the backends each image waits for in canonical order
func (c *Collector) Expected() []models.BackendID {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.BackendID, len(c.expected))
	copy(out, c.expected)
	return out
}

// Pending returns the number of images still waiting for a backend
func (c *Collector) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Submit decodes one backend result and files it under its image.
// Payload problems never fail the call; they are stored as error results.
func (c *Collector) Submit(ctx context.Context, sub models.ResultSubmission) (Outcome, error) {
	if sub.SequenceNumber <= 0 {
		return c.reject(ctx, sub, fmt.Errorf("%w: got %d", repository.ErrInvalidSequence, sub.SequenceNumber))
	}
	if !sub.Backend.IsKnown() {
		return c.reject(ctx, sub, fmt.Errorf("%w: %q", ErrUnknownBackend, sub.Backend))
	}

	result := c.normalizer.Decode(sub.Backend, sub.Payload)

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, stored := c.store.Get(sub.SequenceNumber); stored {
		return c.reject(ctx, sub, fmt.Errorf("%w: %d", repository.ErrDuplicateSequence, sub.SequenceNumber))
	}

	img, ok := c.pending[sub.SequenceNumber]
	if !ok {
		mode := c.mode
		if sub.AnalysisMode.IsValid() {
			mode = sub.AnalysisMode
		}
		img = &pendingImage{
			filename: sub.Filename,
			mode:     mode,
			results:  make(map[models.BackendID]*models.BackendResult),
		}
		c.pending[sub.SequenceNumber] = img
	}
	if _, dup := img.results[sub.Backend]; dup {
		return c.reject(ctx, sub, fmt.Errorf("%w: image %d backend %s", ErrDuplicateResult, sub.SequenceNumber, sub.Backend))
	}
	if img.filename == "" {
		img.filename = sub.Filename
	}
	img.results[sub.Backend] = result

	c.notify(ctx, observer.BatchEvent{
		EventType:      observer.ResultReceived,
		SequenceNumber: sub.SequenceNumber,
		Backend:        string(sub.Backend),
		ErrorMessage:   result.ErrorMessage(),
	})

	outcome := Outcome{SequenceNumber: sub.SequenceNumber, Result: result}
	if c.complete(img) {
		if err := c.appendLocked(ctx, sub.SequenceNumber, img); err != nil {
			return outcome, err
		}
		outcome.Completed = true
	}
	outcome.Pending = len(c.pending)
	return outcome, nil
}

// Settle appends every pending image, recording expected backends that never reported as error results.
// It returns the number of images appended.
func (c *Collector) Settle(ctx context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	seqs := make([]int, 0, len(c.pending))
	for seq := range c.pending {
		seqs = append(seqs, seq)
	}
	sort.Ints(seqs)

	settled := 0
	for _, seq := range seqs {
		img := c.pending[seq]
		for _, id := range c.expected {
			if _, ok := img.results[id]; !ok {
				img.results[id] = models.NewErrorResult(MissingResultMessage)
			}
		}
		if err := c.appendLocked(ctx, seq, img); err != nil {
			return settled, err
		}
		settled++
	}
	return settled, nil
}

func (c *Collector) complete(img *pendingImage) bool {
	for _, id := range c.expected {
		if _, ok := img.results[id]; !ok {
			return false
		}
	}
	return true
}

func (c *Collector) appendLocked(ctx context.Context, seq int, img *pendingImage) error {
	record := models.BatchRecord{
		SequenceNumber: seq,
		Filename:       img.filename,
		AnalysisMode:   img.mode,
		Results:        img.results,
	}
	record.Comparison = c.comparisons.ExecuteComparison(record)

	if err := c.store.Append(record); err != nil {
		return err
	}
	delete(c.pending, seq)

	c.notify(ctx, observer.BatchEvent{
		EventType:      observer.RecordAppended,
		SequenceNumber: seq,
		Metadata:       map[string]interface{}{"backends": len(record.Results)},
	})
	return nil
}

func (c *Collector) reject(ctx context.Context, sub models.ResultSubmission, err error) (Outcome, error) {
	c.notify(ctx, observer.BatchEvent{
		EventType:      observer.ResultRejected,
		SequenceNumber: sub.SequenceNumber,
		Backend:        string(sub.Backend),
		ErrorMessage:   err.Error(),
	})
	return Outcome{SequenceNumber: sub.SequenceNumber}, err
}

func (c *Collector) notify(ctx context.Context, event observer.BatchEvent) {
	if c.events == nil {
		return
	}
	event.RunID = c.store.RunID()
	c.events.NotifyObservers(ctx, event)
}

// canonicalBackends validates and de-duplicates backends, returning them in canonical order
func canonicalBackends(ids []models.BackendID) ([]models.BackendID, error) {
	if len(ids) == 0 {
		return nil, ErrNoExpectedBackends
	}
	seen := make(map[models.BackendID]bool, len(ids))
	out := make([]models.BackendID, 0, len(ids))
	for _, id := range ids {
		if !id.IsKnown() {
			return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, id)
		}
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ordinal() < out[j].Ordinal() })
	return out, nil
}
