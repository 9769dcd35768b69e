package repository

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/anime-shed/face-batch-inspector-go/pkg/models"
)

// MemoryBatchRepository implements BatchRepository in memory.
// Records are kept sorted by sequence number on insert so All never sorts.
type MemoryBatchRepository struct {
	mu        sync.RWMutex
	records   []models.BatchRecord
	runID     string
	updatedAt time.Time
	now       func() time.Time
}

// NewMemoryBatchRepository creates an empty store for runID
func NewMemoryBatchRepository(runID string) *MemoryBatchRepository {
	return NewMemoryBatchRepositoryWithClock(runID, time.Now)
}

// NewMemoryBatchRepositoryWithClock creates an empty store that stamps mutations with now
func NewMemoryBatchRepositoryWithClock(runID string, now func() time.Time) *MemoryBatchRepository {
	if now == nil {
		now = time.Now
	}
	return &MemoryBatchRepository{
		runID:     runID,
		updatedAt: now().UTC(),
		now:       now,
	}
}

// Reset discards every record and starts a new run
func (r *MemoryBatchRepository) Reset(runID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.records = nil
	r.runID = runID
	r.updatedAt = r.now().UTC()
}

// Append stores one record at its sorted position
func (r *MemoryBatchRepository) Append(record models.BatchRecord) error {
	if record.SequenceNumber <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidSequence, record.SequenceNumber)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	idx := sort.Search(len(r.records), func(i int) bool {
		return r.records[i].SequenceNumber >= record.SequenceNumber
	})
	if idx < len(r.records) && r.records[idx].SequenceNumber == record.SequenceNumber {
		return fmt.Errorf("%w: %d", ErrDuplicateSequence, record.SequenceNumber)
	}

	r.records = append(r.records, models.BatchRecord{})
	copy(r.records[idx+1:], r.records[idx:])
	r.records[idx] = record
	r.updatedAt = r.now().UTC()
	return nil
}

// All returns a copy of the records sorted ascending by sequence number
func (r *MemoryBatchRepository) All() []models.BatchRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.BatchRecord, len(r.records))
	copy(out, r.records)
	return out
}

// Get returns the record with the given sequence number
func (r *MemoryBatchRepository) Get(sequenceNumber int) (models.BatchRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	idx := sort.Search(len(r.records), func(i int) bool {
		return r.records[i].SequenceNumber >= sequenceNumber
	})
	if idx < len(r.records) && r.records[idx].SequenceNumber == sequenceNumber {
		return r.records[idx], true
	}
	return models.BatchRecord{}, false
}

// Len returns the number of stored records
func (r *MemoryBatchRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

// RunID returns the identifier of the current run
func (r *MemoryBatchRepository) RunID() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.runID
}

// UpdatedAt returns the time of the last mutation in UTC
func (r *MemoryBatchRepository) UpdatedAt() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.updatedAt
}
