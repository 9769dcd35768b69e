package repository

import (
	"time"

	"github.com/anime-shed/face-batch-inspector-go/pkg/models"
)

// BatchRepository holds the records of the current capture run.
// A single collector writes; statistics and export read.
type BatchRepository interface {
	// Reset discards every record and starts a new run
	Reset(runID string)

	// Append stores one record; duplicate or non-positive sequence numbers are rejected
	Append(record models.BatchRecord) error

	// All returns a copy of the records sorted ascending by sequence number
	All() []models.BatchRecord

	// Get returns the record with the given sequence number
	Get(sequenceNumber int) (models.BatchRecord, bool)

	// Len returns the number of stored records
	Len() int

	// RunID returns the identifier of the current run
	RunID() string

	// UpdatedAt returns the time of the last mutation
	UpdatedAt() time.Time
}
