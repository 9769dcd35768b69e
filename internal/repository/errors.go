package repository

import "errors"

var (
	// ErrDuplicateSequence indicates a record with the same sequence number is already stored
	ErrDuplicateSequence = errors.New("duplicate sequence number")

	// ErrInvalidSequence indicates a non-positive sequence number
	ErrInvalidSequence = errors.New("sequence number must be positive")

	// ErrEmptyBatch indicates an operation that needs at least one record
	ErrEmptyBatch = errors.New("no images in batch")
)
