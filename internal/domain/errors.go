package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotReady signals that the index or snapshot is not loaded yet.
	ErrNotReady = errors.New("retrieval engine not ready")
	// ErrRowNotFound signals an index row with no snapshot entry.
	ErrRowNotFound = errors.New("row not found in snapshot")
	// ErrInvalidSnapshot signals malformed snapshot data rejected at load time.
	ErrInvalidSnapshot = errors.New("invalid snapshot")
	// ErrEmbeddingProvider signals an embedding provider failure.
	ErrEmbeddingProvider = errors.New("embedding provider error")
	// ErrAnswerProvider signals an answer-generation model failure.
	ErrAnswerProvider = errors.New("answer provider error")
	// ErrSearchFailed signals a vector index search failure.
	ErrSearchFailed = errors.New("vector search failed")
	// ErrTimeout signals that embedding or search exceeded the request deadline.
	ErrTimeout = errors.New("retrieval timed out")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
)

// RowNotFoundError wraps ErrRowNotFound with the offending row id. A row id
// returned by the index but absent from the snapshot means the index and
// snapshot files are mismatched, so the error is surfaced, never skipped.
type RowNotFoundError struct {
	RowID int
}

func (e *RowNotFoundError) Error() string {
	return fmt.Sprintf("%s: row %d", ErrRowNotFound.Error(), e.RowID)
}

func (e *RowNotFoundError) Unwrap() error { return ErrRowNotFound }

// NewRowNotFound creates a row-not-found error for the given row id.
func NewRowNotFound(rowID int) error {
	return &RowNotFoundError{RowID: rowID}
}
