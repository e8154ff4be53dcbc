package ingest

import (
	"errors"
	"fmt"
)

// ErrRunInProgress is returned when an ingest run is requested while another
// run is still active. Runs always rebuild the whole corpus, so overlapping
// them would corrupt the store.
var ErrRunInProgress = errors.New("ingest run already in progress")

// EmbeddingError wraps a failure to compute vectors. It aborts the whole
// batch: continuing would leave the store missing an arbitrary subset of
// chunks.
type EmbeddingError struct {
	DocumentID string
	Err        error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embed chunks of %s: %v", e.DocumentID, e.Err)
}

func (e *EmbeddingError) Unwrap() error { return e.Err }

// IsEmbeddingFailure reports whether err is (or wraps) an EmbeddingError.
func IsEmbeddingFailure(err error) bool {
	var ee *EmbeddingError
	return errors.As(err, &ee)
}

// StoreError wraps a failure to persist chunks or catalog rows. Like
// embedding failures, it aborts the batch.
type StoreError struct {
	DocumentID string
	Err        error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("persist %s: %v", e.DocumentID, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// IsStoreFailure reports whether err is (or wraps) a StoreError.
func IsStoreFailure(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}
