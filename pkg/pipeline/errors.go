package pipeline

import (
	"errors"
	"fmt"

	"github.com/gnames/gncube/pkg/occurrence"
	"github.com/gnames/gncube/pkg/projection"
)

// ChunkError aborts a run. The failed chunk is not committed, chunks
// before it stay in the store.
type ChunkError struct {
	// Chunk is the zero-based index of the failed chunk.
	Chunk int
	// FirstID and LastID are boundaries of the chunk.
	FirstID, LastID int64
	// Failed are IDs of records that caused the failure, if known.
	Failed []int64
	Err    error
}

func newChunkError(chunk int, recs []occurrence.Record, err error) *ChunkError {
	res := &ChunkError{
		Chunk:   chunk,
		FirstID: recs[0].ID,
		LastID:  recs[len(recs)-1].ID,
		Err:     err,
	}

	var perr *projection.Error
	var serr *SamplingError
	switch {
	case errors.As(err, &perr):
		res.Failed = perr.IDs()
	case errors.As(err, &serr):
		res.Failed = serr.IDs
	}
	return res
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("chunk %d (records %d..%d) failed: %v",
		e.Chunk, e.FirstID, e.LastID, e.Err)
}

func (e *ChunkError) Unwrap() error {
	return e.Err
}

// SamplingError is returned when sampled points are not finite.
type SamplingError struct {
	IDs []int64
}

func (e *SamplingError) Error() string {
	return fmt.Sprintf("cannot sample %d records", len(e.IDs))
}
