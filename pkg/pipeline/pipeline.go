// Package pipeline assigns grid cells to occurrences chunk by chunk.
//
// For every chunk of the Coordinate Store, in ascending ID order, the
// pipeline normalizes uncertainty, projects coordinates, moves every
// point to a random place inside its uncertainty disk and assigns the
// grid cell of the moved point. The results of a chunk are written back
// to the store in one transaction together with a cursor, so a failed
// run keeps all chunks committed before the failure.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gnames/gncube/pkg/grid"
	"github.com/gnames/gncube/pkg/occurrence"
	"github.com/gnames/gncube/pkg/projection"
	"github.com/gnames/gncube/pkg/sampler"
	"github.com/google/uuid"
)

// Projector converts geographic points to planar ones. It has to be
// all-or-nothing for a batch and safe for concurrent use.
type Projector interface {
	Project(ids []int64, pts []projection.Point) ([]projection.Point, error)
}

// Progress is sent after every committed chunk.
type Progress struct {
	Chunk   int
	Records int
}

// Summary describes a finished run.
type Summary struct {
	RunID string
	// Chunks is the number of chunks committed by this run.
	Chunks int
	// Records is the total number of records with assigned cells,
	// including records committed before a resume.
	Records int
	// Substituted is the number of records that got the default
	// uncertainty during this run.
	Substituted int
	// ResumedAt is the first processed chunk of a resumed run, -1 for a
	// run that started from scratch.
	ResumedAt int
	Duration  time.Duration
}

// Pipeline is the chunked grid-assignment driver.
type Pipeline struct {
	store     occurrence.Store
	projector Projector
	assigner  grid.Assigner

	chunkSize  int
	defaultUnc float64
	jobs       int
	runID      string
	resume     bool
	onChunk    func(Progress)
}

// New creates a Pipeline. The store is the only writer target of the
// run, it must not be modified by anybody else until Run returns.
func New(
	store occurrence.Store,
	projector Projector,
	assigner grid.Assigner,
	opts ...Option,
) (*Pipeline, error) {
	res := &Pipeline{
		store:      store,
		projector:  projector,
		assigner:   assigner,
		chunkSize:  100_000,
		defaultUnc: 1000,
		jobs:       1,
	}
	for _, opt := range opts {
		opt(res)
	}

	if res.chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size has to be positive, got %d", res.chunkSize)
	}
	if res.defaultUnc <= 0 {
		return nil, fmt.Errorf(
			"default uncertainty has to be positive, got %v", res.defaultUnc,
		)
	}
	if res.assigner.Size() <= 0 {
		return nil, fmt.Errorf("grid assigner is not initialized")
	}
	if res.runID == "" {
		res.runID = uuid.NewString()
	}
	return res, nil
}

// RunID returns the identifier under which cursors are saved.
func (p *Pipeline) RunID() string {
	return p.runID
}

// Run processes all chunks. The sampler is the single random stream of
// the run and is consumed in chunk order. Cancellation is checked only
// between chunks.
func (p *Pipeline) Run(
	ctx context.Context,
	smp *sampler.Sampler,
) (Summary, error) {
	start := time.Now()
	res := Summary{RunID: p.runID, ResumedAt: -1}

	var afterID int64
	var chunk int
	if p.resume {
		cur, ok, err := p.store.Cursor(ctx, p.runID)
		if err != nil {
			return res, fmt.Errorf("cannot read cursor of run %s: %w", p.runID, err)
		}
		if ok {
			if err = smp.UnmarshalBinary(cur.RNG); err != nil {
				return res, fmt.Errorf("cannot restore random stream: %w", err)
			}
			afterID = cur.LastID
			chunk = cur.Chunk + 1
			res.Records = cur.Records
			res.ResumedAt = chunk
			slog.Info("Resuming grid assignment",
				"run", p.runID,
				"chunk", chunk,
				"records", humanize.Comma(int64(cur.Records)),
			)
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			res.Duration = time.Since(start)
			return res, err
		}

		recs, err := p.store.Chunk(ctx, afterID, p.chunkSize)
		if err != nil {
			res.Duration = time.Since(start)
			return res, fmt.Errorf("cannot read chunk %d: %w", chunk, err)
		}
		if len(recs) == 0 {
			break
		}

		ups, subst, err := p.processChunk(recs, smp)
		if err != nil {
			res.Duration = time.Since(start)
			return res, newChunkError(chunk, recs, err)
		}

		state, err := smp.MarshalBinary()
		if err != nil {
			res.Duration = time.Since(start)
			return res, newChunkError(chunk, recs, err)
		}

		lastID := recs[len(recs)-1].ID
		cur := occurrence.Cursor{
			RunID:   p.runID,
			Chunk:   chunk,
			LastID:  lastID,
			Records: res.Records + len(recs),
			RNG:     state,
		}
		if err = p.store.UpdateCells(ctx, ups, cur); err != nil {
			res.Duration = time.Since(start)
			return res, newChunkError(chunk, recs, err)
		}

		res.Chunks++
		res.Records += len(recs)
		res.Substituted += subst
		slog.Debug("Committed chunk",
			"chunk", chunk,
			"records", len(recs),
			"lastID", lastID,
		)
		if p.onChunk != nil {
			p.onChunk(Progress{Chunk: chunk, Records: len(recs)})
		}

		afterID = lastID
		chunk++
	}

	res.Duration = time.Since(start)
	slog.Info("Grid assignment complete",
		"run", p.runID,
		"chunks", res.Chunks,
		"records", humanize.Comma(int64(res.Records)),
		"substituted", humanize.Comma(int64(res.Substituted)),
	)
	return res, nil
}
