package pipeline_test

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"testing"

	"github.com/gnames/gncube/pkg/grid"
	"github.com/gnames/gncube/pkg/occurrence"
	"github.com/gnames/gncube/pkg/pipeline"
	"github.com/gnames/gncube/pkg/projection"
	"github.com/gnames/gncube/pkg/sampler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newPipeline(
	t *testing.T,
	st occurrence.Store,
	opts ...pipeline.Option,
) *pipeline.Pipeline {
	prj, err := projection.New(projection.WGS84, projection.LAEAEurope)
	require.NoError(t, err)
	asg, err := grid.New(1000)
	require.NoError(t, err)
	p, err := pipeline.New(st, prj, asg, opts...)
	require.NoError(t, err)
	return p
}

func fixture(n int) []occurrence.Record {
	res := make([]occurrence.Record, n)
	for i := range n {
		res[i] = occurrence.Record{
			ID:         int64(i + 1),
			Longitude:  4.0 + float64(i)*0.07,
			Latitude:   50.5 + float64(i)*0.03,
			SpeciesKey: sql.NullInt64{Int64: 9999, Valid: true},
			TaxonKey:   9999,
			Year:       sql.NullInt16{Int16: 2020, Valid: true},
		}
		if i%3 != 0 {
			res[i].Uncertainty = sql.NullFloat64{Float64: float64(10 * i), Valid: true}
		}
	}
	return res
}

func cells(t *testing.T, st occurrence.Scanner) map[int64]string {
	res := make(map[int64]string)
	err := st.Scan(context.Background(), func(r occurrence.Record) error {
		if r.CellCode.Valid {
			res[r.ID] = r.CellCode.String
		}
		return nil
	})
	require.NoError(t, err)
	return res
}

func TestNewValidation(t *testing.T) {
	st := occurrence.NewMemStore()
	prj, err := projection.New(projection.WGS84, projection.LAEAEurope)
	require.NoError(t, err)
	asg, err := grid.New(1000)
	require.NoError(t, err)

	_, err = pipeline.New(st, prj, asg, pipeline.OptChunkSize(0))
	assert.Error(t, err)
	_, err = pipeline.New(st, prj, asg, pipeline.OptDefaultUncertainty(-1))
	assert.Error(t, err)
	_, err = pipeline.New(st, prj, grid.Assigner{})
	assert.Error(t, err)

	p, err := pipeline.New(st, prj, asg)
	require.NoError(t, err)
	assert.NotEmpty(t, p.RunID())
}

func TestRunSingleRecord(t *testing.T) {
	ctx := context.Background()
	st := occurrence.NewMemStore()
	rec := occurrence.Record{
		ID:         1,
		Longitude:  4.35,
		Latitude:   50.85,
		SpeciesKey: sql.NullInt64{Int64: 9999, Valid: true},
		TaxonKey:   9999,
		Year:       sql.NullInt16{Int16: 2020, Valid: true},
	}
	require.NoError(t, st.Insert(ctx, []occurrence.Record{rec}))

	p := newPipeline(t, st, pipeline.OptRunID("brussels"))
	sum, err := p.Run(ctx, sampler.New(42))
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Chunks)
	assert.Equal(t, 1, sum.Records)
	assert.Equal(t, 1, sum.Substituted)
	assert.Equal(t, -1, sum.ResumedAt)

	chunk, err := st.Chunk(ctx, 0, 1)
	require.NoError(t, err)
	got := chunk[0]
	assert.Equal(t, sql.NullFloat64{Float64: 1000, Valid: true}, got.Uncertainty)
	require.True(t, got.CellCode.Valid)

	cell, err := grid.Parse(got.CellCode.String)
	require.NoError(t, err)
	assert.Equal(t, 1000, cell.Size)

	// the cell has to touch the disk of 1000 m around the projected point
	x0, y0 := 3923550.15, 3097410.48
	cx := math.Max(float64(cell.East)*1000, math.Min(x0, float64(cell.East+1)*1000))
	cy := math.Max(float64(cell.North)*1000, math.Min(y0, float64(cell.North+1)*1000))
	assert.LessOrEqual(t, math.Hypot(cx-x0, cy-y0), 1000.0)
}

func TestRunReproducible(t *testing.T) {
	ctx := context.Background()
	recs := fixture(25)

	run := func(jobs int) map[int64]string {
		st := occurrence.NewMemStore()
		require.NoError(t, st.Insert(ctx, recs))
		p := newPipeline(t, st,
			pipeline.OptChunkSize(7),
			pipeline.OptJobsNumber(jobs),
		)
		sum, err := p.Run(ctx, sampler.New(42))
		require.NoError(t, err)
		assert.Equal(t, 4, sum.Chunks)
		assert.Equal(t, 25, sum.Records)
		assert.Equal(t, 9, sum.Substituted)
		return cells(t, st)
	}

	a := run(1)
	assert.Len(t, a, 25)
	assert.Equal(t, a, run(1))
	assert.Equal(t, a, run(4))
}

func TestRunFailedChunkAndResume(t *testing.T) {
	ctx := context.Background()
	recs := fixture(10)

	ref := occurrence.NewMemStore()
	require.NoError(t, ref.Insert(ctx, recs))
	_, err := newPipeline(t, ref, pipeline.OptChunkSize(3)).
		Run(ctx, sampler.New(7))
	require.NoError(t, err)
	want := cells(t, ref)

	st := occurrence.NewMemStore()
	bad := make([]occurrence.Record, len(recs))
	copy(bad, recs)
	bad[6].Latitude = 95
	require.NoError(t, st.Insert(ctx, bad))

	opts := []pipeline.Option{pipeline.OptChunkSize(3), pipeline.OptRunID("run")}
	sum, err := newPipeline(t, st, opts...).Run(ctx, sampler.New(7))
	require.Error(t, err)
	assert.Equal(t, 2, sum.Chunks)

	var cerr *pipeline.ChunkError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, 2, cerr.Chunk)
	assert.Equal(t, int64(7), cerr.FirstID)
	assert.Equal(t, int64(9), cerr.LastID)
	assert.Equal(t, []int64{7}, cerr.Failed)

	var perr *projection.Error
	assert.True(t, errors.As(err, &perr))

	partial := cells(t, st)
	assert.Len(t, partial, 6)
	for id, code := range partial {
		assert.Equal(t, want[id], code)
	}

	require.NoError(t, st.Insert(ctx, recs[6:7]))
	opts = append(opts, pipeline.OptResume(true))
	sum, err = newPipeline(t, st, opts...).Run(ctx, sampler.New(7))
	require.NoError(t, err)
	assert.Equal(t, 2, sum.ResumedAt)
	assert.Equal(t, 2, sum.Chunks)
	assert.Equal(t, 10, sum.Records)
	assert.Equal(t, want, cells(t, st))
}

func TestRunResumeWithoutCursor(t *testing.T) {
	ctx := context.Background()
	st := occurrence.NewMemStore()
	require.NoError(t, st.Insert(ctx, fixture(5)))
	p := newPipeline(t, st, pipeline.OptResume(true), pipeline.OptRunID("new"))
	sum, err := p.Run(ctx, sampler.New(1))
	require.NoError(t, err)
	assert.Equal(t, -1, sum.ResumedAt)
	assert.Equal(t, 5, sum.Records)
}

func TestRunProgressAndCancel(t *testing.T) {
	ctx := context.Background()
	st := occurrence.NewMemStore()
	require.NoError(t, st.Insert(ctx, fixture(10)))

	var seen []pipeline.Progress
	p := newPipeline(t, st,
		pipeline.OptChunkSize(4),
		pipeline.OptOnChunk(func(pr pipeline.Progress) {
			seen = append(seen, pr)
		}),
	)
	_, err := p.Run(ctx, sampler.New(1))
	require.NoError(t, err)
	assert.Equal(t, []pipeline.Progress{
		{Chunk: 0, Records: 4},
		{Chunk: 1, Records: 4},
		{Chunk: 2, Records: 2},
	}, seen)

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	sum, err := p.Run(cctx, sampler.New(1))
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Zero(t, sum.Chunks)
}

func TestFingerprint(t *testing.T) {
	s := pipeline.Settings{
		SourceCRS:          "EPSG:4326",
		TargetCRS:          "EPSG:3035",
		CellSize:           1000,
		ChunkSize:          100_000,
		Seed:               42,
		DefaultUncertainty: 1000,
	}
	a := pipeline.Fingerprint(s)
	assert.Equal(t, a, pipeline.Fingerprint(s))
	assert.Len(t, a, 36)

	s.ChunkSize = 50_000
	assert.NotEqual(t, a, pipeline.Fingerprint(s))
}

func TestRunFailedRecordsOfAllWorkers(t *testing.T) {
	ctx := context.Background()
	recs := fixture(10)
	recs[1].Latitude = 95
	recs[8].Longitude = math.NaN()

	st := occurrence.NewMemStore()
	require.NoError(t, st.Insert(ctx, recs))
	_, err := newPipeline(t, st,
		pipeline.OptChunkSize(10),
		pipeline.OptJobsNumber(3),
	).Run(ctx, sampler.New(7))
	require.Error(t, err)

	var cerr *pipeline.ChunkError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, 0, cerr.Chunk)
	assert.Equal(t, []int64{2, 9}, cerr.Failed)

	var perr *projection.Error
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, []int64{2, 9}, perr.IDs())
	assert.Empty(t, cells(t, st))
}
