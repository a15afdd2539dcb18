package iodb_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/gnames/gn"
	"github.com/gnames/gncube/internal/iodb"
	"github.com/gnames/gncube/internal/iotesting"
	"github.com/gnames/gncube/pkg/errcode"
	"github.com/gnames/gncube/pkg/occurrence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func connect(t *testing.T) *iodb.Store {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	ctx := context.Background()
	st, err := iodb.Connect(ctx, *iotesting.GetTestDatabaseConfig())
	require.NoError(t, err)
	require.NoError(t, st.Reset(ctx))
	t.Cleanup(func() {
		_ = st.Reset(ctx)
		st.Close()
	})
	return st
}

func records() []occurrence.Record {
	return []occurrence.Record{
		{
			ID: 3, Latitude: 50.85, Longitude: 4.35,
			Uncertainty:    sql.NullFloat64{Float64: 500, Valid: true},
			SpeciesKey:     sql.NullInt64{Int64: 100, Valid: true},
			TaxonKey:       100,
			ScientificName: "Passer domesticus (Linnaeus, 1758)",
			Year:           sql.NullInt16{Int16: 2020, Valid: true},
			Kingdom:        "Animalia",
		},
		{ID: 1, Latitude: 52, Longitude: 10, TaxonKey: 7},
		{ID: 2, Latitude: 51, Longitude: 5, TaxonKey: 7},
	}
}

func TestConnectError(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	cfg := *iotesting.GetTestDatabaseConfig()
	cfg.Port = 1
	_, err := iodb.Connect(context.Background(), cfg)
	require.Error(t, err)

	gnErr, ok := err.(*gn.Error)
	require.True(t, ok)
	assert.Equal(t, errcode.DBConnectionError, gnErr.Code)
}

func TestInsertChunkScan(t *testing.T) {
	st := connect(t)
	ctx := context.Background()

	require.NoError(t, st.Insert(ctx, records()))
	n, err := st.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	chunk, err := st.Chunk(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, chunk, 2)
	assert.Equal(t, int64(2), chunk[0].ID)
	assert.Equal(t, records()[0], chunk[1])

	var ids []int64
	err = st.Scan(ctx, func(r occurrence.Record) error {
		ids = append(ids, r.ID)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, ids)

	// loading the same record again replaces it
	upd := records()[:1]
	upd[0].Kingdom = "Plantae"
	require.NoError(t, st.Insert(ctx, upd))
	chunk, err = st.Chunk(ctx, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, "Plantae", chunk[0].Kingdom)
}

func TestUpdateCells(t *testing.T) {
	st := connect(t)
	ctx := context.Background()
	require.NoError(t, st.Insert(ctx, records()))

	cur := occurrence.Cursor{RunID: "run", Chunk: 0, LastID: 2, Records: 2,
		RNG: []byte{1, 2, 3}}
	ups := []occurrence.CellUpdate{
		{ID: 1, Uncertainty: 1000, CellCode: "1kmE4321N3210"},
		{ID: 2, Uncertainty: 1000, CellCode: "1kmE3962N2999"},
	}
	require.NoError(t, st.UpdateCells(ctx, ups, cur))

	got, ok, err := st.Cursor(ctx, "run")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, cur, got)

	chunk, err := st.Chunk(ctx, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, "1kmE4321N3210", chunk[0].CellCode.String)
	assert.Equal(t, 1000.0, chunk[0].Uncertainty.Float64)

	_, ok, err = st.Cursor(ctx, "other")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, st.Analyze(ctx))
}

func TestUpdateCellsAtomic(t *testing.T) {
	st := connect(t)
	ctx := context.Background()
	require.NoError(t, st.Insert(ctx, records()))

	cur := occurrence.Cursor{RunID: "run", Chunk: 4, LastID: 99, Records: 2}
	ups := []occurrence.CellUpdate{
		{ID: 1, Uncertainty: 10, CellCode: "1kmE1N1"},
		{ID: 99, Uncertainty: 10, CellCode: "1kmE1N1"},
	}
	err := st.UpdateCells(ctx, ups, cur)
	require.Error(t, err)

	gnErr, ok := err.(*gn.Error)
	require.True(t, ok)
	assert.Equal(t, errcode.StoreUpdateError, gnErr.Code)
	assert.True(t, errors.Is(gnErr.Err, occurrence.ErrUnknownRecord))

	chunk, err := st.Chunk(ctx, 0, 1)
	require.NoError(t, err)
	assert.False(t, chunk[0].CellCode.Valid)

	_, ok, err = st.Cursor(ctx, "run")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNotConnected(t *testing.T) {
	var st iodb.Store
	_, err := st.Count(context.Background())
	gnErr, ok := err.(*gn.Error)
	require.True(t, ok)
	assert.Equal(t, errcode.DBNotConnectedError, gnErr.Code)
}
