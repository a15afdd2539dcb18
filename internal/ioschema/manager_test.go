package ioschema

import (
	"context"
	"errors"
	"testing"

	"github.com/gnames/gn"
	"github.com/gnames/gncube/internal/iotesting"
	"github.com/gnames/gncube/pkg/errcode"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatCollationSQL(t *testing.T) {
	q := formatCollationSQL("occurrences", "eea_cell_code")
	assert.Equal(t,
		`ALTER TABLE occurrences ALTER COLUMN eea_cell_code TYPE TEXT COLLATE "C"`, q)
}

func TestMigrateNotConnected(t *testing.T) {
	err := Migrate(context.Background(), nil)
	require.Error(t, err)

	gnErr, ok := err.(*gn.Error)
	require.True(t, ok, "Error should be of type *gn.Error")
	assert.Equal(t, errcode.DBNotConnectedError, gnErr.Code)
}

func TestErrors(t *testing.T) {
	orig := errors.New("boom")

	tests := []struct {
		msg  string
		err  error
		code gn.ErrorCode
	}{
		{"gorm", GORMConnectionError(orig), errcode.SchemaGORMConnectionError},
		{"create", CreateSchemaError(orig), errcode.SchemaCreateError},
		{"collation", CollationError("occurrences", "eea_cell_code", orig),
			errcode.SchemaCreateError},
	}

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			gnErr, ok := tt.err.(*gn.Error)
			require.True(t, ok)
			assert.Equal(t, tt.code, gnErr.Code)
			assert.ErrorIs(t, gnErr.Err, orig)
		})
	}
}

func TestMigrate(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	ctx := context.Background()
	cfg := iotesting.GetTestDatabaseConfig()

	pool, err := pgxpool.New(ctx, cfg.DSN())
	require.NoError(t, err)
	defer pool.Close()

	require.NoError(t, Migrate(ctx, pool))
	// second run changes nothing
	require.NoError(t, Migrate(ctx, pool))

	var coll string
	err = pool.QueryRow(ctx, `SELECT collation_name FROM information_schema.columns
  WHERE table_name = 'occurrences' AND column_name = 'eea_cell_code'`).Scan(&coll)
	require.NoError(t, err)
	assert.Equal(t, "C", coll)
}
