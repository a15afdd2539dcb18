// Package iodb implements the occurrence store on PostgreSQL using
// pgxpool. This is an impure I/O package that implements contracts
// defined in pkg/.
package iodb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gnames/gncube/internal/ioschema"
	"github.com/gnames/gncube/pkg/config"
	"github.com/gnames/gncube/pkg/occurrence"
	"github.com/gnames/gncube/pkg/schema"
	"github.com/gnames/gnfmt"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store keeps occurrences in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
	cols []string
}

// Connect establishes a connection pool to PostgreSQL and makes sure
// the tables exist.
func Connect(ctx context.Context, cfg config.DatabaseConfig) (*Store, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, ConnectionError(cfg.Host, cfg.Port,
			cfg.Database, cfg.User, err)
	}

	poolConfig.MaxConns = 10
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = 0
	poolConfig.MaxConnIdleTime = 0

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, ConnectionError(cfg.Host, cfg.Port,
			cfg.Database, cfg.User, err)
	}

	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, ConnectionError(cfg.Host, cfg.Port,
			cfg.Database, cfg.User, err)
	}

	if err = ioschema.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &Store{pool: pool, cols: schema.Occurrence{}.Columns()}, nil
}

// Pool returns the underlying pgxpool.Pool.
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

// Insert adds or replaces records. Records are copied into a temporary
// table and merged into occurrences with one statement.
func (s *Store) Insert(ctx context.Context, recs []occurrence.Record) error {
	if len(recs) == 0 {
		return nil
	}
	if s.pool == nil {
		return NotConnectedError()
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return InsertError(len(recs), err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `CREATE TEMP TABLE tmp_occurrences
  (LIKE occurrences INCLUDING DEFAULTS) ON COMMIT DROP`)
	if err != nil {
		return InsertError(len(recs), err)
	}

	rows := make([][]any, len(recs))
	for i, r := range recs {
		rows[i] = schema.NewOccurrence(r).Values()
	}
	_, err = tx.CopyFrom(ctx, pgx.Identifier{"tmp_occurrences"}, s.cols,
		pgx.CopyFromRows(rows))
	if err != nil {
		return InsertError(len(recs), err)
	}

	sets := make([]string, 0, len(s.cols)-1)
	for _, c := range s.cols[1:] {
		sets = append(sets, c+" = EXCLUDED."+c)
	}
	q := fmt.Sprintf(`INSERT INTO occurrences (%[1]s)
  SELECT %[1]s FROM tmp_occurrences
  ON CONFLICT (gbif_id) DO UPDATE SET %[2]s`,
		strings.Join(s.cols, ", "), strings.Join(sets, ", "))
	if _, err = tx.Exec(ctx, q); err != nil {
		return InsertError(len(recs), err)
	}

	if err = tx.Commit(ctx); err != nil {
		return InsertError(len(recs), err)
	}
	return nil
}

// Count returns the number of records.
func (s *Store) Count(ctx context.Context) (int, error) {
	if s.pool == nil {
		return 0, NotConnectedError()
	}
	var res int
	err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM occurrences").Scan(&res)
	if err != nil {
		return 0, QueryError(err)
	}
	return res, nil
}

// Chunk returns up to limit records with ID greater than afterID.
func (s *Store) Chunk(
	ctx context.Context,
	afterID int64,
	limit int,
) ([]occurrence.Record, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("chunk limit has to be positive, got %d", limit)
	}
	q := fmt.Sprintf(`SELECT %s FROM occurrences
  WHERE gbif_id > $1 ORDER BY gbif_id LIMIT $2`, strings.Join(s.cols, ", "))
	res := make([]occurrence.Record, 0, limit)
	err := s.query(ctx, q, func(r occurrence.Record) error {
		res = append(res, r)
		return nil
	}, afterID, limit)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Scan calls fn for every record in ascending ID order.
func (s *Store) Scan(ctx context.Context, fn func(occurrence.Record) error) error {
	q := fmt.Sprintf("SELECT %s FROM occurrences ORDER BY gbif_id",
		strings.Join(s.cols, ", "))
	return s.query(ctx, q, fn)
}

func (s *Store) query(
	ctx context.Context,
	q string,
	fn func(occurrence.Record) error,
	args ...any,
) error {
	if s.pool == nil {
		return NotConnectedError()
	}
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return QueryError(err)
	}
	defer rows.Close()

	for rows.Next() {
		var o schema.Occurrence
		if err = rows.Scan(o.ScanDest()...); err != nil {
			return QueryError(err)
		}
		if err = fn(o.Record()); err != nil {
			return err
		}
	}
	if err = rows.Err(); err != nil {
		return QueryError(err)
	}
	return nil
}

// UpdateCells copies cells of a chunk into a temporary table, updates
// occurrences from it and saves the cursor in one transaction.
func (s *Store) UpdateCells(
	ctx context.Context,
	ups []occurrence.CellUpdate,
	cur occurrence.Cursor,
) error {
	if s.pool == nil {
		return NotConnectedError()
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return UpdateError(cur.Chunk, err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `CREATE TEMP TABLE tmp_cells (
  gbif_id BIGINT PRIMARY KEY,
  uncertainty DOUBLE PRECISION,
  cell TEXT
) ON COMMIT DROP`)
	if err != nil {
		return UpdateError(cur.Chunk, err)
	}

	_, err = tx.CopyFrom(ctx, pgx.Identifier{"tmp_cells"},
		[]string{"gbif_id", "uncertainty", "cell"},
		pgx.CopyFromSlice(len(ups), func(i int) ([]any, error) {
			return []any{ups[i].ID, ups[i].Uncertainty, ups[i].CellCode}, nil
		}))
	if err != nil {
		return UpdateError(cur.Chunk, err)
	}

	tag, err := tx.Exec(ctx, `UPDATE occurrences o
  SET coordinate_uncertainty_in_meters = t.uncertainty,
      eea_cell_code = t.cell
  FROM tmp_cells t
  WHERE o.gbif_id = t.gbif_id`)
	if err != nil {
		return UpdateError(cur.Chunk, err)
	}
	if n := tag.RowsAffected(); n != int64(len(ups)) {
		err = fmt.Errorf("%w: %d of %d records missing",
			occurrence.ErrUnknownRecord, int64(len(ups))-n, len(ups))
		return UpdateError(cur.Chunk, err)
	}

	if cur.RunID != "" {
		gc := schema.NewGridCursor(cur)
		_, err = tx.Exec(ctx, `INSERT INTO grid_cursors
  (run_id, chunk, last_id, records, rng, updated_at)
  VALUES ($1, $2, $3, $4, $5, $6)
  ON CONFLICT (run_id) DO UPDATE SET
    chunk = EXCLUDED.chunk, last_id = EXCLUDED.last_id,
    records = EXCLUDED.records, rng = EXCLUDED.rng,
    updated_at = EXCLUDED.updated_at`,
			gc.RunID, gc.Chunk, gc.LastID, gc.Records, gc.RNG, gc.UpdatedAt)
		if err != nil {
			return UpdateError(cur.Chunk, err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return UpdateError(cur.Chunk, err)
	}
	return nil
}

// Cursor returns the saved cursor of a run.
func (s *Store) Cursor(
	ctx context.Context,
	runID string,
) (occurrence.Cursor, bool, error) {
	if s.pool == nil {
		return occurrence.Cursor{}, false, NotConnectedError()
	}
	var gc schema.GridCursor
	err := s.pool.QueryRow(ctx, `SELECT run_id, chunk, last_id, records, rng
  FROM grid_cursors WHERE run_id = $1`, runID).
		Scan(&gc.RunID, &gc.Chunk, &gc.LastID, &gc.Records, &gc.RNG)
	if errors.Is(err, pgx.ErrNoRows) {
		return occurrence.Cursor{}, false, nil
	}
	if err != nil {
		return occurrence.Cursor{}, false, CursorError(runID, err)
	}
	return gc.Cursor(), true, nil
}

// Reset removes all records and cursors.
func (s *Store) Reset(ctx context.Context) error {
	if s.pool == nil {
		return NotConnectedError()
	}
	_, err := s.pool.Exec(ctx, "TRUNCATE occurrences, grid_cursors")
	if err != nil {
		return ResetError(err)
	}
	return nil
}

// Analyze reclaims space left by updated rows and refreshes planner
// statistics of the occurrences table. It cannot run inside a
// transaction.
func (s *Store) Analyze(ctx context.Context) error {
	if s.pool == nil {
		return NotConnectedError()
	}
	start := time.Now()
	_, err := s.pool.Exec(ctx, "VACUUM ANALYZE occurrences")
	if err != nil {
		return AnalyzeError(err)
	}
	slog.Info("VACUUM ANALYZE completed",
		"duration", gnfmt.TimeString(time.Since(start).Seconds()))
	return nil
}

// Close releases all database connections.
func (s *Store) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}
