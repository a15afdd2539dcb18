// Package iosqlite implements the occurrence store on an embedded SQLite
// database. This is an impure I/O package that implements contracts
// defined in pkg/.
package iosqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/gnames/gncube/pkg/occurrence"
	"github.com/gnames/gncube/pkg/schema"
	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGo)
)

// Store keeps occurrences in a SQLite file.
type Store struct {
	db   *sql.DB
	cols string
}

// Open opens or creates a store at path. Use ":memory:" for a
// temporary store.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, OpenError(path, err)
	}
	// one writer, and ":memory:" databases exist per connection
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err = db.ExecContext(ctx, p); err != nil {
			db.Close()
			return nil, OpenError(path, err)
		}
	}

	res := &Store{
		db:   db,
		cols: strings.Join(schema.Occurrence{}.Columns(), ", "),
	}
	if err = res.createSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return res, nil
}

func (s *Store) createSchema(ctx context.Context) error {
	models := []schema.DDLGenerator{schema.Occurrence{}, schema.GridCursor{}}
	for _, m := range models {
		stmts := append([]string{m.TableDDL()}, m.IndexDDL()...)
		for _, q := range stmts {
			if _, err := s.db.ExecContext(ctx, q); err != nil {
				return SchemaError(err)
			}
		}
	}
	return nil
}

// Insert adds or replaces records in one transaction.
func (s *Store) Insert(ctx context.Context, recs []occurrence.Record) error {
	if len(recs) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return InsertError(len(recs), err)
	}
	defer tx.Rollback()

	ncol := len(schema.Occurrence{}.Columns())
	q := fmt.Sprintf("INSERT OR REPLACE INTO occurrences (%s) VALUES (%s)",
		s.cols, placeholders(ncol))
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		return InsertError(len(recs), err)
	}
	defer stmt.Close()

	for _, r := range recs {
		if _, err = stmt.ExecContext(ctx, schema.NewOccurrence(r).Values()...); err != nil {
			return InsertError(len(recs), err)
		}
	}
	if err = tx.Commit(); err != nil {
		return InsertError(len(recs), err)
	}
	return nil
}

// Count returns the number of records.
func (s *Store) Count(ctx context.Context) (int, error) {
	var res int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM occurrences").Scan(&res)
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
  WHERE gbif_id > ? ORDER BY gbif_id LIMIT ?`, s.cols)
	rows, err := s.db.QueryContext(ctx, q, afterID, limit)
	if err != nil {
		return nil, QueryError(err)
	}
	defer rows.Close()

	res := make([]occurrence.Record, 0, limit)
	for rows.Next() {
		var o schema.Occurrence
		if err = rows.Scan(o.ScanDest()...); err != nil {
			return nil, QueryError(err)
		}
		res = append(res, o.Record())
	}
	if err = rows.Err(); err != nil {
		return nil, QueryError(err)
	}
	return res, nil
}

// Scan calls fn for every record in ascending ID order.
func (s *Store) Scan(ctx context.Context, fn func(occurrence.Record) error) error {
	q := fmt.Sprintf("SELECT %s FROM occurrences ORDER BY gbif_id", s.cols)
	rows, err := s.db.QueryContext(ctx, q)
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

// UpdateCells writes cells of a chunk and its cursor in one transaction.
func (s *Store) UpdateCells(
	ctx context.Context,
	ups []occurrence.CellUpdate,
	cur occurrence.Cursor,
) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return UpdateError(cur.Chunk, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `UPDATE occurrences
  SET coordinate_uncertainty_in_meters = ?, eea_cell_code = ?
  WHERE gbif_id = ?`)
	if err != nil {
		return UpdateError(cur.Chunk, err)
	}
	defer stmt.Close()

	for _, u := range ups {
		res, err := stmt.ExecContext(ctx, u.Uncertainty, u.CellCode, u.ID)
		if err != nil {
			return UpdateError(cur.Chunk, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return UpdateError(cur.Chunk, err)
		}
		if n == 0 {
			err = fmt.Errorf("%w: %d", occurrence.ErrUnknownRecord, u.ID)
			return UpdateError(cur.Chunk, err)
		}
	}

	if cur.RunID != "" {
		gc := schema.NewGridCursor(cur)
		_, err = tx.ExecContext(ctx, `INSERT INTO grid_cursors
  (run_id, chunk, last_id, records, rng, updated_at)
  VALUES (?, ?, ?, ?, ?, ?)
  ON CONFLICT (run_id) DO UPDATE SET
    chunk = excluded.chunk, last_id = excluded.last_id,
    records = excluded.records, rng = excluded.rng,
    updated_at = excluded.updated_at`,
			gc.RunID, gc.Chunk, gc.LastID, gc.Records, gc.RNG, gc.UpdatedAt)
		if err != nil {
			return UpdateError(cur.Chunk, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return UpdateError(cur.Chunk, err)
	}
	return nil
}

// Cursor returns the saved cursor of a run.
func (s *Store) Cursor(
	ctx context.Context,
	runID string,
) (occurrence.Cursor, bool, error) {
	var gc schema.GridCursor
	err := s.db.QueryRowContext(ctx, `SELECT run_id, chunk, last_id, records, rng
  FROM grid_cursors WHERE run_id = ?`, runID).
		Scan(&gc.RunID, &gc.Chunk, &gc.LastID, &gc.Records, &gc.RNG)
	if errors.Is(err, sql.ErrNoRows) {
		return occurrence.Cursor{}, false, nil
	}
	if err != nil {
		return occurrence.Cursor{}, false, CursorError(runID, err)
	}
	return gc.Cursor(), true, nil
}

// Reset removes all records and cursors.
func (s *Store) Reset(ctx context.Context) error {
	for _, q := range []string{
		"DELETE FROM occurrences",
		"DELETE FROM grid_cursors",
	} {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return SchemaError(err)
		}
	}
	return nil
}

// Analyze refreshes statistics used by the query planner.
func (s *Store) Analyze(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "ANALYZE occurrences"); err != nil {
		return QueryError(err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
