package iodb

import (
	"fmt"
	"runtime"

	"github.com/gnames/gn"
	"github.com/gnames/gncube/pkg/errcode"
)

// ConnectionError is returned when database connection fails.
func ConnectionError(host string, port int, database, user string, err error) error {
	msg := `Could not connect to PostgreSQL database

<em>Possible causes:</em>
  - PostgreSQL is not running
  - Database configuration is incorrect
  - Network connectivity issues

<em>How to fix:</em>
  1. Check if PostgreSQL is running:
     <em>pg_isready -h %s -p %d</em>

  2. Verify database exists:
     <em>psql -h %s -U %s -l</em>

  3. Review connection settings in
     <em>~/.config/gncube/config.yaml</em>`
	vars := []any{host, port, host, user}
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.DBConnectionError,
		Msg:  msg,
		Vars: vars,
		Err: fmt.Errorf("from %s: failed to connect to %s:%d/%s: %w",
			fn, host, port, database, err),
	}
}

// NotConnectedError is returned when the store is used without a pool.
func NotConnectedError() error {
	return &gn.Error{
		Code: errcode.DBNotConnectedError,
		Msg:  "Database operation attempted without connection",
		Err:  fmt.Errorf("not connected to database"),
	}
}

func InsertError(n int, err error) error {
	msg := "Cannot insert %d occurrences"
	vars := []any{n}
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.StoreInsertError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("from %s: cannot copy batch: %w", fn, err),
	}
}

func QueryError(err error) error {
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.StoreQueryError,
		Msg:  "Cannot read occurrences",
		Err:  fmt.Errorf("from %s: query failed: %w", fn, err),
	}
}

func UpdateError(chunk int, err error) error {
	msg := "Cannot save grid cells of chunk %d"
	vars := []any{chunk}
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.StoreUpdateError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("from %s: cannot update chunk %d: %w", fn, chunk, err),
	}
}

func CursorError(runID string, err error) error {
	msg := "Cannot read progress of run <em>%s</em>"
	vars := []any{runID}
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.StoreCursorError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("from %s: cannot read cursor %s: %w", fn, runID, err),
	}
}

func ResetError(err error) error {
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.StoreSchemaError,
		Msg:  "Cannot empty occurrence tables",
		Err:  fmt.Errorf("from %s: cannot truncate: %w", fn, err),
	}
}

func AnalyzeError(err error) error {
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.StoreQueryError,
		Msg:  "Cannot refresh statistics of occurrences table",
		Err:  fmt.Errorf("from %s: vacuum analyze: %w", fn, err),
	}
}
