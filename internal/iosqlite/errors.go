package iosqlite

import (
	"fmt"
	"runtime"

	"github.com/gnames/gn"
	"github.com/gnames/gncube/pkg/errcode"
)

func OpenError(path string, err error) error {
	msg := "Cannot open occurrence store <em>%s</em>"
	vars := []any{path}
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.StoreOpenError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("from %s: cannot open sqlite %s: %w", fn, path, err),
	}
}

func SchemaError(err error) error {
	msg := "Cannot create tables of the occurrence store"
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.StoreSchemaError,
		Msg:  msg,
		Err:  fmt.Errorf("from %s: cannot create schema: %w", fn, err),
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
		Err:  fmt.Errorf("from %s: cannot insert batch: %w", fn, err),
	}
}

func QueryError(err error) error {
	msg := "Cannot read occurrences"
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.StoreQueryError,
		Msg:  msg,
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
