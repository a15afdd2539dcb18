package ioload

import (
	"fmt"
	"runtime"

	"github.com/gnames/gn"
	"github.com/gnames/gncube/pkg/errcode"
)

// SourceError is returned when occurrence file cannot be opened or read.
func SourceError(path string, err error) error {
	msg := `Cannot read occurrences from <em>%s</em>

<em>How to fix:</em>
  1. Make sure the file exists and is readable
  2. Use a GBIF "simple CSV" download (tab-separated, or a .zip with it)`
	vars := []any{path}
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.LoadSourceError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("from %s: cannot read %s: %w", fn, path, err),
	}
}

// HeaderError is returned when a required column is absent.
func HeaderError(path, column string) error {
	msg := "Column <em>%s</em> is missing in <em>%s</em>"
	vars := []any{column, path}
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.LoadHeaderError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("from %s: no column %s in header", fn, column),
	}
}

// RecordError is returned when a line cannot be parsed as CSV.
func RecordError(path string, line int, err error) error {
	msg := "Cannot parse line %d of <em>%s</em>"
	vars := []any{line, path}
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.LoadRecordError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("from %s: line %d: %w", fn, line, err),
	}
}
