package iofs

import (
	"fmt"
	"runtime"

	"github.com/gnames/gn"
	"github.com/gnames/gncube/pkg/errcode"
)

// CreateDirError is returned when a config, cache or log directory of
// gncube cannot be created.
func CreateDirError(dir string, err error) error {
	msg := `Cannot create gncube directory <em>%s</em>

<em>How to fix:</em>
  Check permissions of the parent directory or set HOME to a writable place`
	vars := []any{dir}
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.CreateDirError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("from %s: mkdir %s: %w", fn, dir, err),
	}
}

// CopyFileError is returned when the default config.yaml cannot be
// written on the first run.
func CopyFileError(file string, err error) error {
	msg := "Cannot write default grid and store settings to <em>%s</em>"
	vars := []any{file}
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.CopyFileError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("from %s: write default config %s: %w", fn, file, err),
	}
}

// ReadFileError is returned when a config file is missing or is not
// valid YAML.
func ReadFileError(path string, err error) error {
	msg := `Cannot read gncube settings from <em>%s</em>

<em>How to fix:</em>
  Check the file path given with --config and the YAML syntax`
	vars := []any{path}
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.ReadFileError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("from %s: read settings %s: %w", fn, path, err),
	}
}
