package iologger

import (
	"fmt"
	"runtime"

	"github.com/gnames/gn"
	"github.com/gnames/gncube/pkg/errcode"
)

// CreateLogFileError is returned when gncube.log cannot be opened.
// Use log.destination "stderr" to log without a file.
func CreateLogFileError(path string, err error) error {
	msg := `Cannot open gncube log <em>%s</em>
   Set <em>log.destination</em> to stderr to run without a log file`
	vars := []any{path}
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.CreateLogFileError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("from %s: open log %s: %w", fn, path, err),
	}
}
