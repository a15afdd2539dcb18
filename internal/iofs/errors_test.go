package iofs

import (
	"errors"
	"testing"

	"github.com/gnames/gn"
	"github.com/gnames/gncube/pkg/errcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrors(t *testing.T) {
	orig := errors.New("permission denied")

	tests := []struct {
		msg  string
		err  error
		code gn.ErrorCode
		path string
		hint string
	}{
		{"create dir", CreateDirError("/test/dir", orig),
			errcode.CreateDirError, "/test/dir", "gncube directory"},
		{"copy file", CopyFileError("/test/config.yaml", orig),
			errcode.CopyFileError, "/test/config.yaml", "default grid and store settings"},
		{"read file", ReadFileError("/test/config.yaml", orig),
			errcode.ReadFileError, "/test/config.yaml", "--config"},
	}

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			gnErr, ok := tt.err.(*gn.Error)
			require.True(t, ok, "Error should be of type *gn.Error")

			assert.Equal(t, tt.code, gnErr.Code)
			assert.Contains(t, gnErr.Msg, "%s")
			assert.Contains(t, gnErr.Msg, tt.hint)
			assert.Contains(t, gnErr.Err.Error(), tt.path)
			require.Len(t, gnErr.Vars, 1)
			assert.Equal(t, tt.path, gnErr.Vars[0])
			assert.ErrorIs(t, gnErr.Err, orig)
			assert.Contains(t, gnErr.Err.Error(), "from ")
		})
	}
}
