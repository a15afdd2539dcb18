package iologger_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/gnames/gn"
	"github.com/gnames/gncube/internal/iologger"
	"github.com/gnames/gncube/pkg/config"
	"github.com/gnames/gncube/pkg/errcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitFile(t *testing.T) {
	defer slog.SetDefault(slog.Default())
	dir := t.TempDir()
	cfg := config.LogConfig{Format: "json", Level: "debug", Destination: "file"}

	closer, err := iologger.Init(dir, cfg, false)
	require.NoError(t, err)
	slog.Debug("hello", "chunk", 1)
	require.NoError(t, closer.Close())

	bs, err := os.ReadFile(filepath.Join(dir, iologger.LogFile))
	require.NoError(t, err)
	assert.Contains(t, string(bs), `"msg":"hello"`)
	assert.Contains(t, string(bs), `"chunk":1`)

	closer, err = iologger.Init(dir, cfg, true)
	require.NoError(t, err)
	slog.Info("again")
	require.NoError(t, closer.Close())

	bs, err = os.ReadFile(filepath.Join(dir, iologger.LogFile))
	require.NoError(t, err)
	assert.Contains(t, string(bs), "hello")
	assert.Contains(t, string(bs), "again")
}

func TestInitBadDir(t *testing.T) {
	defer slog.SetDefault(slog.Default())
	cfg := config.LogConfig{Destination: "file"}
	dir := filepath.Join(t.TempDir(), "no", "such")
	_, err := iologger.Init(dir, cfg, false)
	gnErr, ok := err.(*gn.Error)
	require.True(t, ok)
	assert.Equal(t, errcode.CreateLogFileError, gnErr.Code)
	assert.Contains(t, gnErr.Msg, "log.destination")
	assert.Equal(t, []any{filepath.Join(dir, iologger.LogFile)}, gnErr.Vars)
	assert.ErrorIs(t, gnErr.Err, os.ErrNotExist)
}

func TestInitStderr(t *testing.T) {
	defer slog.SetDefault(slog.Default())
	closer, err := iologger.Init("", config.LogConfig{Destination: "stderr",
		Format: "text"}, false)
	require.NoError(t, err)
	assert.NoError(t, closer.Close())
}
