package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_FileAndStdout(t *testing.T) {
	var stdout bytes.Buffer
	path := filepath.Join(t.TempDir(), "logs", "nscheck.log")

	logger, closeFn, err := New(Options{Name: "nscheck", File: path, Level: "debug", Stdout: &stdout})
	require.NoError(t, err)

	logger.Debug("looking for dates", "sport", "Tennis")
	logger.Info("class booked", "class_id", "c1")
	require.NoError(t, closeFn())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "looking for dates")
	assert.Contains(t, string(data), "class booked")

	assert.NotContains(t, stdout.String(), "looking for dates")
	assert.Contains(t, stdout.String(), "class booked")
	assert.Contains(t, stdout.String(), "class_id=c1")
}

func TestNew_WithoutFile(t *testing.T) {
	var stdout bytes.Buffer
	logger, closeFn, err := New(Options{Level: "warn", Stdout: &stdout})
	require.NoError(t, err)
	defer closeFn()

	logger.Info("hidden")
	logger.Warn("shown")
	assert.NotContains(t, stdout.String(), "hidden")
	assert.Contains(t, stdout.String(), "shown")
}

func TestNew_TruncatesPreviousRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nscheck.log")
	require.NoError(t, os.WriteFile(path, []byte("previous run\n"), 0o644))

	logger, closeFn, err := New(Options{File: path, Level: "info", Stdout: &bytes.Buffer{}})
	require.NoError(t, err)
	logger.Info("new run")
	require.NoError(t, closeFn())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "previous run")
	assert.Contains(t, string(data), "new run")
}

func TestNew_FileStdout(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "stdout")
	require.NoError(t, err)
	defer f.Close()

	logger, closeFn, err := New(Options{Level: "info", Stdout: f})
	require.NoError(t, err)
	defer closeFn()
	logger.Info("to a file")

	data, err := os.ReadFile(f.Name())
	require.NoError(t, err)
	assert.Contains(t, string(data), "to a file")
}

func TestNew_BadPath(t *testing.T) {
	dir := t.TempDir()
	_, _, err := New(Options{File: dir})
	assert.Error(t, err)
}
