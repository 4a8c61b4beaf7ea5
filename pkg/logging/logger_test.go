package logging

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.log")
	require.NoError(t, Init(Config{Level: LevelInfo, OutputPath: path}))
	t.Cleanup(func() { Close() })

	Info("file sink check", "n", 1)
	require.NoError(t, Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "file sink check")
}

func TestReinitSwitchesOutput(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "first.log")
	second := filepath.Join(dir, "second.log")

	require.NoError(t, Init(Config{Level: LevelInfo, OutputPath: first}))
	t.Cleanup(func() { Close() })
	Info("goes to first")

	require.NoError(t, Init(Config{Level: LevelInfo, OutputPath: second}))
	Info("goes to second")
	require.NoError(t, Close())

	firstData, err := os.ReadFile(first)
	require.NoError(t, err)
	assert.NotContains(t, string(firstData), "goes to second")

	secondData, err := os.ReadFile(second)
	require.NoError(t, err)
	assert.Contains(t, string(secondData), "goes to second")
}

func TestEmptyOutputPathLogsToStderr(t *testing.T) {
	orig := os.Stderr
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stderr = w
	t.Cleanup(func() {
		os.Stderr = orig
		Close()
	})

	require.NoError(t, Init(Config{Level: LevelInfo}))
	Info("stderr sink check")

	require.NoError(t, w.Close())
	os.Stderr = orig
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Contains(t, string(data), "stderr sink check")
}

func TestLevelFiltersDebug(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.log")
	require.NoError(t, Init(Config{Level: LevelWarn, OutputPath: path}))
	t.Cleanup(func() { Close() })

	Debug("too quiet")
	Info("still too quiet")
	Warn("loud enough")
	require.NoError(t, Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "too quiet")
	assert.Contains(t, string(data), "loud enough")
}
