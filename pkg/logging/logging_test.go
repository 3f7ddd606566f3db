package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/decred/slog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogBackendRejectsBadLevel(t *testing.T) {
	_, err := NewLogBackend(LogConfig{DebugLevel: "chatty"})
	require.Error(t, err)
}

func TestLoggerIsCachedPerSubsystem(t *testing.T) {
	lb, err := NewLogBackend(LogConfig{DebugLevel: "debug", Quiet: true})
	require.NoError(t, err)
	defer lb.Close()

	a := lb.Logger("TRNY")
	b := lb.Logger("TRNY")
	assert.Equal(t, a, b)
	assert.Equal(t, slog.LevelDebug, a.Level())

	lb.SetLevel(slog.LevelWarn)
	assert.Equal(t, slog.LevelWarn, a.Level())
	assert.Equal(t, slog.LevelWarn, lb.Logger("BLNC").Level())
}

func TestLogFileIsWritten(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "mtt.log")
	lb, err := NewLogBackend(LogConfig{LogFile: path, DebugLevel: "info", Quiet: true})
	require.NoError(t, err)

	lb.Logger("TEST").Infof("hello %d", 42)
	require.NoError(t, lb.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello 42")
	assert.Contains(t, string(data), "TEST")
}

func TestSetQuietKeepsFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mtt.log")
	lb, err := NewLogBackend(LogConfig{LogFile: path, Quiet: true})
	require.NoError(t, err)

	log := lb.Logger("UI")
	log.Infof("before")
	lb.SetQuiet(true)
	log.Infof("after")
	require.NoError(t, lb.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "before")
	assert.Contains(t, string(data), "after")
}
