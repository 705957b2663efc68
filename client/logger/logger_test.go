package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestLoggerWritesConsoleAndFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "benchmark.log")
	var console bytes.Buffer

	l, err := newLogger(path, &console)
	require.NoError(t, err)
	l.Line("meta", "benchmark_start")
	l.Linef("meta", "warmup=%d repeats=%d", 1, 5)
	require.NoError(t, l.Close())

	want := "meta | benchmark_start\nmeta | warmup=1 repeats=5\n"
	assert.Equal(t, want, console.String())
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, want, string(content))
}

func TestLoggerTruncatesPreviousRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "benchmark.log")
	require.NoError(t, os.WriteFile(path, []byte("stale line\n"), 0644))

	l, err := newLogger(path, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, path, l.Path())
	l.Line("meta", "fresh")
	require.NoError(t, l.Close())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "meta | fresh\n", string(content))
}

func TestNewDiagnostic(t *testing.T) {
	lg, err := NewDiagnostic("warn")
	require.NoError(t, err)
	assert.False(t, lg.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, lg.Core().Enabled(zapcore.WarnLevel))

	_, err = NewDiagnostic("loud")
	assert.Error(t, err)
}
