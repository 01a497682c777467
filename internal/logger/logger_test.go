package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	require.Equal(t, zapcore.DebugLevel, parseLevel("debug"))
	require.Equal(t, zapcore.WarnLevel, parseLevel(" WARNING "))
	require.Equal(t, zapcore.ErrorLevel, parseLevel("ERROR"))
	require.Equal(t, zapcore.InfoLevel, parseLevel("whatever"))
}

func TestNewWritesFileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent.log")
	log := New("INFO", path)
	log.Info("file processed", zap.String("file", "doc1"))
	// Syncing stdout fails on some platforms; only the file sink matters here.
	_ = log.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), `"file":"doc1"`)
	require.Contains(t, string(data), "file processed")
}
