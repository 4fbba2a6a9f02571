package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/trade-journal/internal/config"
)

func TestNew_WritesRotatingFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	log, err := New(config.LogConfig{Level: "debug", Encoding: "json", Dir: dir, MaxSizeMB: 1})
	require.NoError(t, err)

	log.Info("journal started")
	_ = log.Sync()

	data, err := os.ReadFile(filepath.Join(dir, "app.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "journal started")
}

func TestNew_UnknownLevelFallsBackToInfo(t *testing.T) {
	log, err := New(config.LogConfig{Level: "chatty", Encoding: "console"})
	require.NoError(t, err)
	assert.False(t, log.Core().Enabled(zapcore.DebugLevel))
	assert.True(t, log.Core().Enabled(zapcore.InfoLevel))
}
