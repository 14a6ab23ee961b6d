package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/card-statements/internal/model"
)

func TestNew_WritesConsoleAndFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	now := time.Date(2024, 3, 15, 8, 0, 0, 0, time.UTC)
	var console bytes.Buffer

	logger, closer, err := New(model.LogConfig{Level: "debug", Dir: dir}, &console, now)
	require.NoError(t, err)

	logger.Debug("parsed statement", "bank", "HDFC")
	require.NoError(t, closer.Close())

	assert.Contains(t, console.String(), "parsed statement")

	data, err := os.ReadFile(filepath.Join(dir, "statements_20240315.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "bank=HDFC")
}

func TestNew_ConsoleOnly(t *testing.T) {
	var console bytes.Buffer

	logger, closer, err := New(model.LogConfig{Level: "warn"}, &console, time.Now())
	require.NoError(t, err)
	defer closer.Close()

	logger.Info("hidden")
	logger.Warn("shown")

	assert.NotContains(t, console.String(), "hidden")
	assert.Contains(t, console.String(), "shown")
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, log.InfoLevel, lvl)

	lvl, err = ParseLevel("DEBUG")
	require.NoError(t, err)
	assert.Equal(t, log.DebugLevel, lvl)

	_, err = ParseLevel("verbose")
	assert.Error(t, err)
}
