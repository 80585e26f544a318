package logging

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestSetup_FileAndMirror(t *testing.T) {
	// Given: a file path and a stderr mirror
	var mirror bytes.Buffer
	path := filepath.Join(t.TempDir(), "logs", "run.log")

	logger, cleanup, err := Setup(Config{Level: "debug", FilePath: path, MaxSizeMB: 1, MaxFiles: 2, Stderr: &mirror})
	require.NoError(t, err)

	// When: logging one structured line
	logger.Debug("block_unclassified", slog.Int("seq", 7))
	cleanup()

	// Then: both outputs hold the same JSON line
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, mirror.String(), string(data))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(data, &entry))
	assert.Equal(t, "block_unclassified", entry["msg"])
	assert.Equal(t, float64(7), entry["seq"])
}

func TestSetup_LevelFilters(t *testing.T) {
	var out bytes.Buffer
	logger, cleanup, err := Setup(Config{Level: "warn", Stderr: &out})
	require.NoError(t, err)
	defer cleanup()

	logger.Info("hidden")
	logger.Warn("shown")

	assert.NotContains(t, out.String(), "hidden")
	assert.Contains(t, out.String(), "shown")
}

func TestSetup_NoOutputs(t *testing.T) {
	logger, cleanup, err := Setup(Config{})
	require.NoError(t, err)
	defer cleanup()
	logger.Error("discarded")
}

func TestRotatingWriter_Rotates(t *testing.T) {
	// Given: a 1 MB limit and two kept files
	path := filepath.Join(t.TempDir(), "run.log")
	w, err := NewRotatingWriter(path, 1, 2)
	require.NoError(t, err)
	defer w.Close()

	// When: writing a bit over 3 MB in 512 KB lines
	line := []byte(strings.Repeat("x", 512*1024-1) + "\n")
	for i := 0; i < 7; i++ {
		_, err := w.Write(line)
		require.NoError(t, err)
	}

	// Then: the live file and two rotated files exist, no more
	for _, name := range []string{path, path + ".1", path + ".2"} {
		info, err := os.Stat(name)
		require.NoError(t, err, name)
		assert.LessOrEqual(t, info.Size(), int64(1024*1024), name)
	}
	_, err = os.Stat(fmt.Sprintf("%s.%d", path, 3))
	assert.True(t, os.IsNotExist(err))
}

func TestOrDefault(t *testing.T) {
	assert.Same(t, slog.Default(), OrDefault(nil))
	l := slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil))
	assert.Same(t, l, OrDefault(l))
}
