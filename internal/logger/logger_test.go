package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelThreshold(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Options{Output: &buf, Level: "warn"})
	require.NoError(t, err)

	l.Info("BOOKING", "hidden")
	l.Warn("FALLBACK", "shown")
	l.Error("DATABASE", "also shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "WARN  [FALLBACK  ] shown")
	assert.Contains(t, out, "also shown")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DEBUG, ParseLevel("DEBUG"))
	assert.Equal(t, WARN, ParseLevel("warning"))
	assert.Equal(t, ERROR, ParseLevel(" error "))
	assert.Equal(t, INFO, ParseLevel(""))
	assert.Equal(t, INFO, ParseLevel("nonsense"))
}

func TestFileOutputIsJSON(t *testing.T) {
	dir := t.TempDir()
	var buf bytes.Buffer
	l, err := New(Options{Dir: dir, Prefix: "test", Output: &buf})
	require.NoError(t, err)
	l.LogBooking("INITIATE", "PAY_1_ABCDEF", "intent stored")
	l.Close()

	files, err := filepath.Glob(filepath.Join(dir, "test-*.log"))
	require.NoError(t, err)
	require.Len(t, files, 1)

	raw, err := os.ReadFile(files[0])
	require.NoError(t, err)

	var found bool
	for _, line := range strings.Split(strings.TrimSpace(string(raw)), "\n") {
		var entry LogEntry
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		if entry.Category == "BOOKING" {
			found = true
			assert.Equal(t, "INFO", entry.Level)
			assert.Equal(t, "[INITIATE] PAY_1_ABCDEF - intent stored", entry.Message)
		}
	}
	assert.True(t, found)
}

func TestNilLoggerIsSafe(t *testing.T) {
	var l *Logger
	assert.NotPanics(t, func() { l.Info("X", "y") })
}
