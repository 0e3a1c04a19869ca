package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLoggerIsSet(t *testing.T) {
	assert.NotNil(t, Log)
}

func readLog(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creaper.log")
	log, err := New(Config{Level: "debug", ToFile: true, FilePath: path, MaxSizeMB: 1})
	require.NoError(t, err)

	log.Debugw("reconnecting", "session", "abc")
	require.NoError(t, log.Sync())

	out := readLog(t, path)
	assert.Contains(t, out, "reconnecting")
	assert.Contains(t, out, "abc")
}

func TestNewJSONWithFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creaper.json")
	log, err := New(Config{
		Level:    "info",
		Format:   FormatJSON,
		Fields:   map[string]string{"host": "node-1", "app": "creaper"},
		ToFile:   true,
		FilePath: path,
	})
	require.NoError(t, err)

	log.Debug("hidden")
	log.Infow("connected", "session", "abc")
	require.NoError(t, log.Sync())

	lines := strings.Split(strings.TrimSpace(readLog(t, path)), "\n")
	require.Len(t, lines, 1)
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "connected", entry["msg"])
	assert.Equal(t, "abc", entry["session"])
	assert.Equal(t, "node-1", entry["host"])
	assert.Equal(t, "creaper", entry["app"])
	assert.Contains(t, entry, "timestamp")
}

func TestNewRejectsBadConfig(t *testing.T) {
	_, err := New(Config{Level: "loud"})
	assert.ErrorContains(t, err, "invalid log level")

	_, err = New(Config{Format: "xml"})
	assert.ErrorContains(t, err, "unknown log format")
}

func TestInitReplacesGlobal(t *testing.T) {
	prev := Log
	t.Cleanup(func() { Log = prev })

	require.NoError(t, Init(Config{Level: "error", ToStderr: true}))
	assert.NotSame(t, prev, Log)

	current := Log
	assert.Error(t, Init(Config{Level: "loud"}))
	assert.Same(t, current, Log, "a failed Init keeps the current logger")
}
