package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry), line)
		out = append(out, entry)
	}
	return out
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	log, flush, err := New(&buf, "info", false)
	require.NoError(t, err)

	log.WithName("engine").Info("compile installed", "generation", 3)
	log.V(1).Info("debug chatter")
	log.Error(errors.New("boom"), "compile failed")
	flush()

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "compile installed", entries[0]["msg"])
	assert.Equal(t, "engine", entries[0]["logger"])
	assert.Equal(t, float64(3), entries[0]["generation"])
	assert.Equal(t, "error", entries[1]["level"])
	assert.Equal(t, "boom", entries[1]["error"])
}

func TestNewDebugEnablesV1(t *testing.T) {
	var buf bytes.Buffer
	log, flush, err := New(&buf, "debug", false)
	require.NoError(t, err)

	log.V(1).Info("debug chatter")
	flush()

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "debug", entries[0]["level"])
}

func TestNewDevelopmentIsConsole(t *testing.T) {
	var buf bytes.Buffer
	log, flush, err := New(&buf, "info", true)
	require.NoError(t, err)

	log.Info("hello", "k", "v")
	flush()

	out := buf.String()
	assert.Contains(t, out, "INFO")
	assert.Contains(t, out, "hello")
	assert.False(t, json.Valid([]byte(strings.TrimSpace(out))))
}

func TestNewBadLevel(t *testing.T) {
	_, _, err := New(nil, "loud", false)
	assert.Error(t, err)
}
