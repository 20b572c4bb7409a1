package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_Prod(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger("prod", &buf)

	l.Debug("hidden")
	l.With("component", "server").Info("started", "port", "8080")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "started", entry["msg"])
	assert.Equal(t, "server", entry["component"])
	assert.Equal(t, "8080", entry["port"])
}

func TestNewLogger_Dev(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger("dev", &buf)

	l.Debug("visible", "task_id", 42)

	assert.Contains(t, buf.String(), "level=DEBUG")
	assert.Contains(t, buf.String(), "task_id=42")
}
