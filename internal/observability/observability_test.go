package observability

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "info", "json")
	logger.Debug("hidden")
	logger.Info("unit failed", "file", "a.nc", "variable", "sst")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "unit failed", entry["msg"])
	assert.Equal(t, "a.nc", entry["file"])
}

func TestNewLogger_Text(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, "debug", "text").Debug("hello", "k", "v")
	assert.Contains(t, buf.String(), "k=v")
}

func TestMetricsForTesting(t *testing.T) {
	m := NewMetricsForTesting()
	m.Units.WithLabelValues("ok", "").Inc()
	m.ArtifactsProduced.Add(2)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Units.WithLabelValues("ok", "")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ArtifactsProduced))
}
