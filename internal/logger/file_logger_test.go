package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"DEBUG":   zerolog.DebugLevel,
		"debug":   zerolog.DebugLevel,
		"INFO":    zerolog.InfoLevel,
		"WARN":    zerolog.WarnLevel,
		"warning": zerolog.WarnLevel,
		"ERROR":   zerolog.ErrorLevel,
		"":        zerolog.InfoLevel,
		"verbose": zerolog.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

// TestNewWritesStructuredEvents tests level filtering and the service field
func TestNewWritesStructuredEvents(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Options{Service: "backtest", Level: "WARN", Writer: &buf})
	require.NoError(t, err)

	l.Info().Msg("dropped")
	l.Warn().Int("index", 7).Msg("kept")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var event map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &event))
	assert.Equal(t, "backtest", event["service"])
	assert.Equal(t, "kept", event["message"])
	assert.Equal(t, float64(7), event["index"])
	assert.NoError(t, l.Close())
}

// TestSessionFile tests the per-session log file
func TestSessionFile(t *testing.T) {
	dir := t.TempDir()
	var buf bytes.Buffer
	l, err := New(Options{Service: "sim", Level: "INFO", Writer: &buf, Dir: dir})
	require.NoError(t, err)
	require.NotEmpty(t, l.Path())
	assert.True(t, strings.HasPrefix(l.Path(), dir))

	l.Info().Msg("hello")
	require.NoError(t, l.Close())
	require.NoError(t, l.Close())

	data, err := os.ReadFile(l.Path())
	require.NoError(t, err)
	assert.Contains(t, string(data), "session started")
	assert.Contains(t, string(data), "hello")
	assert.Contains(t, string(data), "session ended")
}

func TestNop(t *testing.T) {
	l := Nop()
	l.Error().Msg("ignored")
	assert.Empty(t, l.Path())
	assert.NoError(t, l.Close())
}
