package log

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	config "github.com/mwantia/modbot/internal/config/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
	}{
		{in: "debug", want: Debug},
		{in: "INFO", want: Info},
		{in: " warning ", want: Warn},
		{in: "error", want: Error},
		{in: "fatal", want: Fatal},
		{in: "", want: Info},
		{in: "chatty", want: Info},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.in))
		})
	}
}

func TestLoggerFiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerServiceWithWriter("bot", config.LogServerConfig{Level: "WARN", NoColor: true}, &buf)

	logger.Info("hidden %d", 1)
	logger.Warn("shown %d", 2)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown 2")
	assert.Contains(t, out, "[bot]")
}

func TestLoggerJSONNamed(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerServiceWithWriter("bot", config.LogServerConfig{Level: "DEBUG", JSON: true}, &buf)

	logger.Named("store").Debug("migrated %s", "tags")

	var entry logEntry
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &entry))
	assert.Equal(t, "DEBUG", entry.Level)
	assert.Equal(t, "bot/store", entry.Service)
	assert.Equal(t, "migrated tags", entry.Message)
}

func TestLoggerKeepsPercentWithoutArgs(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerServiceWithWriter("", config.LogServerConfig{Level: "INFO", NoColor: true}, &buf)

	logger.Info("100% done")

	assert.Contains(t, buf.String(), "100% done")
}
