package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetLevelFromEnv(t *testing.T) {
	originalValue := os.Getenv(LevelEnvVar)
	defer os.Setenv(LevelEnvVar, originalValue)

	tests := []struct {
		name          string
		envValue      string
		expectedLevel LogLevel
	}{
		{"trace level", "trace", LevelTrace},
		{"debug level", "debug", LevelDebug},
		{"info level", "info", LevelInfo},
		{"warn level", "warn", LevelWarn},
		{"warning alias", "warning", LevelWarn},
		{"error level", "error", LevelError},
		{"uppercase trace", "TRACE", LevelTrace},
		{"padded", "  debug ", LevelDebug},
		{"unknown falls back to info", "chatty", LevelInfo},
		{"empty falls back to info", "", LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Setenv(LevelEnvVar, tt.envValue)
			assert.Equal(t, tt.expectedLevel, GetLevelFromEnv())
		})
	}
}

func TestConsoleLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	log := NewConsoleLoggerWithWriter(&buf, LevelInfo, false)
	log.Debug("hidden %d", 1)
	log.Info("shown %d", 2)
	log.Error("failed")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "[INFO]  shown 2")
	assert.Contains(t, out, "[ERROR] failed")
	assert.False(t, log.IsLevelEnabled(LevelDebug))
	assert.True(t, log.IsLevelEnabled(LevelWarn))
}

func TestConsoleLoggerPrefixAndMetadata(t *testing.T) {
	var buf bytes.Buffer
	log := NewConsoleLoggerWithWriter(&buf, LevelTrace, false).
		WithPrefix("[graphql]").
		WithPrefix("[graphql]").
		With(map[string]interface{}{"operation": "getUser"})
	log.Trace("fetching")

	line := strings.TrimSpace(buf.String())
	assert.Equal(t, `[TRACE] [graphql] fetching {"operation":"getUser"}`, line)
}

func TestConsoleLoggerNoColorCodes(t *testing.T) {
	var buf bytes.Buffer
	NewConsoleLoggerWithWriter(&buf, LevelTrace, false).Warn("plain")
	assert.NotContains(t, buf.String(), "\033[")

	buf.Reset()
	NewConsoleLoggerWithWriter(&buf, LevelTrace, true).Warn("colored")
	assert.Contains(t, buf.String(), MagentaBold)
}

func TestJSONLogEntryString(t *testing.T) {
	var parsed map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(JSONLogEntry{Message: "Test message"}.String()), &parsed))
	assert.Equal(t, "Test message", parsed["message"])
	assert.Equal(t, "INFO", parsed["severity"])
}

func TestJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	log := NewJSONLoggerWithSink(&buf, LevelDebug).(*jsonLogger)
	log.ts = &ts

	child := log.WithPrefix("graphql").With(map[string]interface{}{"cache": "hit"})
	child.Trace("dropped")
	child.Debug("loading %s from cache", "getUser")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry JSONLogEntry
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "loading getUser from cache", entry.Message)
	assert.Equal(t, "DEBUG", entry.Severity)
	assert.Equal(t, "graphql", entry.Component)
	assert.Equal(t, "hit", entry.Metadata["cache"])
	assert.True(t, ts.Equal(entry.Timestamp))
}

func TestJSONLoggerComponentMetadata(t *testing.T) {
	var buf bytes.Buffer
	NewJSONLoggerWithSink(&buf, LevelInfo).
		With(map[string]interface{}{"component": "cache"}).
		Info("ready")

	var entry JSONLogEntry
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "cache", entry.Component)
	assert.NotContains(t, entry.Metadata, "component")
}

func TestTestLogger(t *testing.T) {
	log := NewTestLogger()
	log.Trace("Trace message", 1)
	log.Debug("Debug message", 2)
	log.Info("Info message", 3)
	log.Warn("Warn message", 4)
	log.Error("Error message", 5)

	entries := log.Entries()
	require.Len(t, entries, 5)
	assert.Equal(t, "TRACE", entries[0].Severity)
	assert.Equal(t, []interface{}{1}, entries[0].Arguments)
	assert.Equal(t, "WARNING", entries[3].Severity)
	assert.Equal(t, "Error message", entries[4].Message)
}

func TestTestLoggerChildrenShareRecord(t *testing.T) {
	log := NewTestLogger()
	child := WithKV(log.WithPrefix("[cache]"), "key", "query:getUser")
	child.Info("evicted")

	entries := log.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, []string{"[cache]"}, entries[0].Prefixes)
	assert.Equal(t, "query:getUser", entries[0].Metadata["key"])
	assert.True(t, log.Contains("evict"))
	assert.False(t, log.Contains("fetch"))
}
