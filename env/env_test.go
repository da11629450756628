package env

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/agentuity/go-gqlclient/logger"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEnvFile(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "test.env")
	content := `
GQLCLIENT_ENDPOINT=https://api.example.com/graphql
TOKEN="abc"
QUOTED='single'
# This is a comment
export AUTH=Bearer ${TOKEN}
`
	require.NoError(t, os.WriteFile(tmpFile, []byte(content), 0644))

	got, err := ParseEnvFile(tmpFile)
	require.NoError(t, err)
	assert.Equal(t, []EnvLine{
		{Key: "GQLCLIENT_ENDPOINT", Val: "https://api.example.com/graphql"},
		{Key: "TOKEN", Val: "abc"},
		{Key: "QUOTED", Val: "single"},
		{Key: "AUTH", Val: "Bearer abc"},
	}, got)

	t.Run("non-existent file", func(t *testing.T) {
		got, err := ParseEnvFile(filepath.Join(t.TempDir(), "nonexistent.env"))
		assert.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestParseEnvBufferForwardReference(t *testing.T) {
	got, err := ParseEnvBuffer([]byte("URL=${HOST}/graphql\nHOST=http://localhost:3000\n"))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:3000/graphql", got[0].Val)
}

func TestProcessEnvLine(t *testing.T) {
	tests := []struct {
		line string
		want EnvLine
	}{
		{"KEY=value", EnvLine{Key: "KEY", Val: "value"}},
		{"KEY=", EnvLine{Key: "KEY", Val: ""}},
		{"KEY", EnvLine{Key: "KEY"}},
		{`KEY="a=b"`, EnvLine{Key: "KEY", Val: "a=b"}},
		{`KEY="unbalanced'`, EnvLine{Key: "KEY", Val: `"unbalanced'`}},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			assert.Equal(t, tt.want, ProcessEnvLine(tt.line))
		})
	}
}

func TestInterpolate(t *testing.T) {
	t.Setenv("GQLCLIENT_TEST_HOST", "db.internal")
	vars := map[string]string{"A": "1", "EMPTY": ""}
	tests := map[string]string{
		"plain":                           "plain",
		"${A}":                            "1",
		"x${A}y${A}z":                     "x1y1z",
		"${MISSING}":                      "${MISSING}",
		"${MISSING:-fallback}":            "fallback",
		"${EMPTY:-fallback}":              "fallback",
		"${env:GQLCLIENT_TEST_HOST}:6379": "db.internal:6379",
		"${env:GQLCLIENT_TEST_NOPE:-x}":   "x",
		"${}":                             "${}",
		"${A":                             "${A",
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, Interpolate(in, vars))
		})
	}
}

func TestLoad(t *testing.T) {
	file := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(file, []byte("GQLCLIENT_TEST_A=from-file\nGQLCLIENT_TEST_B=from-file\n"), 0644))
	t.Setenv("GQLCLIENT_TEST_A", "from-env")
	t.Setenv("GQLCLIENT_TEST_B", "")
	os.Unsetenv("GQLCLIENT_TEST_B")

	require.NoError(t, Load(file))
	assert.Equal(t, "from-env", os.Getenv("GQLCLIENT_TEST_A"))
	assert.Equal(t, "from-file", os.Getenv("GQLCLIENT_TEST_B"))
	assert.Equal(t, "from-file", Environ()["GQLCLIENT_TEST_B"])
}

func TestFlagOrEnv(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("test-flag", "", "Test flag")

	cmd.Flags().Set("test-flag", "flag-value")
	assert.Equal(t, "flag-value", FlagOrEnv(cmd, "test-flag", "TEST_ENV", "default"))

	cmd.Flags().Set("test-flag", "")
	t.Setenv("TEST_ENV", "env-value")
	assert.Equal(t, "env-value", FlagOrEnv(cmd, "test-flag", "TEST_ENV", "default"))

	os.Unsetenv("TEST_ENV")
	assert.Equal(t, "default", FlagOrEnv(cmd, "test-flag", "TEST_ENV", "default"))
}

func TestLogLevel(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("log-level", "", "Log level")

	testCases := []struct {
		name      string
		flagValue string
		envValue  string
		expected  logger.LogLevel
	}{
		{"debug level via flag", "debug", "", logger.LevelDebug},
		{"debug level via env", "", "DEBUG", logger.LevelDebug},
		{"trace level via flag", "trace", "", logger.LevelTrace},
		{"flag wins over env", "error", "trace", logger.LevelError},
		{"unknown falls back", "loud", "", logger.LevelInfo},
		{"default level", "", "", logger.LevelInfo},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cmd.Flags().Set("log-level", tc.flagValue)
			t.Setenv(logger.LevelEnvVar, tc.envValue)
			assert.Equal(t, tc.expected, LogLevel(cmd))
		})
	}
}

func TestNewLoggerFormat(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("log-level", "debug", "")
	cmd.Flags().String("log-format", "json", "")
	t.Setenv(logger.LevelEnvVar, "")
	log := NewLogger(cmd, "error")
	assert.True(t, log.IsLevelEnabled(logger.LevelDebug))
	assert.False(t, log.IsLevelEnabled(logger.LevelTrace))

	cmd.Flags().Set("log-level", "")
	log = NewLogger(cmd, "error")
	assert.False(t, log.IsLevelEnabled(logger.LevelWarn))
	assert.True(t, log.IsLevelEnabled(logger.LevelError))
}
