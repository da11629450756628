// Package env reads .env files, expands ${VAR:-default} references and
// resolves command settings from flags and the environment.
package env

import (
	"os"
	"strings"

	"github.com/agentuity/go-gqlclient/logger"
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
)

const (
	EndpointEnvVar     = "GQLCLIENT_ENDPOINT"
	CacheBackendEnvVar = "GQLCLIENT_CACHE_BACKEND"
	RedisURLEnvVar     = "GQLCLIENT_REDIS_URL"
	LogFormatEnvVar    = "GQLCLIENT_LOG_FORMAT"
	OTLPURLEnvVar      = "GQLCLIENT_OTLP_URL"
	OTLPTokenEnvVar    = "GQLCLIENT_OTLP_TOKEN"
)

type EnvLine struct {
	Key string `json:"key"`
	Val string `json:"val"`
}

// ParseEnvFile parses an environment file. A missing file yields no lines.
func ParseEnvFile(filename string) ([]EnvLine, error) {
	buf, err := os.ReadFile(filename)
	if os.IsNotExist(err) {
		return []EnvLine{}, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read env file %s", filename)
	}
	return ParseEnvBuffer(buf)
}

// ParseEnvBuffer parses KEY=value lines, skipping blanks and # comments.
// Values may reference earlier or later keys with ${KEY} or ${KEY:-default}
// and the process environment with ${env:KEY}.
func ParseEnvBuffer(buf []byte) ([]EnvLine, error) {
	envs := []EnvLine{}
	vars := map[string]string{}
	for _, line := range strings.Split(string(buf), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		el := ProcessEnvLine(strings.TrimPrefix(line, "export "))
		if el.Key == "" {
			continue
		}
		el.Val = Interpolate(el.Val, vars)
		vars[el.Key] = el.Val
		envs = append(envs, el)
	}
	// second pass resolves forward references
	for i := range envs {
		envs[i].Val = Interpolate(envs[i].Val, vars)
	}
	return envs, nil
}

// ProcessEnvLine splits one KEY=value line and removes surrounding quotes.
func ProcessEnvLine(line string) EnvLine {
	key, val, ok := strings.Cut(line, "=")
	if !ok {
		return EnvLine{Key: line}
	}
	return EnvLine{Key: strings.TrimSpace(key), Val: dequote(strings.TrimSpace(val))}
}

func dequote(s string) string {
	if len(s) >= 2 && (s[0] == '\'' || s[0] == '"') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}

// Interpolate replaces ${KEY} and ${KEY:-default} references using vars,
// and ${env:KEY} using the process environment. An unresolved reference
// without a default is kept verbatim.
func Interpolate(input string, vars map[string]string) string {
	if !strings.Contains(input, "${") {
		return input
	}
	var out strings.Builder
	rest := input
	for {
		start := strings.Index(rest, "${")
		if start < 0 {
			out.WriteString(rest)
			return out.String()
		}
		end := strings.IndexByte(rest[start+2:], '}')
		if end < 0 {
			out.WriteString(rest)
			return out.String()
		}
		end += start + 2
		out.WriteString(rest[:start])
		ref := rest[start : end+1]
		name, def, _ := strings.Cut(rest[start+2:end], ":-")

		var val string
		if key, ok := strings.CutPrefix(name, "env:"); ok {
			val = os.Getenv(key)
		} else {
			val = vars[name]
		}
		switch {
		case name == "":
			out.WriteString(ref)
		case val != "":
			out.WriteString(val)
		case def != "":
			out.WriteString(def)
		default:
			out.WriteString(ref)
		}
		rest = rest[end+1:]
	}
}

// Load sets every variable from filename that is not already present in the
// process environment.
func Load(filename string) error {
	envs, err := ParseEnvFile(filename)
	if err != nil {
		return err
	}
	for _, el := range envs {
		if _, ok := os.LookupEnv(el.Key); ok {
			continue
		}
		if err := os.Setenv(el.Key, el.Val); err != nil {
			return errors.Wrapf(err, "set %s", el.Key)
		}
	}
	return nil
}

// Environ returns the process environment as a map for Interpolate.
func Environ() map[string]string {
	out := map[string]string{}
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			out[k] = v
		}
	}
	return out
}

// FlagOrEnv will try and get a flag from the cobra.Command and if not found, look it up in the environment
// and fallback to defaultValue if non found
func FlagOrEnv(cmd *cobra.Command, flagName string, envName string, defaultValue string) string {
	flagValue, _ := cmd.Flags().GetString(flagName)
	if flagValue != "" {
		return flagValue
	}
	if val, ok := os.LookupEnv(envName); ok && val != "" {
		return val
	}
	return defaultValue
}

func LogLevel(cmd *cobra.Command) logger.LogLevel {
	return levelOr(cmd, "info")
}

func levelOr(cmd *cobra.Command, def string) logger.LogLevel {
	return logger.ParseLevel(FlagOrEnv(cmd, "log-level", logger.LevelEnvVar, def), logger.LevelInfo)
}

// NewLogger returns a logger at the level from the --log-level flag or
// GQLCLIENT_LOG_LEVEL, falling back to defaultLevel. --log-format json (or
// GQLCLIENT_LOG_FORMAT) selects JSON lines instead of console output.
func NewLogger(cmd *cobra.Command, defaultLevel string) logger.Logger {
	level := levelOr(cmd, defaultLevel)
	if strings.EqualFold(FlagOrEnv(cmd, "log-format", LogFormatEnvVar, "console"), "json") {
		return logger.NewJSONLogger(level)
	}
	return logger.NewConsoleLogger(level)
}
