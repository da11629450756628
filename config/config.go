// Package config loads client settings from YAML and the environment and
// builds a ready *graphql.Client from them.
package config

import (
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/agentuity/go-gqlclient/env"
	"github.com/agentuity/go-gqlclient/logger"
	cstr "github.com/agentuity/go-gqlclient/string"
	"github.com/cockroachdb/errors"
	"github.com/xhit/go-str2duration/v2"
	"gopkg.in/yaml.v3"
	"k8s.io/apimachinery/pkg/api/resource"
)

const (
	BackendMemory    = "memory"
	BackendRedis     = "redis"
	BackendSQLite    = "sqlite"
	BackendComposite = "composite"
)

// Duration accepts Go durations plus days and weeks ("1d2h", "90s").
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	if s == "" {
		*d = 0
		return nil
	}
	v, err := str2duration.ParseDuration(s)
	if err != nil {
		return errors.Wrapf(err, "line %d: invalid duration %q", node.Line, s)
	}
	*d = Duration(v)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

// Size is a byte count written as a Kubernetes quantity ("10Mi", "500k").
type Size int64

func (s *Size) UnmarshalYAML(node *yaml.Node) error {
	var str string
	if err := node.Decode(&str); err != nil {
		return err
	}
	if str == "" {
		*s = 0
		return nil
	}
	q, err := resource.ParseQuantity(str)
	if err != nil {
		return errors.Wrapf(err, "line %d: invalid size %q", node.Line, str)
	}
	if q.Sign() < 0 {
		return errors.Newf("line %d: size %q is negative", node.Line, str)
	}
	*s = Size(q.Value())
	return nil
}

type CacheConfig struct {
	Backend      string   `yaml:"backend"`
	MaxEntries   int      `yaml:"max_entries"`
	RedisURL     string   `yaml:"redis_url"`
	Prefix       string   `yaml:"prefix"`
	SQLitePath   string   `yaml:"sqlite_path"`
	QueryTimeout Duration `yaml:"query_timeout"`
}

type TelemetryConfig struct {
	OTLPURL     string            `yaml:"otlp_url"`
	Token       cstr.MaskedString `yaml:"token"`
	ServiceName string            `yaml:"service_name"`
}

// Config is the file layout:
//
//	endpoint: https://api.example.com/graphql
//	headers:
//	  Authorization: Bearer ${API_TOKEN}
//	timeout: 30s
//	max_upload_size: 10Mi
//	max_response_size: 64Mi
//	cache:
//	  backend: redis
//	  redis_url: ${env:REDIS_URL:-redis://localhost:6379/0}
type Config struct {
	Endpoint        string                       `yaml:"endpoint"`
	Headers         map[string]cstr.MaskedString `yaml:"headers"`
	Timeout         Duration                     `yaml:"timeout"`
	MaxUploadSize   Size                         `yaml:"max_upload_size"`
	MaxResponseSize Size                         `yaml:"max_response_size"`
	RequestIDHeader string                       `yaml:"request_id_header"`
	LogLevel        string                       `yaml:"log_level"`
	Cache           CacheConfig                  `yaml:"cache"`
	Telemetry       TelemetryConfig              `yaml:"telemetry"`
}

// Default returns a Config with an in-memory cache and no endpoint.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Cache: CacheConfig{
			Backend:    BackendMemory,
			SQLitePath: "gqlclient-cache.db",
		},
		Telemetry: TelemetryConfig{ServiceName: "gqlclient"},
	}
}

// Load reads path, expands ${VAR} references against the process
// environment and applies GQLCLIENT_* overrides. An empty path yields the
// defaults plus overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		cfg := Default()
		ApplyEnvOverrides(cfg)
		return cfg, cfg.Validate()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

// Parse decodes YAML on top of Default. Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	expanded := env.Interpolate(string(data), env.Environ())
	cfg := Default()
	dec := yaml.NewDecoder(strings.NewReader(expanded))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	ApplyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnvOverrides updates cfg from the GQLCLIENT_* environment variables
// that are set.
func ApplyEnvOverrides(cfg *Config) {
	if v := os.Getenv(env.EndpointEnvVar); v != "" {
		cfg.Endpoint = v
	}
	if v := os.Getenv(env.CacheBackendEnvVar); v != "" {
		cfg.Cache.Backend = v
	}
	if v := os.Getenv(env.RedisURLEnvVar); v != "" {
		cfg.Cache.RedisURL = v
	}
	if v := os.Getenv(logger.LevelEnvVar); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv(env.OTLPURLEnvVar); v != "" {
		cfg.Telemetry.OTLPURL = v
	}
	if v := os.Getenv(env.OTLPTokenEnvVar); v != "" {
		cfg.Telemetry.Token = cstr.MaskedString(v)
	}
}

// Validate checks the cache backend and its settings. The endpoint is
// checked when a client is built, so a config may omit it and take it from a
// flag instead.
func (c *Config) Validate() error {
	switch c.Cache.Backend {
	case "", BackendMemory:
	case BackendRedis:
		if c.Cache.RedisURL == "" {
			return errors.New("cache.redis_url is required for the redis backend")
		}
	case BackendSQLite:
		if c.Cache.SQLitePath == "" {
			return errors.New("cache.sqlite_path is required for the sqlite backend")
		}
	case BackendComposite:
		if c.Cache.RedisURL == "" && c.Cache.SQLitePath == "" {
			return errors.New("the composite backend needs cache.redis_url or cache.sqlite_path")
		}
	default:
		return errors.Newf("unknown cache backend %q", c.Cache.Backend)
	}
	if c.Cache.MaxEntries < 0 {
		return errors.Newf("cache.max_entries must not be negative, got %d", c.Cache.MaxEntries)
	}
	return nil
}

// HTTPHeaders returns the configured headers unmasked.
func (c *Config) HTTPHeaders() http.Header {
	h := http.Header{}
	for k, v := range c.Headers {
		h.Set(k, v.Text())
	}
	return h
}
