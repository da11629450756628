package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/agentuity/go-gqlclient/logger"
	"github.com/cespare/xxhash/v2"
	"github.com/cockroachdb/errors"
	"github.com/vmihailenco/msgpack/v5"
)

// Cache is a size-bounded store evicting in insertion order (FIFO). Reads
// never change eviction order; overwriting a key keeps its original position.
type Cache interface {
	// GetContext retrieves a value from the cache.
	GetContext(ctx context.Context, key string) (bool, any, error)
	// SetContext stores a value. When the cache is full and key is new, the
	// oldest inserted entry is evicted first.
	SetContext(ctx context.Context, key string, val any) error
	// ExpireContext removes a key from the cache.
	ExpireContext(ctx context.Context, key string) (bool, error)
	// LenContext returns the number of entries currently held.
	LenContext(ctx context.Context) (int, error)
	// CloseContext shuts down the cache.
	CloseContext(ctx context.Context) error
}

// Encoded is a msgpack-serialized value returned by I/O-backed caches.
// GetContext decodes it into the requested type.
type Encoded []byte

// GetContext retrieves a typed value from the cache. In-memory values are
// type-asserted; Encoded values from Redis or SQLite are msgpack-decoded.
func GetContext[T any](ctx context.Context, c Cache, key string) (bool, T, error) {
	var zero T
	found, val, err := c.GetContext(ctx, key)
	if !found || err != nil {
		return false, zero, err
	}
	if typed, ok := val.(T); ok {
		return true, typed, nil
	}
	if data, ok := val.(Encoded); ok {
		var result T
		if err := msgpack.Unmarshal(data, &result); err != nil {
			return false, zero, errors.Wrap(err, "cache: failed to unmarshal value")
		}
		return true, result, nil
	}
	return false, zero, errors.Newf("cache: cannot convert value of type %T to %T", val, zero)
}

// DefaultMaxEntries is the capacity used when WithMaxEntries is not given.
const DefaultMaxEntries = 30

// DefaultQueryTimeout is the per-operation timeout for cache backends that
// perform I/O (SQLite, Redis).
const DefaultQueryTimeout = 5 * time.Second

// DefaultPrefix namespaces Redis keys.
const DefaultPrefix = "gqlclient"

type config struct {
	maxEntries   int
	queryTimeout time.Duration
	prefix       string
	logger       logger.Logger
}

// Option configures a Cache implementation.
type Option func(*config)

func applyOptions(opts []Option) config {
	cfg := config{
		maxEntries:   DefaultMaxEntries,
		queryTimeout: DefaultQueryTimeout,
		prefix:       DefaultPrefix,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.maxEntries <= 0 {
		cfg.maxEntries = DefaultMaxEntries
	}
	return cfg
}

// WithMaxEntries sets the capacity. Values <= 0 fall back to DefaultMaxEntries.
func WithMaxEntries(n int) Option {
	return func(c *config) { c.maxEntries = n }
}

// WithQueryTimeout sets the per-operation timeout for I/O-backed caches.
func WithQueryTimeout(d time.Duration) Option {
	return func(c *config) { c.queryTimeout = d }
}

// WithPrefix sets the key prefix for the Redis backend.
func WithPrefix(p string) Option {
	return func(c *config) { c.prefix = p }
}

// WithLogger sets a logger for eviction diagnostics.
func WithLogger(l logger.Logger) Option {
	return func(c *config) { c.logger = l }
}

func (c config) traceEvicted(key string) {
	if c.logger != nil {
		c.logger.Trace("evicted oldest entry %s", key)
	}
}

func (c config) debugWriteFailed(key string, err error) {
	if c.logger != nil {
		c.logger.Debug("failed to store %s: %s", key, err)
	}
}

// writeFailedLogger is implemented by caches that report failed writes to
// their WithLogger logger.
type writeFailedLogger interface {
	logWriteFailed(key string, err error)
}

// Key derives the cache key for a named operation from its serialized
// variables. Callers must serialize deterministically (encoding/json sorts
// map keys) so structurally equal variables share a key.
func Key(kind, name string, variables []byte) string {
	return fmt.Sprintf("%s:%s:%016x", kind, name, xxhash.Sum64(variables))
}

// Invoker produces a value on a cache miss. Returning store=false skips
// caching the value.
type Invoker[T any] func(ctx context.Context) (val T, store bool, err error)

// Exec is a cache-aside helper. A hit returns the cached value with hit=true
// without calling invoke. A miss calls invoke and, when it succeeds and asks
// for it, stores the result. Cache read errors are returned. Write errors are
// logged at Debug through the cache's logger and otherwise dropped, the caller
// already has its value.
func Exec[T any](ctx context.Context, c Cache, key string, invoke Invoker[T]) (T, bool, error) {
	found, val, err := GetContext[T](ctx, c, key)
	if err != nil {
		var zero T
		return zero, false, err
	}
	if found {
		return val, true, nil
	}
	result, store, err := invoke(ctx)
	if err != nil {
		var zero T
		return zero, false, err
	}
	if store {
		if err := c.SetContext(ctx, key, result); err != nil {
			if l, ok := c.(writeFailedLogger); ok {
				l.logWriteFailed(key, err)
			}
		}
	}
	return result, false, nil
}
