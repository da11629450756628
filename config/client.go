package config

import (
	"context"

	"github.com/agentuity/go-gqlclient/cache"
	"github.com/agentuity/go-gqlclient/graphql"
	"github.com/agentuity/go-gqlclient/logger"
	"github.com/agentuity/go-gqlclient/telemetry"
	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"
)

// CleanupFunc releases everything NewClient opened.
type CleanupFunc func()

// NewCache opens the configured cache backend. The cleanup closes any Redis
// connection it created; the cache itself is closed by its owner.
func NewCache(ctx context.Context, cfg CacheConfig, log logger.Logger) (cache.Cache, CleanupFunc, error) {
	opts := []cache.Option{cache.WithMaxEntries(cfg.MaxEntries), cache.WithLogger(log)}
	if cfg.Prefix != "" {
		opts = append(opts, cache.WithPrefix(cfg.Prefix))
	}
	if cfg.QueryTimeout > 0 {
		opts = append(opts, cache.WithQueryTimeout(cfg.QueryTimeout.Std()))
	}
	openRedis := func() (cache.Cache, CleanupFunc, error) {
		ropts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, errors.Wrap(err, "parse cache.redis_url")
		}
		rdb := redis.NewClient(ropts)
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			return nil, nil, errors.Wrap(err, "connect to redis")
		}
		return cache.NewRedis(rdb, opts...), func() { rdb.Close() }, nil
	}

	switch cfg.Backend {
	case "", BackendMemory:
		return cache.NewInMemory(opts...), func() {}, nil
	case BackendRedis:
		return openRedis()
	case BackendSQLite:
		c, err := cache.NewSQLite(ctx, cfg.SQLitePath, opts...)
		if err != nil {
			return nil, nil, err
		}
		return c, func() {}, nil
	case BackendComposite:
		var (
			l2      cache.Cache
			cleanup CleanupFunc
			err     error
		)
		if cfg.RedisURL != "" {
			l2, cleanup, err = openRedis()
		} else {
			l2, err = cache.NewSQLite(ctx, cfg.SQLitePath, opts...)
			cleanup = func() {}
		}
		if err != nil {
			return nil, nil, err
		}
		return cache.NewComposite(cache.NewInMemory(opts...), l2), cleanup, nil
	}
	return nil, nil, errors.Newf("unknown cache backend %q", cfg.Backend)
}

// NewClient builds a client from cfg: headers, timeout, upload limit, cache
// backend and tracing. The returned cleanup closes the cache, flushes spans
// and closes connections.
func NewClient(ctx context.Context, cfg *Config, log logger.Logger, opts ...graphql.Option) (*graphql.Client, CleanupFunc, error) {
	if cfg.Endpoint == "" {
		return nil, nil, errors.Mark(errors.New("endpoint is required"), graphql.ErrInvalidArgument)
	}
	c, closeCache, err := NewCache(ctx, cfg.Cache, log)
	if err != nil {
		return nil, nil, err
	}
	tp, shutdown, err := telemetry.New(ctx, cfg.Telemetry.OTLPURL, cfg.Telemetry.Token.Text(), cfg.Telemetry.ServiceName)
	if err != nil {
		c.CloseContext(ctx)
		closeCache()
		return nil, nil, err
	}
	base := []graphql.Option{
		graphql.WithLogger(log),
		graphql.WithCache(c),
		graphql.WithHeaders(cfg.HTTPHeaders()),
		graphql.WithTracerProvider(tp),
		graphql.WithMaxUploadSize(int64(cfg.MaxUploadSize)),
		graphql.WithMaxResponseSize(int64(cfg.MaxResponseSize)),
		graphql.WithDefaultOptions(graphql.RequestOptions{Timeout: cfg.Timeout.Std()}),
	}
	if cfg.RequestIDHeader != "" {
		base = append(base, graphql.WithRequestID(cfg.RequestIDHeader))
	}
	client, err := graphql.New(cfg.Endpoint, append(base, opts...)...)
	if err != nil {
		c.CloseContext(ctx)
		closeCache()
		shutdown()
		return nil, nil, err
	}
	return client, func() {
		if err := client.Close(context.Background()); err != nil {
			log.Warn("error closing cache: %s", err)
		}
		closeCache()
		shutdown()
	}, nil
}
