package cache

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"
)

// fifoSet stores ARGV[1]=ARGV[2] in hash KEYS[1], tracking insertion order in
// list KEYS[2] and evicting from the head while the hash holds ARGV[3] or more
// entries. Existing keys are overwritten in place. Returns the evicted keys.
var fifoSet = redis.NewScript(`
if redis.call('HEXISTS', KEYS[1], ARGV[1]) == 1 then
	redis.call('HSET', KEYS[1], ARGV[1], ARGV[2])
	return {}
end
local evicted = {}
local limit = tonumber(ARGV[3])
while redis.call('HLEN', KEYS[1]) >= limit do
	local oldest = redis.call('LPOP', KEYS[2])
	if not oldest then
		break
	end
	redis.call('HDEL', KEYS[1], oldest)
	table.insert(evicted, oldest)
end
redis.call('HSET', KEYS[1], ARGV[1], ARGV[2])
redis.call('RPUSH', KEYS[2], ARGV[1])
return evicted
`)

type redisCache struct {
	client  redis.UniversalClient
	entries string
	order   string
	cfg     config
}

var _ Cache = (*redisCache)(nil)

// NewRedis returns a FIFO Cache stored in Redis as a hash of msgpack values
// plus a list recording insertion order. Eviction runs inside a Lua script so
// concurrent writers sharing the same prefix stay within capacity.
// The caller owns the client lifecycle; Close is a no-op on the client.
func NewRedis(client redis.UniversalClient, opts ...Option) Cache {
	cfg := applyOptions(opts)
	return &redisCache{
		client:  client,
		entries: cfg.prefix + ":entries",
		order:   cfg.prefix + ":order",
		cfg:     cfg,
	}
}

func (c *redisCache) queryCtx(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, c.cfg.queryTimeout)
}

func (c *redisCache) GetContext(ctx context.Context, key string) (bool, any, error) {
	qctx, cancel := c.queryCtx(ctx)
	defer cancel()
	data, err := c.client.HGet(qctx, c.entries, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil, nil
	}
	if err != nil {
		return false, nil, errors.Wrapf(err, "cache: redis get %s", key)
	}
	return true, Encoded(data), nil
}

func (c *redisCache) SetContext(ctx context.Context, key string, val any) error {
	data, err := msgpack.Marshal(val)
	if err != nil {
		return errors.Wrap(err, "cache: failed to marshal value")
	}
	qctx, cancel := c.queryCtx(ctx)
	defer cancel()
	evicted, err := fifoSet.Run(qctx, c.client, []string{c.entries, c.order}, key, data, c.cfg.maxEntries).StringSlice()
	if err != nil && !errors.Is(err, redis.Nil) {
		return errors.Wrapf(err, "cache: redis set %s", key)
	}
	for _, k := range evicted {
		c.cfg.traceEvicted(k)
	}
	return nil
}

func (c *redisCache) ExpireContext(ctx context.Context, key string) (bool, error) {
	qctx, cancel := c.queryCtx(ctx)
	defer cancel()
	var removed *redis.IntCmd
	_, err := c.client.TxPipelined(qctx, func(pipe redis.Pipeliner) error {
		removed = pipe.HDel(qctx, c.entries, key)
		pipe.LRem(qctx, c.order, 0, key)
		return nil
	})
	if err != nil {
		return false, errors.Wrapf(err, "cache: redis expire %s", key)
	}
	return removed.Val() > 0, nil
}

func (c *redisCache) LenContext(ctx context.Context) (int, error) {
	qctx, cancel := c.queryCtx(ctx)
	defer cancel()
	n, err := c.client.HLen(qctx, c.entries).Result()
	if err != nil {
		return 0, errors.Wrap(err, "cache: redis len")
	}
	return int(n), nil
}

// CloseContext is a no-op, the caller owns the redis client lifecycle.
func (c *redisCache) CloseContext(_ context.Context) error {
	return nil
}

func (c *redisCache) logWriteFailed(key string, err error) {
	c.cfg.debugWriteFailed(key, err)
}
