package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisKeyLayout(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)
	c := NewRedis(client, WithPrefix("test"), WithMaxEntries(2))

	require.NoError(t, c.SetContext(ctx, "a", []byte("1")))
	require.NoError(t, c.SetContext(ctx, "b", []byte("2")))
	require.NoError(t, c.SetContext(ctx, "c", []byte("3")))

	assert.True(t, mr.Exists("test:entries"))
	order, err := mr.List("test:order")
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, order)
	keys, err := mr.HKeys("test:entries")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"b", "c"}, keys)
}

func TestRedisSharedAcrossInstances(t *testing.T) {
	ctx := context.Background()
	_, client := newTestRedis(t)
	writer := NewRedis(client, WithMaxEntries(2))
	reader := NewRedis(client, WithMaxEntries(2))

	require.NoError(t, writer.SetContext(ctx, "shared", []byte("body")))
	found, body, err := GetContext[[]byte](ctx, reader, "shared")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "body", string(body))
}

func TestRedisPrefixIsolation(t *testing.T) {
	ctx := context.Background()
	_, client := newTestRedis(t)
	one := NewRedis(client, WithPrefix("one"))
	two := NewRedis(client, WithPrefix("two"))

	require.NoError(t, one.SetContext(ctx, "key", "value"))
	found, _, err := two.GetContext(ctx, "key")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedisErrorsWhenServerGone(t *testing.T) {
	ctx := context.Background()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()
	c := NewRedis(client)
	mr.Close()

	_, _, err = c.GetContext(ctx, "key")
	assert.Error(t, err)
	assert.Error(t, c.SetContext(ctx, "key", "value"))
	_, err = c.LenContext(ctx)
	assert.Error(t, err)
	assert.NoError(t, c.CloseContext(ctx))
}
