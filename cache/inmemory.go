package cache

import (
	"container/list"
	"context"
	"sync"
)

type inMemoryEntry struct {
	key string
	val any
}

type inMemoryCache struct {
	mutex sync.Mutex
	items map[string]*list.Element
	order *list.List
	cfg   config
}

var _ Cache = (*inMemoryCache)(nil)

// NewInMemory returns a FIFO Cache held in process memory. Values are stored
// as-is, so callers should store immutable values.
func NewInMemory(opts ...Option) Cache {
	return &inMemoryCache{
		items: make(map[string]*list.Element),
		order: list.New(),
		cfg:   applyOptions(opts),
	}
}

func (c *inMemoryCache) GetContext(_ context.Context, key string) (bool, any, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	el, ok := c.items[key]
	if !ok {
		return false, nil, nil
	}
	return true, el.Value.(*inMemoryEntry).val, nil
}

func (c *inMemoryCache) SetContext(_ context.Context, key string, val any) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if el, ok := c.items[key]; ok {
		el.Value.(*inMemoryEntry).val = val
		return nil
	}
	for c.order.Len() >= c.cfg.maxEntries {
		oldest := c.order.Front()
		evicted := c.order.Remove(oldest).(*inMemoryEntry)
		delete(c.items, evicted.key)
		c.cfg.traceEvicted(evicted.key)
	}
	c.items[key] = c.order.PushBack(&inMemoryEntry{key: key, val: val})
	return nil
}

func (c *inMemoryCache) ExpireContext(_ context.Context, key string) (bool, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	el, ok := c.items[key]
	if ok {
		c.order.Remove(el)
		delete(c.items, key)
	}
	return ok, nil
}

func (c *inMemoryCache) LenContext(_ context.Context) (int, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.order.Len(), nil
}

func (c *inMemoryCache) CloseContext(_ context.Context) error {
	return nil
}

func (c *inMemoryCache) logWriteFailed(key string, err error) {
	c.cfg.debugWriteFailed(key, err)
}
