package cache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/akolanti/KnowledgeAPI/internal/domain/answerModel"
)

type memoryEntry struct {
	key       string
	answer    answerModel.StructuredAnswer
	createdAt time.Time
}

// MemoryCache is an in-process LRU with a TTL checked on read. maxEntries of 0
// leaves it unbounded.
type MemoryCache struct {
	mu         sync.Mutex
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
	order      *list.List
	items      map[string]*list.Element
}

type MemoryOption func(*MemoryCache)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) MemoryOption {
	return func(c *MemoryCache) { c.now = now }
}

func NewMemoryCache(ttl time.Duration, maxEntries int, opts ...MemoryOption) *MemoryCache {
	c := &MemoryCache{
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
		order:      list.New(),
		items:      make(map[string]*list.Element),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *MemoryCache) Get(ctx context.Context, key string) (answerModel.StructuredAnswer, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return answerModel.StructuredAnswer{}, false
	}
	e := el.Value.(*memoryEntry)
	if c.ttl > 0 && c.now().Sub(e.createdAt) >= c.ttl {
		c.order.Remove(el)
		delete(c.items, key)
		return answerModel.StructuredAnswer{}, false
	}
	c.order.MoveToFront(el)
	return e.answer, true
}

func (c *MemoryCache) Set(ctx context.Context, key string, answer answerModel.StructuredAnswer) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		e := el.Value.(*memoryEntry)
		e.answer = answer
		e.createdAt = c.now()
		c.order.MoveToFront(el)
		return
	}

	c.items[key] = c.order.PushFront(&memoryEntry{key: key, answer: answer, createdAt: c.now()})
	if c.maxEntries > 0 && c.order.Len() > c.maxEntries {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.items, oldest.Value.(*memoryEntry).key)
	}
}

func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
