package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/akolanti/KnowledgeAPI/internal/config"
	"github.com/akolanti/KnowledgeAPI/internal/data/redisStore"
	"github.com/akolanti/KnowledgeAPI/internal/domain/answerModel"
	"github.com/akolanti/KnowledgeAPI/pkg/logger_i"
)

var logger = logger_i.NewLogger("Response Cache")

type redisEntry struct {
	Answer    answerModel.StructuredAnswer `json:"answer"`
	CreatedAt time.Time                    `json:"created_at"`
}

// RedisCache keeps answers in Redis as JSON. The TTL is enforced against
// created_at on read; the Redis expiry only reclaims keys nobody reads again.
type RedisCache struct {
	store *redisStore.Store
	ttl   time.Duration
	now   func() time.Time
}

func NewRedisCache(store *redisStore.Store, ttl time.Duration) *RedisCache {
	return &RedisCache{store: store, ttl: ttl, now: time.Now}
}

func (c *RedisCache) key(k string) string {
	return config.CacheKeyPrefix + k
}

func (c *RedisCache) Get(ctx context.Context, key string) (answerModel.StructuredAnswer, bool) {
	loggr := logger.WithTrace(ctx)

	raw, err := c.store.Get(ctx, c.key(key))
	if err != nil {
		if !c.store.IsNil(err) {
			loggr.Warn("Cache read failed", "error", err)
		}
		return answerModel.StructuredAnswer{}, false
	}

	var entry redisEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		loggr.Warn("Dropping undecodable cache entry", "error", err)
		_ = c.store.Del(ctx, c.key(key))
		return answerModel.StructuredAnswer{}, false
	}

	if c.ttl > 0 && c.now().Sub(entry.CreatedAt) >= c.ttl {
		_ = c.store.Del(ctx, c.key(key))
		return answerModel.StructuredAnswer{}, false
	}
	return entry.Answer, true
}

func (c *RedisCache) Set(ctx context.Context, key string, answer answerModel.StructuredAnswer) {
	data, err := json.Marshal(redisEntry{Answer: answer, CreatedAt: c.now().UTC()})
	if err != nil {
		logger.WithTrace(ctx).Error("Could not encode answer for cache", "error", err)
		return
	}
	// the backstop expiry is a little longer than the ttl so reads decide expiry
	var expiry time.Duration
	if c.ttl > 0 {
		expiry = c.ttl + time.Minute
	}
	if err := c.store.Set(ctx, c.key(key), data, expiry); err != nil {
		logger.WithTrace(ctx).Warn("Cache write failed", "error", err)
	}
}
