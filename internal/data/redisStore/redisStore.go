package redisStore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/akolanti/KnowledgeAPI/internal/config"
	"github.com/akolanti/KnowledgeAPI/pkg/logger_i"
	"github.com/redis/go-redis/v9"
)

var (
	instances = make(map[int]*Store)
	mu        sync.RWMutex
	logger    = logger_i.NewLogger("Redis Store")
	once      sync.Once
)

type Store struct {
	client *redis.Client
	DB     int
}

// GetRedisStore returns the shared store for cfg.DB, connecting on first use. All
// stores are closed when ctx is cancelled.
func GetRedisStore(ctx context.Context, cfg config.RedisSettings) (*Store, error) {
	mu.RLock()
	instance, exists := instances[cfg.DB]
	mu.RUnlock()

	if exists {
		return instance, nil
	}

	mu.Lock()
	defer mu.Unlock()

	if instance, exists = instances[cfg.DB]; exists {
		return instance, nil
	}
	return createNewStore(ctx, cfg)
}

func closeRedisStores(ctx context.Context) {
	<-ctx.Done()
	logger.Info("Closing Redis Stores")
	mu.Lock()
	defer mu.Unlock()
	for db, store := range instances {
		if err := store.client.Close(); err != nil {
			logger.Error("Error closing redis client", "db", db, "error", err)
		}
		delete(instances, db)
	}
	logger.Info("Redis Store Closed successfully")
}

func createNewStore(ctx context.Context, cfg config.RedisSettings) (*Store, error) {
	addr := cfg.Addr
	if addr == "" {
		addr = config.RedisAddr
	}
	newClient := redis.NewClient(&redis.Options{
		Addr:                  addr,
		Password:              cfg.Password,
		DB:                    cfg.DB,
		ContextTimeoutEnabled: true,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := newClient.Ping(pingCtx).Err(); err != nil {
		_ = newClient.Close()
		return nil, fmt.Errorf("redis at %s is offline: %w", addr, err)
	}

	logger.Info("Redis store init successfully", "addr", addr, "db", cfg.DB)

	newStore := &Store{client: newClient, DB: cfg.DB}
	instances[cfg.DB] = newStore
	once.Do(func() {
		go closeRedisStores(ctx)
	})
	return newStore, nil
}

// NewFromClient wraps an existing client without registering it.
func NewFromClient(client *redis.Client) *Store {
	return &Store{client: client}
}
