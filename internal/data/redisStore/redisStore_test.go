package redisStore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/akolanti/KnowledgeAPI/internal/config"
)

func TestStore_BasicOps(t *testing.T) {
	mr := miniredis.RunT(t)
	s := NewFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	ctx := context.Background()

	if err := s.Set(ctx, "k", "v", time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := s.Get(ctx, "k")
	if err != nil || got != "v" {
		t.Fatalf("expected v, got %q (%v)", got, err)
	}
	if ttl := mr.TTL("k"); ttl != time.Minute {
		t.Errorf("expected a one minute expiry, got %v", ttl)
	}

	if err := s.Del(ctx, "k"); err != nil {
		t.Fatalf("del: %v", err)
	}
	_, err = s.Get(ctx, "k")
	if !s.IsNil(err) {
		t.Errorf("expected redis.Nil after delete, got %v", err)
	}
}

func TestGetRedisStore_SharesInstancePerDB(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.RedisSettings{Addr: mr.Addr(), DB: 3}
	a, err := GetRedisStore(ctx, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := GetRedisStore(ctx, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a != b {
		t.Error("expected the same store for the same db")
	}
}

func TestGetRedisStore_Offline(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := GetRedisStore(context.Background(), config.RedisSettings{Addr: addr, DB: 7})
	if err == nil {
		t.Fatal("expected error when redis is unreachable")
	}
}
