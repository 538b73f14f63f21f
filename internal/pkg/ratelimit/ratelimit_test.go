package ratelimit

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newMiniRedis(t *testing.T) *redis.Client {
	t.Helper()
	s, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(s.Close)
	rdb := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return rdb
}

func TestRateLimiter_BurstThenDeny(t *testing.T) {
	rdb := newMiniRedis(t)
	limiter := NewRedisRateLimiter(rdb, 1, 3)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		allowed, err := limiter.Allow(ctx, "10.0.0.1")
		if err != nil {
			t.Fatalf("allow %d: %v", i, err)
		}
		if !allowed {
			t.Fatalf("expected request %d within burst to pass", i)
		}
	}

	allowed, err := limiter.Allow(ctx, "10.0.0.1")
	if err != nil {
		t.Fatalf("allow over burst: %v", err)
	}
	if allowed {
		t.Fatalf("expected request over burst to be denied")
	}
}

func TestRateLimiter_KeysAreIndependent(t *testing.T) {
	rdb := newMiniRedis(t)
	limiter := NewRedisRateLimiter(rdb, 1, 1)

	ctx := context.Background()
	if allowed, _ := limiter.Allow(ctx, "10.0.0.1"); !allowed {
		t.Fatalf("first caller should pass")
	}
	if allowed, _ := limiter.Allow(ctx, "10.0.0.1"); allowed {
		t.Fatalf("first caller should be throttled")
	}
	if allowed, _ := limiter.Allow(ctx, "10.0.0.2"); !allowed {
		t.Fatalf("second caller has its own bucket")
	}
}

func TestRateLimiter_DisabledConfigAllowsAll(t *testing.T) {
	ctx := context.Background()

	for _, limiter := range []*RateLimiter{
		nil,
		NewRedisRateLimiter(nil, 5, 10),
		NewRedisRateLimiter(newMiniRedis(t), 0, 10),
	} {
		allowed, err := limiter.Allow(ctx, "10.0.0.1")
		if err != nil {
			t.Fatalf("allow: %v", err)
		}
		if !allowed {
			t.Fatalf("expected disabled limiter to allow")
		}
	}
}
