package vcache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func setupTestCache(t *testing.T, ttl time.Duration) (*RedisCache, *miniredis.Miniredis) {
	s := miniredis.RunT(t)
	cache, err := NewRedisCache("redis://"+s.Addr(), ttl)
	if err != nil {
		t.Fatalf("failed to create redis cache: %v", err)
	}
	return cache, s
}

func TestSetAndGetVerdict(t *testing.T) {
	cache, s := setupTestCache(t, time.Minute)
	defer cache.Close()
	defer s.Close()

	ctx := context.Background()
	cache.SetVerdict(ctx, "roadmap", "frontend-basics", true)

	public, ok := cache.GetVerdict(ctx, "roadmap", "frontend-basics")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if !public {
		t.Fatal("expected public verdict")
	}

	if _, ok := cache.GetVerdict(ctx, "roadmap", "never-cached"); ok {
		t.Fatal("expected cache miss for unknown key")
	}
}

func TestVerdictExpiresAfterTTL(t *testing.T) {
	cache, s := setupTestCache(t, time.Second)
	defer cache.Close()
	defer s.Close()

	ctx := context.Background()
	cache.SetVerdict(ctx, "milestone", "m1", false)

	if _, ok := cache.GetVerdict(ctx, "milestone", "m1"); !ok {
		t.Fatal("expected cache hit before expiry")
	}

	s.FastForward(2 * time.Second)

	if _, ok := cache.GetVerdict(ctx, "milestone", "m1"); ok {
		t.Fatal("expected cache miss after TTL expiry")
	}
}

func TestInvalidateAllDropsEveryVerdict(t *testing.T) {
	cache, s := setupTestCache(t, time.Minute)
	defer cache.Close()
	defer s.Close()

	ctx := context.Background()
	cache.SetVerdict(ctx, "roadmap", "frontend-basics", true)
	cache.SetVerdict(ctx, "milestone", "m1", true)
	cache.SetVerdict(ctx, "objective", "m1:0", false)

	if err := cache.InvalidateAll(ctx); err != nil {
		t.Fatalf("InvalidateAll() error = %v", err)
	}

	for _, key := range [][2]string{{"roadmap", "frontend-basics"}, {"milestone", "m1"}, {"objective", "m1:0"}} {
		if _, ok := cache.GetVerdict(ctx, key[0], key[1]); ok {
			t.Fatalf("expected %s:%s to be invalidated", key[0], key[1])
		}
	}
}

func TestInvalidateAllLeavesForeignKeysAlone(t *testing.T) {
	cache, s := setupTestCache(t, time.Minute)
	defer cache.Close()
	defer s.Close()

	ctx := context.Background()
	if err := s.Set("other:key", "value"); err != nil {
		t.Fatalf("seed foreign key: %v", err)
	}
	cache.SetVerdict(ctx, "roadmap", "frontend-basics", true)

	if err := cache.InvalidateAll(ctx); err != nil {
		t.Fatalf("InvalidateAll() error = %v", err)
	}

	if !s.Exists("other:key") {
		t.Fatal("expected non-verdict keys to survive invalidation")
	}
}
