//go:build integration

package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/imgpress/imgpress/internal/auth"
	"github.com/imgpress/imgpress/internal/testutil"
)

func TestIntegrationSession_PutAndResolve(t *testing.T) {
	ctx, c := newCacheTestEnv(t)

	token := mintToken(t)
	if err := c.PutSession(ctx, token, "alice", time.Hour); err != nil {
		t.Fatalf("PutSession failed: %v", err)
	}

	username, err := c.ResolveSession(ctx, token)
	if err != nil {
		t.Fatalf("ResolveSession failed: %v", err)
	}
	if username != "alice" {
		t.Errorf("username = %q, want %q", username, "alice")
	}
}

func TestIntegrationSession_ResolveUnknownToken(t *testing.T) {
	ctx, c := newCacheTestEnv(t)

	_, err := c.ResolveSession(ctx, mintToken(t))
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound, got: %v", err)
	}
}

func TestIntegrationSession_Expiry(t *testing.T) {
	ctx, c := newCacheTestEnv(t)

	token := mintToken(t)
	if err := c.PutSession(ctx, token, "alice", 100*time.Millisecond); err != nil {
		t.Fatalf("PutSession failed: %v", err)
	}

	time.Sleep(200 * time.Millisecond)

	_, err := c.ResolveSession(ctx, token)
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound after expiry, got: %v", err)
	}
}

func TestIntegrationSession_TTL(t *testing.T) {
	ctx, c := newCacheTestEnv(t)

	token := mintToken(t)
	if err := c.PutSession(ctx, token, "alice", time.Hour); err != nil {
		t.Fatalf("PutSession failed: %v", err)
	}

	ttl, err := c.SessionTTL(ctx, token)
	if err != nil {
		t.Fatalf("SessionTTL failed: %v", err)
	}
	if ttl <= 0 || ttl > time.Hour {
		t.Errorf("ttl = %v, want within (0, 1h]", ttl)
	}

	_, err = c.SessionTTL(ctx, mintToken(t))
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound for unknown token, got: %v", err)
	}
}

func mintToken(t *testing.T) string {
	t.Helper()
	token, err := auth.NewSessionToken()
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func newCacheTestEnv(t *testing.T) (context.Context, *Cache) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration tests in short mode")
	}

	ctx := context.Background()
	redisURL := testutil.RequireEnv(t, "REDIS_URL")

	c, err := New(ctx, redisURL)
	if err != nil {
		t.Fatalf("connect redis: %v", err)
	}
	t.Cleanup(func() {
		_ = c.Close()
	})

	if err := testutil.FlushRedis(ctx, c.Client()); err != nil {
		t.Fatalf("flush redis: %v", err)
	}

	return ctx, c
}
