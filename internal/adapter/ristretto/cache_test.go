package ristretto_test

import (
	"context"
	"testing"
	"time"

	"github.com/engram-ai/engram/internal/adapter/ristretto"
	"github.com/engram-ai/engram/internal/port/cache/cachetest"
)

func newTestCache(t *testing.T) *ristretto.Cache {
	t.Helper()
	c, err := ristretto.New(1 << 20)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func TestCacheCompliance(t *testing.T) {
	cachetest.RunComplianceTests(t, newTestCache(t))
}

func TestCacheExpiresByTTL(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	if err := c.Set(ctx, "short-lived", []byte("v"), 10*time.Millisecond); err != nil {
		t.Fatal(err)
	}
	time.Sleep(100 * time.Millisecond)

	// ristretto processes expiry asynchronously via its buffered ring;
	// give it a moment to converge before asserting the miss.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, found, _ := c.Get(ctx, "short-lived"); !found {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("expected key to expire")
}
