package redis

import (
	"context"
	"testing"

	"github.com/frutaseca/cart-backend/pkg/config"
)

func TestCartKeyHelpers(t *testing.T) {
	t.Parallel()

	c := &Client{}

	if got := c.CartSnapshotKey("abc"); got != "fs:cart:v1:abc" {
		t.Fatalf("unexpected snapshot key: %s", got)
	}
	// Legacy keys intentionally skip the namespace.
	if got := c.LegacyCartKey("abc"); got != "cartItems:abc" {
		t.Fatalf("unexpected legacy key: %s", got)
	}
}

func TestUninitializedClientErrors(t *testing.T) {
	t.Parallel()

	c := &Client{}
	ctx := context.Background()

	if err := c.Set(ctx, "k", "v", 0); err == nil {
		t.Fatal("expected error from uninitialized Set")
	}
	if _, err := c.Get(ctx, "k"); err == nil {
		t.Fatal("expected error from uninitialized Get")
	}
	if err := c.Ping(ctx); err == nil {
		t.Fatal("expected error from uninitialized Ping")
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close on empty client should be a no-op, got %v", err)
	}
}

func TestOptionsFromConfigPrefersURL(t *testing.T) {
	t.Parallel()

	opts, err := optionsFromConfig(config.RedisConfig{
		URL:      "redis://localhost:6379/2",
		Address:  "ignored:1234",
		PoolSize: 7,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.Addr != "localhost:6379" {
		t.Fatalf("unexpected addr: %s", opts.Addr)
	}
	if opts.DB != 2 {
		t.Fatalf("unexpected db: %d", opts.DB)
	}
	if opts.PoolSize != 7 {
		t.Fatalf("pool size should fall back to config, got %d", opts.PoolSize)
	}
}

func TestOptionsFromConfigRequiresTarget(t *testing.T) {
	t.Parallel()

	if _, err := optionsFromConfig(config.RedisConfig{}); err == nil {
		t.Fatal("expected error when neither url nor address set")
	}
}
