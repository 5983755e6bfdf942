package legacybridge

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/frutaseca/cart-backend/pkg/logger"
	"github.com/frutaseca/cart-backend/pkg/redis"
)

// Rehydrator replaces a live session's state from the legacy cart key.
// Sessions not currently in memory are a no-op.
type Rehydrator interface {
	RehydrateFromLegacy(ctx context.Context, sessionID string) error
}

// notice is the payload the legacy storefront publishes after it writes
// the legacy cart key.
type notice struct {
	SessionID string `json:"session_id"`
}

// Bridge subscribes to the legacy cart-updated channel and re-hydrates
// the named session so edits made through the old storefront show up in
// live carts.
type Bridge struct {
	client     *redis.Client
	rehydrator Rehydrator
	logg       *logger.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New builds a bridge. Call Start to begin consuming.
func New(client *redis.Client, rehydrator Rehydrator, logg *logger.Logger) (*Bridge, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if rehydrator == nil {
		return nil, fmt.Errorf("rehydrator is required")
	}
	return &Bridge{client: client, rehydrator: rehydrator, logg: logg}, nil
}

// Start subscribes and consumes until Stop or context cancellation.
func (b *Bridge) Start(ctx context.Context) error {
	sub, err := b.client.Subscribe(ctx, redis.LegacyCartChannel)
	if err != nil {
		return fmt.Errorf("subscribing to legacy cart channel: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	b.mu.Lock()
	b.cancel = cancel
	b.done = done
	b.mu.Unlock()

	go func() {
		defer close(done)
		defer sub.Close()
		messages := sub.Channel()
		for {
			select {
			case <-runCtx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				b.handleMessage(runCtx, []byte(msg.Payload))
			}
		}
	}()
	return nil
}

// Stop halts consumption and waits for the loop to drain.
func (b *Bridge) Stop() {
	b.mu.Lock()
	cancel := b.cancel
	done := b.done
	b.cancel = nil
	b.done = nil
	b.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// handleMessage parses one published notice and re-hydrates the session.
// Malformed or empty notices are logged and dropped.
func (b *Bridge) handleMessage(ctx context.Context, payload []byte) {
	var n notice
	if err := json.Unmarshal(payload, &n); err != nil || n.SessionID == "" {
		if b.logg != nil {
			b.logg.Warn(ctx, "dropping malformed legacy cart notice")
		}
		return
	}
	ctx = b.withSession(ctx, n.SessionID)
	if err := b.rehydrator.RehydrateFromLegacy(ctx, n.SessionID); err != nil {
		if b.logg != nil {
			b.logg.Error(ctx, "legacy cart rehydration failed", err)
		}
		return
	}
	if b.logg != nil {
		b.logg.Debug(ctx, "legacy cart notice processed")
	}
}

func (b *Bridge) withSession(ctx context.Context, sessionID string) context.Context {
	if b.logg == nil {
		return ctx
	}
	return b.logg.WithSessionID(ctx, sessionID)
}
