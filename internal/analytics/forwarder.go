package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/frutaseca/cart-backend/internal/cartstore"
	"github.com/frutaseca/cart-backend/pkg/logger"
)

const publishTimeout = 10 * time.Second

type publisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(context.Context) (string, error)
}

// Envelope is the wire shape of one forwarded cart event.
type Envelope struct {
	Event      string    `json:"event"`
	SessionID  string    `json:"session_id"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload,omitempty"`
}

// Forwarder ships cart events to the analytics topic. Publishing is
// asynchronous so dispatch latency never depends on Pub/Sub; failures
// are logged and dropped. A nil Forwarder is a no-op sink.
type Forwarder struct {
	pub  publisher
	logg *logger.Logger
	wg   sync.WaitGroup
}

// NewForwarder wraps the analytics topic publisher. Returns nil when the
// publisher is absent (analytics disabled); a nil Forwarder forwards
// nothing.
func NewForwarder(pub *gcppubsub.Publisher, logg *logger.Logger) *Forwarder {
	if pub == nil {
		return nil
	}
	return &Forwarder{pub: &gcpPublisher{Publisher: pub}, logg: logg}
}

// Forward serializes and publishes one session event.
func (f *Forwarder) Forward(ctx context.Context, sessionID string, evt cartstore.Event) {
	if f == nil {
		return
	}
	envelope := Envelope{
		Event:      string(evt.Type),
		SessionID:  sessionID,
		OccurredAt: evt.Timestamp,
		Payload:    evt.Payload,
	}
	data, err := json.Marshal(envelope)
	if err != nil {
		if f.logg != nil {
			f.logg.Error(ctx, "encoding analytics event", err)
		}
		return
	}

	result := f.pub.Publish(ctx, &gcppubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"event":      envelope.Event,
			"session_id": sessionID,
		},
	})
	if result == nil {
		return
	}

	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		waitCtx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if _, err := result.Get(waitCtx); err != nil && f.logg != nil {
			f.logg.Error(waitCtx, "publishing analytics event", err)
		}
	}()
}

// Flush waits for in-flight publishes. Call during shutdown.
func (f *Forwarder) Flush() {
	if f == nil {
		return
	}
	f.wg.Wait()
}

type gcpPublisher struct {
	*gcppubsub.Publisher
}

func (p *gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	if p == nil || p.Publisher == nil {
		return nil
	}
	return &gcpPublishResult{PublishResult: p.Publisher.Publish(ctx, msg)}
}

type gcpPublishResult struct {
	*gcppubsub.PublishResult
}

func (r *gcpPublishResult) Get(ctx context.Context) (string, error) {
	if r == nil || r.PublishResult == nil {
		return "", errors.New("publish result is nil")
	}
	return r.PublishResult.Get(ctx)
}
