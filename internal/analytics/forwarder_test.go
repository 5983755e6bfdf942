package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/frutaseca/cart-backend/internal/cartstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeResult struct {
	id  string
	err error
}

func (r *fakeResult) Get(context.Context) (string, error) { return r.id, r.err }

type fakePublisher struct {
	mu       sync.Mutex
	messages []*gcppubsub.Message
	result   publishResult
}

func (f *fakePublisher) Publish(_ context.Context, msg *gcppubsub.Message) publishResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, msg)
	return f.result
}

func (f *fakePublisher) published() []*gcppubsub.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*gcppubsub.Message(nil), f.messages...)
}

func TestForwardPublishesEnvelope(t *testing.T) {
	t.Parallel()

	pub := &fakePublisher{result: &fakeResult{id: "m1"}}
	forwarder := &Forwarder{pub: pub}

	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	forwarder.Forward(context.Background(), "sess-1", cartstore.Event{
		Type:      cartstore.EventAddToCart,
		Timestamp: at,
		Payload:   cartstore.AddToCartPayload{ProductID: 7, Quantity: 2},
	})
	forwarder.Flush()

	messages := pub.published()
	require.Len(t, messages, 1)
	assert.Equal(t, "addToCart", messages[0].Attributes["event"])
	assert.Equal(t, "sess-1", messages[0].Attributes["session_id"])

	var envelope Envelope
	require.NoError(t, json.Unmarshal(messages[0].Data, &envelope))
	assert.Equal(t, "addToCart", envelope.Event)
	assert.Equal(t, "sess-1", envelope.SessionID)
	assert.True(t, envelope.OccurredAt.Equal(at))
}

func TestForwardSwallowsPublishFailure(t *testing.T) {
	t.Parallel()

	pub := &fakePublisher{result: &fakeResult{err: errors.New("topic gone")}}
	forwarder := &Forwarder{pub: pub}

	forwarder.Forward(context.Background(), "sess-1", cartstore.Event{Type: cartstore.EventCartIdle})
	forwarder.Flush()

	// The failure is logged and dropped; the forwarder keeps accepting.
	forwarder.Forward(context.Background(), "sess-1", cartstore.Event{Type: cartstore.EventCartIdle})
	forwarder.Flush()
	assert.Len(t, pub.published(), 2)
}

func TestNilForwarderIsNoop(t *testing.T) {
	t.Parallel()

	var forwarder *Forwarder
	forwarder.Forward(context.Background(), "sess-1", cartstore.Event{Type: cartstore.EventCartIdle})
	forwarder.Flush()
}
