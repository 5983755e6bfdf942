package cartstore

import "time"

// EventType identifies the domain events a Store emits. Events are
// ephemeral notifications for analytics and UI side effects; they are
// never persisted.
type EventType string

const (
	EventAddToCart       EventType = "addToCart"
	EventRemoveFromCart  EventType = "removeFromCart"
	EventUpdateQuantity  EventType = "updateQuantity"
	EventCartIdle        EventType = "cartIdle"
	EventCheckoutIntent  EventType = "checkoutIntent"
	EventAddBurstStarted EventType = "addBurstStarted"
	EventAddBurstEnded   EventType = "addBurstEnded"
	EventCartToggled     EventType = "cartToggled"
	EventHoverIntent     EventType = "hoverIntent"
)

// Event is a domain event with its typed payload.
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload,omitempty"`
}

// AddToCartPayload accompanies every addToCart event.
type AddToCartPayload struct {
	ProductID     int64 `json:"product_id"`
	Quantity      int   `json:"quantity"`
	ItemQuantity  int   `json:"item_quantity"`
	TotalQuantity int   `json:"total_quantity"`
}

// RemoveFromCartPayload carries the cart-wide quantity left after removal.
type RemoveFromCartPayload struct {
	ProductID         int64 `json:"product_id"`
	RemainingQuantity int   `json:"remaining_quantity"`
}

// UpdateQuantityPayload carries the old and new quantity for one item.
type UpdateQuantityPayload struct {
	ProductID   int64 `json:"product_id"`
	OldQuantity int   `json:"old_quantity"`
	NewQuantity int   `json:"new_quantity"`
}

// CartIdlePayload accompanies cartIdle.
type CartIdlePayload struct {
	Idle bool `json:"idle"`
}

// CheckoutIntentPayload accompanies checkoutIntent.
type CheckoutIntentPayload struct {
	LineCount int    `json:"line_count"`
	Total     string `json:"total"`
	Currency  string `json:"currency"`
}

// CartToggledPayload accompanies cartToggled.
type CartToggledPayload struct {
	Open bool `json:"open"`
}

// HoverIntentPayload accompanies hoverIntent.
type HoverIntentPayload struct {
	ProductID int64 `json:"product_id"`
}

// BurstPayload accompanies addBurstStarted and addBurstEnded.
type BurstPayload struct {
	WindowCount int `json:"window_count,omitempty"`
}
