package cartstore

// Action is the closed set of inputs a Store accepts. The variant types
// below are exhaustive; the reducer matches on concrete type, so an
// unknown action cannot exist without a compile-time change here.
type Action interface {
	Kind() string
}

// HydrateState replaces items (and any UI prefs present) wholesale. It is
// how persisted or legacy state enters the store and emits no domain
// events.
type HydrateState struct {
	Items []CartItem
	// UI is applied only when non-nil; a nil UI retains prior values.
	UI *UIPrefs
}

// AddItem increments the quantity for a product, inserting it on first add.
type AddItem struct {
	ProductID int64
	Quantity  int
}

// RemoveItem deletes a product from the cart. Absent ids are a silent no-op.
type RemoveItem struct {
	ProductID int64
}

// UpdateQuantity sets a product's quantity directly. A quantity <= 0
// behaves as RemoveItem.
type UpdateQuantity struct {
	ProductID int64
	Quantity  int
}

// SetReducedMotion records the reduced-motion preference.
type SetReducedMotion struct {
	Enabled bool
}

// SetSound records the sound-effects preference.
type SetSound struct {
	Enabled bool
}

// SetHaptics records the haptics preference.
type SetHaptics struct {
	Enabled bool
}

// SetIdle is dispatched by the idle detector, never by user actions.
type SetIdle struct {
	Idle bool
}

// StartAddBurst marks the beginning of a rapid-add cluster. Idempotent
// while a burst is already active.
type StartAddBurst struct{}

// EndAddBurst marks the end of a rapid-add cluster.
type EndAddBurst struct{}

func (HydrateState) Kind() string     { return "HYDRATE_STATE" }
func (AddItem) Kind() string          { return "ADD_ITEM" }
func (RemoveItem) Kind() string       { return "REMOVE_ITEM" }
func (UpdateQuantity) Kind() string   { return "UPDATE_QUANTITY" }
func (SetReducedMotion) Kind() string { return "SET_REDUCED_MOTION" }
func (SetSound) Kind() string         { return "SET_SOUND" }
func (SetHaptics) Kind() string       { return "SET_HAPTICS" }
func (SetIdle) Kind() string          { return "SET_IDLE" }
func (StartAddBurst) Kind() string    { return "START_ADD_BURST" }
func (EndAddBurst) Kind() string      { return "END_ADD_BURST" }
