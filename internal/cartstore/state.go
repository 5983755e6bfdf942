package cartstore

import "time"

// CartItem is a single cart line, keyed by product id. AddedAt is set on
// first insertion only and survives quantity changes.
type CartItem struct {
	ID       int64     `json:"id"`
	Quantity int       `json:"quantity"`
	AddedAt  time.Time `json:"added_at"`
}

// UIPrefs are the persisted presentation preferences.
type UIPrefs struct {
	ReducedMotion  bool `json:"reduced_motion"`
	SoundEnabled   bool `json:"sound_enabled"`
	HapticsEnabled bool `json:"haptics_enabled"`
}

// State is the aggregate owned by a Store. Items never contains an entry
// with quantity <= 0.
type State struct {
	Items map[int64]CartItem `json:"items"`
	UI    UIPrefs            `json:"ui"`

	// Derived, session-local flags. Not persisted.
	IsIdle           bool `json:"is_idle"`
	IsAddBurstActive bool `json:"is_add_burst_active"`
}

func newState() State {
	return State{
		Items: map[int64]CartItem{},
		UI: UIPrefs{
			SoundEnabled:   true,
			HapticsEnabled: true,
		},
	}
}

// TotalQuantity sums quantities across all items.
func (s State) TotalQuantity() int {
	total := 0
	for _, item := range s.Items {
		total += item.Quantity
	}
	return total
}

func (s State) clone() State {
	out := s
	out.Items = make(map[int64]CartItem, len(s.Items))
	for id, item := range s.Items {
		out.Items[id] = item
	}
	return out
}
