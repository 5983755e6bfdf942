package cartpersist

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/frutaseca/cart-backend/internal/cartstore"
)

// SnapshotVersion is the current wire format. Bump when the shape changes
// and add a migration path in DecodeSnapshot.
const SnapshotVersion = 1

// Snapshot is the persisted projection of cart state: items plus UI
// prefs. Derived flags (idle, burst) are deliberately excluded.
type Snapshot struct {
	Version int                  `json:"version"`
	Items   []cartstore.CartItem `json:"items"`
	UI      cartstore.UIPrefs    `json:"ui"`
}

// LegacyItem is one entry of the pre-namespacing flat array format. It is
// read for migration and never written back.
type LegacyItem struct {
	ID       int64 `json:"id"`
	Quantity int   `json:"quantity"`
}

// FromState projects store state into a snapshot. Items are ordered by
// first-add time (id as tiebreaker) so display order survives the round
// trip.
func FromState(st cartstore.State) Snapshot {
	items := make([]cartstore.CartItem, 0, len(st.Items))
	for _, item := range st.Items {
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].AddedAt.Equal(items[j].AddedAt) {
			return items[i].AddedAt.Before(items[j].AddedAt)
		}
		return items[i].ID < items[j].ID
	})
	return Snapshot{Version: SnapshotVersion, Items: items, UI: st.UI}
}

// Encode serializes a snapshot.
func (s Snapshot) Encode() ([]byte, error) {
	return json.Marshal(s)
}

// HydrateAction converts the snapshot into the store's hydrate input.
func (s Snapshot) HydrateAction() cartstore.HydrateState {
	ui := s.UI
	return cartstore.HydrateState{Items: s.Items, UI: &ui}
}

// DecodeSnapshot parses the current-format snapshot, rejecting unknown
// versions.
func DecodeSnapshot(data []byte) (*Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parsing cart snapshot: %w", err)
	}
	if snap.Version != SnapshotVersion {
		return nil, fmt.Errorf("unsupported cart snapshot version %d", snap.Version)
	}
	return &snap, nil
}

// DecodeLegacy parses the legacy flat array format.
func DecodeLegacy(data []byte) ([]LegacyItem, error) {
	var items []LegacyItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("parsing legacy cart: %w", err)
	}
	return items, nil
}

// LegacyHydrateAction normalizes legacy entries into the current shape:
// non-positive quantities are dropped, duplicate ids are summed, and
// AddedAt is stamped with now since the legacy format had no timestamps.
// UI prefs are left nil so hydration keeps whatever the store holds.
func LegacyHydrateAction(legacy []LegacyItem, now time.Time) cartstore.HydrateState {
	merged := map[int64]int{}
	order := []int64{}
	for _, item := range legacy {
		if item.ID <= 0 || item.Quantity <= 0 {
			continue
		}
		if _, seen := merged[item.ID]; !seen {
			order = append(order, item.ID)
		}
		merged[item.ID] += item.Quantity
	}
	items := make([]cartstore.CartItem, 0, len(order))
	for _, id := range order {
		items = append(items, cartstore.CartItem{ID: id, Quantity: merged[id], AddedAt: now})
	}
	return cartstore.HydrateState{Items: items}
}
