package cart

import (
	"sort"
	"time"

	"github.com/frutaseca/cart-backend/internal/cartstore"
)

type itemResponse struct {
	ProductID int64     `json:"product_id"`
	Quantity  int       `json:"quantity"`
	AddedAt   time.Time `json:"added_at"`
}

type uiResponse struct {
	ReducedMotion  bool `json:"reduced_motion"`
	SoundEnabled   bool `json:"sound_enabled"`
	HapticsEnabled bool `json:"haptics_enabled"`
}

type cartResponse struct {
	SessionID        string         `json:"session_id"`
	Items            []itemResponse `json:"items"`
	UI               uiResponse     `json:"ui"`
	TotalQuantity    int            `json:"total_quantity"`
	IsIdle           bool           `json:"is_idle"`
	IsAddBurstActive bool           `json:"is_add_burst_active"`
}

func newCartResponse(sessionID string, st cartstore.State) cartResponse {
	items := make([]itemResponse, 0, len(st.Items))
	for _, item := range st.Items {
		items = append(items, itemResponse{
			ProductID: item.ID,
			Quantity:  item.Quantity,
			AddedAt:   item.AddedAt,
		})
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].AddedAt.Equal(items[j].AddedAt) {
			return items[i].AddedAt.Before(items[j].AddedAt)
		}
		return items[i].ProductID < items[j].ProductID
	})

	return cartResponse{
		SessionID: sessionID,
		Items:     items,
		UI: uiResponse{
			ReducedMotion:  st.UI.ReducedMotion,
			SoundEnabled:   st.UI.SoundEnabled,
			HapticsEnabled: st.UI.HapticsEnabled,
		},
		TotalQuantity:    st.TotalQuantity(),
		IsIdle:           st.IsIdle,
		IsAddBurstActive: st.IsAddBurstActive,
	}
}
