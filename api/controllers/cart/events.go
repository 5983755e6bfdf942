package cart

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/frutaseca/cart-backend/api/responses"
	"github.com/frutaseca/cart-backend/internal/cartstore"
	pkgerrors "github.com/frutaseca/cart-backend/pkg/errors"
	"github.com/frutaseca/cart-backend/pkg/logger"
)

// eventBuffer bounds the per-client queue; slow consumers drop events
// rather than stall dispatch.
const eventBuffer = 32

type sseEvent struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload,omitempty"`
}

// Events streams the session's domain events over SSE until the client
// disconnects.
func Events(sessions SessionService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeInternal, "streaming unsupported"))
			return
		}

		sess, err := sessions.Get(r.Context(), chi.URLParam(r, "sessionID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		events := make(chan cartstore.Event, eventBuffer)
		unsub := sess.Store.OnAnyEvent(func(evt cartstore.Event) {
			select {
			case events <- evt:
			default:
			}
		})
		defer unsub()

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		for {
			select {
			case <-r.Context().Done():
				return
			case evt := <-events:
				data, err := json.Marshal(sseEvent{
					Type:      string(evt.Type),
					Timestamp: evt.Timestamp,
					Payload:   evt.Payload,
				})
				if err != nil {
					continue
				}
				fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Type, data)
				flusher.Flush()
			}
		}
	}
}
