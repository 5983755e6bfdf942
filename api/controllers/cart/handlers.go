package cart

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/frutaseca/cart-backend/api/responses"
	"github.com/frutaseca/cart-backend/api/validators"
	"github.com/frutaseca/cart-backend/internal/cartsession"
	"github.com/frutaseca/cart-backend/internal/cartstore"
	"github.com/frutaseca/cart-backend/internal/checkout"
	pkgerrors "github.com/frutaseca/cart-backend/pkg/errors"
	"github.com/frutaseca/cart-backend/pkg/logger"
)

// SessionService is the session lifecycle surface the handlers consume.
type SessionService interface {
	Create(ctx context.Context) (*cartsession.Session, error)
	Get(ctx context.Context, sessionID string) (*cartsession.Session, error)
	Delete(ctx context.Context, sessionID string) error
}

// CheckoutService prices a cart and builds the WhatsApp hand-off.
type CheckoutService interface {
	Checkout(ctx context.Context, store *cartstore.Store) (*checkout.Summary, error)
}

// SessionCreate opens a new empty cart session.
func SessionCreate(sessions SessionService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := sessions.Create(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newCartResponse(sess.ID, sess.Store.State()))
	}
}

// SessionGet returns the current cart state.
func SessionGet(sessions SessionService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := sessions.Get(r.Context(), chi.URLParam(r, "sessionID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(sess.ID, sess.Store.State()))
	}
}

// SessionDelete tears the session down.
func SessionDelete(sessions SessionService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := sessions.Delete(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

// ItemAdd adds quantity of a product to the cart.
func ItemAdd(sessions SessionService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload addItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		sess, err := sessions.Get(r.Context(), chi.URLParam(r, "sessionID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		sess.Interaction()
		sess.Store.Dispatch(cartstore.AddItem{ProductID: payload.ProductID, Quantity: payload.Quantity})
		responses.WriteSuccess(w, newCartResponse(sess.ID, sess.Store.State()))
	}
}

// ItemUpdate sets an item's quantity; zero removes it.
func ItemUpdate(sessions SessionService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := parseProductID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload updateQuantityRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		sess, err := sessions.Get(r.Context(), chi.URLParam(r, "sessionID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		sess.Interaction()
		sess.Store.Dispatch(cartstore.UpdateQuantity{ProductID: productID, Quantity: *payload.Quantity})
		responses.WriteSuccess(w, newCartResponse(sess.ID, sess.Store.State()))
	}
}

// ItemRemove drops an item from the cart.
func ItemRemove(sessions SessionService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := parseProductID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		sess, err := sessions.Get(r.Context(), chi.URLParam(r, "sessionID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		sess.Interaction()
		sess.Store.Dispatch(cartstore.RemoveItem{ProductID: productID})
		responses.WriteSuccess(w, newCartResponse(sess.ID, sess.Store.State()))
	}
}

// PrefsUpdate applies the provided UI preference changes.
func PrefsUpdate(sessions SessionService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload prefsRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		sess, err := sessions.Get(r.Context(), chi.URLParam(r, "sessionID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		sess.Interaction()
		if payload.ReducedMotion != nil {
			sess.Store.Dispatch(cartstore.SetReducedMotion{Enabled: *payload.ReducedMotion})
		}
		if payload.SoundEnabled != nil {
			sess.Store.Dispatch(cartstore.SetSound{Enabled: *payload.SoundEnabled})
		}
		if payload.HapticsEnabled != nil {
			sess.Store.Dispatch(cartstore.SetHaptics{Enabled: *payload.HapticsEnabled})
		}
		responses.WriteSuccess(w, newCartResponse(sess.ID, sess.Store.State()))
	}
}

// Interaction reports user activity, resetting the idle detector.
func Interaction(sessions SessionService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := sessions.Get(r.Context(), chi.URLParam(r, "sessionID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		sess.Interaction()
		responses.WriteSuccess(w, map[string]string{"status": "ok"})
	}
}

// SignalToggle records the cart drawer opening or closing.
func SignalToggle(sessions SessionService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload toggleRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		sess, err := sessions.Get(r.Context(), chi.URLParam(r, "sessionID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		sess.Interaction()
		sess.Store.Emit(cartstore.EventCartToggled, cartstore.CartToggledPayload{Open: *payload.Open})
		responses.WriteSuccess(w, map[string]string{"status": "ok"})
	}
}

// SignalHover records hover intent over a product.
func SignalHover(sessions SessionService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload hoverRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		sess, err := sessions.Get(r.Context(), chi.URLParam(r, "sessionID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		sess.Interaction()
		sess.Store.Emit(cartstore.EventHoverIntent, cartstore.HoverIntentPayload{ProductID: payload.ProductID})
		responses.WriteSuccess(w, map[string]string{"status": "ok"})
	}
}

// Checkout prices the cart and returns the WhatsApp hand-off.
func Checkout(sessions SessionService, svc CheckoutService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := sessions.Get(r.Context(), chi.URLParam(r, "sessionID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		sess.Interaction()
		summary, err := svc.Checkout(r.Context(), sess.Store)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}

func parseProductID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "productID")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "invalid product id")
	}
	return id, nil
}
