package checkout

import (
	"context"
	"strings"
	"testing"

	"github.com/frutaseca/cart-backend/internal/cartstore"
	"github.com/frutaseca/cart-backend/internal/catalog"
	pkgerrors "github.com/frutaseca/cart-backend/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProducts struct {
	products map[int64]catalog.Product
	err      error
}

func (s *stubProducts) GetByIDs(_ context.Context, ids []int64) (map[int64]catalog.Product, error) {
	if s.err != nil {
		return nil, s.err
	}
	result := map[int64]catalog.Product{}
	for _, id := range ids {
		if product, ok := s.products[id]; ok {
			result[id] = product
		}
	}
	return result, nil
}

func mango() catalog.Product {
	return catalog.Product{
		ID: 1, SKU: "MANGO-100", Name: "Mango deshidratado 100g",
		Price: decimal.RequireFromString("85.00"), Currency: "MXN", IsActive: true,
	}
}

func pina() catalog.Product {
	return catalog.Product{
		ID: 2, SKU: "PINA-100", Name: "Pina deshidratada 100g",
		Price: decimal.RequireFromString("72.50"), Currency: "MXN", IsActive: true,
	}
}

func newServiceWithCart(t *testing.T, products map[int64]catalog.Product, add ...cartstore.AddItem) (*Service, *cartstore.Store) {
	t.Helper()

	svc, err := NewService(&stubProducts{products: products}, "5215512345678")
	require.NoError(t, err)
	store := cartstore.New(cartstore.Options{})
	for _, action := range add {
		store.Dispatch(action)
	}
	return svc, store
}

func TestCheckoutPricesCart(t *testing.T) {
	t.Parallel()

	svc, store := newServiceWithCart(t,
		map[int64]catalog.Product{1: mango(), 2: pina()},
		cartstore.AddItem{ProductID: 1, Quantity: 2},
		cartstore.AddItem{ProductID: 2, Quantity: 1},
	)

	var intents []cartstore.Event
	store.OnEvent(cartstore.EventCheckoutIntent, func(evt cartstore.Event) {
		intents = append(intents, evt)
	})

	summary, err := svc.Checkout(context.Background(), store)
	require.NoError(t, err)

	require.Len(t, summary.Lines, 2)
	assert.Equal(t, int64(1), summary.Lines[0].ProductID)
	assert.True(t, summary.Lines[0].LineTotal.Equal(decimal.RequireFromString("170.00")))
	assert.True(t, summary.Total.Equal(decimal.RequireFromString("242.50")))
	assert.Equal(t, "MXN", summary.Currency)

	assert.Contains(t, summary.Message, "2 x Mango deshidratado 100g")
	assert.Contains(t, summary.Message, "Total: $242.50 MXN")
	assert.True(t, strings.HasPrefix(summary.WhatsAppURL, "https://wa.me/5215512345678?text="))
	assert.NotContains(t, summary.WhatsAppURL, "\n")

	require.Len(t, intents, 1)
	payload, ok := intents[0].Payload.(cartstore.CheckoutIntentPayload)
	require.True(t, ok)
	assert.Equal(t, 2, payload.LineCount)
	assert.Equal(t, "242.50", payload.Total)
}

func TestCheckoutEmptyCart(t *testing.T) {
	t.Parallel()

	svc, store := newServiceWithCart(t, map[int64]catalog.Product{1: mango()})

	_, err := svc.Checkout(context.Background(), store)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestCheckoutUnavailableProduct(t *testing.T) {
	t.Parallel()

	inactive := mango()
	inactive.IsActive = false

	svc, store := newServiceWithCart(t,
		map[int64]catalog.Product{1: inactive},
		cartstore.AddItem{ProductID: 1, Quantity: 1},
		cartstore.AddItem{ProductID: 99, Quantity: 1},
	)

	_, err := svc.Checkout(context.Background(), store)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())
}

func TestCheckoutLeavesCartIntact(t *testing.T) {
	t.Parallel()

	svc, store := newServiceWithCart(t,
		map[int64]catalog.Product{1: mango()},
		cartstore.AddItem{ProductID: 1, Quantity: 3},
	)

	_, err := svc.Checkout(context.Background(), store)
	require.NoError(t, err)
	assert.Equal(t, 3, store.State().Items[1].Quantity)
}
