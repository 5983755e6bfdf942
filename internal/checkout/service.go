package checkout

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/frutaseca/cart-backend/internal/cartstore"
	"github.com/frutaseca/cart-backend/internal/catalog"
	pkgerrors "github.com/frutaseca/cart-backend/pkg/errors"
	"github.com/shopspring/decimal"
)

// ProductSource supplies the products referenced by a cart.
type ProductSource interface {
	GetByIDs(ctx context.Context, ids []int64) (map[int64]catalog.Product, error)
}

// Line is one priced cart row.
type Line struct {
	ProductID int64           `json:"product_id"`
	SKU       string          `json:"sku"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// Summary is the order hand-off: priced lines plus the prefilled
// WhatsApp link the buyer opens to finish the purchase.
type Summary struct {
	Lines       []Line          `json:"lines"`
	Total       decimal.Decimal `json:"total"`
	Currency    string          `json:"currency"`
	Message     string          `json:"message"`
	WhatsAppURL string          `json:"whatsapp_url"`
}

// Service prices carts against the catalog and produces the WhatsApp
// order hand-off. There is no payment flow; orders close over chat.
type Service struct {
	products       ProductSource
	whatsAppNumber string
}

// NewService wires the checkout service.
func NewService(products ProductSource, whatsAppNumber string) (*Service, error) {
	if products == nil {
		return nil, fmt.Errorf("product source is required")
	}
	if whatsAppNumber == "" {
		return nil, fmt.Errorf("whatsapp number is required")
	}
	return &Service{products: products, whatsAppNumber: whatsAppNumber}, nil
}

// Checkout prices the store's current cart and emits a checkoutIntent
// event on success. The cart itself is left untouched.
func (s *Service) Checkout(ctx context.Context, store *cartstore.Store) (*Summary, error) {
	state := store.State()
	if len(state.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	items := make([]cartstore.CartItem, 0, len(state.Items))
	ids := make([]int64, 0, len(state.Items))
	for _, item := range state.Items {
		items = append(items, item)
		ids = append(ids, item.ID)
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].AddedAt.Equal(items[j].AddedAt) {
			return items[i].AddedAt.Before(items[j].AddedAt)
		}
		return items[i].ID < items[j].ID
	})

	products, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	summary := &Summary{Total: decimal.Zero}
	for _, item := range items {
		product, ok := products[item.ID]
		if !ok || !product.IsActive {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "cart references an unavailable product").
				WithDetails(map[string]any{"product_id": item.ID})
		}
		if summary.Currency == "" {
			summary.Currency = product.Currency
		} else if summary.Currency != product.Currency {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "cart mixes currencies")
		}
		lineTotal := product.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		summary.Lines = append(summary.Lines, Line{
			ProductID: product.ID,
			SKU:       product.SKU,
			Name:      product.Name,
			Quantity:  item.Quantity,
			UnitPrice: product.Price,
			LineTotal: lineTotal,
		})
		summary.Total = summary.Total.Add(lineTotal)
	}

	summary.Message = s.buildMessage(summary)
	summary.WhatsAppURL = s.buildURL(summary.Message)

	store.Emit(cartstore.EventCheckoutIntent, cartstore.CheckoutIntentPayload{
		LineCount: len(summary.Lines),
		Total:     summary.Total.StringFixed(2),
		Currency:  summary.Currency,
	})
	return summary, nil
}

func (s *Service) buildMessage(summary *Summary) string {
	var b strings.Builder
	b.WriteString("Hola! Quiero hacer este pedido:\n")
	for _, line := range summary.Lines {
		fmt.Fprintf(&b, "- %d x %s ($%s)\n", line.Quantity, line.Name, line.LineTotal.StringFixed(2))
	}
	fmt.Fprintf(&b, "Total: $%s %s", summary.Total.StringFixed(2), summary.Currency)
	return b.String()
}

func (s *Service) buildURL(message string) string {
	return fmt.Sprintf("https://wa.me/%s?text=%s", s.whatsAppNumber, url.QueryEscape(message))
}
