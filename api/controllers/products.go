package controllers

import (
	"context"
	"net/http"

	"github.com/frutaseca/cart-backend/api/responses"
	"github.com/frutaseca/cart-backend/internal/catalog"
	"github.com/frutaseca/cart-backend/pkg/logger"
)

// ProductLister exposes the storefront catalog read.
type ProductLister interface {
	ListActive(ctx context.Context) ([]catalog.Product, error)
}

type productResponse struct {
	ID       int64  `json:"id"`
	SKU      string `json:"sku"`
	Name     string `json:"name"`
	Slug     string `json:"slug"`
	Price    string `json:"price"`
	Currency string `json:"currency"`
}

// ProductsList returns the purchasable catalog.
func ProductsList(products ProductLister, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		listed, err := products.ListActive(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out := make([]productResponse, 0, len(listed))
		for _, product := range listed {
			out = append(out, productResponse{
				ID:       product.ID,
				SKU:      product.SKU,
				Name:     product.Name,
				Slug:     product.Slug,
				Price:    product.Price.StringFixed(2),
				Currency: product.Currency,
			})
		}
		responses.WriteSuccess(w, out)
	}
}
