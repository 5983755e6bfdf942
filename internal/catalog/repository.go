package catalog

import (
	"context"
	stdErrors "errors"

	pkgerrors "github.com/frutaseca/cart-backend/pkg/errors"
	"gorm.io/gorm"
)

// Repository exposes product reads for pricing and checkout.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// AutoMigrate creates or updates the products table.
func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&Product{})
}

// GetByID loads one product regardless of active state.
func (r *Repository) GetByID(ctx context.Context, id int64) (*Product, error) {
	var product Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading product")
	}
	return &product, nil
}

// GetByIDs loads the given products keyed by id. Missing ids are simply
// absent from the result; the caller decides whether that is an error.
func (r *Repository) GetByIDs(ctx context.Context, ids []int64) (map[int64]Product, error) {
	result := make(map[int64]Product, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	var products []Product
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading products")
	}
	for _, product := range products {
		result[product.ID] = product
	}
	return result, nil
}

// ListActive returns purchasable products ordered by name.
func (r *Repository) ListActive(ctx context.Context) ([]Product, error) {
	var products []Product
	if err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("name asc").
		Find(&products).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing products")
	}
	return products, nil
}
