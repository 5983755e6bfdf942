package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is one dehydrated-fruit listing. Prices are stored as exact
// decimals; the storefront only ever sells whole units.
type Product struct {
	ID        int64           `gorm:"column:id;primaryKey;autoIncrement"`
	SKU       string          `gorm:"column:sku;uniqueIndex;not null"`
	Name      string          `gorm:"column:name;not null"`
	Slug      string          `gorm:"column:slug;uniqueIndex;not null"`
	Price     decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	Currency  string          `gorm:"column:currency;size:3;not null;default:MXN"`
	IsActive  bool            `gorm:"column:is_active;not null;default:true"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName keeps the table name stable regardless of naming strategy.
func (Product) TableName() string { return "products" }
