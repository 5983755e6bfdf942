package catalog

import (
	"context"
	"fmt"
	"testing"

	pkgerrors "github.com/frutaseca/cart-backend/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	// A named in-memory database keeps all pooled connections on the same
	// store while isolating tests from each other.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	return conn
}

func seedRepo(t *testing.T) *Repository {
	t.Helper()

	repo := NewRepository(openTestDB(t))
	require.NoError(t, repo.AutoMigrate())

	products := []Product{
		{SKU: "MANGO-100", Name: "Mango deshidratado 100g", Slug: "mango-100", Price: decimal.RequireFromString("85.00"), Currency: "MXN", IsActive: true},
		{SKU: "PINA-100", Name: "Pina deshidratada 100g", Slug: "pina-100", Price: decimal.RequireFromString("72.50"), Currency: "MXN", IsActive: true},
		{SKU: "KIWI-100", Name: "Kiwi deshidratado 100g", Slug: "kiwi-100", Price: decimal.RequireFromString("95.00"), Currency: "MXN", IsActive: false},
	}
	require.NoError(t, repo.db.Create(&products).Error)
	return repo
}

func TestRepositoryGetByID(t *testing.T) {
	repo := seedRepo(t)

	product, err := repo.GetByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "MANGO-100", product.SKU)
	assert.True(t, product.Price.Equal(decimal.RequireFromString("85.00")))

	_, err = repo.GetByID(context.Background(), 999)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestRepositoryGetByIDs(t *testing.T) {
	repo := seedRepo(t)

	products, err := repo.GetByIDs(context.Background(), []int64{1, 3, 999})
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "MANGO-100", products[1].SKU)
	assert.Equal(t, "KIWI-100", products[3].SKU)

	empty, err := repo.GetByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestRepositoryListActive(t *testing.T) {
	repo := seedRepo(t)

	products, err := repo.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 2)
	// Inactive products are hidden; results are name-ordered.
	assert.Equal(t, "Mango deshidratado 100g", products[0].Name)
	assert.Equal(t, "Pina deshidratada 100g", products[1].Name)
}
