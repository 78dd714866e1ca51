package catalog

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"storefront/internal/model"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&model.Product{}, &model.ProductVariant{},
		&model.User{}, &model.Order{}, &model.OrderDetail{},
	))
	return db
}

func TestDeleteProductRefusedWhenOrdered(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	p := &model.Product{Name: "tee", Slug: "tee",
		Variants: []model.ProductVariant{{Name: "black", Price: cents(1000), Stock: cents(5)}}}
	require.NoError(t, db.Create(p).Error)

	order := &model.Order{Reference: "SF-TEST1", UserID: 1, Status: model.OrderConfirmed,
		Details: []model.OrderDetail{{ProductID: p.ID, Quantity: 1, PriceCents: 1000}}}
	require.NoError(t, db.Create(order).Error)

	err := DeleteProduct(ctx, db, p.ID)
	assert.ErrorIs(t, err, ErrReferencedByOrders)

	// Order history outranks catalog cleanliness: the product survives.
	var n int64
	require.NoError(t, db.Model(&model.Product{}).Where("id = ?", p.ID).Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestDeleteProductUnreferenced(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	p := &model.Product{Name: "mug", Slug: "mug",
		Variants: []model.ProductVariant{{Name: "default", IsDefault: true}}}
	require.NoError(t, db.Create(p).Error)

	require.NoError(t, DeleteProduct(ctx, db, p.ID))

	var n int64
	require.NoError(t, db.Model(&model.ProductVariant{}).Where("product_id = ?", p.ID).Count(&n).Error)
	assert.Equal(t, int64(0), n)
}

func TestDeleteVariantRefusedWhenOrdered(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	p := &model.Product{Name: "tee", Slug: "tee-2",
		Variants: []model.ProductVariant{{Name: "black", Price: cents(1000), Stock: cents(5)}}}
	require.NoError(t, db.Create(p).Error)
	variantID := p.Variants[0].ID

	order := &model.Order{Reference: "SF-TEST2", UserID: 1, Status: model.OrderConfirmed,
		Details: []model.OrderDetail{{ProductID: p.ID, VariantID: &variantID, Quantity: 1, PriceCents: 1000}}}
	require.NoError(t, db.Create(order).Error)

	err := DeleteVariant(ctx, db, p.ID, variantID)
	assert.ErrorIs(t, err, ErrReferencedByOrders)
}

func TestDeleteVariantUnreferenced(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	p := &model.Product{Name: "tee", Slug: "tee-3",
		Variants: []model.ProductVariant{
			{Name: "black"},
			{Name: "white"},
		}}
	require.NoError(t, db.Create(p).Error)

	require.NoError(t, DeleteVariant(ctx, db, p.ID, p.Variants[1].ID))
	assert.ErrorIs(t, DeleteVariant(ctx, db, p.ID, 9999), gorm.ErrRecordNotFound)
}
