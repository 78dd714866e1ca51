package checkout

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
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

func cents(n int64) *int64 { return &n }

func seedProduct(t *testing.T, db *gorm.DB, slug string, price, stock int64) *model.Product {
	t.Helper()
	p := &model.Product{Name: slug, Slug: slug,
		Variants: []model.ProductVariant{
			{Name: "default", Price: cents(price), Stock: cents(stock), IsDefault: true},
		}}
	require.NoError(t, db.Create(p).Error)
	return p
}

func seedUser(t *testing.T, db *gorm.DB) *model.User {
	t.Helper()
	u := &model.User{Email: "shopper@example.com"}
	require.NoError(t, db.Create(u).Error)
	return u
}

func variantStock(t *testing.T, db *gorm.DB, id uint) int64 {
	t.Helper()
	var v model.ProductVariant
	require.NoError(t, db.First(&v, id).Error)
	require.NotNil(t, v.Stock)
	return *v.Stock
}

func TestCreateManualCheckoutHappyPath(t *testing.T) {
	db := newTestDB(t)
	creator := NewCreator(db, zaptest.NewLogger(t))
	user := seedUser(t, db)
	p := seedProduct(t, db, "tee", 1000, 5)

	order, err := creator.CreateFromCartLines(context.Background(), user,
		[]CartLine{{ProductID: p.ID, VariantID: 0, Quantity: 2}}, false)
	require.NoError(t, err)

	assert.Equal(t, int64(2000), order.TotalCents)
	assert.Equal(t, model.OrderConfirmed, order.Status)
	require.NotNil(t, order.PaymentStatus)
	assert.Equal(t, model.PaymentPaid, *order.PaymentStatus)
	require.NotNil(t, order.PaymentProvider)
	assert.Equal(t, model.ProviderManual, *order.PaymentProvider)
	assert.True(t, order.StockAdjusted)
	assert.NotEmpty(t, order.Reference)

	// Stock consumed in the same transaction.
	assert.Equal(t, int64(3), variantStock(t, db, p.Variants[0].ID))
}

func TestCreateGatewayCheckoutDefersStock(t *testing.T) {
	db := newTestDB(t)
	creator := NewCreator(db, zaptest.NewLogger(t))
	user := seedUser(t, db)
	p := seedProduct(t, db, "tee", 1000, 5)

	order, err := creator.CreateFromCartLines(context.Background(), user,
		[]CartLine{{ProductID: p.ID, Quantity: 2}}, true)
	require.NoError(t, err)

	assert.Equal(t, model.OrderPendingPayment, order.Status)
	require.NotNil(t, order.PaymentStatus)
	assert.Equal(t, model.PaymentPending, *order.PaymentStatus)
	assert.False(t, order.StockAdjusted)

	// No decrement until payment is confirmed.
	assert.Equal(t, int64(5), variantStock(t, db, p.Variants[0].ID))
}

func TestOutOfStockAbortsWholeOrder(t *testing.T) {
	db := newTestDB(t)
	creator := NewCreator(db, zaptest.NewLogger(t))
	user := seedUser(t, db)
	p1 := seedProduct(t, db, "tee", 1000, 5)
	p2 := seedProduct(t, db, "mug", 500, 1)

	_, err := creator.CreateFromCartLines(context.Background(), user, []CartLine{
		{ProductID: p1.ID, Quantity: 2},
		{ProductID: p2.ID, Quantity: 3}, // exceeds stock
	}, false)
	assert.ErrorIs(t, err, ErrOutOfStock)

	// All-or-nothing: zero rows persisted, no stock moved.
	var orders, details int64
	require.NoError(t, db.Model(&model.Order{}).Count(&orders).Error)
	require.NoError(t, db.Model(&model.OrderDetail{}).Count(&details).Error)
	assert.Equal(t, int64(0), orders)
	assert.Equal(t, int64(0), details)
	assert.Equal(t, int64(5), variantStock(t, db, p1.Variants[0].ID))
}

func TestPriceSnapshotSurvivesCatalogChange(t *testing.T) {
	db := newTestDB(t)
	creator := NewCreator(db, zaptest.NewLogger(t))
	user := seedUser(t, db)
	p := seedProduct(t, db, "tee", 1000, 5)

	order, err := creator.CreateFromCartLines(context.Background(), user,
		[]CartLine{{ProductID: p.ID, Quantity: 1}}, false)
	require.NoError(t, err)

	// Reprice the variant after the fact.
	require.NoError(t, db.Model(&model.ProductVariant{}).
		Where("id = ?", p.Variants[0].ID).Update("price", 9999).Error)

	var detail model.OrderDetail
	require.NoError(t, db.Where("order_id = ?", order.ID).First(&detail).Error)
	assert.Equal(t, int64(1000), detail.PriceCents)
	assert.Equal(t, int64(1000), order.TotalCents)
}

func TestStaleLinesAreDropped(t *testing.T) {
	db := newTestDB(t)
	creator := NewCreator(db, zaptest.NewLogger(t))
	user := seedUser(t, db)
	p := seedProduct(t, db, "tee", 1000, 5)

	order, err := creator.CreateFromCartLines(context.Background(), user, []CartLine{
		{ProductID: 424242, Quantity: 1}, // product gone
		{ProductID: p.ID, Quantity: 1},
	}, false)
	require.NoError(t, err)
	assert.Len(t, order.Details, 1)
	assert.Equal(t, p.ID, order.Details[0].ProductID)
}

func TestEmptyCart(t *testing.T) {
	db := newTestDB(t)
	creator := NewCreator(db, zaptest.NewLogger(t))
	user := seedUser(t, db)

	_, err := creator.CreateFromCartLines(context.Background(), user, nil, false)
	assert.ErrorIs(t, err, ErrEmptyCart)

	_, err = creator.CreateFromCartLines(context.Background(), user,
		[]CartLine{{ProductID: 424242, Quantity: 1}}, false)
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestSelectedSizeAndVariantCaptured(t *testing.T) {
	db := newTestDB(t)
	creator := NewCreator(db, zaptest.NewLogger(t))
	user := seedUser(t, db)

	p := &model.Product{Name: "sneaker", Slug: "sneaker",
		Variants: []model.ProductVariant{
			{Name: "black", Price: cents(5000), Stock: cents(3)},
			{Name: "white", Price: cents(5500), Stock: cents(1)},
		}}
	require.NoError(t, db.Create(p).Error)

	order, err := creator.CreateFromCartLines(context.Background(), user,
		[]CartLine{{ProductID: p.ID, VariantID: p.Variants[1].ID, SelectedSize: "EU 42", Quantity: 1}}, false)
	require.NoError(t, err)

	require.Len(t, order.Details, 1)
	d := order.Details[0]
	require.NotNil(t, d.VariantID)
	assert.Equal(t, p.Variants[1].ID, *d.VariantID)
	assert.Equal(t, "EU 42", d.SelectedSize)
	assert.Equal(t, int64(5500), d.PriceCents)
}
