package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/model"
)

func cents(n int64) *int64 { return &n }

func twoVariantProduct() *model.Product {
	return &model.Product{
		ID:   1,
		Name: "tee",
		Variants: []model.ProductVariant{
			{ID: 10, ProductID: 1, Name: "black", Price: cents(1000), Stock: cents(5)},
			{ID: 11, ProductID: 1, Name: "white", Price: cents(1200), Stock: cents(2)},
		},
	}
}

func TestSelectedVariant(t *testing.T) {
	p := twoVariantProduct()

	require.NotNil(t, SelectedVariant(p, 11))
	assert.Equal(t, uint(11), SelectedVariant(p, 11).ID)

	// A variant id from another product must not resolve.
	assert.Nil(t, SelectedVariant(p, 999))
	assert.Nil(t, SelectedVariant(p, 0))
	assert.Nil(t, SelectedVariant(nil, 10))
}

func TestResolve(t *testing.T) {
	p := twoVariantProduct()

	res := Resolve(p, 11)
	assert.Equal(t, VariantExplicit, res.Kind)
	assert.Equal(t, uint(11), res.Variant.ID)

	// Unknown id falls back to the default (first) variant.
	res = Resolve(p, 999)
	assert.Equal(t, VariantDefault, res.Kind)
	assert.Equal(t, uint(10), res.Variant.ID)

	res = Resolve(p, 0)
	assert.Equal(t, VariantDefault, res.Kind)

	res = Resolve(&model.Product{ID: 2}, 0)
	assert.Equal(t, VariantNone, res.Kind)
	assert.Nil(t, res.Variant)
}

func TestEffectivePriceAndStock(t *testing.T) {
	p := twoVariantProduct()

	res := Resolve(p, 11)
	assert.Equal(t, int64(1200), res.UnitPriceCents())
	assert.Equal(t, int64(2), res.StockQuantity())

	// Unset price/stock read as zero; nothing falls back to a product field.
	bare := &model.Product{ID: 3, Variants: []model.ProductVariant{{ID: 30, ProductID: 3}}}
	res = Resolve(bare, 0)
	assert.Equal(t, int64(0), res.UnitPriceCents())
	assert.Equal(t, int64(0), res.StockQuantity())

	none := Resolution{Kind: VariantNone}
	assert.Equal(t, int64(0), none.UnitPriceCents())
	assert.Equal(t, int64(0), none.StockQuantity())
}

func TestEnsureDefaultVariant(t *testing.T) {
	p := &model.Product{Name: "mug"}
	EnsureDefaultVariant(p)
	require.Len(t, p.Variants, 1)
	assert.True(t, p.Variants[0].IsDefault)
	assert.Equal(t, "default", p.Variants[0].Name)

	// Products with explicit variants are left alone.
	p2 := twoVariantProduct()
	EnsureDefaultVariant(p2)
	assert.Len(t, p2.Variants, 2)
}
