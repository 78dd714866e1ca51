package catalog

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"storefront/internal/model"
)

// Resolution is the single answer to "which variant does this line use".
// Every price or stock read in the codebase goes through one of these, so
// the multi-variant pricing rules live in exactly one place.
type Resolution struct {
	Kind    ResolutionKind
	Variant *model.ProductVariant
}

type ResolutionKind int

const (
	// VariantNone: the product has no variants at all (legacy data).
	VariantNone ResolutionKind = iota
	// VariantExplicit: the requested variant id exists on this product.
	VariantExplicit
	// VariantDefault: no usable variant id was given; the product's default
	// variant stands in.
	VariantDefault
)

// LoadProduct fetches a product with its variants. found=false is not an
// error: stale cart lines reference deleted products routinely.
func LoadProduct(ctx context.Context, db *gorm.DB, id uint) (*model.Product, bool, error) {
	var p model.Product
	err := db.WithContext(ctx).Preload("Variants").First(&p, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &p, true, nil
}

// SelectedVariant returns the variant only if it exists AND belongs to the
// given product. A variant id lifted from another product resolves to nil,
// which defends request tampering.
func SelectedVariant(p *model.Product, variantID uint) *model.ProductVariant {
	if p == nil || variantID == 0 {
		return nil
	}
	for i := range p.Variants {
		if p.Variants[i].ID == variantID {
			return &p.Variants[i]
		}
	}
	return nil
}

// Resolve picks the variant for a line: the explicitly selected one when it
// checks out, the product default otherwise.
func Resolve(p *model.Product, variantID uint) Resolution {
	if v := SelectedVariant(p, variantID); v != nil {
		return Resolution{Kind: VariantExplicit, Variant: v}
	}
	if p != nil {
		if v := p.DefaultVariant(); v != nil {
			return Resolution{Kind: VariantDefault, Variant: v}
		}
	}
	return Resolution{Kind: VariantNone}
}

// UnitPriceCents is the effective unit price: the variant price when set,
// zero otherwise. There is no product-level price to fall back to.
func (r Resolution) UnitPriceCents() int64 {
	if r.Variant == nil || r.Variant.Price == nil {
		return 0
	}
	return *r.Variant.Price
}

// StockQuantity is the effective available stock, zero when unset.
func (r Resolution) StockQuantity() int64 {
	if r.Variant == nil || r.Variant.Stock == nil {
		return 0
	}
	return *r.Variant.Stock
}

// EnsureDefaultVariant appends the sentinel default variant to a product
// created without explicit variants, so the variant-level price/stock model
// stays uniform.
func EnsureDefaultVariant(p *model.Product) {
	if len(p.Variants) > 0 {
		return
	}
	zeroPrice := int64(0)
	zeroStock := int64(0)
	p.Variants = append(p.Variants, model.ProductVariant{
		Name:      "default",
		Price:     &zeroPrice,
		Stock:     &zeroStock,
		IsDefault: true,
	})
}
