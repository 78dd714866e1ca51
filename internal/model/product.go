package model

import (
	"time"

	"gorm.io/gorm"
)

// Product is the catalog listing. Price and stock truth never lives here:
// every product carries at least one variant (a sentinel "default" variant is
// created alongside products that declare none), so pricing and stock checks
// are uniform at the variant level.
type Product struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Name        string `gorm:"size:128;not null" json:"name"`
	Slug        string `gorm:"size:160;uniqueIndex;not null" json:"slug"`
	Description string `gorm:"size:2048" json:"description"`

	Variants []ProductVariant `json:"variants"`
}

func (Product) TableName() string { return "products" }

// DefaultVariant returns the canonical variant used when a cart line does not
// name one: the first variant in creation order.
func (p *Product) DefaultVariant() *ProductVariant {
	if len(p.Variants) == 0 {
		return nil
	}
	return &p.Variants[0]
}

// ProductVariant is one concretely purchasable unit (color/size/sku combo).
// Price and Stock are nullable: a nil value reads as 0 through the catalog
// resolver rather than falling back to any product-level field.
type ProductVariant struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	ProductID uint   `gorm:"not null;index" json:"product_id"`
	Name      string `gorm:"size:128;not null" json:"name"`
	// Sizes is a comma-separated list of sizes sharing this variant's stock
	// pool. The chosen size is captured on the order line, not here.
	Sizes string `gorm:"size:255" json:"sizes"`
	Price *int64 `json:"price"` // cents
	Stock *int64 `json:"stock"`
	// IsDefault marks the sentinel variant synthesized for products created
	// without explicit variants.
	IsDefault bool `gorm:"not null;default:false" json:"is_default"`
}

func (ProductVariant) TableName() string { return "product_variants" }
