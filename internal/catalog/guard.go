package catalog

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"storefront/internal/model"
)

// ErrReferencedByOrders blocks catalog deletions that would orphan order
// history. Order rows outlive the catalog; the actionable remedy is to zero
// the stock instead of deleting the listing.
var ErrReferencedByOrders = fmt.Errorf("referenced by order history: reduce stock to zero instead of deleting")

// DeleteProduct removes a product and its variants unless any order detail
// references them. The check runs in the application so the refusal carries
// an actionable message, not a bare constraint violation.
func DeleteProduct(ctx context.Context, db *gorm.DB, id uint) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&model.OrderDetail{}).Where("product_id = ?", id).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrReferencedByOrders
		}
		if err := tx.Where("product_id = ?", id).Delete(&model.ProductVariant{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Product{}, id).Error
	})
}

// DeleteVariant removes a variant. Variants referenced by order history are
// refused here too: the nullable OrderDetail reference exists for database
// level cleanups, but user-driven deletes keep history intact.
func DeleteVariant(ctx context.Context, db *gorm.DB, productID, variantID uint) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&model.OrderDetail{}).Where("variant_id = ?", variantID).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrReferencedByOrders
		}
		res := tx.Where("product_id = ?", productID).Delete(&model.ProductVariant{}, variantID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
