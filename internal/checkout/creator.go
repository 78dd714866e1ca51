package checkout

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"storefront/internal/catalog"
	"storefront/internal/model"
)

// CartLine is one decoded session cart line handed to the creator.
type CartLine struct {
	ProductID    uint
	VariantID    uint
	SelectedSize string
	Quantity     int64
}

// Creator turns cart lines into a persisted Order + OrderDetail graph in one
// transaction.
type Creator struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewCreator(db *gorm.DB, log *zap.Logger) *Creator {
	return &Creator{db: db, log: log}
}

// CreateFromCartLines validates stock and persists the order atomically.
//
// Non-gateway checkout decrements stock in the same transaction and lands
// confirmed/paid. Gateway checkout leaves stock alone and lands
// pending_payment/pending; the decrement belongs to payment reconciliation
// so abandoned checkouts never consume stock.
func (c *Creator) CreateFromCartLines(ctx context.Context, user *model.User, lines []CartLine, gatewayEnabled bool) (*model.Order, error) {
	order := &model.Order{
		Reference: NewReference(),
		UserID:    user.ID,
	}

	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, line := range lines {
			if line.Quantity <= 0 {
				continue
			}
			product, found, err := catalog.LoadProduct(ctx, tx, line.ProductID)
			if err != nil {
				return err
			}
			if !found {
				// Stale cart entry; drop the line.
				c.log.Warn("checkout: dropping line for missing product",
					zap.Uint("product_id", line.ProductID))
				continue
			}

			res := catalog.Resolve(product, line.VariantID)
			if line.Quantity > res.StockQuantity() {
				return ErrOutOfStock
			}

			detail := model.OrderDetail{
				ProductID:    product.ID,
				SelectedSize: line.SelectedSize,
				Quantity:     line.Quantity,
				PriceCents:   res.UnitPriceCents(),
			}
			if res.Variant != nil {
				id := res.Variant.ID
				detail.VariantID = &id
			}
			order.Details = append(order.Details, detail)
			order.TotalCents += detail.PriceCents * detail.Quantity
		}

		if len(order.Details) == 0 {
			return ErrEmptyCart
		}

		if gatewayEnabled {
			provider := model.ProviderStripe
			status := model.PaymentPending
			order.PaymentProvider = &provider
			order.PaymentStatus = &status
			order.Status = model.OrderPendingPayment
		} else {
			// Stock is consumed right here; the conditional update is the
			// real guard against a concurrent checkout of the same variant.
			for _, d := range order.Details {
				if d.VariantID == nil {
					// Unreachable: a line that resolved to no variant reads
					// stock 0 and already failed the quantity check above.
					return fmt.Errorf("order line for product %d has no variant", d.ProductID)
				}
				upd := tx.Model(&model.ProductVariant{}).
					Where("id = ? AND stock >= ?", *d.VariantID, d.Quantity).
					Update("stock", gorm.Expr("stock - ?", d.Quantity))
				if upd.Error != nil {
					return upd.Error
				}
				if upd.RowsAffected == 0 {
					return ErrOutOfStock
				}
			}
			provider := model.ProviderManual
			status := model.PaymentPaid
			order.PaymentProvider = &provider
			order.PaymentStatus = &status
			order.Status = model.OrderConfirmed
			order.StockAdjusted = true
		}

		return tx.Create(order).Error
	})
	if err != nil {
		return nil, err
	}

	c.log.Info("order created",
		zap.String("reference", order.Reference),
		zap.Int64("total_cents", order.TotalCents),
		zap.String("status", string(order.Status)))
	return order, nil
}

// NewReference generates the short externally shareable order reference.
func NewReference() string {
	raw := strings.ReplaceAll(uuid.New().String(), "-", "")
	return "SF-" + strings.ToUpper(raw[:12])
}
