package payment

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"storefront/internal/events"
	"storefront/internal/model"
)

// Reconciler is the sole writer of final payment/order state. Both the
// success redirect and the webhook land here, in any order, possibly
// concurrently; the stock_adjusted column is the fence that keeps the
// confirm transition (and its stock decrement) at-most-once.
type Reconciler struct {
	db      *gorm.DB
	gateway Gateway
	sink    events.Sink
	log     *zap.Logger
}

func NewReconciler(db *gorm.DB, gateway Gateway, sink events.Sink, log *zap.Logger) *Reconciler {
	return &Reconciler{db: db, gateway: gateway, sink: sink, log: log}
}

// OrderBySessionID is the reverse lookup shared by the success-redirect and
// webhook handlers. found=false for unknown session ids: the webhook treats
// that as a no-op, not an error.
func (r *Reconciler) OrderBySessionID(ctx context.Context, sessionID string) (*model.Order, bool, error) {
	var order model.Order
	err := r.db.WithContext(ctx).Preload("Details").
		Where("checkout_session_id = ?", sessionID).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &order, true, nil
}

// OrderByID loads an order with its details.
func (r *Reconciler) OrderByID(ctx context.Context, id uint) (*model.Order, bool, error) {
	var order model.Order
	err := r.db.WithContext(ctx).Preload("Details").First(&order, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &order, true, nil
}

// AttachSession stores the gateway session id on the order before the
// browser is redirected. Set once; it is the reconciliation correlation key.
func (r *Reconciler) AttachSession(ctx context.Context, order *model.Order, sessionID string) error {
	order.CheckoutSessionID = &sessionID
	return r.db.WithContext(ctx).Model(order).
		Update("checkout_session_id", sessionID).Error
}

// FinalizeIfPaid asks the gateway whether the session is paid and, if so,
// applies the pending to paid transition: flip status, flip payment status,
// decrement stock, all in one transaction fenced on stock_adjusted = false.
// Returns true when the order is paid (whether this call or an earlier one
// applied the transition), false when payment has not been captured yet.
func (r *Reconciler) FinalizeIfPaid(ctx context.Context, order *model.Order, sessionID string) (bool, error) {
	// Fast path: the other trigger already won.
	if order.StockAdjusted {
		return true, nil
	}

	paid, err := r.gateway.SessionPaid(ctx, sessionID)
	if err != nil {
		return false, err
	}
	if !paid {
		return false, nil
	}

	applied := false
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Conditional update: exactly one caller sees RowsAffected == 1.
		upd := tx.Model(&model.Order{}).
			Where("id = ? AND stock_adjusted = ?", order.ID, false).
			Updates(map[string]interface{}{
				"status":         model.OrderConfirmed,
				"payment_status": model.PaymentPaid,
				"stock_adjusted": true,
			})
		if upd.Error != nil {
			return upd.Error
		}
		if upd.RowsAffected == 0 {
			// Already applied by the other trigger; nothing to do.
			return nil
		}
		applied = true

		for _, d := range order.Details {
			if d.VariantID == nil {
				continue
			}
			if err := tx.Model(&model.ProductVariant{}).
				Where("id = ?", *d.VariantID).
				Update("stock", gorm.Expr("stock - ?", d.Quantity)).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}

	order.Status = model.OrderConfirmed
	paidStatus := model.PaymentPaid
	order.PaymentStatus = &paidStatus
	order.StockAdjusted = true

	if applied {
		r.log.Info("payment confirmed",
			zap.String("reference", order.Reference),
			zap.String("session_id", sessionID))
		r.publish(ctx, order, events.TypeOrderPaid)
	}
	return true, nil
}

// MarkFailed records a gateway failure at session creation. The order stays
// pending_payment; no stock was ever reserved on this path.
func (r *Reconciler) MarkFailed(ctx context.Context, order *model.Order) error {
	err := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ? AND payment_status = ?", order.ID, model.PaymentPending).
		Update("payment_status", model.PaymentFailed).Error
	if err != nil {
		return err
	}
	failed := model.PaymentFailed
	order.PaymentStatus = &failed
	r.publish(ctx, order, events.TypeOrderPaymentFailed)
	return nil
}

// Cancel applies pending to canceled. A cancel arriving after a webhook
// already confirmed payment must not override a paid order, so the write is
// conditional on the payment still being pending. Returns whether it
// applied.
func (r *Reconciler) Cancel(ctx context.Context, order *model.Order) (bool, error) {
	upd := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ? AND payment_status = ?", order.ID, model.PaymentPending).
		Updates(map[string]interface{}{
			"status":         model.OrderCanceled,
			"payment_status": model.PaymentCanceled,
		})
	if upd.Error != nil {
		return false, upd.Error
	}
	if upd.RowsAffected == 0 {
		return false, nil
	}
	order.Status = model.OrderCanceled
	canceled := model.PaymentCanceled
	order.PaymentStatus = &canceled
	r.publish(ctx, order, events.TypeOrderCanceled)
	return true, nil
}

// HandleWebhook processes a verified gateway event. Unknown sessions and
// transient reconcile failures are swallowed (logged) so the gateway's retry
// storm never cascades: the path is idempotent, a later retry will find the
// order already settled and no-op.
func (r *Reconciler) HandleWebhook(ctx context.Context, evt WebhookEvent) {
	if evt.Type != "checkout.session.completed" || evt.SessionID == "" {
		return
	}
	order, found, err := r.OrderBySessionID(ctx, evt.SessionID)
	if err != nil {
		r.log.Warn("webhook order lookup", zap.String("session_id", evt.SessionID), zap.Error(err))
		return
	}
	if !found {
		r.log.Info("webhook for unknown session", zap.String("session_id", evt.SessionID))
		return
	}
	if _, err := r.FinalizeIfPaid(ctx, order, evt.SessionID); err != nil {
		r.log.Warn("webhook finalize",
			zap.String("reference", order.Reference), zap.Error(err))
	}
}

func (r *Reconciler) publish(ctx context.Context, order *model.Order, eventType string) {
	status := ""
	if order.PaymentStatus != nil {
		status = string(*order.PaymentStatus)
	}
	err := r.sink.Publish(ctx, events.OrderEvent{
		Type:       eventType,
		Reference:  order.Reference,
		UserID:     order.UserID,
		TotalCents: order.TotalCents,
		Status:     status,
	})
	if err != nil {
		r.log.Warn("publish order event",
			zap.String("reference", order.Reference),
			zap.String("type", eventType), zap.Error(err))
	}
}
