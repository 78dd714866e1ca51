package router

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"storefront/internal/cart"
	"storefront/internal/checkout"
	"storefront/internal/events"
	"storefront/internal/middleware"
	"storefront/internal/model"
	"storefront/internal/session"
)

// confirmCheckout renders the confirmation payload. Every view mints a
// fresh idempotency token and forgets the previous attempt's order id and
// redirect bookkeeping (the order itself, if any, already exists).
func confirmCheckout(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		sid := sessionID(c)

		lines, total, err := resolveCart(c, d, sid)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": err.Error()})
			return
		}

		token, err := d.Attempts.Reset(c.Request.Context(), sid)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"code": 0, "data": gin.H{
			"idempotency_key": token,
			"lines":           lines,
			"total_cents":     total,
			"gateway_enabled": d.GatewayEnabled,
		}})
	}
}

// submitCheckout turns the session cart into an order. Token mismatches
// (back button, expired session) redirect to a fresh confirmation rather
// than erroring; a duplicate submit with the same valid token reuses the
// already-created order.
func submitCheckout(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			IdempotencyKey string `form:"idempotency_key" json:"idempotency_key" binding:"required"`
			Email          string `form:"email" json:"email" binding:"required,email"`
			Address        string `form:"address" json:"address"`
			Zipcode        string `form:"zipcode" json:"zipcode"`
			City           string `form:"city" json:"city"`
		}
		if err := c.ShouldBind(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": err.Error()})
			return
		}

		sid := sessionID(c)
		ctx := c.Request.Context()

		attempt, found, err := d.Attempts.Get(ctx, sid)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": err.Error()})
			return
		}
		if !found || !session.TokenMatches(req.IdempotencyKey, attempt.Token) {
			// Expected on reload/back-button: send the browser back for a
			// fresh confirmation instead of failing hard.
			c.Redirect(http.StatusSeeOther, "/api/checkout")
			return
		}

		// Duplicate submit with the same valid token: never create a second
		// order.
		if attempt.OrderID != 0 {
			middleware.CheckoutOrdersTotal.WithLabelValues("duplicate").Inc()
			replayAttempt(c, d, attempt)
			return
		}

		// Two tabs can pass the OrderID check together; the claim decides
		// which one creates the order. Losers wait for it and replay.
		won, err := d.Attempts.Claim(ctx, sid)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": err.Error()})
			return
		}
		if !won {
			middleware.CheckoutOrdersTotal.WithLabelValues("duplicate").Inc()
			awaitRecordedOrder(c, d, sid)
			return
		}
		created := false
		defer func() {
			// No order came out of this claim (validation or stock failure):
			// free the token for a retry.
			if !created {
				if err := d.Attempts.Release(ctx, sid); err != nil {
					d.Log.Warn("release attempt claim", zap.Error(err))
				}
			}
		}()

		if d.GatewayEnabled && !d.Gateway.Configured() {
			// Fail closed before any order exists.
			middleware.CheckoutOrdersTotal.WithLabelValues("gateway_error").Inc()
			c.JSON(http.StatusServiceUnavailable, gin.H{"code": 503,
				"msg": checkout.ErrGatewayUnavailable.Error()})
			return
		}

		if d.GatewayEnabled && (req.Address == "" || req.Zipcode == "" || req.City == "") {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400,
				"msg": "address, zipcode and city are required"})
			return
		}

		user, err := upsertUser(ctx, d.DB, req.Email, req.Address, req.Zipcode, req.City)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": err.Error()})
			return
		}

		raw, err := d.Cart.Get(ctx, sid)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": err.Error()})
			return
		}
		lines := make([]checkout.CartLine, 0, len(raw))
		for key, qty := range raw {
			parsed := cart.ParseKey(key)
			if parsed.ProductID == 0 {
				continue
			}
			lines = append(lines, checkout.CartLine{
				ProductID:    parsed.ProductID,
				VariantID:    parsed.VariantID,
				SelectedSize: parsed.SelectedSize,
				Quantity:     qty,
			})
		}

		order, err := d.Creator.CreateFromCartLines(ctx, user, lines, d.GatewayEnabled)
		if errors.Is(err, checkout.ErrOutOfStock) {
			// Cart untouched; the shopper adjusts quantities and retries.
			middleware.CheckoutOrdersTotal.WithLabelValues("out_of_stock").Inc()
			c.JSON(http.StatusConflict, gin.H{"code": 409, "msg": "insufficient stock"})
			return
		}
		if errors.Is(err, checkout.ErrEmptyCart) {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": "cart is empty"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": err.Error()})
			return
		}

		created = true
		middleware.CheckoutOrdersTotal.WithLabelValues("created").Inc()

		// Bind the order to the token before anything else can fail, so a
		// replay of this token reuses it even when the gateway step below
		// does not complete. The redirect URL is filled in later.
		if err := d.Attempts.RecordOrder(ctx, sid, order.ID, ""); err != nil {
			d.Log.Warn("record attempt", zap.Error(err))
		}
		publishEvent(c, d, order, events.TypeOrderCreated)

		if !d.GatewayEnabled {
			if err := d.Cart.Clear(ctx, sid); err != nil {
				d.Log.Warn("clear cart", zap.Error(err))
			}
			c.JSON(http.StatusOK, gin.H{"code": 0, "data": gin.H{
				"reference": order.Reference,
				"status":    order.Status,
			}})
			return
		}

		// Gateway path: create the hosted session, pin its id on the order,
		// then send the browser to the gateway.
		successURL := d.PublicBaseURL + "/payment/success?session_id={CHECKOUT_SESSION_ID}"
		cancelURL := d.PublicBaseURL + "/payment/cancel"
		sess, err := d.Gateway.CreateCheckoutSession(ctx, order, successURL, cancelURL)
		if err != nil {
			d.Log.Error("create checkout session",
				zap.Error(err))
			middleware.CheckoutOrdersTotal.WithLabelValues("gateway_error").Inc()
			if markErr := d.Reconciler.MarkFailed(ctx, order); markErr != nil {
				d.Log.Error("mark order failed", zap.Error(markErr))
			}
			// The order is already bound to the token, so a retry with the
			// same token replays it instead of creating another.
			c.JSON(http.StatusBadGateway, gin.H{"code": 502,
				"msg": checkout.ErrGatewayError.Error()})
			return
		}

		if err := d.Reconciler.AttachSession(ctx, order, sess.ID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": err.Error()})
			return
		}
		if err := d.Attempts.RecordOrder(ctx, sid, order.ID, sess.URL); err != nil {
			d.Log.Warn("record attempt", zap.Error(err))
		}
		if err := d.Cart.Clear(ctx, sid); err != nil {
			d.Log.Warn("clear cart", zap.Error(err))
		}

		c.Redirect(http.StatusSeeOther, sess.URL)
	}
}

// awaitRecordedOrder serves the loser of a concurrent duplicate submit: the
// winner holds the claim, so wait for it to record its order and answer from
// the attempt. A released claim without an order means the winner failed;
// the caller may then retry with the same token.
func awaitRecordedOrder(c *gin.Context, d Deps, sid string) {
	ctx := c.Request.Context()
	deadline := time.Now().Add(2 * time.Second)
	for {
		attempt, found, err := d.Attempts.Get(ctx, sid)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": err.Error()})
			return
		}
		if !found {
			c.Redirect(http.StatusSeeOther, "/api/checkout")
			return
		}
		if attempt.OrderID != 0 {
			replayAttempt(c, d, attempt)
			return
		}
		if !attempt.Claimed || time.Now().After(deadline) {
			break
		}
		time.Sleep(25 * time.Millisecond)
	}
	c.JSON(http.StatusConflict, gin.H{"code": 409,
		"msg": "another submit for this checkout is in progress, please retry"})
}

// replayAttempt answers a duplicate submit from the recorded attempt state:
// re-issue the gateway redirect, or report the order as already handled.
func replayAttempt(c *gin.Context, d Deps, attempt session.Attempt) {
	order, found, err := d.Reconciler.OrderByID(c.Request.Context(), attempt.OrderID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": err.Error()})
		return
	}
	if !found {
		c.Redirect(http.StatusSeeOther, "/api/checkout")
		return
	}

	if attempt.RedirectURL != "" {
		c.Redirect(http.StatusSeeOther, attempt.RedirectURL)
		return
	}
	if order.PaymentStatus != nil && *order.PaymentStatus == model.PaymentFailed {
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": gin.H{
			"reference": order.Reference,
			"status":    order.Status,
			"msg":       "payment could not be started, refresh checkout to retry",
		}})
		return
	}
	if order.PaymentProvider != nil && *order.PaymentProvider == model.ProviderManual {
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": gin.H{
			"reference": order.Reference,
			"status":    order.Status,
			"msg":       "order already validated",
		}})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "data": gin.H{
		"reference": order.Reference,
		"status":    order.Status,
		"msg":       "payment already initialized",
	}})
}

// upsertUser finds or creates the customer record and, when shipping fields
// were submitted, persists them on the profile before order creation.
func upsertUser(ctx context.Context, db *gorm.DB, email, address, zipcode, city string) (*model.User, error) {
	var user model.User
	err := db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		user = model.User{Email: email}
		if err := db.WithContext(ctx).Create(&user).Error; err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}

	if address != "" || zipcode != "" || city != "" {
		user.Address = address
		user.Zipcode = zipcode
		user.City = city
		if err := db.WithContext(ctx).Save(&user).Error; err != nil {
			return nil, err
		}
	}
	return &user, nil
}

// publishEvent is best effort; a broken outbox never fails a checkout.
func publishEvent(c *gin.Context, d Deps, order *model.Order, eventType string) {
	status := ""
	if order.PaymentStatus != nil {
		status = string(*order.PaymentStatus)
	}
	err := d.Events.Publish(c.Request.Context(), events.OrderEvent{
		Type:       eventType,
		Reference:  order.Reference,
		UserID:     order.UserID,
		TotalCents: order.TotalCents,
		Status:     status,
	})
	if err != nil {
		d.Log.Warn("publish order event", zap.Error(err))
	}
}
