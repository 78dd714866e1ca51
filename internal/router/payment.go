package router

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"storefront/internal/middleware"
	"storefront/internal/model"
	"storefront/internal/payment"
)

// paymentSuccess is the browser's return leg from the gateway. It races the
// webhook for the same order; reconciliation is idempotent so revisiting or
// reloading this URL is harmless.
func paymentSuccess(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessID := c.Query("session_id")
		if sessID == "" {
			c.Redirect(http.StatusSeeOther, "/api/checkout")
			return
		}

		order, found, err := d.Reconciler.OrderBySessionID(c.Request.Context(), sessID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": err.Error()})
			return
		}
		if !found {
			c.JSON(http.StatusNotFound, gin.H{"code": 404, "msg": "unknown payment session"})
			return
		}

		paid, err := d.Reconciler.FinalizeIfPaid(c.Request.Context(), order, sessID)
		if err != nil {
			middleware.PaymentsFinalizedTotal.WithLabelValues("redirect", "error").Inc()
			d.Log.Warn("redirect finalize", zap.String("reference", order.Reference), zap.Error(err))
			c.JSON(http.StatusOK, gin.H{"code": 0, "data": gin.H{
				"reference": order.Reference,
				"status":    order.Status,
				"msg":       "payment is being verified",
			}})
			return
		}
		if !paid {
			middleware.PaymentsFinalizedTotal.WithLabelValues("redirect", "pending").Inc()
			c.JSON(http.StatusOK, gin.H{"code": 0, "data": gin.H{
				"reference": order.Reference,
				"status":    order.Status,
				"msg":       "payment not confirmed yet",
			}})
			return
		}

		middleware.PaymentsFinalizedTotal.WithLabelValues("redirect", "paid").Inc()
		c.Redirect(http.StatusSeeOther, "/api/orders/"+order.Reference)
	}
}

// paymentCancel handles the gateway's cancel leg. It carries no session id,
// so the order comes from the session-recorded attempt. A cancel landing
// after the webhook confirmed payment leaves the order paid.
func paymentCancel(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		sid := sessionID(c)
		attempt, found, err := d.Attempts.Get(c.Request.Context(), sid)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": err.Error()})
			return
		}
		if !found || attempt.OrderID == 0 {
			c.Redirect(http.StatusSeeOther, "/api/checkout")
			return
		}

		order, found, err := d.Reconciler.OrderByID(c.Request.Context(), attempt.OrderID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": err.Error()})
			return
		}
		if !found {
			c.Redirect(http.StatusSeeOther, "/api/checkout")
			return
		}

		applied, err := d.Reconciler.Cancel(c.Request.Context(), order)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": err.Error()})
			return
		}
		if !applied {
			if order.PaymentStatus != nil && *order.PaymentStatus == model.PaymentPaid {
				c.JSON(http.StatusOK, gin.H{"code": 0, "data": gin.H{
					"reference": order.Reference,
					"status":    order.Status,
					"msg":       "payment was already confirmed",
				}})
				return
			}
			// Already failed or canceled; report the persisted state as is.
			c.JSON(http.StatusOK, gin.H{"code": 0, "data": gin.H{
				"reference": order.Reference,
				"status":    order.Status,
				"msg":       "checkout already closed",
			}})
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": gin.H{
			"reference": order.Reference,
			"status":    model.OrderCanceled,
			"msg":       "checkout canceled",
		}})
	}
}

// paymentWebhook is the asynchronous confirmation path. The signature check
// is its only authentication: 400 on failure, 200 on everything else (even
// no-ops) so the gateway does not pile up retries.
func paymentWebhook(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		payload, err := c.GetRawData()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": "unreadable payload"})
			return
		}

		evt, err := d.Gateway.VerifyWebhook(payload, c.GetHeader("Stripe-Signature"))
		if err != nil {
			if errors.Is(err, payment.ErrBadSignature) {
				middleware.PaymentsFinalizedTotal.WithLabelValues("webhook", "bad_signature").Inc()
				c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": "invalid signature"})
				return
			}
			d.Log.Warn("webhook decode", zap.Error(err))
			c.JSON(http.StatusOK, gin.H{"code": 0})
			return
		}

		d.Reconciler.HandleWebhook(c.Request.Context(), evt)
		middleware.PaymentsFinalizedTotal.WithLabelValues("webhook", "handled").Inc()
		c.JSON(http.StatusOK, gin.H{"code": 0})
	}
}
