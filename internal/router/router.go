package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	rd "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"storefront/internal/cart"
	"storefront/internal/checkout"
	"storefront/internal/events"
	"storefront/internal/middleware"
	"storefront/internal/payment"
	"storefront/internal/session"
)

// sessionCookie carries the opaque browser session id that keys the cart
// and the checkout attempt state.
const sessionCookie = "sf_session"

// Deps is everything the handlers need. Redis may be nil, which disables
// the checkout rate limiter (tests, single-user development).
type Deps struct {
	DB         *gorm.DB
	Cart       cart.Store
	Attempts   session.Store
	Creator    *checkout.Creator
	Reconciler *payment.Reconciler
	Gateway    payment.Gateway
	Events     events.Sink
	Log        *zap.Logger

	GatewayEnabled bool
	PublicBaseURL  string

	Redis      *rd.Client
	RateLimit  int
	RateWindow time.Duration
}

// Setup registers all HTTP routes.
func Setup(r *gin.Engine, d Deps) {
	r.Use(middleware.RequestLogger(d.Log))
	r.Use(middleware.Metrics())

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"msg": "pong"})
	})
	r.GET("/metrics", middleware.MetricsHandler())

	// Catalog
	r.GET("/api/products", listProducts(d))
	r.GET("/api/products/:id", getProduct(d))
	r.POST("/api/products", createProduct(d))
	r.DELETE("/api/products/:id", deleteProduct(d))
	r.DELETE("/api/products/:id/variants/:variant_id", deleteVariant(d))

	// Cart
	r.GET("/api/cart", viewCart(d))
	r.POST("/api/cart/items", addCartItem(d))
	r.DELETE("/api/cart/items/:key", removeCartItem(d))
	r.DELETE("/api/cart", clearCart(d))

	// Checkout
	checkoutGroup := r.Group("/api/checkout")
	if d.Redis != nil {
		checkoutGroup.Use(middleware.SessionRateLimit(d.Redis, sessionCookie, d.RateLimit, d.RateWindow))
	}
	checkoutGroup.GET("", confirmCheckout(d))
	checkoutGroup.POST("", submitCheckout(d))

	// Payment callbacks
	r.GET("/payment/success", paymentSuccess(d))
	r.GET("/payment/cancel", paymentCancel(d))
	r.POST("/payment/webhook", paymentWebhook(d))

	// Orders
	r.GET("/api/orders/:reference", getOrder(d))
}

// sessionID returns the browser session id, minting the cookie on first
// touch.
func sessionID(c *gin.Context) string {
	if sid, err := c.Cookie(sessionCookie); err == nil && sid != "" {
		return sid
	}
	sid := uuid.New().String()
	c.SetCookie(sessionCookie, sid, int((30 * 24 * time.Hour).Seconds()), "/", "", false, true)
	return sid
}
