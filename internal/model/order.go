package model

import (
	"time"

	"gorm.io/gorm"
)

// PaymentProvider identifies how an order is (to be) paid.
type PaymentProvider string

const (
	ProviderManual PaymentProvider = "manual" // no gateway: paid on creation
	ProviderStripe PaymentProvider = "stripe"
)

// PaymentStatus is the money axis of an order.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentCanceled PaymentStatus = "canceled"
)

// OrderStatus is the lifecycle axis, independent of the money axis.
type OrderStatus string

const (
	OrderPendingPayment OrderStatus = "pending_payment"
	OrderConfirmed      OrderStatus = "confirmed"
	OrderCanceled       OrderStatus = "canceled"
)

// Order is one checkout attempt that reached creation. Rows are never
// deleted; Reference is the externally shareable id. TotalCents is a
// snapshot taken at creation and never recomputed.
//
// PaymentStatus, Status and StockAdjusted are mutated only by the payment
// reconciler (or the cancel flow); StockAdjusted is the fencing flag that
// makes the confirm transition safe to attempt from both the success
// redirect and the webhook.
type Order struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Reference  string `gorm:"size:32;uniqueIndex;not null" json:"reference"`
	UserID     uint   `gorm:"not null;index" json:"user_id"`
	TotalCents int64  `gorm:"not null" json:"total_cents"`

	PaymentProvider *PaymentProvider `gorm:"size:16" json:"payment_provider"`
	PaymentStatus   *PaymentStatus   `gorm:"size:16;index" json:"payment_status"`
	Status          OrderStatus      `gorm:"size:24;not null;index" json:"status"`

	// CheckoutSessionID correlates the order with the gateway's hosted
	// session. Set once, before redirecting the browser.
	CheckoutSessionID *string `gorm:"size:128;uniqueIndex" json:"checkout_session_id"`
	StockAdjusted     bool    `gorm:"not null;default:false" json:"stock_adjusted"`

	Details []OrderDetail `json:"details"`
}

func (Order) TableName() string { return "orders" }

// OrderDetail is one cart line captured at order creation. PriceCents is the
// unit price at that instant; later catalog changes never touch it. The
// variant reference is nullable so a line can outlive its variant, the
// product reference is required and guarded against deletion.
type OrderDetail struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	OrderID      uint   `gorm:"not null;index" json:"order_id"`
	ProductID    uint   `gorm:"not null;index" json:"product_id"`
	VariantID    *uint  `gorm:"index" json:"variant_id"`
	SelectedSize string `gorm:"size:50" json:"selected_size"`
	Quantity     int64  `gorm:"not null" json:"quantity"`
	PriceCents   int64  `gorm:"not null" json:"price_cents"` // unit price snapshot
}

func (OrderDetail) TableName() string { return "order_details" }
