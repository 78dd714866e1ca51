// Package events publishes order lifecycle events. The request path writes
// to a Redis Stream outbox; a background relay forwards entries to Kafka so
// a slow or unavailable broker never blocks checkout.
package events

import (
	"context"
	"fmt"
	"time"
)

const (
	TypeOrderCreated       = "order_created"
	TypeOrderPaid          = "order_paid"
	TypeOrderPaymentFailed = "order_payment_failed"
	TypeOrderCanceled      = "order_canceled"
)

// OrderEvent is one lifecycle notification for an order.
type OrderEvent struct {
	EventID    string    `json:"event_id"`
	Type       string    `json:"type"`
	Reference  string    `json:"reference"`
	UserID     uint      `json:"user_id"`
	TotalCents int64     `json:"total_cents"`
	Status     string    `json:"status"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Validate rejects events the consumer side could not act on.
func (e OrderEvent) Validate() error {
	if e.EventID == "" {
		return fmt.Errorf("event_id is required")
	}
	if e.Type == "" {
		return fmt.Errorf("type is required")
	}
	if e.Reference == "" {
		return fmt.Errorf("reference is required")
	}
	return nil
}

// Sink accepts lifecycle events. Publishing is best effort from the caller's
// point of view: failures are logged, never surfaced to the shopper.
type Sink interface {
	Publish(ctx context.Context, e OrderEvent) error
}

// NopSink drops events; used in tests and when eventing is disabled.
type NopSink struct{}

func (NopSink) Publish(context.Context, OrderEvent) error { return nil }
