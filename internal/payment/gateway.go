package payment

import (
	"context"
	"errors"

	"storefront/internal/model"
)

// ErrBadSignature marks a webhook whose signature did not verify. The
// webhook handler turns it into a 400; nothing past the signature check ever
// sees a forged payload.
var ErrBadSignature = errors.New("webhook signature verification failed")

// CheckoutSession is the hosted payment session the browser is sent to.
type CheckoutSession struct {
	ID  string
	URL string
}

// WebhookEvent is the verified, minimally decoded inbound gateway event.
type WebhookEvent struct {
	Type      string
	SessionID string
}

// Gateway is the narrow slice of the payment provider this core consumes.
// The provider's checkout UI and delivery mechanics live behind it.
type Gateway interface {
	// Configured reports whether credentials are present. Checkout refuses
	// to start a gateway flow otherwise.
	Configured() bool
	// CreateCheckoutSession creates a hosted session scoped to the order's
	// total and reference.
	CreateCheckoutSession(ctx context.Context, order *model.Order, successURL, cancelURL string) (CheckoutSession, error)
	// SessionPaid reports whether the session's payment has been captured.
	SessionPaid(ctx context.Context, sessionID string) (bool, error)
	// VerifyWebhook authenticates and decodes an inbound event. Returns
	// ErrBadSignature on any verification failure.
	VerifyWebhook(payload []byte, signatureHeader string) (WebhookEvent, error)
}
