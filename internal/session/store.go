// Package session holds per-browser-session checkout state: the idempotency
// token minted for the confirmation page and, once an order is created for
// that token, the order id and gateway redirect URL recorded against it.
package session

import (
	"context"
	"crypto/subtle"

	"github.com/google/uuid"
)

// Attempt is the state of the current checkout attempt for one session.
type Attempt struct {
	// Token is the server-issued idempotency token the next POST must echo.
	Token string
	// OrderID is set once an order has been created for this token; a second
	// POST with the same token reuses it instead of creating another order.
	OrderID uint
	// RedirectURL is the gateway redirect recorded at submit time, re-issued
	// verbatim on a duplicate submit.
	RedirectURL string
	// Claimed reports an in-flight submit currently processing this attempt.
	Claimed bool
}

// Store persists checkout attempts keyed by an opaque session id.
type Store interface {
	// Reset mints a fresh token and forgets the previous attempt's order id,
	// redirect bookkeeping and claim. Called on every confirmation page view.
	Reset(ctx context.Context, sessionID string) (token string, err error)
	// Get returns the current attempt. found=false means no token was minted.
	Get(ctx context.Context, sessionID string) (a Attempt, found bool, err error)
	// Claim atomically marks the attempt as being processed. Exactly one
	// concurrent caller wins; the claim holds until Release or Reset.
	Claim(ctx context.Context, sessionID string) (won bool, err error)
	// Release clears the claim after a failed order creation so the same
	// token can be retried.
	Release(ctx context.Context, sessionID string) error
	// RecordOrder binds the created order (and optional redirect URL) to the
	// session's current attempt.
	RecordOrder(ctx context.Context, sessionID string, orderID uint, redirectURL string) error
}

// NewToken mints an idempotency token.
func NewToken() string { return uuid.New().String() }

// TokenMatches compares a submitted token against the session-held one in
// constant time.
func TokenMatches(submitted, held string) bool {
	if submitted == "" || held == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(submitted), []byte(held)) == 1
}
