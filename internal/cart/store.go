package cart

import "context"

// Store holds the session-scoped cart: a map of line key to quantity, keyed
// by an opaque session id. Cart mutation is last-write-wins across tabs; the
// cart is not durable state and offers no stronger guarantee.
type Store interface {
	// Get returns the full cart for a session. A missing cart is an empty map.
	Get(ctx context.Context, sessionID string) (map[string]int64, error)
	// Add increments the quantity for a line key and returns the new value.
	Add(ctx context.Context, sessionID, key string, quantity int64) (int64, error)
	// Remove drops a single line.
	Remove(ctx context.Context, sessionID, key string) error
	// Clear empties the cart.
	Clear(ctx context.Context, sessionID string) error
}
