package checkout

import "errors"

// Checkout failures are routine, not exceptional: handlers branch on these
// with errors.Is and turn each into a user-recoverable response. Anything
// else bubbling out of the package is an internal error.
var (
	// ErrOutOfStock: some line's quantity exceeds available stock. The whole
	// operation aborts; nothing is persisted and the cart is untouched.
	ErrOutOfStock = errors.New("insufficient stock")
	// ErrEmptyCart: no resolvable lines were left after dropping stale ones.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrGatewayUnavailable: gateway payment is enabled but not configured.
	// Fails closed before any order exists.
	ErrGatewayUnavailable = errors.New("payment gateway not configured")
	// ErrGatewayError: the gateway rejected or timed out creating a session.
	// The order exists and has been marked failed; the user should retry,
	// which starts a fresh attempt.
	ErrGatewayError = errors.New("payment gateway error")
)
