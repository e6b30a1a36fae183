package gateway

import "context"

// PaymentGateway is the external card processor. Implementations must be safe
// for concurrent use.
type PaymentGateway interface {
	// Initiate opens a checkout session for amountCents and returns the
	// session reference the gateway will echo back in its notification.
	Initiate(ctx context.Context, amountCents int64, currency string, metadata map[string]string) (string, error)

	// Refund returns amountCents against a previously captured payment.
	// Calls sharing idempotencyKey refund at most once; a repeat reports the
	// first call's result. A non-nil error means the refund did not happen.
	Refund(ctx context.Context, paymentRef string, amountCents int64, idempotencyKey string) error
}
