package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"hotel-reservation-engine/internal/logger"

	"github.com/google/uuid"
)

var (
	ErrUnknownPayment  = errors.New("unknown payment reference")
	ErrAlreadyRefunded = errors.New("payment already refunded")
)

// MockGateway settles every checkout immediately and keeps refunds in memory.
// It is meant for local runs and tests.
type MockGateway struct {
	mu        sync.Mutex
	sessions  map[string]int64
	refunded  map[string]int64
	keys      map[string]string
	refundErr error
}

func NewMockGateway() *MockGateway {
	return &MockGateway{
		sessions: make(map[string]int64),
		refunded: make(map[string]int64),
		keys:     make(map[string]string),
	}
}

func (g *MockGateway) Initiate(ctx context.Context, amountCents int64, currency string, metadata map[string]string) (string, error) {
	if amountCents <= 0 {
		return "", fmt.Errorf("amount must be positive, got %d", amountCents)
	}
	ref := "cs_mock_" + uuid.New().String()

	g.mu.Lock()
	g.sessions[ref] = amountCents
	g.mu.Unlock()

	logger.ExternalServiceResult("MockGateway", "Initiate", nil, "sessionRef", ref, "amountCents", amountCents, "currency", currency, "bookingID", metadata["booking_id"])
	return ref, nil
}

// Refund accepts references it did not issue so that bookings paid before a
// restart can still be refunded.
func (g *MockGateway) Refund(ctx context.Context, paymentRef string, amountCents int64, idempotencyKey string) error {
	if paymentRef == "" {
		return ErrUnknownPayment
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.refundErr != nil {
		return g.refundErr
	}
	if prior, ok := g.keys[idempotencyKey]; ok && idempotencyKey != "" {
		if prior != paymentRef {
			return fmt.Errorf("idempotency key %s already used for %s", idempotencyKey, prior)
		}
		return nil
	}
	if _, ok := g.refunded[paymentRef]; ok {
		return ErrAlreadyRefunded
	}
	if captured, ok := g.sessions[paymentRef]; ok && amountCents > captured {
		return fmt.Errorf("refund of %d exceeds captured amount %d", amountCents, captured)
	}
	g.refunded[paymentRef] = amountCents
	if idempotencyKey != "" {
		g.keys[idempotencyKey] = paymentRef
	}
	return nil
}

// FailRefunds makes every subsequent Refund return err. Pass nil to recover.
func (g *MockGateway) FailRefunds(err error) {
	g.mu.Lock()
	g.refundErr = err
	g.mu.Unlock()
}

// RefundCount reports how many distinct refunds were issued.
func (g *MockGateway) RefundCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.refunded)
}

// RefundedAmount reports what was refunded for paymentRef.
func (g *MockGateway) RefundedAmount(paymentRef string) (int64, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	amount, ok := g.refunded[paymentRef]
	return amount, ok
}
