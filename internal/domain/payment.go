package domain

import "time"

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
	PaymentStatusRefunded  PaymentStatus = "REFUNDED"
)

// Settled reports whether money moved for the payment. Only settled rows
// claim their session and intent references; failed attempts may repeat them.
func (s PaymentStatus) Settled() bool {
	return s == PaymentStatusCompleted || s == PaymentStatusRefunded
}

type BookingPayment struct {
	ID                int32         `json:"id"`
	BookingID         int32         `json:"booking_id"`
	ExternalSessionID *string       `json:"external_session_id,omitempty"`
	ExternalIntentID  *string       `json:"external_intent_id,omitempty"`
	AmountCents       int64         `json:"amount_cents"`
	Currency          string        `json:"currency"`
	PaymentStatus     PaymentStatus `json:"payment_status"`
	TransactionDate   time.Time     `json:"transaction_date"`
}

// GatewayRef is the handle the payment gateway accepts for refunds. The
// intent id wins over the checkout session id when both are known.
func (p *BookingPayment) GatewayRef() string {
	if p.ExternalIntentID != nil && *p.ExternalIntentID != "" {
		return *p.ExternalIntentID
	}
	if p.ExternalSessionID != nil {
		return *p.ExternalSessionID
	}
	return ""
}

type PaymentEventType string

const (
	PaymentEventSucceeded PaymentEventType = "payment.succeeded"
	PaymentEventFailed    PaymentEventType = "payment.failed"
)

// PaymentNotification is the gateway's asynchronous result for a checkout
// session.
type PaymentNotification struct {
	Type      PaymentEventType `json:"type"`
	BookingID int32            `json:"booking_id"`
	SessionID string           `json:"session_id"`
	IntentID  string           `json:"intent_id,omitempty"`
	Reason    string           `json:"reason,omitempty"`
}

// ConfirmOutcome distinguishes idempotent no-ops from real confirmations.
type ConfirmOutcome string

const (
	ConfirmOutcomeConfirmed        ConfirmOutcome = "CONFIRMED"
	ConfirmOutcomeAlreadyProcessed ConfirmOutcome = "ALREADY_PROCESSED"
	ConfirmOutcomeBookingNotFound  ConfirmOutcome = "BOOKING_NOT_FOUND"
	ConfirmOutcomeFailureRecorded  ConfirmOutcome = "FAILURE_RECORDED"
)
