package http

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"

	"hotel-reservation-engine/internal/domain"
	"hotel-reservation-engine/internal/logger"
	"hotel-reservation-engine/internal/service"
)

const (
	SignatureHeader  = "X-Payment-Signature"
	DeliveryIDHeader = "X-Payment-Delivery"

	maxWebhookBody = 64 << 10
)

// DeliveryGuard short-circuits redelivered webhooks. A delivery is
// remembered only after it was processed, so a crash mid-delivery leaves it
// open for the gateway's retry.
type DeliveryGuard interface {
	Seen(ctx context.Context, deliveryID string) (bool, error)
	Remember(ctx context.Context, deliveryID string) error
}

type webhookResponse struct {
	Outcome domain.ConfirmOutcome `json:"outcome"`
}

// WebhookHandler receives payment results from the gateway. No-op outcomes
// answer 200 so the gateway stops retrying; only failures a retry can fix
// answer 5xx.
type WebhookHandler struct {
	payments service.PaymentService
	guard    DeliveryGuard
	secret   []byte
}

func NewWebhookHandler(payments service.PaymentService, guard DeliveryGuard, secret string) *WebhookHandler {
	return &WebhookHandler{
		payments: payments,
		guard:    guard,
		secret:   []byte(secret),
	}
}

// Sign returns the hex HMAC-SHA256 of body, as sent in SignatureHeader.
func Sign(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func (h *WebhookHandler) verify(body []byte, signature string) bool {
	got, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, h.secret)
	mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}

func (h *WebhookHandler) HandlePayment(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "payload too large"})
		return
	}
	if !h.verify(body, r.Header.Get(SignatureHeader)) {
		logger.Warn("Rejected payment webhook with bad signature", "requestID", RequestIDFromContext(r.Context()))
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid signature"})
		return
	}

	var notification domain.PaymentNotification
	if err := json.Unmarshal(body, &notification); err != nil {
		writeError(w, r, domain.InvalidArgument("malformed notification: %v", err))
		return
	}

	deliveryID := r.Header.Get(DeliveryIDHeader)
	if h.guard != nil {
		seen, err := h.guard.Seen(r.Context(), deliveryID)
		if err != nil {
			logger.Warn("Delivery guard unavailable", "deliveryID", deliveryID, "error", err)
		} else if seen {
			logger.Info("Duplicate webhook delivery", "deliveryID", deliveryID, "bookingID", notification.BookingID)
			writeJSON(w, http.StatusOK, webhookResponse{Outcome: domain.ConfirmOutcomeAlreadyProcessed})
			return
		}
	}

	outcome, err := h.payments.HandleNotification(r.Context(), notification)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if h.guard != nil {
		if err := h.guard.Remember(context.WithoutCancel(r.Context()), deliveryID); err != nil {
			logger.Warn("Failed to remember webhook delivery", "deliveryID", deliveryID, "error", err)
		}
	}
	logger.Info("Payment webhook processed", "deliveryID", deliveryID, "bookingID", notification.BookingID, "outcome", outcome)
	writeJSON(w, http.StatusOK, webhookResponse{Outcome: outcome})
}
