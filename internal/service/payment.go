package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"hotel-reservation-engine/internal/domain"
	"hotel-reservation-engine/internal/gateway"
	"hotel-reservation-engine/internal/logger"
	"hotel-reservation-engine/internal/repository"
)

// errAlreadyProcessed ends a unit of work that found the payment event
// already handled.
var errAlreadyProcessed = errors.New("payment already processed")

type paymentService struct {
	repos    repository.Repositories
	tx       repository.Transactor
	gateway  gateway.PaymentGateway
	notifier Notifier
	currency string
}

func NewPaymentService(repos repository.Repositories, tx repository.Transactor, gw gateway.PaymentGateway, notifier Notifier, currency string) PaymentService {
	return &paymentService{
		repos:    repos,
		tx:       tx,
		gateway:  gw,
		notifier: notifier,
		currency: currency,
	}
}

func (s *paymentService) InitiatePayment(ctx context.Context, bookingID int32, userID string) (string, error) {
	logger.EnterMethod("paymentService.InitiatePayment", "bookingID", bookingID, "userID", userID)

	booking, err := s.repos.Bookings.GetByID(ctx, bookingID)
	if errors.Is(err, domain.ErrNotFound) {
		return "", &domain.BookingAccessDeniedError{BookingID: bookingID}
	}
	if err != nil {
		return "", err
	}
	if !booking.IsOwnedBy(userID) {
		return "", &domain.BookingAccessDeniedError{BookingID: bookingID}
	}
	if booking.Status != domain.BookingStatusPending {
		return "", &domain.TransitionError{BookingID: bookingID, From: booking.Status, To: domain.BookingStatusPaid}
	}

	metadata := map[string]string{
		"booking_id": strconv.Itoa(int(booking.ID)),
		"user_id":    booking.UserID,
	}
	logger.ExternalServiceCall("PaymentGateway", "Initiate", "bookingID", bookingID, "amountCents", booking.TotalAmountCents)
	ref, err := s.gateway.Initiate(ctx, booking.TotalAmountCents, s.currency, metadata)
	logger.ExternalServiceResult("PaymentGateway", "Initiate", err, "bookingID", bookingID)
	if err != nil {
		return "", fmt.Errorf("%w: initiate payment for booking %d: %v", domain.ErrExternalFailure, bookingID, err)
	}
	return ref, nil
}

func (s *paymentService) ConfirmPayment(ctx context.Context, bookingID int32, sessionRef string) (domain.ConfirmOutcome, error) {
	return s.confirm(ctx, bookingID, sessionRef, "")
}

func (s *paymentService) confirm(ctx context.Context, bookingID int32, sessionRef, intentRef string) (domain.ConfirmOutcome, error) {
	logger.EnterMethod("paymentService.ConfirmPayment", "bookingID", bookingID, "session", sessionRef)

	if strings.TrimSpace(sessionRef) == "" {
		return "", domain.InvalidArgument("session reference is required")
	}

	booking, err := s.repos.Bookings.GetByID(ctx, bookingID)
	if errors.Is(err, domain.ErrNotFound) {
		logger.Warn("Payment confirmed for unknown booking", "bookingID", bookingID, "session", sessionRef)
		return domain.ConfirmOutcomeBookingNotFound, nil
	}
	if err != nil {
		return "", err
	}

	_, err = s.repos.Payments.GetSettledBySessionID(ctx, sessionRef)
	if err == nil {
		logger.Info("Duplicate payment confirmation", "bookingID", bookingID, "session", sessionRef)
		return domain.ConfirmOutcomeAlreadyProcessed, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return "", err
	}
	if booking.Status != domain.BookingStatusPending {
		return s.settleLatePayment(ctx, bookingID, sessionRef, intentRef)
	}

	notes := fmt.Sprintf("payment confirmed (session %s)", sessionRef)
	err = s.tx.WithinTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
		b, err := tx.Bookings.GetByID(ctx, bookingID)
		if err != nil {
			return err
		}
		if b.Status != domain.BookingStatusPending {
			return errAlreadyProcessed
		}
		if err := applyTransition(ctx, tx, b, domain.BookingStatusPaid, domain.ActorSystem, notes); err != nil {
			return err
		}
		if err := tx.Payments.Create(ctx, s.completedPayment(b, sessionRef, intentRef)); err != nil {
			return err
		}
		booking = b
		return nil
	})

	switch {
	case err == nil:
	case errors.Is(err, domain.ErrDuplicatePayment):
		logger.Info("Payment confirmation raced with another delivery", "bookingID", bookingID, "session", sessionRef)
		return domain.ConfirmOutcomeAlreadyProcessed, nil
	case errors.Is(err, errAlreadyProcessed), errors.Is(err, domain.ErrConcurrencyConflict):
		// Another delivery moved the booking first; it may have used a different session.
		return s.settleLatePayment(ctx, bookingID, sessionRef, intentRef)
	default:
		logger.ExitMethodWithError("paymentService.ConfirmPayment", err, "bookingID", bookingID)
		return "", err
	}

	logger.Info("Payment confirmed", "bookingID", bookingID, "session", sessionRef, "amountCents", booking.TotalAmountCents)
	dispatch(ctx, s.notifier, domain.BookingEventPaid, booking, domain.ActorSystem, notes)
	return domain.ConfirmOutcomeConfirmed, nil
}

func (s *paymentService) completedPayment(b *domain.Booking, sessionRef, intentRef string) *domain.BookingPayment {
	payment := &domain.BookingPayment{
		BookingID:         b.ID,
		ExternalSessionID: &sessionRef,
		AmountCents:       b.TotalAmountCents,
		Currency:          s.currency,
		PaymentStatus:     domain.PaymentStatusCompleted,
		TransactionDate:   time.Now().UTC(),
	}
	if intentRef != "" {
		payment.ExternalIntentID = &intentRef
	}
	return payment
}

// settleLatePayment handles money captured for a booking that is no longer
// PENDING: expired holds, cancellations and second checkouts. The capture is
// recorded, then handed back through the gateway. If the refund fails the row
// stays COMPLETED for reconciliation.
func (s *paymentService) settleLatePayment(ctx context.Context, bookingID int32, sessionRef, intentRef string) (domain.ConfirmOutcome, error) {
	booking, err := s.repos.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return "", err
	}
	if booking.Status == domain.BookingStatusPending {
		return "", domain.ErrConcurrencyConflict
	}

	payment := s.completedPayment(booking, sessionRef, intentRef)
	err = s.tx.WithinTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
		return tx.Payments.Create(ctx, payment)
	})
	if errors.Is(err, domain.ErrDuplicatePayment) {
		logger.Info("Duplicate payment confirmation", "bookingID", bookingID, "session", sessionRef)
		return domain.ConfirmOutcomeAlreadyProcessed, nil
	}
	if err != nil {
		return "", err
	}

	logger.Warn("Payment captured for a booking that is no longer pending, refunding",
		"bookingID", bookingID, "status", booking.Status, "session", sessionRef, "paymentID", payment.ID)
	if err := s.refund(ctx, payment); err != nil {
		logger.Error("Refund of late payment failed, reconcile manually",
			"bookingID", bookingID, "paymentID", payment.ID, "ref", payment.GatewayRef(), "error", err)
		return domain.ConfirmOutcomeAlreadyProcessed, nil
	}
	if err := s.repos.Payments.UpdateStatus(ctx, payment.ID, domain.PaymentStatusRefunded); err != nil {
		logger.Error("Late payment refunded but not marked, reconcile manually",
			"bookingID", bookingID, "paymentID", payment.ID, "error", err)
	}
	return domain.ConfirmOutcomeAlreadyProcessed, nil
}

// refund returns payment through the gateway. The payment id keys the call so
// concurrent or retried refunds of one payment collapse into one.
func (s *paymentService) refund(ctx context.Context, payment *domain.BookingPayment) error {
	ref := payment.GatewayRef()
	logger.ExternalServiceCall("PaymentGateway", "Refund", "bookingID", payment.BookingID, "ref", ref, "amountCents", payment.AmountCents)
	err := s.gateway.Refund(ctx, ref, payment.AmountCents, refundKey(payment.ID))
	logger.ExternalServiceResult("PaymentGateway", "Refund", err, "bookingID", payment.BookingID)
	return err
}

func refundKey(paymentID int32) string {
	return fmt.Sprintf("refund-%d", paymentID)
}

func (s *paymentService) RecordPaymentFailure(ctx context.Context, bookingID int32, sessionRef, reason string) (domain.ConfirmOutcome, error) {
	return s.recordFailure(ctx, bookingID, sessionRef, "", reason)
}

// recordFailure stores a FAILED attempt. The session stays open for a later
// successful charge; only a redelivery of the same attempt is a no-op.
func (s *paymentService) recordFailure(ctx context.Context, bookingID int32, sessionRef, intentRef, reason string) (domain.ConfirmOutcome, error) {
	if strings.TrimSpace(sessionRef) == "" {
		return "", domain.InvalidArgument("session reference is required")
	}

	booking, err := s.repos.Bookings.GetByID(ctx, bookingID)
	if errors.Is(err, domain.ErrNotFound) {
		logger.Warn("Payment failure for unknown booking", "bookingID", bookingID, "session", sessionRef)
		return domain.ConfirmOutcomeBookingNotFound, nil
	}
	if err != nil {
		return "", err
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
		attempts, err := tx.Payments.ListBySessionID(ctx, sessionRef)
		if err != nil {
			return err
		}
		for _, p := range attempts {
			if p.PaymentStatus.Settled() || sameIntent(p.ExternalIntentID, intentRef) {
				return errAlreadyProcessed
			}
		}

		payment := &domain.BookingPayment{
			BookingID:         booking.ID,
			ExternalSessionID: &sessionRef,
			AmountCents:       booking.TotalAmountCents,
			Currency:          s.currency,
			PaymentStatus:     domain.PaymentStatusFailed,
			TransactionDate:   time.Now().UTC(),
		}
		if intentRef != "" {
			payment.ExternalIntentID = &intentRef
		}
		return tx.Payments.Create(ctx, payment)
	})
	if errors.Is(err, errAlreadyProcessed) {
		logger.Info("Duplicate payment failure", "bookingID", bookingID, "session", sessionRef)
		return domain.ConfirmOutcomeAlreadyProcessed, nil
	}
	if err != nil {
		return "", err
	}

	logger.Info("Payment failure recorded", "bookingID", bookingID, "session", sessionRef, "reason", reason)
	return domain.ConfirmOutcomeFailureRecorded, nil
}

func sameIntent(stored *string, intentRef string) bool {
	if stored == nil {
		return intentRef == ""
	}
	return *stored == intentRef
}

func (s *paymentService) HandleNotification(ctx context.Context, n domain.PaymentNotification) (domain.ConfirmOutcome, error) {
	switch n.Type {
	case domain.PaymentEventSucceeded:
		return s.confirm(ctx, n.BookingID, n.SessionID, n.IntentID)
	case domain.PaymentEventFailed:
		return s.recordFailure(ctx, n.BookingID, n.SessionID, n.IntentID, n.Reason)
	default:
		return "", domain.InvalidArgument("unsupported payment event %q", n.Type)
	}
}

func (s *paymentService) RefundAndCancel(ctx context.Context, bookingID int32, adminID string) (bool, error) {
	logger.EnterMethod("paymentService.RefundAndCancel", "bookingID", bookingID, "adminID", adminID)

	if adminID == "" {
		adminID = domain.ActorSystem
	}

	booking, err := s.repos.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return false, err
	}
	if booking.Status != domain.BookingStatusPaid {
		return false, fmt.Errorf("%w: booking %d is %s, only PAID bookings can be refunded",
			domain.ErrInvalidTransition, bookingID, booking.Status)
	}
	payment, err := s.repos.Payments.GetCompletedByBooking(ctx, bookingID)
	if err != nil {
		return false, err
	}

	// The gateway call cannot be rolled back, so it runs before the unit of work.
	ref := payment.GatewayRef()
	if err := s.refund(ctx, payment); err != nil {
		return false, fmt.Errorf("%w: refund for booking %d: %v", domain.ErrExternalFailure, bookingID, err)
	}

	notes := fmt.Sprintf("refunded %d %s (ref %s)", payment.AmountCents, payment.Currency, ref)
	err = s.tx.WithinTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
		if err := applyTransition(ctx, tx, booking, domain.BookingStatusCancelled, adminID, notes); err != nil {
			return err
		}
		return tx.Payments.UpdateStatus(ctx, payment.ID, domain.PaymentStatusRefunded)
	})
	if errors.Is(err, domain.ErrConcurrencyConflict) {
		// A concurrent refund of the same payment replayed at the gateway and
		// committed first.
		current, gerr := s.repos.Bookings.GetByID(ctx, bookingID)
		if gerr == nil && current.Status == domain.BookingStatusCancelled {
			logger.Info("Booking already refunded by a concurrent request", "bookingID", bookingID, "paymentID", payment.ID)
			return false, nil
		}
	}
	if err != nil {
		logger.Error("Refund issued but booking was not cancelled, reconcile manually",
			"bookingID", bookingID, "ref", ref, "error", err)
		return false, err
	}

	logger.Info("Booking refunded and cancelled", "bookingID", bookingID, "adminID", adminID)
	dispatch(ctx, s.notifier, domain.BookingEventCancelled, booking, adminID, notes)
	return true, nil
}
