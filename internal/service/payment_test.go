package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"hotel-reservation-engine/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestPaymentService_ConfirmPayment(t *testing.T) {
	ctx := context.Background()

	t.Run("Confirms once", func(t *testing.T) {
		f := newFixture(t)
		b := f.book(t, "owner", stayDay(0), stayDay(3))
		notifier := new(MockNotifier)
		notifier.On("Notify", mock.Anything, eventOfType(domain.BookingEventPaid)).Return(nil).Once()
		svc := f.payments(nil, notifier)

		outcome, err := svc.ConfirmPayment(ctx, b.ID, "cs_123")
		require.NoError(t, err)
		assert.Equal(t, domain.ConfirmOutcomeConfirmed, outcome)

		outcome, err = svc.ConfirmPayment(ctx, b.ID, "cs_123")
		require.NoError(t, err)
		assert.Equal(t, domain.ConfirmOutcomeAlreadyProcessed, outcome)

		stored, err := f.store.Bookings.GetByID(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.BookingStatusPaid, stored.Status)

		payments, err := f.store.Payments.ListByBooking(ctx, b.ID)
		require.NoError(t, err)
		require.Len(t, payments, 1)
		assert.Equal(t, domain.PaymentStatusCompleted, payments[0].PaymentStatus)
		assert.Equal(t, int64(30000), payments[0].AmountCents)
		assert.Equal(t, "USD", payments[0].Currency)
		assert.Equal(t, "cs_123", payments[0].GatewayRef())

		entries := f.history(t, b.ID)
		assert.Equal(t, 1, countTransitions(entries, domain.BookingStatusPending, domain.BookingStatusPaid))
		assert.Contains(t, entries[len(entries)-1].Notes, "cs_123")
		assert.Equal(t, domain.ActorSystem, entries[len(entries)-1].ChangedByUserID)
		notifier.AssertExpectations(t)
	})

	t.Run("Second checkout on a paid booking is refunded", func(t *testing.T) {
		f := newFixture(t)
		b := f.book(t, "owner", stayDay(0), stayDay(3))
		gw := new(MockGateway)
		gw.On("Refund", mock.Anything, "cs_2", int64(30000), "refund-2").Return(nil).Once()
		svc := f.payments(gw, nil)

		_, err := svc.ConfirmPayment(ctx, b.ID, "cs_1")
		require.NoError(t, err)
		outcome, err := svc.ConfirmPayment(ctx, b.ID, "cs_2")
		require.NoError(t, err)
		assert.Equal(t, domain.ConfirmOutcomeAlreadyProcessed, outcome)

		payments, err := f.store.Payments.ListByBooking(ctx, b.ID)
		require.NoError(t, err)
		require.Len(t, payments, 2)
		assert.Equal(t, domain.PaymentStatusCompleted, payments[0].PaymentStatus)
		assert.Equal(t, domain.PaymentStatusRefunded, payments[1].PaymentStatus)

		outcome, err = svc.ConfirmPayment(ctx, b.ID, "cs_2")
		require.NoError(t, err)
		assert.Equal(t, domain.ConfirmOutcomeAlreadyProcessed, outcome)
		assert.Equal(t, 1, countTransitions(f.history(t, b.ID), domain.BookingStatusPending, domain.BookingStatusPaid))
		gw.AssertExpectations(t)
	})

	t.Run("Concurrent deliveries confirm exactly once", func(t *testing.T) {
		f := newFixture(t)
		b := f.book(t, "owner", stayDay(0), stayDay(3))
		svc := f.payments(nil, nil)

		const deliveries = 8
		outcomes := make([]domain.ConfirmOutcome, deliveries)
		var wg sync.WaitGroup
		for i := 0; i < deliveries; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				outcome, err := svc.ConfirmPayment(ctx, b.ID, "cs_dup")
				assert.NoError(t, err)
				outcomes[i] = outcome
			}(i)
		}
		wg.Wait()

		confirmed := 0
		for _, o := range outcomes {
			if o == domain.ConfirmOutcomeConfirmed {
				confirmed++
			} else {
				assert.Equal(t, domain.ConfirmOutcomeAlreadyProcessed, o)
			}
		}
		assert.Equal(t, 1, confirmed)

		payments, err := f.store.Payments.ListByBooking(ctx, b.ID)
		require.NoError(t, err)
		assert.Len(t, payments, 1)
		assert.Equal(t, 1, countTransitions(f.history(t, b.ID), domain.BookingStatusPending, domain.BookingStatusPaid))
	})

	t.Run("Unknown booking is reported, not failed", func(t *testing.T) {
		f := newFixture(t)
		outcome, err := f.payments(nil, nil).ConfirmPayment(ctx, 404, "cs_x")
		assert.NoError(t, err)
		assert.Equal(t, domain.ConfirmOutcomeBookingNotFound, outcome)
	})

	t.Run("Cancelled booking is not revived and the capture is refunded", func(t *testing.T) {
		f := newFixture(t)
		b := f.book(t, "owner", stayDay(0), stayDay(3))
		_, err := f.reservations(nil).CancelReservation(ctx, b.ID, "owner")
		require.NoError(t, err)
		gw := new(MockGateway)
		gw.On("Refund", mock.Anything, "cs_late", int64(30000), "refund-1").Return(nil).Once()

		outcome, err := f.payments(gw, nil).ConfirmPayment(ctx, b.ID, "cs_late")
		require.NoError(t, err)
		assert.Equal(t, domain.ConfirmOutcomeAlreadyProcessed, outcome)

		stored, err := f.store.Bookings.GetByID(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.BookingStatusCancelled, stored.Status)

		payments, err := f.store.Payments.ListByBooking(ctx, b.ID)
		require.NoError(t, err)
		require.Len(t, payments, 1)
		assert.Equal(t, domain.PaymentStatusRefunded, payments[0].PaymentStatus)
		assert.Equal(t, int64(30000), payments[0].AmountCents)
		gw.AssertExpectations(t)
	})

	t.Run("Late capture stays on record when the refund fails", func(t *testing.T) {
		f := newFixture(t)
		b := f.book(t, "owner", stayDay(0), stayDay(3))
		_, err := f.reservations(nil).CancelReservation(ctx, b.ID, "owner")
		require.NoError(t, err)
		gw := new(MockGateway)
		gw.On("Refund", mock.Anything, "cs_late", int64(30000), mock.Anything).Return(errors.New("gateway timeout")).Once()

		outcome, err := f.payments(gw, nil).ConfirmPayment(ctx, b.ID, "cs_late")
		require.NoError(t, err)
		assert.Equal(t, domain.ConfirmOutcomeAlreadyProcessed, outcome)

		payments, err := f.store.Payments.ListByBooking(ctx, b.ID)
		require.NoError(t, err)
		require.Len(t, payments, 1)
		assert.Equal(t, domain.PaymentStatusCompleted, payments[0].PaymentStatus)

		outcome, err = f.payments(gw, nil).ConfirmPayment(ctx, b.ID, "cs_late")
		require.NoError(t, err)
		assert.Equal(t, domain.ConfirmOutcomeAlreadyProcessed, outcome)
		gw.AssertExpectations(t)
	})

	t.Run("Empty session reference", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.payments(nil, nil).ConfirmPayment(ctx, 1, "")
		assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	})

	t.Run("History failure leaves no payment", func(t *testing.T) {
		f := newFixture(t)
		b := f.book(t, "owner", stayDay(0), stayDay(3))
		svc := NewPaymentService(f.store.Repositories, failingHistoryTx{store: f.store}, new(MockGateway), nil, "USD")

		_, err := svc.ConfirmPayment(ctx, b.ID, "cs_1")
		assert.Error(t, err)

		stored, err := f.store.Bookings.GetByID(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.BookingStatusPending, stored.Status)
		payments, err := f.store.Payments.ListByBooking(ctx, b.ID)
		require.NoError(t, err)
		assert.Empty(t, payments)
	})
}

func TestPaymentService_RecordPaymentFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	b := f.book(t, "owner", stayDay(0), stayDay(3))
	svc := f.payments(nil, nil)

	outcome, err := svc.RecordPaymentFailure(ctx, b.ID, "cs_fail", "card declined")
	require.NoError(t, err)
	assert.Equal(t, domain.ConfirmOutcomeFailureRecorded, outcome)

	outcome, err = svc.RecordPaymentFailure(ctx, b.ID, "cs_fail", "card declined")
	require.NoError(t, err)
	assert.Equal(t, domain.ConfirmOutcomeAlreadyProcessed, outcome)

	payments, err := f.store.Payments.ListByBooking(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, domain.PaymentStatusFailed, payments[0].PaymentStatus)

	stored, err := f.store.Bookings.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusPending, stored.Status)
	assert.Len(t, f.history(t, b.ID), 1)

	outcome, err = svc.ConfirmPayment(ctx, b.ID, "cs_fail")
	require.NoError(t, err)
	assert.Equal(t, domain.ConfirmOutcomeConfirmed, outcome)

	stored, err = f.store.Bookings.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusPaid, stored.Status)

	outcome, err = svc.RecordPaymentFailure(ctx, b.ID, "cs_fail", "card declined")
	require.NoError(t, err)
	assert.Equal(t, domain.ConfirmOutcomeAlreadyProcessed, outcome)
}

func TestPaymentService_RetryWithinSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	b := f.book(t, "owner", stayDay(0), stayDay(3))
	svc := f.payments(nil, nil)

	notify := func(typ domain.PaymentEventType, intent string) domain.ConfirmOutcome {
		t.Helper()
		outcome, err := svc.HandleNotification(ctx, domain.PaymentNotification{Type: typ, BookingID: b.ID, SessionID: "cs_1", IntentID: intent})
		require.NoError(t, err)
		return outcome
	}

	assert.Equal(t, domain.ConfirmOutcomeFailureRecorded, notify(domain.PaymentEventFailed, "pi_1"))
	assert.Equal(t, domain.ConfirmOutcomeFailureRecorded, notify(domain.PaymentEventFailed, "pi_2"))
	assert.Equal(t, domain.ConfirmOutcomeAlreadyProcessed, notify(domain.PaymentEventFailed, "pi_2"))
	assert.Equal(t, domain.ConfirmOutcomeConfirmed, notify(domain.PaymentEventSucceeded, "pi_3"))
	assert.Equal(t, domain.ConfirmOutcomeAlreadyProcessed, notify(domain.PaymentEventSucceeded, "pi_3"))

	stored, err := f.store.Bookings.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusPaid, stored.Status)

	paid, err := f.store.Payments.GetCompletedByBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "pi_3", paid.GatewayRef())

	payments, err := f.store.Payments.ListByBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Len(t, payments, 3)
}

func TestPaymentService_HandleNotification(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	b := f.book(t, "owner", stayDay(0), stayDay(3))
	svc := f.payments(nil, nil)

	outcome, err := svc.HandleNotification(ctx, domain.PaymentNotification{Type: domain.PaymentEventFailed, BookingID: b.ID, SessionID: "cs_a", Reason: "expired card"})
	require.NoError(t, err)
	assert.Equal(t, domain.ConfirmOutcomeFailureRecorded, outcome)

	outcome, err = svc.HandleNotification(ctx, domain.PaymentNotification{Type: domain.PaymentEventSucceeded, BookingID: b.ID, SessionID: "cs_b", IntentID: "pi_b"})
	require.NoError(t, err)
	assert.Equal(t, domain.ConfirmOutcomeConfirmed, outcome)

	paid, err := f.store.Payments.GetCompletedByBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "pi_b", paid.GatewayRef())

	_, err = svc.HandleNotification(ctx, domain.PaymentNotification{Type: "payment.disputed", BookingID: b.ID, SessionID: "cs_c"})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestPaymentService_InitiatePayment(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	b := f.book(t, "owner", stayDay(0), stayDay(3))

	t.Run("Success", func(t *testing.T) {
		gw := new(MockGateway)
		gw.On("Initiate", mock.Anything, int64(30000), "USD", mock.MatchedBy(func(md map[string]string) bool {
			return md["user_id"] == "owner" && md["booking_id"] != ""
		})).Return("cs_new", nil).Once()

		ref, err := f.payments(gw, nil).InitiatePayment(ctx, b.ID, "owner")
		require.NoError(t, err)
		assert.Equal(t, "cs_new", ref)
		gw.AssertExpectations(t)
	})

	t.Run("Gateway failure", func(t *testing.T) {
		gw := new(MockGateway)
		gw.On("Initiate", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("timeout")).Once()

		_, err := f.payments(gw, nil).InitiatePayment(ctx, b.ID, "owner")
		assert.ErrorIs(t, err, domain.ErrExternalFailure)
	})

	t.Run("Not owner", func(t *testing.T) {
		_, err := f.payments(nil, nil).InitiatePayment(ctx, b.ID, "someone")
		var denied *domain.BookingAccessDeniedError
		assert.ErrorAs(t, err, &denied)
	})

	t.Run("Already paid", func(t *testing.T) {
		_, err := f.payments(nil, nil).ConfirmPayment(ctx, b.ID, "cs_paid")
		require.NoError(t, err)
		_, err = f.payments(nil, nil).InitiatePayment(ctx, b.ID, "owner")
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	})
}

func TestPaymentService_RefundAndCancel(t *testing.T) {
	ctx := context.Background()

	paidBooking := func(t *testing.T, f *fixture) *domain.Booking {
		b := f.book(t, "owner", stayDay(0), stayDay(3))
		outcome, err := f.payments(nil, nil).ConfirmPayment(ctx, b.ID, "cs_paid")
		require.NoError(t, err)
		require.Equal(t, domain.ConfirmOutcomeConfirmed, outcome)
		return b
	}

	t.Run("Refund then cancel", func(t *testing.T) {
		f := newFixture(t)
		b := paidBooking(t, f)
		gw := new(MockGateway)
		gw.On("Refund", mock.Anything, "cs_paid", int64(30000), "refund-1").Return(nil).Once()
		notifier := new(MockNotifier)
		notifier.On("Notify", mock.Anything, eventOfType(domain.BookingEventCancelled)).Return(nil).Once()

		ok, err := f.payments(gw, notifier).RefundAndCancel(ctx, b.ID, "admin-1")
		require.NoError(t, err)
		assert.True(t, ok)

		stored, err := f.store.Bookings.GetByID(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.BookingStatusCancelled, stored.Status)

		payments, err := f.store.Payments.ListByBooking(ctx, b.ID)
		require.NoError(t, err)
		require.Len(t, payments, 1)
		assert.Equal(t, domain.PaymentStatusRefunded, payments[0].PaymentStatus)

		entries := f.history(t, b.ID)
		last := entries[len(entries)-1]
		assert.Equal(t, domain.BookingStatusPaid, last.PreviousStatus)
		assert.Equal(t, domain.BookingStatusCancelled, last.NewStatus)
		assert.Contains(t, last.Notes, "refunded")
		assert.Equal(t, "admin-1", last.ChangedByUserID)
		gw.AssertExpectations(t)
		notifier.AssertExpectations(t)
	})

	t.Run("Gateway refusal changes nothing", func(t *testing.T) {
		f := newFixture(t)
		b := paidBooking(t, f)
		gw := new(MockGateway)
		gw.On("Refund", mock.Anything, "cs_paid", int64(30000), mock.Anything).Return(errors.New("insufficient balance")).Once()
		before := len(f.history(t, b.ID))

		ok, err := f.payments(gw, nil).RefundAndCancel(ctx, b.ID, "admin-1")
		assert.False(t, ok)
		assert.ErrorIs(t, err, domain.ErrExternalFailure)

		stored, err := f.store.Bookings.GetByID(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.BookingStatusPaid, stored.Status)
		assert.Len(t, f.history(t, b.ID), before)
	})

	t.Run("Pending booking cannot be refunded", func(t *testing.T) {
		f := newFixture(t)
		b := f.book(t, "owner", stayDay(0), stayDay(3))
		gw := new(MockGateway)

		ok, err := f.payments(gw, nil).RefundAndCancel(ctx, b.ID, "admin-1")
		assert.False(t, ok)
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
		gw.AssertNotCalled(t, "Refund", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Concurrent refunds cancel once", func(t *testing.T) {
		f := newFixture(t)
		b := paidBooking(t, f)
		gw := new(MockGateway)
		var (
			svc      PaymentService
			innerOK  bool
			innerErr error
		)
		// The second request arrives while the first waits on the gateway.
		gw.On("Refund", mock.Anything, "cs_paid", int64(30000), "refund-1").Run(func(mock.Arguments) {
			innerOK, innerErr = svc.RefundAndCancel(ctx, b.ID, "admin-2")
		}).Return(nil).Once()
		gw.On("Refund", mock.Anything, "cs_paid", int64(30000), "refund-1").Return(nil).Once()
		svc = f.payments(gw, nil)

		ok, err := svc.RefundAndCancel(ctx, b.ID, "admin-1")
		require.NoError(t, err)
		require.NoError(t, innerErr)
		assert.False(t, ok)
		assert.True(t, innerOK)

		stored, err := f.store.Bookings.GetByID(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.BookingStatusCancelled, stored.Status)
		assert.Equal(t, 1, countTransitions(f.history(t, b.ID), domain.BookingStatusPaid, domain.BookingStatusCancelled))
		gw.AssertExpectations(t)
	})

	t.Run("Missing booking", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.payments(nil, nil).RefundAndCancel(ctx, 31337, "admin-1")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}
