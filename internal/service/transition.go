package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hotel-reservation-engine/internal/domain"
	"hotel-reservation-engine/internal/logger"
	"hotel-reservation-engine/internal/repository"
)

const notifyTimeout = 10 * time.Second

// errNoChange lets a guard end a unit of work without writing anything.
var errNoChange = errors.New("no change")

// applyTransition moves b to target and appends the matching history row. It
// must run inside a unit of work so both writes commit or neither does.
func applyTransition(ctx context.Context, tx repository.Repositories, b *domain.Booking, target domain.BookingStatus, actor, notes string) error {
	from := b.Status
	if !from.CanTransitionTo(target) {
		return &domain.TransitionError{BookingID: b.ID, From: from, To: target}
	}

	b.Status = target
	if err := tx.Bookings.UpdateStatus(ctx, b); err != nil {
		b.Status = from
		return err
	}

	return tx.History.Append(ctx, &domain.BookingStatusHistory{
		BookingID:       b.ID,
		PreviousStatus:  from,
		NewStatus:       target,
		ChangedByUserID: actor,
		ChangedAt:       time.Now().UTC(),
		Notes:           notes,
	})
}

// moveBooking loads the booking inside a unit of work and transitions it to
// target. guard runs first and may return errNoChange to skip the booking.
// Bookings already in a terminal state are left alone. changed reports
// whether a transition was committed.
func moveBooking(ctx context.Context, txr repository.Transactor, bookingID int32, target domain.BookingStatus, actor, notes string, guard func(*domain.Booking) error) (booking *domain.Booking, changed bool, err error) {
	err = txr.WithinTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
		b, err := tx.Bookings.GetByID(ctx, bookingID)
		if err != nil {
			return err
		}
		booking = b

		if guard != nil {
			if err := guard(b); err != nil {
				return err
			}
		}
		if b.Status.IsTerminal() {
			return errNoChange
		}
		if err := applyTransition(ctx, tx, b, target, actor, notes); err != nil {
			return err
		}
		changed = true
		return nil
	})
	if errors.Is(err, errNoChange) {
		return booking, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return booking, changed, nil
}

func ownedBy(userID string) func(*domain.Booking) error {
	return func(b *domain.Booking) error {
		if !b.IsOwnedBy(userID) {
			return &domain.BookingAccessDeniedError{BookingID: b.ID}
		}
		return nil
	}
}

// refundRequired keeps paid bookings out of plain cancellation. Money was
// captured, so PAID to CANCELLED goes through RefundAndCancel.
func refundRequired(b *domain.Booking) error {
	if b.Status == domain.BookingStatusPaid {
		return fmt.Errorf("%w: booking %d is paid and must be cancelled through a refund",
			domain.ErrInvalidTransition, b.ID)
	}
	return nil
}

func requireStatus(status domain.BookingStatus) func(*domain.Booking) error {
	return func(b *domain.Booking) error {
		if b.Status != status {
			return errNoChange
		}
		return nil
	}
}

// dispatch hands a committed transition to the notifier. The caller's
// cancellation does not apply; the notifier gets its own deadline.
func dispatch(ctx context.Context, n Notifier, eventType domain.BookingEventType, b *domain.Booking, actor, notes string) {
	if n == nil || b == nil {
		return
	}
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()

	event := domain.BookingEvent{
		Type:       eventType,
		Booking:    *b,
		Actor:      actor,
		Notes:      notes,
		OccurredAt: time.Now().UTC(),
	}
	if err := n.Notify(nctx, event); err != nil {
		logger.Warn("Booking notification failed", "type", eventType, "bookingID", b.ID, "error", err)
	}
}
