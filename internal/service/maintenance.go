package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hotel-reservation-engine/internal/domain"
	"hotel-reservation-engine/internal/logger"
	"hotel-reservation-engine/internal/repository"
	"hotel-reservation-engine/internal/utils"
)

const maintenanceBatchSize = 200

type maintenanceService struct {
	repos       repository.Repositories
	tx          repository.Transactor
	notifier    Notifier
	paymentHold time.Duration
	now         func() time.Time
}

// NewMaintenanceService builds the service behind the scheduled jobs.
// paymentHold is how long a booking may stay PENDING before it is released.
func NewMaintenanceService(repos repository.Repositories, tx repository.Transactor, notifier Notifier, paymentHold time.Duration) MaintenanceService {
	return &maintenanceService{
		repos:       repos,
		tx:          tx,
		notifier:    notifier,
		paymentHold: paymentHold,
		now:         time.Now,
	}
}

// CompleteFinishedStays moves PAID bookings whose check-out date has arrived
// to COMPLETED.
func (s *maintenanceService) CompleteFinishedStays(ctx context.Context) (int, error) {
	today := utils.Today(s.now())
	bookings, err := s.repos.Bookings.ListByStatusCheckOutBefore(ctx, domain.BookingStatusPaid, today, maintenanceBatchSize)
	if err != nil {
		return 0, fmt.Errorf("list finished stays: %w", err)
	}
	return s.sweep(ctx, bookings, domain.BookingStatusPaid, domain.BookingStatusCompleted, domain.NoteStayCompleted, domain.BookingEventCompleted)
}

// ExpireUnpaidBookings cancels PENDING bookings older than the payment hold,
// releasing their rooms.
func (s *maintenanceService) ExpireUnpaidBookings(ctx context.Context) (int, error) {
	if s.paymentHold <= 0 {
		return 0, nil
	}
	cutoff := s.now().UTC().Add(-s.paymentHold)
	bookings, err := s.repos.Bookings.ListPendingCreatedBefore(ctx, cutoff, maintenanceBatchSize)
	if err != nil {
		return 0, fmt.Errorf("list expired holds: %w", err)
	}
	return s.sweep(ctx, bookings, domain.BookingStatusPending, domain.BookingStatusCancelled, domain.NoteHoldExpired, domain.BookingEventCancelled)
}

// sweep transitions each booking in its own unit of work. A booking that
// changed status since it was listed is skipped.
func (s *maintenanceService) sweep(ctx context.Context, bookings []domain.Booking, from, to domain.BookingStatus, notes string, eventType domain.BookingEventType) (int, error) {
	var errs []error
	count := 0
	for _, candidate := range bookings {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		booking, changed, err := moveBooking(ctx, s.tx, candidate.ID, to, domain.ActorSystem, notes, requireStatus(from))
		if err != nil {
			logger.Error("Failed to move booking", "bookingID", candidate.ID, "to", to, "error", err)
			errs = append(errs, fmt.Errorf("booking %d: %w", candidate.ID, err))
			continue
		}
		if !changed {
			continue
		}
		count++
		logger.Debug("Booking moved by maintenance", "bookingID", booking.ID, "from", from, "to", to)
		dispatch(ctx, s.notifier, eventType, booking, domain.ActorSystem, notes)
	}
	return count, errors.Join(errs...)
}
