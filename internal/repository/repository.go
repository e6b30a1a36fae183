package repository

import (
	"context"
	"time"

	"hotel-reservation-engine/internal/domain"
)

// Implementations return errors wrapping the domain kinds: domain.ErrNotFound
// for missing rows, domain.ErrRoomUnavailable when an insert would overlap a
// non-cancelled booking, domain.ErrConcurrencyConflict on a stale version,
// domain.ErrDuplicatePayment when a settled payment reuses the session or
// intent reference of another settled payment.

type RoomRepository interface {
	GetByID(ctx context.Context, id int32) (*domain.Room, error)
}

type BookingRepository interface {
	Create(ctx context.Context, booking *domain.Booking) error
	GetByID(ctx context.Context, id int32) (*domain.Booking, error)
	// UpdateStatus writes booking.Status when the stored version still equals
	// booking.Version, then bumps booking.Version.
	UpdateStatus(ctx context.Context, booking *domain.Booking) error
	ListOverlapping(ctx context.Context, roomID int32, checkIn, checkOut time.Time, excludeBookingID *int32) ([]domain.Booking, error)
	ListByUser(ctx context.Context, userID string, page, pageSize int32) ([]domain.Booking, int32, error)
	ListByStatusCheckOutBefore(ctx context.Context, status domain.BookingStatus, before time.Time, limit int32) ([]domain.Booking, error)
	ListPendingCreatedBefore(ctx context.Context, before time.Time, limit int32) ([]domain.Booking, error)
}

type PaymentRepository interface {
	Create(ctx context.Context, payment *domain.BookingPayment) error
	// GetSettledBySessionID returns the COMPLETED or REFUNDED payment recorded
	// under sessionID. Failed attempts are ignored.
	GetSettledBySessionID(ctx context.Context, sessionID string) (*domain.BookingPayment, error)
	ListBySessionID(ctx context.Context, sessionID string) ([]domain.BookingPayment, error)
	GetCompletedByBooking(ctx context.Context, bookingID int32) (*domain.BookingPayment, error)
	ListByBooking(ctx context.Context, bookingID int32) ([]domain.BookingPayment, error)
	UpdateStatus(ctx context.Context, id int32, status domain.PaymentStatus) error
}

type StatusHistoryRepository interface {
	Append(ctx context.Context, entry *domain.BookingStatusHistory) error
	ListByBooking(ctx context.Context, bookingID int32) ([]domain.BookingStatusHistory, error)
}

// Repositories bundles the repositories bound to one connection or one
// transaction.
type Repositories struct {
	Rooms    RoomRepository
	Bookings BookingRepository
	Payments PaymentRepository
	History  StatusHistoryRepository
}

// Transactor runs fn in a single atomic unit of work. The transaction commits
// when fn returns nil and rolls back on error, panic or context cancellation.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Repositories) error) error
}
