package service

import (
	"context"
	"time"

	"hotel-reservation-engine/internal/domain"
)

type AvailabilityService interface {
	// IsAvailable reports whether [checkIn, checkOut) is free on the room.
	// The administrative flag is only consulted when excludeBookingID is nil.
	IsAvailable(ctx context.Context, roomID int32, checkIn, checkOut time.Time, excludeBookingID *int32) (bool, error)
	IsRoomAvailable(ctx context.Context, roomID int32, checkIn, checkOut time.Time) (bool, error)
	GetOverlappingBookings(ctx context.Context, roomID int32, checkIn, checkOut time.Time, excludeBookingID *int32) ([]domain.Booking, error)
}

type CreateReservationRequest struct {
	UserID          string
	RoomID          int32
	CheckIn         time.Time
	CheckOut        time.Time
	NumberOfGuests  int32
	SpecialRequests *string
}

type ReservationService interface {
	CreateReservation(ctx context.Context, req CreateReservationRequest) (*domain.Booking, error)
	CancelReservation(ctx context.Context, bookingID int32, userID string) (bool, error)
	AdminCancelReservation(ctx context.Context, bookingID int32, adminID, reason string) (bool, error)
	CompleteStay(ctx context.Context, bookingID int32, actor string) (bool, error)
	CalculateTotalAmount(ctx context.Context, roomID int32, checkIn, checkOut time.Time) (int64, error)
	GetReservation(ctx context.Context, bookingID int32, userID string) (*domain.Booking, error)
	GetReservationHistory(ctx context.Context, bookingID int32, userID string) ([]domain.BookingStatusHistory, error)
	ListReservations(ctx context.Context, userID string, page, pageSize int32) ([]domain.Booking, int32, error)
}

type PaymentService interface {
	// InitiatePayment opens a gateway checkout session for a pending booking
	// and returns the session reference.
	InitiatePayment(ctx context.Context, bookingID int32, userID string) (string, error)
	ConfirmPayment(ctx context.Context, bookingID int32, sessionRef string) (domain.ConfirmOutcome, error)
	RecordPaymentFailure(ctx context.Context, bookingID int32, sessionRef, reason string) (domain.ConfirmOutcome, error)
	HandleNotification(ctx context.Context, n domain.PaymentNotification) (domain.ConfirmOutcome, error)
	RefundAndCancel(ctx context.Context, bookingID int32, adminID string) (bool, error)
}

type MaintenanceService interface {
	CompleteFinishedStays(ctx context.Context) (int, error)
	ExpireUnpaidBookings(ctx context.Context) (int, error)
}

// Notifier is told about committed transitions. Errors are logged by the
// caller and never affect the transition.
type Notifier interface {
	Notify(ctx context.Context, event domain.BookingEvent) error
}
