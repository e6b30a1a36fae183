package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"hotel-reservation-engine/internal/domain"
	"hotel-reservation-engine/internal/logger"
	"hotel-reservation-engine/internal/repository"
	"hotel-reservation-engine/internal/utils"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type reservationService struct {
	repos    repository.Repositories
	tx       repository.Transactor
	notifier Notifier
	now      func() time.Time
}

func NewReservationService(repos repository.Repositories, tx repository.Transactor, notifier Notifier) ReservationService {
	return &reservationService{
		repos:    repos,
		tx:       tx,
		notifier: notifier,
		now:      time.Now,
	}
}

func (s *reservationService) CreateReservation(ctx context.Context, req CreateReservationRequest) (*domain.Booking, error) {
	logger.EnterMethod("reservationService.CreateReservation", "userID", req.UserID, "roomID", req.RoomID,
		"checkIn", req.CheckIn, "checkOut", req.CheckOut, "guests", req.NumberOfGuests)

	if strings.TrimSpace(req.UserID) == "" {
		return nil, domain.InvalidArgument("user id is required")
	}
	if req.RoomID <= 0 {
		return nil, domain.InvalidArgument("room id must be positive, got %d", req.RoomID)
	}
	if req.NumberOfGuests <= 0 {
		return nil, domain.InvalidArgument("number of guests must be at least 1, got %d", req.NumberOfGuests)
	}
	checkIn, checkOut, err := stayRange(req.RoomID, req.CheckIn, req.CheckOut)
	if err != nil {
		return nil, err
	}
	if checkIn.Before(utils.Today(s.now())) {
		return nil, domain.InvalidArgument("check-in %s is in the past", utils.FormatDate(checkIn))
	}

	room, err := s.repos.Rooms.GetByID(ctx, req.RoomID)
	if err != nil {
		logger.ExitMethodWithError("reservationService.CreateReservation", err, "roomID", req.RoomID)
		return nil, err
	}
	if !room.IsAvailable {
		return nil, fmt.Errorf("%w: room %s is closed for booking", domain.ErrRoomUnavailable, room.RoomNumber)
	}
	free, err := roomIsFree(ctx, s.repos.Bookings, room.ID, checkIn, checkOut, nil)
	if err != nil {
		return nil, err
	}
	if !free {
		return nil, domain.ErrRoomUnavailable
	}
	if req.NumberOfGuests > room.MaxOccupancy {
		return nil, fmt.Errorf("%w: %d guests requested, room %s sleeps %d",
			domain.ErrCapacityExceeded, req.NumberOfGuests, room.RoomNumber, room.MaxOccupancy)
	}

	booking := &domain.Booking{
		RoomID:           room.ID,
		UserID:           req.UserID,
		CheckIn:          checkIn,
		CheckOut:         checkOut,
		NumberOfGuests:   req.NumberOfGuests,
		TotalAmountCents: room.PriceFor(domain.NightsBetween(checkIn, checkOut)),
		Status:           domain.BookingStatusPending,
		SpecialRequests:  req.SpecialRequests,
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
		free, err := roomIsFree(ctx, tx.Bookings, room.ID, checkIn, checkOut, nil)
		if err != nil {
			return err
		}
		if !free {
			return domain.ErrRoomUnavailable
		}
		if err := tx.Bookings.Create(ctx, booking); err != nil {
			return err
		}
		return tx.History.Append(ctx, &domain.BookingStatusHistory{
			BookingID:       booking.ID,
			PreviousStatus:  domain.BookingStatusPending,
			NewStatus:       domain.BookingStatusPending,
			ChangedByUserID: req.UserID,
			ChangedAt:       booking.CreatedAt,
			Notes:           domain.NoteCreated,
		})
	})
	if err != nil {
		if errors.Is(err, domain.ErrRoomUnavailable) {
			logger.Info("Room taken while booking", "roomID", room.ID, "checkIn", utils.FormatDate(checkIn))
		} else {
			logger.ExitMethodWithError("reservationService.CreateReservation", err, "roomID", room.ID)
		}
		return nil, err
	}

	logger.Info("Reservation created", "bookingID", booking.ID, "roomID", room.ID, "userID", req.UserID,
		"nights", booking.Nights(), "totalCents", booking.TotalAmountCents)
	return booking, nil
}

func (s *reservationService) CancelReservation(ctx context.Context, bookingID int32, userID string) (bool, error) {
	logger.EnterMethod("reservationService.CancelReservation", "bookingID", bookingID, "userID", userID)

	if strings.TrimSpace(userID) == "" {
		return false, domain.InvalidArgument("user id is required")
	}

	guard := func(b *domain.Booking) error {
		if err := ownedBy(userID)(b); err != nil {
			return err
		}
		return refundRequired(b)
	}
	booking, changed, err := moveBooking(ctx, s.tx, bookingID, domain.BookingStatusCancelled, userID, domain.NoteCancelledByUser, guard)
	if errors.Is(err, domain.ErrNotFound) {
		return false, &domain.BookingAccessDeniedError{BookingID: bookingID}
	}
	if err != nil {
		logger.ExitMethodWithError("reservationService.CancelReservation", err, "bookingID", bookingID)
		return false, err
	}
	if !changed {
		logger.Info("Cancellation skipped, booking already final", "bookingID", bookingID, "status", booking.Status)
		return false, nil
	}

	logger.Info("Reservation cancelled", "bookingID", bookingID, "userID", userID)
	dispatch(ctx, s.notifier, domain.BookingEventCancelled, booking, userID, domain.NoteCancelledByUser)
	return true, nil
}

func (s *reservationService) AdminCancelReservation(ctx context.Context, bookingID int32, adminID, reason string) (bool, error) {
	if strings.TrimSpace(adminID) == "" {
		return false, domain.InvalidArgument("admin id is required")
	}

	notes := "cancelled by admin"
	if reason != "" {
		notes += ": " + reason
	}
	booking, changed, err := moveBooking(ctx, s.tx, bookingID, domain.BookingStatusCancelled, adminID, notes, refundRequired)
	if err != nil {
		return false, err
	}
	if changed {
		logger.Info("Reservation cancelled by admin", "bookingID", bookingID, "adminID", adminID)
		dispatch(ctx, s.notifier, domain.BookingEventCancelled, booking, adminID, notes)
	}
	return changed, nil
}

func (s *reservationService) CompleteStay(ctx context.Context, bookingID int32, actor string) (bool, error) {
	if actor == "" {
		actor = domain.ActorSystem
	}
	booking, changed, err := moveBooking(ctx, s.tx, bookingID, domain.BookingStatusCompleted, actor, domain.NoteStayCompleted, nil)
	if err != nil {
		return false, err
	}
	if changed {
		dispatch(ctx, s.notifier, domain.BookingEventCompleted, booking, actor, domain.NoteStayCompleted)
	}
	return changed, nil
}

func (s *reservationService) CalculateTotalAmount(ctx context.Context, roomID int32, checkIn, checkOut time.Time) (int64, error) {
	in, out, err := stayRange(roomID, checkIn, checkOut)
	if err != nil {
		return 0, err
	}
	room, err := s.repos.Rooms.GetByID(ctx, roomID)
	if err != nil {
		return 0, err
	}
	return room.PriceFor(domain.NightsBetween(in, out)), nil
}

func (s *reservationService) GetReservation(ctx context.Context, bookingID int32, userID string) (*domain.Booking, error) {
	booking, err := s.repos.Bookings.GetByID(ctx, bookingID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, &domain.BookingAccessDeniedError{BookingID: bookingID}
	}
	if err != nil {
		return nil, err
	}
	if !booking.IsOwnedBy(userID) {
		return nil, &domain.BookingAccessDeniedError{BookingID: bookingID}
	}
	return booking, nil
}

func (s *reservationService) GetReservationHistory(ctx context.Context, bookingID int32, userID string) ([]domain.BookingStatusHistory, error) {
	if _, err := s.GetReservation(ctx, bookingID, userID); err != nil {
		return nil, err
	}
	return s.repos.History.ListByBooking(ctx, bookingID)
}

func (s *reservationService) ListReservations(ctx context.Context, userID string, page, pageSize int32) ([]domain.Booking, int32, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, 0, domain.InvalidArgument("user id is required")
	}
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return s.repos.Bookings.ListByUser(ctx, userID, page, pageSize)
}
