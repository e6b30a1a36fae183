package service

import (
	"context"
	"time"

	"hotel-reservation-engine/internal/domain"
	"hotel-reservation-engine/internal/logger"
	"hotel-reservation-engine/internal/repository"
	"hotel-reservation-engine/internal/utils"
)

type availabilityService struct {
	roomRepo    repository.RoomRepository
	bookingRepo repository.BookingRepository
}

func NewAvailabilityService(roomRepo repository.RoomRepository, bookingRepo repository.BookingRepository) AvailabilityService {
	return &availabilityService{
		roomRepo:    roomRepo,
		bookingRepo: bookingRepo,
	}
}

// stayRange validates and normalizes a requested stay.
func stayRange(roomID int32, checkIn, checkOut time.Time) (time.Time, time.Time, error) {
	if roomID <= 0 {
		return time.Time{}, time.Time{}, domain.InvalidArgument("room id must be positive, got %d", roomID)
	}
	in, out := utils.NormalizeDate(checkIn), utils.NormalizeDate(checkOut)
	if !in.Before(out) {
		return time.Time{}, time.Time{}, domain.InvalidArgument("check-in %s must be before check-out %s", utils.FormatDate(in), utils.FormatDate(out))
	}
	return in, out, nil
}

// roomIsFree reports whether no non-cancelled booking overlaps [in, out).
func roomIsFree(ctx context.Context, bookings repository.BookingRepository, roomID int32, in, out time.Time, excludeBookingID *int32) (bool, error) {
	overlapping, err := bookings.ListOverlapping(ctx, roomID, in, out, excludeBookingID)
	if err != nil {
		return false, err
	}
	return len(overlapping) == 0, nil
}

func (s *availabilityService) IsAvailable(ctx context.Context, roomID int32, checkIn, checkOut time.Time, excludeBookingID *int32) (bool, error) {
	in, out, err := stayRange(roomID, checkIn, checkOut)
	if err != nil {
		return false, err
	}

	if excludeBookingID == nil {
		room, err := s.roomRepo.GetByID(ctx, roomID)
		if err != nil {
			return false, err
		}
		if !room.IsAvailable {
			logger.Debug("Room administratively unavailable", "roomID", roomID)
			return false, nil
		}
	}

	return roomIsFree(ctx, s.bookingRepo, roomID, in, out, excludeBookingID)
}

func (s *availabilityService) IsRoomAvailable(ctx context.Context, roomID int32, checkIn, checkOut time.Time) (bool, error) {
	return s.IsAvailable(ctx, roomID, checkIn, checkOut, nil)
}

func (s *availabilityService) GetOverlappingBookings(ctx context.Context, roomID int32, checkIn, checkOut time.Time, excludeBookingID *int32) ([]domain.Booking, error) {
	in, out, err := stayRange(roomID, checkIn, checkOut)
	if err != nil {
		return nil, err
	}
	return s.bookingRepo.ListOverlapping(ctx, roomID, in, out, excludeBookingID)
}
