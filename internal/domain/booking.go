package domain

import (
	"fmt"
	"time"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "PENDING"
	BookingStatusPaid      BookingStatus = "PAID"
	BookingStatusCancelled BookingStatus = "CANCELLED"
	BookingStatusCompleted BookingStatus = "COMPLETED"
)

// validTransitions is the booking state machine. Terminal states map to an
// empty list.
var validTransitions = map[BookingStatus][]BookingStatus{
	BookingStatusPending:   {BookingStatusPaid, BookingStatusCancelled, BookingStatusCompleted},
	BookingStatusPaid:      {BookingStatusCancelled, BookingStatusCompleted},
	BookingStatusCancelled: {},
	BookingStatusCompleted: {},
}

func (s BookingStatus) String() string {
	return string(s)
}

// IsValid returns true if the status is a recognized booking status.
func (s BookingStatus) IsValid() bool {
	_, ok := validTransitions[s]
	return ok
}

// CanTransitionTo reports whether moving from s to target is a legal transition.
func (s BookingStatus) CanTransitionTo(target BookingStatus) bool {
	for _, t := range validTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// IsTerminal returns true if no further transitions are possible.
func (s BookingStatus) IsTerminal() bool {
	return len(validTransitions[s]) == 0
}

// BlocksInventory reports whether a booking in this status occupies its room.
func (s BookingStatus) BlocksInventory() bool {
	return s != BookingStatusCancelled
}

func ParseBookingStatus(s string) (BookingStatus, error) {
	status := BookingStatus(s)
	if !status.IsValid() {
		return "", fmt.Errorf("%w: unknown booking status %q", ErrInvalidArgument, s)
	}
	return status, nil
}

type Booking struct {
	ID               int32         `json:"id"`
	RoomID           int32         `json:"room_id"`
	UserID           string        `json:"user_id"`
	CheckIn          time.Time     `json:"check_in"`
	CheckOut         time.Time     `json:"check_out"`
	NumberOfGuests   int32         `json:"number_of_guests"`
	TotalAmountCents int64         `json:"total_amount_cents"`
	Status           BookingStatus `json:"status"`
	SpecialRequests  *string       `json:"special_requests,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
	Version          int32         `json:"version"`
}

// Nights is the number of billable nights in the stay.
func (b *Booking) Nights() int {
	return NightsBetween(b.CheckIn, b.CheckOut)
}

// Overlaps reports whether the booking's stay intersects [checkIn, checkOut).
func (b *Booking) Overlaps(checkIn, checkOut time.Time) bool {
	return RangesOverlap(b.CheckIn, b.CheckOut, checkIn, checkOut)
}

// IsOwnedBy reports whether userID made the booking.
func (b *Booking) IsOwnedBy(userID string) bool {
	return b.UserID == userID
}
