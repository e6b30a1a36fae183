package queue

import (
	"time"

	"hotel-reservation-engine/internal/domain"
	"hotel-reservation-engine/internal/utils"
)

// BookingEventMessage is the JSON body published for every committed booking
// transition.
type BookingEventMessage struct {
	EventType        string `json:"event_type"`
	BookingID        int32  `json:"booking_id"`
	RoomID           int32  `json:"room_id"`
	UserID           string `json:"user_id"`
	Status           string `json:"status"`
	CheckIn          string `json:"check_in"`
	CheckOut         string `json:"check_out"`
	NumberOfGuests   int32  `json:"number_of_guests"`
	TotalAmountCents int64  `json:"total_amount_cents"`
	Actor            string `json:"actor"`
	Notes            string `json:"notes,omitempty"`
	OccurredAt       string `json:"occurred_at"`
}

func NewBookingEventMessage(event domain.BookingEvent) BookingEventMessage {
	b := event.Booking
	return BookingEventMessage{
		EventType:        string(event.Type),
		BookingID:        b.ID,
		RoomID:           b.RoomID,
		UserID:           b.UserID,
		Status:           b.Status.String(),
		CheckIn:          utils.FormatDate(b.CheckIn),
		CheckOut:         utils.FormatDate(b.CheckOut),
		NumberOfGuests:   b.NumberOfGuests,
		TotalAmountCents: b.TotalAmountCents,
		Actor:            event.Actor,
		Notes:            event.Notes,
		OccurredAt:       event.OccurredAt.UTC().Format(time.RFC3339),
	}
}
