package domain

import "time"

type BookingEventType string

const (
	BookingEventPaid      BookingEventType = "booking.paid"
	BookingEventCancelled BookingEventType = "booking.cancelled"
	BookingEventCompleted BookingEventType = "booking.completed"
)

// BookingEvent describes a committed status transition.
type BookingEvent struct {
	Type       BookingEventType `json:"type"`
	Booking    Booking          `json:"booking"`
	Actor      string           `json:"actor"`
	Notes      string           `json:"notes,omitempty"`
	OccurredAt time.Time        `json:"occurred_at"`
}
