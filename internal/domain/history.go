package domain

import "time"

// Actors recorded on history rows when no user drives the change.
const (
	ActorSystem = "system"
)

// Notes used on status history rows.
const (
	NoteCreated         = "created"
	NoteCancelledByUser = "cancelled by user"
	NoteHoldExpired     = "payment hold expired"
	NoteStayCompleted   = "stay completed"
)

// BookingStatusHistory is an append-only audit row. One row is written per
// transition, plus the initial PENDING -> PENDING creation entry.
type BookingStatusHistory struct {
	ID              int32         `json:"id"`
	BookingID       int32         `json:"booking_id"`
	PreviousStatus  BookingStatus `json:"previous_status"`
	NewStatus       BookingStatus `json:"new_status"`
	ChangedByUserID string        `json:"changed_by_user_id"`
	ChangedAt       time.Time     `json:"changed_at"`
	Notes           string        `json:"notes"`
}
