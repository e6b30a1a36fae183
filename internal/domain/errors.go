package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the engine wraps exactly one of these
// so callers can classify it with errors.Is.
var (
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrExternalFailure   = errors.New("external service failure")
)

var (
	ErrRoomNotFound        = fmt.Errorf("%w: room not found", ErrNotFound)
	ErrRoomUnavailable     = fmt.Errorf("%w: room is not available for the requested dates", ErrConflict)
	ErrConcurrencyConflict = fmt.Errorf("%w: record was modified concurrently, reload and retry", ErrConflict)
	ErrDuplicatePayment    = fmt.Errorf("%w: payment already recorded for this session", ErrConflict)
	ErrCapacityExceeded    = fmt.Errorf("%w: number of guests exceeds room capacity", ErrInvalidTransition)
	ErrPaymentNotFound     = fmt.Errorf("%w: no completed payment for booking", ErrNotFound)
)

// BookingAccessDeniedError is returned both when a booking does not exist and
// when it belongs to someone else, so callers cannot learn whether it exists.
type BookingAccessDeniedError struct {
	BookingID int32
}

func (e *BookingAccessDeniedError) Error() string {
	return fmt.Sprintf("booking %d not found or not owned by caller", e.BookingID)
}

func (e *BookingAccessDeniedError) Unwrap() error {
	return ErrNotFound
}

// TransitionError reports a move the state machine rejects.
type TransitionError struct {
	BookingID int32
	From      BookingStatus
	To        BookingStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("booking %d cannot move from %s to %s", e.BookingID, e.From, e.To)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// Kind returns the taxonomy sentinel err belongs to, or nil when err is
// unclassified.
func Kind(err error) error {
	for _, k := range []error{ErrInvalidArgument, ErrNotFound, ErrConflict, ErrInvalidTransition, ErrExternalFailure} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

func InvalidArgument(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}
