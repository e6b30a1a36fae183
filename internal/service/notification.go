package service

import (
	"context"
	"errors"

	"hotel-reservation-engine/internal/domain"
)

type multiNotifier struct {
	notifiers []Notifier
}

// NewMultiNotifier fans each event out to every non-nil notifier. All
// notifiers run even when an earlier one fails.
func NewMultiNotifier(notifiers ...Notifier) Notifier {
	m := &multiNotifier{}
	for _, n := range notifiers {
		if n != nil {
			m.notifiers = append(m.notifiers, n)
		}
	}
	return m
}

func (m *multiNotifier) Notify(ctx context.Context, event domain.BookingEvent) error {
	var errs []error
	for _, n := range m.notifiers {
		if err := n.Notify(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
