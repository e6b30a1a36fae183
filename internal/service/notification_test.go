package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"hotel-reservation-engine/internal/domain"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	sent     []*mail.SGMailV3
	response *rest.Response
	err      error
}

func (f *fakeSender) SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error) {
	f.sent = append(f.sent, email)
	if f.err != nil {
		return nil, f.err
	}
	if f.response != nil {
		return f.response, nil
	}
	return &rest.Response{StatusCode: 202}, nil
}

func paidEvent() domain.BookingEvent {
	requests := "late arrival"
	return domain.BookingEvent{
		Type: domain.BookingEventPaid,
		Booking: domain.Booking{
			ID:               7,
			RoomID:           3,
			UserID:           "guest-1",
			CheckIn:          time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			CheckOut:         time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC),
			NumberOfGuests:   2,
			TotalAmountCents: 30050,
			Status:           domain.BookingStatusPaid,
			SpecialRequests:  &requests,
		},
		Actor:      domain.ActorSystem,
		Notes:      "payment confirmed (session cs_1)",
		OccurredAt: time.Now(),
	}
}

func TestEmailNotifier_Notify(t *testing.T) {
	ctx := context.Background()

	t.Run("Paid booking mails the front desk", func(t *testing.T) {
		sender := &fakeSender{}
		n := newEmailNotifier(sender, "noreply@hotel.test", "Reservations", "desk@hotel.test")

		require.NoError(t, n.Notify(ctx, paidEvent()))
		require.Len(t, sender.sent, 1)
		msg := sender.sent[0]
		assert.Equal(t, "Booking #7 confirmed", msg.Subject)
		assert.Equal(t, "noreply@hotel.test", msg.From.Address)
		require.Len(t, msg.Personalizations, 1)
		assert.Equal(t, "desk@hotel.test", msg.Personalizations[0].To[0].Address)
		require.NotEmpty(t, msg.Content)
		body := msg.Content[0].Value
		assert.Contains(t, body, "2024-01-01 to 2024-01-04, 3 nights")
		assert.Contains(t, body, "Total: 300.50")
		assert.Contains(t, body, "Special requests: late arrival")
	})

	t.Run("Completed stays are not mailed", func(t *testing.T) {
		sender := &fakeSender{}
		n := newEmailNotifier(sender, "a@b", "A", "c@d")
		event := paidEvent()
		event.Type = domain.BookingEventCompleted

		require.NoError(t, n.Notify(ctx, event))
		assert.Empty(t, sender.sent)
	})

	t.Run("Transport error", func(t *testing.T) {
		n := newEmailNotifier(&fakeSender{err: errors.New("dial tcp: timeout")}, "a@b", "A", "c@d")
		assert.Error(t, n.Notify(ctx, paidEvent()))
	})

	t.Run("Rejected by provider", func(t *testing.T) {
		n := newEmailNotifier(&fakeSender{response: &rest.Response{StatusCode: 401, Body: "unauthorized"}}, "a@b", "A", "c@d")
		err := n.Notify(ctx, paidEvent())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "401")
	})
}

func TestMultiNotifier_Notify(t *testing.T) {
	ctx := context.Background()
	event := paidEvent()

	first := new(MockNotifier)
	first.On("Notify", ctx, event).Return(errors.New("broker down")).Once()
	second := new(MockNotifier)
	second.On("Notify", ctx, event).Return(nil).Once()

	err := NewMultiNotifier(first, nil, second).Notify(ctx, event)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
	first.AssertExpectations(t)
	second.AssertExpectations(t)

	assert.NoError(t, NewMultiNotifier().Notify(ctx, event))
}

func TestDispatch_IgnoresNotifierFailure(t *testing.T) {
	n := new(MockNotifier)
	n.On("Notify", mock.MatchedBy(func(ctx context.Context) bool {
		_, ok := ctx.Deadline()
		return ok && ctx.Err() == nil
	}), eventOfType(domain.BookingEventCancelled)).Return(errors.New("smtp down")).Once()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	b := paidEvent().Booking
	dispatch(ctx, n, domain.BookingEventCancelled, &b, "admin", "cancelled by admin")
	n.AssertExpectations(t)

	dispatch(ctx, nil, domain.BookingEventCancelled, &b, "admin", "")
}
