package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"hotel-reservation-engine/internal/domain"
	"hotel-reservation-engine/internal/repository"
	"hotel-reservation-engine/internal/repository/memory"
	"hotel-reservation-engine/internal/utils"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, event domain.BookingEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) Initiate(ctx context.Context, amountCents int64, currency string, metadata map[string]string) (string, error) {
	args := m.Called(ctx, amountCents, currency, metadata)
	return args.String(0), args.Error(1)
}

func (m *MockGateway) Refund(ctx context.Context, paymentRef string, amountCents int64, idempotencyKey string) error {
	args := m.Called(ctx, paymentRef, amountCents, idempotencyKey)
	return args.Error(0)
}

func eventOfType(t domain.BookingEventType) any {
	return mock.MatchedBy(func(e domain.BookingEvent) bool { return e.Type == t })
}

// failingHistory rejects every append, simulating a storage failure after the
// booking row was written.
type failingHistory struct {
	repository.StatusHistoryRepository
}

func (failingHistory) Append(ctx context.Context, h *domain.BookingStatusHistory) error {
	return errors.New("history table unavailable")
}

type failingHistoryTx struct {
	store *memory.Store
}

func (f failingHistoryTx) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.Repositories) error) error {
	return f.store.WithinTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
		tx.History = failingHistory{tx.History}
		return fn(ctx, tx)
	})
}

// stayDay returns a calendar date n days after a fixed point a month ahead,
// so check-ins are never in the past.
func stayDay(n int) time.Time {
	return utils.Today(time.Now()).AddDate(0, 1, n)
}

type fixture struct {
	store *memory.Store
	room  domain.Room
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	room := store.AddRoom(domain.Room{
		RoomNumber:         "101",
		RoomTypeID:         1,
		IsAvailable:        true,
		PricePerNightCents: 10000,
		MaxOccupancy:       2,
	})
	return &fixture{store: store, room: room}
}

func (f *fixture) reservations(n Notifier) *reservationService {
	return NewReservationService(f.store.Repositories, f.store, n).(*reservationService)
}

func (f *fixture) payments(gw *MockGateway, n Notifier) PaymentService {
	if gw == nil {
		gw = new(MockGateway)
	}
	return NewPaymentService(f.store.Repositories, f.store, gw, n, "USD")
}

func (f *fixture) book(t *testing.T, userID string, in, out time.Time) *domain.Booking {
	t.Helper()
	b, err := f.reservations(nil).CreateReservation(context.Background(), CreateReservationRequest{
		UserID:         userID,
		RoomID:         f.room.ID,
		CheckIn:        in,
		CheckOut:       out,
		NumberOfGuests: 1,
	})
	require.NoError(t, err)
	return b
}

func (f *fixture) history(t *testing.T, bookingID int32) []domain.BookingStatusHistory {
	t.Helper()
	entries, err := f.store.History.ListByBooking(context.Background(), bookingID)
	require.NoError(t, err)
	return entries
}

func countTransitions(entries []domain.BookingStatusHistory, from, to domain.BookingStatus) int {
	n := 0
	for _, e := range entries {
		if e.PreviousStatus == from && e.NewStatus == to {
			n++
		}
	}
	return n
}
