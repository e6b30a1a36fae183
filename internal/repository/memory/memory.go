// Package memory is an in-process storage backend. Units of work run one at a
// time against a private snapshot that replaces the live state on commit, which
// gives serializable isolation for the availability check and the insert.
package memory

import (
	"context"
	"sync"
	"time"

	"hotel-reservation-engine/internal/domain"
	"hotel-reservation-engine/internal/logger"
	"hotel-reservation-engine/internal/repository"
)

type state struct {
	rooms    map[int32]domain.Room
	bookings map[int32]domain.Booking
	payments map[int32]domain.BookingPayment
	history  []domain.BookingStatusHistory

	nextRoomID    int32
	nextBookingID int32
	nextPaymentID int32
	nextHistoryID int32
}

func newState() *state {
	return &state{
		rooms:    make(map[int32]domain.Room),
		bookings: make(map[int32]domain.Booking),
		payments: make(map[int32]domain.BookingPayment),
	}
}

func (s *state) clone() *state {
	c := &state{
		rooms:         make(map[int32]domain.Room, len(s.rooms)),
		bookings:      make(map[int32]domain.Booking, len(s.bookings)),
		payments:      make(map[int32]domain.BookingPayment, len(s.payments)),
		history:       make([]domain.BookingStatusHistory, len(s.history)),
		nextRoomID:    s.nextRoomID,
		nextBookingID: s.nextBookingID,
		nextPaymentID: s.nextPaymentID,
		nextHistoryID: s.nextHistoryID,
	}
	for k, v := range s.rooms {
		c.rooms[k] = v
	}
	for k, v := range s.bookings {
		c.bookings[k] = v
	}
	for k, v := range s.payments {
		c.payments[k] = v
	}
	copy(c.history, s.history)
	return c
}

type Store struct {
	txMu sync.Mutex   // one writer at a time
	mu   sync.RWMutex // guards live
	live *state

	repository.Repositories
}

func NewStore() *Store {
	s := &Store{live: newState()}
	s.Repositories = s.bind(nil)
	return s
}

// view routes repository calls either to the live state or to the snapshot of
// an open unit of work.
type view struct {
	store    *Store
	snapshot *state
}

func (s *Store) bind(snapshot *state) repository.Repositories {
	v := &view{store: s, snapshot: snapshot}
	return repository.Repositories{
		Rooms:    &roomRepository{v: v},
		Bookings: &bookingRepository{v: v},
		Payments: &paymentRepository{v: v},
		History:  &historyRepository{v: v},
	}
}

func (v *view) read(fn func(st *state) error) error {
	if v.snapshot != nil {
		return fn(v.snapshot)
	}
	v.store.mu.RLock()
	defer v.store.mu.RUnlock()
	return fn(v.store.live)
}

// write applies fn outside a unit of work. fn must validate before it mutates.
func (v *view) write(fn func(st *state) error) error {
	if v.snapshot != nil {
		return fn(v.snapshot)
	}
	v.store.txMu.Lock()
	defer v.store.txMu.Unlock()
	v.store.mu.Lock()
	defer v.store.mu.Unlock()
	return fn(v.store.live)
}

// WithinTx implements repository.Transactor. Repositories handed to fn must
// not be used after fn returns.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.Repositories) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	snapshot := s.live.clone()
	s.mu.RUnlock()

	if err := fn(ctx, s.bind(snapshot)); err != nil {
		logger.Debug("Discarding in-memory transaction", "error", err)
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	s.live = snapshot
	s.mu.Unlock()
	return nil
}

// AddRoom seeds a room. A zero ID is assigned from the store's sequence.
func (s *Store) AddRoom(room domain.Room) domain.Room {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()

	if room.ID == 0 {
		s.live.nextRoomID++
		room.ID = s.live.nextRoomID
	} else if room.ID > s.live.nextRoomID {
		s.live.nextRoomID = room.ID
	}
	if room.Version == 0 {
		room.Version = 1
	}
	s.live.rooms[room.ID] = room
	return room
}

// Ping always succeeds; it lets the store stand in for a database in health checks.
func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func now() time.Time {
	return time.Now().UTC()
}
