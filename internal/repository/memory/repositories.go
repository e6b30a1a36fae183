package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"hotel-reservation-engine/internal/domain"
)

type roomRepository struct {
	v *view
}

func (r *roomRepository) GetByID(ctx context.Context, id int32) (*domain.Room, error) {
	var room domain.Room
	err := r.v.read(func(st *state) error {
		found, ok := st.rooms[id]
		if !ok {
			return domain.ErrRoomNotFound
		}
		room = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &room, nil
}

type bookingRepository struct {
	v *view
}

func (r *bookingRepository) Create(ctx context.Context, b *domain.Booking) error {
	return r.v.write(func(st *state) error {
		if _, ok := st.rooms[b.RoomID]; !ok {
			return domain.ErrRoomNotFound
		}
		if b.Status != domain.BookingStatusCancelled {
			for _, existing := range st.bookings {
				if existing.RoomID == b.RoomID && existing.Status != domain.BookingStatusCancelled &&
					existing.Overlaps(b.CheckIn, b.CheckOut) {
					return domain.ErrRoomUnavailable
				}
			}
		}

		st.nextBookingID++
		ts := now()
		b.ID = st.nextBookingID
		b.CreatedAt = ts
		b.UpdatedAt = ts
		b.Version = 1
		st.bookings[b.ID] = *b
		return nil
	})
}

func (r *bookingRepository) GetByID(ctx context.Context, id int32) (*domain.Booking, error) {
	var b domain.Booking
	err := r.v.read(func(st *state) error {
		found, ok := st.bookings[id]
		if !ok {
			return fmt.Errorf("%w: booking %d", domain.ErrNotFound, id)
		}
		b = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *bookingRepository) UpdateStatus(ctx context.Context, b *domain.Booking) error {
	return r.v.write(func(st *state) error {
		stored, ok := st.bookings[b.ID]
		if !ok {
			return fmt.Errorf("%w: booking %d", domain.ErrNotFound, b.ID)
		}
		if stored.Version != b.Version {
			return domain.ErrConcurrencyConflict
		}
		stored.Status = b.Status
		stored.UpdatedAt = now()
		stored.Version++
		st.bookings[b.ID] = stored

		b.Version = stored.Version
		b.UpdatedAt = stored.UpdatedAt
		return nil
	})
}

func (r *bookingRepository) ListOverlapping(ctx context.Context, roomID int32, checkIn, checkOut time.Time, excludeBookingID *int32) ([]domain.Booking, error) {
	return r.filter(func(b domain.Booking) bool {
		if excludeBookingID != nil && b.ID == *excludeBookingID {
			return false
		}
		return b.RoomID == roomID && b.Status != domain.BookingStatusCancelled && b.Overlaps(checkIn, checkOut)
	}, func(a, b domain.Booking) bool { return a.CheckIn.Before(b.CheckIn) }, 0)
}

func (r *bookingRepository) ListByUser(ctx context.Context, userID string, page, pageSize int32) ([]domain.Booking, int32, error) {
	all, err := r.filter(func(b domain.Booking) bool { return b.UserID == userID }, func(a, b domain.Booking) bool {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return a.ID > b.ID
		}
		return a.CreatedAt.After(b.CreatedAt)
	}, 0)
	if err != nil {
		return nil, 0, err
	}

	total := int32(len(all))
	start := (page - 1) * pageSize
	if start >= total {
		return nil, total, nil
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	return all[start:end], total, nil
}

func (r *bookingRepository) ListByStatusCheckOutBefore(ctx context.Context, status domain.BookingStatus, before time.Time, limit int32) ([]domain.Booking, error) {
	return r.filter(func(b domain.Booking) bool {
		return b.Status == status && !b.CheckOut.After(before)
	}, func(a, b domain.Booking) bool { return a.CheckOut.Before(b.CheckOut) }, limit)
}

func (r *bookingRepository) ListPendingCreatedBefore(ctx context.Context, before time.Time, limit int32) ([]domain.Booking, error) {
	return r.filter(func(b domain.Booking) bool {
		return b.Status == domain.BookingStatusPending && b.CreatedAt.Before(before)
	}, func(a, b domain.Booking) bool { return a.CreatedAt.Before(b.CreatedAt) }, limit)
}

func (r *bookingRepository) filter(keep func(domain.Booking) bool, less func(a, b domain.Booking) bool, limit int32) ([]domain.Booking, error) {
	var out []domain.Booking
	err := r.v.read(func(st *state) error {
		for _, b := range st.bookings {
			if keep(b) {
				out = append(out, b)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool {
		if less(out[i], out[j]) {
			return true
		}
		if less(out[j], out[i]) {
			return false
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && int32(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

type paymentRepository struct {
	v *view
}

func (r *paymentRepository) Create(ctx context.Context, p *domain.BookingPayment) error {
	return r.v.write(func(st *state) error {
		if _, ok := st.bookings[p.BookingID]; !ok {
			return fmt.Errorf("%w: booking %d", domain.ErrNotFound, p.BookingID)
		}
		if p.PaymentStatus.Settled() {
			for _, existing := range st.payments {
				if !existing.PaymentStatus.Settled() {
					continue
				}
				if sameRef(existing.ExternalSessionID, p.ExternalSessionID) || sameRef(existing.ExternalIntentID, p.ExternalIntentID) {
					return domain.ErrDuplicatePayment
				}
			}
		}

		st.nextPaymentID++
		p.ID = st.nextPaymentID
		if p.TransactionDate.IsZero() {
			p.TransactionDate = now()
		}
		st.payments[p.ID] = *p
		return nil
	})
}

func sameRef(a, b *string) bool {
	return a != nil && b != nil && *a == *b
}

func (r *paymentRepository) GetSettledBySessionID(ctx context.Context, sessionID string) (*domain.BookingPayment, error) {
	var p domain.BookingPayment
	err := r.v.read(func(st *state) error {
		for _, existing := range st.payments {
			if existing.PaymentStatus.Settled() && existing.ExternalSessionID != nil && *existing.ExternalSessionID == sessionID {
				p = existing
				return nil
			}
		}
		return fmt.Errorf("%w: payment session %s", domain.ErrNotFound, sessionID)
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *paymentRepository) ListBySessionID(ctx context.Context, sessionID string) ([]domain.BookingPayment, error) {
	return r.list(func(p domain.BookingPayment) bool {
		return p.ExternalSessionID != nil && *p.ExternalSessionID == sessionID
	})
}

func (r *paymentRepository) GetCompletedByBooking(ctx context.Context, bookingID int32) (*domain.BookingPayment, error) {
	payments, err := r.ListByBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	for i := len(payments) - 1; i >= 0; i-- {
		if payments[i].PaymentStatus == domain.PaymentStatusCompleted {
			return &payments[i], nil
		}
	}
	return nil, domain.ErrPaymentNotFound
}

func (r *paymentRepository) ListByBooking(ctx context.Context, bookingID int32) ([]domain.BookingPayment, error) {
	return r.list(func(p domain.BookingPayment) bool { return p.BookingID == bookingID })
}

func (r *paymentRepository) list(keep func(domain.BookingPayment) bool) ([]domain.BookingPayment, error) {
	var out []domain.BookingPayment
	err := r.v.read(func(st *state) error {
		for _, p := range st.payments {
			if keep(p) {
				out = append(out, p)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TransactionDate.Equal(out[j].TransactionDate) {
			return out[i].ID < out[j].ID
		}
		return out[i].TransactionDate.Before(out[j].TransactionDate)
	})
	return out, nil
}

func (r *paymentRepository) UpdateStatus(ctx context.Context, id int32, status domain.PaymentStatus) error {
	return r.v.write(func(st *state) error {
		p, ok := st.payments[id]
		if !ok {
			return fmt.Errorf("%w: payment %d", domain.ErrNotFound, id)
		}
		p.PaymentStatus = status
		st.payments[id] = p
		return nil
	})
}

type historyRepository struct {
	v *view
}

func (r *historyRepository) Append(ctx context.Context, h *domain.BookingStatusHistory) error {
	return r.v.write(func(st *state) error {
		if _, ok := st.bookings[h.BookingID]; !ok {
			return fmt.Errorf("%w: booking %d", domain.ErrNotFound, h.BookingID)
		}
		st.nextHistoryID++
		h.ID = st.nextHistoryID
		if h.ChangedAt.IsZero() {
			h.ChangedAt = now()
		}
		st.history = append(st.history, *h)
		return nil
	})
}

func (r *historyRepository) ListByBooking(ctx context.Context, bookingID int32) ([]domain.BookingStatusHistory, error) {
	var out []domain.BookingStatusHistory
	err := r.v.read(func(st *state) error {
		for _, h := range st.history {
			if h.BookingID == bookingID {
				out = append(out, h)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ChangedAt.Equal(out[j].ChangedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].ChangedAt.Before(out[j].ChangedAt)
	})
	return out, nil
}
