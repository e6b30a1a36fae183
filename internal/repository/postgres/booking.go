package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"hotel-reservation-engine/internal/domain"
	"hotel-reservation-engine/internal/logger"
	"hotel-reservation-engine/internal/repository"
)

const bookingColumns = `id, room_id, user_id, check_in, check_out, number_of_guests, total_amount_cents, status, special_requests, created_at, updated_at, version`

type bookingRepository struct {
	db DBTX
}

func NewBookingRepository(db DBTX) repository.BookingRepository {
	return &bookingRepository{db: db}
}

func scanBooking(row rowScanner) (*domain.Booking, error) {
	b := &domain.Booking{}
	err := row.Scan(&b.ID, &b.RoomID, &b.UserID, &b.CheckIn, &b.CheckOut, &b.NumberOfGuests,
		&b.TotalAmountCents, &b.Status, &b.SpecialRequests, &b.CreatedAt, &b.UpdatedAt, &b.Version)
	if err != nil {
		return nil, err
	}
	b.CheckIn = b.CheckIn.UTC()
	b.CheckOut = b.CheckOut.UTC()
	return b, nil
}

func scanBookings(rows *sql.Rows) ([]domain.Booking, error) {
	defer rows.Close()

	var bookings []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

func (r *bookingRepository) Create(ctx context.Context, b *domain.Booking) error {
	logger.EnterMethod("bookingRepository.Create", "roomID", b.RoomID, "checkIn", b.CheckIn, "checkOut", b.CheckOut)

	query := `INSERT INTO bookings (room_id, user_id, check_in, check_out, number_of_guests, total_amount_cents, status, special_requests, created_at, updated_at, version)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) RETURNING id`
	now := time.Now().UTC()
	b.CreatedAt = now
	b.UpdatedAt = now
	b.Version = 1

	err := r.db.QueryRowContext(ctx, query, b.RoomID, b.UserID, b.CheckIn, b.CheckOut, b.NumberOfGuests,
		b.TotalAmountCents, b.Status, b.SpecialRequests, b.CreatedAt, b.UpdatedAt, b.Version).Scan(&b.ID)
	if err != nil {
		err = translateError(err)
		if errors.Is(err, domain.ErrRoomUnavailable) {
			logger.Debug("Booking insert rejected by overlap constraint", "roomID", b.RoomID)
		} else {
			logger.ExitMethodWithError("bookingRepository.Create", err, "roomID", b.RoomID)
		}
		return err
	}

	logger.ExitMethod("bookingRepository.Create", "bookingID", b.ID)
	return nil
}

func (r *bookingRepository) GetByID(ctx context.Context, id int32) (*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`
	b, err := scanBooking(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: booking %d", domain.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (r *bookingRepository) UpdateStatus(ctx context.Context, b *domain.Booking) error {
	logger.EnterMethod("bookingRepository.UpdateStatus", "bookingID", b.ID, "status", b.Status, "version", b.Version)

	query := `UPDATE bookings SET status = $1, updated_at = $2, version = version + 1 WHERE id = $3 AND version = $4`
	now := time.Now().UTC()
	result, err := r.db.ExecContext(ctx, query, b.Status, now, b.ID, b.Version)
	if err != nil {
		err = translateError(err)
		logger.ExitMethodWithError("bookingRepository.UpdateStatus", err, "bookingID", b.ID)
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		logger.Debug("Stale booking version", "bookingID", b.ID, "version", b.Version)
		return domain.ErrConcurrencyConflict
	}

	b.Version++
	b.UpdatedAt = now
	logger.ExitMethod("bookingRepository.UpdateStatus", "bookingID", b.ID, "version", b.Version)
	return nil
}

func (r *bookingRepository) ListOverlapping(ctx context.Context, roomID int32, checkIn, checkOut time.Time, excludeBookingID *int32) ([]domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
	          WHERE room_id = $1 AND status <> $2 AND check_in < $3 AND check_out > $4`
	args := []any{roomID, domain.BookingStatusCancelled, checkOut, checkIn}
	if excludeBookingID != nil {
		query += " AND id <> $5"
		args = append(args, *excludeBookingID)
	}
	query += " ORDER BY check_in"

	logger.DatabaseCall("select overlapping bookings", query, "roomID", roomID)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return scanBookings(rows)
}

func (r *bookingRepository) ListByUser(ctx context.Context, userID string, page, pageSize int32) ([]domain.Booking, int32, error) {
	offset := (page - 1) * pageSize

	var count int32
	err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM bookings WHERE user_id = $1`, userID).Scan(&count)
	if err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.db.QueryContext(ctx, query, userID, pageSize, offset)
	if err != nil {
		return nil, 0, err
	}
	bookings, err := scanBookings(rows)
	if err != nil {
		return nil, 0, err
	}
	return bookings, count, nil
}

func (r *bookingRepository) ListByStatusCheckOutBefore(ctx context.Context, status domain.BookingStatus, before time.Time, limit int32) ([]domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE status = $1 AND check_out <= $2 ORDER BY check_out LIMIT $3`
	rows, err := r.db.QueryContext(ctx, query, status, before, limit)
	if err != nil {
		return nil, err
	}
	return scanBookings(rows)
}

func (r *bookingRepository) ListPendingCreatedBefore(ctx context.Context, before time.Time, limit int32) ([]domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE status = $1 AND created_at < $2 ORDER BY created_at LIMIT $3`
	rows, err := r.db.QueryContext(ctx, query, domain.BookingStatusPending, before, limit)
	if err != nil {
		return nil, err
	}
	return scanBookings(rows)
}
