package postgres

import (
	"context"

	"hotel-reservation-engine/internal/domain"
	"hotel-reservation-engine/internal/logger"
	"hotel-reservation-engine/internal/repository"
)

type statusHistoryRepository struct {
	db DBTX
}

func NewStatusHistoryRepository(db DBTX) repository.StatusHistoryRepository {
	return &statusHistoryRepository{db: db}
}

func (r *statusHistoryRepository) Append(ctx context.Context, h *domain.BookingStatusHistory) error {
	query := `INSERT INTO booking_status_history (booking_id, previous_status, new_status, changed_by_user_id, changed_at, notes)
	          VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	err := r.db.QueryRowContext(ctx, query, h.BookingID, h.PreviousStatus, h.NewStatus, h.ChangedByUserID, h.ChangedAt, h.Notes).Scan(&h.ID)
	if err != nil {
		logger.ExitMethodWithError("statusHistoryRepository.Append", err, "bookingID", h.BookingID)
		return translateError(err)
	}
	return nil
}

func (r *statusHistoryRepository) ListByBooking(ctx context.Context, bookingID int32) ([]domain.BookingStatusHistory, error) {
	query := `SELECT id, booking_id, previous_status, new_status, changed_by_user_id, changed_at, COALESCE(notes, '')
	          FROM booking_status_history WHERE booking_id = $1 ORDER BY changed_at, id`
	rows, err := r.db.QueryContext(ctx, query, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.BookingStatusHistory
	for rows.Next() {
		var h domain.BookingStatusHistory
		if err := rows.Scan(&h.ID, &h.BookingID, &h.PreviousStatus, &h.NewStatus, &h.ChangedByUserID, &h.ChangedAt, &h.Notes); err != nil {
			return nil, err
		}
		entries = append(entries, h)
	}
	return entries, rows.Err()
}
