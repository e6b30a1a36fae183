package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"hotel-reservation-engine/internal/domain"
	"hotel-reservation-engine/internal/logger"
	"hotel-reservation-engine/internal/repository"
)

const paymentColumns = `id, booking_id, external_session_id, external_intent_id, amount_cents, currency, payment_status, transaction_date`

type paymentRepository struct {
	db DBTX
}

func NewPaymentRepository(db DBTX) repository.PaymentRepository {
	return &paymentRepository{db: db}
}

func scanPayment(row rowScanner) (*domain.BookingPayment, error) {
	p := &domain.BookingPayment{}
	err := row.Scan(&p.ID, &p.BookingID, &p.ExternalSessionID, &p.ExternalIntentID, &p.AmountCents,
		&p.Currency, &p.PaymentStatus, &p.TransactionDate)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *paymentRepository) Create(ctx context.Context, p *domain.BookingPayment) error {
	logger.EnterMethod("paymentRepository.Create", "bookingID", p.BookingID, "status", p.PaymentStatus)

	query := `INSERT INTO booking_payments (booking_id, external_session_id, external_intent_id, amount_cents, currency, payment_status, transaction_date)
	          VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`
	err := r.db.QueryRowContext(ctx, query, p.BookingID, p.ExternalSessionID, p.ExternalIntentID, p.AmountCents,
		p.Currency, p.PaymentStatus, p.TransactionDate).Scan(&p.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicatePayment
		}
		err = translateError(err)
		logger.ExitMethodWithError("paymentRepository.Create", err, "bookingID", p.BookingID)
		return err
	}

	logger.ExitMethod("paymentRepository.Create", "paymentID", p.ID)
	return nil
}

func (r *paymentRepository) GetSettledBySessionID(ctx context.Context, sessionID string) (*domain.BookingPayment, error) {
	query := `SELECT ` + paymentColumns + ` FROM booking_payments
	          WHERE external_session_id = $1 AND payment_status IN ($2, $3)`
	p, err := scanPayment(r.db.QueryRowContext(ctx, query, sessionID, domain.PaymentStatusCompleted, domain.PaymentStatusRefunded))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: payment session %s", domain.ErrNotFound, sessionID)
	}
	return p, err
}

func (r *paymentRepository) ListBySessionID(ctx context.Context, sessionID string) ([]domain.BookingPayment, error) {
	query := `SELECT ` + paymentColumns + ` FROM booking_payments WHERE external_session_id = $1 ORDER BY transaction_date, id`
	return r.list(ctx, query, sessionID)
}

func (r *paymentRepository) GetCompletedByBooking(ctx context.Context, bookingID int32) (*domain.BookingPayment, error) {
	query := `SELECT ` + paymentColumns + ` FROM booking_payments
	          WHERE booking_id = $1 AND payment_status = $2 ORDER BY transaction_date DESC, id DESC LIMIT 1`
	p, err := scanPayment(r.db.QueryRowContext(ctx, query, bookingID, domain.PaymentStatusCompleted))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrPaymentNotFound
	}
	return p, err
}

func (r *paymentRepository) ListByBooking(ctx context.Context, bookingID int32) ([]domain.BookingPayment, error) {
	query := `SELECT ` + paymentColumns + ` FROM booking_payments WHERE booking_id = $1 ORDER BY transaction_date, id`
	return r.list(ctx, query, bookingID)
}

func (r *paymentRepository) list(ctx context.Context, query string, arg any) ([]domain.BookingPayment, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []domain.BookingPayment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, *p)
	}
	return payments, rows.Err()
}

func (r *paymentRepository) UpdateStatus(ctx context.Context, id int32, status domain.PaymentStatus) error {
	result, err := r.db.ExecContext(ctx, `UPDATE booking_payments SET payment_status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return translateError(err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("%w: payment %d", domain.ErrNotFound, id)
	}
	return nil
}
