package bookingrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/dancelink/settled/internal/domain"
	"github.com/dancelink/settled/internal/pg"
	"go.uber.org/zap"
)

type Repository struct {
	db        pg.Database
	txManager pg.TXManager
}

func New(db pg.Database, txManager pg.TXManager) *Repository {
	return &Repository{
		db:        db,
		txManager: txManager,
	}
}

const bookingColumns = `id, number, trainer_id, trainer_name, customer_id, customer_name, customer_email,
       course_id, requested_time, confirmed_time, duration_minutes, price, price_coins, notes,
       status, payment_status, payment_deadline, paid_at, payment_ref,
       trainer_revenue, platform_fee, version, created_at, updated_at`

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var b domain.Booking
	err := row.Scan(&b.ID, &b.Number, &b.TrainerID, &b.TrainerName, &b.CustomerID, &b.CustomerName,
		&b.CustomerEmail, &b.CourseID, &b.RequestedTime, &b.ConfirmedTime, &b.DurationMinutes,
		&b.Price, &b.PriceCoins, &b.Notes, &b.Status, &b.PaymentStatus, &b.PaymentDeadline,
		&b.PaidAt, &b.PaymentRef, &b.TrainerRevenue, &b.PlatformFee, &b.Version,
		&b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *Repository) Create(ctx context.Context, b *domain.Booking) (*domain.Booking, error) {
	query := `
        INSERT INTO bookings
            (number, trainer_id, trainer_name, customer_id, customer_name, customer_email,
             course_id, requested_time, duration_minutes, price, price_coins, notes, status, payment_status)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
        RETURNING ` + bookingColumns + `
	`
	created, err := scanBooking(r.db.QueryRow(ctx, query,
		b.Number, b.TrainerID, b.TrainerName, b.CustomerID, b.CustomerName, b.CustomerEmail,
		b.CourseID, b.RequestedTime, b.DurationMinutes, b.Price, b.PriceCoins, b.Notes,
		b.Status, b.PaymentStatus))
	if err != nil {
		zap.L().Error("failed to create booking", zap.Error(err))
		return nil, err
	}
	return created, nil
}

func (r *Repository) GetByID(ctx context.Context, bookingID int) (*domain.Booking, error) {
	query := `
        SELECT ` + bookingColumns + `
        FROM bookings
        WHERE id = $1
    `
	booking, err := scanBooking(r.db.QueryRow(ctx, query, bookingID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		zap.L().Error("failed to get booking", zap.Error(err))
		return nil, err
	}
	return booking, nil
}

func (r *Repository) GetByNumber(ctx context.Context, number string) (*domain.Booking, error) {
	query := `
        SELECT ` + bookingColumns + `
        FROM bookings
        WHERE number = $1
    `
	booking, err := scanBooking(r.db.QueryRow(ctx, query, number))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		zap.L().Error("failed to get booking by number", zap.Error(err))
		return nil, err
	}
	return booking, nil
}

func (r *Repository) list(ctx context.Context, query string, arg any) ([]domain.Booking, error) {
	rows, err := r.db.Query(ctx, query, arg)
	if err != nil {
		zap.L().Error("failed to list bookings", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var bookings []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			zap.L().Error("failed to scan booking row", zap.Error(err))
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

func (r *Repository) ListByCustomer(ctx context.Context, customerID int) ([]domain.Booking, error) {
	query := `
        SELECT ` + bookingColumns + `
        FROM bookings
        WHERE customer_id = $1
        ORDER BY created_at DESC
    `
	return r.list(ctx, query, customerID)
}

func (r *Repository) ListByTrainer(ctx context.Context, trainerID int) ([]domain.Booking, error) {
	query := `
        SELECT ` + bookingColumns + `
        FROM bookings
        WHERE trainer_id = $1
        ORDER BY created_at DESC
    `
	return r.list(ctx, query, trainerID)
}

// Update persists the whole mutable part of the booking under an
// optimistic version check. domain.ErrConflict means another writer got
// there first; re-read and retry.
func (r *Repository) Update(ctx context.Context, b *domain.Booking) (*domain.Booking, error) {
	query := `
        UPDATE bookings
        SET confirmed_time = $1, status = $2, payment_status = $3, payment_deadline = $4,
            paid_at = $5, payment_ref = $6, trainer_revenue = $7, platform_fee = $8,
            notes = $9, version = version + 1, updated_at = now()
        WHERE id = $10 AND version = $11
        RETURNING ` + bookingColumns + `
	`
	updated, err := scanBooking(r.db.QueryRow(ctx, query,
		b.ConfirmedTime, b.Status, b.PaymentStatus, b.PaymentDeadline,
		b.PaidAt, b.PaymentRef, b.TrainerRevenue, b.PlatformFee,
		b.Notes, b.ID, b.Version))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("booking %d: %w", b.ID, domain.ErrConflict)
	}
	if err != nil {
		zap.L().Error("failed to update booking", zap.Error(err))
		return nil, err
	}
	return updated, nil
}

// ListExpirable returns ids of bookings whose payment deadline has
// passed, for the sweep trigger. Confirmed bookings count too: one that
// never opened payment before the deadline is just as dead.
func (r *Repository) ListExpirable(ctx context.Context, now time.Time, limit int) ([]int, error) {
	query := `
        SELECT id
        FROM bookings
        WHERE status IN ('awaiting_payment', 'confirmed') AND payment_deadline < $1
        ORDER BY payment_deadline ASC
        LIMIT $2
    `
	return r.listIDs(ctx, query, now, limit)
}

// ListCompletable returns ids of paid bookings whose scheduled session
// has already ended.
func (r *Repository) ListCompletable(ctx context.Context, now time.Time, limit int) ([]int, error) {
	query := `
        SELECT id
        FROM bookings
        WHERE status = 'paid'
          AND confirmed_time + duration_minutes * interval '1 minute' < $1
        ORDER BY confirmed_time ASC
        LIMIT $2
    `
	return r.listIDs(ctx, query, now, limit)
}

func (r *Repository) listIDs(ctx context.Context, query string, now time.Time, limit int) ([]int, error) {
	rows, err := r.db.Query(ctx, query, now, limit)
	if err != nil {
		zap.L().Error("failed to list booking ids", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			zap.L().Error("failed to scan booking id", zap.Error(err))
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
