package ledgerrepo

import (
	"context"
	"errors"
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

const txColumns = `id, wallet_id, amount, kind, course_id, booking_id, counterparty_id,
       description, balance_after, admin_verified, idempotency_key, created_at`

func scanTransaction(row pgx.Row) (*domain.LedgerTransaction, error) {
	var tx domain.LedgerTransaction
	err := row.Scan(&tx.ID, &tx.WalletID, &tx.Amount, &tx.Kind, &tx.CourseID, &tx.BookingID,
		&tx.CounterpartyID, &tx.Description, &tx.BalanceAfter, &tx.AdminVerified,
		&tx.IdempotencyKey, &tx.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

// Append inserts an immutable ledger entry. A retried insert carrying an
// idempotency key already present for the wallet returns the committed
// row instead of writing a second one.
func (r *Repository) Append(ctx context.Context, tx *domain.LedgerTransaction) (*domain.LedgerTransaction, error) {
	query := `
        INSERT INTO ledger_transactions
            (id, wallet_id, amount, kind, course_id, booking_id, counterparty_id,
             description, balance_after, admin_verified, idempotency_key)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
        ON CONFLICT (wallet_id, idempotency_key) WHERE idempotency_key IS NOT NULL DO NOTHING
        RETURNING ` + txColumns + `
	`
	committed, err := scanTransaction(r.db.QueryRow(ctx, query,
		tx.ID, tx.WalletID, tx.Amount, tx.Kind, tx.CourseID, tx.BookingID,
		tx.CounterpartyID, tx.Description, tx.BalanceAfter, tx.AdminVerified, tx.IdempotencyKey))
	if errors.Is(err, pgx.ErrNoRows) {
		// Conflict on the idempotency key: the entry was already committed.
		return r.GetByIdempotencyKey(ctx, tx.WalletID, *tx.IdempotencyKey)
	}
	if err != nil {
		zap.L().Error("failed to append ledger transaction", zap.Error(err))
		return nil, err
	}
	return committed, nil
}

func (r *Repository) GetByIdempotencyKey(ctx context.Context, walletID int, key string) (*domain.LedgerTransaction, error) {
	query := `
        SELECT ` + txColumns + `
        FROM ledger_transactions
        WHERE wallet_id = $1 AND idempotency_key = $2
    `
	tx, err := scanTransaction(r.db.QueryRow(ctx, query, walletID, key))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		zap.L().Error("failed to get ledger transaction by idempotency key", zap.Error(err))
		return nil, err
	}
	return tx, nil
}

// History returns the wallet's entries newest first. The cursor is the
// (created_at, id) pair of the last row of the previous page; pass the
// zero time for the first page.
func (r *Repository) History(ctx context.Context, walletID int, cursorTime time.Time, cursorID string, limit int) ([]domain.LedgerTransaction, error) {
	query := `
        SELECT ` + txColumns + `
        FROM ledger_transactions
        WHERE wallet_id = $1
          AND ($2::timestamptz IS NULL OR (created_at, id::text) < ($2, $3))
        ORDER BY created_at DESC, id DESC
        LIMIT $4
    `
	var cursor any
	if !cursorTime.IsZero() {
		cursor = cursorTime
	}
	rows, err := r.db.Query(ctx, query, walletID, cursor, cursorID, limit)
	if err != nil {
		zap.L().Error("failed to get ledger history", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var txs []domain.LedgerTransaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			zap.L().Error("failed to scan ledger transaction row", zap.Error(err))
			return nil, err
		}
		txs = append(txs, *tx)
	}
	return txs, rows.Err()
}

// SumAmounts recomputes the balance from the full history. Used to
// verify the balance invariant, never to serve reads.
func (r *Repository) SumAmounts(ctx context.Context, walletID int) (int64, error) {
	query := `
        SELECT COALESCE(SUM(amount), 0)
        FROM ledger_transactions
        WHERE wallet_id = $1
    `
	var sum int64
	if err := r.db.QueryRow(ctx, query, walletID).Scan(&sum); err != nil {
		zap.L().Error("failed to sum ledger amounts", zap.Error(err))
		return 0, err
	}
	return sum, nil
}
