package walletrepo

import (
	"context"
	"errors"
	"fmt"

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

const walletColumns = `id, owner_type, owner_id, balance, version, created_at, updated_at`

func scanWallet(row pgx.Row) (*domain.Wallet, error) {
	var w domain.Wallet
	err := row.Scan(&w.ID, &w.OwnerType, &w.OwnerID, &w.Balance, &w.Version, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *Repository) GetByID(ctx context.Context, walletID int) (*domain.Wallet, error) {
	query := `
        SELECT ` + walletColumns + `
        FROM wallets
        WHERE id = $1
    `
	wallet, err := scanWallet(r.db.QueryRow(ctx, query, walletID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		zap.L().Error("failed to get wallet", zap.Error(err))
		return nil, err
	}
	return wallet, nil
}

func (r *Repository) GetByOwner(ctx context.Context, ownerType domain.OwnerType, ownerID int) (*domain.Wallet, error) {
	query := `
        SELECT ` + walletColumns + `
        FROM wallets
        WHERE owner_type = $1 AND owner_id = $2
    `
	wallet, err := scanWallet(r.db.QueryRow(ctx, query, ownerType, ownerID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		zap.L().Error("failed to get wallet by owner", zap.Error(err))
		return nil, err
	}
	return wallet, nil
}

func (r *Repository) Create(ctx context.Context, ownerType domain.OwnerType, ownerID int) (*domain.Wallet, error) {
	query := `
        INSERT INTO wallets (owner_type, owner_id)
        VALUES ($1, $2)
        ON CONFLICT (owner_type, owner_id) DO UPDATE SET owner_id = EXCLUDED.owner_id
        RETURNING ` + walletColumns + `
	`
	wallet, err := scanWallet(r.db.QueryRow(ctx, query, ownerType, ownerID))
	if err != nil {
		zap.L().Error("failed to create wallet", zap.Error(err))
		return nil, err
	}
	return wallet, nil
}

// UpdateBalance applies an optimistic version check: the row is only
// updated when the stored version still matches expectedVersion,
// otherwise domain.ErrConflict is returned and the caller must re-read.
func (r *Repository) UpdateBalance(ctx context.Context, walletID int, newBalance int64, expectedVersion int64) (*domain.Wallet, error) {
	query := `
        UPDATE wallets
        SET balance = $1, version = version + 1, updated_at = now()
        WHERE id = $2 AND version = $3
        RETURNING ` + walletColumns + `
	`
	wallet, err := scanWallet(r.db.QueryRow(ctx, query, newBalance, walletID, expectedVersion))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("wallet %d: %w", walletID, domain.ErrConflict)
	}
	if err != nil {
		zap.L().Error("failed to update wallet balance", zap.Error(err))
		return nil, err
	}
	return wallet, nil
}
