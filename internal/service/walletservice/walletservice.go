package walletservice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dancelink/settled/internal/domain"
	"github.com/dancelink/settled/internal/metrics"
	"github.com/dancelink/settled/internal/pg"
)

//go:generate mockgen -source=walletservice.go -destination=mock_walletservice.go -package=walletservice

type WalletRepo interface {
	GetByID(ctx context.Context, walletID int) (*domain.Wallet, error)
	GetByOwner(ctx context.Context, ownerType domain.OwnerType, ownerID int) (*domain.Wallet, error)
	Create(ctx context.Context, ownerType domain.OwnerType, ownerID int) (*domain.Wallet, error)
	UpdateBalance(ctx context.Context, walletID int, newBalance int64, expectedVersion int64) (*domain.Wallet, error)
}

type LedgerRepo interface {
	Append(ctx context.Context, tx *domain.LedgerTransaction) (*domain.LedgerTransaction, error)
	GetByIdempotencyKey(ctx context.Context, walletID int, key string) (*domain.LedgerTransaction, error)
	History(ctx context.Context, walletID int, cursorTime time.Time, cursorID string, limit int) ([]domain.LedgerTransaction, error)
	SumAmounts(ctx context.Context, walletID int) (int64, error)
}

// Metadata travels with every posted entry. An empty IdempotencyKey
// means the caller accepts that a retry may double-post.
type Metadata struct {
	CourseID       *int
	BookingID      *int
	CounterpartyID *int
	Description    string
	IdempotencyKey string
	AdminVerified  bool
	// AllowNegative lets an admin adjustment push the balance below
	// zero; it requires a non-empty Description as the audit note.
	AllowNegative bool
}

type Service struct {
	walletRepo WalletRepo
	ledgerRepo LedgerRepo
	txManager  pg.TXManager
}

func New(walletRepo WalletRepo, ledgerRepo LedgerRepo, txManager pg.TXManager) *Service {
	return &Service{
		walletRepo: walletRepo,
		ledgerRepo: ledgerRepo,
		txManager:  txManager,
	}
}

// GetOrCreate resolves the wallet for an owner, creating it lazily on
// first need.
func (s *Service) GetOrCreate(ctx context.Context, ownerType domain.OwnerType, ownerID int) (*domain.Wallet, error) {
	wallet, err := s.walletRepo.GetByOwner(ctx, ownerType, ownerID)
	if err != nil {
		zap.L().Error("failed to get wallet", zap.Error(err))
		return nil, err
	}
	if wallet != nil {
		return wallet, nil
	}
	wallet, err = s.walletRepo.Create(ctx, ownerType, ownerID)
	if err != nil {
		zap.L().Error("failed to create wallet", zap.Error(err))
		return nil, err
	}
	return wallet, nil
}

func (s *Service) Balance(ctx context.Context, ownerType domain.OwnerType, ownerID int) (int64, error) {
	wallet, err := s.walletRepo.GetByOwner(ctx, ownerType, ownerID)
	if err != nil {
		return 0, err
	}
	if wallet == nil {
		return 0, fmt.Errorf("%s %d: %w", ownerType, ownerID, domain.ErrWalletNotFound)
	}
	return wallet.Balance, nil
}

func (s *Service) Credit(ctx context.Context, walletID int, amount int64, kind domain.TransactionKind, meta Metadata) (*domain.LedgerTransaction, error) {
	if amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	var tx *domain.LedgerTransaction
	err := s.txManager.Begin(ctx, func(ctx context.Context) error {
		var err error
		tx, err = s.post(ctx, walletID, amount, kind, meta)
		return err
	})
	if err != nil {
		return nil, err
	}
	return tx, nil
}

func (s *Service) Debit(ctx context.Context, walletID int, amount int64, kind domain.TransactionKind, meta Metadata) (*domain.LedgerTransaction, error) {
	if amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	var tx *domain.LedgerTransaction
	err := s.txManager.Begin(ctx, func(ctx context.Context) error {
		var err error
		tx, err = s.post(ctx, walletID, -amount, kind, meta)
		return err
	})
	if err != nil {
		return nil, err
	}
	return tx, nil
}

// Adjust posts a signed administrator adjustment. Only this path may
// carry AllowNegative.
func (s *Service) Adjust(ctx context.Context, walletID int, amount int64, meta Metadata) (*domain.LedgerTransaction, error) {
	if amount == 0 {
		return nil, domain.ErrInvalidAmount
	}
	meta.AdminVerified = true
	var tx *domain.LedgerTransaction
	err := s.txManager.Begin(ctx, func(ctx context.Context) error {
		var err error
		tx, err = s.post(ctx, walletID, amount, domain.KindAdminAdjustment, meta)
		return err
	})
	if err != nil {
		return nil, err
	}
	return tx, nil
}

// Transfer debits debitAmount from one wallet and credits creditAmount
// to another as a single database transaction: either all entries are
// written or none is. creditAmount may differ from debitAmount when a
// platform fee is retained or returned. A zero amount on one side is
// legal — a 0% or 100% commission split awards that side nothing, and
// no entry is written for it.
func (s *Service) Transfer(ctx context.Context, fromWalletID, toWalletID int, debitAmount, creditAmount int64,
	debitKind, creditKind domain.TransactionKind, meta Metadata) (*domain.LedgerTransaction, *domain.LedgerTransaction, error) {
	if debitAmount < 0 || creditAmount < 0 || debitAmount+creditAmount == 0 {
		return nil, nil, domain.ErrInvalidAmount
	}

	debitMeta, creditMeta := meta, meta
	if meta.IdempotencyKey != "" {
		debitMeta.IdempotencyKey = meta.IdempotencyKey + ":debit"
		creditMeta.IdempotencyKey = meta.IdempotencyKey + ":credit"
	}
	if meta.CounterpartyID == nil {
		debitMeta.CounterpartyID = intPtr(toWalletID)
		creditMeta.CounterpartyID = intPtr(fromWalletID)
	}

	var debitTx, creditTx *domain.LedgerTransaction
	err := s.txManager.Begin(ctx, func(ctx context.Context) error {
		var err error
		if debitAmount > 0 {
			debitTx, err = s.post(ctx, fromWalletID, -debitAmount, debitKind, debitMeta)
			if err != nil {
				return err
			}
		}
		if creditAmount > 0 {
			creditTx, err = s.post(ctx, toWalletID, creditAmount, creditKind, creditMeta)
		}
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return debitTx, creditTx, nil
}

func (s *Service) History(ctx context.Context, walletID int, cursorTime time.Time, cursorID string, limit int) ([]domain.LedgerTransaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	txs, err := s.ledgerRepo.History(ctx, walletID, cursorTime, cursorID, limit)
	if err != nil {
		zap.L().Error("failed to fetch ledger history", zap.Error(err))
		return nil, err
	}
	return txs, nil
}

// CheckIntegrity verifies balance == sum(history) for a wallet.
func (s *Service) CheckIntegrity(ctx context.Context, walletID int) (bool, error) {
	wallet, err := s.walletRepo.GetByID(ctx, walletID)
	if err != nil {
		return false, err
	}
	if wallet == nil {
		return false, fmt.Errorf("wallet %d: %w", walletID, domain.ErrWalletNotFound)
	}
	sum, err := s.ledgerRepo.SumAmounts(ctx, walletID)
	if err != nil {
		return false, err
	}
	if sum != wallet.Balance {
		zap.L().Error("wallet balance does not match ledger sum",
			zap.Int("wallet_id", walletID), zap.Int64("balance", wallet.Balance), zap.Int64("sum", sum))
		return false, nil
	}
	return true, nil
}

// post is the only code path that moves a balance. It recomputes the
// resulting balance, enforces the non-negative floor, appends the
// immutable entry and bumps the wallet row under its version check.
func (s *Service) post(ctx context.Context, walletID int, amount int64, kind domain.TransactionKind, meta Metadata) (*domain.LedgerTransaction, error) {
	wallet, err := s.walletRepo.GetByID(ctx, walletID)
	if err != nil {
		return nil, err
	}
	if wallet == nil {
		return nil, fmt.Errorf("wallet %d: %w", walletID, domain.ErrWalletNotFound)
	}

	if meta.IdempotencyKey != "" {
		existing, err := s.ledgerRepo.GetByIdempotencyKey(ctx, walletID, meta.IdempotencyKey)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			zap.L().Info("retried ledger post absorbed",
				zap.Int("wallet_id", walletID), zap.String("idempotency_key", meta.IdempotencyKey))
			return existing, nil
		}
	}

	newBalance := wallet.Balance + amount
	if newBalance < 0 {
		if kind != domain.KindAdminAdjustment || !meta.AllowNegative {
			return nil, fmt.Errorf("wallet %d: balance %d, amount %d: %w",
				walletID, wallet.Balance, amount, domain.ErrInsufficientFunds)
		}
		if meta.Description == "" {
			return nil, errors.New("floor-bypassing adjustment requires an audit note")
		}
	}

	var key *string
	if meta.IdempotencyKey != "" {
		key = &meta.IdempotencyKey
	}
	entry := &domain.LedgerTransaction{
		ID:             uuid.New(),
		WalletID:       walletID,
		Amount:         amount,
		Kind:           kind,
		CourseID:       meta.CourseID,
		BookingID:      meta.BookingID,
		CounterpartyID: meta.CounterpartyID,
		Description:    meta.Description,
		BalanceAfter:   newBalance,
		AdminVerified:  meta.AdminVerified,
		IdempotencyKey: key,
	}

	committed, err := s.ledgerRepo.Append(ctx, entry)
	if err != nil {
		zap.L().Error("failed to append ledger transaction", zap.Error(err))
		return nil, err
	}
	// A concurrent retry won the append race; its balance update already
	// happened, so this call must not move the balance again.
	if committed.ID != entry.ID {
		return committed, nil
	}

	if _, err := s.walletRepo.UpdateBalance(ctx, walletID, newBalance, wallet.Version); err != nil {
		return nil, err
	}
	metrics.RecordLedgerEntry(string(kind))
	return committed, nil
}

func intPtr(v int) *int {
	return &v
}
