package settlementservice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dancelink/settled/internal/domain"
	"github.com/dancelink/settled/internal/events"
	"github.com/dancelink/settled/internal/metrics"
	"github.com/dancelink/settled/internal/pg"
	"github.com/dancelink/settled/internal/service/bookingservice"
	"github.com/dancelink/settled/internal/service/commissionservice"
	"github.com/dancelink/settled/internal/service/walletservice"
)

//go:generate mockgen -source=settlementservice.go -destination=mock_settlementservice.go -package=settlementservice

type EventKind string

const (
	EventPurchaseCompleted      EventKind = "purchase_completed"
	EventManualPaymentConfirmed EventKind = "manual_payment_confirmed"
	EventDeadlineSweep          EventKind = "deadline_sweep"
	EventCompletionSweep        EventKind = "completion_sweep"
	EventCancellationRequested  EventKind = "cancellation_requested"
)

// Event is one external trigger. Exactly one booking-state transition
// and at most one ledger transfer result from applying it.
type Event struct {
	Kind            EventKind
	BookingID       int
	Reference       string
	AmountConfirmed int64
	AdminOverride   bool
	ActorID         int
	ActorRole       domain.Role
	Reason          string
}

type Result struct {
	Booking      *domain.Booking
	Transactions []*domain.LedgerTransaction
}

type WalletService interface {
	GetOrCreate(ctx context.Context, ownerType domain.OwnerType, ownerID int) (*domain.Wallet, error)
	Transfer(ctx context.Context, fromWalletID, toWalletID int, debitAmount, creditAmount int64,
		debitKind, creditKind domain.TransactionKind, meta walletservice.Metadata) (*domain.LedgerTransaction, *domain.LedgerTransaction, error)
}

type CommissionService interface {
	ResolvePercent(ctx context.Context, courseID *int, trainerID int) (int, error)
}

type Publisher interface {
	Publish(ctx context.Context, e events.Event)
}

type Service struct {
	bookingRepo bookingservice.Repo
	wallets     WalletService
	commissions CommissionService
	txManager   pg.TXManager
	events      Publisher
	now         func() time.Time
}

func New(bookingRepo bookingservice.Repo, wallets WalletService, commissions CommissionService,
	txManager pg.TXManager, publisher Publisher) *Service {
	return &Service{
		bookingRepo: bookingRepo,
		wallets:     wallets,
		commissions: commissions,
		txManager:   txManager,
		events:      publisher,
		now:         time.Now,
	}
}

const maxAttempts = 3

// Apply coordinates one external event into one atomic settlement.
// Version conflicts are retried against fresh state; a loser whose
// booking meanwhile reached a terminal state exits as a no-op inside
// the per-kind handlers.
func (s *Service) Apply(ctx context.Context, event Event) (*Result, error) {
	var res *Result
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		res, err = s.apply(ctx, event)
		if !errors.Is(err, domain.ErrConflict) {
			break
		}
		zap.L().Warn("settlement lost version race, retrying",
			zap.String("event", string(event.Kind)), zap.Int("booking_id", event.BookingID), zap.Int("attempt", attempt))
	}

	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.RecordSettlement(string(event.Kind), outcome)
	return res, err
}

func (s *Service) apply(ctx context.Context, event Event) (*Result, error) {
	booking, err := s.bookingRepo.GetByID(ctx, event.BookingID)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, fmt.Errorf("booking %d: %w", event.BookingID, domain.ErrBookingNotFound)
	}

	switch event.Kind {
	case EventPurchaseCompleted, EventManualPaymentConfirmed:
		return s.settlePayment(ctx, booking, event)
	case EventDeadlineSweep:
		return s.expire(ctx, booking)
	case EventCompletionSweep:
		return s.complete(ctx, booking)
	case EventCancellationRequested:
		return s.cancel(ctx, booking, event)
	default:
		return nil, fmt.Errorf("unknown settlement event kind: %s", event.Kind)
	}
}

// settlePayment applies awaiting_payment -> paid plus the single coin
// transfer, as one database transaction.
func (s *Service) settlePayment(ctx context.Context, booking *domain.Booking, event Event) (*Result, error) {
	// Retried webhook or double admin confirmation: absorb silently.
	if booking.Status == domain.BookingPaid || booking.PaymentStatus == domain.PaymentPaid {
		zap.L().Info("duplicate payment confirmation absorbed",
			zap.Int("booking_id", booking.ID), zap.String("reference", event.Reference))
		return &Result{Booking: booking}, nil
	}

	now := s.now()
	if booking.Status == domain.BookingAwaitingPayment &&
		booking.PaymentDeadline != nil && now.After(*booking.PaymentDeadline) && !event.AdminOverride {
		// The sweep may not have run yet; the deadline still binds.
		return nil, fmt.Errorf("booking %d: %w", booking.ID, domain.ErrDeadlinePassed)
	}
	if err := bookingservice.Transition(booking, domain.BookingPaid); err != nil {
		return nil, err
	}

	percent, err := s.commissions.ResolvePercent(ctx, booking.CourseID, booking.TrainerID)
	if err != nil {
		return nil, err
	}
	trainerShare, platformFee, err := commissionservice.Split(booking.PriceCoins, percent)
	if err != nil {
		return nil, err
	}
	if event.AmountConfirmed != 0 && event.AmountConfirmed != booking.PriceCoins {
		zap.L().Warn("confirmed amount differs from booking price",
			zap.Int("booking_id", booking.ID),
			zap.Int64("confirmed", event.AmountConfirmed), zap.Int64("price_coins", booking.PriceCoins))
	}

	creditKind := domain.KindPrivateLessonRevenue
	if booking.CourseID != nil {
		creditKind = domain.KindCourseSaleCommission
	}
	idempotencyKey := "pay:booking:" + fmt.Sprint(booking.ID)
	if event.Reference != "" {
		idempotencyKey = "pay:" + event.Reference
	}

	result := &Result{}
	err = s.txManager.Begin(ctx, func(ctx context.Context) error {
		// A free booking moves no coins; only the state changes.
		var debitTx, creditTx *domain.LedgerTransaction
		if booking.PriceCoins > 0 {
			customerWallet, err := s.wallets.GetOrCreate(ctx, domain.OwnerUser, booking.CustomerID)
			if err != nil {
				return err
			}
			trainerWallet, err := s.wallets.GetOrCreate(ctx, domain.OwnerTrainer, booking.TrainerID)
			if err != nil {
				return err
			}

			debitTx, creditTx, err = s.wallets.Transfer(ctx, customerWallet.ID, trainerWallet.ID,
				booking.PriceCoins, trainerShare, domain.KindPurchase, creditKind, walletservice.Metadata{
					CourseID:       booking.CourseID,
					BookingID:      &booking.ID,
					Description:    "payment for booking " + booking.Number,
					IdempotencyKey: idempotencyKey,
				})
			if err != nil {
				return err
			}
		}

		booking.PaymentStatus = domain.PaymentPaid
		booking.PaidAt = &now
		booking.TrainerRevenue = trainerShare
		booking.PlatformFee = platformFee
		if event.Reference != "" {
			ref := event.Reference
			booking.PaymentRef = &ref
		}

		updated, err := s.bookingRepo.Update(ctx, booking)
		if err != nil {
			return err
		}
		result.Booking = updated
		result.Transactions = ledgerEntries(debitTx, creditTx)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.events.Publish(ctx, events.Event{
		Kind:          events.PaymentReceived,
		BookingID:     result.Booking.ID,
		BookingNumber: result.Booking.Number,
		Reference:     event.Reference,
		OccurredAt:    now,
	})
	return result, nil
}

// expire applies awaiting_payment -> expired. A confirmed booking whose
// deadline elapsed before the payment window ever opened expires the
// same way: it can never be paid, and the slot must be released. No
// ledger entry is created in either case, no funds were ever
// transferred.
func (s *Service) expire(ctx context.Context, booking *domain.Booking) (*Result, error) {
	if booking.Status.Terminal() {
		// A concurrent cancellation or earlier sweep got here first.
		return &Result{Booking: booking}, nil
	}
	if booking.Status != domain.BookingAwaitingPayment && booking.Status != domain.BookingConfirmed {
		return &Result{Booking: booking}, nil
	}
	now := s.now()
	if booking.PaymentDeadline == nil || !now.After(*booking.PaymentDeadline) {
		return &Result{Booking: booking}, nil
	}

	if err := bookingservice.Transition(booking, domain.BookingExpired); err != nil {
		return nil, err
	}
	updated, err := s.bookingRepo.Update(ctx, booking)
	if err != nil {
		return nil, err
	}
	s.events.Publish(ctx, events.Event{
		Kind:          events.BookingExpired,
		BookingID:     updated.ID,
		BookingNumber: updated.Number,
		OccurredAt:    now,
	})
	return &Result{Booking: updated}, nil
}

// complete applies paid -> completed once the scheduled session has
// passed.
func (s *Service) complete(ctx context.Context, booking *domain.Booking) (*Result, error) {
	if booking.Status.Terminal() {
		return &Result{Booking: booking}, nil
	}
	if booking.Status != domain.BookingPaid {
		return &Result{Booking: booking}, nil
	}
	now := s.now()
	if sessionEnd := booking.SessionEnd(); sessionEnd.IsZero() || now.Before(sessionEnd) {
		return &Result{Booking: booking}, nil
	}

	if err := bookingservice.Transition(booking, domain.BookingCompleted); err != nil {
		return nil, err
	}
	updated, err := s.bookingRepo.Update(ctx, booking)
	if err != nil {
		return nil, err
	}
	s.events.Publish(ctx, events.Event{
		Kind:          events.BookingCompleted,
		BookingID:     updated.ID,
		BookingNumber: updated.Number,
		OccurredAt:    now,
	})
	return &Result{Booking: updated}, nil
}

// cancel handles customer- and admin-initiated cancellation. A paid
// booking routes through the refund path: the original transfer is
// reversed with an offsetting pair of entries, never by editing
// history.
func (s *Service) cancel(ctx context.Context, booking *domain.Booking, event Event) (*Result, error) {
	if booking.Status.Terminal() {
		// Lost the race to a sweep, a duplicate request or a rejection;
		// the booking already reached a final state and the slot is
		// released, so there is nothing left to do.
		return &Result{Booking: booking}, nil
	}

	now := s.now()
	result := &Result{}

	if booking.Status == domain.BookingPaid {
		err := s.txManager.Begin(ctx, func(ctx context.Context) error {
			// A free booking transferred nothing, so nothing comes back.
			var debitTx, creditTx *domain.LedgerTransaction
			if booking.PriceCoins > 0 {
				customerWallet, err := s.wallets.GetOrCreate(ctx, domain.OwnerUser, booking.CustomerID)
				if err != nil {
					return err
				}
				trainerWallet, err := s.wallets.GetOrCreate(ctx, domain.OwnerTrainer, booking.TrainerID)
				if err != nil {
					return err
				}

				// Debit the trainer's net share, restore the customer's full
				// payment; the platform gives back its retained fee.
				debitTx, creditTx, err = s.wallets.Transfer(ctx, trainerWallet.ID, customerWallet.ID,
					booking.TrainerRevenue, booking.PriceCoins, domain.KindRefund, domain.KindRefund, walletservice.Metadata{
						CourseID:       booking.CourseID,
						BookingID:      &booking.ID,
						Description:    "refund for booking " + booking.Number,
						IdempotencyKey: "refund:booking:" + fmt.Sprint(booking.ID),
					})
				if err != nil {
					return err
				}
			}

			if err := bookingservice.Transition(booking, domain.BookingCancelled); err != nil {
				return err
			}
			booking.PaymentStatus = domain.PaymentRefunded
			if event.Reason != "" {
				booking.Notes = booking.Notes + "\ncancelled: " + event.Reason
			}
			updated, err := s.bookingRepo.Update(ctx, booking)
			if err != nil {
				return err
			}
			result.Booking = updated
			result.Transactions = ledgerEntries(debitTx, creditTx)
			return nil
		})
		if err != nil {
			return nil, err
		}
	} else {
		if err := bookingservice.Transition(booking, domain.BookingCancelled); err != nil {
			return nil, err
		}
		if event.Reason != "" {
			booking.Notes = booking.Notes + "\ncancelled: " + event.Reason
		}
		updated, err := s.bookingRepo.Update(ctx, booking)
		if err != nil {
			return nil, err
		}
		result.Booking = updated
	}

	s.events.Publish(ctx, events.Event{
		Kind:          events.BookingCancelled,
		BookingID:     result.Booking.ID,
		BookingNumber: result.Booking.Number,
		OccurredAt:    now,
	})
	return result, nil
}

// ledgerEntries drops the legs a zero-amount split never wrote.
func ledgerEntries(txs ...*domain.LedgerTransaction) []*domain.LedgerTransaction {
	entries := make([]*domain.LedgerTransaction, 0, len(txs))
	for _, tx := range txs {
		if tx != nil {
			entries = append(entries, tx)
		}
	}
	return entries
}
