package bookingservice

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/dancelink/settled/internal/domain"
	"github.com/dancelink/settled/internal/events"
	"github.com/dancelink/settled/pkg/validate"
)

//go:generate mockgen -source=bookingservice.go -destination=mock_bookingservice.go -package=bookingservice

type Repo interface {
	Create(ctx context.Context, b *domain.Booking) (*domain.Booking, error)
	GetByID(ctx context.Context, bookingID int) (*domain.Booking, error)
	GetByNumber(ctx context.Context, number string) (*domain.Booking, error)
	ListByCustomer(ctx context.Context, customerID int) ([]domain.Booking, error)
	ListByTrainer(ctx context.Context, trainerID int) ([]domain.Booking, error)
	Update(ctx context.Context, b *domain.Booking) (*domain.Booking, error)
	ListExpirable(ctx context.Context, now time.Time, limit int) ([]int, error)
	ListCompletable(ctx context.Context, now time.Time, limit int) ([]int, error)
}

type Publisher interface {
	Publish(ctx context.Context, e events.Event)
}

// transitions is the single source of lifecycle legality. Anything not
// listed fails with domain.ErrInvalidTransition.
var transitions = map[domain.BookingStatus][]domain.BookingStatus{
	domain.BookingPending:         {domain.BookingConfirmed, domain.BookingRejected, domain.BookingCancelled},
	domain.BookingConfirmed:       {domain.BookingAwaitingPayment, domain.BookingRejected, domain.BookingCancelled, domain.BookingExpired},
	domain.BookingAwaitingPayment: {domain.BookingPaid, domain.BookingExpired, domain.BookingCancelled},
	domain.BookingPaid:            {domain.BookingCompleted, domain.BookingCancelled},
}

func CanTransition(from, to domain.BookingStatus) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Transition mutates the status or leaves the booking untouched.
func Transition(b *domain.Booking, to domain.BookingStatus) error {
	if !CanTransition(b.Status, to) {
		return fmt.Errorf("%s -> %s: %w", b.Status, to, domain.ErrInvalidTransition)
	}
	b.Status = to
	return nil
}

const bookingNumberLength = 10

type Service struct {
	repo         Repo
	events       Publisher
	deadlineLead time.Duration
	now          func() time.Time
}

func New(repo Repo, publisher Publisher, deadlineLead time.Duration) *Service {
	return &Service{
		repo:         repo,
		events:       publisher,
		deadlineLead: deadlineLead,
		now:          time.Now,
	}
}

type CreateInput struct {
	TrainerID       int
	TrainerName     string
	CustomerID      int
	CustomerName    string
	CustomerEmail   string
	CourseID        *int
	RequestedTime   time.Time
	DurationMinutes int
	Price           decimal.Decimal
	PriceCoins      int64
	Notes           string
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*domain.Booking, error) {
	if in.PriceCoins < 0 {
		return nil, domain.ErrInvalidAmount
	}
	number, err := validate.GenerateNumber(bookingNumberLength)
	if err != nil {
		zap.L().Error("failed to generate booking number", zap.Error(err))
		return nil, err
	}

	booking := &domain.Booking{
		Number:          number,
		TrainerID:       in.TrainerID,
		TrainerName:     in.TrainerName,
		CustomerID:      in.CustomerID,
		CustomerName:    in.CustomerName,
		CustomerEmail:   in.CustomerEmail,
		CourseID:        in.CourseID,
		RequestedTime:   in.RequestedTime,
		DurationMinutes: in.DurationMinutes,
		Price:           in.Price,
		PriceCoins:      in.PriceCoins,
		Notes:           in.Notes,
		Status:          domain.BookingPending,
		PaymentStatus:   domain.PaymentUnpaid,
	}
	created, err := s.repo.Create(ctx, booking)
	if err != nil {
		zap.L().Error("failed to create booking", zap.Error(err))
		return nil, err
	}
	return created, nil
}

func (s *Service) Get(ctx context.Context, bookingID int) (*domain.Booking, error) {
	booking, err := s.repo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, fmt.Errorf("booking %d: %w", bookingID, domain.ErrBookingNotFound)
	}
	return booking, nil
}

func (s *Service) GetByNumber(ctx context.Context, number string) (*domain.Booking, error) {
	booking, err := s.repo.GetByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, fmt.Errorf("booking %s: %w", number, domain.ErrBookingNotFound)
	}
	return booking, nil
}

func (s *Service) ListByCustomer(ctx context.Context, customerID int) ([]domain.Booking, error) {
	return s.repo.ListByCustomer(ctx, customerID)
}

func (s *Service) ListByTrainer(ctx context.Context, trainerID int) ([]domain.Booking, error) {
	return s.repo.ListByTrainer(ctx, trainerID)
}

// Confirm is the trainer/admin action pending -> confirmed. It fixes
// the lesson time and derives the payment deadline from it.
func (s *Service) Confirm(ctx context.Context, bookingID int, confirmedTime time.Time) (*domain.Booking, error) {
	booking, err := s.Get(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if err := Transition(booking, domain.BookingConfirmed); err != nil {
		return nil, err
	}

	deadline := confirmedTime.Add(-s.deadlineLead)
	booking.ConfirmedTime = &confirmedTime
	booking.PaymentDeadline = &deadline

	updated, err := s.repo.Update(ctx, booking)
	if err != nil {
		return nil, err
	}
	s.events.Publish(ctx, events.Event{
		Kind:          events.BookingConfirmed,
		BookingID:     updated.ID,
		BookingNumber: updated.Number,
		OccurredAt:    s.now(),
	})
	return updated, nil
}

// OpenPayment moves confirmed -> awaiting_payment once a payment
// channel has been issued. A booking whose deadline already passed is
// not payable and never enters awaiting_payment.
func (s *Service) OpenPayment(ctx context.Context, bookingID int) (*domain.Booking, error) {
	booking, err := s.Get(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.PaymentDeadline == nil {
		return nil, fmt.Errorf("booking %d has no payment deadline: %w", bookingID, domain.ErrInvalidTransition)
	}
	if s.now().After(*booking.PaymentDeadline) {
		return nil, fmt.Errorf("booking %d: %w", bookingID, domain.ErrDeadlinePassed)
	}
	if err := Transition(booking, domain.BookingAwaitingPayment); err != nil {
		return nil, err
	}
	return s.repo.Update(ctx, booking)
}

// Reject is the trainer/admin terminal exit from pending or confirmed.
// No ledger effect.
func (s *Service) Reject(ctx context.Context, bookingID int, reason string) (*domain.Booking, error) {
	booking, err := s.Get(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if err := Transition(booking, domain.BookingRejected); err != nil {
		return nil, err
	}
	if reason != "" {
		booking.Notes = appendNote(booking.Notes, "rejected: "+reason)
	}
	updated, err := s.repo.Update(ctx, booking)
	if err != nil {
		return nil, err
	}
	s.events.Publish(ctx, events.Event{
		Kind:          events.BookingRejected,
		BookingID:     updated.ID,
		BookingNumber: updated.Number,
		OccurredAt:    s.now(),
	})
	return updated, nil
}

func appendNote(notes, line string) string {
	if notes == "" {
		return line
	}
	return notes + "\n" + line
}
