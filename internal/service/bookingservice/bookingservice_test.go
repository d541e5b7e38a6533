package bookingservice

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	gomock "go.uber.org/mock/gomock"

	"github.com/dancelink/settled/internal/domain"
	"github.com/dancelink/settled/internal/events"
	"github.com/dancelink/settled/pkg/validate"
)

func NewMock(t *testing.T) (*Service, *MockRepo, *MockPublisher) {
	ctrl := gomock.NewController(t)
	repo := NewMockRepo(ctrl)
	publisher := NewMockPublisher(ctrl)
	service := New(repo, publisher, 24*time.Hour)
	defer ctrl.Finish()
	return service, repo, publisher
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    domain.BookingStatus
		to      domain.BookingStatus
		allowed bool
	}{
		{"Pending to confirmed", domain.BookingPending, domain.BookingConfirmed, true},
		{"Pending to rejected", domain.BookingPending, domain.BookingRejected, true},
		{"Pending to cancelled", domain.BookingPending, domain.BookingCancelled, true},
		{"Pending to paid skips steps", domain.BookingPending, domain.BookingPaid, false},
		{"Confirmed to awaiting payment", domain.BookingConfirmed, domain.BookingAwaitingPayment, true},
		{"Confirmed to rejected", domain.BookingConfirmed, domain.BookingRejected, true},
		{"Confirmed to expired", domain.BookingConfirmed, domain.BookingExpired, true},
		{"Confirmed to completed skips steps", domain.BookingConfirmed, domain.BookingCompleted, false},
		{"Awaiting payment to paid", domain.BookingAwaitingPayment, domain.BookingPaid, true},
		{"Awaiting payment to expired", domain.BookingAwaitingPayment, domain.BookingExpired, true},
		{"Awaiting payment to completed", domain.BookingAwaitingPayment, domain.BookingCompleted, false},
		{"Paid to completed", domain.BookingPaid, domain.BookingCompleted, true},
		{"Paid to cancelled for refund", domain.BookingPaid, domain.BookingCancelled, true},
		{"Paid to rejected", domain.BookingPaid, domain.BookingRejected, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, CanTransition(tt.from, tt.to))
		})
	}
}

func TestTerminalStatesAreStable(t *testing.T) {
	terminal := []domain.BookingStatus{
		domain.BookingCompleted, domain.BookingCancelled, domain.BookingRejected, domain.BookingExpired,
	}
	all := []domain.BookingStatus{
		domain.BookingPending, domain.BookingConfirmed, domain.BookingAwaitingPayment, domain.BookingPaid,
		domain.BookingCompleted, domain.BookingCancelled, domain.BookingRejected, domain.BookingExpired,
	}

	for _, from := range terminal {
		assert.True(t, from.Terminal())
		for _, to := range all {
			booking := &domain.Booking{Status: from}
			err := Transition(booking, to)
			assert.ErrorIs(t, err, domain.ErrInvalidTransition)
			assert.Equal(t, from, booking.Status, "status must not move out of %s", from)
		}
	}
}

func TestCreate(t *testing.T) {
	service, repo, _ := NewMock(t)
	tests := []struct {
		name          string
		input         CreateInput
		prepareMock   func()
		expectedError error
	}{
		{
			name: "Booking created pending and unpaid",
			input: CreateInput{
				TrainerID:       3,
				CustomerID:      1,
				CourseID:        nil,
				RequestedTime:   time.Now().Add(48 * time.Hour),
				DurationMinutes: 60,
				Price:           decimal.NewFromFloat(49.90),
				PriceCoins:      100,
			},
			prepareMock: func() {
				repo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
					func(_ context.Context, b *domain.Booking) (*domain.Booking, error) {
						assert.Equal(t, domain.BookingPending, b.Status)
						assert.Equal(t, domain.PaymentUnpaid, b.PaymentStatus)
						assert.True(t, validate.IsLuhn(b.Number))
						return b, nil
					})
			},
		},
		{
			name:          "Negative coin price rejected",
			input:         CreateInput{PriceCoins: -1},
			expectedError: domain.ErrInvalidAmount,
		},
		{
			name:  "Repository error",
			input: CreateInput{PriceCoins: 100},
			prepareMock: func() {
				repo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil, errors.New("db error"))
			},
			expectedError: errors.New("db error"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.prepareMock != nil {
				tt.prepareMock()
			}

			booking, err := service.Create(context.Background(), tt.input)
			if tt.expectedError != nil {
				assert.Error(t, err)
				assert.Equal(t, tt.expectedError.Error(), err.Error())
			} else {
				assert.NoError(t, err)
				assert.NotEmpty(t, booking.Number)
			}
		})
	}
}

func TestGet(t *testing.T) {
	service, repo, _ := NewMock(t)
	tests := []struct {
		name          string
		prepareMock   func()
		expectedError error
	}{
		{
			name: "Booking found",
			prepareMock: func() {
				repo.EXPECT().GetByID(gomock.Any(), 5).Return(&domain.Booking{ID: 5}, nil)
			},
		},
		{
			name: "Booking missing",
			prepareMock: func() {
				repo.EXPECT().GetByID(gomock.Any(), 5).Return(nil, nil)
			},
			expectedError: domain.ErrBookingNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.prepareMock != nil {
				tt.prepareMock()
			}

			booking, err := service.Get(context.Background(), 5)
			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, 5, booking.ID)
			}
		})
	}
}

func TestConfirm(t *testing.T) {
	confirmedTime := time.Date(2026, 9, 10, 18, 0, 0, 0, time.UTC)

	t.Run("Deadline derived from confirmed time", func(t *testing.T) {
		service, repo, publisher := NewMock(t)
		repo.EXPECT().GetByID(gomock.Any(), 5).Return(&domain.Booking{
			ID: 5, Number: "1234567897", Status: domain.BookingPending,
		}, nil)
		repo.EXPECT().Update(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, b *domain.Booking) (*domain.Booking, error) {
				assert.Equal(t, domain.BookingConfirmed, b.Status)
				assert.Equal(t, confirmedTime, *b.ConfirmedTime)
				assert.Equal(t, confirmedTime.Add(-24*time.Hour), *b.PaymentDeadline)
				return b, nil
			})
		publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Do(
			func(_ context.Context, e events.Event) {
				assert.Equal(t, events.BookingConfirmed, e.Kind)
				assert.Equal(t, 5, e.BookingID)
			})

		booking, err := service.Confirm(context.Background(), 5, confirmedTime)
		assert.NoError(t, err)
		assert.Equal(t, domain.BookingConfirmed, booking.Status)
	})

	t.Run("Confirming a paid booking fails", func(t *testing.T) {
		service, repo, _ := NewMock(t)
		repo.EXPECT().GetByID(gomock.Any(), 5).Return(&domain.Booking{
			ID: 5, Status: domain.BookingPaid,
		}, nil)

		_, err := service.Confirm(context.Background(), 5, confirmedTime)
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	})
}

func TestOpenPayment(t *testing.T) {
	future := time.Now().Add(2 * time.Hour)
	past := time.Now().Add(-2 * time.Hour)

	t.Run("Moves to awaiting payment before the deadline", func(t *testing.T) {
		service, repo, _ := NewMock(t)
		repo.EXPECT().GetByID(gomock.Any(), 5).Return(&domain.Booking{
			ID: 5, Status: domain.BookingConfirmed, PaymentDeadline: &future,
		}, nil)
		repo.EXPECT().Update(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, b *domain.Booking) (*domain.Booking, error) {
				assert.Equal(t, domain.BookingAwaitingPayment, b.Status)
				return b, nil
			})

		booking, err := service.OpenPayment(context.Background(), 5)
		assert.NoError(t, err)
		assert.Equal(t, domain.BookingAwaitingPayment, booking.Status)
	})

	t.Run("Deadline already passed", func(t *testing.T) {
		service, repo, _ := NewMock(t)
		repo.EXPECT().GetByID(gomock.Any(), 5).Return(&domain.Booking{
			ID: 5, Status: domain.BookingConfirmed, PaymentDeadline: &past,
		}, nil)

		_, err := service.OpenPayment(context.Background(), 5)
		assert.ErrorIs(t, err, domain.ErrDeadlinePassed)
	})

	t.Run("No deadline set", func(t *testing.T) {
		service, repo, _ := NewMock(t)
		repo.EXPECT().GetByID(gomock.Any(), 5).Return(&domain.Booking{
			ID: 5, Status: domain.BookingConfirmed,
		}, nil)

		_, err := service.OpenPayment(context.Background(), 5)
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	})
}

func TestReject(t *testing.T) {
	t.Run("Rejection records the reason", func(t *testing.T) {
		service, repo, publisher := NewMock(t)
		repo.EXPECT().GetByID(gomock.Any(), 5).Return(&domain.Booking{
			ID: 5, Status: domain.BookingPending, Notes: "prefers evenings",
		}, nil)
		repo.EXPECT().Update(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, b *domain.Booking) (*domain.Booking, error) {
				assert.Equal(t, domain.BookingRejected, b.Status)
				assert.Equal(t, "prefers evenings\nrejected: slot taken", b.Notes)
				return b, nil
			})
		publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Do(
			func(_ context.Context, e events.Event) {
				assert.Equal(t, events.BookingRejected, e.Kind)
			})

		booking, err := service.Reject(context.Background(), 5, "slot taken")
		assert.NoError(t, err)
		assert.Equal(t, domain.BookingRejected, booking.Status)
	})

	t.Run("Rejecting an expired booking fails", func(t *testing.T) {
		service, repo, _ := NewMock(t)
		repo.EXPECT().GetByID(gomock.Any(), 5).Return(&domain.Booking{
			ID: 5, Status: domain.BookingExpired,
		}, nil)

		_, err := service.Reject(context.Background(), 5, "late")
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	})
}
