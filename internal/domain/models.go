package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OwnerType separates the two wallet namespaces. A trainer's earnings
// wallet never merges with the same person's customer wallet.
type OwnerType string

const (
	OwnerUser    OwnerType = "user"
	OwnerTrainer OwnerType = "trainer"
)

type Role string

const (
	RoleCustomer Role = "customer"
	RoleTrainer  Role = "trainer"
	RoleAdmin    Role = "admin"
)

type Wallet struct {
	ID        int       `db:"id"`
	OwnerType OwnerType `db:"owner_type"`
	OwnerID   int       `db:"owner_id"`
	Balance   int64     `db:"balance"`
	Version   int64     `db:"version"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

type TransactionKind string

const (
	KindPurchase             TransactionKind = "purchase"
	KindCourseSaleCommission TransactionKind = "course_sale_commission"
	KindAdminAdjustment      TransactionKind = "admin_adjustment"
	KindPrivateLessonRevenue TransactionKind = "private_lesson_revenue"
	KindWithdrawal           TransactionKind = "withdrawal"
	KindRefund               TransactionKind = "refund"
)

// LedgerTransaction is append-only: corrections are new offsetting
// entries, never edits.
type LedgerTransaction struct {
	ID             uuid.UUID       `db:"id"`
	WalletID       int             `db:"wallet_id"`
	Amount         int64           `db:"amount"` // positive = credit, negative = debit
	Kind           TransactionKind `db:"kind"`
	CourseID       *int            `db:"course_id"`
	BookingID      *int            `db:"booking_id"`
	CounterpartyID *int            `db:"counterparty_id"`
	Description    string          `db:"description"`
	BalanceAfter   int64           `db:"balance_after"`
	AdminVerified  bool            `db:"admin_verified"`
	IdempotencyKey *string         `db:"idempotency_key"`
	CreatedAt      time.Time       `db:"created_at"`
}

type CommissionConfig struct {
	ID        int       `db:"id"`
	CourseID  *int      `db:"course_id"` // nil = trainer's private-lesson rate
	TrainerID int       `db:"trainer_id"`
	Percent   int       `db:"percent"`
	Active    bool      `db:"active"`
	Notes     string    `db:"notes"`
	CreatedBy int       `db:"created_by"`
	UpdatedBy int       `db:"updated_by"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

type BookingStatus string

const (
	BookingPending         BookingStatus = "pending"
	BookingConfirmed       BookingStatus = "confirmed"
	BookingAwaitingPayment BookingStatus = "awaiting_payment"
	BookingPaid            BookingStatus = "paid"
	BookingCompleted       BookingStatus = "completed"
	BookingCancelled       BookingStatus = "cancelled"
	BookingRejected        BookingStatus = "rejected"
	BookingExpired         BookingStatus = "expired"
)

// Terminal reports whether no further transition is accepted from s,
// except the refund path out of paid-then-cancelled which operates on
// the ledger, not the booking status.
func (s BookingStatus) Terminal() bool {
	switch s {
	case BookingCompleted, BookingCancelled, BookingRejected, BookingExpired:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentUnpaid   PaymentStatus = "unpaid"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
)

type Booking struct {
	ID              int             `db:"id"`
	Number          string          `db:"number"`
	TrainerID       int             `db:"trainer_id"`
	TrainerName     string          `db:"trainer_name"`
	CustomerID      int             `db:"customer_id"`
	CustomerName    string          `db:"customer_name"`
	CustomerEmail   string          `db:"customer_email"`
	CourseID        *int            `db:"course_id"`
	RequestedTime   time.Time       `db:"requested_time"`
	ConfirmedTime   *time.Time      `db:"confirmed_time"`
	DurationMinutes int             `db:"duration_minutes"`
	Price           decimal.Decimal `db:"price"` // out-of-band currency amount
	PriceCoins      int64           `db:"price_coins"`
	Notes           string          `db:"notes"`
	Status          BookingStatus   `db:"status"`
	PaymentStatus   PaymentStatus   `db:"payment_status"`
	PaymentDeadline *time.Time      `db:"payment_deadline"`
	PaidAt          *time.Time      `db:"paid_at"`
	PaymentRef      *string         `db:"payment_ref"`
	TrainerRevenue  int64           `db:"trainer_revenue"`
	PlatformFee     int64           `db:"platform_fee"`
	Version         int64           `db:"version"`
	CreatedAt       time.Time       `db:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at"`
}

// SessionEnd returns the scheduled end of the lesson, or zero time if
// the booking was never confirmed.
func (b *Booking) SessionEnd() time.Time {
	if b.ConfirmedTime == nil {
		return time.Time{}
	}
	return b.ConfirmedTime.Add(time.Duration(b.DurationMinutes) * time.Minute)
}
