package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

type CreateBookingRequestDTO struct {
	TrainerID       int             `json:"trainer_id" example:"42"`
	TrainerName     string          `json:"trainer_name" example:"Lena Ortiz"`
	CustomerName    string          `json:"customer_name" example:"Sam Doe"`
	CustomerEmail   string          `json:"customer_email" example:"sam@example.com"`
	CourseID        *int            `json:"course_id,omitempty" example:"7"`
	RequestedTime   time.Time       `json:"requested_time" example:"2025-02-10T18:00:00Z"`
	DurationMinutes int             `json:"duration_minutes" example:"60"`
	Price           decimal.Decimal `json:"price" example:"49.90"`
	PriceCoins      int64           `json:"price_coins" example:"100"`
	Notes           string          `json:"notes,omitempty"`
}

type BookingResponseDTO struct {
	ID              int             `json:"id"`
	Number          string          `json:"number" example:"7992739871"`
	TrainerID       int             `json:"trainer_id"`
	TrainerName     string          `json:"trainer_name"`
	CustomerID      int             `json:"customer_id"`
	CustomerName    string          `json:"customer_name"`
	CourseID        *int            `json:"course_id,omitempty"`
	RequestedTime   time.Time       `json:"requested_time"`
	ConfirmedTime   *time.Time      `json:"confirmed_time,omitempty"`
	DurationMinutes int             `json:"duration_minutes"`
	Price           decimal.Decimal `json:"price"`
	PriceCoins      int64           `json:"price_coins"`
	Status          string          `json:"status" example:"awaiting_payment"`
	PaymentStatus   string          `json:"payment_status" example:"unpaid"`
	PaymentDeadline *time.Time      `json:"payment_deadline,omitempty"`
	PaidAt          *time.Time      `json:"paid_at,omitempty"`
	PaymentRef      *string         `json:"payment_ref,omitempty"`
	TrainerRevenue  int64           `json:"trainer_revenue"`
	PlatformFee     int64           `json:"platform_fee"`
	CreatedAt       time.Time       `json:"created_at"`
}

type ConfirmBookingRequestDTO struct {
	ConfirmedTime time.Time `json:"confirmed_time" example:"2025-02-10T18:00:00Z"`
}

type PayBookingRequestDTO struct {
	Reference     string `json:"reference" example:"TX123"`
	Amount        int64  `json:"amount,omitempty" example:"100"`
	AdminOverride bool   `json:"admin_override,omitempty"`
}

type CancelBookingRequestDTO struct {
	Reason string `json:"reason,omitempty"`
}

type RejectBookingRequestDTO struct {
	Reason string `json:"reason,omitempty"`
}

type PurchaseWebhookRequestDTO struct {
	BookingID int       `json:"booking_id" example:"17"`
	Reference string    `json:"reference" example:"PAYPAL-8S1"`
	Amount    int64     `json:"amount" example:"100"`
	Timestamp time.Time `json:"timestamp"`
}
