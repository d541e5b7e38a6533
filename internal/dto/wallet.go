package dto

import "time"

type WalletResponseDTO struct {
	OwnerType string    `json:"owner_type" example:"trainer"`
	OwnerID   int       `json:"owner_id" example:"42"`
	Balance   int64     `json:"balance" example:"700"`
	UpdatedAt time.Time `json:"updated_at"`
}

type TransactionResponseDTO struct {
	ID           string    `json:"id"`
	Amount       int64     `json:"amount" example:"-100"`
	Kind         string    `json:"kind" example:"purchase"`
	BookingID    *int      `json:"booking_id,omitempty"`
	CourseID     *int      `json:"course_id,omitempty"`
	Description  string    `json:"description"`
	BalanceAfter int64     `json:"balance_after"`
	CreatedAt    time.Time `json:"created_at"`
}

type TransactionHistoryResponseDTO struct {
	Transactions []TransactionResponseDTO `json:"transactions"`
	NextCursorAt *time.Time               `json:"next_cursor_at,omitempty"`
	NextCursorID string                   `json:"next_cursor_id,omitempty"`
}

type AdjustmentRequestDTO struct {
	OwnerType     string `json:"owner_type" example:"user"`
	OwnerID       int    `json:"owner_id" example:"3"`
	Amount        int64  `json:"amount" example:"-50"`
	Description   string `json:"description" example:"correction for duplicate top-up"`
	AllowNegative bool   `json:"allow_negative,omitempty"`
}
