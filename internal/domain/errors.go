package domain

import "errors"

// All error kinds are recoverable by the caller; none is process-fatal.
var (
	ErrInvalidTransition    = errors.New("invalid booking state transition")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrConflict             = errors.New("version conflict")
	ErrDeadlinePassed       = errors.New("payment deadline passed")
	ErrInvalidConfiguration = errors.New("commission percent out of range")
	ErrInvalidAmount        = errors.New("amount must be a positive integer")
	ErrBookingNotFound      = errors.New("booking not found")
	ErrWalletNotFound       = errors.New("wallet not found")
)
