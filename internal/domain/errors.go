package domain

import "errors"

var (
	// Command validation errors
	ErrAccountAlreadyExists   = errors.New("account already exists")
	ErrAccountNotFound        = errors.New("account not found")
	ErrNegativeInitialBalance = errors.New("initial balance cannot be negative")
	ErrNegativeAmount         = errors.New("amount cannot be negative")
	ErrInsufficientBalance    = errors.New("insufficient balance")

	// Dispatch errors
	ErrUnknownCommand = errors.New("unknown command type")
	ErrUnknownEvent   = errors.New("unknown event type")
)
