package dto

import (
	"github.com/shopspring/decimal"
)

// CreateAccountRequest represents a request to open an account. The account
// identity is assigned server-side.
type CreateAccountRequest struct {
	Currency       string          `json:"currency"`
	InitialBalance decimal.Decimal `json:"initial_balance"`
}

// CreditAccountRequest represents a request to credit an account.
type CreditAccountRequest struct {
	Currency string          `json:"currency"`
	Amount   decimal.Decimal `json:"amount"`
}

// DebitAccountRequest represents a request to debit an account.
type DebitAccountRequest struct {
	Currency string          `json:"currency"`
	Amount   decimal.Decimal `json:"amount"`
}
