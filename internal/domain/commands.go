package domain

import "github.com/shopspring/decimal"

// Command types
const (
	CommandTypeCreateAccount = "account.create"
	CommandTypeCreditAccount = "account.credit"
	CommandTypeDebitAccount  = "account.debit"
)

// Command is an intent to change one account. Commands are ephemeral: they are
// handled exactly once and never persisted.
type Command interface {
	AccountID() string
	CommandType() string
}

// CreateAccount opens a new account with an initial balance.
type CreateAccount struct {
	ID             string
	Currency       string
	InitialBalance decimal.Decimal
}

func (c CreateAccount) AccountID() string   { return c.ID }
func (c CreateAccount) CommandType() string { return CommandTypeCreateAccount }

// CreditAccount deposits an amount into an existing account.
type CreditAccount struct {
	ID       string
	Currency string
	Amount   decimal.Decimal
}

func (c CreditAccount) AccountID() string   { return c.ID }
func (c CreditAccount) CommandType() string { return CommandTypeCreditAccount }

// DebitAccount withdraws an amount from an existing account.
type DebitAccount struct {
	ID       string
	Currency string
	Amount   decimal.Decimal
}

func (c DebitAccount) AccountID() string   { return c.ID }
func (c DebitAccount) CommandType() string { return CommandTypeDebitAccount }
