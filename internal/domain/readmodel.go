package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Operation types for the read-side operations history.
const (
	OperationTypeCredit = "CREDIT"
	OperationTypeDebit  = "DEBIT"
)

// AccountRecord is the denormalized, eventually-consistent account summary
// maintained by the projector. LastSequence is the sequence number of the last
// event folded in, used to make re-delivery a no-op.
type AccountRecord struct {
	ID           string
	Balance      decimal.Decimal
	Currency     string
	Status       Status
	LastSequence int64
	UpdatedAt    time.Time
}

// Operation is a single credit or debit in the read-side history of an
// account, derived from the corresponding event.
type Operation struct {
	AccountID  string
	Sequence   int64
	Type       string
	Amount     decimal.Decimal
	Currency   string
	OccurredAt time.Time
}
