package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of an account. The only legal progression is
// UNINITIALIZED -> CREATED -> ACTIVATED.
type Status string

const (
	StatusUninitialized Status = "UNINITIALIZED"
	StatusCreated       Status = "CREATED"
	StatusActivated     Status = "ACTIVATED"
)

// Account is the aggregate state derived purely from an account's event
// history. It is a value: Apply returns a new state and never mutates the
// receiver, so replay stays a pure fold.
type Account struct {
	ID       string
	Currency string
	Balance  decimal.Decimal
	Status   Status
	// Sequence is the sequence number of the last applied event, used as the
	// expected sequence for optimistic-concurrency appends.
	Sequence int64
}

// NewAccount returns the zero state replay starts from.
func NewAccount() Account {
	return Account{Status: StatusUninitialized, Balance: decimal.Zero}
}

// Replay folds an account's committed events, in persisted order, into its
// current state. Replaying a prefix of the history is valid and yields the
// state as of the last record in the prefix.
func Replay(records []EventRecord) Account {
	state := NewAccount()
	for _, rec := range records {
		state = state.Apply(rec)
	}
	return state
}

// Apply folds a single committed event into the state. An event type the fold
// does not know is a programming error, not bad input, and panics rather than
// silently corrupting state.
func (a Account) Apply(rec EventRecord) Account {
	switch e := rec.Event.(type) {
	case AccountCreated:
		a.ID = e.ID
		a.Currency = e.Currency
		a.Balance = e.InitialBalance
		a.Status = StatusCreated
	case AccountActivated:
		a.Status = StatusActivated
	case AccountCredited:
		a.Balance = a.Balance.Add(e.Amount)
	case AccountDebited:
		a.Balance = a.Balance.Sub(e.Amount)
	default:
		panic(fmt.Sprintf("replay: unknown event %T at sequence %d for account %s",
			rec.Event, rec.Sequence, rec.AccountID))
	}
	a.Sequence = rec.Sequence
	return a
}
