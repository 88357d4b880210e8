package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event types
const (
	EventTypeAccountCreated   = "account.created"
	EventTypeAccountActivated = "account.activated"
	EventTypeAccountCredited  = "account.credited"
	EventTypeAccountDebited   = "account.debited"
)

// Event is a domain event stamped to a single account. Events are immutable:
// once appended to the event store they are only ever read back, never changed.
type Event interface {
	AccountID() string
	EventType() string
}

// AccountCreated records the creation of an account with its opening balance.
type AccountCreated struct {
	ID             string          `json:"account_id"`
	Currency       string          `json:"currency"`
	InitialBalance decimal.Decimal `json:"initial_balance"`
}

func (e AccountCreated) AccountID() string { return e.ID }
func (e AccountCreated) EventType() string { return EventTypeAccountCreated }

// AccountActivated records the transition of an account to ACTIVATED.
type AccountActivated struct {
	ID string `json:"account_id"`
}

func (e AccountActivated) AccountID() string { return e.ID }
func (e AccountActivated) EventType() string { return EventTypeAccountActivated }

// AccountCredited records a deposit into an account.
type AccountCredited struct {
	ID       string          `json:"account_id"`
	Currency string          `json:"currency"`
	Amount   decimal.Decimal `json:"amount"`
}

func (e AccountCredited) AccountID() string { return e.ID }
func (e AccountCredited) EventType() string { return EventTypeAccountCredited }

// AccountDebited records a withdrawal from an account.
type AccountDebited struct {
	ID       string          `json:"account_id"`
	Currency string          `json:"currency"`
	Amount   decimal.Decimal `json:"amount"`
}

func (e AccountDebited) AccountID() string { return e.ID }
func (e AccountDebited) EventType() string { return EventTypeAccountDebited }

// EventRecord is a committed event as persisted in the event store.
// Sequence numbers are strictly increasing and gap-free per account,
// starting at 1.
type EventRecord struct {
	AccountID  string
	Sequence   int64
	EventType  string
	Event      Event
	RecordedAt time.Time
}
