package usecase

import (
	"context"
	"errors"

	"github.com/iho/eventbank/internal/domain"
)

// Store errors surfaced through the interfaces below.
var (
	// ErrConcurrencyConflict means an append's expected sequence did not match
	// the stream's current head.
	ErrConcurrencyConflict = errors.New("event store: expected sequence mismatch")
	// ErrRecordNotFound means the read model has no record for the account.
	ErrRecordNotFound = errors.New("read model: record not found")
)

// EventStore is the durable, append-only log of account events; the source of
// truth for aggregate state.
type EventStore interface {
	// Append atomically appends events after expectedSequence and returns the
	// committed records. Either all events are durably recorded or none are.
	// Returns ErrConcurrencyConflict if another writer appended in between.
	Append(ctx context.Context, accountID string, expectedSequence int64, events []domain.Event) ([]domain.EventRecord, error)
	// ReadAll returns the full event history of an account in sequence order.
	ReadAll(ctx context.Context, accountID string) ([]domain.EventRecord, error)
	// ReadFrom returns the history starting at fromSequence (inclusive),
	// supporting resumed reads.
	ReadFrom(ctx context.Context, accountID string, fromSequence int64) ([]domain.EventRecord, error)
}

// ReadModelStore holds the projector's output: one summary record per account
// plus its operations history.
type ReadModelStore interface {
	Upsert(ctx context.Context, record *domain.AccountRecord) error
	Get(ctx context.Context, accountID string) (*domain.AccountRecord, error)
	// AppendOperation records a credit/debit in the history. It must be
	// idempotent per (account, sequence) so a retried projection does not
	// duplicate rows.
	AppendOperation(ctx context.Context, op *domain.Operation) error
	ListOperations(ctx context.Context, accountID string, limit, offset int) ([]*domain.Operation, error)
}

// IDGenerator generates unique account identities.
type IDGenerator interface {
	Generate() string
}
