package mocks

import (
	"context"

	"github.com/iho/eventbank/internal/domain"
	"github.com/iho/eventbank/internal/usecase"
)

// EventStoreStub is a hand-written stub for tests that need to intercept
// single store calls without gomock ceremony. Unset funcs delegate to the
// wrapped store when one is provided.
type EventStoreStub struct {
	Wrapped usecase.EventStore

	AppendFunc   func(ctx context.Context, accountID string, expectedSequence int64, events []domain.Event) ([]domain.EventRecord, error)
	ReadAllFunc  func(ctx context.Context, accountID string) ([]domain.EventRecord, error)
	ReadFromFunc func(ctx context.Context, accountID string, fromSequence int64) ([]domain.EventRecord, error)
}

func (s *EventStoreStub) Append(ctx context.Context, accountID string, expectedSequence int64, events []domain.Event) ([]domain.EventRecord, error) {
	if s.AppendFunc != nil {
		return s.AppendFunc(ctx, accountID, expectedSequence, events)
	}
	return s.Wrapped.Append(ctx, accountID, expectedSequence, events)
}

func (s *EventStoreStub) ReadAll(ctx context.Context, accountID string) ([]domain.EventRecord, error) {
	if s.ReadAllFunc != nil {
		return s.ReadAllFunc(ctx, accountID)
	}
	return s.Wrapped.ReadAll(ctx, accountID)
}

func (s *EventStoreStub) ReadFrom(ctx context.Context, accountID string, fromSequence int64) ([]domain.EventRecord, error) {
	if s.ReadFromFunc != nil {
		return s.ReadFromFunc(ctx, accountID, fromSequence)
	}
	return s.Wrapped.ReadFrom(ctx, accountID, fromSequence)
}

// ReadModelStoreStub is the read-model counterpart of EventStoreStub.
type ReadModelStoreStub struct {
	Wrapped usecase.ReadModelStore

	UpsertFunc          func(ctx context.Context, record *domain.AccountRecord) error
	GetFunc             func(ctx context.Context, accountID string) (*domain.AccountRecord, error)
	AppendOperationFunc func(ctx context.Context, op *domain.Operation) error
	ListOperationsFunc  func(ctx context.Context, accountID string, limit, offset int) ([]*domain.Operation, error)
}

func (s *ReadModelStoreStub) Upsert(ctx context.Context, record *domain.AccountRecord) error {
	if s.UpsertFunc != nil {
		return s.UpsertFunc(ctx, record)
	}
	return s.Wrapped.Upsert(ctx, record)
}

func (s *ReadModelStoreStub) Get(ctx context.Context, accountID string) (*domain.AccountRecord, error) {
	if s.GetFunc != nil {
		return s.GetFunc(ctx, accountID)
	}
	return s.Wrapped.Get(ctx, accountID)
}

func (s *ReadModelStoreStub) AppendOperation(ctx context.Context, op *domain.Operation) error {
	if s.AppendOperationFunc != nil {
		return s.AppendOperationFunc(ctx, op)
	}
	return s.Wrapped.AppendOperation(ctx, op)
}

func (s *ReadModelStoreStub) ListOperations(ctx context.Context, accountID string, limit, offset int) ([]*domain.Operation, error) {
	if s.ListOperationsFunc != nil {
		return s.ListOperationsFunc(ctx, accountID, limit, offset)
	}
	return s.Wrapped.ListOperations(ctx, accountID, limit, offset)
}
