package memory

import (
	"context"
	"sync"

	"github.com/iho/eventbank/internal/domain"
	"github.com/iho/eventbank/internal/usecase"
)

// ReadModelStore is an in-memory implementation of the projector's output
// store.
type ReadModelStore struct {
	mu      sync.RWMutex
	records map[string]domain.AccountRecord
	ops     map[string][]domain.Operation
	seenOps map[string]map[int64]bool
}

// NewReadModelStore creates an empty in-memory read-model store.
func NewReadModelStore() *ReadModelStore {
	return &ReadModelStore{
		records: make(map[string]domain.AccountRecord),
		ops:     make(map[string][]domain.Operation),
		seenOps: make(map[string]map[int64]bool),
	}
}

// Upsert stores or replaces an account's summary record.
func (s *ReadModelStore) Upsert(ctx context.Context, record *domain.AccountRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[record.ID] = *record
	return nil
}

// Get returns an account's summary record.
func (s *ReadModelStore) Get(ctx context.Context, accountID string) (*domain.AccountRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[accountID]
	if !ok {
		return nil, usecase.ErrRecordNotFound
	}
	out := record
	return &out, nil
}

// AppendOperation records an operation once per (account, sequence).
func (s *ReadModelStore) AppendOperation(ctx context.Context, op *domain.Operation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen, ok := s.seenOps[op.AccountID]
	if !ok {
		seen = make(map[int64]bool)
		s.seenOps[op.AccountID] = seen
	}
	if seen[op.Sequence] {
		return nil
	}
	seen[op.Sequence] = true

	s.ops[op.AccountID] = append(s.ops[op.AccountID], *op)
	return nil
}

// ListOperations returns an account's operations history, oldest first.
func (s *ReadModelStore) ListOperations(ctx context.Context, accountID string, limit, offset int) ([]*domain.Operation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ops := s.ops[accountID]
	if offset < 0 {
		offset = 0
	}
	if offset >= len(ops) {
		return nil, nil
	}
	end := len(ops)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}

	out := make([]*domain.Operation, 0, end-offset)
	for i := offset; i < end; i++ {
		op := ops[i]
		out = append(out, &op)
	}
	return out, nil
}

var _ usecase.ReadModelStore = (*ReadModelStore)(nil)
