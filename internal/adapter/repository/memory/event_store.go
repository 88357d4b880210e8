package memory

import (
	"context"
	"sync"
	"time"

	"github.com/iho/eventbank/internal/domain"
	"github.com/iho/eventbank/internal/usecase"
)

// EventStore is an in-memory, append-only event log keyed by account identity.
// It implements the same optimistic-concurrency contract as the durable
// stores and is used by unit tests and local development.
type EventStore struct {
	mu      sync.RWMutex
	streams map[string][]domain.EventRecord
	now     func() time.Time
}

// NewEventStore creates an empty in-memory event store.
func NewEventStore() *EventStore {
	return &EventStore{
		streams: make(map[string][]domain.EventRecord),
		now:     time.Now,
	}
}

// Append appends events after expectedSequence. The whole batch is recorded or
// none of it is.
func (s *EventStore) Append(ctx context.Context, accountID string, expectedSequence int64, events []domain.Event) ([]domain.EventRecord, error) {
	if len(events) == 0 {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stream := s.streams[accountID]
	if int64(len(stream)) != expectedSequence {
		return nil, usecase.ErrConcurrencyConflict
	}

	recordedAt := s.now().UTC()
	records := make([]domain.EventRecord, 0, len(events))
	for i, e := range events {
		records = append(records, domain.EventRecord{
			AccountID:  accountID,
			Sequence:   expectedSequence + int64(i) + 1,
			EventType:  e.EventType(),
			Event:      e,
			RecordedAt: recordedAt,
		})
	}

	s.streams[accountID] = append(stream, records...)
	return records, nil
}

// ReadAll returns the account's full history in sequence order.
func (s *EventStore) ReadAll(ctx context.Context, accountID string) ([]domain.EventRecord, error) {
	return s.ReadFrom(ctx, accountID, 1)
}

// ReadFrom returns the history starting at fromSequence, inclusive.
func (s *EventStore) ReadFrom(ctx context.Context, accountID string, fromSequence int64) ([]domain.EventRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stream := s.streams[accountID]
	if fromSequence < 1 {
		fromSequence = 1
	}
	if fromSequence > int64(len(stream)) {
		return nil, nil
	}

	// Sequences are gap-free from 1, so the offset is the sequence itself.
	out := make([]domain.EventRecord, len(stream[fromSequence-1:]))
	copy(out, stream[fromSequence-1:])
	return out, nil
}

var _ usecase.EventStore = (*EventStore)(nil)
