package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/eventbank/internal/domain"
	"github.com/iho/eventbank/internal/usecase"
)

const pgErrUniqueViolation = "23505"

// EventStore implements usecase.EventStore on PostgreSQL. Each committed event
// is one row in account_events; the (account_id, sequence) primary key keeps
// sequences gap-free and makes conflicting appends fail atomically.
type EventStore struct {
	pool    *pgxpool.Pool
	retrier *Retrier
}

// NewEventStore creates a new EventStore.
func NewEventStore(pool *pgxpool.Pool) *EventStore {
	return &EventStore{
		pool:    pool,
		retrier: NewRetrier(),
	}
}

// Append appends events after expectedSequence in a single transaction.
// Either all rows commit or none do.
func (s *EventStore) Append(ctx context.Context, accountID string, expectedSequence int64, events []domain.Event) ([]domain.EventRecord, error) {
	if len(events) == 0 {
		return nil, nil
	}

	var records []domain.EventRecord
	err := s.retrier.Retry(ctx, func() error {
		var err error
		records, err = s.append(ctx, accountID, expectedSequence, events)
		return err
	})
	return records, err
}

func (s *EventStore) append(ctx context.Context, accountID string, expectedSequence int64, events []domain.Event) ([]domain.EventRecord, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin append: %w", err)
	}
	defer tx.Rollback(ctx)

	var head int64
	err = tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(sequence), 0) FROM account_events WHERE account_id = $1`,
		accountID,
	).Scan(&head)
	if err != nil {
		return nil, fmt.Errorf("read stream head for %s: %w", accountID, err)
	}
	if head != expectedSequence {
		return nil, usecase.ErrConcurrencyConflict
	}

	recordedAt := time.Now().UTC()
	records := make([]domain.EventRecord, 0, len(events))
	for i, e := range events {
		payload, err := domain.MarshalEvent(e)
		if err != nil {
			return nil, err
		}

		seq := expectedSequence + int64(i) + 1
		_, err = tx.Exec(ctx,
			`INSERT INTO account_events (account_id, sequence, event_type, payload, recorded_at)
			 VALUES ($1, $2, $3, $4, $5)`,
			accountID, seq, e.EventType(), payload, recordedAt,
		)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgErrUniqueViolation {
				return nil, usecase.ErrConcurrencyConflict
			}
			return nil, fmt.Errorf("insert event %s/%d: %w", accountID, seq, err)
		}

		records = append(records, domain.EventRecord{
			AccountID:  accountID,
			Sequence:   seq,
			EventType:  e.EventType(),
			Event:      e,
			RecordedAt: recordedAt,
		})
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit append for %s: %w", accountID, err)
	}
	return records, nil
}

// ReadAll returns the account's full history in sequence order.
func (s *EventStore) ReadAll(ctx context.Context, accountID string) ([]domain.EventRecord, error) {
	return s.ReadFrom(ctx, accountID, 1)
}

// ReadFrom returns the history starting at fromSequence, inclusive. Rows are
// streamed from the database, not loaded through an intermediate buffer.
func (s *EventStore) ReadFrom(ctx context.Context, accountID string, fromSequence int64) ([]domain.EventRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT account_id, sequence, event_type, payload, recorded_at
		 FROM account_events
		 WHERE account_id = $1 AND sequence >= $2
		 ORDER BY sequence`,
		accountID, fromSequence,
	)
	if err != nil {
		return nil, fmt.Errorf("read events for %s: %w", accountID, err)
	}
	defer rows.Close()

	var records []domain.EventRecord
	for rows.Next() {
		var (
			rec     domain.EventRecord
			payload []byte
		)
		if err := rows.Scan(&rec.AccountID, &rec.Sequence, &rec.EventType, &payload, &rec.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}

		rec.Event, err = domain.UnmarshalEvent(rec.EventType, payload)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events for %s: %w", accountID, err)
	}

	return records, nil
}

var _ usecase.EventStore = (*EventStore)(nil)
