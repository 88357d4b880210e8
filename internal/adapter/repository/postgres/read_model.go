package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/eventbank/internal/domain"
	"github.com/iho/eventbank/internal/usecase"
)

// ReadModelStore implements usecase.ReadModelStore on PostgreSQL.
type ReadModelStore struct {
	pool *pgxpool.Pool
}

// NewReadModelStore creates a new ReadModelStore.
func NewReadModelStore(pool *pgxpool.Pool) *ReadModelStore {
	return &ReadModelStore{pool: pool}
}

// Upsert stores or replaces an account's summary record.
func (s *ReadModelStore) Upsert(ctx context.Context, record *domain.AccountRecord) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO account_read_model (account_id, balance, currency, status, last_sequence, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (account_id) DO UPDATE SET
		   balance = EXCLUDED.balance,
		   currency = EXCLUDED.currency,
		   status = EXCLUDED.status,
		   last_sequence = EXCLUDED.last_sequence,
		   updated_at = EXCLUDED.updated_at`,
		record.ID, record.Balance, record.Currency, string(record.Status), record.LastSequence, record.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert read model for %s: %w", record.ID, err)
	}
	return nil
}

// Get returns an account's summary record.
func (s *ReadModelStore) Get(ctx context.Context, accountID string) (*domain.AccountRecord, error) {
	var (
		record domain.AccountRecord
		status string
	)
	err := s.pool.QueryRow(ctx,
		`SELECT account_id, balance, currency, status, last_sequence, updated_at
		 FROM account_read_model
		 WHERE account_id = $1`,
		accountID,
	).Scan(&record.ID, &record.Balance, &record.Currency, &status, &record.LastSequence, &record.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, usecase.ErrRecordNotFound
		}
		return nil, fmt.Errorf("get read model for %s: %w", accountID, err)
	}

	record.Status = domain.Status(status)
	return &record, nil
}

// AppendOperation records an operation; the (account_id, sequence) unique
// constraint makes redelivered projections a no-op.
func (s *ReadModelStore) AppendOperation(ctx context.Context, op *domain.Operation) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO account_operations (account_id, sequence, operation_type, amount, currency, occurred_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (account_id, sequence) DO NOTHING`,
		op.AccountID, op.Sequence, op.Type, op.Amount, op.Currency, op.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("append operation for %s: %w", op.AccountID, err)
	}
	return nil
}

// ListOperations returns an account's operations history, oldest first.
func (s *ReadModelStore) ListOperations(ctx context.Context, accountID string, limit, offset int) ([]*domain.Operation, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.pool.Query(ctx,
		`SELECT account_id, sequence, operation_type, amount, currency, occurred_at
		 FROM account_operations
		 WHERE account_id = $1
		 ORDER BY sequence
		 LIMIT $2 OFFSET $3`,
		accountID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list operations for %s: %w", accountID, err)
	}
	defer rows.Close()

	var ops []*domain.Operation
	for rows.Next() {
		var op domain.Operation
		if err := rows.Scan(&op.AccountID, &op.Sequence, &op.Type, &op.Amount, &op.Currency, &op.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan operation row: %w", err)
		}
		ops = append(ops, &op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate operations for %s: %w", accountID, err)
	}

	return ops, nil
}

var _ usecase.ReadModelStore = (*ReadModelStore)(nil)
