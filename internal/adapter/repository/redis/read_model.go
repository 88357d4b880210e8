package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/iho/eventbank/internal/domain"
	"github.com/iho/eventbank/internal/usecase"
)

// ReadModelStore implements usecase.ReadModelStore on Redis. Each account
// summary is a hash and its operations history a list; idempotency markers
// keyed by sequence keep redelivered operations from duplicating.
type ReadModelStore struct {
	client *redis.Client
	prefix string
}

// NewReadModelStore creates a new ReadModelStore.
func NewReadModelStore(client *redis.Client) *ReadModelStore {
	return &ReadModelStore{
		client: client,
		prefix: "account:",
	}
}

func (s *ReadModelStore) key(accountID string) string {
	return s.prefix + accountID
}

// Upsert stores or replaces an account's summary record.
func (s *ReadModelStore) Upsert(ctx context.Context, record *domain.AccountRecord) error {
	err := s.client.HSet(ctx, s.key(record.ID), map[string]any{
		"balance":       record.Balance.String(),
		"currency":      record.Currency,
		"status":        string(record.Status),
		"last_sequence": record.LastSequence,
		"updated_at":    record.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}).Err()
	if err != nil {
		return fmt.Errorf("upsert read model for %s: %w", record.ID, err)
	}
	return nil
}

// Get returns an account's summary record.
func (s *ReadModelStore) Get(ctx context.Context, accountID string) (*domain.AccountRecord, error) {
	fields, err := s.client.HGetAll(ctx, s.key(accountID)).Result()
	if err != nil {
		return nil, fmt.Errorf("get read model for %s: %w", accountID, err)
	}
	if len(fields) == 0 {
		return nil, usecase.ErrRecordNotFound
	}

	balance, err := decimal.NewFromString(fields["balance"])
	if err != nil {
		return nil, fmt.Errorf("parse balance for %s: %w", accountID, err)
	}
	lastSequence, err := strconv.ParseInt(fields["last_sequence"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse last sequence for %s: %w", accountID, err)
	}
	updatedAt, err := time.Parse(time.RFC3339Nano, fields["updated_at"])
	if err != nil {
		return nil, fmt.Errorf("parse updated at for %s: %w", accountID, err)
	}

	return &domain.AccountRecord{
		ID:           accountID,
		Balance:      balance,
		Currency:     fields["currency"],
		Status:       domain.Status(fields["status"]),
		LastSequence: lastSequence,
		UpdatedAt:    updatedAt,
	}, nil
}

type operationPayload struct {
	AccountID  string    `json:"account_id"`
	Sequence   int64     `json:"sequence"`
	Type       string    `json:"type"`
	Amount     string    `json:"amount"`
	Currency   string    `json:"currency"`
	OccurredAt time.Time `json:"occurred_at"`
}

// AppendOperation records an operation once per (account, sequence).
func (s *ReadModelStore) AppendOperation(ctx context.Context, op *domain.Operation) error {
	marker := fmt.Sprintf("%sops-seen:%s:%d", s.prefix, op.AccountID, op.Sequence)
	fresh, err := s.client.SetNX(ctx, marker, "1", 0).Result()
	if err != nil {
		return fmt.Errorf("mark operation for %s: %w", op.AccountID, err)
	}
	if !fresh {
		return nil
	}

	payload, err := json.Marshal(operationPayload{
		AccountID:  op.AccountID,
		Sequence:   op.Sequence,
		Type:       op.Type,
		Amount:     op.Amount.String(),
		Currency:   op.Currency,
		OccurredAt: op.OccurredAt.UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal operation for %s: %w", op.AccountID, err)
	}

	if err := s.client.RPush(ctx, s.key(op.AccountID)+":ops", payload).Err(); err != nil {
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

	raw, err := s.client.LRange(ctx, s.key(accountID)+":ops", int64(offset), int64(offset+limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("list operations for %s: %w", accountID, err)
	}

	ops := make([]*domain.Operation, 0, len(raw))
	for _, item := range raw {
		var payload operationPayload
		if err := json.Unmarshal([]byte(item), &payload); err != nil {
			return nil, fmt.Errorf("unmarshal operation for %s: %w", accountID, err)
		}
		amount, err := decimal.NewFromString(payload.Amount)
		if err != nil {
			return nil, fmt.Errorf("parse operation amount for %s: %w", accountID, err)
		}
		ops = append(ops, &domain.Operation{
			AccountID:  payload.AccountID,
			Sequence:   payload.Sequence,
			Type:       payload.Type,
			Amount:     amount,
			Currency:   payload.Currency,
			OccurredAt: payload.OccurredAt,
		})
	}

	return ops, nil
}

var _ usecase.ReadModelStore = (*ReadModelStore)(nil)
