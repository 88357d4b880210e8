package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/eventbank/internal/domain"
	"github.com/iho/eventbank/internal/usecase"
)

func TestReadModelStore_UpsertGet(t *testing.T) {
	ctx := context.Background()
	store := NewReadModelStore()

	if _, err := store.Get(ctx, "acc-1"); !errors.Is(err, usecase.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}

	record := &domain.AccountRecord{
		ID:           "acc-1",
		Balance:      decimal.NewFromInt(100),
		Currency:     "USD",
		Status:       domain.StatusActivated,
		LastSequence: 2,
		UpdatedAt:    time.Now().UTC(),
	}
	if err := store.Upsert(ctx, record); err != nil {
		t.Fatalf("unexpected upsert error: %v", err)
	}

	got, err := store.Get(ctx, "acc-1")
	if err != nil {
		t.Fatalf("unexpected get error: %v", err)
	}
	if !got.Balance.Equal(decimal.NewFromInt(100)) || got.Status != domain.StatusActivated {
		t.Fatalf("unexpected record: %+v", got)
	}

	record.Balance = decimal.NewFromInt(150)
	record.LastSequence = 3
	if err := store.Upsert(ctx, record); err != nil {
		t.Fatalf("unexpected upsert error: %v", err)
	}
	got, _ = store.Get(ctx, "acc-1")
	if !got.Balance.Equal(decimal.NewFromInt(150)) || got.LastSequence != 3 {
		t.Fatalf("expected updated record, got %+v", got)
	}
}

func TestReadModelStore_AppendOperationIdempotent(t *testing.T) {
	ctx := context.Background()
	store := NewReadModelStore()

	op := &domain.Operation{
		AccountID:  "acc-1",
		Sequence:   3,
		Type:       domain.OperationTypeCredit,
		Amount:     decimal.NewFromInt(50),
		Currency:   "USD",
		OccurredAt: time.Now().UTC(),
	}

	if err := store.AppendOperation(ctx, op); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.AppendOperation(ctx, op); err != nil {
		t.Fatalf("unexpected error on redelivery: %v", err)
	}

	ops, err := store.ListOperations(ctx, "acc-1", 10, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ops) != 1 {
		t.Fatalf("expected one operation after redelivery, got %d", len(ops))
	}
}

func TestReadModelStore_ListOperationsPagination(t *testing.T) {
	ctx := context.Background()
	store := NewReadModelStore()

	for seq := int64(3); seq <= 7; seq++ {
		op := &domain.Operation{
			AccountID: "acc-1",
			Sequence:  seq,
			Type:      domain.OperationTypeDebit,
			Amount:    decimal.NewFromInt(1),
			Currency:  "USD",
		}
		if err := store.AppendOperation(ctx, op); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	ops, err := store.ListOperations(ctx, "acc-1", 2, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ops) != 2 {
		t.Fatalf("expected 2 operations, got %d", len(ops))
	}
	if ops[0].Sequence != 4 || ops[1].Sequence != 5 {
		t.Fatalf("expected sequences 4,5, got %d,%d", ops[0].Sequence, ops[1].Sequence)
	}

	ops, _ = store.ListOperations(ctx, "acc-1", 10, 10)
	if len(ops) != 0 {
		t.Fatalf("expected empty page past end, got %d", len(ops))
	}
}
