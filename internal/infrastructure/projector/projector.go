package projector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/iho/eventbank/internal/domain"
	"github.com/iho/eventbank/internal/infrastructure/metrics"
	"github.com/iho/eventbank/internal/usecase"
)

// Projector consumes committed event records and maintains the denormalized
// account read model: one summary record per account plus an operations
// history. Delivery is at-least-once; the per-account sequence check makes
// re-applying an already-applied event a no-op.
type Projector struct {
	store    usecase.ReadModelStore
	eventLog usecase.EventStore
	events   <-chan domain.EventRecord
	logger   *slog.Logger
	metrics  *metrics.Metrics

	initialInterval time.Duration
	maxElapsedTime  time.Duration
}

// Config for Projector.
type Config struct {
	Store usecase.ReadModelStore
	// EventLog is the source of truth used to catch the read model up when a
	// queue delivery was dropped after exhausting its retries.
	EventLog usecase.EventStore
	Events   <-chan domain.EventRecord
	Logger   *slog.Logger
	// Metrics is optional; nil disables instrumentation.
	Metrics *metrics.Metrics
	// RetryInitialInterval is the first backoff delay after a transient
	// read-model failure.
	RetryInitialInterval time.Duration
	// RetryMaxElapsedTime bounds the total retry time per event before it is
	// logged and dropped from this delivery. A dropped record is re-read from
	// the event log when the account's next record arrives.
	RetryMaxElapsedTime time.Duration
}

// New creates a new Projector.
func New(cfg Config) *Projector {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.RetryInitialInterval == 0 {
		cfg.RetryInitialInterval = 100 * time.Millisecond
	}
	if cfg.RetryMaxElapsedTime == 0 {
		cfg.RetryMaxElapsedTime = 30 * time.Second
	}

	return &Projector{
		store:           cfg.Store,
		eventLog:        cfg.EventLog,
		events:          cfg.Events,
		logger:          cfg.Logger,
		metrics:         cfg.Metrics,
		initialInterval: cfg.RetryInitialInterval,
		maxElapsedTime:  cfg.RetryMaxElapsedTime,
	}
}

// Run consumes the event queue until the context is cancelled or the queue is
// closed. It never blocks command submission: the dispatcher only waits on
// queue capacity, not on read-model writes.
func (p *Projector) Run(ctx context.Context) error {
	p.logger.Info("projector started")

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("projector shutting down")
			return ctx.Err()
		case rec, ok := <-p.events:
			if !ok {
				p.logger.Info("projector queue closed, stopping")
				return nil
			}
			if err := p.applyWithRetry(ctx, rec); err != nil {
				p.logger.Error("failed to project event",
					slog.String("account_id", rec.AccountID),
					slog.Int64("sequence", rec.Sequence),
					slog.String("event_type", rec.EventType),
					slog.String("error", err.Error()))
			}
		}
	}
}

// applyWithRetry applies one record, retrying transient read-model failures
// with exponential backoff. Unknown event types are not retried.
func (p *Projector) applyWithRetry(ctx context.Context, rec domain.EventRecord) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.initialInterval
	b.MaxElapsedTime = p.maxElapsedTime

	return backoff.Retry(func() error {
		err := p.Apply(ctx, rec)
		if err == nil {
			return nil
		}
		if errors.Is(err, domain.ErrUnknownEvent) {
			return backoff.Permanent(err)
		}

		if p.metrics != nil {
			p.metrics.ProjectionRetries.Inc()
		}
		p.logger.Warn("transient projection failure, retrying",
			slog.String("account_id", rec.AccountID),
			slog.Int64("sequence", rec.Sequence),
			slog.String("error", err.Error()))
		return err
	}, backoff.WithContext(b, ctx))
}

// Apply folds a single committed record into the read model. Records already
// reflected in the model (sequence at or below the record's LastSequence) are
// skipped.
func (p *Projector) Apply(ctx context.Context, rec domain.EventRecord) error {
	current, err := p.store.Get(ctx, rec.AccountID)
	if err != nil && !errors.Is(err, usecase.ErrRecordNotFound) {
		return fmt.Errorf("load read model for %s: %w", rec.AccountID, err)
	}

	if current != nil && rec.Sequence <= current.LastSequence {
		if p.metrics != nil {
			p.metrics.ProjectionsSkipped.Inc()
		}
		p.logger.Debug("skipping already-applied event",
			slog.String("account_id", rec.AccountID),
			slog.Int64("sequence", rec.Sequence))
		return nil
	}

	// A sequence gap means an earlier record for this account was dropped
	// after exhausting its retries. Folding past it would lose the missing
	// event for good: the check above turns any redelivery into a no-op. Catch
	// up from the event log before folding this record.
	applied := int64(0)
	if current != nil {
		applied = current.LastSequence
	}
	if rec.Sequence > applied+1 {
		if p.eventLog == nil {
			return fmt.Errorf("sequence gap for %s: read model at %d, record at %d", rec.AccountID, applied, rec.Sequence)
		}

		missing, err := p.eventLog.ReadFrom(ctx, rec.AccountID, applied+1)
		if err != nil {
			return fmt.Errorf("catch up %s from sequence %d: %w", rec.AccountID, applied+1, err)
		}

		p.logger.Warn("read model behind event log, catching up",
			slog.String("account_id", rec.AccountID),
			slog.Int64("from_sequence", applied+1),
			slog.Int64("to_sequence", rec.Sequence))

		for _, m := range missing {
			if m.Sequence >= rec.Sequence {
				break
			}
			current, err = p.applyOne(ctx, current, m)
			if err != nil {
				return err
			}
		}
	}

	_, err = p.applyOne(ctx, current, rec)
	return err
}

// applyOne folds one record and persists the result, returning the new record.
func (p *Projector) applyOne(ctx context.Context, current *domain.AccountRecord, rec domain.EventRecord) (*domain.AccountRecord, error) {
	record, op, err := fold(current, rec)
	if err != nil {
		return nil, err
	}

	// The operation row carries the record's sequence, so a retried apply
	// after a partial failure cannot duplicate it.
	if op != nil {
		if err := p.store.AppendOperation(ctx, op); err != nil {
			return nil, fmt.Errorf("append operation for %s: %w", rec.AccountID, err)
		}
	}
	if err := p.store.Upsert(ctx, record); err != nil {
		return nil, fmt.Errorf("upsert read model for %s: %w", rec.AccountID, err)
	}

	if p.metrics != nil {
		p.metrics.ProjectionsApplied.Inc()
	}
	return record, nil
}

// fold computes the next read-model record, and the operation row for
// credit/debit events.
func fold(current *domain.AccountRecord, rec domain.EventRecord) (*domain.AccountRecord, *domain.Operation, error) {
	var next domain.AccountRecord
	if current != nil {
		next = *current
	}
	next.LastSequence = rec.Sequence
	next.UpdatedAt = rec.RecordedAt

	var op *domain.Operation

	switch e := rec.Event.(type) {
	case domain.AccountCreated:
		next.ID = e.ID
		next.Currency = e.Currency
		next.Balance = e.InitialBalance
		next.Status = domain.StatusCreated
	case domain.AccountActivated:
		if current == nil {
			return nil, nil, fmt.Errorf("activation for unknown account %s", rec.AccountID)
		}
		next.Status = domain.StatusActivated
	case domain.AccountCredited:
		if current == nil {
			return nil, nil, fmt.Errorf("credit for unknown account %s", rec.AccountID)
		}
		next.Balance = next.Balance.Add(e.Amount)
		op = &domain.Operation{
			AccountID:  rec.AccountID,
			Sequence:   rec.Sequence,
			Type:       domain.OperationTypeCredit,
			Amount:     e.Amount,
			Currency:   e.Currency,
			OccurredAt: rec.RecordedAt,
		}
	case domain.AccountDebited:
		if current == nil {
			return nil, nil, fmt.Errorf("debit for unknown account %s", rec.AccountID)
		}
		next.Balance = next.Balance.Sub(e.Amount)
		op = &domain.Operation{
			AccountID:  rec.AccountID,
			Sequence:   rec.Sequence,
			Type:       domain.OperationTypeDebit,
			Amount:     e.Amount,
			Currency:   e.Currency,
			OccurredAt: rec.RecordedAt,
		}
	default:
		return nil, nil, fmt.Errorf("%w: %T", domain.ErrUnknownEvent, rec.Event)
	}

	return &next, op, nil
}
