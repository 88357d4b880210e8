package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/iho/eventbank/internal/domain"
)

// Dispatcher errors.
var (
	// ErrBusy means the per-account lock could not be acquired within the
	// configured timeout.
	ErrBusy = errors.New("dispatcher: account busy")
	// ErrDispatcherClosed means the dispatcher is draining and accepts no new
	// commands.
	ErrDispatcherClosed = errors.New("dispatcher: closed")
)

const (
	defaultLockTimeout    = 5 * time.Second
	defaultPublishTimeout = 5 * time.Second
	defaultQueueSize      = 1024
)

// Dispatcher routes commands to their account, serializes execution per
// account, persists produced events, and hands committed records to the
// projector queue. It is the sole synchronization boundary of the write path:
// commands for the same account are totally ordered, commands for different
// accounts run in parallel.
type Dispatcher struct {
	store          EventStore
	lockTimeout    time.Duration
	publishTimeout time.Duration
	logger         *slog.Logger

	mu       sync.Mutex
	locks    map[string]chan struct{}
	draining bool

	inflight sync.WaitGroup
	queue    chan domain.EventRecord
}

// DispatcherConfig holds dispatcher dependencies and tuning.
type DispatcherConfig struct {
	Store EventStore
	// LockTimeout bounds how long a submission waits for its account lock
	// before failing with ErrBusy.
	LockTimeout time.Duration
	// PublishTimeout bounds how long a submission waits for projector queue
	// capacity after its append committed. On timeout the queue delivery is
	// skipped; the projector re-reads skipped records from the event log when
	// the account's next record arrives.
	PublishTimeout time.Duration
	// QueueSize is the capacity of the projector queue.
	QueueSize int
	// Logger is optional; nil falls back to slog.Default.
	Logger *slog.Logger
}

// NewDispatcher creates a new Dispatcher.
func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	if cfg.LockTimeout <= 0 {
		cfg.LockTimeout = defaultLockTimeout
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = defaultPublishTimeout
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Dispatcher{
		store:          cfg.Store,
		lockTimeout:    cfg.LockTimeout,
		publishTimeout: cfg.PublishTimeout,
		logger:         cfg.Logger,
		locks:          make(map[string]chan struct{}),
		queue:          make(chan domain.EventRecord, cfg.QueueSize),
	}
}

// Events returns the queue of committed records consumed by the projector.
// The channel is closed by Drain.
func (d *Dispatcher) Events() <-chan domain.EventRecord {
	return d.queue
}

// Submit validates a command against the account's replayed state and, on
// success, appends the produced events to the event store. Validation failures
// append nothing. The committed records are returned to the caller and
// published to the projector queue; the caller never waits for the read model
// to catch up.
func (d *Dispatcher) Submit(ctx context.Context, cmd domain.Command) ([]domain.EventRecord, error) {
	d.mu.Lock()
	if d.draining {
		d.mu.Unlock()
		return nil, ErrDispatcherClosed
	}
	d.inflight.Add(1)
	lock := d.lockFor(cmd.AccountID())
	d.mu.Unlock()
	defer d.inflight.Done()

	if err := d.acquire(ctx, lock); err != nil {
		return nil, err
	}
	defer func() { <-lock }()

	// Once the account lock is held the validate-then-append sequence runs to
	// completion even if the caller abandons the submission; an interrupted
	// append must never leave a partial commit behind.
	ctx = context.WithoutCancel(ctx)

	records, err := d.execute(ctx, cmd)
	if errors.Is(err, ErrConcurrencyConflict) {
		// Expected-sequence conflicts are defense in depth below the account
		// lock. Re-replay and re-validate once before giving up.
		records, err = d.execute(ctx, cmd)
	}
	if err != nil {
		return nil, err
	}

	// Publish while still holding the account lock so the projector receives
	// each account's records in commit order. A full queue applies
	// backpressure up to the publish timeout; at that point the remaining
	// records are left for the projector's event-log catch-up rather than
	// holding the account lock indefinitely.
	d.publish(records)

	return records, nil
}

func (d *Dispatcher) publish(records []domain.EventRecord) {
	timer := time.NewTimer(d.publishTimeout)
	defer timer.Stop()

	for i, rec := range records {
		select {
		case d.queue <- rec:
		case <-timer.C:
			d.logger.Warn("projector queue full, skipping delivery",
				slog.String("account_id", rec.AccountID),
				slog.Int64("from_sequence", rec.Sequence),
				slog.Int("skipped", len(records)-i))
			return
		}
	}
}

// Drain stops intake, waits for in-flight submissions to finish, and closes
// the projector queue. Subsequent Submit calls fail with ErrDispatcherClosed.
func (d *Dispatcher) Drain() {
	d.mu.Lock()
	if d.draining {
		d.mu.Unlock()
		return
	}
	d.draining = true
	d.mu.Unlock()

	d.inflight.Wait()
	close(d.queue)
}

// execute runs one replay-decide-append pass.
func (d *Dispatcher) execute(ctx context.Context, cmd domain.Command) ([]domain.EventRecord, error) {
	history, err := d.store.ReadAll(ctx, cmd.AccountID())
	if err != nil {
		return nil, fmt.Errorf("replay account %s: %w", cmd.AccountID(), err)
	}
	state := domain.Replay(history)

	events, err := domain.Decide(state, cmd)
	if err != nil {
		return nil, err
	}

	return d.store.Append(ctx, cmd.AccountID(), state.Sequence, events)
}

// lockFor returns the account's lock, creating it on first use.
// Callers must hold d.mu.
func (d *Dispatcher) lockFor(accountID string) chan struct{} {
	lock, ok := d.locks[accountID]
	if !ok {
		lock = make(chan struct{}, 1)
		d.locks[accountID] = lock
	}
	return lock
}

// acquire takes the account lock, giving up after the configured timeout or
// when the caller's context is cancelled before execution starts.
func (d *Dispatcher) acquire(ctx context.Context, lock chan struct{}) error {
	select {
	case lock <- struct{}{}:
		return nil
	default:
	}

	timer := time.NewTimer(d.lockTimeout)
	defer timer.Stop()

	select {
	case lock <- struct{}{}:
		return nil
	case <-timer.C:
		return ErrBusy
	case <-ctx.Done():
		return ctx.Err()
	}
}
