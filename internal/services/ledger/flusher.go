package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fastprodman/coinledger/internal/repos/accounts"
)

// Flusher writes table snapshots to a Repository behind the in-memory
// commit. Mutations bump a version; a flush saves the latest snapshot and
// records the version it covered. A failed flush leaves the version dirty so
// the background loop retries it without replaying any transaction.
type Flusher struct {
	repo     accounts.Repository
	snapshot func() accounts.Table
	interval time.Duration

	version atomic.Uint64

	mu      sync.Mutex // serializes flushes
	flushed uint64

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewFlusher starts the background loop. With interval == 0 every Notify
// flushes synchronously and the loop only retries failures every retry.
// With interval > 0 mutations are batched and flushed on that period.
func NewFlusher(repo accounts.Repository, snapshot func() accounts.Table, interval, retry time.Duration) *Flusher {
	f := &Flusher{
		repo:     repo,
		snapshot: snapshot,
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}

	period := interval
	if period <= 0 {
		period = retry
	}

	if period <= 0 {
		close(f.done)
		return f
	}

	go f.loop(period)

	return f
}

// Notify records a committed mutation.
func (f *Flusher) Notify(ctx context.Context) error {
	f.version.Add(1)

	if f.interval > 0 {
		return nil
	}

	return f.Flush(ctx)
}

// Pending reports whether committed state has not reached the repository yet.
func (f *Flusher) Pending() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.version.Load() != f.flushed
}

// Flush saves the current table if anything changed since the last
// successful flush. Errors wrap accounts.ErrPersistenceFailure.
func (f *Flusher) Flush(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	target := f.version.Load()
	if target == f.flushed {
		return nil
	}

	table := f.snapshot()

	err := f.repo.Save(ctx, table)
	if err != nil {
		if !errors.Is(err, accounts.ErrPersistenceFailure) {
			err = fmt.Errorf("%w: %w", accounts.ErrPersistenceFailure, err)
		}

		return fmt.Errorf("flush %d accounts: %w", len(table), err)
	}

	f.flushed = target

	slog.Debug("ledger flushed", "accounts", len(table), "version", target)

	return nil
}

func (f *Flusher) loop(period time.Duration) {
	defer close(f.done)

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)

			err := f.Flush(ctx)
			if err != nil {
				slog.Error("background flush failed", "error", err)
			}

			cancel()
		case <-f.stop:
			return
		}
	}
}

// Close stops the background loop and makes a final flush.
func (f *Flusher) Close(ctx context.Context) error {
	f.stopOnce.Do(func() { close(f.stop) })

	select {
	case <-f.done:
	case <-ctx.Done():
		return fmt.Errorf("wait flush loop: %w", ctx.Err())
	}

	err := f.Flush(ctx)
	if err != nil {
		return fmt.Errorf("final flush: %w", err)
	}

	return nil
}
