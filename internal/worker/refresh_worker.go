// Package worker turns change notifications from other processes into
// store refreshes.
package worker

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"budgetboard/internal/amqp"
)

// Refresher re-runs the live queries of a store.
type Refresher interface {
	Refresh(ctx context.Context) error
}

type Config struct {
	// MinInterval is the least time between two refreshes. A burst of
	// notifications inside it costs one refresh (default: 200ms).
	MinInterval time.Duration
	// RetryDelay is the wait after a failed refresh (default: 2s).
	RetryDelay time.Duration
}

func DefaultConfig() Config {
	return Config{
		MinInterval: 200 * time.Millisecond,
		RetryDelay:  2 * time.Second,
	}
}

type Stats struct {
	Received  int64
	Refreshes int64
	Failures  int64
}

// RefreshWorker coalesces records-changed messages into Refresh calls. The
// message handler never waits for a refresh, so a slow store does not hold
// up the queue.
type RefreshWorker struct {
	target  Refresher
	config  Config
	logger  *slog.Logger
	pending chan struct{}

	received  atomic.Int64
	refreshes atomic.Int64
	failures  atomic.Int64
}

func NewRefreshWorker(target Refresher, config Config, logger *slog.Logger) *RefreshWorker {
	defaults := DefaultConfig()
	if config.MinInterval <= 0 {
		config.MinInterval = defaults.MinInterval
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = defaults.RetryDelay
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RefreshWorker{
		target:  target,
		config:  config,
		logger:  logger,
		pending: make(chan struct{}, 1),
	}
}

// HandleRecordsChanged is the AMQP handler. It marks a refresh as pending
// and returns at once.
func (w *RefreshWorker) HandleRecordsChanged(ctx context.Context, msg *amqp.RecordsChangedMessage) error {
	w.received.Add(1)
	w.logger.DebugContext(ctx, "Records changed elsewhere",
		"op", msg.Op,
		"record_id", msg.RecordID,
		"user_id", msg.UserID,
		"timestamp", msg.Timestamp)
	w.schedule()
	return nil
}

func (w *RefreshWorker) schedule() {
	select {
	case w.pending <- struct{}{}:
	default:
	}
}

// Run refreshes once at startup, to catch writes missed while the process
// was down, then serves pending refreshes until ctx is done.
func (w *RefreshWorker) Run(ctx context.Context) error {
	w.schedule()

	var last time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.pending:
		}

		if wait := w.config.MinInterval - time.Since(last); wait > 0 {
			if !sleep(ctx, wait) {
				return ctx.Err()
			}
			// Anything that arrived while waiting is covered by this refresh.
			select {
			case <-w.pending:
			default:
			}
		}

		last = time.Now()
		if err := w.target.Refresh(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.failures.Add(1)
			w.logger.WarnContext(ctx, "Refresh failed, retrying", "error", err, "retry_in", w.config.RetryDelay.String())
			if !sleep(ctx, w.config.RetryDelay) {
				return ctx.Err()
			}
			w.schedule()
			continue
		}
		w.refreshes.Add(1)
	}
}

func (w *RefreshWorker) Stats() Stats {
	return Stats{
		Received:  w.received.Load(),
		Refreshes: w.refreshes.Load(),
		Failures:  w.failures.Load(),
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
