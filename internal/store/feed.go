package store

import (
	"sync"

	"budgetboard/internal/core"
)

// Feed is the Subscription implementation shared by the backends.
//
// The snapshot channel holds one slot: publishing replaces an undelivered
// snapshot, so a slow reader only ever sees the latest full list. The first
// Fail wins and ends delivery.
type Feed struct {
	filter RecordFilter

	mu        sync.Mutex
	snapshots chan []core.BudgetRecord
	errs      chan error
	done      bool
	onClose   func(*Feed)
	closeOnce sync.Once
}

// NewFeed creates a feed for filter. onClose runs once when the feed is
// closed by its consumer, typically to unregister it from the backend.
func NewFeed(filter RecordFilter, onClose func(*Feed)) *Feed {
	return &Feed{
		filter:    filter,
		snapshots: make(chan []core.BudgetRecord, 1),
		errs:      make(chan error, 1),
		onClose:   onClose,
	}
}

func (f *Feed) Filter() RecordFilter { return f.filter }

func (f *Feed) Snapshots() <-chan []core.BudgetRecord { return f.snapshots }

func (f *Feed) Errors() <-chan error { return f.errs }

// Publish offers a snapshot. It returns false when the feed no longer
// delivers.
func (f *Feed) Publish(records []core.BudgetRecord) bool {
	snap := core.CloneRecords(records)
	if snap == nil {
		snap = []core.BudgetRecord{}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.done {
		return false
	}
	select {
	case <-f.snapshots:
	default:
	}
	f.snapshots <- snap
	return true
}

// Fail delivers err and stops the feed. Only the first call has an effect.
func (f *Feed) Fail(err error) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.done {
		return false
	}
	f.done = true
	f.errs <- err
	return true
}

// Active reports whether the feed still delivers.
func (f *Feed) Active() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.done
}

// Close stops delivery. Once it returns no snapshot or error is enqueued.
func (f *Feed) Close() {
	f.mu.Lock()
	f.done = true
	f.mu.Unlock()

	f.closeOnce.Do(func() {
		if f.onClose != nil {
			f.onClose(f)
		}
	})
}
