package view

import (
	"context"
	"sync"
	"time"

	"budgetboard/internal/core"
	applog "budgetboard/internal/log"
	"budgetboard/internal/store"
)

type RecordsState struct {
	Phase     Phase
	Lifecycle Lifecycle
	Loading   bool
	// Records are in store delivery order.
	Records []core.BudgetRecord
	Err     string
	Errors  []string
}

// RecordsView lists every record in the store.
type RecordsView struct {
	opts options

	mu        sync.Mutex
	loading   bool
	records   []core.BudgetRecord
	errMsg    string
	errs      []string
	lifecycle Lifecycle
	current   *mount
	settle    *settleGate
	unmounted bool

	parent  context.Context
	stopped chan struct{}
	changes signal
}

// MountRecords subscribes to the unfiltered record feed.
func MountRecords(ctx context.Context, st store.RecordSubscriber, opts ...Option) *RecordsView {
	v := &RecordsView{
		opts:      buildOptions(opts),
		loading:   true,
		lifecycle: Subscribing,
		settle:    newSettleGate(),
		parent:    ctx,
		stopped:   make(chan struct{}),
		changes:   newSignal(),
	}

	mctx, cancel := context.WithCancel(ctx)
	m := &mount{cancel: cancel, done: make(chan struct{})}
	sub, err := st.SubscribeRecords(mctx, store.RecordFilter{})
	m.sub = sub
	v.current = m

	go v.loop(mctx, m, err)
	v.opts.logger.DebugContext(ctx, "View mounted", applog.FieldView, "records")
	return v
}

func (v *RecordsView) Unmount() {
	v.mu.Lock()
	if v.unmounted {
		v.mu.Unlock()
		return
	}
	v.unmounted = true
	m := v.current
	v.current = nil
	v.mu.Unlock()

	m.release()
	close(v.stopped)
	v.opts.logger.DebugContext(v.parent, "View unmounted", applog.FieldView, "records")
}

func (v *RecordsView) Changes() <-chan struct{} { return v.changes }

// WaitSettled blocks until the first snapshot or a subscription failure.
func (v *RecordsView) WaitSettled(ctx context.Context) error {
	return waitGate(ctx, v.settle, v.stopped)
}

// Location is the zone dates are rendered in.
func (v *RecordsView) Location() *time.Location { return v.opts.loc }

func (v *RecordsView) State() RecordsState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return RecordsState{
		Phase:     phaseOf(false, v.loading, v.errMsg, len(v.records)),
		Lifecycle: v.lifecycle,
		Loading:   v.loading,
		Records:   core.CloneRecords(v.records),
		Err:       v.errMsg,
		Errors:    append([]string(nil), v.errs...),
	}
}

func (v *RecordsView) Model() RecordsModel {
	return v.State().Model(v.opts.loc)
}

func (v *RecordsView) loop(ctx context.Context, m *mount, subErr error) {
	defer close(m.done)

	var (
		snapshots <-chan []core.BudgetRecord
		errs      <-chan error
	)
	if m.sub != nil {
		snapshots, errs = m.sub.Snapshots(), m.sub.Errors()
	}
	if subErr != nil {
		snapshots, errs = nil, nil
		v.failed(ctx, m, subErr)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case records := <-snapshots:
			v.apply(func() {
				v.records = records
				v.loading = false
				v.lifecycle = Live
			})
		case err := <-errs:
			snapshots, errs = nil, nil
			v.failed(ctx, m, err)
		}
	}
}

func (v *RecordsView) failed(ctx context.Context, m *mount, err error) {
	applied := v.apply(func() {
		v.errMsg = MsgRecordsFailed
		v.errs = append(v.errs, MsgRecordsFailed)
		v.loading = false
		v.lifecycle = Failed
	})
	if m.sub != nil {
		m.sub.Close()
	}
	if applied {
		v.opts.logger.ErrorContext(ctx, "Error fetching budget records",
			applog.FieldView, "records",
			applog.FieldOperation, applog.OpSubscribe,
			applog.FieldError, err)
	}
}

func (v *RecordsView) apply(fn func()) bool {
	v.mu.Lock()
	if v.unmounted {
		v.mu.Unlock()
		return false
	}
	fn()
	if !v.loading {
		v.settle.open()
	}
	v.mu.Unlock()
	v.changes.fire()
	return true
}
