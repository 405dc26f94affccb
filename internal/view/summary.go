package view

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"budgetboard/internal/core"
	applog "budgetboard/internal/log"
	"budgetboard/internal/store"
)

// SummaryState is a point-in-time copy of a SummaryView.
type SummaryState struct {
	Phase     Phase
	Lifecycle Lifecycle
	UserID    string
	Loading   bool
	Records   []core.BudgetRecord
	Budget    decimal.NullDecimal
	// BudgetLoaded is set once the profile read has finished, with or
	// without a budget.
	BudgetLoaded bool
	Aggregate    core.Aggregate
	Comparison   string
	// Err is the displayed error. Both failure kinds share it and the
	// last one to arrive wins; Errors keeps all of them in order.
	Err    string
	Errors []string
}

// SummaryView is the budget summary of one user.
type SummaryView struct {
	store  store.Store
	parent context.Context
	opts   options

	mu         sync.Mutex
	user       *core.User
	loading    bool
	records    []core.BudgetRecord
	budget     decimal.NullDecimal
	budgetDone bool
	errMsg     string
	errs       []string
	lifecycle  Lifecycle
	gen        uint64
	current    *mount
	settle     *settleGate
	unmounted  bool

	stopped chan struct{}
	changes signal
}

type profileResult struct {
	profile core.UserProfile
	ok      bool
	err     error
}

// MountSummary mounts a summary panel for user. A nil user, or one with a
// blank ID, yields an inert panel with no subscription.
func MountSummary(ctx context.Context, st store.Store, user *core.User, opts ...Option) *SummaryView {
	v := &SummaryView{
		store:   st,
		parent:  ctx,
		opts:    buildOptions(opts),
		stopped: make(chan struct{}),
		changes: newSignal(),
	}
	v.start(user)
	return v
}

// SetUser tears the current subscription down and mounts again for user
// with fresh state.
func (v *SummaryView) SetUser(user *core.User) {
	v.mu.Lock()
	if v.unmounted {
		v.mu.Unlock()
		return
	}
	old := v.detachLocked()
	v.mu.Unlock()

	old.release()
	v.start(user)
}

// Unmount releases the subscription. When it returns no further state
// change can happen. Calling it again is a no-op.
func (v *SummaryView) Unmount() {
	v.mu.Lock()
	if v.unmounted {
		v.mu.Unlock()
		return
	}
	v.unmounted = true
	old := v.detachLocked()
	userID := userIDOf(v.user)
	v.mu.Unlock()

	old.release()
	close(v.stopped)
	v.opts.logger.DebugContext(v.parent, "View unmounted",
		applog.FieldView, "summary", applog.FieldUserID, userID)
}

// Changes fires after every state change. Signals coalesce, so a reader
// should call State once per receive.
func (v *SummaryView) Changes() <-chan struct{} { return v.changes }

// WaitSettled blocks until the first snapshot (or a subscription failure)
// and the profile read have both landed. After SetUser it waits for the
// new mount.
func (v *SummaryView) WaitSettled(ctx context.Context) error {
	for {
		v.mu.Lock()
		gate := v.settle
		v.mu.Unlock()
		if err := waitGate(ctx, gate, v.stopped); !errors.Is(err, errRetired) {
			return err
		}
	}
}

func (v *SummaryView) State() SummaryState {
	v.mu.Lock()
	defer v.mu.Unlock()

	agg := core.Summarize(v.records)
	return SummaryState{
		Phase:        phaseOf(v.user == nil, v.loading, v.errMsg, len(v.records)),
		Lifecycle:    v.lifecycle,
		UserID:       userIDOf(v.user),
		Loading:      v.loading,
		Records:      core.CloneRecords(v.records),
		Budget:       v.budget,
		BudgetLoaded: v.budgetDone,
		Aggregate:    agg,
		Comparison:   core.CompareBudget(agg.NetBalance, v.budget),
		Err:          v.errMsg,
		Errors:       append([]string(nil), v.errs...),
	}
}

func (v *SummaryView) Model() SummaryModel {
	return v.State().Model()
}

// detachLocked invalidates the running mount and hands it back for release.
func (v *SummaryView) detachLocked() *mount {
	v.gen++
	m := v.current
	v.current = nil
	return m
}

func (v *SummaryView) start(user *core.User) {
	if user != nil && strings.TrimSpace(user.ID) == "" {
		user = nil
	}

	v.mu.Lock()
	if v.unmounted {
		v.mu.Unlock()
		return
	}
	v.gen++
	gen := v.gen
	v.user = user
	v.records = nil
	v.budget = decimal.NullDecimal{}
	v.budgetDone = false
	v.errMsg = ""
	v.errs = nil
	v.lifecycle = Unsubscribed
	if v.settle != nil {
		v.settle.retire()
	}
	v.settle = newSettleGate()
	if user == nil {
		v.loading = false
		v.budgetDone = true
		v.settle.open()
		v.mu.Unlock()
		v.changes.fire()
		return
	}
	v.loading = true
	v.lifecycle = Subscribing
	v.mu.Unlock()
	v.changes.fire()

	ctx, cancel := context.WithCancel(v.parent)
	m := &mount{cancel: cancel, done: make(chan struct{})}
	sub, subErr := v.store.SubscribeRecords(ctx, store.RecordFilter{UserID: user.ID})
	m.sub = sub

	v.mu.Lock()
	if v.gen != gen || v.unmounted {
		// Unmounted or remounted while subscribing.
		v.mu.Unlock()
		cancel()
		if sub != nil {
			sub.Close()
		}
		return
	}
	v.current = m
	v.mu.Unlock()

	profiles := make(chan profileResult, 1)
	go v.fetchProfile(ctx, user.ID, profiles)
	go v.loop(ctx, gen, m, subErr, profiles)

	v.opts.logger.DebugContext(ctx, "View mounted", applog.FieldView, "summary", applog.FieldUserID, user.ID)
}

// fetchProfile is not tied to the mount: a result that lands after
// Unmount or SetUser is dropped by the generation check.
func (v *SummaryView) fetchProfile(ctx context.Context, userID string, out chan<- profileResult) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), v.opts.fetchTimeout)
	defer cancel()
	p, ok, err := v.store.FetchProfile(ctx, userID)
	out <- profileResult{profile: p, ok: ok, err: err}
}

func (v *SummaryView) loop(ctx context.Context, gen uint64, m *mount, subErr error, profiles <-chan profileResult) {
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
		v.recordsFailed(ctx, gen, m, subErr)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case records := <-snapshots:
			v.apply(gen, func() {
				v.records = records
				v.loading = false
				v.lifecycle = Live
			})
		case err := <-errs:
			snapshots, errs = nil, nil
			v.recordsFailed(ctx, gen, m, err)
		case res := <-profiles:
			profiles = nil
			v.profileLoaded(ctx, gen, res)
		}
	}
}

func (v *SummaryView) recordsFailed(ctx context.Context, gen uint64, m *mount, err error) {
	applied := v.apply(gen, func() {
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
			applog.FieldView, "summary",
			applog.FieldOperation, applog.OpSubscribe,
			applog.FieldError, err)
	}
}

func (v *SummaryView) profileLoaded(ctx context.Context, gen uint64, res profileResult) {
	applied := v.apply(gen, func() {
		v.budgetDone = true
		switch {
		case res.err != nil:
			v.errMsg = MsgBudgetFailed
			v.errs = append(v.errs, MsgBudgetFailed)
		case res.ok:
			v.budget = res.profile.Budget
		default:
			v.budget = decimal.NullDecimal{}
		}
	})
	if applied && res.err != nil {
		v.opts.logger.ErrorContext(ctx, "Error fetching user budget",
			applog.FieldView, "summary",
			applog.FieldOperation, applog.OpFetch,
			applog.FieldError, res.err)
	}
}

// apply runs fn under the lock when gen is still the live mount.
func (v *SummaryView) apply(gen uint64, fn func()) bool {
	v.mu.Lock()
	if v.gen != gen {
		v.mu.Unlock()
		return false
	}
	fn()
	if !v.loading && v.budgetDone {
		v.settle.open()
	}
	v.mu.Unlock()
	v.changes.fire()
	return true
}

func userIDOf(u *core.User) string {
	if u == nil {
		return ""
	}
	return u.ID
}
