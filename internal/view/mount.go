package view

import (
	"context"
	"errors"

	"budgetboard/internal/store"
)

// ErrUnmounted is returned by WaitSettled once the view is gone.
var ErrUnmounted = errors.New("view: unmounted")

// mount is the resource set of one subscription lifetime.
type mount struct {
	cancel context.CancelFunc
	sub    store.Subscription
	done   chan struct{}
}

// release stops the event loop and the subscription and waits for the loop
// to exit. Safe on a nil mount.
func (m *mount) release() {
	if m == nil {
		return
	}
	m.cancel()
	if m.sub != nil {
		m.sub.Close()
	}
	<-m.done
}

// settleGate is closed once a mount has settled. retired is closed when a
// newer mount replaces it, so waiters move on to the new gate.
type settleGate struct {
	ch      chan struct{}
	retired chan struct{}
	closed  bool
	done    bool
}

func newSettleGate() *settleGate {
	return &settleGate{ch: make(chan struct{}), retired: make(chan struct{})}
}

func (g *settleGate) open() {
	if !g.closed {
		g.closed = true
		close(g.ch)
	}
}

func (g *settleGate) retire() {
	if !g.done {
		g.done = true
		close(g.retired)
	}
}

// waitGate reports whether gate settled. A retired gate returns errRetired.
func waitGate(ctx context.Context, gate *settleGate, stopped <-chan struct{}) error {
	select {
	case <-gate.ch:
		return nil
	default:
	}
	select {
	case <-gate.ch:
		return nil
	case <-gate.retired:
		return errRetired
	case <-stopped:
		return ErrUnmounted
	case <-ctx.Done():
		return ctx.Err()
	}
}

var errRetired = errors.New("view: mount replaced")
