package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budgetboard/internal/amqp"
)

type fakeRefresher struct {
	mu    sync.Mutex
	calls int
	fail  int
	block chan struct{}
}

func (f *fakeRefresher) Refresh(ctx context.Context) error {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.fail > 0 {
		f.fail--
		return errors.New("database is locked")
	}
	return nil
}

func (f *fakeRefresher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func start(t *testing.T, w *RefreshWorker) (cancel func(), done <-chan error) {
	t.Helper()
	ctx, cancelFn := context.WithCancel(context.Background())
	ch := make(chan error, 1)
	go func() { ch <- w.Run(ctx) }()
	t.Cleanup(cancelFn)
	return cancelFn, ch
}

func TestRunRefreshesAtStartup(t *testing.T) {
	f := &fakeRefresher{}
	w := NewRefreshWorker(f, Config{MinInterval: time.Millisecond}, quiet())
	cancel, done := start(t, w)

	assert.Eventually(t, func() bool { return f.Calls() == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestBurstCoalesces(t *testing.T) {
	f := &fakeRefresher{}
	w := NewRefreshWorker(f, Config{MinInterval: 100 * time.Millisecond}, quiet())
	start(t, w)
	require.Eventually(t, func() bool { return f.Calls() == 1 }, time.Second, 5*time.Millisecond)

	msg := amqp.NewRecordsChangedMessage(amqp.OpPut, "r1", "alice")
	for i := 0; i < 20; i++ {
		require.NoError(t, w.HandleRecordsChanged(context.Background(), msg))
	}

	require.Eventually(t, func() bool { return f.Calls() >= 2 }, time.Second, 5*time.Millisecond)
	time.Sleep(250 * time.Millisecond)
	assert.LessOrEqual(t, f.Calls(), 3, "a burst must not cost a refresh per message")
	assert.EqualValues(t, 20, w.Stats().Received)
}

func TestFailedRefreshIsRetried(t *testing.T) {
	f := &fakeRefresher{fail: 2}
	w := NewRefreshWorker(f, Config{MinInterval: time.Millisecond, RetryDelay: 5 * time.Millisecond}, quiet())
	start(t, w)

	require.Eventually(t, func() bool { return w.Stats().Refreshes == 1 }, time.Second, 5*time.Millisecond)
	assert.EqualValues(t, 2, w.Stats().Failures)
	assert.Equal(t, 3, f.Calls())
}

func TestHandlerDoesNotWaitForRefresh(t *testing.T) {
	f := &fakeRefresher{block: make(chan struct{})}
	defer close(f.block)
	w := NewRefreshWorker(f, Config{}, quiet())
	start(t, w)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 5; i++ {
			_ = w.HandleRecordsChanged(context.Background(), amqp.NewRecordsChangedMessage(amqp.OpDelete, "r1", ""))
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("handler blocked on a running refresh")
	}
}

func TestDefaults(t *testing.T) {
	w := NewRefreshWorker(&fakeRefresher{}, Config{}, nil)
	assert.Equal(t, DefaultConfig(), w.config)
}
