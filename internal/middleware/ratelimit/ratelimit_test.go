package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestLimiter(t *testing.T, requests int) (*Limiter, *clock) {
	t.Helper()
	l := NewLimiter(Config{Requests: requests})
	t.Cleanup(l.Stop)
	c := &clock{t: time.Date(2024, 1, 15, 15, 30, 0, 0, time.UTC)}
	l.now = c.now
	return l, c
}

func TestTakeWithinWindow(t *testing.T) {
	l, c := newTestLimiter(t, 3)

	for i := 0; i < 3; i++ {
		ok, _ := l.Take("192.0.2.1")
		assert.True(t, ok, "request %d", i+1)
	}
	ok, wait := l.Take("192.0.2.1")
	assert.False(t, ok)
	assert.Equal(t, time.Minute, wait)

	ok, _ = l.Take("192.0.2.2")
	assert.True(t, ok, "clients are independent")

	// Traffic inside the window does not extend it.
	c.t = c.t.Add(59 * time.Second)
	ok, wait = l.Take("192.0.2.1")
	assert.False(t, ok)
	assert.Equal(t, time.Second, wait)

	c.t = c.t.Add(time.Second)
	ok, _ = l.Take("192.0.2.1")
	assert.True(t, ok)

	assert.EqualValues(t, 2, l.Stats().Rejected)
}

func TestSweepForgetsClosedWindows(t *testing.T) {
	l, c := newTestLimiter(t, 10)
	l.Take("192.0.2.1")
	c.t = c.t.Add(90 * time.Second)
	l.Take("192.0.2.2")
	assert.Equal(t, 2, l.Clients())

	l.sweep()
	assert.Equal(t, 1, l.Clients())
	assert.Equal(t, Stats{Clients: 1}, l.Stats())
}

func TestDefaultsApplied(t *testing.T) {
	l := NewLimiter(Config{})
	defer l.Stop()
	assert.Equal(t, DefaultConfig(), l.cfg)

	custom := NewLimiter(Config{Requests: 5, Window: time.Second})
	defer custom.Stop()
	assert.Equal(t, Config{Requests: 5, Window: time.Second, Sweep: 5 * time.Minute}, custom.cfg)
}

func TestStopIsIdempotent(t *testing.T) {
	l := NewLimiter(DefaultConfig())
	l.Stop()
	assert.NotPanics(t, l.Stop)
}

func TestRetrySeconds(t *testing.T) {
	assert.Equal(t, 1, retrySeconds(0))
	assert.Equal(t, 1, retrySeconds(300*time.Millisecond))
	assert.Equal(t, 2, retrySeconds(1100*time.Millisecond))
	assert.Equal(t, 60, retrySeconds(time.Minute))
}

func TestMiddleware(t *testing.T) {
	l, c := newTestLimiter(t, 1)
	ip := func(*http.Request) string { return "192.0.2.1" }
	h := l.Middleware(ip, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))

	c.t = c.t.Add(45 * time.Second)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "15", rec.Header().Get("Retry-After"))
}

func TestMiddlewareCustomRejection(t *testing.T) {
	l, _ := newTestLimiter(t, 1)
	l.Take("192.0.2.1")

	h := l.Middleware(func(*http.Request) string { return "192.0.2.1" }, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})(http.NotFoundHandler())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
