// Package ratelimit throttles dashboard requests per client key.
package ratelimit

import (
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

type Config struct {
	// Requests is the budget of one client per Window.
	Requests int
	Window   time.Duration
	// Sweep is how often finished windows are forgotten.
	Sweep time.Duration
}

func DefaultConfig() Config {
	return Config{
		Requests: 60,
		Window:   time.Minute,
		Sweep:    5 * time.Minute,
	}
}

// Limiter gives every client key a fixed window that opens on its first
// request. Requests inside an open window do not extend it.
type Limiter struct {
	cfg Config
	now func() time.Time

	mu      sync.Mutex
	windows map[string]window

	rejected atomic.Int64
	stop     chan struct{}
	stopOnce sync.Once
}

type window struct {
	ends time.Time
	used int
}

// NewLimiter fills zero fields of cfg from DefaultConfig and starts the
// sweeper. Call Stop when done.
func NewLimiter(cfg Config) *Limiter {
	def := DefaultConfig()
	if cfg.Requests <= 0 {
		cfg.Requests = def.Requests
	}
	if cfg.Window <= 0 {
		cfg.Window = def.Window
	}
	if cfg.Sweep <= 0 {
		cfg.Sweep = def.Sweep
	}

	l := &Limiter{
		cfg:     cfg,
		now:     time.Now,
		windows: make(map[string]window),
		stop:    make(chan struct{}),
	}
	go l.run()
	return l
}

// Take spends one request of key's budget. When the budget is used up it
// returns false and the time left until the window closes.
func (l *Limiter) Take(key string) (bool, time.Duration) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || !now.Before(w.ends) {
		l.windows[key] = window{ends: now.Add(l.cfg.Window), used: 1}
		return true, 0
	}
	if w.used >= l.cfg.Requests {
		l.rejected.Add(1)
		return false, w.ends.Sub(now)
	}
	w.used++
	l.windows[key] = w
	return true, 0
}

func (l *Limiter) run() {
	t := time.NewTicker(l.cfg.Sweep)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			l.sweep()
		case <-l.stop:
			return
		}
	}
}

func (l *Limiter) sweep() {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, w := range l.windows {
		if !now.Before(w.ends) {
			delete(l.windows, key)
		}
	}
}

// Clients is the number of keys with a remembered window.
func (l *Limiter) Clients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}

// Stop ends the sweeper. Safe to call more than once.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

type Stats struct {
	Rejected int64
	Clients  int
}

func (l *Limiter) Stats() Stats {
	return Stats{Rejected: l.rejected.Load(), Clients: l.Clients()}
}

// Middleware rejects requests over budget with 429 and a Retry-After in
// whole seconds. onLimit, when set, writes the rejection instead.
func (l *Limiter) Middleware(key func(*http.Request) string, onLimit func(http.ResponseWriter, *http.Request)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, wait := l.Take(key(r))
			if ok {
				next.ServeHTTP(w, r)
				return
			}
			w.Header().Set("Retry-After", strconv.Itoa(retrySeconds(wait)))
			if onLimit != nil {
				onLimit(w, r)
				return
			}
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
		})
	}
}

func retrySeconds(d time.Duration) int {
	secs := int((d + time.Second - 1) / time.Second)
	return max(secs, 1)
}
