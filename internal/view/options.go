package view

import (
	"time"

	applog "budgetboard/internal/log"
)

const defaultFetchTimeout = 10 * time.Second

type options struct {
	loc          *time.Location
	fetchTimeout time.Duration
	logger       *applog.Logger
}

type Option func(*options)

// WithLocation sets the viewer's time zone for date rendering. A nil
// location means time.Local.
func WithLocation(loc *time.Location) Option {
	return func(o *options) { o.loc = loc }
}

// WithFetchTimeout bounds the one-shot profile read. The read outlives
// Unmount by at most this long; its result is then dropped.
func WithFetchTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.fetchTimeout = d
		}
	}
}

func WithLogger(l *applog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{
		loc:          time.Local,
		fetchTimeout: defaultFetchTimeout,
		logger:       applog.Default(applog.ComponentView),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.loc == nil {
		o.loc = time.Local
	}
	return o
}

// signal is a coalescing, single-consumer change notification.
type signal chan struct{}

func newSignal() signal { return make(signal, 1) }

func (s signal) fire() {
	select {
	case s <- struct{}{}:
	default:
	}
}
