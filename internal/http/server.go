// Package http serves the dashboard page, its panels as HTML partials and
// the live panel connections.
package http

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	applog "budgetboard/internal/log"
	"budgetboard/internal/middleware/ratelimit"
	"budgetboard/internal/middleware/security"
	"budgetboard/internal/middleware/trace"
	"budgetboard/internal/store"
	"budgetboard/internal/view"
	appweb "budgetboard/web"
)

// Options tunes a Server. Zero values take the defaults below.
type Options struct {
	// UserHeader carries the signed-in user id, set by the auth proxy.
	UserHeader string
	// AllowUIDParam also accepts the user id from the uid query parameter.
	AllowUIDParam  bool
	Location       *time.Location
	TrustedProxies []string
	RateLimit      int
	// PartialTimeout bounds how long a partial waits for its panel to settle.
	PartialTimeout time.Duration
	FetchTimeout   time.Duration
}

const (
	defaultUserHeader     = "X-User-ID"
	defaultPartialTimeout = 7 * time.Second
)

type Server struct {
	http.Server

	store    store.Store
	renderer *view.Renderer
	opts     Options
	logger   *applog.Logger

	detector *security.Detector
	limiter  *ratelimit.Limiter
	tracer   *trace.Middleware
	upgrader websocket.Upgrader

	// liveCtx parents every live connection; Shutdown cancels it because
	// http.Server.Shutdown does not touch hijacked connections.
	liveCtx    context.Context
	cancelLive context.CancelFunc
	liveConns  sync.WaitGroup
	liveCount  atomic.Int64
	draining   atomic.Bool
}

func NewServer(addr string, st store.Store, renderer *view.Renderer, logger *applog.Logger, opts Options) (*Server, error) {
	if opts.UserHeader == "" {
		opts.UserHeader = defaultUserHeader
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.PartialTimeout <= 0 {
		opts.PartialTimeout = defaultPartialTimeout
	}

	detector, err := security.NewDetector(opts.TrustedProxies...)
	if err != nil {
		return nil, err
	}

	logger = logger.WithComponent(applog.ComponentHTTP)
	liveCtx, cancelLive := context.WithCancel(context.Background())

	s := &Server{
		store:      st,
		renderer:   renderer,
		opts:       opts,
		logger:     logger,
		detector:   detector,
		limiter:    ratelimit.NewLimiter(ratelimit.Config{Requests: opts.RateLimit, Window: time.Minute}),
		tracer:     trace.NewMiddleware(logger, detector.ExtractClientIP),
		upgrader:   websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 4096},
		liveCtx:    liveCtx,
		cancelLive: cancelLive,
	}

	mux := http.NewServeMux()

	static, err := fs.Sub(appweb.StaticFS, "static")
	if err != nil {
		return nil, err
	}
	mux.Handle("GET /static/", security.CacheFor(time.Hour)(
		http.StripPrefix("/static/", http.FileServer(http.FS(static)))))

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	limited := s.limiter.Middleware(detector.ExtractClientIP, nil)
	mux.Handle("GET /{$}", limited(http.HandlerFunc(s.handleIndex)))
	mux.Handle("GET /ui/summary", limited(http.HandlerFunc(s.handleSummaryPartial)))
	mux.Handle("GET /ui/records", limited(http.HandlerFunc(s.handleRecordsPartial)))
	mux.Handle("GET /live/summary", limited(http.HandlerFunc(s.handleLiveSummary)))
	mux.Handle("GET /live/records", limited(http.HandlerFunc(s.handleLiveRecords)))

	headers := security.NewHeaders(security.DashboardPolicy())
	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.tracer.Middleware(s.withProbeDetection(headers.Wrap(mux))),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// withProbeDetection logs probe-like requests. They are still served.
func (s *Server) withProbeDetection(next http.Handler) http.Handler {
	sec := s.logger.WithComponent(applog.ComponentSecurity)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.detector.DetectSuspiciousRequest(r) {
			sec.WarnContext(r.Context(), "Suspicious request",
				applog.FieldClientIP, s.detector.ExtractClientIP(r),
				applog.FieldMethod, r.Method,
				applog.FieldPath, r.URL.Path,
				applog.FieldUserAgent, r.Header.Get("User-Agent"))
		}
		next.ServeHTTP(w, r)
	})
}

// Shutdown stops accepting requests, closes live connections and waits for
// their panels to unmount.
func (s *Server) Shutdown(ctx context.Context) error {
	s.draining.Store(true)
	s.logger.InfoContext(ctx, "Shutting down HTTP server", "live_connections", s.liveCount.Load())

	err := s.Server.Shutdown(ctx)
	s.cancelLive()
	s.limiter.Stop()

	done := make(chan struct{})
	go func() {
		s.liveConns.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		err = errors.Join(err, ctx.Err())
	}
	return err
}

// LiveConnections is the number of open live panels.
func (s *Server) LiveConnections() int64 { return s.liveCount.Load() }

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if s.draining.Load() {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("draining"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
