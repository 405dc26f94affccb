package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	applog "budgetboard/internal/log"
	"budgetboard/internal/view"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// liveView is what a live connection needs from a mounted panel.
type liveView struct {
	name    string
	changes <-chan struct{}
	render  func() ([]byte, error)
	unmount func()
}

func (s *Server) handleLiveSummary(w http.ResponseWriter, r *http.Request) {
	user := s.userFromRequest(r)
	s.serveLive(w, r, func(ctx context.Context) liveView {
		v := view.MountSummary(ctx, s.store, user, s.viewOptions(r)...)
		return liveView{
			name:    "summary",
			changes: v.Changes(),
			render:  func() ([]byte, error) { return s.renderer.SummaryBytes(v.Model()) },
			unmount: v.Unmount,
		}
	})
}

func (s *Server) handleLiveRecords(w http.ResponseWriter, r *http.Request) {
	s.serveLive(w, r, func(ctx context.Context) liveView {
		v := view.MountRecords(ctx, s.store, s.viewOptions(r)...)
		return liveView{
			name:    "records",
			changes: v.Changes(),
			render:  func() ([]byte, error) { return s.renderer.RecordsBytes(v.Model()) },
			unmount: v.Unmount,
		}
	})
}

// serveLive upgrades the request and keeps one panel mounted for the life
// of the socket, pushing a fresh fragment on every change.
func (s *Server) serveLive(w http.ResponseWriter, r *http.Request, mountView func(context.Context) liveView) {
	logger := applog.FromContext(r.Context()).WithComponent(applog.ComponentLive)

	if s.draining.Load() {
		http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		logger.WarnContext(r.Context(), "WebSocket upgrade failed", applog.FieldError, err.Error())
		return
	}

	s.liveConns.Add(1)
	s.liveCount.Add(1)
	defer func() {
		s.liveCount.Add(-1)
		s.liveConns.Done()
	}()

	ctx, cancel := context.WithCancel(s.liveCtx)
	defer cancel()
	stop := context.AfterFunc(r.Context(), cancel)
	defer stop()
	ctx = applog.NewContext(ctx, logger)

	lv := mountView(ctx)
	defer lv.unmount()

	logger.InfoContext(ctx, "Live panel opened", applog.FieldView, lv.name)

	go s.readPump(conn, cancel)
	err = s.writePump(ctx, conn, lv)

	closeCode := websocket.CloseNormalClosure
	if s.liveCtx.Err() != nil {
		closeCode = websocket.CloseGoingAway
	}
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(closeCode, ""), time.Now().Add(writeWait))
	_ = conn.Close()

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.WarnContext(ctx, "Live panel closed with error", applog.FieldView, lv.name, applog.FieldError, err.Error())
		return
	}
	logger.InfoContext(ctx, "Live panel closed", applog.FieldView, lv.name)
}

// readPump only services control frames. Any read error ends the socket.
func (s *Server) readPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.WithComponent(applog.ComponentLive).Debug("Unexpected close", applog.FieldError, err.Error())
			}
			return
		}
	}
}

// writePump is the only writer of conn. It pushes the current fragment
// first, then one per change signal.
func (s *Server) writePump(ctx context.Context, conn *websocket.Conn, lv liveView) error {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	push := func() error {
		body, err := lv.render()
		if err != nil {
			return err
		}
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteMessage(websocket.TextMessage, body)
	}

	if err := push(); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-lv.changes:
			if err := push(); err != nil {
				return err
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return err
			}
		}
	}
}
