package http

import (
	"net/http"
	"strings"
	"time"
	"unicode"

	"budgetboard/internal/core"
	applog "budgetboard/internal/log"
)

const maxUserIDLength = 128

// userFromRequest resolves the signed-in user. The header counts only from a
// trusted proxy; the uid parameter only when enabled. nil means signed out.
func (s *Server) userFromRequest(r *http.Request) *core.User {
	id := s.detector.TrustedHeader(r, s.opts.UserHeader)
	if id == "" && s.opts.AllowUIDParam {
		id = strings.TrimSpace(r.URL.Query().Get("uid"))
	}
	if !validUserID(id) {
		return nil
	}
	return &core.User{ID: id}
}

func validUserID(id string) bool {
	if id == "" || len(id) > maxUserIDLength {
		return false
	}
	for _, c := range id {
		if unicode.IsControl(c) || unicode.IsSpace(c) {
			return false
		}
	}
	return true
}

// locationFromRequest reads the tz parameter and falls back to the
// configured zone when it is missing or unknown.
func (s *Server) locationFromRequest(r *http.Request) (*time.Location, string) {
	name := strings.TrimSpace(r.URL.Query().Get("tz"))
	if name == "" {
		return s.opts.Location, ""
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		applog.FromContext(r.Context()).DebugContext(r.Context(), "Unknown timezone, using default", "tz", name)
		return s.opts.Location, ""
	}
	return loc, name
}

func writeHTML(w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func userIDOf(u *core.User) string {
	if u == nil {
		return ""
	}
	return u.ID
}
