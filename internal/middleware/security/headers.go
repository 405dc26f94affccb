package security

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Directive is one Content-Security-Policy entry.
type Directive struct {
	Name    string
	Sources []string
}

// Policy describes the response headers of the dashboard.
type Policy struct {
	CSP []Directive
	// HSTS is sent only on TLS requests. Zero disables it.
	HSTS           time.Duration
	HSTSSubdomains bool
	// Fixed headers are copied onto every response as is.
	Fixed map[string]string
}

// DashboardPolicy locks the page down to its own origin. The live panels
// open same-origin websockets, which connect-src 'self' covers.
func DashboardPolicy() Policy {
	self := []string{"'self'"}
	none := []string{"'none'"}
	return Policy{
		CSP: []Directive{
			{"default-src", self},
			{"script-src", self},
			{"style-src", self},
			{"img-src", []string{"'self'", "data:"}},
			{"connect-src", self},
			{"object-src", none},
			{"frame-ancestors", none},
			{"base-uri", self},
			{"form-action", self},
		},
		HSTS:           365 * 24 * time.Hour,
		HSTSSubdomains: true,
		Fixed: map[string]string{
			"X-Content-Type-Options":       "nosniff",
			"X-Frame-Options":              "DENY",
			"Referrer-Policy":              "strict-origin-when-cross-origin",
			"Permissions-Policy":           "geolocation=(), microphone=(), camera=(), payment=()",
			"Cross-Origin-Opener-Policy":   "same-origin",
			"Cross-Origin-Resource-Policy": "same-origin",
		},
	}
}

// Headers stamps a Policy onto responses. The header values are built once.
type Headers struct {
	fixed http.Header
	hsts  string
}

func NewHeaders(p Policy) *Headers {
	h := &Headers{fixed: make(http.Header, len(p.Fixed)+1)}
	for k, v := range p.Fixed {
		h.fixed.Set(k, v)
	}
	if csp := p.contentSecurityPolicy(); csp != "" {
		h.fixed.Set("Content-Security-Policy", csp)
	}
	if secs := int64(p.HSTS / time.Second); secs > 0 {
		h.hsts = fmt.Sprintf("max-age=%d", secs)
		if p.HSTSSubdomains {
			h.hsts += "; includeSubDomains"
		}
	}
	return h
}

func (p Policy) contentSecurityPolicy() string {
	parts := make([]string, 0, len(p.CSP))
	for _, d := range p.CSP {
		parts = append(parts, strings.TrimSpace(d.Name+" "+strings.Join(d.Sources, " ")))
	}
	return strings.Join(parts, "; ")
}

func (h *Headers) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		out := w.Header()
		for k, v := range h.fixed {
			out[k] = v
		}
		if r.TLS != nil && h.hsts != "" {
			out.Set("Strict-Transport-Security", h.hsts)
		}
		next.ServeHTTP(w, r)
	})
}

// CacheFor marks responses as publicly cacheable for d. Used for the
// embedded stylesheet and script.
func CacheFor(d time.Duration) func(http.Handler) http.Handler {
	value := fmt.Sprintf("public, max-age=%d", int64(d/time.Second))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if d > 0 {
				w.Header().Set("Cache-Control", value)
			}
			next.ServeHTTP(w, r)
		})
	}
}
