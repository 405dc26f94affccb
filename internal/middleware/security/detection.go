package security

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
)

// DetectionMetrics counts security events.
type DetectionMetrics struct {
	SuspiciousRequests int64
	UntrustedIdentity  int64
}

// Detector resolves client addresses behind trusted proxies and flags
// requests that look like probes.
type Detector struct {
	metrics        DetectionMetrics
	trustedProxies []*net.IPNet
}

var defaultTrusted = []string{
	"127.0.0.0/8",
	"::1/128",
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
}

// NewDetector trusts loopback and private networks plus extra, which may
// hold CIDRs or bare addresses.
func NewDetector(extra ...string) (*Detector, error) {
	d := &Detector{}
	for _, cidr := range append(append([]string(nil), defaultTrusted...), extra...) {
		if err := d.AddTrustedProxy(cidr); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// AddTrustedProxy adds a network or single address.
func (d *Detector) AddTrustedProxy(cidr string) error {
	if !strings.Contains(cidr, "/") {
		ip := net.ParseIP(cidr)
		if ip == nil {
			return fmt.Errorf("invalid trusted proxy %q", cidr)
		}
		bits := 32
		if ip.To4() == nil {
			bits = 128
		}
		cidr = fmt.Sprintf("%s/%d", ip.String(), bits)
	}
	_, network, err := net.ParseCIDR(cidr)
	if err != nil {
		return fmt.Errorf("invalid CIDR %s: %w", cidr, err)
	}
	d.trustedProxies = append(d.trustedProxies, network)
	return nil
}

var (
	probePatterns = []string{
		"../", "..\\", ".env", "wp-admin", "phpmyadmin",
		"admin.php", "config.php", ".git", ".ssh",
		"eval(", "javascript:", "<script", "union select",
		"etc/passwd", "cmd.exe",
	}
	scannerAgents = []string{
		"sqlmap", "nmap", "nikto", "gobuster", "dirb", "masscan", "zgrab",
	}
	unusualMethods = map[string]bool{"TRACE": true, "TRACK": true, "DEBUG": true, "CONNECT": true}
)

// DetectSuspiciousRequest reports probe-like requests. It only classifies;
// the caller decides what to do.
func (d *Detector) DetectSuspiciousRequest(r *http.Request) bool {
	suspicious := unusualMethods[r.Method] || len(r.URL.String()) > 2048

	path := strings.ToLower(r.URL.Path)
	query := strings.ToLower(r.URL.RawQuery)
	for _, p := range probePatterns {
		if strings.Contains(path, p) || strings.Contains(query, p) {
			suspicious = true
			break
		}
	}

	ua := strings.ToLower(r.Header.Get("User-Agent"))
	for _, a := range scannerAgents {
		if strings.Contains(ua, a) {
			suspicious = true
			break
		}
	}

	if strings.Count(r.Header.Get("X-Forwarded-For"), ",") > 5 {
		suspicious = true
	}

	if suspicious {
		atomic.AddInt64(&d.metrics.SuspiciousRequests, 1)
	}
	return suspicious
}

func peerIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// FromTrustedProxy reports whether the direct peer is a trusted proxy.
func (d *Detector) FromTrustedProxy(r *http.Request) bool {
	ip := net.ParseIP(peerIP(r))
	return ip != nil && d.isTrustedProxy(ip)
}

// ExtractClientIP returns the client address. Forwarding headers are
// honoured only from a trusted proxy.
func (d *Detector) ExtractClientIP(r *http.Request) string {
	direct := peerIP(r)
	if !d.FromTrustedProxy(r) {
		return direct
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first := strings.TrimSpace(strings.Split(xff, ",")[0])
		if net.ParseIP(first) != nil {
			return first
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" && net.ParseIP(xri) != nil {
		return xri
	}
	return direct
}

// TrustedHeader returns the named header when the request came through a
// trusted proxy. Identity headers from anyone else are dropped and counted.
func (d *Detector) TrustedHeader(r *http.Request, name string) string {
	v := strings.TrimSpace(r.Header.Get(name))
	if v == "" {
		return ""
	}
	if !d.FromTrustedProxy(r) {
		atomic.AddInt64(&d.metrics.UntrustedIdentity, 1)
		return ""
	}
	return v
}

func (d *Detector) isTrustedProxy(ip net.IP) bool {
	for _, network := range d.trustedProxies {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

func (d *Detector) GetMetrics() DetectionMetrics {
	return DetectionMetrics{
		SuspiciousRequests: atomic.LoadInt64(&d.metrics.SuspiciousRequests),
		UntrustedIdentity:  atomic.LoadInt64(&d.metrics.UntrustedIdentity),
	}
}
