package middleware

import (
	"net"
	"net/http"
	"strings"
)

// ClientID resolves the client identifier used by both the rate limiter and
// the audit trail. In trust-proxy mode the first X-Forwarded-For entry or the
// X-Real-IP header wins; otherwise the transport-layer peer address is always
// used so headers cannot spoof identity.
func ClientID(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
			first := strings.TrimSpace(strings.SplitN(fwd, ",", 2)[0])
			if first != "" {
				return first
			}
		}
		if real := strings.TrimSpace(r.Header.Get("X-Real-IP")); real != "" {
			return real
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
