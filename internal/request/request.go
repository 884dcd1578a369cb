package request

import (
	"net/http"
	"strings"
)

// ClientIP extracts the client IP, trusting X-Forwarded-For (first hop) and
// X-Real-IP before falling back to RemoteAddr. Rate limit keys and audit
// logs both key off this.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		if len(parts) > 0 {
			return strings.TrimSpace(parts[0])
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	return r.RemoteAddr
}
