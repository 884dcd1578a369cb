package middleware

import (
	"net/http"
)

// DefaultMaxRequestSize is the default request body cap (1MB). Note content
// is validated separately and fits well inside it.
const DefaultMaxRequestSize int64 = 1 << 20

// MaxRequestSize caps request body size. A declared Content-Length over the
// limit is rejected up front; undeclared bodies are capped by MaxBytesReader,
// which surfaces as a MaxBytesError in the handler's decoder.
func MaxRequestSize(maxBytes int64) func(http.Handler) http.Handler {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxRequestSize
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				http.Error(w, "Request Entity Too Large", http.StatusRequestEntityTooLarge)
				return
			}

			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			defer r.Body.Close()

			next.ServeHTTP(w, r)
		})
	}
}
