package middleware

import (
	"net/http"

	"github.com/tenantcare/auth-service/internal/domain"
)

const DefaultMaxBodyBytes int64 = 1 << 20

// BodyLimit caps request bodies at maxBytes. Declared oversize bodies are
// rejected up front; streamed ones fail when the handler reads past the cap.
func BodyLimit(maxBytes int64, writeErr WriteErrFunc) func(http.Handler) http.Handler {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBodyBytes
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				writeErr(w, r, domain.ErrPayloadTooLarge(maxBytes))
				return
			}
			if r.Body != nil && r.Body != http.NoBody {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SecurityHeaders sets response headers for a JSON API that handles reset
// tokens. Responses are never cached and never leak the URL as a referrer.
// hsts adds Strict-Transport-Security and must only be set behind TLS.
func SecurityHeaders(hsts bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "no-referrer")
			h.Set("Cache-Control", "no-store")
			h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
			if hsts {
				h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}
			next.ServeHTTP(w, r)
		})
	}
}
