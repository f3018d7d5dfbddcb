// Package middleware composes the HTTP handlers in front of the build
// broadcast endpoint.
package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/conneroisu/bindery/internal/logging"
	"golang.org/x/time/rate"
)

// Middleware represents a single middleware function
type Middleware func(http.Handler) http.Handler

// Chain wraps handler so that the first middleware is the outermost.
// Request flows: first -> ... -> last -> handler.
func Chain(handler http.Handler, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}
	return handler
}

// Logging records every request once the handler returns. For websocket
// upgrades that is when the client disconnects.
//
// The ResponseWriter is passed through untouched so upgrades can hijack it.
func Logging(logger logging.Logger) Middleware {
	if logger == nil {
		logger = logging.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.Debug(r.Context(), "Request served",
				"method", r.Method,
				"path", r.URL.Path,
				"remote", r.RemoteAddr,
				"duration", time.Since(start))
		})
	}
}

// SecurityHeaders sets the response headers every endpoint carries.
func SecurityHeaders() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "no-referrer")
			h.Set("Cross-Origin-Resource-Policy", "same-origin")
			next.ServeHTTP(w, r)
		})
	}
}

// MethodGuard rejects any method outside allowed with 405.
func MethodGuard(allowed ...string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, m := range allowed {
				if r.Method == m {
					next.ServeHTTP(w, r)
					return
				}
			}
			w.Header().Set("Allow", strings.Join(allowed, ", "))
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		})
	}
}

// RateLimit answers 429 once requests exceed perSecond on average, with
// bursts up to burst. Websocket clients pay once, at upgrade time.
func RateLimit(perSecond float64, burst int) Middleware {
	limiter := rate.NewLimiter(rate.Limit(perSecond), burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				w.Header().Set("Retry-After", "1")
				http.Error(w, "too many requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
