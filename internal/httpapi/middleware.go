package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// jsonError standardizes an error response body, matching the teacher's
// cmd/gateway/middleware.go jsonError helper.
func jsonError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// corsMiddleware mirrors the teacher's permissive CORS handler: this
// surface is read-only and unauthenticated per spec.md, so there is no
// credential boundary a wildcard origin would weaken.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// recoveryMiddleware converts a panicking handler into a 500 response
// instead of tearing down the HTTP server, the same "never abort the
// connection" discipline spec.md §7 mandates for the primary WHOIS path.
func recoveryMiddleware(log *logrus.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if log != nil {
						log.WithField("panic", rec).Error("httpapi: recovered from panic")
					}
					jsonError(w, "internal error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// timeoutMiddleware bounds handler execution, matching C9's per-connection
// deadline discipline on the primary protocol's TCP surface.
func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, `{"error":"request timed out"}`)
	}
}

// loggingMiddleware emits one structured line per request, mirroring C8's
// Processor.Handle debug log.
func loggingMiddleware(log *logrus.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			if log != nil {
				log.WithField("method", r.Method).
					WithField("path", r.URL.Path).
					WithField("millis", time.Since(start).Milliseconds()).
					Debug("httpapi: request handled")
			}
		})
	}
}
