// Package httpapi implements the secondary, read-only HTTP surface spec.md's
// ambient stack calls for: a status page, a Prometheus /metrics endpoint,
// and a web form mirroring the raw WHOIS query path — all separate from the
// RFC 3912 TCP/SSH surfaces, which have their own line-oriented framing.
//
// Routing and middleware composition follow the teacher's
// applications/httpapi + cmd/gateway packages: gorilla/mux for routing,
// a recovery/timeout/logging/CORS middleware chain wrapping every route.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/Akaere-NetWorks/whois-server/internal/colorize"
	"github.com/Akaere-NetWorks/whois-server/internal/process"
	"github.com/Akaere-NetWorks/whois-server/internal/stats"
)

// QueryHandler is the subset of process.Processor the web query form needs;
// defined locally so httpapi doesn't otherwise depend on C9's server
// package.
type QueryHandler interface {
	Handle(ctx context.Context, rawQuery string, scheme colorize.Scheme, peer process.PeerInfo) string
}

// Config controls the secondary surface's bind address and per-request
// timeout.
type Config struct {
	BindAddr string
	Timeout  time.Duration
}

// Server is a thin wrapper around *http.Server serving the gorilla/mux
// router built by NewRouter.
type Server struct {
	http *http.Server
}

// New builds the secondary HTTP surface. metricsRegistry may be nil, in
// which case /metrics responds 404 — the surface still serves /status and
// /query.
func New(cfg Config, handler QueryHandler, s *stats.Stats, metricsRegistry *prometheus.Registry, log *logrus.Logger) *Server {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	router := newRouter(handler, s, metricsRegistry, log)

	chain := func(h http.Handler) http.Handler {
		return corsMiddleware(recoveryMiddleware(log)(timeoutMiddleware(cfg.Timeout)(loggingMiddleware(log)(h))))
	}

	return &Server{http: &http.Server{
		Addr:    cfg.BindAddr,
		Handler: chain(router),
	}}
}

func newRouter(handler QueryHandler, s *stats.Stats, metricsRegistry *prometheus.Registry, log *logrus.Logger) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/status", statusHandler(s)).Methods(http.MethodGet)
	r.HandleFunc("/query", queryHandler(handler)).Methods(http.MethodGet, http.MethodPost)

	if metricsRegistry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(metricsRegistry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		jsonError(w, "not found", http.StatusNotFound)
	})
	return r
}

// Run starts the HTTP surface and blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.http.Shutdown(shutdownCtx)
	}()

	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func statusHandler(s *stats.Stats) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if s == nil {
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
			return
		}
		_ = json.NewEncoder(w).Encode(s.Snapshot())
	}
}

// queryHandler mirrors the primary WHOIS protocol over HTTP: the query
// comes from "q" (GET) or a form-encoded POST body, an optional "color"
// parameter selects a colorize.Scheme, and the raw C8 response text is
// returned as text/plain — deliberately not JSON, so the output matches
// what a TCP client would see byte for byte.
func queryHandler(handler QueryHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			jsonError(w, "invalid form body", http.StatusBadRequest)
			return
		}
		query := strings.TrimSpace(r.Form.Get("q"))
		if query == "" {
			jsonError(w, "missing query parameter \"q\"", http.StatusBadRequest)
			return
		}
		scheme, _ := colorize.ParseScheme(r.Form.Get("color"))

		peer := process.PeerInfo{RemoteAddr: r.RemoteAddr}
		response := handler.Handle(r.Context(), query, scheme, peer)

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(response))
	}
}
