// Package api wires the gateway's HTTP endpoints onto a net/http.ServeMux
// and layers the error-normalization and metrics middleware around every
// route.
package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/blockfrost/node-gateway/internal/cborx"
	"github.com/blockfrost/node-gateway/internal/logging"
	"github.com/blockfrost/node-gateway/internal/pool"
)

// Server bundles the collaborators the handlers need: the connection pool,
// the fallback decoder, and the metrics recorder. Route registration lives
// here rather than in cmd/ so the prefix-nesting logic is exercised by tests
// against Server directly.
type Server struct {
	pool     *pool.Pool
	fallback cborx.FallbackDecoder
	metrics  *Metrics
	log      *logging.Logger

	metricsEnabled bool
}

// Config is everything New needs to build a Server.
type Config struct {
	Pool           *pool.Pool
	Fallback       cborx.FallbackDecoder
	Metrics        *Metrics
	Log            *logging.Logger
	MetricsEnabled bool
}

func New(cfg Config) *Server {
	return &Server{
		pool:           cfg.Pool,
		fallback:       cfg.Fallback,
		metrics:        cfg.Metrics,
		log:            cfg.Log,
		metricsEnabled: cfg.MetricsEnabled,
	}
}

// Router builds the ServeMux for this gateway's three endpoints, nested
// under the registry-reported prefix (default "/"). Each route is wrapped,
// innermost first, by the metrics middleware (recorded under the matched
// route pattern, not the raw path) and then the error-normalization
// middleware.
func (s *Server) Router(prefix string) http.Handler {
	prefix = normalizePrefix(prefix)

	mux := http.NewServeMux()
	mux.Handle(joinPath(prefix, "/tx/submit"), s.wrap(joinPath(prefix, "/tx/submit"), http.HandlerFunc(s.txSubmitHandler)))

	if s.metricsEnabled && s.metrics != nil {
		mux.Handle(joinPath(prefix, "/metrics"), s.metrics.Handler())
	}

	// The prefix root itself is the status endpoint; anything else under the
	// prefix falls through to the not-found handler.
	rootPath := joinPath(prefix, "/")
	mux.Handle(rootPath, s.wrap(rootPath, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == rootPath {
			s.rootHandler(w, r)
			return
		}
		s.notFoundHandler(w, r)
	})))

	return mux
}

// wrap layers metrics (inner) then error normalization (outer) around a
// handler.
func (s *Server) wrap(pattern string, next http.Handler) http.Handler {
	h := next
	if s.metricsEnabled && s.metrics != nil {
		h = metricsMiddleware(s.metrics, pattern, h)
	}
	return requestIDMiddleware(errorMiddleware(s.log, h))
}

func normalizePrefix(prefix string) string {
	if prefix == "" {
		return "/"
	}
	if !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	return strings.TrimSuffix(prefix, "/")
}

func joinPath(prefix, suffix string) string {
	if prefix == "" || prefix == "/" {
		return suffix
	}
	return prefix + suffix
}

// Serve runs the HTTP server on addr until ctx is cancelled, then shuts it
// down gracefully. The explicit net.Listen lets the caller observe the
// bound address (addr may carry port 0 in tests). The returned channel is
// closed once shutdown has completed.
func Serve(ctx context.Context, addr string, handler http.Handler, log *logging.Logger) (string, <-chan struct{}, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return "", nil, fmt.Errorf("api: listen on %s: %w", addr, err)
	}

	srv := &http.Server{
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Errorf("server error: %s", err)
		}
	}()

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Errorf("server shutdown error: %s", err)
		}
	}()

	return listener.Addr().String(), done, nil
}
