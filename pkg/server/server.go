package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"mercator-hq/flowgate/pkg/config"
	"mercator-hq/flowgate/pkg/telemetry/health"
	"mercator-hq/flowgate/pkg/telemetry/metrics"
	"mercator-hq/flowgate/pkg/telemetry/tracing"
)

// ErrAlreadyRunning is returned by Serve on a server that is serving.
var ErrAlreadyRunning = errors.New("server is already running")

// Server serves the demo routes plus /health, /ready, /version and
// /metrics.
type Server struct {
	config    *config.ServerConfig
	mux       *http.ServeMux
	metrics   *metrics.Collector
	logger    *slog.Logger
	tracePass bool

	mu         sync.Mutex
	httpServer *http.Server
	addr       net.Addr
	running    bool
}

// Option configures a Server.
type Option func(*Server)

// WithMetrics records per-route request metrics on collector and, when the
// collector is enabled, serves its scrape handler.
func WithMetrics(collector *metrics.Collector) Option {
	return func(s *Server) { s.metrics = collector }
}

// WithHealth mounts the checker's endpoints.
func WithHealth(checker *health.Checker, info health.VersionInfo) Option {
	return func(s *Server) { checker.Mount(s.mux, info) }
}

// WithLogger sets the logger for request and lifecycle logs.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithTracePropagation continues callers' W3C traces in handlers.
func WithTracePropagation() Option {
	return func(s *Server) { s.tracePass = true }
}

// New creates a server for cfg. Routes may be added with Handle until
// Serve is called.
func New(cfg *config.ServerConfig, opts ...Option) *Server {
	s := &Server{
		config: cfg,
		mux:    http.NewServeMux(),
		logger: slog.Default().With("component", "server"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics != nil && s.metrics.Enabled() {
		s.mux.Handle("GET "+s.metrics.Path(), s.metrics.Handler())
	}
	return s
}

// Handle registers handler for a ServeMux pattern such as
// "GET /consumer/sayHello".
func (s *Server) Handle(pattern string, handler http.Handler) {
	s.mux.Handle(pattern, instrument(s.metrics, pattern, handler))
}

// HandleFunc registers a handler function for pattern.
func (s *Server) HandleFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.Handle(pattern, http.HandlerFunc(handler))
}

// Handler returns the mux wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	mws := []Middleware{Recovery(s.logger), RequestID, Logging(s.logger)}
	if s.tracePass {
		mws = append(mws, tracing.HTTPMiddleware)
	}
	return Chain(s.mux, mws...)
}

// ListenAndServe listens on the configured address and serves until ctx is
// cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.ListenAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.ListenAddress, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled, then shuts down gracefully
// within the configured shutdown timeout.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		_ = ln.Close()
		return ErrAlreadyRunning
	}
	s.httpServer = &http.Server{
		Handler:        s.Handler(),
		ReadTimeout:    s.config.ReadTimeout,
		WriteTimeout:   s.config.WriteTimeout,
		IdleTimeout:    s.config.IdleTimeout,
		MaxHeaderBytes: s.config.MaxHeaderBytes,
		BaseContext:    func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}
	s.addr = ln.Addr()
	s.running = true
	srv := s.httpServer
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	s.logger.Info("starting server", "address", ln.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server error: %w", err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("initiating graceful shutdown", "timeout", s.config.ShutdownTimeout.String())
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	s.logger.Info("server stopped")
	return <-errCh
}

// Addr returns the listening address, or nil before Serve.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// IsRunning reports whether Serve is active.
func (s *Server) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
