// Package server provides the HTTP server of the envelope service.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	"github.com/vyrodovalexey/avaenvelope/internal/health"
	"github.com/vyrodovalexey/avaenvelope/internal/observability"
	"github.com/vyrodovalexey/avaenvelope/internal/server/middleware"
)

// ginModeOnce ensures gin.SetMode is only called once to avoid race conditions.
var ginModeOnce sync.Once

// Probe endpoints.
const (
	HealthPath = "/healthz"
	ReadyPath  = "/readyz"
)

// Config holds configuration for the HTTP server.
type Config struct {
	Address        string
	Port           int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int

	// MaxBodySize is the maximum request body size in bytes. Zero disables
	// the limit.
	MaxBodySize int64

	// MetricsPath is where the metrics registry is served when metrics are
	// configured.
	MetricsPath string

	// ServiceName names the tracer of the request spans.
	ServiceName string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Port:           8080,
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   30 * time.Second,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20, // 1 MB
		MaxBodySize:    1 << 20, // 1 MB
		MetricsPath:    "/metrics",
		ServiceName:    middleware.TracerName,
	}
}

// Option is a functional option for configuring the Server.
type Option func(*Server)

// WithLogger sets the logger for the server.
func WithLogger(logger observability.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetrics enables request metrics and the metrics endpoint.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithHealthChecker sets the checker behind the probe endpoints.
func WithHealthChecker(checker *health.Checker) Option {
	return func(s *Server) {
		s.health = checker
	}
}

// WithTracerProvider sets the tracer provider of the request spans. The
// global provider is used otherwise.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Server) {
		s.tracerProvider = tp
	}
}

// Server is the gin based HTTP server.
type Server struct {
	engine         *gin.Engine
	httpServer     *http.Server
	listener       net.Listener
	logger         observability.Logger
	metrics        *observability.Metrics
	health         *health.Checker
	tracerProvider trace.TracerProvider
	config         Config
	mu             sync.RWMutex
	running        bool
}

// New creates a new HTTP server with the standard middleware chain and the
// probe and metrics endpoints registered.
func New(config Config, opts ...Option) *Server {
	ginModeOnce.Do(func() {
		gin.SetMode(gin.ReleaseMode)
	})

	s := &Server{
		engine: gin.New(),
		config: config,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = observability.NopLogger()
	}
	if s.health == nil {
		s.health = health.NewChecker("")
	}

	s.engine.Use(
		middleware.Recovery(s.logger),
		middleware.RequestID(),
		middleware.TracingWithConfig(middleware.TracingConfig{
			TracerProvider: s.tracerProvider,
			ServiceName:    config.ServiceName,
			SkipPaths:      []string{HealthPath, ReadyPath, config.MetricsPath},
		}),
		middleware.Logging(s.logger),
	)
	if s.metrics != nil {
		s.engine.Use(middleware.Metrics(s.metrics))
	}
	if config.MaxBodySize > 0 {
		s.engine.Use(middleware.BodyLimit(config.MaxBodySize))
	}

	s.engine.GET(HealthPath, s.health.HealthHandler())
	s.engine.GET(ReadyPath, s.health.ReadinessHandler())
	if s.metrics != nil && config.MetricsPath != "" {
		s.engine.GET(config.MetricsPath, gin.WrapH(s.metrics.Handler()))
	}

	return s
}

// Engine returns the underlying gin engine for route registration.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start listens on the configured address and serves until Stop is called.
// It blocks and returns nil after a graceful stop.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server already running")
	}

	addr := net.JoinHostPort(s.config.Address, fmt.Sprintf("%d", s.config.Port))
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s.listener = ln
	s.httpServer = &http.Server{
		Handler:           s.engine,
		ReadTimeout:       s.config.ReadTimeout,
		ReadHeaderTimeout: s.config.ReadTimeout,
		WriteTimeout:      s.config.WriteTimeout,
		IdleTimeout:       s.config.IdleTimeout,
		MaxHeaderBytes:    s.config.MaxHeaderBytes,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	s.running = true
	httpServer := s.httpServer
	s.mu.Unlock()

	s.logger.Info("starting HTTP server",
		observability.String("address", ln.Addr().String()),
		observability.Duration("readTimeout", s.config.ReadTimeout),
		observability.Duration("writeTimeout", s.config.WriteTimeout),
	)

	if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Stop stops the HTTP server gracefully.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	httpServer := s.httpServer
	s.mu.Unlock()

	s.logger.Info("stopping HTTP server")

	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	s.logger.Info("HTTP server stopped")
	return nil
}

// IsRunning returns whether the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Addr returns the listening address, or an empty string before Start.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}
