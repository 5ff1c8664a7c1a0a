// Package http serves the quote widget over HTTP using Gin.
package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quotewidget/internal/platform/config"
)

// Component is mounted when the server starts serving and unmounted once it
// has stopped. app.QuoteDisplay satisfies it.
type Component interface {
	Mount(ctx context.Context)
	WaitContext(ctx context.Context) error
	Unmount()
}

// Server wraps http.Server with Gin and ties the widget's lifecycle to it.
type Server struct {
	engine     *gin.Engine
	httpServer *http.Server
	config     *config.ServerConfig
	logger     *slog.Logger
	component  Component
	listener   net.Listener
}

// Option configures a Server.
type Option func(*Server)

// WithComponent sets the component mounted by Start and unmounted by Shutdown.
func WithComponent(c Component) Option {
	return func(s *Server) {
		s.component = c
	}
}

// New creates a new HTTP server with the provided configuration.
func New(cfg *config.ServerConfig, logger *slog.Logger, opts ...Option) *Server {
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	engine.Use(maxBodySize(cfg.MaxRequestSize))

	s := &Server{
		engine: engine,
		httpServer: &http.Server{
			Addr:         net.JoinHostPort(cfg.Host, fmt.Sprint(cfg.Port)),
			Handler:      engine,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
		config: cfg,
		logger: logger,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Engine returns the underlying Gin engine for route registration.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Config returns the server configuration.
func (s *Server) Config() *config.ServerConfig {
	return s.config
}

// Start binds the listen address, mounts the component and serves in the
// background. A bind failure is returned directly and nothing is mounted.
// Errors after that arrive on the returned channel, which is closed when
// serving stops.
func (s *Server) Start(ctx context.Context) (<-chan error, error) {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", s.httpServer.Addr, err)
	}

	s.listener = ln

	if s.component != nil {
		s.component.Mount(ctx)
	}

	s.logger.Info("starting HTTP server",
		slog.String("addr", ln.Addr().String()),
		slog.Duration("read_timeout", s.config.ReadTimeout),
		slog.Duration("write_timeout", s.config.WriteTimeout),
	)

	errCh := make(chan error, 1)

	go func() {
		defer close(errCh)

		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	return errCh, nil
}

// Shutdown stops accepting requests and waits for active ones, then lets an
// in-flight fetch settle before unmounting the component. Both waits share
// the deadline of ctx; a fetch still running at the deadline is logged and
// its result dropped by the unmount.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")

	err := s.httpServer.Shutdown(ctx)

	if s.component != nil {
		if waitErr := s.component.WaitContext(ctx); waitErr != nil {
			s.logger.Warn("quote fetch still in flight at shutdown", slog.Any("error", waitErr))
		}

		s.component.Unmount()
	}

	if err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}

	s.logger.Info("HTTP server stopped")

	return nil
}

// Addr returns the bound address once started, otherwise the configured one.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}

	return s.httpServer.Addr
}

// maxBodySize returns middleware that limits the request body size.
func maxBodySize(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
