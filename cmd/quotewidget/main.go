// Package main is the entry point for the quote widget.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jsamuelsen/quotewidget/internal/adapters/http"
	"github.com/jsamuelsen/quotewidget/internal/adapters/http/handlers"
	"github.com/jsamuelsen/quotewidget/internal/app"
	"github.com/jsamuelsen/quotewidget/internal/bootstrap"
	"github.com/jsamuelsen/quotewidget/internal/platform/config"
	"github.com/jsamuelsen/quotewidget/internal/platform/logging"
	"github.com/jsamuelsen/quotewidget/internal/platform/metrics"
	"github.com/jsamuelsen/quotewidget/internal/platform/telemetry"
	"github.com/jsamuelsen/quotewidget/internal/ports"
)

// Build-time variables, injected via ldflags.
// Example: go build -ldflags "-X main.Version=1.0.0 -X main.Commit=$(git rev-parse HEAD) -X main.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
var (
	// Version is the semantic version of the widget.
	Version = "dev"

	// Commit is the git commit SHA.
	Commit = "unknown"

	// BuildTime is the timestamp when the binary was built.
	BuildTime = "unknown"
)

// pageTitle is the document title of the widget page.
const pageTitle = "Quote"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	// 1. Determine profile from environment (the .env file may set it)
	profile, err := config.Profile(config.DefaultDotEnvPath)
	if err != nil {
		return fmt.Errorf("resolving profile: %w", err)
	}

	// 2. Load and validate configuration (fail fast). The API section is
	// resolved later by the bootstrapper and never fails startup.
	cfg, err := config.Load(profile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// 3. Initialize logging
	logger := logging.New(&logging.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Service: cfg.App.Name,
		Version: cfg.App.Version,
		File: logging.FileConfig{
			Enabled:    cfg.Log.File.Enabled,
			Path:       cfg.Log.File.Path,
			MaxSizeMB:  cfg.Log.File.MaxSizeMB,
			MaxBackups: cfg.Log.File.MaxBackups,
			MaxAgeDays: cfg.Log.File.MaxAgeDays,
			Compress:   cfg.Log.File.Compress,
		},
	})
	logging.SetDefault(logger)

	logger.Info("starting quote widget",
		slog.String("version", Version),
		slog.String("commit", Commit),
		slog.String("environment", cfg.App.Environment),
	)

	// 4. Initialize telemetry (noop if disabled)
	telProvider, err := telemetry.New(ctx, &telemetry.Config{
		Enabled:      cfg.Telemetry.Enabled,
		Endpoint:     cfg.Telemetry.Endpoint,
		ServiceName:  cfg.Telemetry.ServiceName,
		Version:      cfg.App.Version,
		Environment:  cfg.App.Environment,
		SamplingRate: cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}

	defer func() {
		if shutdownErr := telProvider.Shutdown(ctx); shutdownErr != nil {
			logger.Error("telemetry shutdown error", slog.Any("error", shutdownErr))
		}
	}()

	// 5. Configure the client binding before anything depends on it
	binding := bootstrap.New(cfg.API,
		bootstrap.WithLogger(logger),
		bootstrap.WithClientConfig(cfg.Client),
	).Binding()

	// 6. Register the binding as a health checker
	healthRegistry := ports.NewHealthRegistry(ports.WithCheckTimeout(time.Second))
	if err := healthRegistry.Register(binding); err != nil {
		return fmt.Errorf("registering binding health check: %w", err)
	}

	// 7. Create fetch metrics
	fetchMetrics, err := metrics.NewFetchMetrics(prometheus.DefaultRegisterer)
	if err != nil {
		return fmt.Errorf("registering fetch metrics: %w", err)
	}

	// 8. Create the display component (mounted when the server starts)
	display := app.NewQuoteDisplay(
		app.QuoteDisplayConfig{Source: binding, Logger: logger},
		app.WithObserver(app.MetricsObserver(fetchMetrics)),
	)

	// 9. Create handlers
	buildInfo := handlers.NewBuildInfo(Version, Commit, BuildTime)
	healthHandler := handlers.NewHealthHandler(healthRegistry, buildInfo, prometheus.DefaultGatherer)
	widgetHandler := handlers.NewWidgetHandler(display, pageTitle)

	// 10. Create HTTP server
	server := http.New(&cfg.Server, logger, http.WithComponent(display))

	// 11. Setup router with all middleware and routes
	http.SetupRouter(server.Engine(), http.RouterConfig{
		Logger:        logger,
		AppConfig:     &cfg.App,
		HealthHandler: healthHandler,
		WidgetHandler: widgetHandler,
	})

	// 12. Start server (non-blocking, mounts the display and issues the first fetch)
	serverErr, err := server.Start(ctx)
	if err != nil {
		return fmt.Errorf("starting server: %w", err)
	}

	// 13. Wait for shutdown signal
	return waitForShutdown(ctx, logger, server, serverErr, cfg.Server.ShutdownTimeout)
}

// waitForShutdown blocks until a shutdown signal is received or server error occurs.
// Server shutdown drains requests and the in-flight fetch, then unmounts the display.
func waitForShutdown(
	ctx context.Context,
	logger *slog.Logger,
	server *http.Server,
	serverErr <-chan error,
	shutdownTimeout time.Duration,
) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)

	case sig := <-quit:
		logger.Info("received shutdown signal", slog.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	logger.Info("initiating graceful shutdown",
		slog.Duration("timeout", shutdownTimeout),
	)

	// Stop accepting new requests, drain in-flight
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("shutdown complete")

	return nil
}
