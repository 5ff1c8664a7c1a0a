package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quotewidget/internal/adapters/http/dto"
	"github.com/jsamuelsen/quotewidget/internal/adapters/http/handlers"
	"github.com/jsamuelsen/quotewidget/internal/adapters/http/middleware"
	"github.com/jsamuelsen/quotewidget/internal/platform/config"
	"github.com/jsamuelsen/quotewidget/internal/platform/telemetry"
)

// RouterConfig contains configuration for setting up the router.
type RouterConfig struct {
	// Logger is the structured logger for request logging.
	Logger *slog.Logger

	// AppConfig contains application configuration.
	AppConfig *config.AppConfig

	// HealthHandler handles health check endpoints.
	HealthHandler *handlers.HealthHandler

	// WidgetHandler serves the widget page and its JSON API.
	WidgetHandler *handlers.WidgetHandler
}

// SetupRouter configures all routes and middleware on the Gin engine.
// Middleware is applied in the following order (first to last):
//  1. Recovery - catch panics first
//  2. Request ID - generate/extract request ID
//  3. OpenTelemetry - tracing and metrics
//  4. Logging - request logging (skips /-/ endpoints)
//
// Routes:
//   - / and /refresh: the widget page and its button form action
//   - /api/v1/quote: JSON view of the same widget
//   - /-/ (internal): health, build info and metrics
func SetupRouter(engine *gin.Engine, cfg RouterConfig) {
	engine.HandleMethodNotAllowed = true

	engine.Use(
		middleware.Recovery(cfg.Logger),
		middleware.RequestID(),
	)
	engine.Use(telemetry.Middleware(cfg.AppConfig.Name)...)
	engine.Use(middleware.Logging(cfg.Logger))

	if cfg.HealthHandler != nil {
		cfg.HealthHandler.RegisterHealthRoutesOnEngine(engine)
	}

	if cfg.WidgetHandler != nil {
		engine.SetHTMLTemplate(handlers.Templates())
		cfg.WidgetHandler.RegisterPageRoutes(engine)
		cfg.WidgetHandler.RegisterQuoteRoutes(engine.Group("/api/v1"))
	}

	engine.NoRoute(notFound)
	engine.NoMethod(methodNotAllowed)
}

// SetupMinimalRouter sets up a minimal router with just health endpoints.
// Useful for testing or lightweight deployments.
func SetupMinimalRouter(engine *gin.Engine, logger *slog.Logger, healthHandler *handlers.HealthHandler) {
	engine.Use(
		middleware.Recovery(logger),
		middleware.RequestID(),
	)

	if healthHandler != nil {
		healthHandler.RegisterHealthRoutesOnEngine(engine)
	}
}

func notFound(c *gin.Context) {
	if wantsHTML(c) {
		c.String(http.StatusNotFound, "not found")
		return
	}

	RespondWithErrorCode(c, dto.ErrorCodeNotFound, "route not found")
}

func methodNotAllowed(c *gin.Context) {
	AbortWithErrorCode(c, dto.ErrorCodeMethodNotAllowed, c.Request.Method+" is not allowed on "+c.Request.URL.Path)
}

func wantsHTML(c *gin.Context) bool {
	return c.NegotiateFormat(gin.MIMEJSON, gin.MIMEHTML) == gin.MIMEHTML
}
