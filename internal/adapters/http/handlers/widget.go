package handlers

import (
	"context"
	"embed"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quotewidget/internal/adapters/http/dto"
	"github.com/jsamuelsen/quotewidget/internal/app"
)

// PageTemplate is the name of the widget page template.
const PageTemplate = "index.html"

// DefaultReloadInterval is how soon a page rendered while loading asks to be reloaded.
const DefaultReloadInterval = time.Second

//go:embed templates/*.html
var templateFS embed.FS

// Templates parses the embedded page templates. Install them with
// gin.Engine.SetHTMLTemplate before registering page routes.
func Templates() *template.Template {
	return template.Must(template.New("").ParseFS(templateFS, "templates/*.html"))
}

// Display is the part of app.QuoteDisplay the handlers drive.
type Display interface {
	Snapshot() app.Snapshot
	UpdateQuote(ctx context.Context) bool
}

// WidgetHandler serves the quote widget page and its JSON API.
type WidgetHandler struct {
	display        Display
	title          string
	reloadInterval time.Duration
}

// NewWidgetHandler creates a new widget handler. The title is used for the page.
func NewWidgetHandler(display Display, title string) *WidgetHandler {
	return &WidgetHandler{
		display:        display,
		title:          title,
		reloadInterval: DefaultReloadInterval,
	}
}

// pageData is the template input of the widget page.
type pageData struct {
	Title         string
	Status        string
	Loading       bool
	ReloadSeconds int
	View          *app.View
}

// Page handles GET /
// Renders the widget. The container is empty until a quote has been fetched.
func (h *WidgetHandler) Page(c *gin.Context) {
	snap := h.display.Snapshot()

	c.Header("Cache-Control", "no-store")
	c.HTML(http.StatusOK, PageTemplate, pageData{
		Title:         h.title,
		Status:        snap.State.String(),
		Loading:       snap.State == app.FetchLoading,
		ReloadSeconds: max(1, int(h.reloadInterval/time.Second)),
		View:          snap.View,
	})
}

// Refresh handles POST /refresh, the form action of the "New Quote" button.
// Starts a fetch unless one is in flight, then redirects back to the page.
func (h *WidgetHandler) Refresh(c *gin.Context) {
	h.display.UpdateQuote(c.Request.Context())
	c.Redirect(http.StatusSeeOther, "/")
}

// GetQuote handles GET /api/v1/quote
// Returns the rendered widget as JSON.
//
// @Summary Get the widget state
// @Tags quote
// @Produce json
// @Success 200 {object} dto.WidgetResponse
// @Router /api/v1/quote [get]
func (h *WidgetHandler) GetQuote(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, dto.NewWidgetResponse(h.display.Snapshot()))
}

// RefreshQuote handles POST /api/v1/quote/refresh
// Starts a fetch in the background. The response reports whether one was
// started; a fetch already in flight is not an error.
//
// @Summary Request a new quote
// @Tags quote
// @Produce json
// @Success 202 {object} dto.RefreshResponse
// @Router /api/v1/quote/refresh [post]
func (h *WidgetHandler) RefreshQuote(c *gin.Context) {
	started := h.display.UpdateQuote(c.Request.Context())
	c.JSON(http.StatusAccepted, dto.RefreshResponse{Started: started})
}

// RegisterPageRoutes registers the HTML page routes.
func (h *WidgetHandler) RegisterPageRoutes(r gin.IRoutes) {
	r.GET("/", h.Page)
	r.POST("/refresh", h.Refresh)
}

// RegisterQuoteRoutes registers the JSON API routes on the given router group.
func (h *WidgetHandler) RegisterQuoteRoutes(rg *gin.RouterGroup) {
	quote := rg.Group("/quote")
	quote.GET("", h.GetQuote)
	quote.POST("/refresh", h.RefreshQuote)
}
