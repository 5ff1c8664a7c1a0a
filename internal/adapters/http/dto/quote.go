package dto

import "github.com/jsamuelsen/quotewidget/internal/app"

// QuoteView is the JSON form of the rendered widget.
type QuoteView struct {
	Quote          string `json:"quote"`
	AuthorLine     string `json:"authorLine"`
	ButtonLabel    string `json:"buttonLabel"`
	ButtonDisabled bool   `json:"buttonDisabled"`
}

// WidgetResponse is the body of GET /api/v1/quote.
// View is null when the widget renders nothing. Fetch errors are never exposed.
type WidgetResponse struct {
	View           *QuoteView `json:"view"`
	Status         string     `json:"status"`
	RefreshEnabled bool       `json:"refreshEnabled"`
}

// RefreshResponse is the body of POST /api/v1/quote/refresh.
type RefreshResponse struct {
	// Started is false when a fetch was already in flight.
	Started bool `json:"started"`
}

// NewWidgetResponse converts a display snapshot to its JSON form.
func NewWidgetResponse(s app.Snapshot) WidgetResponse {
	resp := WidgetResponse{
		Status:         s.State.String(),
		RefreshEnabled: s.RefreshEnabled,
	}

	if s.View != nil {
		resp.View = &QuoteView{
			Quote:          s.View.Quote,
			AuthorLine:     s.View.AuthorLine,
			ButtonLabel:    s.View.ButtonLabel,
			ButtonDisabled: s.View.ButtonDisabled,
		}
	}

	return resp
}
