package dto

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quotewidget/internal/app"
)

func TestNewErrorResponse(t *testing.T) {
	resp := NewErrorResponse(ErrorCodeNotFound, "route not found").WithTraceID("trace-1")

	assert.Equal(t, ErrorCodeNotFound, resp.Error.Code)
	assert.Equal(t, "route not found", resp.Error.Message)
	assert.Equal(t, "trace-1", resp.TraceID)
}

func TestErrorResponse_OmitsEmptyTraceID(t *testing.T) {
	b, err := json.Marshal(NewErrorResponse(ErrorCodeInternal, "boom"))
	require.NoError(t, err)

	assert.JSONEq(t, `{"error":{"code":"INTERNAL_ERROR","message":"boom"}}`, string(b))
}

func TestHTTPStatusFromCode(t *testing.T) {
	tests := []struct {
		code     string
		expected int
	}{
		{ErrorCodeNotFound, http.StatusNotFound},
		{ErrorCodeMethodNotAllowed, http.StatusMethodNotAllowed},
		{ErrorCodeBadRequest, http.StatusBadRequest},
		{ErrorCodeUnavailable, http.StatusServiceUnavailable},
		{ErrorCodeInternal, http.StatusInternalServerError},
		{"SOMETHING_ELSE", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.expected, HTTPStatusFromCode(tt.code))
		})
	}
}

func TestNewWidgetResponse(t *testing.T) {
	t.Run("rendered view", func(t *testing.T) {
		resp := NewWidgetResponse(app.Snapshot{
			View: &app.View{
				Quote:          "Q",
				AuthorLine:     "- A",
				ButtonLabel:    app.ButtonLabel,
				ButtonDisabled: true,
			},
			State: app.FetchLoading,
		})

		b, err := json.Marshal(resp)
		require.NoError(t, err)
		assert.JSONEq(t, `{
			"view": {"quote":"Q","authorLine":"- A","buttonLabel":"New Quote","buttonDisabled":true},
			"status": "loading",
			"refreshEnabled": false
		}`, string(b))
	})

	t.Run("nothing rendered", func(t *testing.T) {
		b, err := json.Marshal(NewWidgetResponse(app.Snapshot{State: app.FetchIdle, RefreshEnabled: true}))
		require.NoError(t, err)
		assert.JSONEq(t, `{"view":null,"status":"idle","refreshEnabled":true}`, string(b))
	})
}
