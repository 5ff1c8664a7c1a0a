package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	"github.com/jsamuelsen/quotewidget/internal/adapters/http/dto"
)

// RespondWithErrorCode writes an error response with a specific error code.
// The widget itself never fails a request on a fetch error; this covers
// routing errors and malformed requests only.
func RespondWithErrorCode(c *gin.Context, code, message string) {
	c.JSON(dto.HTTPStatusFromCode(code), newErrorResponse(c, code, message))
}

// AbortWithErrorCode aborts the request chain with a specific error code.
func AbortWithErrorCode(c *gin.Context, code, message string) {
	c.AbortWithStatusJSON(dto.HTTPStatusFromCode(code), newErrorResponse(c, code, message))
}

func newErrorResponse(c *gin.Context, code, message string) *dto.ErrorResponse {
	errResp := dto.NewErrorResponse(code, message)

	if span := trace.SpanFromContext(c.Request.Context()); span.SpanContext().HasTraceID() {
		errResp.TraceID = span.SpanContext().TraceID().String()
	}

	return errResp
}
