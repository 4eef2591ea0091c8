// Package handlers provides HTTP handler implementations for the public API.
//
// This file defines the response helpers shared by every endpoint: the error
// envelope, the fail/ok writers and the mapping from service errors to
// status codes.
//
// Example error response:
//
//	HTTP/1.1 404 Not Found
//	{
//	  "request_id": "123e4567-e89b-12d3-a456-426614174000",
//	  "code": "not_found",
//	  "message": "case not found"
//	}
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/notice-escalator/internal/http/middleware"
	"github.com/tbourn/notice-escalator/internal/notify"
	"github.com/tbourn/notice-escalator/internal/services"
)

// ErrorResponse is the standard error envelope returned by all endpoints.
type ErrorResponse struct {
	// Correlates server logs and client errors
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Stable, machine-readable code (see errors.go constants)
	Code string `json:"code" example:"not_found"`
	// Human-readable message (safe to show to users)
	Message string `json:"message" example:"case not found"`
}

// fail aborts with an ErrorResponse. 5xx responses are logged with the
// request-scoped logger.
func fail(c *gin.Context, status int, code, msg string) {
	if status >= http.StatusInternalServerError {
		middleware.LoggerFrom(c).Error().
			Int("status", status).
			Str("code", code).
			Str("message", msg).
			Msg("api error")
	}
	c.AbortWithStatusJSON(status, ErrorResponse{
		RequestID: c.Writer.Header().Get("X-Request-ID"),
		Code:      code,
		Message:   msg,
	})
}

// Fail is the exported variant of fail, used by the router fallbacks.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

// failErr maps a service error to a status and code. fallbackCode is used
// for anything unrecognized, which is reported as 500.
func failErr(c *gin.Context, err error, fallbackCode string) {
	switch {
	case errors.Is(err, services.ErrCaseNotFound), errors.Is(err, notify.ErrDocumentNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, err.Error())
	case errors.Is(err, services.ErrIngestion), errors.Is(err, services.ErrInvalidRequest),
		errors.Is(err, notify.ErrInvalidDocumentName):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	case errors.Is(err, services.ErrNoMailbox):
		fail(c, http.StatusServiceUnavailable, ErrCodeMailboxUnavailable, err.Error())
	case errors.Is(err, services.ErrMailboxFetch):
		fail(c, http.StatusBadGateway, ErrCodeMailboxUnavailable, err.Error())
	case errors.Is(err, notify.ErrDeliveryFailed):
		fail(c, http.StatusBadGateway, ErrCodeDeliveryFailed, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		fail(c, http.StatusGatewayTimeout, ErrCodeTimeout, "operation timed out")
	default:
		fail(c, http.StatusInternalServerError, fallbackCode, err.Error())
	}
}

// ok writes body as JSON with status.
func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}
