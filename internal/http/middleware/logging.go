// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file provides request correlation, the access logger and panic
// recovery. Recommended order: RequestID, Logger, Recovery, so panics and
// errors carry the correlation ID.
package middleware

import (
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	requestIDKey      = "requestID"
	requestIDHeader   = "X-Request-ID"
	loggerKey         = "logger"
	maxQueryLogLength = 2048
)

// RequestID reuses an inbound X-Request-ID or mints a UUIDv4, echoes it on
// the response and stores it in the context.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(requestIDHeader)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Set(requestIDKey, rid)
		c.Writer.Header().Set(requestIDHeader, rid)
		c.Next()
	}
}

// RequestIDFrom returns the correlation ID set by RequestID, or "".
func RequestIDFrom(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// LogOptions configures Logger.
type LogOptions struct {
	// MaskHeaders lists extra header names whose values are never logged.
	MaskHeaders []string
	// LogHeaders adds the scrubbed request headers to each access log line.
	LogHeaders bool
}

// Logger emits one structured access log per request and attaches a
// request-scoped logger that handlers fetch with LoggerFrom. Query strings
// and headers are scrubbed with Redact before logging. Level follows the
// outcome: error for 5xx or gin errors, warn for 4xx, info otherwise.
func Logger(opts LogOptions) gin.HandlerFunc {
	mask := headerMask(opts.MaskHeaders)

	return func(c *gin.Context) {
		start := time.Now()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		l := log.With().
			Str("request_id", RequestIDFrom(c)).
			Str("method", c.Request.Method).
			Str("path", path).
			Str("remote_ip", c.ClientIP()).
			Str("user_agent", c.Request.UserAgent()).
			Str("query", truncate(Redact(c.Request.URL.RawQuery), maxQueryLogLength)).
			Int64("bytes_in", c.Request.ContentLength).
			Logger()
		c.Set(loggerKey, &l)

		c.Next()

		ev := l.Info()
		switch status := c.Writer.Status(); {
		case len(c.Errors) > 0:
			ev = l.Error().Str("errors", c.Errors.String())
		case status >= 500:
			ev = l.Error()
		case status >= 400:
			ev = l.Warn()
		}
		if opts.LogHeaders {
			ev = ev.Interface("headers", redactHeaders(c.Request.Header, mask))
		}
		ev.
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Int("bytes_out", c.Writer.Size()).
			Bool("replayed", IsReplay(c)).
			Msg("request")
	}
}

// Recovery turns a panic into a JSON 500 carrying the request ID and logs
// the stack.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			rid := RequestIDFrom(c)
			log.Error().
				Interface("panic", rec).
				Bytes("stack", debug.Stack()).
				Str("request_id", rid).
				Msg("panic recovered")

			if c.Writer.Written() {
				c.AbortWithStatus(http.StatusInternalServerError)
				return
			}
			c.Header(requestIDHeader, rid)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"request_id": rid,
				"code":       "internal_error",
				"message":    "internal server error",
			})
		}()
		c.Next()
	}
}

// LoggerFrom returns the request-scoped logger, or the global logger when
// Logger is not installed.
func LoggerFrom(c *gin.Context) *zerolog.Logger {
	if v, ok := c.Get(loggerKey); ok {
		if lg, ok := v.(*zerolog.Logger); ok {
			return lg
		}
	}
	l := log.With().Logger()
	return &l
}

// truncate caps s at max bytes. max <= 0 disables truncation.
func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
