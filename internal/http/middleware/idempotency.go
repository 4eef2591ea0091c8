// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements Idempotency-Key support for the unsafe workflow
// endpoints. A trigger such as POST /workflow/escalations sends email and
// writes documents, so a client retrying after a timeout must get the first
// response back instead of a second run. The middleware:
//   - validates the Idempotency-Key header on POST requests
//   - replays a stored (status, body) when the key was already completed for
//     the same route
//   - otherwise records the 2xx response produced by the handler
package middleware

import (
	"bytes"
	"context"
	"net/http"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"
)

// HeaderIdempotencyKey is the request header carrying the client key.
const HeaderIdempotencyKey = "Idempotency-Key"

// HeaderIdempotentReplay is set to "true" on responses served from storage.
const HeaderIdempotentReplay = "Idempotent-Replayed"

const (
	ctxKeyIdemKey    = "idem.key"
	ctxKeyIdemReplay = "idem.replay"
)

var defaultKeyPattern = regexp.MustCompile(`^[A-Za-z0-9._~\-:]+$`)

// StoredResponse is a previously completed response for (operation, key).
type StoredResponse struct {
	Status int
	Body   []byte
}

// ReplayStore persists completed responses. Lookup returns (nil, nil) when no
// live record exists.
type ReplayStore interface {
	Lookup(ctx context.Context, operation, key string, now time.Time) (*StoredResponse, error)
	Save(ctx context.Context, operation, key string, status int, body []byte) error
}

// IdempotencyOptions configures Idempotency.
type IdempotencyOptions struct {
	// MaxLen caps the accepted key length. Values <= 0 default to 200.
	MaxLen int
	// Pattern restricts allowed characters. Nil uses ^[A-Za-z0-9._~\-:]+$.
	Pattern *regexp.Regexp
	// MaxBody caps the response size that is recorded. Values <= 0 default
	// to 1 MiB. Larger responses are served but not stored.
	MaxBody int
}

// GetIdempotencyKey returns the validated key stashed by Idempotency.
func GetIdempotencyKey(c *gin.Context) (string, bool) {
	s := c.GetString(ctxKeyIdemKey)
	return s, s != ""
}

// IsReplay reports whether the response was served from the replay store.
func IsReplay(c *gin.Context) bool {
	return c.GetBool(ctxKeyIdemReplay)
}

// Operation names the idempotency scope of a request: method plus the
// registered route, so the same key on two endpoints never collides.
func Operation(c *gin.Context) string {
	route := c.FullPath()
	if route == "" {
		route = c.Request.URL.Path
	}
	return c.Request.Method + " " + route
}

// Idempotency returns the middleware. Requests other than POST and requests
// without the header pass through untouched. A nil store only validates.
//
// Register it after any response-compressing middleware so the recorded body
// is the uncompressed handler output.
func Idempotency(opts IdempotencyOptions, store ReplayStore) gin.HandlerFunc {
	maxLen := opts.MaxLen
	if maxLen <= 0 {
		maxLen = 200
	}
	pat := opts.Pattern
	if pat == nil {
		pat = defaultKeyPattern
	}
	maxBody := opts.MaxBody
	if maxBody <= 0 {
		maxBody = 1 << 20
	}

	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost {
			c.Next()
			return
		}
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" {
			c.Next()
			return
		}
		if len(key) > maxLen || !pat.MatchString(key) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"request_id": c.Writer.Header().Get(requestIDHeader),
				"code":       "bad_idempotency_key",
				"message":    "invalid Idempotency-Key",
			})
			return
		}
		c.Set(ctxKeyIdemKey, key)
		if store == nil {
			c.Next()
			return
		}

		op := Operation(c)
		ctx := c.Request.Context()
		prev, err := store.Lookup(ctx, op, key, time.Now().UTC())
		if err != nil {
			LoggerFrom(c).Warn().Err(err).Str("operation", op).Msg("idempotency lookup failed")
		}
		if prev != nil {
			c.Set(ctxKeyIdemReplay, true)
			idemReplays.WithLabelValues(op).Inc()
			c.Header(HeaderIdempotentReplay, "true")
			c.Data(prev.Status, "application/json; charset=utf-8", prev.Body)
			c.Abort()
			return
		}

		rec := &recordingWriter{ResponseWriter: c.Writer, limit: maxBody}
		c.Writer = rec
		c.Next()
		c.Writer = rec.ResponseWriter

		status := rec.Status()
		if status < 200 || status >= 300 || rec.overflow {
			return
		}
		if err := store.Save(ctx, op, key, status, rec.buf.Bytes()); err != nil {
			LoggerFrom(c).Warn().Err(err).Str("operation", op).Msg("idempotency record not saved")
		}
	}
}

// recordingWriter tees the response body into buf up to limit bytes.
type recordingWriter struct {
	gin.ResponseWriter
	buf      bytes.Buffer
	limit    int
	overflow bool
}

func (w *recordingWriter) Write(b []byte) (int, error) {
	w.tee(b)
	return w.ResponseWriter.Write(b)
}

func (w *recordingWriter) WriteString(s string) (int, error) {
	w.tee([]byte(s))
	return w.ResponseWriter.WriteString(s)
}

func (w *recordingWriter) tee(b []byte) {
	if w.overflow {
		return
	}
	if w.buf.Len()+len(b) > w.limit {
		w.overflow = true
		w.buf.Reset()
		return
	}
	w.buf.Write(b)
}
