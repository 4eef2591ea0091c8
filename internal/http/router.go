// Package httpapi wires the HTTP transport (Gin) to the workflow services,
// middleware and route handlers. It centralizes cross-cutting concerns:
// tracing, correlation IDs, redacted logging, panic recovery, metrics,
// compression, idempotent replay, rate limiting, CORS and security headers.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/notice-escalator/internal/config"
	"github.com/tbourn/notice-escalator/internal/http/handlers"
	"github.com/tbourn/notice-escalator/internal/http/middleware"
	"github.com/tbourn/notice-escalator/internal/repo"
)

// replayStore adapts the idempotency repository to middleware.ReplayStore.
type replayStore struct {
	db  *gorm.DB
	ttl time.Duration
}

// Lookup proxies repo.GetIdempotency; a miss is (nil, nil).
func (s replayStore) Lookup(ctx context.Context, operation, key string, now time.Time) (*middleware.StoredResponse, error) {
	rec, err := repo.GetIdempotency(ctx, s.db, operation, key, now)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &middleware.StoredResponse{Status: rec.Status, Body: []byte(rec.Body)}, nil
}

// Save proxies repo.CreateIdempotency. A concurrent request that stored the
// same key first wins; that is not an error.
func (s replayStore) Save(ctx context.Context, operation, key string, status int, body []byte) error {
	_, err := repo.CreateIdempotency(ctx, s.db, operation, key, status, string(body), s.ttl)
	if errors.Is(err, repo.ErrDuplicate) {
		return nil
	}
	return err
}

var corsMethods = []string{"GET", "POST", "OPTIONS"}
var corsHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderIdempotencyKey}
var corsExpose = []string{"X-Request-ID", "Content-Length", "ETag", middleware.HeaderIdempotentReplay}

// RegisterRoutes attaches middleware and endpoints to r and mounts the API
// under cfg.APIBasePath.
//
// Middleware order matters:
//  1. OpenTelemetry
//  2. RequestID
//  3. Logger (redacting)
//  4. Recovery
//  5. Body size limit
//  6. Metrics
//  7. Gzip (outside idempotency so replays store plain JSON)
//  8. Idempotency replay (before the limiter so replays cost no tokens)
//  9. Rate limiter
//  10. CORS and security headers
func RegisterRoutes(r *gin.Engine, db *gorm.DB, deps handlers.Deps, cfg config.Config) {
	r.HandleMethodNotAllowed = true
	api := cfg.APIBasePath

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(middleware.LogOptions{MaskHeaders: []string{"X-API-Key"}}))
	r.Use(middleware.Recovery())

	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = 10 << 20
	}
	r.Use(limitBody(maxBody))

	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{join(api, "/documents/")})))

	var store middleware.ReplayStore
	if db != nil {
		store = replayStore{db: db, ttl: cfg.IdempotencyTTL}
	}
	r.Use(middleware.Idempotency(middleware.IdempotencyOptions{MaxLen: 200}, store))

	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByClientIP(), "/health")
	r.Use(rl.Handler())

	if len(cfg.CORS.AllowedOrigins) == 0 {
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins: true,
			AllowMethods:    corsMethods,
			AllowHeaders:    corsHeaders,
			ExposeHeaders:   corsExpose,
			MaxAge:          12 * time.Hour,
		}))
	} else {
		r.Use(cors.New(cors.Config{
			AllowOrigins:  cfg.CORS.AllowedOrigins,
			AllowMethods:  corsMethods,
			AllowHeaders:  corsHeaders,
			ExposeHeaders: corsExpose,
			MaxAge:        12 * time.Hour,
		}))
	}

	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:      cfg.Security.EnableHSTS,
		HSTSMaxAge:      cfg.Security.HSTSMaxAge,
		NoStorePrefixes: []string{join(api, "/cases"), join(api, "/requests"), join(api, "/documents")},
		EnablePolicy:    true,
	}))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	r.GET("/health", health(db))

	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	h := handlers.New(deps)
	g := groupWithPrefix(r, api)
	{
		g.POST("/ingest", h.IngestJSON)
		g.POST("/ingest/csv", h.IngestCSV)

		g.POST("/workflow/warnings", h.RunWarnings)
		g.POST("/workflow/followups", h.RunFollowUps)
		g.POST("/workflow/escalations", h.RunEscalations)
		g.POST("/workflow/replies", h.ProcessReplies)
		g.POST("/replies", h.CorrelateReply)

		g.GET("/cases", h.ListCases)
		g.GET("/cases/stats", h.CaseStats)
		g.GET("/cases/:id", h.GetCase)

		g.POST("/requests", h.CreateRequest)
		g.GET("/requests", h.ListRequests)

		g.GET("/documents", h.ListDocuments)
		g.GET("/documents/:name", h.GetDocument)
	}
}

// health reports ok, or 503 when the database does not answer a ping.
func health(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if db != nil {
			sqlDB, err := db.DB()
			if err == nil {
				ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
				err = sqlDB.PingContext(ctx)
				cancel()
			}
			if err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// limitBody caps request bodies at maxBytes; larger reads fail downstream.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}

func join(base, path string) string {
	if base == "" || base == "/" {
		return path
	}
	return base + path
}
