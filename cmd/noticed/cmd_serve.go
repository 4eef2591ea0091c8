package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/tbourn/notice-escalator/docs"
	httpapi "github.com/tbourn/notice-escalator/internal/http"
	"github.com/tbourn/notice-escalator/internal/repo"
	"github.com/tbourn/notice-escalator/internal/scheduler"
)

var noScheduler bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API and run the periodic workflow triggers",
	Long: `Starts the HTTP API. With SCHEDULER_ENABLED=true the warning, follow-up,
escalation and reply triggers also run on their configured intervals in the
same process; --no-scheduler overrides that for API-only replicas.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&noScheduler, "no-scheduler", false, "serve the API only")
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, "serve")
	if err != nil {
		return err
	}
	defer a.close()
	cfg := a.cfg

	gin.SetMode(cfg.GinMode)
	docs.SwaggerInfo.BasePath = cfg.APIBasePath
	docs.SwaggerInfo.Version = version

	r := gin.New()
	httpapi.RegisterRoutes(r, a.db, a.deps(), cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.log.Info().Str("addr", srv.Addr).Str("base_path", cfg.APIBasePath).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.log.Info().Msg("shutting down http server")
		return srv.Shutdown(shutdownCtx)
	})
	if cfg.Scheduler.Enabled && !noScheduler {
		s := &scheduler.Scheduler{Jobs: a.jobs(), Log: a.log}
		g.Go(func() error { return s.Run(gctx) })
	}

	return g.Wait()
}

// jobs maps each workflow trigger onto its configured interval.
func (a *app) jobs() []scheduler.Job {
	sc := a.cfg.Scheduler
	jobs := []scheduler.Job{
		{Name: "warnings", Interval: sc.WarnInterval, Run: a.trigger("warnings")},
		{Name: "followups", Interval: sc.FollowUpInterval, Run: a.trigger("followups")},
		{Name: "escalations", Interval: sc.EscalateInterval, Run: a.trigger("escalations")},
		{Name: "idempotency-purge", Interval: time.Hour, Run: func(ctx context.Context) error {
			n, err := repo.PurgeExpiredIdempotency(ctx, a.db, time.Now())
			if err == nil && n > 0 {
				a.log.Debug().Int64("purged", n).Msg("expired idempotency records removed")
			}
			return err
		}},
	}
	if a.correlator.Mailbox != nil {
		jobs = append(jobs, scheduler.Job{Name: "replies", Interval: sc.RepliesInterval, Run: a.trigger("replies")})
	}
	return jobs
}
