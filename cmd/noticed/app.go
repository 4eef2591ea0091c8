package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"cloud.google.com/go/storage"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"
	"gorm.io/gorm"

	"github.com/tbourn/notice-escalator/internal/config"
	"github.com/tbourn/notice-escalator/internal/domain"
	"github.com/tbourn/notice-escalator/internal/flagger"
	"github.com/tbourn/notice-escalator/internal/http/handlers"
	"github.com/tbourn/notice-escalator/internal/mailbox"
	"github.com/tbourn/notice-escalator/internal/notify"
	"github.com/tbourn/notice-escalator/internal/observability"
	"github.com/tbourn/notice-escalator/internal/repo"
	"github.com/tbourn/notice-escalator/internal/services"
	"github.com/tbourn/notice-escalator/internal/sysutil"
)

var envFile string

// app is the wired process: storage, outbound mail, documents and the
// services built on top of them.
type app struct {
	cfg config.Config
	db  *gorm.DB
	log zerolog.Logger

	lifecycle  *services.LifecycleService
	correlator *services.Correlator
	ingest     *services.IngestService
	requests   *services.RequestService
	cases      *services.CaseService
	documents  notify.DocumentStore

	closers []func(context.Context) error
}

// newApp loads configuration and wires every dependency for the given
// process role.
func newApp(ctx context.Context, role string) (*app, error) {
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	sysutil.SetLogLevel(cfg.LogLevel)
	logger := sysutil.NewLogger(os.Stderr, cfg.LogPretty, role)
	log.Logger = logger

	a := &app{cfg: cfg, log: logger}
	if err := a.wire(ctx, role); err != nil {
		return nil, err
	}
	return a, nil
}

// wire opens storage and builds the services from a.cfg. On failure every
// resource acquired so far is released before returning.
func (a *app) wire(ctx context.Context, role string) (err error) {
	defer func() {
		if err != nil {
			a.close()
		}
	}()
	cfg, logger := a.cfg, a.log

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version, role)
	if err != nil {
		logger.Warn().Err(err).Msg("tracing disabled")
	} else {
		a.closers = append(a.closers, shutdownOTel)
	}

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", cfg.DBPath, err)
	}
	a.db = db
	a.closers = append(a.closers, func(context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	})
	if err := repo.AutoMigrate(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	keywords, threshold := flagger.DefaultKeywords, cfg.Workflow.SuspicionThreshold
	if cfg.Workflow.KeywordsFile != "" {
		kf, err := flagger.LoadKeywords(cfg.Workflow.KeywordsFile)
		if err != nil {
			return err
		}
		keywords = kf.Keywords
		if kf.Threshold > 0 {
			threshold = kf.Threshold
		}
	}

	docs, err := a.documentStore(ctx)
	if err != nil {
		return err
	}
	a.documents = docs

	dispatcher := &notify.Dispatcher{
		Transport: &notify.SMTPTransport{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
			Timeout:  cfg.SMTP.Timeout,
		},
		Renderer:  notify.NewPDFRenderer(),
		Store:     docs,
		Signature: cfg.Workflow.Signature,
		Officer: notify.Officer{
			Name:          cfg.Officer.Name,
			Designation:   cfg.Officer.Designation,
			PoliceStation: cfg.Officer.PoliceStation,
			ContactInfo:   cfg.Officer.ContactInfo,
			DateRange:     cfg.Officer.DateRange,
			CasePurpose:   cfg.Officer.CasePurpose,
		},
	}

	store := repo.CaseStore{DB: db}
	windows := domain.Windows{
		FollowUpAfter: cfg.Workflow.FollowUpAfter,
		EscalateAfter: cfg.Workflow.EscalateAfter,
	}

	a.requests = &services.RequestService{DB: db, Sender: dispatcher, Log: logger}
	a.lifecycle = &services.LifecycleService{
		Store:     store,
		Notifier:  dispatcher,
		Requests:  a.requests,
		Windows:   windows,
		BatchSize: cfg.Workflow.ScanBatchSize,
		Log:       logger,
	}
	a.correlator = &services.Correlator{
		Store:      store,
		ExcerptMax: cfg.Workflow.ReplyExcerptMax,
		Log:        logger,
	}
	if cfg.IMAP.Addr != "" {
		a.correlator.Mailbox = &mailbox.IMAPPoller{
			Addr:     cfg.IMAP.Addr,
			Username: cfg.IMAP.Username,
			Password: cfg.IMAP.Password,
			Mailbox:  cfg.IMAP.Mailbox,
			Timeout:  cfg.SMTP.Timeout,
			Log:      logger,
		}
	} else {
		logger.Info().Msg("IMAP_ADDR not set; reply polling disabled")
	}
	a.ingest = services.NewIngestService(store, flagger.NewKeywordScorer(keywords), threshold, logger)
	a.cases = &services.CaseService{DB: db, Windows: windows}
	return nil
}

func (a *app) documentStore(ctx context.Context) (notify.DocumentStore, error) {
	d := a.cfg.Documents
	if d.Store != "gcs" {
		return notify.LocalStore{Dir: d.OutputsDir}, nil
	}
	var opts []option.ClientOption
	if d.GCSCredentialsFile != "" {
		if _, err := os.Stat(d.GCSCredentialsFile); err != nil {
			return nil, fmt.Errorf("service account key %s: %w", d.GCSCredentialsFile, err)
		}
		opts = append(opts, option.WithCredentialsFile(d.GCSCredentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create GCS storage client: %w", err)
	}
	a.closers = append(a.closers, func(context.Context) error { return client.Close() })
	return notify.GCSStore{Client: client, Bucket: d.GCSBucket, Prefix: d.GCSPrefix}, nil
}

func (a *app) deps() handlers.Deps {
	return handlers.Deps{
		Cases:     a.cases,
		Workflow:  a.lifecycle,
		Replies:   a.correlator,
		Ingest:    a.ingest,
		Requests:  a.requests,
		Documents: a.documents,
	}
}

// close releases resources in reverse order of acquisition. It is safe to
// call more than once.
func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			a.log.Warn().Err(err).Msg("shutdown")
		}
	}
	a.closers = nil
}
