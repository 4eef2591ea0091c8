// Package config provides application configuration loaded from environment
// variables with defaults and validation. It covers the HTTP server, storage,
// the workflow windows, outbound and inbound mail, document storage, the
// scheduler and observability.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "notice-escalator")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// WorkflowConfig holds the lifecycle windows and flagging settings.
type WorkflowConfig struct {
	FollowUpAfter      time.Duration // FOLLOWUP_AFTER, warned -> followed_up
	EscalateAfter      time.Duration // ESCALATE_AFTER, followed_up -> escalated
	SuspicionThreshold int           // SUSPICION_THRESHOLD
	KeywordsFile       string        // KEYWORDS_FILE, optional YAML override
	ReplyExcerptMax    int           // REPLY_EXCERPT_MAX, characters
	ScanBatchSize      int           // SCAN_BATCH_SIZE
	Signature          string        // NOTICE_SIGNATURE
}

// SchedulerConfig controls the in-process periodic triggers.
type SchedulerConfig struct {
	Enabled          bool
	WarnInterval     time.Duration
	FollowUpInterval time.Duration
	EscalateInterval time.Duration
	RepliesInterval  time.Duration
}

// SMTPConfig configures outbound mail.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Timeout  time.Duration
}

// IMAPConfig configures inbound reply polling. An empty Addr disables it.
type IMAPConfig struct {
	Addr     string
	Username string
	Password string
	Mailbox  string
}

// DocumentConfig selects where generated PDFs are kept.
type DocumentConfig struct {
	Store      string // local|gcs
	OutputsDir string
	GCSBucket  string
	GCSPrefix  string

	// GCSCredentialsFile is a service account key; empty uses application
	// default credentials.
	GCSCredentialsFile string
}

// OfficerConfig holds the officer details stamped on escalated requests.
type OfficerConfig struct {
	Name          string
	Designation   string
	PoliceStation string
	ContactInfo   string
	DateRange     string
	CasePurpose   string
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	MaxBodyBytes      int64         // request body cap, CSV uploads included
	GinMode           string        // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes

	// Storage
	DBPath string // SQLite path

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Idempotency
	IdempotencyTTL time.Duration // how long a given Idempotency-Key is valid

	// Workflow
	Workflow  WorkflowConfig
	Scheduler SchedulerConfig
	SMTP      SMTPConfig
	IMAP      IMAPConfig
	Documents DocumentConfig
	Officer   OfficerConfig

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 120*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		MaxBodyBytes:      int64(getint("MAX_BODY_BYTES", 10<<20)),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging / Docs
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		// Storage
		DBPath: getenv("DB_PATH", "notices.db"),

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Idempotency
		IdempotencyTTL: getdur("IDEMPOTENCY_TTL", 24*time.Hour),

		Workflow: WorkflowConfig{
			FollowUpAfter:      getdur("FOLLOWUP_AFTER", 48*time.Hour),
			EscalateAfter:      getdur("ESCALATE_AFTER", 24*time.Hour),
			SuspicionThreshold: getint("SUSPICION_THRESHOLD", 1),
			KeywordsFile:       getenv("KEYWORDS_FILE", ""),
			ReplyExcerptMax:    getint("REPLY_EXCERPT_MAX", 1000),
			ScanBatchSize:      getint("SCAN_BATCH_SIZE", 500),
			Signature:          getenv("NOTICE_SIGNATURE", "Cyber Monitoring Unit"),
		},
		Scheduler: SchedulerConfig{
			Enabled:          getbool("SCHEDULER_ENABLED", false),
			WarnInterval:     getdur("WARN_INTERVAL", 15*time.Minute),
			FollowUpInterval: getdur("FOLLOWUP_INTERVAL", time.Hour),
			EscalateInterval: getdur("ESCALATE_INTERVAL", time.Hour),
			RepliesInterval:  getdur("REPLIES_INTERVAL", 5*time.Minute),
		},
		SMTP: SMTPConfig{
			Host:     getenv("SMTP_HOST", "smtp.gmail.com"),
			Port:     getint("SMTP_PORT", 465),
			Username: os.Getenv("SMTP_USERNAME"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     getenv("MAIL_FROM", os.Getenv("SMTP_USERNAME")),
			Timeout:  getdur("SMTP_TIMEOUT", 30*time.Second),
		},
		IMAP: IMAPConfig{
			Addr:     getenv("IMAP_ADDR", ""),
			Username: getenv("IMAP_USERNAME", os.Getenv("SMTP_USERNAME")),
			Password: getenv("IMAP_PASSWORD", os.Getenv("SMTP_PASSWORD")),
			Mailbox:  getenv("IMAP_MAILBOX", "INBOX"),
		},
		Documents: DocumentConfig{
			Store:      strings.ToLower(getenv("DOCUMENT_STORE", "local")),
			OutputsDir: getenv("OUTPUTS_DIR", "outputs"),
			GCSBucket:  getenv("GCS_BUCKET", ""),
			GCSPrefix:  getenv("GCS_PREFIX", ""),

			GCSCredentialsFile: getenv("GCS_CREDENTIALS_FILE", ""),
		},
		Officer: OfficerConfig{
			Name:          getenv("OFFICER_NAME", "Inspector General"),
			Designation:   getenv("OFFICER_DESIGNATION", "Cyber Cell"),
			PoliceStation: getenv("OFFICER_STATION", "Hyderabad HQ"),
			ContactInfo:   getenv("OFFICER_CONTACT", "cybercell@hyderabadpolice.gov.in"),
			DateRange:     getenv("ESCALATION_DATE_RANGE", "Last 30 days"),
			CasePurpose:   getenv("ESCALATION_PURPOSE", "Legal investigation of flagged cyber activity"),
		},

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "notice-escalator"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	if cfg.MaxBodyBytes <= 0 {
		return cfg, errors.New("MAX_BODY_BYTES must be > 0")
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		return cfg, errors.New("DB_PATH must not be empty")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.IdempotencyTTL <= 0 {
		return cfg, errors.New("IDEMPOTENCY_TTL must be > 0")
	}
	if err := cfg.Workflow.validate(); err != nil {
		return cfg, err
	}
	if cfg.SMTP.Port <= 0 || cfg.SMTP.Port > 65535 {
		return cfg, errors.New("SMTP_PORT must be a valid port")
	}
	switch cfg.Documents.Store {
	case "local":
		if strings.TrimSpace(cfg.Documents.OutputsDir) == "" {
			return cfg, errors.New("OUTPUTS_DIR must not be empty")
		}
	case "gcs":
		if strings.TrimSpace(cfg.Documents.GCSBucket) == "" {
			return cfg, errors.New("GCS_BUCKET is required when DOCUMENT_STORE=gcs")
		}
	default:
		return cfg, fmt.Errorf("DOCUMENT_STORE must be local or gcs, got %q", cfg.Documents.Store)
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

func (w WorkflowConfig) validate() error {
	if w.FollowUpAfter <= 0 || w.EscalateAfter <= 0 {
		return errors.New("FOLLOWUP_AFTER and ESCALATE_AFTER must be positive durations")
	}
	if w.SuspicionThreshold < 1 {
		return errors.New("SUSPICION_THRESHOLD must be >= 1")
	}
	if w.ReplyExcerptMax < 1 {
		return errors.New("REPLY_EXCERPT_MAX must be >= 1")
	}
	if w.ScanBatchSize < 1 {
		return errors.New("SCAN_BATCH_SIZE must be >= 1")
	}
	return nil
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
