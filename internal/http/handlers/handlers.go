// Package handlers exposes the notice workflow over HTTP. Handlers are
// transport-thin: they validate input, call a service and translate the
// result (or error) into a response.
package handlers

import (
	"context"
	"io"
	"time"

	"github.com/tbourn/notice-escalator/internal/domain"
	"github.com/tbourn/notice-escalator/internal/services"
)

// CaseReader serves case lookups and listings.
type CaseReader interface {
	Get(ctx context.Context, id string) (*services.CaseView, error)
	ListPage(ctx context.Context, q services.CaseQuery, page, pageSize int) ([]domain.Case, int64, error)
	Stats(ctx context.Context, q services.CaseQuery) (int64, *time.Time, error)
	StateCounts(ctx context.Context) (map[domain.State]int64, error)
}

// Workflow runs the time-triggered lifecycle scans.
type Workflow interface {
	SendPendingWarnings(ctx context.Context) (services.Summary, error)
	RunFollowUpScan(ctx context.Context) (services.Summary, error)
	RunEscalationScan(ctx context.Context) (services.Summary, error)
}

// ReplyCorrelator matches inbound replies to open cases.
type ReplyCorrelator interface {
	Correlate(ctx context.Context, sender, body string) (services.Correlation, error)
	ProcessInbox(ctx context.Context) (services.InboxSummary, error)
}

// Ingester flags content records into cases.
type Ingester interface {
	IngestBatch(ctx context.Context, b services.Batch) (services.IngestSummary, error)
	IngestCSV(ctx context.Context, r io.Reader) (services.IngestSummary, error)
}

// RequestGenerator creates and lists legal requests.
type RequestGenerator interface {
	Generate(ctx context.Context, in services.RequestInput) (*domain.LegalRequest, error)
	List(ctx context.Context, caseID string, page, pageSize int) ([]domain.LegalRequest, error)
}

// DocumentReader serves generated PDFs.
type DocumentReader interface {
	Open(ctx context.Context, ref string) (io.ReadCloser, error)
	List(ctx context.Context) ([]string, error)
}

// Deps bundles the services a Handlers needs. All members are required.
type Deps struct {
	Cases     CaseReader
	Workflow  Workflow
	Replies   ReplyCorrelator
	Ingest    Ingester
	Requests  RequestGenerator
	Documents DocumentReader
}

// Handlers groups the HTTP endpoints.
type Handlers struct {
	cases    CaseReader
	workflow Workflow
	replies  ReplyCorrelator
	ingest   Ingester
	requests RequestGenerator
	docs     DocumentReader
}

// New constructs Handlers bound to d.
func New(d Deps) *Handlers {
	return &Handlers{
		cases:    d.Cases,
		workflow: d.Workflow,
		replies:  d.Replies,
		ingest:   d.Ingest,
		requests: d.Requests,
		docs:     d.Documents,
	}
}

// Pagination carries paging metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}
