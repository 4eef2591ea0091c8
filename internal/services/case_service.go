package services

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/notice-escalator/internal/domain"
	"github.com/tbourn/notice-escalator/internal/repo"
)

// NextTransition reports the time-triggered transition a case waits for.
type NextTransition struct {
	Kind  domain.TransitionKind `json:"kind"`
	To    domain.State          `json:"to"`
	DueAt time.Time             `json:"due_at"`
	Due   bool                  `json:"due"`
}

// CaseView is a case together with its pending transition, if any.
type CaseView struct {
	domain.Case
	Next *NextTransition `json:"next_transition,omitempty"`
}

// CaseQuery filters case listings.
type CaseQuery struct {
	State     domain.State
	Responded *bool
	Contact   string
}

func (q CaseQuery) filter() repo.CaseFilter {
	f := repo.CaseFilter{Responded: q.Responded, ContactAddress: q.Contact, Order: repo.NewestFirst}
	if q.State != "" {
		f.States = []domain.State{q.State}
	}
	return f
}

// CaseService exposes read access to cases for the HTTP layer.
type CaseService struct {
	DB      *gorm.DB
	Windows domain.Windows
	Now     func() time.Time
}

func (s *CaseService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Get returns one case with its next transition, or ErrCaseNotFound.
func (s *CaseService) Get(ctx context.Context, id string) (*CaseView, error) {
	tr := otel.Tracer("services/CaseService")
	ctx, span := tr.Start(ctx, "Get", trace.WithAttributes(attribute.String("case.id", id)))
	defer span.End()

	c, err := repo.GetCase(ctx, s.DB, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrCaseNotFound
	}
	if err != nil {
		return nil, err
	}
	v := &CaseView{Case: *c}
	lc := LifecycleService{Windows: s.Windows}
	if t, ok := lc.windows().TransitionFrom(c.State); ok && !c.Responded {
		v.Next = &NextTransition{
			Kind:  t.Kind,
			To:    t.To,
			DueAt: c.StateEnteredAt.Add(t.MinDwell).UTC(),
			Due:   t.Due(*c, s.now()),
		}
	}
	return v, nil
}

// ListPage returns cases matching q, newest transition first, and the total
// count.
func (s *CaseService) ListPage(ctx context.Context, q CaseQuery, page, pageSize int) ([]domain.Case, int64, error) {
	tr := otel.Tracer("services/CaseService")
	ctx, span := tr.Start(ctx, "ListPage",
		trace.WithAttributes(
			attribute.String("state", string(q.State)),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	f := q.filter()
	total, err := repo.CountCases(ctx, s.DB, f)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Case{}, 0, nil
	}
	f.Offset = (page - 1) * pageSize
	f.Limit = pageSize
	items, err := repo.FindCases(ctx, s.DB, f)
	return items, total, err
}

// Stats returns the count and latest update time of cases matching q, for
// ETag computation.
func (s *CaseService) Stats(ctx context.Context, q CaseQuery) (int64, *time.Time, error) {
	return repo.CasesStats(ctx, s.DB, q.filter())
}

// StateCounts returns the number of cases per lifecycle state.
func (s *CaseService) StateCounts(ctx context.Context) (map[domain.State]int64, error) {
	return repo.StateCounts(ctx, s.DB)
}
