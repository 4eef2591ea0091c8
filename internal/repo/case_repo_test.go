package repo

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/notice-escalator/internal/domain"
)

func newCaseRepoDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("case_repo_test_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db.DB(): %v", err)
	}
	// A single connection serializes writers the way SQLite would anyway and
	// keeps the race tests free of SQLITE_BUSY noise.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(&domain.Case{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func seedCase(t *testing.T, db *gorm.DB, source string, state domain.State, entered time.Time) *domain.Case {
	t.Helper()
	c := &domain.Case{
		SourceID:          source,
		SubjectIdentifier: "user-" + source,
		ContactAddress:    source + "@example.com",
		ContentSnapshot:   "crypto",
		SuspicionScore:    1,
		State:             state,
		StateEnteredAt:    entered,
		FlaggedAt:         entered,
	}
	created, err := CreateCase(context.Background(), db, c)
	if err != nil || !created {
		t.Fatalf("seed case %s: created=%v err=%v", source, created, err)
	}
	return c
}

func TestCreateCase_DefaultsAndDedup(t *testing.T) {
	db := newCaseRepoDB(t)
	ctx := context.Background()

	c := &domain.Case{SourceID: "msg-1", ContactAddress: "  Alice@Example.COM ", ContentSnapshot: "bitcoin", SuspicionScore: 1}
	created, err := CreateCase(ctx, db, c)
	if err != nil || !created {
		t.Fatalf("CreateCase: created=%v err=%v", created, err)
	}
	if c.ID == "" || c.State != domain.StatePending || c.FlaggedAt.IsZero() || !c.StateEnteredAt.Equal(c.FlaggedAt) {
		t.Fatalf("defaults not applied: %+v", c)
	}
	if c.ContactAddress != "alice@example.com" {
		t.Fatalf("contact address not normalized: %q", c.ContactAddress)
	}

	again := &domain.Case{SourceID: "msg-1", ContactAddress: "other@example.com", ContentSnapshot: "casino", SuspicionScore: 1}
	created, err = CreateCase(ctx, db, again)
	if err != nil {
		t.Fatalf("duplicate CreateCase returned error: %v", err)
	}
	if created {
		t.Fatalf("duplicate source id must not create a second case")
	}

	n, err := CountCases(ctx, db, CaseFilter{})
	if err != nil || n != 1 {
		t.Fatalf("expected exactly 1 case, got n=%d err=%v", n, err)
	}
}

func TestGetCase_NotFound(t *testing.T) {
	db := newCaseRepoDB(t)
	if _, err := GetCase(context.Background(), db, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFindCases_FilterAndOrder(t *testing.T) {
	db := newCaseRepoDB(t)
	ctx := context.Background()
	t0 := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	old := seedCase(t, db, "a", domain.StateWarned, t0)
	seedCase(t, db, "b", domain.StateWarned, t0.Add(10*time.Hour))
	seedCase(t, db, "c", domain.StatePending, t0)
	responded := seedCase(t, db, "d", domain.StateWarned, t0)
	if ok, err := ConditionalUpdate(ctx, db, responded.ID, domain.StateWarned, CaseUpdate{State: domain.StateResponded, EnteredAt: t0.Add(time.Hour)}); !ok || err != nil {
		t.Fatalf("mark responded: ok=%v err=%v", ok, err)
	}

	cutoff := t0.Add(5 * time.Hour)
	got, err := FindCases(ctx, db, CaseFilter{
		States:            []domain.State{domain.StateWarned},
		EnteredAtOrBefore: &cutoff,
		Responded:         Bool(false),
	})
	if err != nil {
		t.Fatalf("FindCases: %v", err)
	}
	if len(got) != 1 || got[0].ID != old.ID {
		t.Fatalf("expected only case a, got %+v", got)
	}

	all, err := FindCases(ctx, db, CaseFilter{States: domain.OpenStates, Order: NewestFirst})
	if err != nil {
		t.Fatalf("FindCases newest: %v", err)
	}
	if len(all) != 3 || all[0].SourceID != "b" {
		t.Fatalf("expected b first among 3 open cases, got %+v", all)
	}

	byAddr, err := FindCases(ctx, db, CaseFilter{ContactAddress: " A@EXAMPLE.com"})
	if err != nil || len(byAddr) != 1 || byAddr[0].SourceID != "a" {
		t.Fatalf("address filter must be case-insensitive, got %+v err=%v", byAddr, err)
	}

	page, err := FindCases(ctx, db, CaseFilter{Offset: 1, Limit: 2})
	if err != nil || len(page) != 2 {
		t.Fatalf("expected a page of 2, got %d err=%v", len(page), err)
	}
}

func TestConditionalUpdate_AdvancesOnceAndRejectsStale(t *testing.T) {
	db := newCaseRepoDB(t)
	ctx := context.Background()
	t0 := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	c := seedCase(t, db, "x", domain.StatePending, t0)

	ok, err := ConditionalUpdate(ctx, db, c.ID, domain.StatePending, CaseUpdate{State: domain.StateWarned, EnteredAt: t0.Add(time.Minute)})
	if err != nil || !ok {
		t.Fatalf("first update: ok=%v err=%v", ok, err)
	}
	ok, err = ConditionalUpdate(ctx, db, c.ID, domain.StatePending, CaseUpdate{State: domain.StateWarned, EnteredAt: t0.Add(2 * time.Minute)})
	if err != nil || ok {
		t.Fatalf("stale update must be a silent no-op: ok=%v err=%v", ok, err)
	}

	got, _ := GetCase(ctx, db, c.ID)
	if got.State != domain.StateWarned || !got.StateEnteredAt.Equal(t0.Add(time.Minute)) {
		t.Fatalf("unexpected case after updates: %+v", got)
	}
}

func TestConditionalUpdate_RefusesIllegalAndInconsistent(t *testing.T) {
	db := newCaseRepoDB(t)
	ctx := context.Background()
	t0 := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	c := seedCase(t, db, "y", domain.StatePending, t0)

	if _, err := ConditionalUpdate(ctx, db, c.ID, domain.StatePending, CaseUpdate{State: domain.StateEscalated, EnteredAt: t0, EscalationDocumentRef: "doc.pdf"}); !errors.Is(err, domain.ErrIllegalTransition) {
		t.Fatalf("pending -> escalated must be illegal, got %v", err)
	}
	if _, err := ConditionalUpdate(ctx, db, c.ID, domain.StatePending, CaseUpdate{State: domain.StateWarned}); !errors.Is(err, ErrInvalidUpdate) {
		t.Fatalf("missing time must be invalid, got %v", err)
	}
	if _, err := ConditionalUpdate(ctx, db, c.ID, domain.StatePending, CaseUpdate{State: domain.StateWarned, EnteredAt: t0, EscalationDocumentRef: "doc.pdf"}); !errors.Is(err, ErrInvalidUpdate) {
		t.Fatalf("document ref outside escalation must be invalid, got %v", err)
	}

	// Moving state_entered_at backwards is rejected by the guard.
	ok, err := ConditionalUpdate(ctx, db, c.ID, domain.StatePending, CaseUpdate{State: domain.StateWarned, EnteredAt: t0.Add(-time.Hour)})
	if err != nil || ok {
		t.Fatalf("backwards timestamp must not apply: ok=%v err=%v", ok, err)
	}
}

func TestConditionalUpdate_EscalationAndResponseFields(t *testing.T) {
	db := newCaseRepoDB(t)
	ctx := context.Background()
	t0 := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	esc := seedCase(t, db, "e", domain.StateFollowedUp, t0)
	ok, err := ConditionalUpdate(ctx, db, esc.ID, domain.StateFollowedUp, CaseUpdate{State: domain.StateEscalated, EnteredAt: t0.Add(24 * time.Hour), EscalationDocumentRef: "crpc_1.pdf"})
	if err != nil || !ok {
		t.Fatalf("escalate: ok=%v err=%v", ok, err)
	}
	got, _ := GetCase(ctx, db, esc.ID)
	if got.State != domain.StateEscalated || got.EscalationDocumentRef != "crpc_1.pdf" {
		t.Fatalf("escalation fields not written: %+v", got)
	}

	r := seedCase(t, db, "r", domain.StateWarned, t0)
	at := t0.Add(3 * time.Hour)
	ok, err = ConditionalUpdate(ctx, db, r.ID, domain.StateWarned, CaseUpdate{State: domain.StateResponded, EnteredAt: at, ReplyExcerpt: "sorry"})
	if err != nil || !ok {
		t.Fatalf("respond: ok=%v err=%v", ok, err)
	}
	got, _ = GetCase(ctx, db, r.ID)
	if !got.Responded || got.RespondedAt == nil || !got.RespondedAt.Equal(at) || got.ReplyExcerpt != "sorry" || got.EscalationDocumentRef != "" {
		t.Fatalf("response fields not written: %+v", got)
	}
}

func TestConditionalUpdate_ConcurrentWritersExactlyOneWins(t *testing.T) {
	db := newCaseRepoDB(t)
	ctx := context.Background()
	t0 := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	c := seedCase(t, db, "race", domain.StateWarned, t0)

	const writers = 16
	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// Half race to follow up, half race to record a reply.
			u := CaseUpdate{State: domain.StateFollowedUp, EnteredAt: t0.Add(48 * time.Hour)}
			if i%2 == 1 {
				u = CaseUpdate{State: domain.StateResponded, EnteredAt: t0.Add(48 * time.Hour), ReplyExcerpt: "hi"}
			}
			ok, err := ConditionalUpdate(ctx, db, c.ID, domain.StateWarned, u)
			if err != nil {
				t.Errorf("writer %d: %v", i, err)
				return
			}
			if ok {
				wins.Add(1)
			}
		}(i)
	}
	wg.Wait()

	if wins.Load() != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins.Load())
	}
}

func TestStateCountsAndStats(t *testing.T) {
	db := newCaseRepoDB(t)
	ctx := context.Background()
	t0 := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	if n, ts, err := CasesStats(ctx, db, CaseFilter{}); err != nil || n != 0 || ts != nil {
		t.Fatalf("empty stats: n=%d ts=%v err=%v", n, ts, err)
	}

	seedCase(t, db, "p1", domain.StatePending, t0)
	seedCase(t, db, "p2", domain.StatePending, t0)
	seedCase(t, db, "w1", domain.StateWarned, t0)

	counts, err := StateCounts(ctx, db)
	if err != nil {
		t.Fatalf("StateCounts: %v", err)
	}
	if counts[domain.StatePending] != 2 || counts[domain.StateWarned] != 1 || counts[domain.StateEscalated] != 0 {
		t.Fatalf("unexpected counts: %v", counts)
	}

	n, ts, err := CasesStats(ctx, db, CaseFilter{States: []domain.State{domain.StatePending}})
	if err != nil || n != 2 || ts == nil {
		t.Fatalf("pending stats: n=%d ts=%v err=%v", n, ts, err)
	}
}
