package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/notice-escalator/internal/domain"
	"github.com/tbourn/notice-escalator/internal/notify"
	"github.com/tbourn/notice-escalator/internal/repo"
)

// ---------- test helpers ----------

var t0 = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

func newSvcDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("svc_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&domain.Case{}, &domain.LegalRequest{}))
	return db
}

// clock is a settable time source.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock(at time.Time) *clock { return &clock{now: at} }

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Set(at time.Time) {
	c.mu.Lock()
	c.now = at
	c.mu.Unlock()
}

// fakeNotifier records notifications and can fail per case.
type fakeNotifier struct {
	mu     sync.Mutex
	sent   []string // "kind:caseID"
	failOn map[string]bool
}

func (f *fakeNotifier) Notify(_ context.Context, c domain.Case, kind domain.TransitionKind) (notify.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn[c.ID] {
		return notify.Receipt{}, fmt.Errorf("%w: smtp down", notify.ErrDeliveryFailed)
	}
	f.sent = append(f.sent, string(kind)+":"+c.ID)
	r := notify.Receipt{Kind: kind, To: c.ContactAddress}
	if kind == domain.KindEscalation {
		id := c.ID
		r.DocumentRef = "crpc_" + c.ID + ".pdf"
		r.Request = &domain.LegalRequest{
			CaseID:            &id,
			OfficerName:       "Inspector General",
			Designation:       "Cyber Cell",
			PoliceStation:     "HQ",
			ContactInfo:       "cell@example.gov",
			CaseNumber:        "CASE-" + c.ID,
			Recipient:         c.SubjectIdentifier,
			RecipientEmail:    c.ContactAddress,
			SuspectIdentifier: c.SubjectIdentifier,
			DateRange:         "Last 30 days",
			DataRequested:     "All messages",
			CasePurpose:       "Investigation",
			DocumentRef:       r.DocumentRef,
		}
	}
	return r, nil
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func (f *fakeNotifier) setFail(id string, fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn == nil {
		f.failOn = map[string]bool{}
	}
	f.failOn[id] = fail
}

// racingStore wraps a store and lets a test run code right before a
// conditional update, simulating a concurrent writer.
type racingStore struct {
	CaseStore
	before func(id string, expected domain.State)
	once   sync.Once
}

func (r *racingStore) ConditionalUpdate(ctx context.Context, id string, expected domain.State, u repo.CaseUpdate) (bool, error) {
	r.once.Do(func() {
		if r.before != nil {
			r.before(id, expected)
		}
	})
	return r.CaseStore.ConditionalUpdate(ctx, id, expected, u)
}

// failingFind returns an error from Find.
type failingFind struct{ CaseStore }

var errStoreDown = errors.New("store down")

func (failingFind) Find(context.Context, repo.CaseFilter) ([]domain.Case, error) {
	return nil, errStoreDown
}

func seed(t *testing.T, db *gorm.DB, id, addr string, state domain.State, entered time.Time) *domain.Case {
	t.Helper()
	c := &domain.Case{
		ID:                id,
		SourceID:          "src-" + id,
		SubjectIdentifier: "user-" + id,
		ContactAddress:    addr,
		ContentSnapshot:   "Get rich with crypto and bitcoin!",
		SuspicionScore:    2,
		State:             state,
		StateEnteredAt:    entered,
		FlaggedAt:         entered,
	}
	created, err := repo.CreateCase(context.Background(), db, c)
	require.NoError(t, err)
	require.True(t, created)
	return c
}

func mustGet(t *testing.T, db *gorm.DB, id string) *domain.Case {
	t.Helper()
	c, err := repo.GetCase(context.Background(), db, id)
	require.NoError(t, err)
	return c
}

func newLifecycle(db *gorm.DB, n Notifier, clk *clock) *LifecycleService {
	return &LifecycleService{
		Store:    repo.CaseStore{DB: db},
		Notifier: n,
		Requests: &RequestService{DB: db},
		Windows:  domain.DefaultWindows,
		Now:      clk.Now,
		Log:      zerolog.Nop(),
	}
}
