package repo

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/notice-escalator/internal/domain"
)

func TestOpenSQLite_ErrorOnBadPath(t *testing.T) {
	base := t.TempDir()
	bad := filepath.Join(base, "does-not-exist", "app.db")

	db, err := OpenSQLite(bad)
	if err == nil || db != nil {
		t.Fatalf("expected error opening %q, got db=%v err=%v", bad, db, err)
	}

	// Stat of the missing parent fails before the driver is touched; the
	// driver fallbacks cover platforms where it is not.
	lower := strings.ToLower(err.Error())
	if !(os.IsNotExist(err) ||
		strings.Contains(lower, "unable to open database file") ||
		strings.Contains(lower, "no such file or directory") ||
		strings.Contains(lower, "out of memory")) {
		t.Fatalf("unexpected error opening %q: %v", bad, err)
	}
}

func TestOpenSQLite_SetsPragmas_Pool_AndAutoMigrate(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "app.db")

	db, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db.DB(): %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })

	// --- Verify PRAGMAs set by OpenSQLite ---
	var (
		journalMode string
		syncVal     int
		fkOn        int
		busyMS      int
	)

	if err := db.Raw("PRAGMA journal_mode;").Row().Scan(&journalMode); err != nil {
		t.Fatalf("PRAGMA journal_mode: %v", err)
	}
	if strings.ToLower(journalMode) != "wal" {
		t.Fatalf("expected journal_mode=wal, got %q", journalMode)
	}

	if err := db.Raw("PRAGMA synchronous;").Row().Scan(&syncVal); err != nil {
		t.Fatalf("PRAGMA synchronous: %v", err)
	}
	// NORMAL == 1
	if syncVal != 1 {
		t.Fatalf("expected synchronous=1 (NORMAL), got %d", syncVal)
	}

	if err := db.Raw("PRAGMA foreign_keys;").Row().Scan(&fkOn); err != nil {
		t.Fatalf("PRAGMA foreign_keys: %v", err)
	}
	if fkOn != 1 {
		t.Fatalf("expected foreign_keys=1, got %d", fkOn)
	}

	if err := db.Raw("PRAGMA busy_timeout;").Row().Scan(&busyMS); err != nil {
		t.Fatalf("PRAGMA busy_timeout: %v", err)
	}
	if busyMS != 5000 {
		t.Fatalf("expected busy_timeout=5000, got %d", busyMS)
	}

	// --- Verify pool tuning applied ---
	if stats := sqlDB.Stats(); stats.MaxOpenConnections != 10 {
		t.Fatalf("expected MaxOpenConnections=10, got %d", stats.MaxOpenConnections)
	}

	if err := AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	m := db.Migrator()
	for _, tbl := range []any{&domain.Case{}, &domain.LegalRequest{}, &domain.Idempotency{}} {
		if !m.HasTable(tbl) {
			t.Fatalf("expected table for %T to exist", tbl)
		}
	}
	for _, idx := range []string{"ux_cases_source", "idx_cases_state_entered", "idx_cases_contact"} {
		if !m.HasIndex(&domain.Case{}, idx) {
			t.Fatalf("expected index %s on cases", idx)
		}
	}
}

func TestAutoMigrate_CaseConstraints(t *testing.T) {
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "constraints.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	sqlDB, _ := db.DB()
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}

	now := time.Now().UTC()
	newCase := func(id, source string, state domain.State, score int) *domain.Case {
		return &domain.Case{
			ID: id, SourceID: source, ContactAddress: "a@example.com", ContentSnapshot: "crypto",
			SuspicionScore: score, State: state, StateEnteredAt: now, FlaggedAt: now,
		}
	}

	if err := db.Create(newCase("c1", "s1", domain.StatePending, 1)).Error; err != nil {
		t.Fatalf("insert case: %v", err)
	}
	if err := db.Create(newCase("c2", "s1", domain.StatePending, 1)).Error; err == nil {
		t.Fatalf("second case for the same source must violate ux_cases_source")
	}
	if err := db.Create(newCase("c3", "s3", domain.State("archived"), 1)).Error; err == nil {
		t.Fatalf("unknown state must violate the state check")
	}
	if err := db.Create(newCase("c4", "s4", domain.StatePending, -1)).Error; err == nil {
		t.Fatalf("negative score must violate the score check")
	}

	var got domain.Case
	if err := db.First(&got, "id = ?", "c1").Error; err != nil {
		t.Fatalf("readback: %v", err)
	}
	if got.Responded || got.ReplyExcerpt != "" || got.EscalationDocumentRef != "" {
		t.Fatalf("defaults not applied: %+v", got)
	}
}

func TestOpenSQLite_PragmasOnEveryConnection(t *testing.T) {
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "pool.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	sqlDB, _ := db.DB()
	t.Cleanup(func() { _ = sqlDB.Close() })

	ctx := context.Background()
	var conns []*sql.Conn
	for i := 0; i < 3; i++ {
		c, err := sqlDB.Conn(ctx)
		if err != nil {
			t.Fatalf("conn %d: %v", i, err)
		}
		conns = append(conns, c)
	}
	for i, c := range conns {
		var busy int
		if err := c.QueryRowContext(ctx, "PRAGMA busy_timeout;").Scan(&busy); err != nil {
			t.Fatalf("conn %d: %v", i, err)
		}
		if busy != 5000 {
			t.Fatalf("conn %d: busy_timeout=%d, want 5000", i, busy)
		}
		_ = c.Close()
	}
}

// Compile-time guard to ensure signature stability.
var _ func(string) (*gorm.DB, error) = OpenSQLite
