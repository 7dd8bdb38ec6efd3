package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/avolkov/sentryfleet/internal/audit"
	"github.com/avolkov/sentryfleet/internal/infrastructure/database"
	_ "github.com/avolkov/sentryfleet/migrations"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	db, err := database.Open(database.Config{
		Path:        filepath.Join(t.TempDir(), "history.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("running migrations: %v", err)
	}
	return NewStore(db)
}

func testSubject(id string) audit.Subject {
	return audit.Subject{
		SystemID:       id,
		Location:       "Кухня",
		SecurityMode:   "Дома",
		Armed:          true,
		BatteryLevel:   90,
		SignalStrength: 4,
	}
}

func TestRecordAndQueryHistory(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := store.RecordEvent(testSubject("H1"), audit.EventSystemArmed, "test"); err != nil {
			t.Fatalf("RecordEvent() error = %v", err)
		}
	}
	if err := store.RecordEvent(testSubject("H2"), audit.EventSystemDisarmed, ""); err != nil {
		t.Fatalf("RecordEvent() error = %v", err)
	}

	entries, err := store.History(ctx, "H1", 10)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}
	for _, entry := range entries {
		if entry.SystemID != "H1" {
			t.Errorf("SystemID = %q, want H1", entry.SystemID)
		}
		if entry.EventType != string(audit.EventSystemArmed) {
			t.Errorf("EventType = %q, want SYSTEM_ARMED", entry.EventType)
		}
		if entry.State.BatteryLevel != 90 || !entry.State.Armed {
			t.Errorf("state snapshot mismatch: %+v", entry.State)
		}
		if entry.CreatedAt.IsZero() {
			t.Error("CreatedAt is zero")
		}
	}

	all, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(all) != 4 {
		t.Errorf("Recent() returned %d entries, want 4", len(all))
	}
}

func TestHistoryLimitClamped(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.RecordEvent(testSubject("H1"), audit.EventStateUpdate, ""); err != nil {
		t.Fatalf("RecordEvent() error = %v", err)
	}

	// Zero and oversized limits fall back to bounds rather than erroring.
	if _, err := store.History(ctx, "H1", 0); err != nil {
		t.Errorf("History(limit=0) error = %v", err)
	}
	if _, err := store.History(ctx, "H1", 10000); err != nil {
		t.Errorf("History(limit=10000) error = %v", err)
	}
}

func TestRecordEventRequiresSystemID(t *testing.T) {
	store := newTestStore(t)

	if err := store.RecordEvent(audit.Subject{}, audit.EventInfo, ""); err == nil {
		t.Fatal("RecordEvent() error = nil, want error for empty system id")
	}
}

func TestPrune(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.RecordEvent(testSubject("H1"), audit.EventInfo, ""); err != nil {
		t.Fatalf("RecordEvent() error = %v", err)
	}

	// A generous retention keeps the fresh row.
	deleted, err := store.Prune(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if deleted != 0 {
		t.Errorf("Prune() deleted %d rows, want 0", deleted)
	}

	if _, err := store.Prune(ctx, 0); err == nil {
		t.Error("Prune(0) error = nil, want error")
	}
}
