package repo

import (
	"context"
	"testing"
	"time"

	"github.com/goaguide/go-trip-backend/internal/domain"
	"gorm.io/gorm"
)

func appendRow(t *testing.T, db *gorm.DB, eventType, entityType, entityID, actor, traceID string) *domain.AuditLog {
	t.Helper()
	entry := &domain.AuditLog{
		EventType:  eventType,
		EntityType: entityType,
		EntityID:   entityID,
		Actor:      actor,
		TraceID:    traceID,
		Before:     "null",
		After:      `{"status":"x"}`,
	}
	if err := AppendAudit(context.Background(), db, entry); err != nil {
		t.Fatalf("AppendAudit: %v", err)
	}
	return entry
}

func TestAppendAudit_SetsIDAndTimestamp(t *testing.T) {
	db := newRepoDB(t, &domain.AuditLog{})
	start := time.Now().UTC().Add(-time.Minute)

	entry := appendRow(t, db, domain.AuditTripCreated, "trip", "t1", "u1", "")
	if entry.ID == "" {
		t.Fatal("expected generated ID")
	}
	if entry.CreatedAt.Before(start) {
		t.Fatalf("CreatedAt not set: %v", entry.CreatedAt)
	}
}

func TestListAuditByEntity_ChronologicalWithPaging(t *testing.T) {
	db := newRepoDB(t, &domain.AuditLog{})
	ctx := context.Background()

	first := appendRow(t, db, domain.AuditTripCreated, "trip", "t1", "u1", "")
	second := appendRow(t, db, domain.AuditConsentGranted, "trip", "t1", "u1", "")
	third := appendRow(t, db, domain.AuditTripAdvanced, "trip", "t1", "u1", "")
	appendRow(t, db, domain.AuditTripCreated, "trip", "t2", "u1", "")

	// Pin distinct timestamps so ordering is deterministic.
	base := time.Now().UTC().Add(-time.Hour)
	for i, id := range []string{first.ID, second.ID, third.ID} {
		db.Model(&domain.AuditLog{}).Where("id = ?", id).Update("created_at", base.Add(time.Duration(i)*time.Second))
	}

	out, err := ListAuditByEntity(ctx, db, "trip", "t1", 0, 0)
	if err != nil {
		t.Fatalf("ListAuditByEntity: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("len = %d, want 3", len(out))
	}
	if out[0].ID != first.ID || out[1].ID != second.ID || out[2].ID != third.ID {
		t.Fatalf("wrong order: %+v", out)
	}

	page, err := ListAuditByEntity(ctx, db, "trip", "t1", 1, 1)
	if err != nil {
		t.Fatalf("paged list: %v", err)
	}
	if len(page) != 1 || page[0].ID != second.ID {
		t.Fatalf("unexpected page: %+v", page)
	}

	n, err := CountAuditByEntity(ctx, db, "trip", "t1")
	if err != nil || n != 3 {
		t.Fatalf("count = %d err = %v, want 3", n, err)
	}
}

func TestListAuditByActorAndTrace(t *testing.T) {
	db := newRepoDB(t, &domain.AuditLog{})
	ctx := context.Background()

	appendRow(t, db, domain.AuditTripCreated, "trip", "t1", "u1", "trace-a")
	appendRow(t, db, domain.AuditRFPPublished, "rfp", "r1", "u1", "trace-a")
	appendRow(t, db, domain.AuditBookingExpired, "booking", "b1", "system", "trace-b")

	byActor, err := ListAuditByActor(ctx, db, "u1", 0)
	if err != nil || len(byActor) != 2 {
		t.Fatalf("by actor: len = %d err = %v", len(byActor), err)
	}

	byTrace, err := ListAuditByTrace(ctx, db, "trace-a")
	if err != nil || len(byTrace) != 2 {
		t.Fatalf("by trace: len = %d err = %v", len(byTrace), err)
	}
	for _, row := range byTrace {
		if row.TraceID != "trace-a" {
			t.Fatalf("stray row: %+v", row)
		}
	}
}

func TestAuditStats(t *testing.T) {
	db := newRepoDB(t, &domain.AuditLog{})
	ctx := context.Background()

	count, lastAt, err := AuditStats(ctx, db, "trip", "none")
	if err != nil || count != 0 || lastAt != nil {
		t.Fatalf("empty stats: count=%d lastAt=%v err=%v", count, lastAt, err)
	}

	appendRow(t, db, domain.AuditTripCreated, "trip", "t1", "u1", "")
	appendRow(t, db, domain.AuditTripAdvanced, "trip", "t1", "u1", "")

	count, lastAt, err = AuditStats(ctx, db, "trip", "t1")
	if err != nil {
		t.Fatalf("AuditStats: %v", err)
	}
	if count != 2 || lastAt == nil {
		t.Fatalf("count=%d lastAt=%v", count, lastAt)
	}
}

// --- feature flags ---

func TestUpsertFlag_InsertThenUpdate(t *testing.T) {
	db := newRepoDB(t, &domain.FeatureFlag{})
	ctx := context.Background()

	if err := UpsertFlag(ctx, db, &domain.FeatureFlag{Name: domain.FlagAutoBooking, Enabled: false, Rollout: 100}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := UpsertFlag(ctx, db, &domain.FeatureFlag{Name: domain.FlagAutoBooking, Enabled: true, Rollout: 50}); err != nil {
		t.Fatalf("update: %v", err)
	}

	snap, err := LoadFlagSnapshot(ctx, db)
	if err != nil {
		t.Fatalf("LoadFlagSnapshot: %v", err)
	}
	f, ok := snap[domain.FlagAutoBooking]
	if !ok || !f.Enabled || f.Rollout != 50 {
		t.Fatalf("unexpected flag: %+v", f)
	}
}

func TestLoadFlagSnapshot_Empty(t *testing.T) {
	db := newRepoDB(t, &domain.FeatureFlag{})
	snap, err := LoadFlagSnapshot(context.Background(), db)
	if err != nil {
		t.Fatalf("LoadFlagSnapshot: %v", err)
	}
	if len(snap) != 0 {
		t.Fatalf("len = %d, want 0", len(snap))
	}
	if snap.EnabledFor(domain.FlagAutoBooking, "entity") {
		t.Fatal("missing flag must read as disabled")
	}
}
