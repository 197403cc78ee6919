package repo

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/goaguide/go-trip-backend/internal/domain"
)

// newRepoDB opens a throwaway file-backed SQLite database and migrates the
// given models. Shared by every repo test file.
func newRepoDB(t *testing.T, migrate ...any) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("repo_test_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	// Ensure the file handle is released before TempDir cleanup (Windows needs this).
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	if len(migrate) > 0 {
		if err := db.AutoMigrate(migrate...); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

func mustCreateTrip(t *testing.T, db *gorm.DB, userID string) *domain.Trip {
	t.Helper()
	trip, err := CreateTrip(context.Background(), db, &domain.Trip{
		UserID:      userID,
		Destination: "Lisbon",
		StartDate:   time.Now().UTC().Add(30 * 24 * time.Hour),
		EndDate:     time.Now().UTC().Add(37 * 24 * time.Hour),
		PartySize:   2,
	})
	if err != nil {
		t.Fatalf("CreateTrip: %v", err)
	}
	return trip
}

func TestCreateTrip_SetsIDStatusAndTimestamps(t *testing.T) {
	db := newRepoDB(t, &domain.Trip{})

	start := time.Now().UTC().Add(-time.Minute)
	trip := mustCreateTrip(t, db, "u1")

	if trip.ID == "" {
		t.Fatal("expected generated ID")
	}
	if trip.Status != domain.TripStatusPlanning {
		t.Fatalf("Status = %q, want planning", trip.Status)
	}
	if trip.CreatedAt.Before(start) {
		t.Fatalf("CreatedAt not set: %v", trip.CreatedAt)
	}

	got, err := GetTrip(context.Background(), db, trip.ID)
	if err != nil {
		t.Fatalf("GetTrip: %v", err)
	}
	if got.UserID != "u1" || got.Destination != "Lisbon" {
		t.Fatalf("unexpected trip: %+v", got)
	}
}

func TestGetTrip_NotFound(t *testing.T) {
	db := newRepoDB(t, &domain.Trip{})
	if _, err := GetTrip(context.Background(), db, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestListTrips_FiltersByUserNewestFirst(t *testing.T) {
	db := newRepoDB(t, &domain.Trip{})

	a := mustCreateTrip(t, db, "u1")
	b := mustCreateTrip(t, db, "u1")
	_ = mustCreateTrip(t, db, "u2")

	// Force a deterministic order.
	db.Model(&domain.Trip{}).Where("id = ?", a.ID).Update("created_at", time.Now().UTC().Add(-time.Hour))

	out, err := ListTrips(context.Background(), db, "u1")
	if err != nil {
		t.Fatalf("ListTrips: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("len = %d, want 2", len(out))
	}
	if out[0].ID != b.ID || out[1].ID != a.ID {
		t.Fatalf("wrong order: %s, %s", out[0].ID, out[1].ID)
	}
}

func TestUpdateTripStatus_ConditionalOnCurrentState(t *testing.T) {
	db := newRepoDB(t, &domain.Trip{})
	trip := mustCreateTrip(t, db, "u1")

	if err := UpdateTripStatus(context.Background(), db, trip.ID, domain.TripStatusPlanning, domain.TripStatusReady); err != nil {
		t.Fatalf("UpdateTripStatus: %v", err)
	}

	// Stale expectation touches zero rows.
	err := UpdateTripStatus(context.Background(), db, trip.ID, domain.TripStatusPlanning, domain.TripStatusReady)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("stale update err = %v, want ErrNotFound", err)
	}

	got, _ := GetTrip(context.Background(), db, trip.ID)
	if got.Status != domain.TripStatusReady {
		t.Fatalf("Status = %q, want ready", got.Status)
	}
}

func TestSetTripPIIShared(t *testing.T) {
	db := newRepoDB(t, &domain.Trip{})
	trip := mustCreateTrip(t, db, "u1")

	if err := SetTripPIIShared(context.Background(), db, trip.ID, true); err != nil {
		t.Fatalf("SetTripPIIShared: %v", err)
	}
	got, _ := GetTrip(context.Background(), db, trip.ID)
	if !got.PIIShared {
		t.Fatal("pii_shared should be true")
	}

	if err := SetTripPIIShared(context.Background(), db, "missing", true); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing trip err = %v, want ErrNotFound", err)
	}
}

// --- consent ---

func TestCreateConsent_WithAndWithoutTTL(t *testing.T) {
	db := newRepoDB(t, &domain.Trip{}, &domain.ConsentRecord{})
	trip := mustCreateTrip(t, db, "u1")

	ttl := time.Hour
	withTTL, err := CreateConsent(context.Background(), db, trip.ID, []string{"demographics"}, &ttl)
	if err != nil {
		t.Fatalf("CreateConsent: %v", err)
	}
	if withTTL.ID == "" || withTTL.ExpiresAt == nil {
		t.Fatalf("expected token and expiry: %+v", withTTL)
	}
	if got := withTTL.ExpiresAt.Sub(withTTL.GrantedAt); got != time.Hour {
		t.Fatalf("expiry offset = %v, want 1h", got)
	}

	openEnded, err := CreateConsent(context.Background(), db, trip.ID, []string{"location"}, nil)
	if err != nil {
		t.Fatalf("CreateConsent open-ended: %v", err)
	}
	if openEnded.ExpiresAt != nil {
		t.Fatalf("open-ended grant should have nil expiry: %+v", openEnded.ExpiresAt)
	}
}

func TestRevokeConsent_SecondRevokeIsNotFound(t *testing.T) {
	db := newRepoDB(t, &domain.Trip{}, &domain.ConsentRecord{})
	trip := mustCreateTrip(t, db, "u1")
	rec, err := CreateConsent(context.Background(), db, trip.ID, []string{"demographics"}, nil)
	if err != nil {
		t.Fatalf("CreateConsent: %v", err)
	}

	now := time.Now().UTC()
	if err := RevokeConsent(context.Background(), db, rec.ID, now); err != nil {
		t.Fatalf("RevokeConsent: %v", err)
	}
	if err := RevokeConsent(context.Background(), db, rec.ID, now); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second revoke err = %v, want ErrNotFound", err)
	}

	got, _ := GetConsent(context.Background(), db, rec.ID)
	if got.RevokedAt == nil {
		t.Fatal("revoked_at should be set")
	}
}

func TestCountActiveConsents_IgnoresRevokedAndExpired(t *testing.T) {
	db := newRepoDB(t, &domain.Trip{}, &domain.ConsentRecord{})
	trip := mustCreateTrip(t, db, "u1")
	ctx := context.Background()

	live, _ := CreateConsent(ctx, db, trip.ID, []string{"demographics"}, nil)
	_ = live
	revoked, _ := CreateConsent(ctx, db, trip.ID, []string{"location"}, nil)
	if err := RevokeConsent(ctx, db, revoked.ID, time.Now().UTC()); err != nil {
		t.Fatalf("RevokeConsent: %v", err)
	}
	short := time.Nanosecond
	expired, _ := CreateConsent(ctx, db, trip.ID, []string{"preferences"}, &short)
	_ = expired

	n, err := CountActiveConsents(ctx, db, trip.ID, time.Now().UTC().Add(time.Second))
	if err != nil {
		t.Fatalf("CountActiveConsents: %v", err)
	}
	if n != 1 {
		t.Fatalf("active = %d, want 1", n)
	}
}
