package services

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/goaguide/go-trip-backend/internal/domain"
	"github.com/goaguide/go-trip-backend/internal/repo"
)

// newServiceDB opens a throwaway file-backed SQLite database with the full
// schema. The pool is pinned to one connection so concurrent transactions
// serialize instead of failing with SQLITE_BUSY.
func newServiceDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("services_test_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
		t.Cleanup(func() { _ = sqlDB.Close() })
	}
	db.Exec("PRAGMA busy_timeout=5000;")

	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

// seedTrip creates a trip owned by userID starting 30 days out.
func seedTrip(t *testing.T, db *gorm.DB, userID string) *domain.Trip {
	t.Helper()
	svc := NewTripService(db)
	trip, err := svc.Create(context.Background(), userID, CreateTripInput{
		Destination:   "lisbon",
		StartDate:     time.Now().UTC().Add(30 * 24 * time.Hour),
		EndDate:       time.Now().UTC().Add(37 * 24 * time.Hour),
		AgeBracket:    "25-34",
		Gender:        "female",
		PartySize:     2,
		TripType:      "leisure",
		BudgetBracket: "mid",
	})
	if err != nil {
		t.Fatalf("seed trip: %v", err)
	}
	return trip
}

// seedConsent grants the demographics category for the trip.
func seedConsent(t *testing.T, db *gorm.DB, userID, tripID string) *domain.ConsentRecord {
	t.Helper()
	svc := NewTripService(db)
	rec, err := svc.GrantConsent(context.Background(), userID, tripID, []string{"demographics"}, nil)
	if err != nil {
		t.Fatalf("seed consent: %v", err)
	}
	return rec
}

// seedProvider inserts a KYC-verified, active provider.
func seedProvider(t *testing.T, db *gorm.DB) *domain.Provider {
	t.Helper()
	p, err := repo.CreateProvider(context.Background(), db, &domain.Provider{
		Name:      "Atlas Tours",
		KYCStatus: domain.KYCStatusVerified,
		Active:    true,
	})
	if err != nil {
		t.Fatalf("seed provider: %v", err)
	}
	return p
}

// seedAcceptedOffer walks a trip through consent, publish, submit, and accept,
// returning the accepted offer.
func seedAcceptedOffer(t *testing.T, db *gorm.DB, userID string) (*domain.Trip, *domain.Offer) {
	t.Helper()
	trip := seedTrip(t, db, userID)
	seedConsent(t, db, userID, trip.ID)
	provider := seedProvider(t, db)

	rfpSvc := NewRFPService(db)
	rfp, err := rfpSvc.Publish(context.Background(), userID, trip.ID, BudgetRange{Min: 50000, Max: 120000, Currency: "EUR"}, 0)
	if err != nil {
		t.Fatalf("seed publish: %v", err)
	}
	offer, err := rfpSvc.SubmitOffer(context.Background(), provider.ID, rfp.ID, OfferTerms{
		Price:      89900,
		Currency:   "EUR",
		Inclusions: []string{"hotel", "transfers"},
	})
	if err != nil {
		t.Fatalf("seed offer: %v", err)
	}
	accepted, _, err := rfpSvc.AcceptOffer(context.Background(), userID, offer.ID)
	if err != nil {
		t.Fatalf("seed accept: %v", err)
	}
	return trip, accepted
}

// auditRows returns the audit trail for one entity in write order.
func auditRows(t *testing.T, db *gorm.DB, entityType, entityID string) []domain.AuditLog {
	t.Helper()
	rows, err := repo.ListAuditByEntity(context.Background(), db, entityType, entityID, 0, 0)
	if err != nil {
		t.Fatalf("list audit: %v", err)
	}
	return rows
}
