// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Trip model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition. Ownership and state-machine rules are
// enforced one layer up, in services.
//
// Error semantics:
//   - When a trip is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/goaguide/go-trip-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer.
var ErrNotFound = gorm.ErrRecordNotFound

// CreateTrip inserts a new Trip row. The trip ID is a randomly generated
// UUID (string), status starts at planning, and CreatedAt is set to UTC.
func CreateTrip(ctx context.Context, db *gorm.DB, t *domain.Trip) (*domain.Trip, error) {
	t.ID = uuid.NewString()
	t.Status = domain.TripStatusPlanning
	t.CreatedAt = time.Now().UTC()
	if err := db.WithContext(ctx).Create(t).Error; err != nil {
		return nil, err
	}
	return t, nil
}

// GetTrip fetches a single trip by its ID. If the record does not exist, it
// returns ErrNotFound. On other DB errors, the raw error is returned.
func GetTrip(ctx context.Context, db *gorm.DB, id string) (*domain.Trip, error) {
	var t domain.Trip
	if err := db.WithContext(ctx).Where("id = ?", id).First(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

// ListTrips returns all trips belonging to userID, ordered by creation time
// descending (most recent first).
func ListTrips(ctx context.Context, db *gorm.DB, userID string) ([]domain.Trip, error) {
	var out []domain.Trip
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Find(&out).Error
	return out, err
}

// UpdateTripStatus moves a trip from one status to another with a conditional
// update: the row is touched only when it is still in the expected `from`
// state. Zero rows affected means the trip is missing or has moved on, and
// ErrNotFound is returned so the caller can decide whether that is a conflict.
func UpdateTripStatus(ctx context.Context, db *gorm.DB, id string, from, to domain.TripStatus) error {
	res := db.WithContext(ctx).
		Model(&domain.Trip{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetTripPIIShared records whether any active consent currently references
// the trip. Returns ErrNotFound when the trip does not exist.
func SetTripPIIShared(ctx context.Context, db *gorm.DB, id string, shared bool) error {
	res := db.WithContext(ctx).
		Model(&domain.Trip{}).
		Where("id = ?", id).
		Update("pii_shared", shared)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
