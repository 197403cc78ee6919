// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for ConsentRecord.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/goaguide/go-trip-backend/internal/domain"
)

// CreateConsent inserts a consent record for a trip. The generated record ID
// is the consent token returned to the caller. A nil ttl pointer means the
// grant is open-ended.
func CreateConsent(ctx context.Context, db *gorm.DB, tripID string, categories []string, ttl *time.Duration) (*domain.ConsentRecord, error) {
	now := time.Now().UTC()
	rec := &domain.ConsentRecord{
		ID:         uuid.NewString(),
		TripID:     tripID,
		Categories: categories,
		GrantedAt:  now,
		CreatedAt:  now,
	}
	if ttl != nil {
		exp := now.Add(*ttl)
		rec.ExpiresAt = &exp
	}
	if err := db.WithContext(ctx).Create(rec).Error; err != nil {
		return nil, err
	}
	return rec, nil
}

// GetConsent fetches a consent record by token ID, or ErrNotFound.
func GetConsent(ctx context.Context, db *gorm.DB, tokenID string) (*domain.ConsentRecord, error) {
	var rec domain.ConsentRecord
	if err := db.WithContext(ctx).Where("id = ?", tokenID).First(&rec).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

// RevokeConsent stamps revoked_at on a consent record that has not been
// revoked yet. Revoking twice is a no-op surfaced as ErrNotFound, so the
// caller can distinguish "already revoked" from a successful revocation.
func RevokeConsent(ctx context.Context, db *gorm.DB, tokenID string, now time.Time) error {
	res := db.WithContext(ctx).
		Model(&domain.ConsentRecord{}).
		Where("id = ? AND revoked_at IS NULL", tokenID).
		Update("revoked_at", now)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListConsents returns every consent record for a trip, newest first.
func ListConsents(ctx context.Context, db *gorm.DB, tripID string) ([]domain.ConsentRecord, error) {
	var out []domain.ConsentRecord
	err := db.WithContext(ctx).
		Where("trip_id = ?", tripID).
		Order("granted_at desc").
		Find(&out).Error
	return out, err
}

// CountActiveConsents returns how many unrevoked, unexpired consent records
// reference the trip at the given instant. The pii_shared flag on the trip
// must be true exactly when this count is positive.
func CountActiveConsents(ctx context.Context, db *gorm.DB, tripID string, now time.Time) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.ConsentRecord{}).
		Where("trip_id = ? AND revoked_at IS NULL AND (expires_at IS NULL OR expires_at > ?)", tripID, now).
		Count(&total).Error
	return total, err
}
