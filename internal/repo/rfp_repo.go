// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the RFP model,
// including the conditional update that serializes offer acceptance.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/goaguide/go-trip-backend/internal/domain"
)

// CreateRFP inserts a new RFP row in active status.
func CreateRFP(ctx context.Context, db *gorm.DB, r *domain.RFP) (*domain.RFP, error) {
	r.ID = uuid.NewString()
	r.Status = domain.RFPStatusActive
	r.CreatedAt = time.Now().UTC()
	if err := db.WithContext(ctx).Create(r).Error; err != nil {
		return nil, err
	}
	return r, nil
}

// GetRFP fetches an RFP by ID, or ErrNotFound.
func GetRFP(ctx context.Context, db *gorm.DB, id string) (*domain.RFP, error) {
	var r domain.RFP
	if err := db.WithContext(ctx).Where("id = ?", id).First(&r).Error; err != nil {
		return nil, err
	}
	return &r, nil
}

// MarkRFPAccepted records the winning offer on an RFP and closes it. The
// update only fires while the RFP is still active and no offer has been
// accepted, which serializes concurrent acceptances: exactly one caller sees
// a row affected, every other caller gets ErrNotFound and must treat it as a
// conflict.
func MarkRFPAccepted(ctx context.Context, db *gorm.DB, rfpID, offerID string) error {
	res := db.WithContext(ctx).
		Model(&domain.RFP{}).
		Where("id = ? AND status = ? AND accepted_offer_id IS NULL", rfpID, domain.RFPStatusActive).
		Updates(map[string]any{
			"accepted_offer_id": offerID,
			"status":            domain.RFPStatusClosed,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListExpiredRFPs returns active RFPs whose deadline has passed, oldest
// first, capped at limit. Used by the background sweep.
func ListExpiredRFPs(ctx context.Context, db *gorm.DB, now time.Time, limit int) ([]domain.RFP, error) {
	var out []domain.RFP
	q := db.WithContext(ctx).
		Where("status = ? AND expires_at <= ?", domain.RFPStatusActive, now).
		Order("expires_at asc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}

// ExpireRFP transitions a single RFP from active to expired, conditionally.
// Zero rows affected means something else (an acceptance, a concurrent sweep)
// got there first; the caller treats that as a no-op.
func ExpireRFP(ctx context.Context, db *gorm.DB, id string, now time.Time) error {
	res := db.WithContext(ctx).
		Model(&domain.RFP{}).
		Where("id = ? AND status = ? AND expires_at <= ?", id, domain.RFPStatusActive, now).
		Update("status", domain.RFPStatusExpired)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
