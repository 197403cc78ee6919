// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Offer model.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/goaguide/go-trip-backend/internal/domain"
)

// CreateOffer inserts a new offer row in active status.
func CreateOffer(ctx context.Context, db *gorm.DB, o *domain.Offer) (*domain.Offer, error) {
	o.ID = uuid.NewString()
	o.Status = domain.OfferStatusActive
	o.CreatedAt = time.Now().UTC()
	if err := db.WithContext(ctx).Create(o).Error; err != nil {
		return nil, err
	}
	return o, nil
}

// GetOffer fetches an offer by ID, or ErrNotFound.
func GetOffer(ctx context.Context, db *gorm.DB, id string) (*domain.Offer, error) {
	var o domain.Offer
	if err := db.WithContext(ctx).Where("id = ?", id).First(&o).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

// ListOffers returns all offers submitted against an RFP, oldest first.
func ListOffers(ctx context.Context, db *gorm.DB, rfpID string) ([]domain.Offer, error) {
	var out []domain.Offer
	err := db.WithContext(ctx).
		Where("rfp_id = ?", rfpID).
		Order("created_at asc, id asc").
		Find(&out).Error
	return out, err
}

// DecideOffer moves an offer out of active into a final status with a
// conditional update. Zero rows affected means the offer was already decided
// (or never existed) and surfaces as ErrNotFound for the caller to map.
func DecideOffer(ctx context.Context, db *gorm.DB, id string, to domain.OfferStatus) error {
	res := db.WithContext(ctx).
		Model(&domain.Offer{}).
		Where("id = ? AND status = ?", id, domain.OfferStatusActive).
		Update("status", to)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListExpiredOffers returns active offers whose validity window has closed,
// capped at limit. Used by the background sweep.
func ListExpiredOffers(ctx context.Context, db *gorm.DB, now time.Time, limit int) ([]domain.Offer, error) {
	var out []domain.Offer
	q := db.WithContext(ctx).
		Where("status = ? AND valid_until <= ?", domain.OfferStatusActive, now).
		Order("valid_until asc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}

// ExpireOffer transitions a single offer from active to expired when its
// validity window has closed. Racing deciders make this affect zero rows,
// which the sweep treats as a no-op.
func ExpireOffer(ctx context.Context, db *gorm.DB, id string, now time.Time) error {
	res := db.WithContext(ctx).
		Model(&domain.Offer{}).
		Where("id = ? AND status = ? AND valid_until <= ?", id, domain.OfferStatusActive, now).
		Update("status", domain.OfferStatusExpired)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
