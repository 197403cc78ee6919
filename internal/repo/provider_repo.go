// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for Provider.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/goaguide/go-trip-backend/internal/domain"
)

// CreateProvider inserts a new provider row with KYC status pending unless
// the caller set one explicitly.
func CreateProvider(ctx context.Context, db *gorm.DB, p *domain.Provider) (*domain.Provider, error) {
	p.ID = uuid.NewString()
	if p.KYCStatus == "" {
		p.KYCStatus = domain.KYCStatusPending
	}
	p.CreatedAt = time.Now().UTC()
	if err := db.WithContext(ctx).Create(p).Error; err != nil {
		return nil, err
	}
	return p, nil
}

// GetProvider fetches a provider by ID, or ErrNotFound.
func GetProvider(ctx context.Context, db *gorm.DB, id string) (*domain.Provider, error) {
	var p domain.Provider
	if err := db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdateProviderKYC sets a provider's KYC status.
func UpdateProviderKYC(ctx context.Context, db *gorm.DB, id string, status domain.KYCStatus) error {
	res := db.WithContext(ctx).
		Model(&domain.Provider{}).
		Where("id = ?", id).
		Update("kyc_status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
