// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for feature flags.
package repo

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/goaguide/go-trip-backend/internal/domain"
)

// UpsertFlag creates or replaces a feature flag by name.
func UpsertFlag(ctx context.Context, db *gorm.DB, f *domain.FeatureFlag) error {
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"enabled", "rollout", "description", "updated_at"}),
		}).
		Create(f).Error
}

// LoadFlagSnapshot reads every flag row into an immutable snapshot. Services
// take one snapshot per operation and pass it into decision points, so a
// concurrent flag flip cannot change behavior mid-transaction.
func LoadFlagSnapshot(ctx context.Context, db *gorm.DB) (domain.FlagSnapshot, error) {
	var rows []domain.FeatureFlag
	if err := db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, err
	}
	snap := make(domain.FlagSnapshot, len(rows))
	for _, f := range rows {
		snap[f.Name] = f
	}
	return snap, nil
}
