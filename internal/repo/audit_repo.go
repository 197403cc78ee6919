// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the append path and read queries for the
// audit log.
//
// The audit log is append-only by construction: this file exposes AppendAudit
// plus read queries, and nothing else. No update or delete function exists
// anywhere in the codebase for audit_log rows.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/goaguide/go-trip-backend/internal/domain"
	"github.com/goaguide/go-trip-backend/internal/utils"
)

// AppendAudit inserts one immutable audit row. Callers invoke it inside the
// same transaction as the state change it documents, so the row commits or
// rolls back together with that change.
func AppendAudit(ctx context.Context, db *gorm.DB, entry *domain.AuditLog) error {
	entry.ID = uuid.NewString()
	entry.CreatedAt = time.Now().UTC()
	return db.WithContext(ctx).Create(entry).Error
}

// ListAuditByEntity returns a page of audit rows for one entity in
// chronological order. Offset and limit are normalized through
// utils.NormalizePage. Use CountAuditByEntity for pagination metadata.
func ListAuditByEntity(ctx context.Context, db *gorm.DB, entityType, entityID string, offset, limit int) ([]domain.AuditLog, error) {
	offset, limit = utils.NormalizePage(offset, limit)
	var out []domain.AuditLog
	err := db.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("created_at asc, id asc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// CountAuditByEntity returns the total number of audit rows for one entity.
func CountAuditByEntity(ctx context.Context, db *gorm.DB, entityType, entityID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.AuditLog{}).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Count(&total).Error
	return total, err
}

// ListAuditByActor returns audit rows written on behalf of one actor,
// chronological, capped at the clamped limit.
func ListAuditByActor(ctx context.Context, db *gorm.DB, actor string, limit int) ([]domain.AuditLog, error) {
	var out []domain.AuditLog
	err := db.WithContext(ctx).
		Where("actor = ?", actor).
		Order("created_at asc, id asc").
		Limit(utils.ClampLimit(limit)).
		Find(&out).Error
	return out, err
}

// ListAuditByTrace returns every audit row sharing a trace identifier, in
// write order. This is the investigation entry point: one trace ties together
// all rows a single logical operation produced.
func ListAuditByTrace(ctx context.Context, db *gorm.DB, traceID string) ([]domain.AuditLog, error) {
	var out []domain.AuditLog
	err := db.WithContext(ctx).
		Where("trace_id = ?", traceID).
		Order("created_at asc, id asc").
		Find(&out).Error
	return out, err
}

// AuditStats returns aggregate metadata for an entity's audit trail: the total
// number of rows and the timestamp of the most recent one.
//
// When the entity has no audit rows, the returned count is 0 and lastAt is nil.
func AuditStats(ctx context.Context, db *gorm.DB, entityType, entityID string) (count int64, lastAt *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.AuditLog{}).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID)

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest created_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		CreatedAt time.Time
	}
	if err = q.Select("created_at").Order("created_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.CreatedAt, nil
}
