// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository helpers for the
// BookingIdempotency model used to implement at-most-once booking creation.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/goaguide/go-trip-backend/internal/domain"
)

// GetIdempotency returns a non-expired record for the key, or ErrNotFound.
func GetIdempotency(ctx context.Context, db *gorm.DB, key string, now time.Time) (*domain.BookingIdempotency, error) {
	if strings.TrimSpace(key) == "" {
		return nil, ErrNotFound
	}
	var rec domain.BookingIdempotency
	err := db.WithContext(ctx).
		Where("key = ? AND expires_at > ?", key, now).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// CreateIdempotency inserts a record with the fixed 24h TTL and returns
// ErrDuplicate on unique violation, letting the caller re-read the winner's
// cached response.
func CreateIdempotency(ctx context.Context, db *gorm.DB, key, bookingID string, response []byte) (*domain.BookingIdempotency, error) {
	now := time.Now().UTC()
	rec := &domain.BookingIdempotency{
		ID:        uuid.NewString(),
		Key:       key,
		BookingID: bookingID,
		Response:  response,
		CreatedAt: now,
		ExpiresAt: now.Add(domain.IdempotencyTTL),
	}
	if err := db.WithContext(ctx).Create(rec).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return rec, nil
}
