// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Booking
// model. Every state transition is a conditional update keyed on the current
// status, so racing writers cannot produce an illegal edge at the store level.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/goaguide/go-trip-backend/internal/domain"
)

// ErrDuplicate indicates a unique-constraint violation: an idempotency key
// that was already recorded, or an offer that already has its booking.
var ErrDuplicate = errors.New("duplicate")

// CreateBooking inserts a booking row in hold status. The unique index on
// offer_id guarantees at most one booking per offer; a violation surfaces as
// ErrDuplicate.
func CreateBooking(ctx context.Context, db *gorm.DB, b *domain.Booking) (*domain.Booking, error) {
	b.ID = uuid.NewString()
	b.Status = domain.BookingStatusHold
	b.CreatedAt = time.Now().UTC()
	if err := db.WithContext(ctx).Create(b).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return b, nil
}

// GetBooking fetches a booking by ID, or ErrNotFound.
func GetBooking(ctx context.Context, db *gorm.DB, id string) (*domain.Booking, error) {
	var b domain.Booking
	if err := db.WithContext(ctx).Where("id = ?", id).First(&b).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

// GetBookingByOffer fetches the booking created from an offer, or ErrNotFound.
func GetBookingByOffer(ctx context.Context, db *gorm.DB, offerID string) (*domain.Booking, error) {
	var b domain.Booking
	if err := db.WithContext(ctx).Where("offer_id = ?", offerID).First(&b).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

// TransitionBooking applies a conditional status move with any extra column
// updates. The row is touched only while it is still in `from`; zero rows
// affected returns ErrNotFound so the service layer can map it to a conflict
// (or a sweep no-op) with full knowledge of what it attempted.
func TransitionBooking(ctx context.Context, db *gorm.DB, id string, from, to domain.BookingStatus, extra map[string]any) error {
	updates := map[string]any{"status": to}
	for k, v := range extra {
		updates[k] = v
	}
	res := db.WithContext(ctx).
		Model(&domain.Booking{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListExpiredHolds returns bookings still in hold whose hold_expires_at has
// passed, oldest expiry first, capped at limit. Used by the background sweep.
func ListExpiredHolds(ctx context.Context, db *gorm.DB, now time.Time, limit int) ([]domain.Booking, error) {
	var out []domain.Booking
	q := db.WithContext(ctx).
		Where("status = ? AND hold_expires_at <= ?", domain.BookingStatusHold, now).
		Order("hold_expires_at asc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}

// ExpireHold cancels a booking whose hold window has lapsed, conditionally:
// only while it is still in hold and genuinely past its expiry. A concurrent
// confirmation makes this affect zero rows, which is the expected race
// outcome and is surfaced as ErrNotFound for the sweep to no-op on.
func ExpireHold(ctx context.Context, db *gorm.DB, id string, now time.Time) error {
	res := db.WithContext(ctx).
		Model(&domain.Booking{}).
		Where("id = ? AND status = ? AND hold_expires_at <= ?", id, domain.BookingStatusHold, now).
		Updates(map[string]any{
			"status":        domain.BookingStatusCancelled,
			"cancelled_at":  now,
			"cancel_reason": "hold expired",
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
