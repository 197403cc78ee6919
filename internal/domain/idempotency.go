package domain

import "time"

// IdempotencyTTL is the fixed lifetime of a booking idempotency record.
// Retries with the same key inside this window replay the cached response.
const IdempotencyTTL = 24 * time.Hour

// BookingIdempotency maps a client-supplied idempotency key to the booking it
// produced and the byte-exact response that was returned. It enables
// at-most-once booking creation under retried requests: a later call with the
// same key returns Response without re-executing side effects.
type BookingIdempotency struct {
	ID        string    `gorm:"type:char(36);primaryKey"`
	Key       string    `gorm:"type:varchar(128);not null;uniqueIndex:ux_booking_idem_key"`
	BookingID string    `gorm:"type:char(36);not null"`
	Response  []byte    `gorm:"type:blob;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	ExpiresAt time.Time `gorm:"index"`
}

// TableName implements the GORM tabler interface.
func (BookingIdempotency) TableName() string { return "booking_idempotency" }
