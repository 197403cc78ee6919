package domain

import (
	"time"

	"gorm.io/gorm"
)

// BookingStatus is the state of a booking. The only legal edges are
// hold → confirmed, hold → cancelled, and confirmed → refunded.
type BookingStatus string

const (
	BookingStatusHold      BookingStatus = "hold"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusRefunded  BookingStatus = "refunded"
)

// CanTransition reports whether moving from s to next is a legal edge of the
// booking state machine. Everything not listed is a conflict.
func (s BookingStatus) CanTransition(next BookingStatus) bool {
	switch s {
	case BookingStatusHold:
		return next == BookingStatusConfirmed || next == BookingStatusCancelled
	case BookingStatusConfirmed:
		return next == BookingStatusRefunded
	default:
		return false
	}
}

// RefundStatus tracks the outcome of a refund computation.
type RefundStatus string

const (
	RefundStatusNone      RefundStatus = ""
	RefundStatusFull      RefundStatus = "full"
	RefundStatusPartial   RefundStatus = "partial"
	RefundStatusForfeited RefundStatus = "forfeited"
)

// Booking is created from an accepted offer. It starts in hold with a fixed
// expiry; a hold that is neither confirmed nor cancelled before
// HoldExpiresAt is swept to cancelled by the background expiry job.
//
// Amount and Currency are copied from the offer at hold time and must never
// change afterwards. OfferID carries a unique index: an offer yields at most
// one booking.
type Booking struct {
	ID                string         `json:"id"          gorm:"type:char(36);primaryKey"`
	TripID            string         `json:"trip_id"     gorm:"type:char(36);not null;index"`
	OfferID           string         `json:"offer_id"    gorm:"type:char(36);not null;uniqueIndex:ux_booking_offer"`
	ProviderID        string         `json:"provider_id" gorm:"type:char(36);not null;index"`
	Status            BookingStatus  `json:"status"      gorm:"type:varchar(16);not null;default:'hold';index"`
	Amount            int64          `json:"amount"      gorm:"not null"`
	Currency          string         `json:"currency"    gorm:"type:char(3);not null"`
	HoldExpiresAt     time.Time      `json:"hold_expires_at" gorm:"index"`
	PaymentRef        string         `json:"payment_ref,omitempty" gorm:"type:varchar(128)"`
	ConfirmedAt       *time.Time     `json:"confirmed_at,omitempty"`
	CancelledAt       *time.Time     `json:"cancelled_at,omitempty"`
	CancelReason      string         `json:"cancel_reason,omitempty" gorm:"type:varchar(255)"`
	RefundAmount      *int64         `json:"refund_amount,omitempty"`
	RefundStatus      RefundStatus   `json:"refund_status,omitempty" gorm:"type:varchar(16)"`
	RefundProcessedAt *time.Time     `json:"refund_processed_at,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
	DeletedAt         gorm.DeletedAt `json:"-" gorm:"index"`

	Trip     Trip     `json:"-" gorm:"foreignKey:TripID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Offer    Offer    `json:"-" gorm:"foreignKey:OfferID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Provider Provider `json:"-" gorm:"foreignKey:ProviderID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Booking.
func (Booking) TableName() string { return "bookings" }

// HoldExpired reports whether the hold window has lapsed at the given instant.
func (b Booking) HoldExpired(now time.Time) bool {
	return b.Status == BookingStatusHold && !now.Before(b.HoldExpiresAt)
}
