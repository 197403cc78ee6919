// Package services – configuration wiring.
//
// New builds every lifecycle service from one Config, so the env-driven
// windows and thresholds (HOLD_TTL, RFP_TTL, CONSENT_DEFAULT_TTL,
// PHOTO_REVIEW_THRESHOLD, REFUND_*) govern behavior instead of the
// compiled-in defaults.
package services

import (
	"gorm.io/gorm"

	"github.com/goaguide/go-trip-backend/internal/config"
)

// Services bundles the lifecycle services built from one configuration.
type Services struct {
	Trips    *TripService
	RFPs     *RFPService
	Bookings *BookingService
	Photos   *PhotoService
}

// New wires all services against db with the windows and thresholds cfg
// carries.
func New(db *gorm.DB, cfg config.Config) *Services {
	trips := NewTripService(db)
	trips.ConsentDefaultTTL = cfg.ConsentDefaultTTL

	rfps := NewRFPService(db)
	rfps.RFPTTL = cfg.RFPTTL
	rfps.HoldTTL = cfg.HoldTTL

	bookings := NewBookingService(db)
	bookings.HoldTTL = cfg.HoldTTL
	bookings.Policy = RefundPolicy{
		FullWindow:     cfg.Refund.FullWindow,
		PartialWindow:  cfg.Refund.PartialWindow,
		PartialPercent: int64(cfg.Refund.PartialPercent),
	}

	photos := NewPhotoService(db)
	photos.ReviewThreshold = cfg.PhotoReviewThreshold

	return &Services{Trips: trips, RFPs: rfps, Bookings: bookings, Photos: photos}
}
