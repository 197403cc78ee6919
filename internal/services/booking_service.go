// Package services – BookingService
//
// This file implements the booking state machine. A booking is created from
// an accepted offer in hold status with a fixed expiry; the only legal moves
// afterwards are hold → confirmed, hold → cancelled, and confirmed →
// refunded. Creation is idempotent under a client-supplied key: retries
// within 24 hours replay the byte-identical cached response without touching
// state again. Amount and currency are frozen at hold time.
package services

import (
	"context"
	"encoding/json"
	"time"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/goaguide/go-trip-backend/internal/domain"
	"github.com/goaguide/go-trip-backend/internal/observability"
	"github.com/goaguide/go-trip-backend/internal/repo"
)

// defaultHoldTTL is the provisional window a hold stays reservable before
// the sweep cancels it.
const defaultHoldTTL = 15 * time.Minute

// RefundPolicy computes the refund for a confirmed booking from the
// cancellation instant relative to the trip start: full refund far out, a
// partial percentage closer in, nothing after the final cutoff.
type RefundPolicy struct {
	// FullWindow is how far before trip start a cancellation still refunds
	// 100% of the amount.
	FullWindow time.Duration
	// PartialWindow is how far before trip start a cancellation still
	// refunds PartialPercent.
	PartialWindow time.Duration
	// PartialPercent is the percentage refunded inside the partial window.
	PartialPercent int64
}

// DefaultRefundPolicy mirrors common travel cancellation terms: full refund
// a week out, half refund a day out, forfeit after that.
func DefaultRefundPolicy() RefundPolicy {
	return RefundPolicy{
		FullWindow:     7 * 24 * time.Hour,
		PartialWindow:  24 * time.Hour,
		PartialPercent: 50,
	}
}

// Refund returns the amount to give back and its classification.
func (p RefundPolicy) Refund(amount int64, cancelAt, tripStart time.Time) (int64, domain.RefundStatus) {
	lead := tripStart.Sub(cancelAt)
	switch {
	case lead >= p.FullWindow:
		return amount, domain.RefundStatusFull
	case lead >= p.PartialWindow:
		return amount * p.PartialPercent / 100, domain.RefundStatusPartial
	default:
		return 0, domain.RefundStatusForfeited
	}
}

// BookingService owns the booking state machine.
type BookingService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB

	// HoldTTL is the window a new hold stays reservable.
	HoldTTL time.Duration
	// Policy computes refunds on cancellation of confirmed bookings.
	Policy RefundPolicy

	// Now returns the current instant; injectable for tests.
	Now func() time.Time
}

// NewBookingService constructs a BookingService with default hold window and
// refund policy.
func NewBookingService(db *gorm.DB) *BookingService {
	return &BookingService{
		DB:      db,
		HoldTTL: defaultHoldTTL,
		Policy:  DefaultRefundPolicy(),
		Now:     func() time.Time { return time.Now().UTC() },
	}
}

// BookingResult is what Create returns: the booking, the canonical response
// bytes cached under the idempotency key, and whether this call replayed a
// previous result instead of creating anything.
type BookingResult struct {
	Booking  *domain.Booking
	Response []byte
	Replayed bool
}

// Create books an accepted offer, idempotently. A key seen within the last
// 24 hours replays the cached response byte for byte and performs no writes.
// Otherwise the booking row (status hold, expiry stamped), the idempotency
// record, and the audit row all commit in one transaction. A concurrent
// creator with the same key loses the unique-index race and replays the
// winner's response.
func (s *BookingService) Create(ctx context.Context, actor, offerID, idempotencyKey string) (*BookingResult, error) {
	ctx, span := s.span(ctx, "Create",
		attribute.String("offer.id", offerID),
		attribute.String("user.id", actor),
	)
	defer span.End()

	if idempotencyKey == "" {
		return nil, ErrIdempotencyKeyRequired
	}
	now := s.Now()

	// Replay path: a known, unexpired key short-circuits everything.
	if rec, err := repo.GetIdempotency(ctx, s.DB, idempotencyKey, now); err == nil {
		return s.replay(ctx, rec)
	} else if err != repo.ErrNotFound {
		return nil, err
	}

	offer, err := repo.GetOffer(ctx, s.DB, offerID)
	if err != nil {
		return nil, ErrOfferNotFound
	}
	if offer.Status != domain.OfferStatusAccepted {
		return nil, ErrOfferNotAccepted
	}
	rfp, err := repo.GetRFP(ctx, s.DB, offer.RFPID)
	if err != nil {
		return nil, ErrRFPNotFound
	}
	trip, err := repo.GetTrip(ctx, s.DB, rfp.TripID)
	if err != nil {
		return nil, ErrTripNotFound
	}
	if actor != ActorSystem && actor != trip.UserID {
		return nil, ErrNotTripOwner
	}

	snap, err := repo.LoadFlagSnapshot(ctx, s.DB)
	if err != nil {
		return nil, err
	}

	var (
		booking  *domain.Booking
		response []byte
		lostRace bool
	)
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		booking, err = createHoldBooking(ctx, tx, actor, trip, offer, s.HoldTTL, now, snap)
		if err != nil {
			return err
		}
		response, err = json.Marshal(booking)
		if err != nil {
			return err
		}
		if _, err := repo.CreateIdempotency(ctx, tx, idempotencyKey, booking.ID, response); err != nil {
			if err == repo.ErrDuplicate {
				// A concurrent call with the same key won the insert; roll
				// back our booking and replay the winner's response.
				lostRace = true
			}
			return err
		}
		return nil
	})
	if lostRace {
		rec, err := repo.GetIdempotency(ctx, s.DB, idempotencyKey, now)
		if err != nil {
			return nil, err
		}
		return s.replay(ctx, rec)
	}
	if err != nil {
		return nil, err
	}
	observeTransition("booking", domain.AuditBookingCreated)
	return &BookingResult{Booking: booking, Response: response}, nil
}

// replay loads the booking a cached idempotency record points at and returns
// the stored response bytes untouched.
func (s *BookingService) replay(ctx context.Context, rec *domain.BookingIdempotency) (*BookingResult, error) {
	booking, err := repo.GetBooking(ctx, s.DB, rec.BookingID)
	if err != nil {
		return nil, ErrBookingNotFound
	}
	return &BookingResult{Booking: booking, Response: rec.Response, Replayed: true}, nil
}

// createHoldBooking inserts the hold row and its audit entry inside an open
// transaction. Shared between BookingService.Create and the auto-booking
// path of RFPService.AcceptOffer. Amount and currency are copied from the
// offer here and never touched again.
func createHoldBooking(ctx context.Context, tx *gorm.DB, actor string, trip *domain.Trip, offer *domain.Offer, holdTTL time.Duration, now time.Time, snap domain.FlagSnapshot) (*domain.Booking, error) {
	if holdTTL <= 0 {
		holdTTL = defaultHoldTTL
	}
	booking := &domain.Booking{
		TripID:        trip.ID,
		OfferID:       offer.ID,
		ProviderID:    offer.ProviderID,
		Amount:        offer.Price,
		Currency:      offer.Currency,
		HoldExpiresAt: now.Add(holdTTL),
	}
	if _, err := repo.CreateBooking(ctx, tx, booking); err != nil {
		if err == repo.ErrDuplicate {
			return nil, ErrOfferAlreadyBooked
		}
		return nil, err
	}
	if err := appendAudit(ctx, tx, domain.AuditBookingCreated, "booking", booking.ID, actor, nil, booking, snap); err != nil {
		return nil, err
	}
	return booking, nil
}

// Confirm moves a held booking to confirmed. Fails when the booking is not
// in hold, or when the hold window has already lapsed.
func (s *BookingService) Confirm(ctx context.Context, actor, bookingID, paymentRef string) (*domain.Booking, error) {
	ctx, span := s.span(ctx, "Confirm", attribute.String("booking.id", bookingID))
	defer span.End()

	booking, err := s.load(ctx, actor, bookingID)
	if err != nil {
		return nil, err
	}
	now := s.Now()
	if booking.Status != domain.BookingStatusHold {
		return nil, ErrBookingNotHeld
	}
	if booking.HoldExpired(now) {
		return nil, ErrHoldExpired
	}

	snap, err := repo.LoadFlagSnapshot(ctx, s.DB)
	if err != nil {
		return nil, err
	}

	before := *booking
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := repo.TransitionBooking(ctx, tx, bookingID, domain.BookingStatusHold, domain.BookingStatusConfirmed, map[string]any{
			"confirmed_at": now,
			"payment_ref":  paymentRef,
		})
		if err != nil {
			if err == repo.ErrNotFound {
				return ErrBookingNotHeld // swept or cancelled underneath us
			}
			return err
		}
		booking.Status = domain.BookingStatusConfirmed
		booking.ConfirmedAt = &now
		booking.PaymentRef = paymentRef
		return appendAudit(ctx, tx, domain.AuditBookingConfirmed, "booking", booking.ID, actor, before, booking, snap)
	})
	if err != nil {
		return nil, err
	}
	observeTransition("booking", domain.AuditBookingConfirmed)
	return booking, nil
}

// Cancel voids a booking that is still in hold.
func (s *BookingService) Cancel(ctx context.Context, actor, bookingID, reason string) (*domain.Booking, error) {
	ctx, span := s.span(ctx, "Cancel", attribute.String("booking.id", bookingID))
	defer span.End()

	booking, err := s.load(ctx, actor, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.Status != domain.BookingStatusHold {
		return nil, ErrBookingNotHeld
	}
	now := s.Now()

	snap, err := repo.LoadFlagSnapshot(ctx, s.DB)
	if err != nil {
		return nil, err
	}

	before := *booking
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := repo.TransitionBooking(ctx, tx, bookingID, domain.BookingStatusHold, domain.BookingStatusCancelled, map[string]any{
			"cancelled_at":  now,
			"cancel_reason": reason,
		})
		if err != nil {
			if err == repo.ErrNotFound {
				return ErrBookingNotHeld
			}
			return err
		}
		booking.Status = domain.BookingStatusCancelled
		booking.CancelledAt = &now
		booking.CancelReason = reason
		return appendAudit(ctx, tx, domain.AuditBookingCancelled, "booking", booking.ID, actor, before, booking, snap)
	})
	if err != nil {
		return nil, err
	}
	observeTransition("booking", domain.AuditBookingCancelled)
	return booking, nil
}

// Refund cancels a confirmed booking and computes the refund from the policy
// and the trip start date. Only confirmed bookings can be refunded.
func (s *BookingService) Refund(ctx context.Context, actor, bookingID string) (*domain.Booking, error) {
	ctx, span := s.span(ctx, "Refund", attribute.String("booking.id", bookingID))
	defer span.End()

	booking, err := s.load(ctx, actor, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.Status != domain.BookingStatusConfirmed {
		return nil, ErrBookingNotConfirmed
	}

	trip, err := repo.GetTrip(ctx, s.DB, booking.TripID)
	if err != nil {
		return nil, ErrTripNotFound
	}
	now := s.Now()
	refund, status := s.Policy.Refund(booking.Amount, now, trip.StartDate)

	snap, err := repo.LoadFlagSnapshot(ctx, s.DB)
	if err != nil {
		return nil, err
	}

	before := *booking
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := repo.TransitionBooking(ctx, tx, bookingID, domain.BookingStatusConfirmed, domain.BookingStatusRefunded, map[string]any{
			"cancelled_at":        now,
			"refund_amount":       refund,
			"refund_status":       status,
			"refund_processed_at": now,
		})
		if err != nil {
			if err == repo.ErrNotFound {
				return ErrBookingNotConfirmed
			}
			return err
		}
		booking.Status = domain.BookingStatusRefunded
		booking.CancelledAt = &now
		booking.RefundAmount = &refund
		booking.RefundStatus = status
		booking.RefundProcessedAt = &now
		return appendAudit(ctx, tx, domain.AuditBookingRefunded, "booking", booking.ID, actor, before, booking, snap)
	})
	if err != nil {
		return nil, err
	}
	observeTransition("booking", domain.AuditBookingRefunded)
	return booking, nil
}

// load fetches a booking and enforces trip ownership for the actor.
func (s *BookingService) load(ctx context.Context, actor, bookingID string) (*domain.Booking, error) {
	booking, err := repo.GetBooking(ctx, s.DB, bookingID)
	if err != nil {
		return nil, ErrBookingNotFound
	}
	if actor == ActorSystem {
		return booking, nil
	}
	trip, err := repo.GetTrip(ctx, s.DB, booking.TripID)
	if err != nil {
		return nil, ErrTripNotFound
	}
	if actor != trip.UserID {
		return nil, ErrNotTripOwner
	}
	return booking, nil
}

func (s *BookingService) span(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return observability.StartSpan(ctx, "services/BookingService", name, attrs...)
}
