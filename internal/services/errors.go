// Package services defines the business logic for the trip, consent, RFP,
// offer, booking, and photo-verification lifecycles. This file centralizes
// the service-level error taxonomy so that outcomes can be consistently
// returned by service methods and inspected by callers.
//
// Errors come in two layers. The five category sentinels (not found,
// conflict, validation, unauthorized, expired) classify every failure; the
// specific sentinels wrap a category, so both
// errors.Is(err, ErrConflict) and errors.Is(err, ErrOfferAlreadyDecided)
// hold for a duplicate acceptance. Failures are never coerced into success.
package services

import (
	"errors"
	"fmt"
)

// Category sentinels. Every error a service returns wraps exactly one.
var (
	// ErrNotFound indicates an entity id that could not be resolved.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates an illegal state transition, a duplicate
	// acceptance, or another lost race; state is left unchanged.
	ErrConflict = errors.New("conflict")

	// ErrValidation indicates rejected input: PII leakage into anonymized
	// fields, malformed questionnaire payloads, unknown consent categories.
	ErrValidation = errors.New("validation failed")

	// ErrUnauthorized indicates the actor does not own the entity.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrExpired indicates a hold, offer, RFP, or consent past its deadline.
	ErrExpired = errors.New("expired")
)

// Specific sentinels, grouped by lifecycle.
var (
	ErrTripNotFound     = fmt.Errorf("%w: trip", ErrNotFound)
	ErrTripTerminal     = fmt.Errorf("%w: trip is cancelled or completed", ErrConflict)
	ErrBadTransition    = fmt.Errorf("%w: illegal status transition", ErrConflict)
	ErrNotTripOwner     = fmt.Errorf("%w: actor does not own this trip", ErrUnauthorized)
	ErrEmptyDestination = fmt.Errorf("%w: destination is required", ErrValidation)
	ErrBadPartySize     = fmt.Errorf("%w: party size must be at least 1", ErrValidation)
	ErrQuestionnaire    = fmt.Errorf("%w: malformed questionnaire payload", ErrValidation)

	ErrConsentNotFound     = fmt.Errorf("%w: consent record", ErrNotFound)
	ErrConsentRevokedTwice = fmt.Errorf("%w: consent already revoked", ErrConflict)
	ErrUnknownCategory     = fmt.Errorf("%w: unknown consent category", ErrValidation)
	ErrConsentRequired     = fmt.Errorf("%w: trip has no active consent", ErrValidation)

	ErrRFPNotFound  = fmt.Errorf("%w: rfp", ErrNotFound)
	ErrRFPNotActive = fmt.Errorf("%w: rfp is not active", ErrConflict)
	ErrRFPExpired   = fmt.Errorf("%w: rfp deadline has passed", ErrExpired)
	ErrRFPDecided   = fmt.Errorf("%w: rfp already has an accepted offer", ErrConflict)
	ErrPIILeak      = fmt.Errorf("%w: pii would leak into anonymized requirements", ErrValidation)

	ErrProviderNotFound    = fmt.Errorf("%w: provider", ErrNotFound)
	ErrProviderNotVerified = fmt.Errorf("%w: provider kyc status is not verified", ErrValidation)

	ErrOfferNotFound       = fmt.Errorf("%w: offer", ErrNotFound)
	ErrOfferAlreadyDecided = fmt.Errorf("%w: offer already accepted, rejected, or expired", ErrConflict)
	ErrOfferExpired        = fmt.Errorf("%w: offer validity window has closed", ErrExpired)
	ErrOfferNotAccepted    = fmt.Errorf("%w: booking requires an accepted offer", ErrConflict)

	ErrBookingNotFound        = fmt.Errorf("%w: booking", ErrNotFound)
	ErrBookingNotHeld         = fmt.Errorf("%w: booking is not in hold", ErrConflict)
	ErrBookingNotConfirmed    = fmt.Errorf("%w: booking is not confirmed", ErrConflict)
	ErrHoldExpired            = fmt.Errorf("%w: hold window has lapsed", ErrExpired)
	ErrOfferAlreadyBooked     = fmt.Errorf("%w: offer already has a booking", ErrConflict)
	ErrIdempotencyKeyRequired = fmt.Errorf("%w: idempotency key is required", ErrValidation)

	ErrPhotoNotFound = fmt.Errorf("%w: photo verification", ErrNotFound)
	ErrPhotoDecided  = fmt.Errorf("%w: photo verification already decided", ErrConflict)
)
