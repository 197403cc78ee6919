// Package services – RFPService
//
// This file implements the RFP/offer matching lifecycle: publishing an
// anonymized solicitation from a trip, collecting provider bids, and
// accepting exactly one of them. Publishing is gated by consent and by the
// privacy allow-list; acceptance is serialized through a conditional update
// on the RFP so concurrent acceptors cannot both win.
package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/goaguide/go-trip-backend/internal/domain"
	"github.com/goaguide/go-trip-backend/internal/observability"
	"github.com/goaguide/go-trip-backend/internal/privacy"
	"github.com/goaguide/go-trip-backend/internal/repo"
)

// defaultRFPTTL bounds how long an RFP accepts bids when the caller does not
// choose a deadline.
const defaultRFPTTL = 72 * time.Hour

// RFPService coordinates RFP publication and offer matching.
type RFPService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB

	// RFPTTL is the bid window applied when Publish gets a zero ttl.
	RFPTTL time.Duration
	// HoldTTL is the hold window for bookings created by auto-accept.
	HoldTTL time.Duration

	// Now returns the current instant; injectable for tests.
	Now func() time.Time
}

// NewRFPService constructs an RFPService with default windows.
func NewRFPService(db *gorm.DB) *RFPService {
	return &RFPService{
		DB:      db,
		RFPTTL:  defaultRFPTTL,
		HoldTTL: defaultHoldTTL,
		Now:     func() time.Time { return time.Now().UTC() },
	}
}

// BudgetRange bounds the provider bids an RFP solicits, in minor units.
type BudgetRange struct {
	Min      int64
	Max      int64
	Currency string
}

// Publish derives an anonymized RFP from a trip. It fails when the trip has
// no active consent grant at all, or when any value that would land in
// anonymized_requirements is PII-shaped. The requirements map is built
// strictly from the privacy allow-list, so any active grant suffices as the
// publish gate; no raw category data leaves the trip regardless.
func (s *RFPService) Publish(ctx context.Context, actor, tripID string, budget BudgetRange, ttl time.Duration) (*domain.RFP, error) {
	ctx, span := s.span(ctx, "Publish", attribute.String("trip.id", tripID))
	defer span.End()

	trip, err := repo.GetTrip(ctx, s.DB, tripID)
	if err != nil {
		return nil, ErrTripNotFound
	}
	if actor != ActorSystem && actor != trip.UserID {
		return nil, ErrNotTripOwner
	}
	if trip.Status.Terminal() {
		return nil, ErrTripTerminal
	}

	now := s.Now()
	if err := s.requireConsent(ctx, tripID, now); err != nil {
		return nil, err
	}

	reqs, err := privacy.BuildRequirements(trip)
	if err != nil {
		return nil, errors.Join(ErrPIILeak, err)
	}

	snap, err := repo.LoadFlagSnapshot(ctx, s.DB)
	if err != nil {
		return nil, err
	}

	if ttl <= 0 {
		ttl = s.RFPTTL
	}
	rfp := &domain.RFP{
		TripID:                 tripID,
		AnonymizedRequirements: reqs,
		BudgetMin:              budget.Min,
		BudgetMax:              budget.Max,
		Currency:               budget.Currency,
		ExpiresAt:              now.Add(ttl),
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := repo.CreateRFP(ctx, tx, rfp); err != nil {
			return err
		}
		return appendAudit(ctx, tx, domain.AuditRFPPublished, "rfp", rfp.ID, actor, nil, rfp, snap)
	})
	if err != nil {
		return nil, err
	}
	observeTransition("rfp", domain.AuditRFPPublished)
	return rfp, nil
}

// requireConsent checks that the trip carries at least one active consent
// grant. Any category suffices; the allow-list bounds what gets published
// either way.
func (s *RFPService) requireConsent(ctx context.Context, tripID string, now time.Time) error {
	records, err := repo.ListConsents(ctx, s.DB, tripID)
	if err != nil {
		return err
	}
	for _, rec := range records {
		if rec.Active(now) {
			return nil
		}
	}
	return ErrConsentRequired
}

// OfferTerms is a provider's bid: price in minor units, what it includes,
// and how long it stands.
type OfferTerms struct {
	Price      int64
	Currency   string
	Inclusions []string
	ValidFor   time.Duration
}

// SubmitOffer records a provider bid against an RFP. It fails when the RFP
// is expired or closed, and when the provider's KYC status is not verified.
func (s *RFPService) SubmitOffer(ctx context.Context, providerID, rfpID string, terms OfferTerms) (*domain.Offer, error) {
	ctx, span := s.span(ctx, "SubmitOffer",
		attribute.String("rfp.id", rfpID),
		attribute.String("provider.id", providerID),
	)
	defer span.End()

	rfp, err := repo.GetRFP(ctx, s.DB, rfpID)
	if err != nil {
		return nil, ErrRFPNotFound
	}
	now := s.Now()
	if rfp.Status != domain.RFPStatusActive {
		return nil, ErrRFPNotActive
	}
	if !now.Before(rfp.ExpiresAt) {
		return nil, ErrRFPExpired
	}

	provider, err := repo.GetProvider(ctx, s.DB, providerID)
	if err != nil {
		return nil, ErrProviderNotFound
	}
	if !provider.Verified() {
		return nil, ErrProviderNotVerified
	}

	snap, err := repo.LoadFlagSnapshot(ctx, s.DB)
	if err != nil {
		return nil, err
	}

	validFor := terms.ValidFor
	if validFor <= 0 {
		validFor = rfp.ExpiresAt.Sub(now)
	}
	offer := &domain.Offer{
		RFPID:      rfpID,
		ProviderID: providerID,
		Price:      terms.Price,
		Currency:   terms.Currency,
		Inclusions: terms.Inclusions,
		ValidFrom:  now,
		ValidUntil: now.Add(validFor),
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := repo.CreateOffer(ctx, tx, offer); err != nil {
			return err
		}
		return appendAudit(ctx, tx, domain.AuditOfferSubmitted, "offer", offer.ID, providerID, nil, offer, snap)
	})
	if err != nil {
		return nil, err
	}
	observeTransition("offer", domain.AuditOfferSubmitted)
	return offer, nil
}

// AcceptOffer marks one offer as the RFP's winner and closes the RFP. The
// conditional update on rfps.accepted_offer_id guarantees that under N
// concurrent acceptances exactly one succeeds and the rest see ErrConflict.
//
// When the auto_booking flag is enabled for the trip, the hold booking is
// created in the same transaction and returned alongside the offer.
func (s *RFPService) AcceptOffer(ctx context.Context, actor, offerID string) (*domain.Offer, *domain.Booking, error) {
	ctx, span := s.span(ctx, "AcceptOffer", attribute.String("offer.id", offerID))
	defer span.End()

	offer, err := repo.GetOffer(ctx, s.DB, offerID)
	if err != nil {
		return nil, nil, ErrOfferNotFound
	}
	now := s.Now()
	if offer.Status.Decided() {
		return nil, nil, ErrOfferAlreadyDecided
	}
	if !now.Before(offer.ValidUntil) {
		return nil, nil, ErrOfferExpired
	}

	rfp, err := repo.GetRFP(ctx, s.DB, offer.RFPID)
	if err != nil {
		return nil, nil, ErrRFPNotFound
	}
	trip, err := repo.GetTrip(ctx, s.DB, rfp.TripID)
	if err != nil {
		return nil, nil, ErrTripNotFound
	}
	if actor != ActorSystem && actor != trip.UserID {
		return nil, nil, ErrNotTripOwner
	}

	snap, err := repo.LoadFlagSnapshot(ctx, s.DB)
	if err != nil {
		return nil, nil, err
	}

	before := *offer
	var booking *domain.Booking
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repo.MarkRFPAccepted(ctx, tx, rfp.ID, offerID); err != nil {
			if err == repo.ErrNotFound {
				return ErrRFPDecided
			}
			return err
		}
		if err := repo.DecideOffer(ctx, tx, offerID, domain.OfferStatusAccepted); err != nil {
			if err == repo.ErrNotFound {
				return ErrOfferAlreadyDecided
			}
			return err
		}
		offer.Status = domain.OfferStatusAccepted
		if err := appendAudit(ctx, tx, domain.AuditOfferAccepted, "offer", offer.ID, actor, before, offer, snap); err != nil {
			return err
		}

		if snap.EnabledFor(domain.FlagAutoBooking, trip.ID) {
			var err error
			booking, err = createHoldBooking(ctx, tx, ActorSystem, trip, offer, s.HoldTTL, now, snap)
			return err
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	observeTransition("offer", domain.AuditOfferAccepted)
	if booking != nil {
		observeTransition("booking", domain.AuditBookingCreated)
	}
	return offer, booking, nil
}

// RejectOffer marks a still-active offer rejected.
func (s *RFPService) RejectOffer(ctx context.Context, actor, offerID string) (*domain.Offer, error) {
	ctx, span := s.span(ctx, "RejectOffer", attribute.String("offer.id", offerID))
	defer span.End()

	offer, err := repo.GetOffer(ctx, s.DB, offerID)
	if err != nil {
		return nil, ErrOfferNotFound
	}
	if offer.Status.Decided() {
		return nil, ErrOfferAlreadyDecided
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

	before := *offer
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repo.DecideOffer(ctx, tx, offerID, domain.OfferStatusRejected); err != nil {
			if err == repo.ErrNotFound {
				return ErrOfferAlreadyDecided
			}
			return err
		}
		offer.Status = domain.OfferStatusRejected
		return appendAudit(ctx, tx, domain.AuditOfferRejected, "offer", offer.ID, actor, before, offer, snap)
	})
	if err != nil {
		return nil, err
	}
	observeTransition("offer", domain.AuditOfferRejected)
	return offer, nil
}

func (s *RFPService) span(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return observability.StartSpan(ctx, "services/RFPService", name, attrs...)
}
