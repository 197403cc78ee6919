// Package services – TripService
//
// This file implements the TripService, which owns the trip and consent
// lifecycles. It validates trip input, enforces ownership, drives the
// monotonic status machine, and maintains the pii_shared invariant: the flag
// is true exactly while at least one unrevoked, unexpired consent record
// references the trip. Every mutation appends one audit row in the same
// transaction as the change.
package services

import (
	"context"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/goaguide/go-trip-backend/internal/domain"
	"github.com/goaguide/go-trip-backend/internal/observability"
	"github.com/goaguide/go-trip-backend/internal/privacy"
	"github.com/goaguide/go-trip-backend/internal/repo"
)

// ActorSystem is the actor recorded for transitions the system performs on
// its own behalf (expiry sweeps, auto-booking). It bypasses ownership checks.
const ActorSystem = "system"

// TripService provides trip-level operations: creation, status advancement,
// and the consent grant/revoke cycle.
type TripService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB

	// MaxQuestionnaireEntries caps the number of questionnaire answers.
	MaxQuestionnaireEntries int
	// MaxAnswerRunes caps each questionnaire answer by rune length.
	MaxAnswerRunes int

	// ConsentDefaultTTL bounds grants that arrive without an explicit ttl.
	// Zero leaves such grants open-ended.
	ConsentDefaultTTL time.Duration

	// Now returns the current instant; injectable for tests.
	Now func() time.Time

	caser cases.Caser
}

// NewTripService constructs a TripService with sane validation defaults.
func NewTripService(db *gorm.DB) *TripService {
	return &TripService{
		DB:                      db,
		MaxQuestionnaireEntries: 50,
		MaxAnswerRunes:          500,
		Now:                     func() time.Time { return time.Now().UTC() },
		caser:                   cases.Title(language.Und),
	}
}

// CreateTripInput is the caller-supplied profile for a new trip.
type CreateTripInput struct {
	Destination   string
	StartDate     time.Time
	EndDate       time.Time
	AgeBracket    string
	Gender        string
	PartySize     int
	TripType      string
	BudgetBracket string
	Questionnaire map[string]string
}

// Create inserts a new trip owned by actor in planning status. The
// destination is normalized for display; questionnaire payloads are bounded.
func (s *TripService) Create(ctx context.Context, actor string, in CreateTripInput) (*domain.Trip, error) {
	ctx, span := s.span(ctx, "Create", attribute.String("user.id", actor))
	defer span.End()

	if in.Destination == "" {
		return nil, ErrEmptyDestination
	}
	if in.PartySize < 1 {
		return nil, ErrBadPartySize
	}
	if len(in.Questionnaire) > s.MaxQuestionnaireEntries {
		return nil, ErrQuestionnaire
	}
	for _, v := range in.Questionnaire {
		if s.MaxAnswerRunes > 0 && len([]rune(v)) > s.MaxAnswerRunes {
			return nil, ErrQuestionnaire
		}
	}

	trip := &domain.Trip{
		UserID:             actor,
		Destination:        in.Destination,
		DisplayDestination: s.caser.String(in.Destination),
		StartDate:          in.StartDate,
		EndDate:            in.EndDate,
		AgeBracket:         in.AgeBracket,
		Gender:             in.Gender,
		PartySize:          in.PartySize,
		TripType:           in.TripType,
		BudgetBracket:      in.BudgetBracket,
		Questionnaire:      in.Questionnaire,
	}

	snap, err := repo.LoadFlagSnapshot(ctx, s.DB)
	if err != nil {
		return nil, err
	}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := repo.CreateTrip(ctx, tx, trip); err != nil {
			return err
		}
		return appendAudit(ctx, tx, domain.AuditTripCreated, "trip", trip.ID, actor, nil, trip, snap)
	})
	if err != nil {
		return nil, err
	}
	observeTransition("trip", domain.AuditTripCreated)
	return trip, nil
}

// Advance moves a trip one step forward in its lifecycle
// (planning → ready → booked → completed). Backwards moves, skipped steps,
// and transitions out of a terminal state are conflicts.
func (s *TripService) Advance(ctx context.Context, actor, tripID string, next domain.TripStatus) (*domain.Trip, error) {
	ctx, span := s.span(ctx, "Advance", attribute.String("trip.id", tripID))
	defer span.End()

	event := domain.AuditTripAdvanced
	if next == domain.TripStatusCancelled {
		event = domain.AuditTripCancelled
	}
	return s.transition(ctx, actor, tripID, next, event)
}

// Cancel moves a trip to cancelled from any non-terminal state.
func (s *TripService) Cancel(ctx context.Context, actor, tripID string) (*domain.Trip, error) {
	ctx, span := s.span(ctx, "Cancel", attribute.String("trip.id", tripID))
	defer span.End()

	return s.transition(ctx, actor, tripID, domain.TripStatusCancelled, domain.AuditTripCancelled)
}

func (s *TripService) transition(ctx context.Context, actor, tripID string, next domain.TripStatus, event string) (*domain.Trip, error) {
	trip, err := repo.GetTrip(ctx, s.DB, tripID)
	if err != nil {
		return nil, ErrTripNotFound
	}
	if err := s.authorize(actor, trip); err != nil {
		return nil, err
	}
	if !trip.Status.CanAdvance(next) {
		return nil, ErrBadTransition
	}

	snap, err := repo.LoadFlagSnapshot(ctx, s.DB)
	if err != nil {
		return nil, err
	}

	before := *trip
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repo.UpdateTripStatus(ctx, tx, tripID, trip.Status, next); err != nil {
			if err == repo.ErrNotFound {
				return ErrBadTransition // a concurrent writer moved the trip first
			}
			return err
		}
		trip.Status = next
		return appendAudit(ctx, tx, event, "trip", trip.ID, actor, before, trip, snap)
	})
	if err != nil {
		return nil, err
	}
	observeTransition("trip", event)
	return trip, nil
}

// GrantConsent records permission to share the given PII categories for a
// trip, optionally bounded by ttl, and flips pii_shared on. Fails when the
// trip is missing, the actor is not its owner, the trip is already
// cancelled/completed, or a category is unknown.
func (s *TripService) GrantConsent(ctx context.Context, actor, tripID string, categories []string, ttl *time.Duration) (*domain.ConsentRecord, error) {
	ctx, span := s.span(ctx, "GrantConsent", attribute.String("trip.id", tripID))
	defer span.End()

	if len(categories) == 0 {
		return nil, ErrUnknownCategory
	}
	for _, c := range categories {
		if !privacy.KnownCategory(c) {
			return nil, ErrUnknownCategory
		}
	}

	trip, err := repo.GetTrip(ctx, s.DB, tripID)
	if err != nil {
		return nil, ErrTripNotFound
	}
	if err := s.authorize(actor, trip); err != nil {
		return nil, err
	}
	if trip.Status.Terminal() {
		return nil, ErrTripTerminal
	}
	if ttl == nil && s.ConsentDefaultTTL > 0 {
		d := s.ConsentDefaultTTL
		ttl = &d
	}

	snap, err := repo.LoadFlagSnapshot(ctx, s.DB)
	if err != nil {
		return nil, err
	}

	var rec *domain.ConsentRecord
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		rec, err = repo.CreateConsent(ctx, tx, tripID, categories, ttl)
		if err != nil {
			return err
		}
		if !trip.PIIShared {
			if err := repo.SetTripPIIShared(ctx, tx, tripID, true); err != nil {
				return err
			}
		}
		return appendAudit(ctx, tx, domain.AuditConsentGranted, "consent", rec.ID, actor, nil, rec, snap)
	})
	if err != nil {
		return nil, err
	}
	observeTransition("consent", domain.AuditConsentGranted)
	return rec, nil
}

// RevokeConsent permanently revokes a consent token. When no other active
// consent remains for the trip, pii_shared is flipped back off. Revoking an
// already-revoked token is a conflict, not a silent success.
func (s *TripService) RevokeConsent(ctx context.Context, actor, tokenID string) error {
	ctx, span := s.span(ctx, "RevokeConsent", attribute.String("consent.id", tokenID))
	defer span.End()

	rec, err := repo.GetConsent(ctx, s.DB, tokenID)
	if err != nil {
		return ErrConsentNotFound
	}
	trip, err := repo.GetTrip(ctx, s.DB, rec.TripID)
	if err != nil {
		return ErrTripNotFound
	}
	if err := s.authorize(actor, trip); err != nil {
		return err
	}

	snap, err := repo.LoadFlagSnapshot(ctx, s.DB)
	if err != nil {
		return err
	}

	now := s.Now()
	before := *rec
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repo.RevokeConsent(ctx, tx, tokenID, now); err != nil {
			if err == repo.ErrNotFound {
				return ErrConsentRevokedTwice
			}
			return err
		}
		rec.RevokedAt = &now

		remaining, err := repo.CountActiveConsents(ctx, tx, rec.TripID, now)
		if err != nil {
			return err
		}
		if remaining == 0 {
			if err := repo.SetTripPIIShared(ctx, tx, rec.TripID, false); err != nil {
				return err
			}
		}
		return appendAudit(ctx, tx, domain.AuditConsentRevoked, "consent", rec.ID, actor, before, rec, snap)
	})
	if err != nil {
		return err
	}
	observeTransition("consent", domain.AuditConsentRevoked)
	return nil
}

// IsConsentActive reports whether the token is usable at the given instant:
// not revoked and, when an expiry is set, strictly before it. A revoked
// token is inactive forever, regardless of expiry.
func (s *TripService) IsConsentActive(ctx context.Context, tokenID string, now time.Time) (bool, error) {
	rec, err := repo.GetConsent(ctx, s.DB, tokenID)
	if err != nil {
		return false, ErrConsentNotFound
	}
	return rec.Active(now), nil
}

// authorize enforces "owner id equals caller id"; the system actor is exempt.
func (s *TripService) authorize(actor string, trip *domain.Trip) error {
	if actor == ActorSystem || actor == trip.UserID {
		return nil
	}
	return ErrNotTripOwner
}

func (s *TripService) span(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return observability.StartSpan(ctx, "services/TripService", name, attrs...)
}
