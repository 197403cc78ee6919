// Package services – PhotoService
//
// This file implements photo verification for trips: uploads are recorded as
// pending, an automated verdict with sufficient confidence decides them, and
// anything below the review threshold is routed to manual review instead of
// being decided by the machine.
package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/goaguide/go-trip-backend/internal/domain"
	"github.com/goaguide/go-trip-backend/internal/observability"
	"github.com/goaguide/go-trip-backend/internal/repo"

	"github.com/google/uuid"
)

// defaultReviewThreshold is the automated-confidence floor below which a
// verification goes to a human instead of being decided by the machine.
const defaultReviewThreshold = 0.80

// PhotoService records photo uploads and their verification outcomes.
type PhotoService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB

	// ReviewThreshold routes low-confidence verdicts to manual review.
	ReviewThreshold float64

	// Now returns the current instant; injectable for tests.
	Now func() time.Time
}

// NewPhotoService constructs a PhotoService with the default threshold.
func NewPhotoService(db *gorm.DB) *PhotoService {
	return &PhotoService{
		DB:              db,
		ReviewThreshold: defaultReviewThreshold,
		Now:             func() time.Time { return time.Now().UTC() },
	}
}

// Submit records an uploaded photo against a trip in pending status. The
// photo bytes live in object storage; only the URL and metadata are kept.
func (s *PhotoService) Submit(ctx context.Context, actor, tripID, photoURL string, exif map[string]string, lat, lng *float64) (*domain.PhotoVerification, error) {
	ctx, span := s.span(ctx, "Submit", attribute.String("trip.id", tripID))
	defer span.End()

	trip, err := repo.GetTrip(ctx, s.DB, tripID)
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

	pv := &domain.PhotoVerification{
		ID:        uuid.NewString(),
		TripID:    tripID,
		PhotoURL:  photoURL,
		EXIF:      exif,
		GPSLat:    lat,
		GPSLng:    lng,
		Status:    domain.PhotoStatusPending,
		CreatedAt: s.Now(),
	}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.WithContext(ctx).Create(pv).Error; err != nil {
			return err
		}
		return appendAudit(ctx, tx, domain.AuditPhotoSubmitted, "photo", pv.ID, actor, nil, pv, snap)
	})
	if err != nil {
		return nil, err
	}
	observeTransition("photo", domain.AuditPhotoSubmitted)
	return pv, nil
}

// RecordVerification applies an automated verdict. The machine may only
// decide when the photo_verification flag is enabled for the trip and the
// confidence clears the review threshold; everything else flips the record
// to manual review and leaves it pending. Re-deciding a decided record
// conflicts.
func (s *PhotoService) RecordVerification(ctx context.Context, photoID string, confidence float64, approved bool) (*domain.PhotoVerification, error) {
	ctx, span := s.span(ctx, "RecordVerification", attribute.String("photo.id", photoID))
	defer span.End()

	var pv domain.PhotoVerification
	if err := s.DB.WithContext(ctx).Where("id = ?", photoID).First(&pv).Error; err != nil {
		return nil, ErrPhotoNotFound
	}
	if pv.Status != domain.PhotoStatusPending {
		return nil, ErrPhotoDecided
	}

	snap, err := repo.LoadFlagSnapshot(ctx, s.DB)
	if err != nil {
		return nil, err
	}

	now := s.Now()
	before := pv
	updates := map[string]any{"confidence": confidence}
	switch {
	case !snap.EnabledFor(domain.FlagPhotoVerification, pv.TripID) || confidence < s.ReviewThreshold:
		pv.ManualReview = true
		updates["manual_review"] = true
	case approved:
		pv.Status = domain.PhotoStatusApproved
		pv.VerifiedAt = &now
		updates["status"] = domain.PhotoStatusApproved
		updates["verified_at"] = now
	default:
		pv.Status = domain.PhotoStatusRejected
		pv.VerifiedAt = &now
		updates["status"] = domain.PhotoStatusRejected
		updates["verified_at"] = now
	}
	pv.Confidence = confidence

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.WithContext(ctx).
			Model(&domain.PhotoVerification{}).
			Where("id = ? AND status = ?", photoID, domain.PhotoStatusPending).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrPhotoDecided
		}
		return appendAudit(ctx, tx, domain.AuditPhotoVerified, "photo", pv.ID, ActorSystem, before, pv, snap)
	})
	if err != nil {
		return nil, err
	}
	observeTransition("photo", domain.AuditPhotoVerified)
	return &pv, nil
}

func (s *PhotoService) span(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return observability.StartSpan(ctx, "services/PhotoService", name, attrs...)
}
