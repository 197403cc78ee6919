package domain

import "time"

// Audit event types appended by the lifecycle services. Every state-affecting
// transition writes exactly one row with one of these types.
const (
	AuditTripCreated      = "trip.created"
	AuditTripAdvanced     = "trip.advanced"
	AuditTripCancelled    = "trip.cancelled"
	AuditConsentGranted   = "consent.granted"
	AuditConsentRevoked   = "consent.revoked"
	AuditRFPPublished     = "rfp.published"
	AuditRFPExpired       = "rfp.expired"
	AuditOfferSubmitted   = "offer.submitted"
	AuditOfferAccepted    = "offer.accepted"
	AuditOfferRejected    = "offer.rejected"
	AuditOfferExpired     = "offer.expired"
	AuditBookingCreated   = "booking.created"
	AuditBookingConfirmed = "booking.confirmed"
	AuditBookingCancelled = "booking.cancelled"
	AuditBookingRefunded  = "booking.refunded"
	AuditBookingExpired   = "booking.hold_expired"
	AuditPhotoSubmitted   = "photo.submitted"
	AuditPhotoVerified    = "photo.verified"
)

// AuditLog is one immutable row per state-affecting event. Rows are written
// in the same transaction as the state change they document and are never
// updated or deleted; the repository exposes only Append and read queries.
//
// Before and After hold JSON snapshots of the entity around the transition
// (Before is empty for creations). Flags captures the feature-flag snapshot
// that was active when the decision was made.
type AuditLog struct {
	ID         string    `json:"id"          gorm:"type:char(36);primaryKey"`
	EventType  string    `json:"event_type"  gorm:"type:varchar(64);not null;index"`
	EntityType string    `json:"entity_type" gorm:"type:varchar(32);not null;index:idx_audit_entity,priority:1"`
	EntityID   string    `json:"entity_id"   gorm:"type:char(36);not null;index:idx_audit_entity,priority:2"`
	Actor      string    `json:"actor"       gorm:"type:varchar(64);not null;index"`
	TraceID    string    `json:"trace_id"    gorm:"type:varchar(64);index"`
	Before     string    `json:"before,omitempty" gorm:"type:text"`
	After      string    `json:"after,omitempty"  gorm:"type:text"`
	Flags      string    `json:"flags,omitempty"  gorm:"type:text"`
	CreatedAt  time.Time `json:"created_at"  gorm:"index"`
}

// TableName returns the database table name for AuditLog.
func (AuditLog) TableName() string { return "audit_log" }
