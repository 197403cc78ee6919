// Package domain defines the persistence models for trips, consent records,
// providers, RFPs, offers, and bookings. These types are mapped with GORM and
// form the core data layer of the booking and consent lifecycle.
package domain

import (
	"time"

	"gorm.io/gorm"
)

// TripStatus is the lifecycle state of a trip. Trips advance monotonically
// forward (planning → ready → booked → completed); cancellation is the only
// sideways edge and is allowed from any non-terminal state.
type TripStatus string

const (
	TripStatusPlanning  TripStatus = "planning"
	TripStatusReady     TripStatus = "ready"
	TripStatusBooked    TripStatus = "booked"
	TripStatusCompleted TripStatus = "completed"
	TripStatusCancelled TripStatus = "cancelled"
)

// tripRank orders the forward lifecycle; cancellation sits outside the order.
var tripRank = map[TripStatus]int{
	TripStatusPlanning:  0,
	TripStatusReady:     1,
	TripStatusBooked:    2,
	TripStatusCompleted: 3,
}

// CanAdvance reports whether a trip may move from s to next. Forward moves
// must be strictly monotonic; cancel is permitted unless s is terminal.
func (s TripStatus) CanAdvance(next TripStatus) bool {
	if s.Terminal() {
		return false
	}
	if next == TripStatusCancelled {
		return true
	}
	from, ok1 := tripRank[s]
	to, ok2 := tripRank[next]
	return ok1 && ok2 && to == from+1
}

// Terminal reports whether no further transitions are allowed.
func (s TripStatus) Terminal() bool {
	return s == TripStatusCompleted || s == TripStatusCancelled
}

// Trip represents a user's travel request together with the anonymized
// demographic profile used to solicit provider bids.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - UserID: identifier of the trip owner; indexed for efficient retrieval.
//   - Destination: free-form destination; DisplayDestination is the
//     normalized form used in anonymized requirements.
//   - StartDate / EndDate: planned travel window; StartDate anchors the
//     refund policy windows.
//   - Status: lifecycle state (see TripStatus).
//   - AgeBracket .. BudgetBracket: anonymized profile fields; these are the
//     only demographic values an RFP may carry.
//   - Questionnaire: free-form key/value answers, stored as JSON.
//   - PIIShared: true only while at least one active consent record
//     references this trip.
//   - DeletedAt: soft deletion marker; trips are never physically removed
//     (rows are retained for audit).
type Trip struct {
	ID                 string            `json:"id"          gorm:"type:char(36);primaryKey"`
	UserID             string            `json:"user_id"     gorm:"type:varchar(64);not null;index:idx_user_trips"`
	Destination        string            `json:"destination" gorm:"type:varchar(255);not null"`
	DisplayDestination string            `json:"display_destination" gorm:"type:varchar(255)"`
	StartDate          time.Time         `json:"start_date"`
	EndDate            time.Time         `json:"end_date"`
	Status             TripStatus        `json:"status"      gorm:"type:varchar(16);not null;default:'planning';index"`
	AgeBracket         string            `json:"age_bracket"    gorm:"type:varchar(16)"`
	Gender             string            `json:"gender"         gorm:"type:varchar(16)"`
	PartySize          int               `json:"party_size"     gorm:"not null;default:1"`
	TripType           string            `json:"trip_type"      gorm:"type:varchar(32)"`
	BudgetBracket      string            `json:"budget_bracket" gorm:"type:varchar(16)"`
	Questionnaire      map[string]string `json:"questionnaire"  gorm:"serializer:json"`
	PIIShared          bool              `json:"pii_shared"     gorm:"not null;default:false"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
	DeletedAt          gorm.DeletedAt    `json:"-"              gorm:"index"`
}

// TableName returns the database table name for Trip.
func (Trip) TableName() string { return "trips" }

// ConsentRecord grants permission to share specific PII categories for a trip
// for a bounded time. The record ID doubles as the consent token handed to
// callers. Revocation is permanent: a revoked token is never active again,
// regardless of its expiry.
type ConsentRecord struct {
	ID         string     `json:"id"         gorm:"type:char(36);primaryKey"`
	TripID     string     `json:"trip_id"    gorm:"type:char(36);not null;index"`
	Categories []string   `json:"categories" gorm:"serializer:json"`
	GrantedAt  time.Time  `json:"granted_at"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`

	// Trip is the parent travel request. Consent records are cascade-deleted
	// if their trip is removed.
	Trip Trip `json:"-" gorm:"foreignKey:TripID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for ConsentRecord.
func (ConsentRecord) TableName() string { return "consent_records" }

// Active reports whether the consent grant is usable at the given instant.
// A revoked record is inactive no matter what its expiry says.
func (c ConsentRecord) Active(now time.Time) bool {
	if c.RevokedAt != nil {
		return false
	}
	if c.ExpiresAt != nil && !now.Before(*c.ExpiresAt) {
		return false
	}
	return true
}

// Covers reports whether the grant includes every requested category.
func (c ConsentRecord) Covers(categories []string) bool {
	granted := make(map[string]struct{}, len(c.Categories))
	for _, g := range c.Categories {
		granted[g] = struct{}{}
	}
	for _, want := range categories {
		if _, ok := granted[want]; !ok {
			return false
		}
	}
	return true
}
