package domain

import (
	"time"

	"gorm.io/gorm"
)

// KYCStatus is a provider's identity verification state.
type KYCStatus string

const (
	KYCStatusPending  KYCStatus = "pending"
	KYCStatusVerified KYCStatus = "verified"
	KYCStatusRejected KYCStatus = "rejected"
)

// Provider is a vendor able to bid on RFPs. Only verified, active providers
// may submit offers; the check lives in the validation layer, not the schema.
type Provider struct {
	ID        string         `json:"id"         gorm:"type:char(36);primaryKey"`
	Name      string         `json:"name"       gorm:"type:varchar(255);not null"`
	KYCStatus KYCStatus      `json:"kyc_status" gorm:"type:varchar(16);not null;default:'pending';index"`
	Rating    float64        `json:"rating"     gorm:"not null;default:0"`
	Active    bool           `json:"active"     gorm:"not null;default:true"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"          gorm:"index"`
}

// TableName returns the database table name for Provider.
func (Provider) TableName() string { return "providers" }

// Verified reports whether the provider may participate in the marketplace.
func (p Provider) Verified() bool { return p.KYCStatus == KYCStatusVerified && p.Active }

// RFPStatus is the lifecycle state of a request for proposals.
type RFPStatus string

const (
	RFPStatusActive  RFPStatus = "active"
	RFPStatusExpired RFPStatus = "expired"
	RFPStatusClosed  RFPStatus = "closed"
)

// RFP is an anonymized solicitation of provider bids derived from a trip.
// AnonymizedRequirements may only carry allow-listed fields; the privacy
// layer validates this before every publish.
//
// AcceptedOfferID is set at most once. The conditional update guarding it
// (see repo.MarkRFPAccepted) is the serialization point that makes exactly
// one concurrent acceptance win.
type RFP struct {
	ID                     string            `json:"id"      gorm:"type:char(36);primaryKey"`
	TripID                 string            `json:"trip_id" gorm:"type:char(36);not null;index"`
	AnonymizedRequirements map[string]string `json:"anonymized_requirements" gorm:"serializer:json"`
	BudgetMin              int64             `json:"budget_min" gorm:"not null"`
	BudgetMax              int64             `json:"budget_max" gorm:"not null"`
	Currency               string            `json:"currency"   gorm:"type:char(3);not null;default:'EUR'"`
	Status                 RFPStatus         `json:"status"     gorm:"type:varchar(16);not null;default:'active';index"`
	ExpiresAt              time.Time         `json:"expires_at" gorm:"index"`
	AcceptedOfferID        *string           `json:"accepted_offer_id,omitempty" gorm:"type:char(36)"`
	CreatedAt              time.Time         `json:"created_at"`
	UpdatedAt              time.Time         `json:"updated_at"`
	DeletedAt              gorm.DeletedAt    `json:"-" gorm:"index"`

	Trip Trip `json:"-" gorm:"foreignKey:TripID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for RFP.
func (RFP) TableName() string { return "rfps" }

// OfferStatus is the lifecycle state of a provider bid.
type OfferStatus string

const (
	OfferStatusActive   OfferStatus = "active"
	OfferStatusExpired  OfferStatus = "expired"
	OfferStatusAccepted OfferStatus = "accepted"
	OfferStatusRejected OfferStatus = "rejected"
)

// Decided reports whether the offer has reached a final state.
func (s OfferStatus) Decided() bool {
	return s == OfferStatusAccepted || s == OfferStatusRejected || s == OfferStatusExpired
}

// Offer is a provider's bid against an RFP. Price is in minor currency units
// (cents); it is copied verbatim onto the booking at hold time and never
// changes afterwards.
type Offer struct {
	ID         string         `json:"id"          gorm:"type:char(36);primaryKey"`
	RFPID      string         `json:"rfp_id"      gorm:"type:char(36);not null;index"`
	ProviderID string         `json:"provider_id" gorm:"type:char(36);not null;index"`
	Price      int64          `json:"price"       gorm:"not null"`
	Currency   string         `json:"currency"    gorm:"type:char(3);not null"`
	Inclusions []string       `json:"inclusions"  gorm:"serializer:json"`
	ValidFrom  time.Time      `json:"valid_from"`
	ValidUntil time.Time      `json:"valid_until" gorm:"index"`
	Status     OfferStatus    `json:"status"      gorm:"type:varchar(16);not null;default:'active';index"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `json:"-" gorm:"index"`

	RFP      RFP      `json:"-" gorm:"foreignKey:RFPID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Provider Provider `json:"-" gorm:"foreignKey:ProviderID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Offer.
func (Offer) TableName() string { return "offers" }
