package domain

import (
	"time"

	"gorm.io/gorm"
)

// PhotoStatus is the verification outcome of an uploaded trip photo.
type PhotoStatus string

const (
	PhotoStatusPending  PhotoStatus = "pending"
	PhotoStatusApproved PhotoStatus = "approved"
	PhotoStatusRejected PhotoStatus = "rejected"
)

// PhotoVerification attaches an uploaded photo, optional EXIF/GPS metadata,
// and a verification outcome to a trip. When automated confidence falls below
// the configured review threshold the record is flipped to manual review and
// stays pending until a human decides.
type PhotoVerification struct {
	ID           string            `json:"id"        gorm:"type:char(36);primaryKey"`
	TripID       string            `json:"trip_id"   gorm:"type:char(36);not null;index"`
	PhotoURL     string            `json:"photo_url" gorm:"type:varchar(512);not null"`
	EXIF         map[string]string `json:"exif,omitempty" gorm:"serializer:json"`
	GPSLat       *float64          `json:"gps_lat,omitempty"`
	GPSLng       *float64          `json:"gps_lng,omitempty"`
	Confidence   float64           `json:"confidence" gorm:"not null;default:0"`
	Status       PhotoStatus       `json:"status"     gorm:"type:varchar(16);not null;default:'pending';index"`
	ManualReview bool              `json:"manual_review" gorm:"not null;default:false"`
	VerifiedAt   *time.Time        `json:"verified_at,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
	DeletedAt    gorm.DeletedAt    `json:"-" gorm:"index"`

	Trip Trip `json:"-" gorm:"foreignKey:TripID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for PhotoVerification.
func (PhotoVerification) TableName() string { return "photo_verifications" }
