package domain

import (
	"encoding/json"
	"hash/fnv"
	"time"
)

// Well-known feature flag names read by the transition logic.
const (
	FlagAutoBooking       = "auto_booking"
	FlagMLRecommendations = "ml_recommendations"
	FlagPhotoVerification = "photo_verification"
)

// FeatureFlag is a named switch gating optional behavior. Enabled turns the
// flag on globally; Rollout (0–100) limits it to a deterministic percentage
// of entities when Enabled is true.
type FeatureFlag struct {
	Name        string    `json:"name"        gorm:"type:varchar(64);primaryKey"`
	Enabled     bool      `json:"enabled"     gorm:"not null;default:false"`
	Rollout     float64   `json:"rollout"     gorm:"not null;default:100"`
	Description string    `json:"description" gorm:"type:varchar(255)"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName returns the database table name for FeatureFlag.
func (FeatureFlag) TableName() string { return "feature_flags" }

// FlagSnapshot is an immutable view of the feature flags taken at the start
// of an operation. Decision points receive a snapshot instead of reading
// ambient state, so behavior is deterministic and testable for a fixed input.
type FlagSnapshot map[string]FeatureFlag

// AuditJSON renders the enabled state of every flag in the snapshot for an
// audit row's flags column. An empty snapshot renders as the empty string.
func (s FlagSnapshot) AuditJSON() string {
	if len(s) == 0 {
		return ""
	}
	out := make(map[string]bool, len(s))
	for name, f := range s {
		out[name] = f.Enabled
	}
	b, err := json.Marshal(out)
	if err != nil {
		return ""
	}
	return string(b)
}

// EnabledFor reports whether the named flag applies to the given entity.
// Percentage rollout buckets entities by a stable hash of their ID, so the
// same entity always lands on the same side of the rollout line.
func (s FlagSnapshot) EnabledFor(name, entityID string) bool {
	f, ok := s[name]
	if !ok || !f.Enabled {
		return false
	}
	if f.Rollout >= 100 {
		return true
	}
	if f.Rollout <= 0 {
		return false
	}
	h := fnv.New32a()
	h.Write([]byte(name))
	h.Write([]byte(":"))
	h.Write([]byte(entityID))
	bucket := float64(h.Sum32()%10000) / 100
	return bucket < f.Rollout
}
