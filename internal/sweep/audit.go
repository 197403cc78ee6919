package sweep

import (
	"context"
	"encoding/json"

	"gorm.io/gorm"

	"github.com/goaguide/go-trip-backend/internal/domain"
	"github.com/goaguide/go-trip-backend/internal/repo"
)

// appendSweepAudit writes the audit row for one sweep transition inside the
// same transaction as the conditional update, attributed to the system actor.
// The flag snapshot is the one taken at the start of the pass.
func appendSweepAudit(ctx context.Context, tx *gorm.DB, eventType, entityType, entityID string, before, after any, snap domain.FlagSnapshot) error {
	b, _ := json.Marshal(before)
	a, _ := json.Marshal(after)
	entry := &domain.AuditLog{
		EventType:  eventType,
		EntityType: entityType,
		EntityID:   entityID,
		Actor:      "system",
		Before:     string(b),
		After:      string(a),
		Flags:      snap.AuditJSON(),
	}
	return repo.AppendAudit(ctx, tx, entry)
}
