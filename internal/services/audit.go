// Package services – audit append path.
//
// Every mutating service method funnels its audit write through appendAudit,
// called inside the same GORM transaction as the state change it documents.
// If the append fails the whole transaction rolls back, so no state change is
// ever left unaudited and no failed mutation leaves a stray audit row.
package services

import (
	"context"
	"encoding/json"

	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/goaguide/go-trip-backend/internal/domain"
	"github.com/goaguide/go-trip-backend/internal/metrics"
	"github.com/goaguide/go-trip-backend/internal/repo"
)

// snapshotJSON renders an entity state for an audit row. A nil value becomes
// the empty string (creations have no "before").
func snapshotJSON(v any) string {
	if v == nil {
		return ""
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// traceIDFrom extracts the current OpenTelemetry trace id, if a span is
// recording. Audit rows carry it so an investigation can pivot from a trace
// to every state change it caused.
func traceIDFrom(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasTraceID() {
		return ""
	}
	return sc.TraceID().String()
}

// appendAudit writes one audit row inside tx. before/after are marshaled
// here so callers pass plain entities. The transition counter is NOT bumped
// here: callers observe it after the transaction commits, so a rollback can
// never leave the counter ahead of the log it mirrors.
func appendAudit(ctx context.Context, tx *gorm.DB, eventType, entityType, entityID, actor string, before, after any, snap domain.FlagSnapshot) error {
	entry := &domain.AuditLog{
		EventType:  eventType,
		EntityType: entityType,
		EntityID:   entityID,
		Actor:      actor,
		TraceID:    traceIDFrom(ctx),
		Before:     snapshotJSON(before),
		After:      snapshotJSON(after),
		Flags:      snap.AuditJSON(),
	}
	return repo.AppendAudit(ctx, tx, entry)
}

// observeTransition bumps the lifecycle transition counter. Call it only
// after the transaction holding the matching audit row has committed.
func observeTransition(entityType, eventType string) {
	metrics.TransitionsTotal.WithLabelValues(entityType, eventType).Inc()
}
