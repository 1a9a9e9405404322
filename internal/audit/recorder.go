// Package audit persists visibility change events. Recording is
// best-effort: failures are logged and swallowed so a broken audit
// table can never block an admin mutation.
package audit

import (
	"context"
	"log"

	"prepmap/api/internal/store"
)

type eventStore interface {
	InsertAuditEvent(ctx context.Context, event store.AuditEvent) error
	ListAuditEvents(ctx context.Context, filter store.AuditFilter) ([]store.AuditEvent, error)
}

type Recorder struct {
	store eventStore
}

func NewRecorder(eventStore eventStore) *Recorder {
	return &Recorder{store: eventStore}
}

func (r *Recorder) Record(ctx context.Context, event store.AuditEvent) {
	if err := r.store.InsertAuditEvent(ctx, event); err != nil {
		log.Printf("audit: record %s %s: %v", event.EntityType, event.EntityID, err)
	}
}

// List returns recent events for the admin trail view, newest first.
func (r *Recorder) List(ctx context.Context, filter store.AuditFilter) ([]store.AuditEvent, error) {
	return r.store.ListAuditEvents(ctx, filter)
}
