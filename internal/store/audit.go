package store

import (
	"context"
	"fmt"
)

func (s *PostgresStore) InsertAuditEvent(ctx context.Context, event AuditEvent) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_events (actor, entity_type, entity_id, previous_public, new_public, parent_roadmap_slug, parent_milestone_id)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NULLIF($7, ''))
	`, event.Actor, event.EntityType, event.EntityID, event.PreviousPublic, event.NewPublic, event.ParentRoadmapSlug, event.ParentMilestoneID)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListAuditEvents(ctx context.Context, filter AuditFilter) ([]AuditEvent, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, actor, entity_type, entity_id, previous_public, new_public, COALESCE(parent_roadmap_slug, ''), COALESCE(parent_milestone_id, ''), created_at
		FROM audit_events
		WHERE ($1='' OR entity_type=$1)
		  AND ($2='' OR entity_id=$2)
		  AND ($3='' OR actor=$3)
		ORDER BY created_at DESC, id DESC
		LIMIT $4
	`, filter.EntityType, filter.EntityID, filter.Actor, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	items := make([]AuditEvent, 0)
	for rows.Next() {
		var item AuditEvent
		if err := rows.Scan(
			&item.ID,
			&item.Actor,
			&item.EntityType,
			&item.EntityID,
			&item.PreviousPublic,
			&item.NewPublic,
			&item.ParentRoadmapSlug,
			&item.ParentMilestoneID,
			&item.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return items, nil
}
