package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"prepmap/api/internal/util"
)

const visibilityColumns = `id, entity_type, entity_id, COALESCE(parent_roadmap_slug, ''), COALESCE(parent_milestone_id, ''), is_public, updated_by, created_at, updated_at`

func scanVisibility(row interface{ Scan(...any) error }) (VisibilitySetting, error) {
	var item VisibilitySetting
	err := row.Scan(
		&item.ID,
		&item.EntityType,
		&item.EntityID,
		&item.ParentRoadmapSlug,
		&item.ParentMilestoneID,
		&item.IsPublic,
		&item.UpdatedBy,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	return item, err
}

func (s *PostgresStore) GetVisibility(ctx context.Context, entityType, entityID string) (VisibilitySetting, bool, error) {
	item, err := scanVisibility(s.db.QueryRowContext(ctx, `
		SELECT `+visibilityColumns+`
		FROM visibility_settings
		WHERE entity_type=$1 AND entity_id=$2
	`, entityType, entityID))
	if errors.Is(err, sql.ErrNoRows) {
		return VisibilitySetting{}, false, nil
	}
	if err != nil {
		return VisibilitySetting{}, false, fmt.Errorf("get visibility: %w", err)
	}
	return item, true, nil
}

// GetVisibilityBatch returns settings keyed by entity id. Entities without
// a record are omitted, never an error.
func (s *PostgresStore) GetVisibilityBatch(ctx context.Context, entityType string, entityIDs []string) (map[string]VisibilitySetting, error) {
	result := make(map[string]VisibilitySetting, len(entityIDs))
	if len(entityIDs) == 0 {
		return result, nil
	}
	placeholders := make([]string, 0, len(entityIDs))
	args := []any{entityType}
	for i, id := range entityIDs {
		placeholders = append(placeholders, fmt.Sprintf("$%d", i+2))
		args = append(args, id)
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+visibilityColumns+`
		FROM visibility_settings
		WHERE entity_type=$1 AND entity_id IN (`+strings.Join(placeholders, ", ")+`)
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("batch get visibility: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		item, err := scanVisibility(rows)
		if err != nil {
			return nil, fmt.Errorf("scan visibility: %w", err)
		}
		result[item.EntityID] = item
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate visibility: %w", err)
	}
	return result, nil
}

// UpsertVisibility writes the latest setting for (entity_type, entity_id).
// The first write assigns id and created_at; every write refreshes
// is_public, updated_by and updated_at.
func (s *PostgresStore) UpsertVisibility(ctx context.Context, input CreateVisibilitySetting) (VisibilitySetting, error) {
	item, err := scanVisibility(s.db.QueryRowContext(ctx, `
		INSERT INTO visibility_settings (id, entity_type, entity_id, parent_roadmap_slug, parent_milestone_id, is_public, updated_by)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6, $7)
		ON CONFLICT (entity_type, entity_id) DO UPDATE SET
			parent_roadmap_slug=EXCLUDED.parent_roadmap_slug,
			parent_milestone_id=EXCLUDED.parent_milestone_id,
			is_public=EXCLUDED.is_public,
			updated_by=EXCLUDED.updated_by,
			updated_at=NOW()
		RETURNING `+visibilityColumns+`
	`, util.NewID("vis"), input.EntityType, input.EntityID, input.ParentRoadmapSlug, input.ParentMilestoneID, input.IsPublic, input.UpdatedBy))
	if err != nil {
		return VisibilitySetting{}, fmt.Errorf("upsert visibility: %w", err)
	}
	return item, nil
}

// UpsertVisibilityBatch applies each upsert independently. A failure stops
// the batch but leaves already-applied records intact; there is no
// cross-record atomicity.
func (s *PostgresStore) UpsertVisibilityBatch(ctx context.Context, inputs []CreateVisibilitySetting) ([]VisibilitySetting, error) {
	items := make([]VisibilitySetting, 0, len(inputs))
	for _, input := range inputs {
		item, err := s.UpsertVisibility(ctx, input)
		if err != nil {
			return items, err
		}
		items = append(items, item)
	}
	return items, nil
}

// FindPublicEntities lists entity ids of the given type whose own flag is
// public. Ancestors are not consulted.
func (s *PostgresStore) FindPublicEntities(ctx context.Context, entityType string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT entity_id
		FROM visibility_settings
		WHERE entity_type=$1 AND is_public
		ORDER BY entity_id ASC
	`, entityType)
	if err != nil {
		return nil, fmt.Errorf("find public entities: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan entity id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entity ids: %w", err)
	}
	return ids, nil
}

// FindVisibilityByParent lists child settings: milestones under a roadmap
// slug, objectives under a milestone id.
func (s *PostgresStore) FindVisibilityByParent(ctx context.Context, entityType, parentID string) ([]VisibilitySetting, error) {
	parentColumn := "parent_roadmap_slug"
	if entityType == EntityObjective {
		parentColumn = "parent_milestone_id"
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+visibilityColumns+`
		FROM visibility_settings
		WHERE entity_type=$1 AND `+parentColumn+`=$2
		ORDER BY entity_id ASC
	`, entityType, parentID)
	if err != nil {
		return nil, fmt.Errorf("find visibility by parent: %w", err)
	}
	defer rows.Close()

	items := make([]VisibilitySetting, 0)
	for rows.Next() {
		item, err := scanVisibility(rows)
		if err != nil {
			return nil, fmt.Errorf("scan visibility: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate visibility: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) DeleteVisibility(ctx context.Context, entityType, entityID string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM visibility_settings WHERE entity_type=$1 AND entity_id=$2
	`, entityType, entityID)
	if err != nil {
		return false, fmt.Errorf("delete visibility: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete visibility rows: %w", err)
	}
	return affected > 0, nil
}

func (s *PostgresStore) VisibilityExists(ctx context.Context, entityType, entityID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM visibility_settings WHERE entity_type=$1 AND entity_id=$2)
	`, entityType, entityID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check visibility exists: %w", err)
	}
	return exists, nil
}
