package store

import (
	"context"
	"fmt"
)

const roadmapColumns = `slug, title, COALESCE(description, ''), COALESCE(nodes_json::text, '[]'), COALESCE(edges_json::text, '[]'), updated_by, created_at, updated_at`

func scanRoadmap(row interface{ Scan(...any) error }) (Roadmap, error) {
	var item Roadmap
	err := row.Scan(
		&item.Slug,
		&item.Title,
		&item.Description,
		&item.Nodes,
		&item.Edges,
		&item.UpdatedBy,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	return item, err
}

// GetRoadmap returns sql.ErrNoRows for unknown slugs; the catalog service
// maps that to its nil-roadmap contract.
func (s *PostgresStore) GetRoadmap(ctx context.Context, slug string) (Roadmap, error) {
	item, err := scanRoadmap(s.db.QueryRowContext(ctx, `
		SELECT `+roadmapColumns+`
		FROM roadmaps
		WHERE slug=$1
	`, slug))
	if err != nil {
		return Roadmap{}, err
	}
	return item, nil
}

func (s *PostgresStore) ListRoadmaps(ctx context.Context) ([]Roadmap, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+roadmapColumns+`
		FROM roadmaps
		ORDER BY title ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list roadmaps: %w", err)
	}
	defer rows.Close()

	items := make([]Roadmap, 0)
	for rows.Next() {
		item, err := scanRoadmap(rows)
		if err != nil {
			return nil, fmt.Errorf("scan roadmap: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate roadmaps: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) UpsertRoadmap(ctx context.Context, input Roadmap) (Roadmap, error) {
	item, err := scanRoadmap(s.db.QueryRowContext(ctx, `
		INSERT INTO roadmaps (slug, title, description, nodes_json, edges_json, updated_by)
		VALUES ($1, $2, $3, $4::jsonb, $5::jsonb, $6)
		ON CONFLICT (slug) DO UPDATE SET
			title=EXCLUDED.title,
			description=EXCLUDED.description,
			nodes_json=EXCLUDED.nodes_json,
			edges_json=EXCLUDED.edges_json,
			updated_by=EXCLUDED.updated_by,
			updated_at=NOW()
		RETURNING `+roadmapColumns+`
	`, input.Slug, input.Title, input.Description, input.Nodes, input.Edges, input.UpdatedBy))
	if err != nil {
		return Roadmap{}, fmt.Errorf("upsert roadmap: %w", err)
	}
	return item, nil
}

func (s *PostgresStore) DeleteRoadmap(ctx context.Context, slug string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM roadmaps WHERE slug=$1`, slug)
	if err != nil {
		return false, fmt.Errorf("delete roadmap: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete roadmap rows: %w", err)
	}
	return affected > 0, nil
}
