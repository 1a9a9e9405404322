package search

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
)

// PgFTS implements Searcher using PostgreSQL full-text search as a
// fallback. The query joins visibility_settings so only roadmaps with a
// public flag ever match; roadmaps are hierarchy roots, so the own flag
// is already the effective verdict.
type PgFTS struct {
	db *sql.DB
}

// NewPgFTS creates a PostgreSQL FTS searcher.
func NewPgFTS(db *sql.DB) *PgFTS {
	return &PgFTS{db: db}
}

// Healthy always returns true. If Postgres is down, the whole app is down.
func (p *PgFTS) Healthy() bool {
	return true
}

// Search matches public roadmaps with plainto_tsquery, ranked by ts_rank,
// snippets via ts_headline.
func (p *PgFTS) Search(q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, 0, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	const baseSQL = `
		FROM roadmaps r
		JOIN visibility_settings v
			ON v.entity_type = 'roadmap' AND v.entity_id = r.slug AND v.is_public
		WHERE r.fts @@ plainto_tsquery('english', $1)`

	ctx := context.Background()

	var total int
	if err := p.db.QueryRowContext(ctx, "SELECT count(*) "+baseSQL, q.Text).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgfts count: %w", err)
	}

	dataSQL := fmt.Sprintf(`
		SELECT r.slug, r.title,
			ts_headline('english', coalesce(r.description, ''), plainto_tsquery('english', $1), 'MaxFragments=1,MaxWords=30') AS snippet
		%s
		ORDER BY ts_rank(r.fts, plainto_tsquery('english', $1)) DESC
		LIMIT %d OFFSET %d`, baseSQL, limit, offset)

	rows, err := p.db.QueryContext(ctx, dataSQL, q.Text)
	if err != nil {
		return nil, 0, fmt.Errorf("pgfts query: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.Slug, &r.Title, &r.Snippet); err != nil {
			return nil, 0, fmt.Errorf("pgfts scan: %w", err)
		}
		results = append(results, r)
	}

	return results, total, rows.Err()
}

// LoadPublicRecords returns all public roadmaps for full reindexing into
// Meilisearch. Milestone titles come out of the stored nodes JSON.
func (p *PgFTS) LoadPublicRecords(ctx context.Context) ([]RoadmapRecord, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT r.slug, r.title, coalesce(r.description, ''),
			coalesce((SELECT jsonb_agg(node->>'title') FROM jsonb_array_elements(r.nodes_json) node), '[]'::jsonb)
		FROM roadmaps r
		JOIN visibility_settings v
			ON v.entity_type = 'roadmap' AND v.entity_id = r.slug AND v.is_public
	`)
	if err != nil {
		return nil, fmt.Errorf("load public roadmaps: %w", err)
	}
	defer rows.Close()

	records := make([]RoadmapRecord, 0)
	for rows.Next() {
		var record RoadmapRecord
		var milestones []byte
		if err := rows.Scan(&record.Slug, &record.Title, &record.Description, &milestones); err != nil {
			return nil, fmt.Errorf("scan roadmap record: %w", err)
		}
		if err := json.Unmarshal(milestones, &record.Milestones); err != nil {
			return nil, fmt.Errorf("decode milestone titles: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate roadmap records: %w", err)
	}
	return records, nil
}
