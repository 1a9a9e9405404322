package store

import (
	"context"
	"database/sql"
)

// PostgresStore implements the persistence interfaces consumed by the
// catalog, visibility and audit packages over a single *sql.DB. Queries
// live in the per-entity files (visibility.go, catalog.go, audit.go).
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
