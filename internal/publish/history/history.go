// Package history records published index builds in PostgreSQL so operators
// can see which checksum each collection served and when.
package history

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/publish"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/postgres"
)

const schema = `
CREATE TABLE IF NOT EXISTS index_builds (
	build_id     UUID PRIMARY KEY,
	collection   TEXT NOT NULL,
	path         TEXT NOT NULL,
	checksum     TEXT NOT NULL,
	documents    INTEGER NOT NULL,
	terms        INTEGER NOT NULL,
	published_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS index_builds_collection_idx
	ON index_builds (collection, published_at DESC);`

// Store persists publish results.
type Store struct {
	db *postgres.Client
}

func New(db *postgres.Client) *Store {
	return &Store{db: db}
}

// EnsureSchema creates the index_builds table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.DB.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating index_builds table: %w", err)
	}
	return nil
}

// Record inserts one build row.
func (s *Store) Record(ctx context.Context, res *publish.Result) error {
	return s.db.InTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO index_builds (build_id, collection, path, checksum, documents, terms, published_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			res.BuildID, res.Collection, res.Path, res.Checksum, res.Documents, res.Terms, res.PublishedAt)
		if err != nil {
			return fmt.Errorf("inserting build %s: %w", res.BuildID, err)
		}
		return nil
	})
}

// Recent returns the newest builds for a collection, newest first.
func (s *Store) Recent(ctx context.Context, collection string, limit int) ([]publish.Result, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT build_id, collection, path, checksum, documents, terms, published_at
		FROM index_builds WHERE collection = $1
		ORDER BY published_at DESC LIMIT $2`, collection, limit)
	if err != nil {
		return nil, fmt.Errorf("querying builds for %s: %w", collection, err)
	}
	defer rows.Close()

	var out []publish.Result
	for rows.Next() {
		var r publish.Result
		if err := rows.Scan(&r.BuildID, &r.Collection, &r.Path, &r.Checksum, &r.Documents, &r.Terms, &r.PublishedAt); err != nil {
			return nil, fmt.Errorf("scanning build row: %w", err)
		}
		r.Status = publish.StatusPublished
		out = append(out, r)
	}
	return out, rows.Err()
}
