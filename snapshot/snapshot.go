// Package snapshot persists the last-known state of every observed mint
// between bot restarts.
package snapshot

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/mintwatch/mintwatch/audit"
)

const schema = `
CREATE TABLE IF NOT EXISTS mints (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL DEFAULT '',
	url        TEXT NOT NULL DEFAULT '',
	state      TEXT NOT NULL DEFAULT '',
	balance    INTEGER NOT NULL DEFAULT 0,
	updated_at INTEGER NOT NULL DEFAULT 0
);
`

// Store is a sqlite-backed map from mint id to its last-known record.
type Store struct {
	db *sqlx.DB
}

// Open opens (creating if needed) the snapshot database at path.
func Open(path string) (*Store, error) {
	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot at %s: %w", path, err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create snapshot schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Load returns every stored mint keyed by id.
func (s *Store) Load(ctx context.Context) (map[string]audit.Mint, error) {
	var mints []audit.Mint
	if err := s.db.SelectContext(ctx, &mints, "SELECT id, name, url, state, balance, updated_at FROM mints"); err != nil {
		return nil, err
	}

	known := make(map[string]audit.Mint, len(mints))
	for _, mint := range mints {
		known[mint.ID] = mint
	}
	return known, nil
}

// Put upserts one mint record.
func (s *Store) Put(ctx context.Context, mint audit.Mint) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO mints (id, name, url, state, balance, updated_at)
		VALUES (:id, :name, :url, :state, :balance, :updated_at)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			url = excluded.url,
			state = excluded.state,
			balance = excluded.balance,
			updated_at = excluded.updated_at`, mint)
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}
