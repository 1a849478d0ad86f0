package configstore

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/dmitrijs2005/mailkeeper/internal/filex"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS config (
  namespace TEXT NOT NULL,
  key       TEXT NOT NULL,
  value     TEXT NOT NULL,
  PRIMARY KEY (namespace, key)
);`

// SQLiteStore is the single-file variant of PostgresStore, for deployments
// without a database server.
type SQLiteStore struct {
	sqlStore
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{sqlStore{db: db, q: sqlQueries{
		selectAll: `SELECT key, value FROM config WHERE namespace = ?`,
		deleteNS:  `DELETE FROM config WHERE namespace = ?`,
		insert:    `INSERT INTO config (namespace, key, value) VALUES (?, ?, ?)`,
	}}}
}

// OpenSQLiteStore opens (or creates) the database at path and ensures the
// schema exists.
func OpenSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	path, err := filex.EnsureFileDir(path)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one writer keeps ReplaceAll serialised
	db.SetMaxOpenConns(1)

	s := NewSQLiteStore(db)
	if err := s.Init(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("init sqlite schema: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
