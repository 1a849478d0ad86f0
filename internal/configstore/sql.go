package configstore

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/dmitrijs2005/mailkeeper/internal/dbx"
)

type sqlQueries struct {
	selectAll string
	deleteNS  string
	insert    string
}

// sqlStore is shared by the PostgreSQL and SQLite stores; they differ only in
// placeholder syntax.
type sqlStore struct {
	db *sql.DB
	q  sqlQueries
}

func (s *sqlStore) GetAll(ctx context.Context, namespace string) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, s.q.selectAll, namespace)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (s *sqlStore) ReplaceAll(ctx context.Context, namespace string, values map[string]string) error {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx, s.q.deleteNS, namespace); err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		for _, k := range keys {
			if _, err := tx.ExecContext(ctx, s.q.insert, namespace, k, values[k]); err != nil {
				return fmt.Errorf("db error: %w", err)
			}
		}
		return nil
	})
}

func (s *sqlStore) Destroy(ctx context.Context, namespace string) error {
	if _, err := s.db.ExecContext(ctx, s.q.deleteNS, namespace); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
