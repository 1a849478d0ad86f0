// Package configstore implements the namespaced key/value store that holds
// per-account credential fields.
//
// Values are opaque strings; encryption happens above this package. Each
// backend replaces a namespace in one atomic step: a single SQL transaction,
// a single keyring item or a single S3 object.
package configstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/mailkeeper/internal/config"
	"github.com/dmitrijs2005/mailkeeper/internal/cryptox"
)

type Store interface {
	// GetAll returns every key of namespace. A missing namespace yields an
	// empty, non-nil map.
	GetAll(ctx context.Context, namespace string) (map[string]string, error)
	// ReplaceAll atomically replaces the whole namespace with values.
	ReplaceAll(ctx context.Context, namespace string, values map[string]string) error
	// Destroy removes the namespace. Destroying a missing namespace is not an
	// error.
	Destroy(ctx context.Context, namespace string) error
}

// Open builds the store selected by cfg.ConfigStore. db is only used by the
// postgres backend and may be nil otherwise.
func Open(ctx context.Context, cfg *config.Config, db *sql.DB) (Store, error) {
	switch cfg.ConfigStore {
	case config.StorePostgres:
		if db == nil {
			return nil, fmt.Errorf("postgres config store needs a database")
		}
		return NewPostgresStore(db), nil
	case config.StoreSQLite:
		return OpenSQLiteStore(ctx, cfg.SQLitePath)
	case config.StoreKeyring:
		return OpenKeyringStore(cfg.KeyringDir, cryptox.KeyringPassword(cfg.SecretKey))
	case config.StoreS3:
		return NewS3Store(ctx, cfg)
	case config.StoreMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown config store %q", cfg.ConfigStore)
	}
}

func copyMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
