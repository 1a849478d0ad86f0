package configstore

import (
	"database/sql"
)

// PostgresStore keeps namespaces in the "config" table created by the
// embedded migrations.
type PostgresStore struct {
	sqlStore
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{sqlStore{db: db, q: sqlQueries{
		selectAll: `SELECT key, value FROM config WHERE namespace = $1`,
		deleteNS:  `DELETE FROM config WHERE namespace = $1`,
		insert:    `INSERT INTO config (namespace, key, value) VALUES ($1, $2, $3)`,
	}}}
}
