package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/mailkeeper/internal/common"
	"github.com/dmitrijs2005/mailkeeper/internal/dbx"
	"github.com/dmitrijs2005/mailkeeper/internal/models"
)

const columns = `id, identity_id, kind, active, host, port, protocol, auth_bk, auth_id,
		errors, last_error, last_error_at, last_activity,
		folder, archive_folder, post_fetch, fetch_frequency, max_fetch, allow_spoofing,
		created_at, updated_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAccount(row scanner) (*models.Account, error) {
	a := &models.Account{}
	var kind string
	var authBk, authID sql.NullString
	err := row.Scan(
		&a.ID, &a.IdentityID, &kind, &a.Active, &a.Host, &a.Port, &a.Protocol, &authBk, &authID,
		&a.Errors, &a.LastError, &a.LastErrorAt, &a.LastActivity,
		&a.Folder, &a.ArchiveFolder, &a.PostFetch, &a.FetchFrequency, &a.MaxFetch, &a.AllowSpoofing,
		&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	a.Kind = models.Kind(kind)
	a.AuthBk = authBk.String
	a.AuthID = authID.String
	return a, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func (r *PostgresRepository) Create(ctx context.Context, a *models.Account) error {
	query :=
		`INSERT INTO accounts (identity_id, kind, active, host, port, protocol, auth_bk, auth_id,
		    folder, archive_folder, post_fetch, fetch_frequency, max_fetch, allow_spoofing)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		 RETURNING id, created_at, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		a.IdentityID, string(a.Kind), a.Active, a.Host, a.Port, a.Protocol, nullable(a.AuthBk), nullable(a.AuthID),
		a.Folder, a.ArchiveFolder, a.PostFetch, a.FetchFrequency, a.MaxFetch, a.AllowSpoofing,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, id int64) (*models.Account, error) {
	a, err := scanAccount(r.db.QueryRowContext(ctx, `SELECT `+columns+` FROM accounts WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return a, nil
}

func (r *PostgresRepository) ListByIdentity(ctx context.Context, identityID int64) ([]*models.Account, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+columns+` FROM accounts WHERE identity_id = $1 ORDER BY kind`, identityID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []*models.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) Update(ctx context.Context, a *models.Account) error {
	query :=
		`UPDATE accounts
		 SET active = $2, host = $3, port = $4, protocol = $5, auth_bk = $6, auth_id = $7,
		     errors = $8, last_error = $9, last_error_at = $10, last_activity = $11,
		     folder = $12, archive_folder = $13, post_fetch = $14, fetch_frequency = $15, max_fetch = $16,
		     allow_spoofing = $17, updated_at = now()
		 WHERE id = $1
		 RETURNING updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		a.ID, a.Active, a.Host, a.Port, a.Protocol, nullable(a.AuthBk), nullable(a.AuthID),
		a.Errors, a.LastError, a.LastErrorAt, a.LastActivity,
		a.Folder, a.ArchiveFolder, a.PostFetch, a.FetchFrequency, a.MaxFetch,
		a.AllowSpoofing,
	).Scan(&a.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return common.ErrNotFound
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) UpdateActivity(ctx context.Context, a *models.Account) error {
	query :=
		`UPDATE accounts
		 SET errors = $2, last_error = $3, last_error_at = $4, last_activity = $5
		 WHERE id = $1
		 `

	res, err := r.db.ExecContext(ctx, query, a.ID, a.Errors, a.LastError, a.LastErrorAt, a.LastActivity)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return dbx.RequireOneRow(res, common.ErrNotFound)
}

func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return dbx.RequireOneRow(res, common.ErrNotFound)
}
