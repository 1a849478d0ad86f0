package instances

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/mailkeeper/internal/common"
	"github.com/dmitrijs2005/mailkeeper/internal/dbx"
	"github.com/dmitrijs2005/mailkeeper/internal/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*models.OAuth2Instance, error) {
	query :=
		`SELECT id, backend, client_id, client_secret, scopes, redirect_url, tenant, enabled, created_at, updated_at
		 FROM oauth2_instances
		 WHERE id = $1
		 `

	inst := &models.OAuth2Instance{}
	var scopes string
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&inst.ID, &inst.Backend, &inst.ClientID, &inst.ClientSecret, &scopes,
		&inst.RedirectURL, &inst.Tenant, &inst.Enabled, &inst.CreatedAt, &inst.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	inst.Scopes = strings.Fields(scopes)
	return inst, nil
}

func (r *PostgresRepository) Create(ctx context.Context, inst *models.OAuth2Instance) error {
	query :=
		`INSERT INTO oauth2_instances (id, backend, client_id, client_secret, scopes, redirect_url, tenant, enabled)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING created_at, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		inst.ID, inst.Backend, inst.ClientID, inst.ClientSecret, strings.Join(inst.Scopes, " "),
		inst.RedirectURL, inst.Tenant, inst.Enabled).Scan(&inst.CreatedAt, &inst.UpdatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Update(ctx context.Context, inst *models.OAuth2Instance) error {
	query :=
		`UPDATE oauth2_instances
		 SET client_id = $2, client_secret = $3, scopes = $4, redirect_url = $5, tenant = $6, enabled = $7, updated_at = now()
		 WHERE id = $1
		 `

	res, err := r.db.ExecContext(ctx, query,
		inst.ID, inst.ClientID, inst.ClientSecret, strings.Join(inst.Scopes, " "),
		inst.RedirectURL, inst.Tenant, inst.Enabled)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return dbx.RequireOneRow(res, common.ErrNotFound)
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM oauth2_instances WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return dbx.RequireOneRow(res, common.ErrNotFound)
}
