package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/mailkeeper/internal/dbx"
	"github.com/dmitrijs2005/mailkeeper/internal/repositories/accounts"
	"github.com/dmitrijs2005/mailkeeper/internal/repositories/identities"
	"github.com/dmitrijs2005/mailkeeper/internal/repositories/instances"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Identities(db dbx.DBTX) identities.Repository
	Accounts(db dbx.DBTX) accounts.Repository
	Instances(db dbx.DBTX) instances.Repository
}
