package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/mailkeeper/internal/dbx"
	"github.com/dmitrijs2005/mailkeeper/internal/repositories/accounts"
	"github.com/dmitrijs2005/mailkeeper/internal/repositories/identities"
	"github.com/dmitrijs2005/mailkeeper/internal/repositories/instances"
)

// InMemoryRepositoryManager ignores the DBTX argument and always returns the
// same repositories, so state survives between calls.
type InMemoryRepositoryManager struct {
	identities *identities.MemoryRepository
	accounts   *accounts.MemoryRepository
	instances  *instances.MemoryRepository
}

func NewInMemoryRepositoryManager() *InMemoryRepositoryManager {
	return &InMemoryRepositoryManager{
		identities: identities.NewMemoryRepository(),
		accounts:   accounts.NewMemoryRepository(),
		instances:  instances.NewMemoryRepository(),
	}
}

func (m *InMemoryRepositoryManager) RunMigrations(context.Context, *sql.DB) error {
	return nil
}

func (m *InMemoryRepositoryManager) Identities(dbx.DBTX) identities.Repository {
	return m.identities
}

func (m *InMemoryRepositoryManager) Accounts(dbx.DBTX) accounts.Repository {
	return m.accounts
}

func (m *InMemoryRepositoryManager) Instances(dbx.DBTX) instances.Repository {
	return m.instances
}
