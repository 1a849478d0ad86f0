package repomanager

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/mailkeeper/internal/models"
	"github.com/dmitrijs2005/mailkeeper/internal/repositories/accounts"
	"github.com/dmitrijs2005/mailkeeper/internal/repositories/identities"
	"github.com/dmitrijs2005/mailkeeper/internal/repositories/instances"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return db, mock
}

func TestNewPostgresRepositoryManager_ReturnsInterface(t *testing.T) {
	var _ RepositoryManager = NewPostgresRepositoryManager()
	var _ RepositoryManager = NewInMemoryRepositoryManager()
}

func TestFactories_ReturnConcreteRepos(t *testing.T) {
	db, _ := newDB(t)
	defer db.Close()

	m := &PostgresRepositoryManager{}

	if r := m.Identities(db); r == nil {
		t.Fatal("Identities() nil")
	}
	if r := m.Accounts(db); r == nil {
		t.Fatal("Accounts() nil")
	}
	if r := m.Instances(db); r == nil {
		t.Fatal("Instances() nil")
	}

	var _ identities.Repository = m.Identities(db)
	var _ accounts.Repository = m.Accounts(db)
	var _ instances.Repository = m.Instances(db)
}

func TestRunMigrations_Success(t *testing.T) {
	db, _ := newDB(t)
	defer db.Close()

	orig := gooseUpContext
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		if dir != "." {
			return errors.New("unexpected dir")
		}
		if len(opts) != 0 {
			return errors.New("unexpected opts")
		}
		return nil
	}
	defer func() { gooseUpContext = orig }()

	m := &PostgresRepositoryManager{}
	if err := m.RunMigrations(context.Background(), db); err != nil {
		t.Fatalf("RunMigrations error: %v", err)
	}
}

func TestRunMigrations_Error(t *testing.T) {
	db, _ := newDB(t)
	defer db.Close()

	orig := gooseUpContext
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		return errors.New("boom")
	}
	defer func() { gooseUpContext = orig }()

	m := &PostgresRepositoryManager{}
	if err := m.RunMigrations(context.Background(), db); err == nil || err.Error() != "boom" {
		t.Fatalf("expected boom, got %v", err)
	}
}

func TestInMemoryManager_SharesState(t *testing.T) {
	ctx := context.Background()
	m := NewInMemoryRepositoryManager()
	require.NoError(t, m.RunMigrations(ctx, nil))

	id := &models.Identity{Email: "a@example.com", Name: "A"}
	require.NoError(t, m.Identities(nil).Create(ctx, id))

	got, err := m.Identities(nil).Get(ctx, id.ID)
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", got.Email)
}
