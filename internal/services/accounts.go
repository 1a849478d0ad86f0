// Package services contains the account lifecycle: identities, their mailbox
// and SMTP accounts, credential capture and the OAuth2 authorization flow.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/dmitrijs2005/mailkeeper/internal/common"
	"github.com/dmitrijs2005/mailkeeper/internal/config"
	"github.com/dmitrijs2005/mailkeeper/internal/configstore"
	"github.com/dmitrijs2005/mailkeeper/internal/cryptox"
	"github.com/dmitrijs2005/mailkeeper/internal/dbx"
	"github.com/dmitrijs2005/mailkeeper/internal/logging"
	"github.com/dmitrijs2005/mailkeeper/internal/models"
	"github.com/dmitrijs2005/mailkeeper/internal/repositories/repomanager"
	"github.com/dmitrijs2005/mailkeeper/internal/resolver"
	"github.com/dmitrijs2005/mailkeeper/internal/transport"
)

// AccountService drives identities and accounts through their lifecycle.
// It is the resolver's activity log and account writer.
type AccountService struct {
	db           *sql.DB
	repomanager  repomanager.RepositoryManager
	resolver     *resolver.Resolver
	store        configstore.Store
	dialer       transport.Dialer
	logger       logging.Logger
	stateSecret  []byte
	stateTTL     time.Duration
	linkSecret   []byte
	linkTTL      time.Duration
	publicURL    string
	probeTimeout time.Duration

	now func() time.Time
}

// NewAccountService wires the service and binds it to r. db may be nil when
// m does not need a database (in-memory repositories).
func NewAccountService(db *sql.DB, m repomanager.RepositoryManager, r *resolver.Resolver, store configstore.Store, dialer transport.Dialer, cfg *config.Config, logger logging.Logger) *AccountService {
	s := &AccountService{
		db:           db,
		repomanager:  m,
		resolver:     r,
		store:        store,
		dialer:       dialer,
		logger:       logger,
		stateSecret:  cryptox.StateKey(cfg.SecretKey),
		stateTTL:     cfg.StateTTL,
		linkSecret:   cryptox.LinkKey(cfg.SecretKey),
		linkTTL:      cfg.LinkTTL,
		publicURL:    strings.TrimRight(cfg.PublicURL, "/"),
		probeTimeout: cfg.ProbeTimeout,
		now:          time.Now,
	}
	r.Bind(s, s)
	return s
}

func (s *AccountService) withTx(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) error {
	if s.db == nil {
		return fn(ctx, nil)
	}
	return dbx.WithTx(ctx, s.db, nil, fn)
}

func validAddress(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

// CreateIdentity adds an identity with an inactive mailbox and SMTP account.
func (s *AccountService) CreateIdentity(ctx context.Context, email, name string) (*models.Identity, error) {
	email, name = strings.TrimSpace(email), strings.TrimSpace(name)
	errs := common.ValidationErrors{}
	if !validAddress(email) {
		errs.Add("email", "valid email required")
	}
	if name == "" {
		errs.Add("name", "email name required")
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}

	identity := &models.Identity{Email: email, Name: name}
	err := s.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Identities(tx).Create(ctx, identity); err != nil {
			return err
		}
		for _, kind := range []models.Kind{models.KindMailbox, models.KindSMTP} {
			a := models.NewAccount(identity.ID, kind)
			if err := s.repomanager.Accounts(tx).Create(ctx, a); err != nil {
				return fmt.Errorf("create %s account: %w", kind, err)
			}
			identity.Attach(a)
		}
		return nil
	})
	if errors.Is(err, common.ErrAlreadyExists) {
		errs.Add("email", "email already exists")
		return nil, errs
	}
	if err != nil {
		return nil, fmt.Errorf("error creating identity: %w", err)
	}

	s.logger.Info(ctx, "identity created", "identity", identity.ID, "email", identity.Email)
	return identity, nil
}

func (s *AccountService) load(ctx context.Context, identity *models.Identity) (*models.Identity, error) {
	accounts, err := s.repomanager.Accounts(s.db).ListByIdentity(ctx, identity.ID)
	if err != nil {
		return nil, fmt.Errorf("error loading accounts: %w", err)
	}
	for _, a := range accounts {
		identity.Attach(a)
	}
	return identity, nil
}

// Identity loads an identity together with its accounts.
func (s *AccountService) Identity(ctx context.Context, id int64) (*models.Identity, error) {
	identity, err := s.repomanager.Identities(s.db).Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.load(ctx, identity)
}

// IdentityByEmail is Identity keyed by address.
func (s *AccountService) IdentityByEmail(ctx context.Context, email string) (*models.Identity, error) {
	identity, err := s.repomanager.Identities(s.db).GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	return s.load(ctx, identity)
}

func (s *AccountService) Identities(ctx context.Context) ([]*models.Identity, error) {
	list, err := s.repomanager.Identities(s.db).List(ctx)
	if err != nil {
		return nil, err
	}
	for _, identity := range list {
		if _, err := s.load(ctx, identity); err != nil {
			return nil, err
		}
	}
	return list, nil
}

// Account loads a single account with its identity and sibling account.
func (s *AccountService) Account(ctx context.Context, id int64) (*models.Account, error) {
	a, err := s.repomanager.Accounts(s.db).Get(ctx, id)
	if err != nil {
		return nil, err
	}
	identity, err := s.Identity(ctx, a.IdentityID)
	if err != nil {
		return nil, err
	}
	switch a.Kind {
	case models.KindMailbox:
		return identity.Mailbox, nil
	default:
		return identity.SMTP, nil
	}
}

// LogActivity records the outcome of a fetch, send or refresh attempt.
func (s *AccountService) LogActivity(ctx context.Context, a *models.Account, errMsg *string) error {
	if errMsg != nil {
		a.RecordError(*errMsg, s.now().UTC())
	} else {
		a.RecordSuccess(s.now().UTC())
	}
	if err := s.repomanager.Accounts(s.db).UpdateActivity(ctx, a); err != nil {
		return fmt.Errorf("error saving activity: %w", err)
	}
	return nil
}

// SaveAccount persists a after its backend selection changed.
func (s *AccountService) SaveAccount(ctx context.Context, a *models.Account) error {
	return s.repomanager.Accounts(s.db).Update(ctx, a)
}

// ShouldAuthorize reports whether the OAuth2 authorization has to be redone.
func (s *AccountService) ShouldAuthorize(ctx context.Context, a *models.Account) (bool, error) {
	return s.resolver.ShouldAuthorize(ctx, a)
}

// DeleteAccount destroys the stored credentials, the OAuth2 instance and the
// account record.
func (s *AccountService) DeleteAccount(ctx context.Context, a *models.Account) error {
	if err := s.store.Destroy(ctx, a.Namespace()); err != nil {
		return fmt.Errorf("error destroying credentials: %w", err)
	}
	if a.IsOAuth() && a.AuthID != "" {
		if p, err := s.resolver.Registry().OAuth2(a.AuthBk); err == nil {
			if err := p.DeletePluginInstance(ctx, a.AuthID); err != nil {
				return fmt.Errorf("error deleting oauth2 instance: %w", err)
			}
		} else {
			s.logger.Warn(ctx, "oauth2 backend gone, instance left behind", "account", a.ID, "auth_bk", a.AuthBk)
		}
	}
	if err := s.repomanager.Accounts(s.db).Delete(ctx, a.ID); err != nil && !errors.Is(err, common.ErrNotFound) {
		return fmt.Errorf("error deleting account: %w", err)
	}
	s.logger.Info(ctx, "account deleted", "account", a.ID, "kind", a.Kind)
	return nil
}

// DeleteIdentity deletes both accounts and then the identity.
func (s *AccountService) DeleteIdentity(ctx context.Context, id int64) error {
	identity, err := s.Identity(ctx, id)
	if err != nil {
		return err
	}
	for _, a := range identity.Accounts() {
		if err := s.DeleteAccount(ctx, a); err != nil {
			return err
		}
	}
	if err := s.repomanager.Identities(s.db).Delete(ctx, id); err != nil {
		return fmt.Errorf("error deleting identity: %w", err)
	}
	s.logger.Info(ctx, "identity deleted", "identity", id)
	return nil
}
