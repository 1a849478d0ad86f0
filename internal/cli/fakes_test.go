package cli

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/oauth2"

	"github.com/dmitrijs2005/mailkeeper/internal/backends"
	"github.com/dmitrijs2005/mailkeeper/internal/common"
	"github.com/dmitrijs2005/mailkeeper/internal/models"
	"github.com/dmitrijs2005/mailkeeper/internal/services"
)

type basicCall struct {
	authBk, username, password string
}

type fakeService struct {
	identities []*models.Identity
	nextID     int64
	needsAuth  bool

	basic    *basicCall
	oauthCfg *backends.InstanceConfig
	mailbox  *services.MailboxSettings
	smtp     *services.SMTPSettings
	deleted  []int64

	createErr error
	updateErr error
}

func (f *fakeService) add(email string) *models.Identity {
	f.nextID++
	identity := &models.Identity{ID: f.nextID, Email: email, Name: email}
	mb := models.NewAccount(identity.ID, models.KindMailbox)
	mb.ID = f.nextID * 10
	smtp := models.NewAccount(identity.ID, models.KindSMTP)
	smtp.ID = f.nextID*10 + 1
	identity.Attach(mb)
	identity.Attach(smtp)
	f.identities = append(f.identities, identity)
	return identity
}

func (f *fakeService) CreateIdentity(ctx context.Context, email, name string) (*models.Identity, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	identity := f.add(email)
	identity.Name = name
	return identity, nil
}

func (f *fakeService) Identity(ctx context.Context, id int64) (*models.Identity, error) {
	for _, identity := range f.identities {
		if identity.ID == id {
			return identity, nil
		}
	}
	return nil, common.ErrNotFound
}

func (f *fakeService) IdentityByEmail(ctx context.Context, email string) (*models.Identity, error) {
	for _, identity := range f.identities {
		if strings.EqualFold(identity.Email, email) {
			return identity, nil
		}
	}
	return nil, common.ErrNotFound
}

func (f *fakeService) Identities(ctx context.Context) ([]*models.Identity, error) {
	return f.identities, nil
}

func (f *fakeService) DeleteIdentity(ctx context.Context, id int64) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeService) SaveBasicAuth(ctx context.Context, a *models.Account, authBk, username, password string) error {
	f.basic = &basicCall{authBk, username, password}
	a.AuthBk = authBk
	return nil
}

func (f *fakeService) SaveOAuth2Config(ctx context.Context, a *models.Account, authBk string, cfg backends.InstanceConfig) (*backends.Instance, error) {
	f.oauthCfg = &cfg
	a.AuthBk, a.AuthID = authBk, "inst-1"
	return backends.NewInstance("inst-1", authBk, cfg, oauth2.Endpoint{}), nil
}

func (f *fakeService) AuthorizeLink(a *models.Account) (string, error) {
	return fmt.Sprintf("http://localhost:8080/oauth2/authorize?identity=%d&kind=%s&link=signed", a.IdentityID, a.Kind), nil
}

func (f *fakeService) AuthorizeURL(ctx context.Context, a *models.Account) (string, error) {
	if !a.IsOAuth() {
		return "", common.ValidationErrors{"auth_bk": "account is not configured for OAuth2"}
	}
	return fmt.Sprintf("https://provider.example/auth?account=%d", a.ID), nil
}

func (f *fakeService) ShouldAuthorize(ctx context.Context, a *models.Account) (bool, error) {
	return f.needsAuth, nil
}

func (f *fakeService) UpdateMailbox(ctx context.Context, identity *models.Identity, in services.MailboxSettings) error {
	f.mailbox = &in
	if f.updateErr != nil {
		return f.updateErr
	}
	a := identity.Mailbox
	a.Active, a.Host, a.Port, a.Protocol, a.AuthBk = in.Active, in.Host, in.Port, in.Protocol, in.AuthBk
	return nil
}

func (f *fakeService) UpdateSMTP(ctx context.Context, identity *models.Identity, in services.SMTPSettings) error {
	f.smtp = &in
	if f.updateErr != nil {
		return f.updateErr
	}
	a := identity.SMTP
	a.Active, a.Host, a.Port, a.AuthBk = in.Active, in.Host, in.Port, in.AuthBk
	return nil
}
