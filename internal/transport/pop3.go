package transport

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/mailkeeper/internal/common"
	"github.com/dmitrijs2005/mailkeeper/internal/credentials"
	"github.com/dmitrijs2005/mailkeeper/internal/models"
	"github.com/knadh/go-pop3"
)

type pop3Mailbox struct {
	conn *pop3.Conn
}

func (d *NetDialer) dialPOP3(ctx context.Context, a *models.Account, cred credentials.Credential) (Mailbox, error) {
	p := pop3.New(pop3.Opt{
		Host:        a.Host,
		Port:        a.Port,
		TLSEnabled:  a.Port == 995 && !d.Insecure,
		DialTimeout: d.Timeout,
	})
	conn, err := p.NewConn()
	if err != nil {
		return nil, fmt.Errorf("connect %s:%d: %w", a.Host, a.Port, err)
	}

	switch cred := cred.(type) {
	case credentials.BasicAuth:
		err = conn.Auth(cred.Username, cred.Password)
	case credentials.OAuth2Auth:
		_, err = conn.Cmd("AUTH", false, XOAuth2, xoauth2Base64(cred.ResourceOwner, cred.AccessToken))
	default:
		err = fmt.Errorf("%w: %s cannot log in to POP3", common.ErrUnknownCredentialType, cred.Scheme())
	}
	if err != nil {
		_ = conn.Quit()
		return nil, fmt.Errorf("%w: pop3: %v", common.ErrAuthentication, err)
	}
	d.log().Debug(ctx, "pop3 session established", "account", a.ID, "host", a.Host)
	return &pop3Mailbox{conn: conn}, nil
}

// HasFolder: a POP3 maildrop is a single INBOX.
func (m *pop3Mailbox) HasFolder(_ context.Context, name string) (bool, error) {
	return folderEqual("INBOX", name), nil
}

func (m *pop3Mailbox) CreateFolder(context.Context, string) error {
	return ErrNoFolders
}

func (m *pop3Mailbox) Close() error {
	return m.conn.Quit()
}
