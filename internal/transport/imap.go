package transport

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/mailkeeper/internal/common"
	"github.com/dmitrijs2005/mailkeeper/internal/credentials"
	"github.com/dmitrijs2005/mailkeeper/internal/models"
	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/emersion/go-sasl"
)

type imapMailbox struct {
	client *imapclient.Client
}

func (d *NetDialer) dialIMAP(ctx context.Context, a *models.Account, cred credentials.Credential) (Mailbox, error) {
	implicitTLS := a.Port == 993
	conn, err := d.dial(ctx, a, implicitTLS)
	if err != nil {
		return nil, err
	}

	opts := &imapclient.Options{TLSConfig: d.tlsConfig(a.Host)}
	var c *imapclient.Client
	if implicitTLS || d.Insecure {
		c = imapclient.New(conn, opts)
	} else if c, err = imapclient.NewStartTLS(conn, opts); err != nil {
		conn.Close()
		return nil, fmt.Errorf("imap starttls: %w", err)
	}

	if err := imapLogin(c, cred); err != nil {
		_ = c.Close()
		return nil, err
	}
	d.log().Debug(ctx, "imap session established", "account", a.ID, "host", a.Host)
	return &imapMailbox{client: c}, nil
}

func imapLogin(c *imapclient.Client, cred credentials.Credential) error {
	var err error
	switch cred := cred.(type) {
	case credentials.BasicAuth:
		err = c.Login(cred.Username, cred.Password).Wait()
	case credentials.OAuth2Auth:
		var client sasl.Client
		if c.Caps().Has(imap.AuthCap(sasl.OAuthBearer)) {
			client = sasl.NewOAuthBearerClient(&sasl.OAuthBearerOptions{Username: cred.ResourceOwner, Token: cred.AccessToken})
		} else {
			client = NewXOAuth2Client(cred.ResourceOwner, cred.AccessToken)
		}
		err = c.Authenticate(client)
	default:
		return fmt.Errorf("%w: %s cannot log in to IMAP", common.ErrUnknownCredentialType, cred.Scheme())
	}
	if err != nil {
		return fmt.Errorf("%w: imap: %v", common.ErrAuthentication, err)
	}
	return nil
}

func (m *imapMailbox) HasFolder(_ context.Context, name string) (bool, error) {
	list, err := m.client.List("", name, nil).Collect()
	if err != nil {
		return false, fmt.Errorf("imap list: %w", err)
	}
	for _, l := range list {
		if folderEqual(l.Mailbox, name) {
			return true, nil
		}
	}
	return false, nil
}

func (m *imapMailbox) CreateFolder(_ context.Context, name string) error {
	if err := m.client.Create(name, nil).Wait(); err != nil {
		return fmt.Errorf("imap create %q: %w", name, err)
	}
	return nil
}

func (m *imapMailbox) Close() error {
	_ = m.client.Logout().Wait()
	return m.client.Close()
}

// folderEqual compares mailbox names; INBOX is case-insensitive (RFC 3501).
func folderEqual(a, b string) bool {
	if strings.EqualFold(a, "INBOX") {
		return strings.EqualFold(b, "INBOX")
	}
	return a == b
}
