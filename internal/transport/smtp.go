package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/smtp"

	"github.com/dmitrijs2005/mailkeeper/internal/common"
	"github.com/dmitrijs2005/mailkeeper/internal/credentials"
	"github.com/dmitrijs2005/mailkeeper/internal/models"
)

type xoauth2Auth struct {
	user, token, host string
}

// XOAuth2Auth is the net/smtp form of the XOAUTH2 mechanism. Like
// smtp.PlainAuth it refuses to send the token over an unencrypted connection
// to anything but localhost.
func XOAuth2Auth(user, token, host string) smtp.Auth {
	return &xoauth2Auth{user: user, token: token, host: host}
}

func (a *xoauth2Auth) Start(server *smtp.ServerInfo) (string, []byte, error) {
	if !server.TLS && !isLocalhost(server.Name) {
		return "", nil, errors.New("unencrypted connection")
	}
	if server.Name != a.host {
		return "", nil, errors.New("wrong host name")
	}
	return XOAuth2, xoauth2Payload(a.user, a.token), nil
}

func (a *xoauth2Auth) Next(_ []byte, more bool) ([]byte, error) {
	if more {
		return []byte{}, nil
	}
	return nil, nil
}

func isLocalhost(name string) bool {
	return name == "localhost" || name == "127.0.0.1" || name == "::1"
}

type smtpSession struct {
	client *smtp.Client
}

func (s *smtpSession) Close() error {
	if err := s.client.Quit(); err != nil {
		_ = s.client.Close()
		return err
	}
	return nil
}

// DialSMTP connects and authenticates. NoAuth credentials skip AUTH.
func (d *NetDialer) DialSMTP(ctx context.Context, a *models.Account, cred credentials.Credential) (io.Closer, error) {
	if cred == nil {
		return nil, errors.New("no credentials")
	}
	implicitTLS := a.Port == 465
	conn, err := d.dial(ctx, a, implicitTLS)
	if err != nil {
		return nil, err
	}

	c, err := smtp.NewClient(conn, a.Host)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("smtp greeting: %w", err)
	}
	session := &smtpSession{client: c}

	helo := d.HeloName
	if helo == "" {
		helo = "localhost"
	}
	if err := c.Hello(helo); err != nil {
		c.Close()
		return nil, fmt.Errorf("smtp ehlo: %w", err)
	}
	if !implicitTLS && !d.Insecure {
		if ok, _ := c.Extension("STARTTLS"); ok {
			if err := c.StartTLS(d.tlsConfig(a.Host)); err != nil {
				c.Close()
				return nil, fmt.Errorf("smtp starttls: %w", err)
			}
		}
	}

	var auth smtp.Auth
	switch cred := cred.(type) {
	case credentials.NoAuth:
	case credentials.BasicAuth:
		auth = smtp.PlainAuth("", cred.Username, cred.Password, a.Host)
	case credentials.OAuth2Auth:
		auth = XOAuth2Auth(cred.ResourceOwner, cred.AccessToken, a.Host)
	default:
		c.Close()
		return nil, fmt.Errorf("%w: %s cannot log in to SMTP", common.ErrUnknownCredentialType, cred.Scheme())
	}
	if auth != nil {
		if err := c.Auth(auth); err != nil {
			c.Close()
			return nil, fmt.Errorf("%w: smtp: %v", common.ErrAuthentication, err)
		}
	}

	d.log().Debug(ctx, "smtp session established", "account", a.ID, "host", a.Host)
	return session, nil
}
