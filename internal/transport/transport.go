// Package transport opens authenticated sessions against remote mail
// servers. It is used to prove that a resolved credential works and that the
// folders an account needs exist; message handling is not its concern.
package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	"github.com/dmitrijs2005/mailkeeper/internal/credentials"
	"github.com/dmitrijs2005/mailkeeper/internal/logging"
	"github.com/dmitrijs2005/mailkeeper/internal/models"
)

// ErrNoFolders is returned by CreateFolder on stores without folders (POP3).
var ErrNoFolders = errors.New("mail store has no folders")

// Mailbox is an authenticated session with a remote mail store.
type Mailbox interface {
	HasFolder(ctx context.Context, name string) (bool, error)
	CreateFolder(ctx context.Context, name string) error
	Close() error
}

// Dialer connects accounts to their servers.
type Dialer interface {
	DialMailbox(ctx context.Context, a *models.Account, cred credentials.Credential) (Mailbox, error)
	DialSMTP(ctx context.Context, a *models.Account, cred credentials.Credential) (io.Closer, error)
}

// NetDialer is the Dialer used in production.
//
// Implicit TLS is used on the well-known TLS ports (993, 995, 465) and
// STARTTLS everywhere else, unless Insecure is set.
type NetDialer struct {
	Timeout   time.Duration
	TLSConfig *tls.Config
	// Insecure disables TLS entirely. Only for tests against local servers.
	Insecure bool
	// HeloName is sent in the SMTP EHLO; "localhost" when empty.
	HeloName string

	logger logging.Logger
}

func NewNetDialer(timeout time.Duration, logger logging.Logger) *NetDialer {
	return &NetDialer{Timeout: timeout, logger: logger}
}

func (d *NetDialer) log() logging.Logger {
	if d.logger == nil {
		return logging.Nop()
	}
	return d.logger
}

func (d *NetDialer) tlsConfig(host string) *tls.Config {
	if d.TLSConfig != nil {
		c := d.TLSConfig.Clone()
		if c.ServerName == "" {
			c.ServerName = host
		}
		return c
	}
	return &tls.Config{ServerName: host, MinVersion: tls.VersionTLS12}
}

// dial opens a TCP connection, wrapped in TLS when implicitTLS is set. The
// connection deadline follows ctx.
func (d *NetDialer) dial(ctx context.Context, a *models.Account, implicitTLS bool) (net.Conn, error) {
	nd := &net.Dialer{Timeout: d.Timeout}
	addr := net.JoinHostPort(a.Host, strconv.Itoa(a.Port))

	conn, err := nd.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	if implicitTLS && !d.Insecure {
		tc := tls.Client(conn, d.tlsConfig(a.Host))
		if err := tc.HandshakeContext(ctx); err != nil {
			conn.Close()
			return nil, fmt.Errorf("tls handshake with %s: %w", addr, err)
		}
		conn = tc
	}
	return conn, nil
}

// DialMailbox connects over IMAP or POP3 depending on the account protocol.
func (d *NetDialer) DialMailbox(ctx context.Context, a *models.Account, cred credentials.Credential) (Mailbox, error) {
	if cred == nil {
		return nil, errors.New("no credentials")
	}
	switch a.Protocol {
	case models.ProtocolIMAP:
		return d.dialIMAP(ctx, a, cred)
	case models.ProtocolPOP:
		return d.dialPOP3(ctx, a, cred)
	}
	return nil, fmt.Errorf("unsupported mailbox protocol %q", a.Protocol)
}
