// Package cli implements the mailkeeper admin command line: identities,
// credentials, account settings and a status overview.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/mailkeeper/internal/backends"
	"github.com/dmitrijs2005/mailkeeper/internal/common"
	"github.com/dmitrijs2005/mailkeeper/internal/config"
	"github.com/dmitrijs2005/mailkeeper/internal/models"
	"github.com/dmitrijs2005/mailkeeper/internal/services"
)

// Service is the account service as seen by the commands.
type Service interface {
	CreateIdentity(ctx context.Context, email, name string) (*models.Identity, error)
	Identity(ctx context.Context, id int64) (*models.Identity, error)
	IdentityByEmail(ctx context.Context, email string) (*models.Identity, error)
	Identities(ctx context.Context) ([]*models.Identity, error)
	DeleteIdentity(ctx context.Context, id int64) error
	SaveBasicAuth(ctx context.Context, a *models.Account, authBk, username, password string) error
	SaveOAuth2Config(ctx context.Context, a *models.Account, authBk string, cfg backends.InstanceConfig) (*backends.Instance, error)
	AuthorizeLink(a *models.Account) (string, error)
	AuthorizeURL(ctx context.Context, a *models.Account) (string, error)
	ShouldAuthorize(ctx context.Context, a *models.Account) (bool, error)
	UpdateMailbox(ctx context.Context, identity *models.Identity, in services.MailboxSettings) error
	UpdateSMTP(ctx context.Context, identity *models.Identity, in services.SMTPSettings) error
}

// Opener builds the service for cfg. The returned function releases it.
type Opener func(ctx context.Context, cfg *config.Config) (Service, func() error, error)

type CLI struct {
	cfg   *config.Config
	open  Opener
	svc   Service
	close func() error
	in    *bufio.Reader
	stdin bool
	out   io.Writer
}

// Execute runs the command line with args. The service opened for the
// command is released whatever the outcome, failed commands included.
func Execute(ctx context.Context, cfg *config.Config, open Opener, in io.Reader, out io.Writer, args []string) error {
	c := &CLI{cfg: cfg, open: open, in: bufio.NewReader(in), stdin: in == os.Stdin, out: out}
	root := c.rootCommand()
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	return errors.Join(err, c.release())
}

// rootCommand builds the command tree. cfg already holds defaults, the
// config file and the server-style short flags; the persistent flags below
// override it.
func (c *CLI) rootCommand() *cobra.Command {
	cfg := c.cfg
	root := &cobra.Command{
		Use:           "mailkeeper",
		Short:         "Manage mail identities and their credentials",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "help" {
				return nil
			}
			svc, closeFn, err := c.open(cmd.Context(), c.cfg)
			if err != nil {
				return fmt.Errorf("open: %w", err)
			}
			c.svc, c.close = svc, closeFn
			return nil
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.SetIn(c.in)
	root.SetOut(c.out)
	root.SetErr(c.out)

	pf := root.PersistentFlags()
	// consumed by config.LoadConfig; declared so cobra accepts it
	pf.StringP("config", "c", "", "path to a JSON or TOML config file")
	pf.StringVarP(&cfg.DatabaseDSN, "dsn", "d", cfg.DatabaseDSN, "PostgreSQL DSN (empty for in-memory)")
	pf.StringVarP(&cfg.ConfigStore, "store", "k", cfg.ConfigStore, "config store backend")
	pf.StringVarP(&cfg.SecretKey, "secret", "s", cfg.SecretKey, "global secret key")
	pf.StringVarP(&cfg.PublicURL, "url", "u", cfg.PublicURL, "public base URL")
	pf.StringVarP(&cfg.LogLevel, "log-level", "l", cfg.LogLevel, "log level")

	root.AddCommand(
		c.identityCommand(),
		c.authCommand(),
		c.mailboxCommand(),
		c.smtpCommand(),
		c.statusCommand(),
	)
	return root
}

func (c *CLI) release() error {
	if c.close == nil {
		return nil
	}
	closeFn := c.close
	c.close = nil
	return closeFn()
}

// lookup resolves an identity given by numeric id or email.
func (c *CLI) lookup(ctx context.Context, ref string) (*models.Identity, error) {
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		return c.svc.Identity(ctx, id)
	}
	return c.svc.IdentityByEmail(ctx, strings.TrimSpace(ref))
}

func (c *CLI) account(ctx context.Context, ref, kind string) (*models.Identity, *models.Account, error) {
	k, err := models.ParseKind(kind)
	if err != nil {
		return nil, nil, err
	}
	identity, err := c.lookup(ctx, ref)
	if err != nil {
		return nil, nil, err
	}
	a := identity.Mailbox
	if k == models.KindSMTP {
		a = identity.SMTP
	}
	if a == nil {
		return nil, nil, fmt.Errorf("identity %s has no %s account: %w", identity.Email, k, common.ErrNotFound)
	}
	return identity, a, nil
}

// report prints field errors one per line and hands back a short error for
// the exit status. Other errors pass through.
func (c *CLI) report(err error) error {
	if err == nil {
		return nil
	}
	if v, ok := common.AsValidation(err); ok {
		for _, field := range v.Fields() {
			fmt.Fprintf(c.out, "%s %s: %s\n", errStyle.Render("✗"), field, v[field])
		}
		return errors.New("validation failed")
	}
	if errors.Is(err, common.ErrNotFound) {
		return fmt.Errorf("not found: %w", err)
	}
	return err
}
