package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/mailkeeper/internal/backends"
)

func (c *CLI) authCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Store account credentials and run OAuth2 authorization",
	}

	var kind string
	cmd.PersistentFlags().StringVar(&kind, "kind", "mailbox", "account kind: mailbox or smtp")

	var username, backend string
	basic := &cobra.Command{
		Use:   "basic <identity>",
		Short: "Store a username and password (read from the terminal or stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			_, a, err := c.account(ctx, args[0], kind)
			if err != nil {
				return c.report(err)
			}
			if username == "" {
				username = a.Address()
			}
			password, err := c.getSecret("Password (empty keeps the stored one)")
			if err != nil {
				return err
			}
			if err := c.svc.SaveBasicAuth(ctx, a, backend, username, password); err != nil {
				return c.report(err)
			}
			fmt.Fprintf(c.out, "%s stored credentials for %s (%s)\n", successStyle.Render("✓"), username, a.Kind)
			return nil
		},
	}
	basic.Flags().StringVar(&username, "username", "", "login name (defaults to the identity address)")
	basic.Flags().StringVar(&backend, "backend", "basic", "authentication backend")

	var (
		oauthBackend string
		clientID     string
		tenant       string
		redirectURL  string
		scopes       []string
		disabled     bool
	)
	oauth := &cobra.Command{
		Use:   "oauth2 <identity>",
		Short: "Configure the OAuth2 client of an account (secret read from the terminal or stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			_, a, err := c.account(ctx, args[0], kind)
			if err != nil {
				return c.report(err)
			}
			secret, err := c.getSecret("Client secret")
			if err != nil {
				return err
			}
			inst, err := c.svc.SaveOAuth2Config(ctx, a, oauthBackend, backends.InstanceConfig{
				ClientID:     strings.TrimSpace(clientID),
				ClientSecret: secret,
				Scopes:       scopes,
				RedirectURL:  redirectURL,
				Tenant:       tenant,
				Enabled:      !disabled,
			})
			if err != nil {
				return c.report(err)
			}
			fmt.Fprintf(c.out, "%s %s client %s saved for %s\n", successStyle.Render("✓"), a.AuthBk, inst.ID(), a.Kind)
			if !inst.IsEnabled() {
				return nil
			}
			link, err := c.svc.AuthorizeLink(a)
			if err != nil {
				return c.report(err)
			}
			fmt.Fprintf(c.out, "Authorize at: %s\n", link)
			return nil
		},
	}
	oauth.Flags().StringVar(&oauthBackend, "backend", "oauth2:google", "OAuth2 backend id")
	oauth.Flags().StringVar(&clientID, "client-id", "", "OAuth2 client id")
	oauth.Flags().StringVar(&tenant, "tenant", "", "directory tenant (Microsoft)")
	oauth.Flags().StringVar(&redirectURL, "redirect-url", "", "redirect URL (defaults to the server callback)")
	oauth.Flags().StringSliceVar(&scopes, "scope", nil, "scopes (defaults to the backend scopes)")
	oauth.Flags().BoolVar(&disabled, "disabled", false, "save the client disabled")
	_ = oauth.MarkFlagRequired("client-id")

	url := &cobra.Command{
		Use:   "url <identity>",
		Short: "Print the provider consent URL of an OAuth2 account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			_, a, err := c.account(ctx, args[0], kind)
			if err != nil {
				return c.report(err)
			}
			u, err := c.svc.AuthorizeURL(ctx, a)
			if err != nil {
				return c.report(err)
			}
			fmt.Fprintln(c.out, u)
			return nil
		},
	}

	cmd.AddCommand(basic, oauth, url)
	return cmd
}
