package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/dmitrijs2005/mailkeeper/internal/services"
)

func (c *CLI) mailboxCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mailbox",
		Short: "Configure the incoming mail account",
	}

	var in services.MailboxSettings
	set := &cobra.Command{
		Use:   "set <identity>",
		Short: "Update mailbox settings; active accounts are probed before saving",
		Long: `Update mailbox settings. Flags that are not given keep their current
value. When the account is active the server is contacted with the stored
credentials and the settings are only saved if login and folders check out.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			identity, err := c.lookup(ctx, args[0])
			if err != nil {
				return c.report(err)
			}
			a := identity.Mailbox
			if a == nil {
				return fmt.Errorf("identity %s has no mailbox account", identity.Email)
			}

			current := services.MailboxSettings{
				Active:         a.Active,
				Host:           a.Host,
				Port:           a.Port,
				Protocol:       a.Protocol,
				AuthBk:         a.AuthBk,
				Folder:         a.Folder,
				ArchiveFolder:  a.ArchiveFolder,
				PostFetch:      a.PostFetch,
				FetchFrequency: a.FetchFrequency,
				MaxFetch:       a.MaxFetch,
			}
			overlay(cmd.Flags(), map[string]func(){
				"active":          func() { current.Active = in.Active },
				"host":            func() { current.Host = in.Host },
				"port":            func() { current.Port = in.Port },
				"protocol":        func() { current.Protocol = in.Protocol },
				"auth":            func() { current.AuthBk = in.AuthBk },
				"folder":          func() { current.Folder = in.Folder },
				"archive-folder":  func() { current.ArchiveFolder = in.ArchiveFolder },
				"post-fetch":      func() { current.PostFetch = in.PostFetch },
				"fetch-frequency": func() { current.FetchFrequency = in.FetchFrequency },
				"max-fetch":       func() { current.MaxFetch = in.MaxFetch },
			})

			if err := c.svc.UpdateMailbox(ctx, identity, current); err != nil {
				return c.report(err)
			}
			fmt.Fprintf(c.out, "%s mailbox of %s is %s\n", successStyle.Render("✓"), identity.Email, a.State())
			return nil
		},
	}
	f := set.Flags()
	f.BoolVar(&in.Active, "active", false, "fetch from this mailbox")
	f.StringVar(&in.Host, "host", "", "server host name")
	f.IntVar(&in.Port, "port", 0, "server port")
	f.StringVar(&in.Protocol, "protocol", "", "IMAP or POP")
	f.StringVar(&in.AuthBk, "auth", "", "authentication backend, e.g. basic or oauth2:google")
	f.StringVar(&in.Folder, "folder", "", "folder to fetch (IMAP)")
	f.StringVar(&in.ArchiveFolder, "archive-folder", "", "folder fetched mail is moved to (IMAP)")
	f.StringVar(&in.PostFetch, "post-fetch", "", "archive or delete")
	f.IntVar(&in.FetchFrequency, "fetch-frequency", 0, "minutes between fetches")
	f.IntVar(&in.MaxFetch, "max-fetch", 0, "maximum messages per fetch")

	cmd.AddCommand(set)
	return cmd
}

func (c *CLI) smtpCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "smtp",
		Short: "Configure the outgoing mail account",
	}

	var in services.SMTPSettings
	set := &cobra.Command{
		Use:   "set <identity>",
		Short: "Update SMTP settings; active accounts are probed before saving",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			identity, err := c.lookup(ctx, args[0])
			if err != nil {
				return c.report(err)
			}
			a := identity.SMTP
			if a == nil {
				return fmt.Errorf("identity %s has no smtp account", identity.Email)
			}

			current := services.SMTPSettings{
				Active:        a.Active,
				Host:          a.Host,
				Port:          a.Port,
				AuthBk:        a.AuthBk,
				AllowSpoofing: a.AllowSpoofing,
			}
			overlay(cmd.Flags(), map[string]func(){
				"active":         func() { current.Active = in.Active },
				"host":           func() { current.Host = in.Host },
				"port":           func() { current.Port = in.Port },
				"auth":           func() { current.AuthBk = in.AuthBk },
				"allow-spoofing": func() { current.AllowSpoofing = in.AllowSpoofing },
			})

			if err := c.svc.UpdateSMTP(ctx, identity, current); err != nil {
				return c.report(err)
			}
			fmt.Fprintf(c.out, "%s smtp account of %s is %s\n", successStyle.Render("✓"), identity.Email, a.State())
			return nil
		},
	}
	f := set.Flags()
	f.BoolVar(&in.Active, "active", false, "send through this account")
	f.StringVar(&in.Host, "host", "", "server host name")
	f.IntVar(&in.Port, "port", 0, "server port")
	f.StringVar(&in.AuthBk, "auth", "", "authentication backend: basic, oauth2:<name>, mailbox or none")
	f.BoolVar(&in.AllowSpoofing, "allow-spoofing", false, "allow other From addresses")

	cmd.AddCommand(set)
	return cmd
}

// overlay runs the setter of every flag given on the command line, so
// omitted flags keep the stored value.
func overlay(fs *pflag.FlagSet, setters map[string]func()) {
	fs.Visit(func(f *pflag.Flag) {
		if set, ok := setters[f.Name]; ok {
			set()
		}
	})
}
