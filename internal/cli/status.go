package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/mailkeeper/internal/models"
)

func (c *CLI) statusCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "status",
		Aliases: []string{"st"},
		Short:   "Show every identity with the state of its accounts",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			identities, err := c.svc.Identities(cmd.Context())
			if err != nil {
				return c.report(err)
			}
			if len(identities) == 0 {
				fmt.Fprintln(c.out, mutedStyle.Render("No identities. Add one with: mailkeeper identity add <email>"))
				return nil
			}

			counts := map[models.State]int{}
			for i, identity := range identities {
				if i > 0 {
					fmt.Fprintln(c.out)
				}
				if err := c.renderIdentity(cmd, identity); err != nil {
					return err
				}
				for _, a := range identity.Accounts() {
					counts[a.State()]++
				}
			}

			fmt.Fprintf(c.out, "\n%d identities: %s active, %s failing, %s configuring\n",
				len(identities),
				successStyle.Render(fmt.Sprint(counts[models.StateActive])),
				errStyle.Render(fmt.Sprint(counts[models.StateError])),
				warnStyle.Render(fmt.Sprint(counts[models.StateConfiguring])))
			return nil
		},
	}
}

func (c *CLI) renderIdentity(cmd *cobra.Command, identity *models.Identity) error {
	renderIdentityHeader(c.out, identity)
	for _, a := range identity.Accounts() {
		needsAuth := false
		if a.IsOAuth() {
			var err error
			if needsAuth, err = c.svc.ShouldAuthorize(cmd.Context(), a); err != nil {
				return c.report(err)
			}
		}
		renderAccount(c.out, a, needsAuth)
	}
	return nil
}
