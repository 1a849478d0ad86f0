package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (c *CLI) identityCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "identity",
		Aliases: []string{"id"},
		Short:   "Add, show or delete identities",
	}

	var name string
	add := &cobra.Command{
		Use:   "add <email>",
		Short: "Add an identity with an unconfigured mailbox and SMTP account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" {
				name = args[0]
			}
			identity, err := c.svc.CreateIdentity(cmd.Context(), args[0], name)
			if err != nil {
				return c.report(err)
			}
			fmt.Fprintf(c.out, "%s identity #%d %s\n", successStyle.Render("✓"), identity.ID, identity.Email)
			return nil
		},
	}
	add.Flags().StringVar(&name, "name", "", "display name (defaults to the address)")

	show := &cobra.Command{
		Use:   "show <identity>",
		Short: "Show an identity and its accounts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			identity, err := c.lookup(cmd.Context(), args[0])
			if err != nil {
				return c.report(err)
			}
			return c.renderIdentity(cmd, identity)
		},
	}

	var yes bool
	del := &cobra.Command{
		Use:   "delete <identity>",
		Short: "Delete an identity, its accounts and stored credentials",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			identity, err := c.lookup(ctx, args[0])
			if err != nil {
				return c.report(err)
			}
			if !yes {
				fmt.Fprintf(c.out, "Delete %s and all stored credentials? [y/N] ", identity.Email)
				answer, _ := c.readLine()
				if answer != "y" && answer != "Y" && answer != "yes" {
					fmt.Fprintln(c.out, "Aborted.")
					return nil
				}
			}
			if err := c.svc.DeleteIdentity(ctx, identity.ID); err != nil {
				return c.report(err)
			}
			fmt.Fprintf(c.out, "%s deleted %s\n", successStyle.Render("✓"), identity.Email)
			return nil
		},
	}
	del.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")

	cmd.AddCommand(add, show, del)
	return cmd
}
