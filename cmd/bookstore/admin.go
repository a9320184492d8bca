package main

import (
	"github.com/spf13/cobra"
)

func (c *cli) usersCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "users", Short: "Manage user accounts"}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List users (admin)",
			RunE: func(cmd *cobra.Command, _ []string) error {
				users, err := c.app.API.Users.List(cmd.Context())
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), users)
			},
		},
		&cobra.Command{
			Use:   "me",
			Short: "Show the signed-in user's profile",
			RunE: func(cmd *cobra.Command, _ []string) error {
				user, err := c.app.API.Users.Me(cmd.Context())
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), user)
			},
		},
		&cobra.Command{
			Use:   "delete <id>",
			Short: "Delete a user (admin)",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				return c.app.API.Users.Delete(cmd.Context(), id)
			},
		},
	)
	return cmd
}

func (c *cli) rolesCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "roles", Short: "Manage roles"}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List roles with user counts (admin)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			roles, err := c.app.API.Roles.List(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), roles)
		},
	})
	return cmd
}
