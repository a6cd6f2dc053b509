package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alexhail/quickcontroller/users"
)

func newRegisterCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:     "register",
		Short:   "Create an account",
		Example: `  qc register --email ada@example.com --password Secret123`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if g.email == "" || g.password == "" {
				return errMissingCredentials
			}
			s, err := g.newShell(cmd.Context())
			if err != nil {
				return err
			}
			user, err := s.Session.Register(cmd.Context(), g.email, g.password)
			if err != nil {
				return err
			}
			if g.output == outputJSON {
				return printJSON(cmd.OutOrStdout(), user)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Registered %s\n", user.Email)
			return err
		},
	}
}

func newLoginCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Verify credentials against the API",
		Long:  "Signs in and out again. Sessions are not persisted between invocations.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := g.signIn(cmd.Context())
			if err != nil {
				return err
			}
			user := s.Session.CurrentUser()
			if err := s.Logout(cmd.Context()); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", user.DisplayName())
			return err
		},
	}
}

func newWhoamiCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in identity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := g.signIn(cmd.Context())
			if err != nil {
				return err
			}
			user := s.Session.CurrentUser()
			if g.output == outputJSON {
				return printJSON(cmd.OutOrStdout(), user)
			}
			return printUser(cmd, user)
		},
	}
}

func printUser(cmd *cobra.Command, user *users.User) error {
	return printTable(cmd.OutOrStdout(), []string{"ID", "EMAIL", "NAME"}, [][]string{
		{user.ID, user.Email, orDash(user.DisplayName())},
	})
}
