package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/alexhail/quickcontroller/controllers"
	"github.com/alexhail/quickcontroller/internal/utils"
)

func newControllersCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "controllers",
		Aliases: []string{"ctl"},
		Short:   "Manage home automation controllers",
	}
	cmd.AddCommand(newControllersListCmd(g))
	cmd.AddCommand(newControllersAddCmd(g))
	cmd.AddCommand(newControllersUpdateCmd(g))
	cmd.AddCommand(newControllersDeleteCmd(g))
	cmd.AddCommand(newControllersDiscoverCmd(g))
	cmd.AddCommand(newControllersTestCmd(g))
	return cmd
}

func newControllersListCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List your controllers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := g.signIn(cmd.Context())
			if err != nil {
				return err
			}
			if err := s.Controllers.Err(); err != nil {
				return err
			}
			return printControllers(cmd, g, s.Controllers.List())
		},
	}
}

func newControllersAddCmd(g *globals) *cobra.Command {
	var (
		name        string
		accessToken string
	)

	cmd := &cobra.Command{
		Use:     "add <url>",
		Short:   "Register a controller",
		Example: `  qc controllers add http://homeassistant.local:8123 --name Home --token <long-lived-token>`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := g.signIn(cmd.Context())
			if err != nil {
				return err
			}
			c, err := s.Controllers.Add(cmd.Context(), controllers.NewController{
				Name:        name,
				URL:         args[0],
				AccessToken: accessToken,
			})
			if err != nil {
				return err
			}
			return printControllers(cmd, g, []controllers.Controller{*c})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().StringVar(&accessToken, "token", "", "Controller access token")
	return cmd
}

func newControllersUpdateCmd(g *globals) *cobra.Command {
	var (
		name        string
		url         string
		accessToken string
	)

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change a controller's name, URL or token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch controllers.Patch
			if cmd.Flags().Changed("name") {
				patch.Name = utils.Ptr(name)
			}
			if cmd.Flags().Changed("url") {
				patch.URL = utils.Ptr(url)
			}
			if cmd.Flags().Changed("token") {
				patch.AccessToken = utils.Ptr(accessToken)
			}
			if patch.IsEmpty() {
				return controllers.ErrEmptyPatch
			}

			s, err := g.signIn(cmd.Context())
			if err != nil {
				return err
			}
			c, err := s.Controllers.Update(cmd.Context(), args[0], patch)
			if err != nil {
				return err
			}
			return printControllers(cmd, g, []controllers.Controller{*c})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "New display name")
	cmd.Flags().StringVar(&url, "url", "", "New URL")
	cmd.Flags().StringVar(&accessToken, "token", "", "New access token")
	return cmd
}

func newControllersDeleteCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove a controller",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := g.signIn(cmd.Context())
			if err != nil {
				return err
			}
			if err := s.Controllers.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Deleted controller %s\n", args[0])
			return err
		},
	}
}

func newControllersDiscoverCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "discover",
		Short: "Find controllers on the local network",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := g.signIn(cmd.Context())
			if err != nil {
				return err
			}
			found, err := s.Controllers.Discover(cmd.Context())
			if err != nil {
				return err
			}
			if g.output == outputJSON {
				return printJSON(cmd.OutOrStdout(), found)
			}
			rows := make([][]string, 0, len(found))
			for _, d := range found {
				rows = append(rows, []string{d.Name, d.URL, orDash(strings.Join(d.Addresses, ", "))})
			}
			return printTable(cmd.OutOrStdout(), []string{"NAME", "URL", "ADDRESSES"}, rows)
		},
	}
}

func newControllersTestCmd(g *globals) *cobra.Command {
	var accessToken string

	cmd := &cobra.Command{
		Use:   "test <url>",
		Short: "Test a URL and access token without saving them",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := g.signIn(cmd.Context())
			if err != nil {
				return err
			}
			result, err := s.Controllers.TestConnection(cmd.Context(), args[0], accessToken)
			if err != nil {
				return err
			}
			if g.output == outputJSON {
				return printJSON(cmd.OutOrStdout(), result)
			}
			if result.Success {
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n",
					healthyStyle.Render("Connected"), utils.Value(result.Version))
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n",
				unhealthyStyle.Render("Connection failed"), utils.Value(result.Error))
			return err
		},
	}

	cmd.Flags().StringVar(&accessToken, "token", "", "Controller access token")
	return cmd
}

func printControllers(cmd *cobra.Command, g *globals, list []controllers.Controller) error {
	if g.output == outputJSON {
		return printJSON(cmd.OutOrStdout(), list)
	}
	rows := make([][]string, 0, len(list))
	for _, c := range list {
		lastSeen := ""
		if c.LastSeen != nil {
			lastSeen = c.LastSeen.Format(time.RFC3339)
		}
		rows = append(rows, []string{
			c.ID, c.Name, c.URL,
			statusCell(c.ConnectionStatus),
			orDash(utils.Value(c.HAVersion)),
			orDash(lastSeen),
		})
	}
	return printTable(cmd.OutOrStdout(), []string{"ID", "NAME", "URL", "STATUS", "VERSION", "LAST SEEN"}, rows)
}

func statusCell(status string) string {
	switch status {
	case controllers.StatusConnected:
		return healthyStyle.Render(status)
	case controllers.StatusError:
		return unhealthyStyle.Render(status)
	}
	return orDash(status)
}
