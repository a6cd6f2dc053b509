package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newConfigCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage CLI profiles",
	}
	cmd.AddCommand(newConfigSetCmd(g))
	cmd.AddCommand(newConfigShowCmd(g))
	return cmd
}

func newConfigSetCmd(g *globals) *cobra.Command {
	var use bool

	cmd := &cobra.Command{
		Use:     "set",
		Short:   "Save --api-url, --email and --output into a profile",
		Long:    "Writes the values given on the command line into the profile named by --profile (default: the current profile). Passwords are never saved.",
		Example: `  qc config set --profile dev --api-url http://localhost:8000 --email demo@example.com --use`,
		Args:    cobra.NoArgs,
		Annotations: map[string]string{
			allowMissingProfile: "true",
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := LoadUserConfig()
			if err != nil {
				cfg = &UserConfig{Profiles: map[string]Profile{}}
			}
			name := g.profile
			if name == "" {
				name = cfg.CurrentProfile
			}
			if name == "" {
				name = defaultProfileName
			}

			p := cfg.Profiles[name]
			root := cmd.Root().PersistentFlags()
			if root.Changed("api-url") {
				p.APIURL = g.apiURL
			}
			if root.Changed("email") {
				p.Email = g.email
			}
			if root.Changed("output") {
				p.Output = g.output
			}
			cfg.Profiles[name] = p
			if use || cfg.CurrentProfile == "" {
				cfg.CurrentProfile = name
			}

			if err := SaveUserConfig(cfg); err != nil {
				return fmt.Errorf("save config: %w", err)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Saved profile %q to %s\n", name, ConfigPath())
			return err
		},
	}

	cmd.Flags().BoolVar(&use, "use", false, "Make the profile current")
	return cmd
}

func newConfigShowCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the resolved settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings := map[string]string{
				"api-url": g.apiURL,
				"email":   g.email,
				"output":  g.output,
			}
			if g.output == outputJSON {
				return printJSON(cmd.OutOrStdout(), settings)
			}
			return printTable(cmd.OutOrStdout(), []string{"SETTING", "VALUE"}, [][]string{
				{"api-url", g.apiURL},
				{"email", orDash(g.email)},
				{"output", g.output},
			})
		},
	}
}
