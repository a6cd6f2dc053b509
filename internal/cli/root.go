// Package cli implements the qc command line client.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/alexhail/quickcontroller/apiclient"
	"github.com/alexhail/quickcontroller/internal/config"
)

// Environment variables consulted when a flag is not set
const (
	apiURLEnvVar   = "QC_API_URL"
	emailEnvVar    = "QC_EMAIL"
	passwordEnvVar = "QC_PASSWORD"
	outputEnvVar   = "QC_OUTPUT"
)

// allowMissingProfile marks commands that may name a profile that does not
// exist yet.
const allowMissingProfile = "allow-missing-profile"

const (
	outputTable = "table"
	outputJSON  = "json"
)

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		var apiErr *apiclient.APIError
		if errors.As(err, &apiErr) {
			fmt.Fprintf(os.Stderr, "Error: %s (HTTP %d)\n", apiErr.Detail, apiErr.Status)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

// globals holds the resolved persistent flags.
type globals struct {
	apiURL   string
	email    string
	password string
	output   string
	profile  string
}

func newRootCmd() *cobra.Command {
	g := &globals{}

	rootCmd := &cobra.Command{
		Use:           "qc",
		Short:         "Quick Controller CLI",
		Long:          "Command-line client for the Quick Controller dashboard API.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := LoadUserConfig()
			if err != nil {
				// The profile file is optional
				cfg = &UserConfig{CurrentProfile: defaultProfileName, Profiles: map[string]Profile{}}
			}
			p, err := cfg.ActiveProfile(g.profile)
			if err != nil && cmd.Annotations[allowMissingProfile] == "" {
				return err
			}

			// Apply precedence: flag > env > profile > default
			resolve(cmd, "api-url", &g.apiURL, apiURLEnvVar, p.APIURL)
			resolve(cmd, "email", &g.email, emailEnvVar, p.Email)
			resolve(cmd, "password", &g.password, passwordEnvVar, "")
			resolve(cmd, "output", &g.output, outputEnvVar, p.Output)

			if g.output != outputTable && g.output != outputJSON {
				return fmt.Errorf("unsupported output format %q: use 'table' or 'json'", g.output)
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&g.apiURL, "api-url", config.API{}.GetAPIURL(), "API base URL")
	rootCmd.PersistentFlags().StringVar(&g.email, "email", "", "Account email")
	rootCmd.PersistentFlags().StringVar(&g.password, "password", "", "Account password")
	rootCmd.PersistentFlags().StringVarP(&g.output, "output", "o", outputTable, "Output format (table, json)")
	rootCmd.PersistentFlags().StringVarP(&g.profile, "profile", "p", "", "Config profile to use")

	rootCmd.AddCommand(newRegisterCmd(g))
	rootCmd.AddCommand(newLoginCmd(g))
	rootCmd.AddCommand(newWhoamiCmd(g))
	rootCmd.AddCommand(newAppsCmd(g))
	rootCmd.AddCommand(newRoutesCmd(g))
	rootCmd.AddCommand(newControllersCmd(g))
	rootCmd.AddCommand(newDevicesCmd(g))
	rootCmd.AddCommand(newConfigCmd(g))

	return rootCmd
}

func resolve(cmd *cobra.Command, flag string, target *string, envVar, profileValue string) {
	if cmd.Flags().Changed(flag) {
		return
	}
	if v := os.Getenv(envVar); v != "" {
		*target = v
	} else if profileValue != "" {
		*target = profileValue
	}
}
