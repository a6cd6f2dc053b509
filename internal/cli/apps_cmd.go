package cli

import (
	"github.com/spf13/cobra"

	"github.com/alexhail/quickcontroller/apps"
	"github.com/alexhail/quickcontroller/router"
)

type appRow struct {
	AppID       string `json:"app_id"`
	DisplayName string `json:"display_name"`
	Icon        string `json:"icon"`
	HasAccess   bool   `json:"has_access"`
	IsDefault   bool   `json:"is_default"`
}

func newAppsCmd(g *globals) *cobra.Command {
	var catalog bool

	cmd := &cobra.Command{
		Use:   "apps",
		Short: "List the registered apps and your access to them",
		Example: `  qc apps
  qc apps --catalog -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := g.signIn(cmd.Context())
			if err != nil {
				return err
			}
			if catalog {
				entries, err := apps.FetchCatalog(cmd.Context(), s.Client)
				if err != nil {
					return err
				}
				return printCatalog(cmd, g, entries)
			}

			def := s.Permissions.DefaultApp()
			var rows []appRow
			for _, m := range s.Registry.GetAll() {
				rows = append(rows, appRow{
					AppID:       m.AppID,
					DisplayName: m.DisplayName,
					Icon:        m.Icon,
					HasAccess:   s.Permissions.HasAccess(m.AppID),
					IsDefault:   def != nil && def.AppID == m.AppID,
				})
			}
			if g.output == outputJSON {
				return printJSON(cmd.OutOrStdout(), rows)
			}
			table := make([][]string, 0, len(rows))
			for _, r := range rows {
				access := unhealthyStyle.Render("denied")
				if r.HasAccess {
					access = healthyStyle.Render("granted")
				}
				def := ""
				if r.IsDefault {
					def = "*"
				}
				table = append(table, []string{r.AppID, r.DisplayName, orDash(r.Icon), access, def})
			}
			return printTable(cmd.OutOrStdout(), []string{"APP", "NAME", "ICON", "ACCESS", "DEFAULT"}, table)
		},
	}

	cmd.Flags().BoolVar(&catalog, "catalog", false, "List the server's app catalog instead")
	return cmd
}

func printCatalog(cmd *cobra.Command, g *globals, entries []apps.CatalogEntry) error {
	if g.output == outputJSON {
		return printJSON(cmd.OutOrStdout(), entries)
	}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{e.AppID, e.DisplayName, orDash(e.Icon), yesNo(e.DefaultAccess)})
	}
	return printTable(cmd.OutOrStdout(), []string{"APP", "NAME", "ICON", "DEFAULT ACCESS"}, rows)
}

func newRoutesCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "Show the composed route table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := g.newShell(cmd.Context())
			if err != nil {
				return err
			}
			routes := s.Router.Routes()
			if g.output == outputJSON {
				return printJSON(cmd.OutOrStdout(), routes)
			}
			rows := make([][]string, 0, len(routes))
			for _, r := range routes {
				rows = append(rows, []string{r.Path, orDash(r.Name), orDash(r.Component), routeAccess(r), orDash(r.Redirect)})
			}
			return printTable(cmd.OutOrStdout(), []string{"PATH", "NAME", "COMPONENT", "ACCESS", "REDIRECT"}, rows)
		},
	}
}

func routeAccess(m router.Match) string {
	switch {
	case m.Meta.RequiresAuth:
		return "auth"
	case m.Meta.Guest:
		return "guest"
	}
	return "public"
}
