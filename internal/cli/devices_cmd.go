package cli

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/alexhail/quickcontroller/devices"
	"github.com/alexhail/quickcontroller/internal/config"
)

type entityRow struct {
	devices.Entity
	Healthy bool `json:"healthy"`
}

func newDevicesCmd(g *globals) *cobra.Command {
	var (
		all      bool
		domain   string
		watch    bool
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "devices <controller-id>",
		Short: "Show device health for a controller",
		Long: "Lists the controller's entities. By default only healthy entities are shown: " +
			"available and updated within the freshness window.",
		Example: `  qc devices 3f1c... --domain light
  qc devices 3f1c... --all --watch --interval 10s`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := g.signIn(ctx)
			if err != nil {
				return err
			}

			mode := devices.ViewActive
			if all {
				mode = devices.ViewAll
			}
			if err := s.Health.SetViewMode(ctx, mode); err != nil {
				return err
			}
			if err := s.Health.FetchEntities(ctx, args[0], domain); err != nil {
				return err
			}

			var mu sync.Mutex
			render := func() error {
				mu.Lock()
				defer mu.Unlock()
				return printEntities(cmd.OutOrStdout(), g, s.Health)
			}
			if err := render(); err != nil {
				return err
			}
			if !watch {
				return nil
			}

			poller, err := devices.NewPoller(s.Health, interval, devices.WithOnPoll(func(err error) {
				if err != nil {
					return
				}
				if err := render(); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "render: %v\n", err)
				}
			}))
			if err != nil {
				return err
			}
			if err := poller.Start(ctx); err != nil {
				return err
			}
			<-ctx.Done()
			poller.Stop()
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Show every entity, not only healthy ones")
	cmd.Flags().StringVar(&domain, "domain", "", "Only fetch entities of this domain (light, switch, ...)")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Keep polling and re-render on every refresh")
	cmd.Flags().DurationVar(&interval, "interval", config.Health{}.GetPollInterval(), "Polling interval for --watch")
	return cmd
}

func printEntities(w io.Writer, g *globals, view *devices.HealthView) error {
	entities := view.FilteredEntities()
	if g.output == outputJSON {
		rows := make([]entityRow, 0, len(entities))
		for _, e := range entities {
			rows = append(rows, entityRow{Entity: e, Healthy: view.Healthy(e)})
		}
		return printJSON(w, rows)
	}

	title := fmt.Sprintf("%s view, %d of %d entities", view.ViewMode(), len(entities), len(view.Entities()))
	if d := view.SelectedDomain(); d != "" {
		title += ", domain " + d
	}
	if _, err := fmt.Fprintln(w, titleStyle.Render(title)); err != nil {
		return err
	}

	rows := make([][]string, 0, len(entities))
	for _, e := range entities {
		health := unhealthyStyle.Render("stale")
		if view.Healthy(e) {
			health = healthyStyle.Render("healthy")
		}
		rows = append(rows, []string{
			e.ID,
			e.DisplayName(),
			e.State,
			e.LastUpdated.Format(time.RFC3339),
			health,
		})
	}
	return printTable(w, []string{"ENTITY", "NAME", "STATE", "UPDATED", "HEALTH"}, rows)
}
