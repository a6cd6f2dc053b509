// Package shell wires the session, app, routing and device components into
// one client shell.
package shell

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/alexhail/quickcontroller/apiclient"
	"github.com/alexhail/quickcontroller/apps"
	"github.com/alexhail/quickcontroller/apps/builtin"
	"github.com/alexhail/quickcontroller/controllers"
	"github.com/alexhail/quickcontroller/devices"
	"github.com/alexhail/quickcontroller/internal/config"
	"github.com/alexhail/quickcontroller/router"
	"github.com/alexhail/quickcontroller/session"
	"github.com/alexhail/quickcontroller/token"
)

const rateLimitBurst = 5

type options struct {
	loaders       []apps.Loader
	clientOptions []apiclient.ClientOption
	healthOptions []devices.HealthViewOption
}

// Option configures a Shell.
type Option func(*options)

// WithLoaders replaces the built-in app loaders.
func WithLoaders(loaders ...apps.Loader) Option {
	return func(o *options) {
		o.loaders = loaders
	}
}

// WithClientOptions appends API client options.
func WithClientOptions(opts ...apiclient.ClientOption) Option {
	return func(o *options) {
		o.clientOptions = append(o.clientOptions, opts...)
	}
}

// WithHealthOptions appends health view options.
func WithHealthOptions(opts ...devices.HealthViewOption) Option {
	return func(o *options) {
		o.healthOptions = append(o.healthOptions, opts...)
	}
}

// Shell owns one instance of every client component. Components are exported
// for callers that need more than the shell's own operations.
type Shell struct {
	Ledger      *token.Ledger
	Client      *apiclient.Client
	Session     *session.Gateway
	Registry    *apps.Registry
	Permissions *apps.PermissionFilter
	Router      *router.Router
	Composer    *router.Composer
	Controllers *controllers.Store
	Health      *devices.HealthView

	loaders []apps.Loader
}

// New builds a Shell against the API described by apiCfg.
func New(apiCfg config.APIConfig, healthCfg config.HealthConfig, opts ...Option) (*Shell, error) {
	o := options{loaders: builtin.Loaders()}
	for _, opt := range opts {
		opt(&o)
	}

	clientOpts := []apiclient.ClientOption{
		apiclient.WithTimeout(apiCfg.GetRequestTimeout()),
		apiclient.WithRateLimit(apiCfg.GetRequestsPerSecond(), rateLimitBurst),
	}
	clientOpts = append(clientOpts, o.clientOptions...)

	ledger := token.NewLedger()
	client, err := apiclient.New(apiCfg.GetAPIURL(), ledger, clientOpts...)
	if err != nil {
		return nil, err
	}
	gateway, err := session.NewGateway(client)
	if err != nil {
		return nil, err
	}

	healthOpts := []devices.HealthViewOption{devices.WithFreshnessWindow(healthCfg.GetFreshnessWindow())}
	healthOpts = append(healthOpts, o.healthOptions...)

	registry := apps.NewRegistry()
	rtr := router.New()
	return &Shell{
		Ledger:      ledger,
		Client:      client,
		Session:     gateway,
		Registry:    registry,
		Permissions: apps.NewPermissionFilter(registry, client),
		Router:      rtr,
		Composer:    router.NewComposer(rtr, registry, gateway),
		Controllers: controllers.NewStore(client),
		Health:      devices.NewHealthView(client, healthOpts...),
		loaders:     o.loaders,
	}, nil
}

// Boot registers the apps, mounts the base and app routes and installs the
// navigation guard. App routes are mounted only after every app is
// registered, and the root redirect only after every app route exists.
func (s *Shell) Boot(ctx context.Context) error {
	err := s.Registry.InitializeApps(ctx, s.loaders...)
	if s.Registry.Len() == 0 {
		return fmt.Errorf("boot: %w", errors.Join(apps.ErrRegistryEmpty, err))
	}
	if err != nil {
		log.Warn().Err(err).Msg("Some apps failed to load")
	}
	if err := s.Composer.MountBaseRoutes(); err != nil {
		return fmt.Errorf("boot: %w", err)
	}
	if err := s.Composer.MountAppRoutes(); err != nil {
		return fmt.Errorf("boot: %w", err)
	}
	s.Composer.InstallGuard()
	return nil
}

// Navigate moves to target through the guard and records the app of the
// resulting route as the current app.
func (s *Shell) Navigate(ctx context.Context, target router.Target) (*router.Match, error) {
	m, err := s.Router.Navigate(ctx, target)
	if err != nil {
		return nil, err
	}
	s.Permissions.SetCurrentApp(m.Meta.AppID)
	return m, nil
}

// Login signs in and loads the dashboard data.
func (s *Shell) Login(ctx context.Context, email, password string) (session.Session, error) {
	sess, err := s.Session.Login(ctx, email, password)
	if err != nil {
		return session.Session{}, err
	}
	if err := s.LoadDashboard(ctx); err != nil {
		log.Warn().Err(err).Msg("Dashboard data incomplete after login")
	}
	return sess, nil
}

// Logout ends the session and drops every per-session cache.
func (s *Shell) Logout(ctx context.Context) error {
	err := s.Session.Logout(ctx)
	s.Permissions.Reset()
	s.Controllers.Reset()
	s.Health.Reset()
	return err
}

// LoadDashboard fetches the app permissions and the controller list
// concurrently. Both components keep their own error; the first one is
// returned. One failure does not cancel the other fetch.
func (s *Shell) LoadDashboard(ctx context.Context) error {
	var g errgroup.Group
	g.Go(func() error {
		return s.Permissions.FetchPermissions(ctx)
	})
	g.Go(func() error {
		return s.Controllers.Fetch(ctx)
	})
	return g.Wait()
}

// SelectController loads the entities of controller id into the health view.
func (s *Shell) SelectController(ctx context.Context, id string) error {
	if _, ok := s.Controllers.Get(id); !ok {
		log.Debug().Str("controller_id", id).Msg("Selecting a controller that is not cached")
	}
	return s.Health.FetchEntities(ctx, id, "")
}
