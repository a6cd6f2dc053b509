package router

import (
	"context"
	"fmt"

	"github.com/alexhail/quickcontroller/apps"
)

// Base route names and paths
const (
	RouteLogin    = "login"
	RouteRegister = "register"
	PathLogin     = "/login"
	PathRegister  = "/register"
	PathRoot      = "/"
)

// SessionState is what the guard needs from the session gateway.
type SessionState interface {
	Initialize(ctx context.Context)
	IsAuthenticated() bool
}

// Composer builds the route tree from the app registry and installs the
// authorization guard.
type Composer struct {
	router   *Router
	registry *apps.Registry
	session  SessionState
}

// NewComposer creates a Composer.
func NewComposer(router *Router, registry *apps.Registry, session SessionState) *Composer {
	return &Composer{
		router:   router,
		registry: registry,
		session:  session,
	}
}

// MountBaseRoutes adds the guest-only login and registration routes.
func (c *Composer) MountBaseRoutes() error {
	for _, r := range []*Route{
		{Path: PathLogin, Name: RouteLogin, Component: "LoginView", Meta: Meta{Guest: true}},
		{Path: PathRegister, Name: RouteRegister, Component: "RegisterView", Meta: Meta{Guest: true}},
	} {
		if err := c.router.AddRoute(r); err != nil {
			return err
		}
	}
	return nil
}

// MountAppRoutes mounts one authenticated subtree per registered app at
// /{appId}, in registration order, with route names namespaced as
// "{appId}-{name}". Once every subtree exists it adds the redirect from / to
// the default app's root.
func (c *Composer) MountAppRoutes() error {
	manifests := c.registry.GetAll()
	for _, m := range manifests {
		if err := c.router.AddRoute(appRoute(m)); err != nil {
			return fmt.Errorf("mount %s: %w", m.AppID, err)
		}
	}

	def := apps.DefaultOf(manifests)
	if def == nil {
		return ErrNoDefaultApp
	}
	return c.router.AddRoute(&Route{Path: PathRoot, Redirect: def.RootPath()})
}

func appRoute(m *apps.Manifest) *Route {
	parent := &Route{
		Path: m.RootPath(),
		Meta: Meta{RequiresAuth: true, AppID: m.AppID},
	}
	for _, spec := range m.Routes {
		parent.Children = append(parent.Children, &Route{
			Path:      spec.Path,
			Name:      m.RouteName(spec.Name),
			Component: spec.Component,
		})
	}
	return parent
}

// InstallGuard registers Guard on the router.
func (c *Composer) InstallGuard() {
	c.router.BeforeEach(c.Guard)
}

// Guard waits for session initialization and then sends anonymous visitors of
// authenticated routes to the login page and signed-in visitors of guest-only
// routes to the default app.
func (c *Composer) Guard(ctx context.Context, to *Match) (*Target, error) {
	c.session.Initialize(ctx)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	authenticated := c.session.IsAuthenticated()
	switch {
	case to.Meta.RequiresAuth && !authenticated:
		t := ToName(RouteLogin)
		return &t, nil
	case to.Meta.Guest && authenticated:
		def, ok := c.registry.Default()
		if !ok {
			return nil, ErrNoDefaultApp
		}
		t := ToPath(def.RootPath())
		return &t, nil
	}
	return nil, nil
}
