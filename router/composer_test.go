package router_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexhail/quickcontroller/apps"
	"github.com/alexhail/quickcontroller/apps/commandcenter"
	"github.com/alexhail/quickcontroller/router"
)

// fakeSession counts Initialize calls and reports a fixed auth state.
type fakeSession struct {
	initCalls     atomic.Int32
	authenticated atomic.Bool
}

func (f *fakeSession) Initialize(context.Context) { f.initCalls.Add(1) }
func (f *fakeSession) IsAuthenticated() bool      { return f.authenticated.Load() }

func newComposer(t *testing.T, manifests ...apps.Manifest) (*router.Composer, *router.Router, *fakeSession) {
	t.Helper()
	reg := apps.NewRegistry()
	for i := range manifests {
		_, err := reg.Register(&manifests[i])
		require.NoError(t, err)
	}
	r := router.New()
	sess := &fakeSession{}
	c := router.NewComposer(r, reg, sess)
	require.NoError(t, c.MountBaseRoutes())
	require.NoError(t, c.MountAppRoutes())
	c.InstallGuard()
	return c, r, sess
}

func app(id string, isDefault bool, routes ...apps.RouteSpec) apps.Manifest {
	return apps.Manifest{AppID: id, DisplayName: id, IsDefault: isDefault, Routes: routes}
}

func TestMountAppRoutes_NamespacesNames(t *testing.T) {
	_, r, _ := newComposer(t, commandcenter.Manifest())

	m, err := r.Resolve(router.ToName("command_center-controllers"))
	require.NoError(t, err)
	require.Equal(t, "/command_center/controllers", m.Path)
	require.Equal(t, router.Meta{RequiresAuth: true, AppID: "command_center"}, m.Meta)

	m, err = r.Resolve(router.ToName("command_center-dashboard"))
	require.NoError(t, err)
	require.Equal(t, "/command_center", m.Path)

	_, err = r.Resolve(router.ToName("controllers"))
	require.ErrorIs(t, err, router.ErrRouteNotFound)
}

func TestMountAppRoutes_SameRouteNameAcrossApps(t *testing.T) {
	_, r, _ := newComposer(t,
		app("one", false, apps.RouteSpec{Path: "", Name: "home", Component: "A"}),
		app("two", false, apps.RouteSpec{Path: "", Name: "home", Component: "B"}),
	)

	one, err := r.Resolve(router.ToName("one-home"))
	require.NoError(t, err)
	two, err := r.Resolve(router.ToName("two-home"))
	require.NoError(t, err)
	require.NotEqual(t, one.Path, two.Path)
}

func TestMountAppRoutes_RootRedirectsToDefaultApp(t *testing.T) {
	tests := []struct {
		name      string
		manifests []apps.Manifest
		want      string
	}{
		{"flagged default", []apps.Manifest{
			app("a", false, apps.RouteSpec{Path: "", Component: "A"}),
			app("b", true, apps.RouteSpec{Path: "", Component: "B"}),
			app("c", false, apps.RouteSpec{Path: "", Component: "C"}),
		}, "/b"},
		{"first registered", []apps.Manifest{
			app("a", false, apps.RouteSpec{Path: "", Component: "A"}),
			app("c", false, apps.RouteSpec{Path: "", Component: "C"}),
		}, "/a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, r, _ := newComposer(t, tt.manifests...)
			root, err := r.Resolve(router.ToPath("/"))
			require.NoError(t, err)
			require.Equal(t, tt.want, root.Redirect)

			routes := r.Routes()
			require.Equal(t, "/", routes[len(routes)-1].Path, "the redirect is mounted after every app route")
		})
	}
}

func TestMountAppRoutes_NoApps(t *testing.T) {
	c := router.NewComposer(router.New(), apps.NewRegistry(), &fakeSession{})
	require.ErrorIs(t, c.MountAppRoutes(), router.ErrNoDefaultApp)
}

func TestGuard(t *testing.T) {
	_, r, sess := newComposer(t, commandcenter.Manifest())
	ctx := context.Background()

	m, err := r.Navigate(ctx, router.ToPath("/"))
	require.NoError(t, err)
	require.Equal(t, router.RouteLogin, m.Name, "anonymous visitors are sent to login")

	m, err = r.Navigate(ctx, router.ToName(router.RouteRegister))
	require.NoError(t, err)
	require.Equal(t, router.RouteRegister, m.Name)

	sess.authenticated.Store(true)
	m, err = r.Navigate(ctx, router.ToName(router.RouteLogin))
	require.NoError(t, err)
	require.Equal(t, "/command_center", m.Path, "signed-in visitors skip guest pages")

	m, err = r.Navigate(ctx, router.ToPath("/command_center/audit"))
	require.NoError(t, err)
	require.Equal(t, "command_center-audit", m.Name)

	require.Greater(t, sess.initCalls.Load(), int32(0), "every navigation waits for initialization")
}

func TestGuard_ConcurrentNavigations(t *testing.T) {
	_, r, sess := newComposer(t, commandcenter.Manifest())
	sess.authenticated.Store(true)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m, err := r.Navigate(context.Background(), router.ToPath("/command_center/system"))
			if assert.NoError(t, err) {
				assert.Equal(t, "command_center-system", m.Name)
			}
		}()
	}
	wg.Wait()
	require.Equal(t, int32(8), sess.initCalls.Load())
}

func TestGuard_CancelledContext(t *testing.T) {
	c, _, _ := newComposer(t, commandcenter.Manifest())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Guard(ctx, &router.Match{Path: "/command_center"})
	require.ErrorIs(t, err, context.Canceled)
}
