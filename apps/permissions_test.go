package apps_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alexhail/quickcontroller/apiclient"
	"github.com/alexhail/quickcontroller/apps"
	"github.com/alexhail/quickcontroller/internal/fakeapi"
	"github.com/alexhail/quickcontroller/internal/fakeapi/fakeapitest"
	"github.com/alexhail/quickcontroller/session"
	"github.com/alexhail/quickcontroller/token"
)

func appIDs(manifests []*apps.Manifest) []string {
	ids := make([]string, 0, len(manifests))
	for _, m := range manifests {
		ids = append(ids, m.AppID)
	}
	return ids
}

func newRegistry(t *testing.T, manifests ...apps.Manifest) *apps.Registry {
	t.Helper()
	r := apps.NewRegistry()
	registerAll(t, r, manifests...)
	return r
}

func TestAccessibleApps_FailOpenBeforeFetch(t *testing.T) {
	r := newRegistry(t, manifest("x", false), manifest("y", false))
	f := apps.NewPermissionFilter(r, nil)

	require.False(t, f.Loaded())
	require.Equal(t, []string{"x", "y"}, appIDs(f.AccessibleApps()))

	f.SetPermissions([]apps.Permission{{AppID: "x", HasAccess: false}})
	require.True(t, f.Loaded())
	require.Equal(t, []string{"y"}, appIDs(f.AccessibleApps()))
	require.False(t, f.HasAccess("x"))
	require.True(t, f.HasAccess("y"), "no record means accessible")
}

func TestAccessibleApps_ExplicitGrant(t *testing.T) {
	r := newRegistry(t, manifest("x", false), manifest("y", true))
	f := apps.NewPermissionFilter(r, nil)
	f.SetPermissions([]apps.Permission{{AppID: "x", HasAccess: true}, {AppID: "y", HasAccess: false}})

	require.Equal(t, []string{"x"}, appIDs(f.AccessibleApps()))
	require.Equal(t, "x", f.DefaultApp().AppID, "default is computed over accessible apps")

	f.Reset()
	require.False(t, f.Loaded())
	require.Equal(t, "y", f.DefaultApp().AppID)
}

func TestCurrentApp(t *testing.T) {
	r := newRegistry(t, manifest("x", false))
	f := apps.NewPermissionFilter(r, nil)
	require.Nil(t, f.CurrentApp())

	f.SetCurrentApp("x")
	require.Equal(t, "x", f.CurrentApp().AppID)

	f.SetCurrentApp("unknown")
	require.Nil(t, f.CurrentApp())
}

func loggedInClient(t *testing.T, api *fakeapi.Server, url string) *apiclient.Client {
	t.Helper()
	require.NoError(t, api.CreateUser("ada@example.com", "Secret123"))
	client, err := apiclient.New(url, token.NewLedger())
	require.NoError(t, err)
	g, err := session.NewGateway(client)
	require.NoError(t, err)
	_, err = g.Login(context.Background(), "ada@example.com", "Secret123")
	require.NoError(t, err)
	return client
}

func TestFetchPermissions(t *testing.T) {
	api, srv := fakeapitest.NewServer(t)
	api.RegisterApp(apps.CatalogEntry{AppID: "x", DisplayName: "X", DefaultAccess: true})
	api.RegisterApp(apps.CatalogEntry{AppID: "y", DisplayName: "Y", DefaultAccess: false})
	client := loggedInClient(t, api, srv.URL)
	require.True(t, api.SetPermission("ada@example.com", "x", false))

	r := newRegistry(t, manifest("x", false), manifest("y", false), manifest("z", false))
	f := apps.NewPermissionFilter(r, client)
	require.NoError(t, f.FetchPermissions(context.Background()))

	// x is explicitly denied, y is denied by default and z is unknown to the server.
	require.Equal(t, []string{"z"}, appIDs(f.AccessibleApps()))
}

func TestFetchPermissions_FailureCollapsesToEmpty(t *testing.T) {
	api, srv := fakeapitest.NewServer(t)
	client := loggedInClient(t, api, srv.URL)
	api.FailNext(http.MethodGet, apiclient.EndpointPermissions, http.StatusInternalServerError, "database unavailable")

	r := newRegistry(t, manifest("x", false), manifest("y", false))
	f := apps.NewPermissionFilter(r, client)
	err := f.FetchPermissions(context.Background())
	require.ErrorIs(t, err, apiclient.ErrServer)

	require.True(t, f.Loaded())
	require.Equal(t, []string{"x", "y"}, appIDs(f.AccessibleApps()))
}

func TestFetchCatalog(t *testing.T) {
	api, srv := fakeapitest.NewServer(t)
	client := loggedInClient(t, api, srv.URL)

	entries, err := apps.FetchCatalog(context.Background(), client)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, fakeapi.CommandCenterAppID, entries[0].AppID)
	require.True(t, entries[0].DefaultAccess)
}
