package controllers_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alexhail/quickcontroller/apiclient"
	"github.com/alexhail/quickcontroller/controllers"
	"github.com/alexhail/quickcontroller/internal/fakeapi"
	"github.com/alexhail/quickcontroller/internal/fakeapi/fakeapitest"
	"github.com/alexhail/quickcontroller/internal/utils"
	"github.com/alexhail/quickcontroller/session"
	"github.com/alexhail/quickcontroller/token"
)

const (
	homeURL   = "http://home.test:8123"
	cabinURL  = "http://cabin.test:8123"
	homeToken = "home-token"
)

func setupStore(t *testing.T) (*controllers.Store, *fakeapi.Server) {
	t.Helper()
	api, srv := fakeapitest.NewServer(t)
	require.NoError(t, api.CreateUser("ada@example.com", "Secret123"))
	api.AddInstance(fakeapi.Instance{Name: "Home", URL: homeURL, AccessToken: homeToken, Version: "2024.6.1", Discoverable: true, Addresses: []string{"10.0.0.2:8123"}})
	api.AddInstance(fakeapi.Instance{Name: "Cabin", URL: cabinURL, AccessToken: "cabin-token", Version: "2024.5.0"})

	client, err := apiclient.New(srv.URL, token.NewLedger())
	require.NoError(t, err)
	g, err := session.NewGateway(client)
	require.NoError(t, err)
	_, err = g.Login(context.Background(), "ada@example.com", "Secret123")
	require.NoError(t, err)
	return controllers.NewStore(client), api
}

func addHome(t *testing.T, s *controllers.Store) *controllers.Controller {
	t.Helper()
	c, err := s.Add(context.Background(), controllers.NewController{
		Name:          "Home",
		URL:           homeURL,
		AccessToken:   homeToken,
		DiscoveredVia: utils.Ptr("zeroconf"),
	})
	require.NoError(t, err)
	return c
}

func TestStore_AddPrependsAndFetch(t *testing.T) {
	s, _ := setupStore(t)
	ctx := context.Background()

	home := addHome(t, s)
	require.Equal(t, controllers.StatusConnected, home.ConnectionStatus)
	require.Equal(t, "2024.6.1", utils.Value(home.HAVersion))
	require.Equal(t, "zeroconf", utils.Value(home.DiscoveredVia))

	cabin, err := s.Add(ctx, controllers.NewController{Name: "Cabin", URL: cabinURL, AccessToken: "cabin-token"})
	require.NoError(t, err)

	list := s.List()
	require.Len(t, list, 2)
	require.Equal(t, cabin.ID, list[0].ID, "new controllers go first")

	require.NoError(t, s.Fetch(ctx))
	require.Len(t, s.List(), 2)
	got, ok := s.Get(home.ID)
	require.True(t, ok)
	require.Equal(t, "Home", got.Name)
	require.False(t, s.Loading())
}

func TestStore_AddErrors(t *testing.T) {
	s, _ := setupStore(t)
	ctx := context.Background()
	addHome(t, s)

	_, err := s.Add(ctx, controllers.NewController{Name: "Again", URL: homeURL, AccessToken: homeToken})
	require.ErrorIs(t, err, apiclient.ErrValidation)
	require.EqualError(t, err, "A controller with this URL already exists")
	require.Equal(t, err, s.Err(), "the store keeps the error for display")

	_, err = s.Add(ctx, controllers.NewController{Name: "Bad", URL: cabinURL, AccessToken: "wrong"})
	require.EqualError(t, err, "Failed to connect to Home Assistant: Invalid access token")

	_, err = s.Add(ctx, controllers.NewController{Name: "", URL: "", AccessToken: ""})
	require.ErrorIs(t, err, apiclient.ErrValidation)
	require.EqualError(t, err, "Field required; Field required; Field required")

	require.Len(t, s.List(), 1)
}

func TestStore_Update(t *testing.T) {
	s, _ := setupStore(t)
	ctx := context.Background()
	home := addHome(t, s)

	updated, err := s.Update(ctx, home.ID, controllers.Patch{Name: utils.Ptr("Main House")})
	require.NoError(t, err)
	require.Equal(t, "Main House", updated.Name)
	require.Equal(t, homeURL, updated.URL)

	cached, _ := s.Get(home.ID)
	require.Equal(t, "Main House", cached.Name)
	require.NoError(t, s.Err())

	_, err = s.Update(ctx, home.ID, controllers.Patch{})
	require.ErrorIs(t, err, controllers.ErrEmptyPatch)

	_, err = s.Update(ctx, "missing", controllers.Patch{Name: utils.Ptr("x")})
	require.ErrorIs(t, err, apiclient.ErrNotFound)
	require.EqualError(t, s.Err(), "Controller not found")
}

func TestStore_Delete(t *testing.T) {
	s, api := setupStore(t)
	ctx := context.Background()
	home := addHome(t, s)

	require.NoError(t, s.Delete(ctx, home.ID))
	require.Empty(t, s.List())
	require.Equal(t, 1, api.Calls(http.MethodDelete, apiclient.EndpointControllers+"/"+home.ID))

	err := s.Delete(ctx, home.ID)
	require.ErrorIs(t, err, apiclient.ErrNotFound)

	require.ErrorIs(t, s.Delete(ctx, ""), controllers.ErrMissingID)
}

func TestStore_FetchFailureEmptiesCache(t *testing.T) {
	s, api := setupStore(t)
	ctx := context.Background()
	addHome(t, s)

	api.FailNext(http.MethodGet, apiclient.EndpointControllers, http.StatusServiceUnavailable, "Database unavailable")
	err := s.Fetch(ctx)
	require.ErrorIs(t, err, apiclient.ErrServer)
	require.EqualError(t, s.Err(), "Database unavailable")
	require.Empty(t, s.List())

	s.Reset()
	require.NoError(t, s.Err())
}

func TestStore_DiscoverAndTestConnection(t *testing.T) {
	s, api := setupStore(t)
	ctx := context.Background()

	found, err := s.Discover(ctx)
	require.NoError(t, err)
	require.Equal(t, []controllers.DiscoveredController{{Name: "Home", URL: homeURL, Addresses: []string{"10.0.0.2:8123"}}}, found)

	result, err := s.TestConnection(ctx, cabinURL, "cabin-token")
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Equal(t, "2024.5.0", utils.Value(result.Version))

	result, err = s.TestConnection(ctx, "http://nowhere.test", "x")
	require.NoError(t, err, "an unreachable controller is a result, not an error")
	require.False(t, result.Success)
	require.NotNil(t, result.Error)

	require.True(t, api.SetPermission("ada@example.com", fakeapi.CommandCenterAppID, false))
	_, err = s.Discover(ctx)
	require.ErrorIs(t, err, apiclient.ErrForbidden)
}
