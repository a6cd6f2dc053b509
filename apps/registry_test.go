package apps_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alexhail/quickcontroller/apps"
	"github.com/alexhail/quickcontroller/apps/commandcenter"
)

func manifest(id string, isDefault bool) apps.Manifest {
	return apps.Manifest{
		AppID:       id,
		DisplayName: "App " + id,
		Icon:        "grid",
		IsDefault:   isDefault,
		Routes: []apps.RouteSpec{
			{Path: "", Name: "home", Component: id + "Home"},
		},
	}
}

func registerAll(t *testing.T, r *apps.Registry, manifests ...apps.Manifest) {
	t.Helper()
	for i := range manifests {
		added, err := r.Register(&manifests[i])
		require.NoError(t, err)
		require.True(t, added)
	}
}

func TestRegister_DuplicateFirstWins(t *testing.T) {
	r := apps.NewRegistry()
	first := manifest("a", false)
	second := manifest("a", true)
	second.DisplayName = "Impostor"

	added, err := r.Register(&first)
	require.NoError(t, err)
	require.True(t, added)

	added, err = r.Register(&second)
	require.NoError(t, err, "a duplicate is a warning, not an error")
	require.False(t, added)

	got, ok := r.Get("a")
	require.True(t, ok)
	require.Equal(t, "App a", got.DisplayName)
	require.False(t, got.IsDefault)
	require.Equal(t, 1, r.Len())
}

func TestRegister_DuplicateWithInvalidPayloadIsOnlyAWarning(t *testing.T) {
	r := apps.NewRegistry()
	registerAll(t, r, manifest("x", false))

	added, err := r.Register(&apps.Manifest{AppID: "x"})
	require.NoError(t, err)
	require.False(t, added)

	got, ok := r.Get("x")
	require.True(t, ok)
	require.Equal(t, "App x", got.DisplayName)

	_, err = r.Register(&apps.Manifest{AppID: "y"})
	require.ErrorIs(t, err, apps.ErrMissingDisplayName, "a new app id is still validated")
	require.Equal(t, 1, r.Len())
}

func TestRegister_StoresCopy(t *testing.T) {
	r := apps.NewRegistry()
	m := manifest("a", false)
	registerAll(t, r, m)

	m.Routes[0].Name = "mutated"
	got, _ := r.Get("a")
	got.Routes[0].Component = "mutated"

	again, _ := r.Get("a")
	require.Equal(t, "home", again.Routes[0].Name)
	require.Equal(t, "aHome", again.Routes[0].Component)
}

func TestRegister_RejectsInvalidManifest(t *testing.T) {
	r := apps.NewRegistry()

	bad := manifest("Bad-ID", false)
	_, err := r.Register(&bad)
	require.ErrorIs(t, err, apps.ErrInvalidAppID)

	_, err = r.Register(nil)
	require.ErrorIs(t, err, apps.ErrNilManifest)
	require.Equal(t, 0, r.Len())
}

func TestGetAll_RegistrationOrder(t *testing.T) {
	r := apps.NewRegistry()
	registerAll(t, r, manifest("zeta", false), manifest("alpha", false), manifest("mid", false))

	var ids []string
	for _, m := range r.GetAll() {
		ids = append(ids, m.AppID)
	}
	require.Equal(t, []string{"zeta", "alpha", "mid"}, ids)

	_, ok := r.Get("missing")
	require.False(t, ok)
}

func TestDefault_TieBreak(t *testing.T) {
	tests := []struct {
		name      string
		manifests []apps.Manifest
		want      string
	}{
		{"first flagged wins", []apps.Manifest{manifest("a", false), manifest("b", true), manifest("c", false)}, "b"},
		{"none flagged picks first", []apps.Manifest{manifest("a", false), manifest("c", false)}, "a"},
		{"several flagged picks first flagged", []apps.Manifest{manifest("a", false), manifest("b", true), manifest("c", true)}, "b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := apps.NewRegistry()
			registerAll(t, r, tt.manifests...)
			def, ok := r.Default()
			require.True(t, ok)
			require.Equal(t, tt.want, def.AppID)
		})
	}

	_, ok := apps.NewRegistry().Default()
	require.False(t, ok)
}

func TestInitializeApps(t *testing.T) {
	r := apps.NewRegistry()
	loadErr := errors.New("bundle missing")

	err := r.InitializeApps(context.Background(),
		commandcenter.Load,
		func(context.Context) (*apps.Manifest, error) { return nil, loadErr },
		apps.Static(manifest("second", false)),
		apps.Static(manifest("command_center", false)),
	)
	require.ErrorIs(t, err, loadErr)

	all := r.GetAll()
	require.Len(t, all, 2)
	require.Equal(t, commandcenter.AppID, all[0].AppID)
	require.True(t, all[0].IsDefault, "the duplicate did not replace the first registration")
	require.Equal(t, "second", all[1].AppID)
}

func TestInitializeApps_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := apps.NewRegistry().InitializeApps(ctx, commandcenter.Load)
	require.ErrorIs(t, err, context.Canceled)
}
