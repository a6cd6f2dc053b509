package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexhail/quickcontroller/apiclient"
	"github.com/alexhail/quickcontroller/controllers"
	"github.com/alexhail/quickcontroller/internal/fakeapi"
	"github.com/alexhail/quickcontroller/internal/fakeapi/fakeapitest"
)

// newTestAPI starts a seeded fake API and isolates HOME and the QC_*
// variables so no real profile or environment leaks into the command.
func newTestAPI(t *testing.T) string {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	for _, v := range []string{apiURLEnvVar, emailEnvVar, passwordEnvVar, outputEnvVar} {
		t.Setenv(v, "")
	}
	api, srv := fakeapitest.NewServer(t)
	require.NoError(t, api.SeedDemo())
	return srv.URL
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func demoArgs(apiURL string, args ...string) []string {
	return append([]string{"--api-url", apiURL, "--email", fakeapi.DemoEmail, "--password", fakeapi.DemoPassword}, args...)
}

func TestUserConfig_ActiveProfile(t *testing.T) {
	cfg := &UserConfig{
		CurrentProfile: "default",
		Profiles: map[string]Profile{
			"default": {APIURL: "http://localhost:8000"},
			"staging": {APIURL: "https://staging.example.com"},
		},
	}

	tests := []struct {
		name     string
		override string
		wantURL  string
		wantErr  string
	}{
		{name: "uses current profile", wantURL: "http://localhost:8000"},
		{name: "override to staging", override: "staging", wantURL: "https://staging.example.com"},
		{name: "unknown override", override: "nope", wantErr: `profile "nope" not found`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := cfg.ActiveProfile(tt.override)
			if tt.wantErr != "" {
				require.EqualError(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantURL, p.APIURL)
		})
	}

	empty := &UserConfig{}
	p, err := empty.ActiveProfile("")
	require.NoError(t, err)
	assert.Equal(t, Profile{}, p)
}

func TestLoadSaveUserConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	_, err := LoadUserConfig()
	require.Error(t, err)

	cfg := &UserConfig{
		CurrentProfile: "test",
		Profiles:       map[string]Profile{"test": {APIURL: "http://test:8000", Email: "ada@example.com"}},
	}
	require.NoError(t, SaveUserConfig(cfg))

	info, err := os.Stat(ConfigPath())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := LoadUserConfig()
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestSettingsPrecedence(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	for _, v := range []string{apiURLEnvVar, emailEnvVar, passwordEnvVar, outputEnvVar} {
		t.Setenv(v, "")
	}
	require.NoError(t, SaveUserConfig(&UserConfig{
		CurrentProfile: "dev",
		Profiles: map[string]Profile{
			"dev":   {APIURL: "http://profile:8000", Email: "profile@example.com", Output: "json"},
			"other": {APIURL: "http://other:8000"},
		},
	}))

	show := func(args ...string) map[string]string {
		out, err := run(t, append(args, "config", "show", "-o", "json")...)
		require.NoError(t, err)
		var settings map[string]string
		require.NoError(t, json.Unmarshal([]byte(out), &settings))
		return settings
	}

	s := show()
	assert.Equal(t, "http://profile:8000", s["api-url"])
	assert.Equal(t, "profile@example.com", s["email"])

	t.Setenv(apiURLEnvVar, "http://env:8000")
	assert.Equal(t, "http://env:8000", show()["api-url"], "env beats profile")
	assert.Equal(t, "http://flag:8000", show("--api-url", "http://flag:8000")["api-url"], "flag beats env")

	t.Setenv(apiURLEnvVar, "")
	assert.Equal(t, "http://other:8000", show("--profile", "other")["api-url"])

	_, err := run(t, "--profile", "missing", "config", "show")
	require.EqualError(t, err, `profile "missing" not found`)
}

func TestConfigSet(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv(apiURLEnvVar, "")

	out, err := run(t, "--profile", "dev", "--api-url", "http://localhost:9000", "config", "set", "--use")
	require.NoError(t, err)
	assert.Contains(t, out, filepath.Join(".quickcontroller", "config.yaml"))

	cfg, err := LoadUserConfig()
	require.NoError(t, err)
	assert.Equal(t, "dev", cfg.CurrentProfile)
	assert.Equal(t, "http://localhost:9000", cfg.Profiles["dev"].APIURL)
}

func TestUnsupportedOutput(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv(outputEnvVar, "")
	_, err := run(t, "-o", "yaml", "routes")
	require.EqualError(t, err, `unsupported output format "yaml": use 'table' or 'json'`)
}

func TestRegisterAndWhoami(t *testing.T) {
	apiURL := newTestAPI(t)
	args := []string{"--api-url", apiURL, "--email", "ada@example.com", "--password", "Secret123"}

	out, err := run(t, append(args, "register")...)
	require.NoError(t, err)
	assert.Equal(t, "Registered ada@example.com\n", out)

	_, err = run(t, append(args, "register")...)
	require.ErrorIs(t, err, apiclient.ErrValidation)
	require.EqualError(t, err, "Email already registered")

	out, err = run(t, append(args, "whoami", "-o", "json")...)
	require.NoError(t, err)
	assert.Contains(t, out, `"email": "ada@example.com"`)

	out, err = run(t, append(args, "login")...)
	require.NoError(t, err)
	assert.Equal(t, "Logged in as ada@example.com\n", out)
}

func TestLogin_Failures(t *testing.T) {
	apiURL := newTestAPI(t)

	_, err := run(t, "--api-url", apiURL, "login")
	require.ErrorIs(t, err, errMissingCredentials)

	_, err = run(t, "--api-url", apiURL, "--email", fakeapi.DemoEmail, "--password", "wrong", "login")
	require.ErrorIs(t, err, apiclient.ErrAuth)
}

func TestRoutes(t *testing.T) {
	apiURL := newTestAPI(t)

	out, err := run(t, "--api-url", apiURL, "routes")
	require.NoError(t, err)
	assert.Contains(t, out, "/command_center/controllers")
	assert.Contains(t, out, "command_center-controllers")
	assert.Contains(t, out, "guest")
}

func TestApps(t *testing.T) {
	apiURL := newTestAPI(t)

	out, err := run(t, demoArgs(apiURL, "apps", "-o", "json")...)
	require.NoError(t, err)
	var rows []appRow
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, appRow{AppID: "command_center", DisplayName: "Command Center", Icon: "settings", HasAccess: true, IsDefault: true}, rows[0])

	out, err = run(t, demoArgs(apiURL, "apps", "--catalog")...)
	require.NoError(t, err)
	assert.Contains(t, out, "DEFAULT ACCESS")
	assert.Contains(t, out, "command_center")
}

func TestControllersLifecycle(t *testing.T) {
	apiURL := newTestAPI(t)

	out, err := run(t, demoArgs(apiURL, "controllers", "add", fakeapi.DemoInstanceURL,
		"--name", "Home", "--token", fakeapi.DemoAccessToken, "-o", "json")...)
	require.NoError(t, err)
	var added []controllers.Controller
	require.NoError(t, json.Unmarshal([]byte(out), &added))
	require.Len(t, added, 1)
	id := added[0].ID

	out, err = run(t, demoArgs(apiURL, "controllers", "update", id, "--name", "Cabin", "-o", "json")...)
	require.NoError(t, err)
	var updated []controllers.Controller
	require.NoError(t, json.Unmarshal([]byte(out), &updated))
	assert.Equal(t, "Cabin", updated[0].Name)

	_, err = run(t, demoArgs(apiURL, "controllers", "update", id)...)
	require.ErrorIs(t, err, controllers.ErrEmptyPatch)

	out, err = run(t, demoArgs(apiURL, "controllers", "list")...)
	require.NoError(t, err)
	assert.Contains(t, out, "Cabin")
	assert.Contains(t, out, id)

	out, err = run(t, demoArgs(apiURL, "controllers", "discover")...)
	require.NoError(t, err)
	assert.Contains(t, out, fakeapi.DemoInstanceURL)

	out, err = run(t, demoArgs(apiURL, "controllers", "test", fakeapi.DemoInstanceURL, "--token", "bad")...)
	require.NoError(t, err)
	assert.Contains(t, out, "Connection failed")

	out, err = run(t, demoArgs(apiURL, "controllers", "delete", id)...)
	require.NoError(t, err)
	assert.Equal(t, "Deleted controller "+id+"\n", out)

	_, err = run(t, demoArgs(apiURL, "controllers", "delete", id)...)
	require.ErrorIs(t, err, apiclient.ErrNotFound)
}

func TestDevices(t *testing.T) {
	apiURL := newTestAPI(t)

	out, err := run(t, demoArgs(apiURL, "controllers", "add", fakeapi.DemoInstanceURL,
		"--name", "Home", "--token", fakeapi.DemoAccessToken, "-o", "json")...)
	require.NoError(t, err)
	var added []controllers.Controller
	require.NoError(t, json.Unmarshal([]byte(out), &added))
	id := added[0].ID

	count := func(args ...string) []entityRow {
		out, err := run(t, demoArgs(apiURL, append([]string{"devices", id, "-o", "json"}, args...)...)...)
		require.NoError(t, err)
		var rows []entityRow
		require.NoError(t, json.Unmarshal([]byte(out), &rows))
		return rows
	}

	active := count()
	require.Len(t, active, 4)
	for _, r := range active {
		assert.True(t, r.Healthy, r.ID)
	}
	assert.Len(t, count("--all"), 7)
	assert.Len(t, count("--domain", "light"), 2)
	assert.Len(t, count("--all", "--domain", "light"), 3)

	out, err = run(t, demoArgs(apiURL, "devices", id, "--all")...)
	require.NoError(t, err)
	assert.Contains(t, out, "all view, 7 of 7 entities")
	assert.Contains(t, out, "stale")

	_, err = run(t, demoArgs(apiURL, "devices", "missing")...)
	require.ErrorIs(t, err, apiclient.ErrNotFound)
}
