package config_test

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/alexhail/quickcontroller/internal/config"
)

func TestAPI_Defaults(t *testing.T) {
	t.Setenv("API_URL", "")
	t.Setenv("API_TIMEOUT", "")
	t.Setenv("API_RPS", "")

	c := config.API{}
	require.Equal(t, "http://localhost:8000", c.GetAPIURL())
	require.Equal(t, 30*time.Second, c.GetRequestTimeout())
	require.Zero(t, c.GetRequestsPerSecond())
}

func TestAPI_FromEnv(t *testing.T) {
	t.Setenv("API_URL", "https://qc.example.com/")
	t.Setenv("API_TIMEOUT", "5s")
	t.Setenv("API_RPS", "2.5")

	c := config.API{}
	require.Equal(t, "https://qc.example.com", c.GetAPIURL())
	require.Equal(t, 5*time.Second, c.GetRequestTimeout())
	require.Equal(t, 2.5, c.GetRequestsPerSecond())
}

func TestHealth_InvalidDurationFallsBack(t *testing.T) {
	t.Setenv("HEALTH_FRESHNESS_WINDOW", "soon")
	require.Equal(t, 5*time.Minute, config.Health{}.GetFreshnessWindow())
}

func TestDevServer_PortPrefix(t *testing.T) {
	t.Setenv("PORT", "9000")
	require.Equal(t, ":9000", config.DevServer{}.GetPort())

	t.Setenv("PORT", ":9001")
	require.Equal(t, ":9001", config.DevServer{}.GetPort())
}

func TestDevServer_AllowedOrigins(t *testing.T) {
	t.Setenv("CORS_ORIGINS", "")
	require.Empty(t, config.DevServer{}.GetAllowedOrigins())

	t.Setenv("CORS_ORIGINS", "http://localhost:5173, https://qc.example.com,")
	require.Equal(t, []string{"http://localhost:5173", "https://qc.example.com"}, config.DevServer{}.GetAllowedOrigins())
}

func TestConfigureLogging(t *testing.T) {
	prev := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(prev) })

	t.Setenv("LOG_LEVEL", "WARN")
	t.Setenv("ENV", "prod")
	config.ConfigureLogging(config.EnvVars{})
	require.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())
	require.False(t, config.IsDev(config.EnvVars{}))

	t.Setenv("LOG_LEVEL", "chatty")
	t.Setenv("ENV", "")
	config.ConfigureLogging(config.EnvVars{})
	require.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
	require.True(t, config.IsDev(config.EnvVars{}))
}
