package config

import "time"

type Config interface {
	EnvConfig
	APIConfig
	HealthConfig
	DevServerConfig
}

type EnvConfig interface {
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
}

type APIConfig interface {
	GetAPIURL() string
	GetRequestTimeout() time.Duration
	GetRequestsPerSecond() float64
}

type mainConfig struct {
	EnvVars
	API
	Health
	DevServer
}

// New returns the process configuration. Values in a .env file in the working
// directory are loaded first; variables already set in the environment win.
func New() Config {
	LoadDotEnv()
	return mainConfig{}
}
