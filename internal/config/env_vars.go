package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

const (
	appNameEnvVar  = "APP_NAME"
	envEnvVar      = "ENV"
	logLevelEnvVar = "LOG_LEVEL"
	dotEnvFile     = ".env"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameEnvVar, "Quick Controller")
}

func (EnvVars) GetEnv() string {
	return GetEnv(envEnvVar, "DEV")
}

func (EnvVars) GetLogLevel() string {
	return GetEnv(logLevelEnvVar, "info")
}

// LoadDotEnv reads .env into the process environment without overriding
// variables that are already set. A missing file is not an error.
func LoadDotEnv() {
	if _, err := os.Stat(dotEnvFile); err != nil {
		return
	}
	if err := godotenv.Load(dotEnvFile); err != nil {
		log.Warn().Err(err).Str("file", dotEnvFile).Msg("Failed to load env file")
	}
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}

func GetEnvDuration(envVar string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Warn().Err(err).Str("var", envVar).Msg("Invalid duration, using default")
		return defaultValue
	}
	return d
}

func GetEnvFloat(envVar string, defaultValue float64) float64 {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		log.Warn().Err(err).Str("var", envVar).Msg("Invalid number, using default")
		return defaultValue
	}
	return f
}
