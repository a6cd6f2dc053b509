package config

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const devEnv = "DEV"

// ConfigureLogging sets the global zerolog level from LOG_LEVEL and switches
// to the console writer in the DEV environment.
func ConfigureLogging(c EnvConfig) {
	level, err := zerolog.ParseLevel(strings.ToLower(c.GetLogLevel()))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if IsDev(c) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

// IsDev reports whether c describes the DEV environment.
func IsDev(c EnvConfig) bool {
	return strings.EqualFold(c.GetEnv(), devEnv)
}
