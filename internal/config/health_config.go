package config

import "time"

type HealthConfig interface {
	GetFreshnessWindow() time.Duration
	GetPollInterval() time.Duration
}

type Health struct{}

var _ HealthConfig = Health{}

func (Health) GetFreshnessWindow() time.Duration {
	return GetEnvDuration("HEALTH_FRESHNESS_WINDOW", 5*time.Minute)
}

func (Health) GetPollInterval() time.Duration {
	return GetEnvDuration("HEALTH_POLL_INTERVAL", 30*time.Second)
}
