package config

import (
	"strings"
	"time"
)

const (
	apiURLEnvVar            = "API_URL"
	requestTimeoutEnvVar    = "API_TIMEOUT"
	requestsPerSecondEnvVar = "API_RPS"
)

type API struct{}

var _ APIConfig = API{}

// GetAPIURL returns the remote API base URL without a trailing slash.
func (API) GetAPIURL() string {
	return strings.TrimRight(GetEnv(apiURLEnvVar, "http://localhost:8000"), "/")
}

func (API) GetRequestTimeout() time.Duration {
	return GetEnvDuration(requestTimeoutEnvVar, 30*time.Second)
}

// GetRequestsPerSecond returns the outbound request budget. Zero disables limiting.
func (API) GetRequestsPerSecond() float64 {
	return GetEnvFloat(requestsPerSecondEnvVar, 0)
}
