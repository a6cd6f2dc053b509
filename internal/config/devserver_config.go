package config

import (
	"fmt"
	"strings"
	"time"
)

type DevServerConfig interface {
	GetPort() string
	GetSigningSecret() string
	GetAccessTokenExpiry() time.Duration
	GetRefreshTokenExpiry() time.Duration
	GetAllowedOrigins() []string
}

type DevServer struct{}

var _ DevServerConfig = DevServer{}

func (DevServer) GetPort() string {
	port := GetEnv("PORT", "8000")
	if port != "" && port[0] != ':' {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (DevServer) GetSigningSecret() string {
	return GetEnv("JWT_SECRET", "dev-secret-change-in-production")
}

func (DevServer) GetAccessTokenExpiry() time.Duration {
	return GetEnvDuration("ACCESS_TOKEN_EXPIRY", 15*time.Minute)
}

func (DevServer) GetRefreshTokenExpiry() time.Duration {
	return GetEnvDuration("REFRESH_TOKEN_EXPIRY", 7*24*time.Hour)
}

// GetAllowedOrigins returns the comma separated CORS_ORIGINS. Empty disables CORS.
func (DevServer) GetAllowedOrigins() []string {
	var origins []string
	for _, o := range strings.Split(GetEnv("CORS_ORIGINS", ""), ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
