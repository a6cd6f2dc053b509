package apiclient

// Remote API endpoint paths
const (
	// Auth
	EndpointRegister = "/api/v1/auth/register"
	EndpointLogin    = "/api/v1/auth/login"
	EndpointLogout   = "/api/v1/auth/logout"
	EndpointRefresh  = "/api/v1/auth/refresh"
	EndpointMe       = "/api/v1/auth/me"

	// Apps
	EndpointApps        = "/api/v1/apps"
	EndpointPermissions = "/api/v1/apps/permissions"

	// Controllers
	EndpointControllers    = "/api/v1/controllers"
	EndpointDiscover       = "/api/v1/controllers/discover"
	EndpointTestConnection = "/api/v1/controllers/test-connection"

	// Command center
	EndpointControllerEntitiesFmt = "/api/v1/apps/command_center/controllers/%s/entities"
)

// RefreshCookieName is the HTTP-only cookie that carries the refresh credential.
const RefreshCookieName = "refresh_token"
