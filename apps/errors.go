package apps

import "errors"

// Errors returned by manifest validation and registration
var (
	ErrNilManifest         = errors.New("manifest is nil")
	ErrInvalidAppID        = errors.New("app id must be lowercase alphanumeric with underscores")
	ErrMissingDisplayName  = errors.New("display name is required")
	ErrMissingComponent    = errors.New("route component is required")
	ErrDuplicateRouteName  = errors.New("duplicate route name")
	ErrDuplicateRoutePath  = errors.New("duplicate route path")
	ErrInvalidRoutePath    = errors.New("route path must be relative")
	ErrRegistryEmpty       = errors.New("no apps registered")
	ErrLoaderReturnedNoApp = errors.New("loader returned no manifest")
	ErrMalformedManifest   = errors.New("malformed manifest")
)
