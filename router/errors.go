package router

import "errors"

// Errors returned by the router and the composer
var (
	ErrRouteNotFound      = errors.New("route not found")
	ErrDuplicateRouteName = errors.New("route name already registered")
	ErrDuplicateRoutePath = errors.New("route path already registered")
	ErrUnknownRedirect    = errors.New("redirect target does not exist")
	ErrTooManyRedirects   = errors.New("too many redirects")
	ErrNoDefaultApp       = errors.New("no default app to redirect to")
	ErrEmptyTarget        = errors.New("navigation target has neither name nor path")
)
