// Package builtin lists the apps shipped with the shell.
package builtin

import (
	"github.com/alexhail/quickcontroller/apps"
	"github.com/alexhail/quickcontroller/apps/commandcenter"
)

// Loaders returns the built-in app loaders in registration order. New apps
// are appended here.
func Loaders() []apps.Loader {
	return []apps.Loader{
		commandcenter.Load,
	}
}
