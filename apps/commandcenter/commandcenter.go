// Package commandcenter is the built-in controller management app.
package commandcenter

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/alexhail/quickcontroller/apps"
)

// AppID is the command center's app id. The entities endpoint is scoped under it.
const AppID = "command_center"

//go:embed manifest.yaml
var manifestYAML []byte

// Manifest returns the command center manifest. It panics if the embedded
// manifest is invalid.
func Manifest() apps.Manifest {
	m, err := apps.ParseManifest(manifestYAML)
	if err != nil {
		panic(fmt.Sprintf("commandcenter: embedded manifest: %v", err))
	}
	return *m
}

// Load is the command center's apps.Loader.
func Load(ctx context.Context) (*apps.Manifest, error) {
	return apps.FromYAML(manifestYAML)(ctx)
}
