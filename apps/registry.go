package apps

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
)

// Loader produces one app manifest. Loaders are evaluated in the order they
// are handed to InitializeApps.
type Loader func(ctx context.Context) (*Manifest, error)

// Static wraps an already built manifest as a Loader.
func Static(m Manifest) Loader {
	return func(context.Context) (*Manifest, error) {
		return &m, nil
	}
}

// Registry is the in-memory catalog of app manifests. It is populated during
// startup and read-only afterwards.
type Registry struct {
	mu    sync.RWMutex
	apps  map[string]*Manifest
	order []string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		apps: make(map[string]*Manifest),
	}
}

// Register validates m and adds a copy of it to the catalog. Registering an
// app id that is already present is not an error: the first registration wins
// and a warning is logged, whatever the duplicate's payload. It reports
// whether m was added.
func (r *Registry) Register(m *Manifest) (bool, error) {
	if m == nil {
		return false, ErrNilManifest
	}
	if err := m.validateAppID(); err != nil {
		return false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.apps[m.AppID]; ok {
		log.Warn().
			Str("app_id", m.AppID).
			Str("existing", existing.DisplayName).
			Msg("App already registered, ignoring duplicate")
		return false, nil
	}
	if err := m.Validate(); err != nil {
		return false, err
	}
	r.apps[m.AppID] = m.clone()
	r.order = append(r.order, m.AppID)
	return true, nil
}

// Get returns a copy of the manifest registered under appID.
func (r *Registry) Get(appID string) (*Manifest, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.apps[appID]
	if !ok {
		return nil, false
	}
	return m.clone(), true
}

// GetAll returns copies of every manifest in registration order.
func (r *Registry) GetAll() []*Manifest {
	r.mu.RLock()
	defer r.mu.RUnlock()
	all := make([]*Manifest, 0, len(r.order))
	for _, id := range r.order {
		all = append(all, r.apps[id].clone())
	}
	return all
}

// Len returns the number of registered apps.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Default returns the default app: the first registered manifest flagged as
// default, or the first registered manifest when none is flagged.
func (r *Registry) Default() (*Manifest, bool) {
	m := DefaultOf(r.GetAll())
	return m, m != nil
}

// InitializeApps evaluates loaders in order and registers each manifest. A
// failing loader does not stop the others; all failures are returned joined.
func (r *Registry) InitializeApps(ctx context.Context, loaders ...Loader) error {
	var errs []error
	for i, load := range loaders {
		if err := ctx.Err(); err != nil {
			return err
		}
		m, err := load(ctx)
		if err != nil {
			log.Err(err).Int("loader", i).Msg("Failed to load app")
			errs = append(errs, fmt.Errorf("loader %d: %w", i, err))
			continue
		}
		if m == nil {
			errs = append(errs, fmt.Errorf("loader %d: %w", i, ErrLoaderReturnedNoApp))
			continue
		}
		if _, err := r.Register(m); err != nil {
			log.Err(err).Str("app_id", m.AppID).Msg("Rejected app manifest")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// DefaultOf applies the default app tie-break to an ordered list of manifests.
func DefaultOf(manifests []*Manifest) *Manifest {
	for _, m := range manifests {
		if m.IsDefault {
			return m
		}
	}
	if len(manifests) > 0 {
		return manifests[0]
	}
	return nil
}
