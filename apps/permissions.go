package apps

import (
	"context"
	"net/http"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/alexhail/quickcontroller/apiclient"
)

// Requester is the subset of apiclient.Client used to talk to the API.
type Requester interface {
	DoJSON(ctx context.Context, method, endpoint string, body, out any, opts ...apiclient.RequestOption) error
}

// Permission is a per-user access record for one app.
type Permission struct {
	AppID     string `json:"app_id"`
	HasAccess bool   `json:"has_access"`
}

// PermissionFilter exposes the apps the current user may open. It fails open:
// before permissions are fetched every registered app is accessible, and an
// app without a permission record is accessible.
type PermissionFilter struct {
	registry *Registry
	client   Requester

	mu           sync.RWMutex
	permissions  []Permission // nil until fetched
	currentAppID string
}

// NewPermissionFilter creates a filter over registry backed by client.
func NewPermissionFilter(registry *Registry, client Requester) *PermissionFilter {
	return &PermissionFilter{
		registry: registry,
		client:   client,
	}
}

// FetchPermissions loads the current user's permission records. On failure
// the records collapse to an empty list, which leaves every app accessible,
// and the error is returned for display.
func (f *PermissionFilter) FetchPermissions(ctx context.Context) error {
	var perms []Permission
	err := f.client.DoJSON(ctx, http.MethodGet, apiclient.EndpointPermissions, nil, &perms)
	if err != nil {
		log.Err(err).Msg("Failed to fetch app permissions")
		perms = []Permission{}
	}
	if perms == nil {
		perms = []Permission{}
	}
	f.SetPermissions(perms)
	return err
}

// SetPermissions replaces the permission records.
func (f *PermissionFilter) SetPermissions(perms []Permission) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.permissions = append(make([]Permission, 0, len(perms)), perms...)
}

// Loaded reports whether permissions have been fetched for this session.
func (f *PermissionFilter) Loaded() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.permissions != nil
}

// Reset forgets the fetched permissions and the current app, returning the
// filter to its pre-fetch state. Called on logout.
func (f *PermissionFilter) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.permissions = nil
	f.currentAppID = ""
}

// HasAccess reports whether appID is accessible under the fail-open rules.
func (f *PermissionFilter) HasAccess(appID string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.hasAccess(appID)
}

func (f *PermissionFilter) hasAccess(appID string) bool {
	if f.permissions == nil {
		return true
	}
	for _, p := range f.permissions {
		if p.AppID == appID {
			return p.HasAccess
		}
	}
	return true
}

// AccessibleApps returns the accessible apps in registration order.
func (f *PermissionFilter) AccessibleApps() []*Manifest {
	all := f.registry.GetAll()

	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.permissions == nil {
		return all
	}
	accessible := make([]*Manifest, 0, len(all))
	for _, m := range all {
		if f.hasAccess(m.AppID) {
			accessible = append(accessible, m)
		}
	}
	return accessible
}

// DefaultApp applies the default app tie-break over the accessible apps.
func (f *PermissionFilter) DefaultApp() *Manifest {
	return DefaultOf(f.AccessibleApps())
}

// SetCurrentApp records the app the user is working in.
func (f *PermissionFilter) SetCurrentApp(appID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.currentAppID = appID
}

// CurrentApp returns the manifest of the current app, or nil.
func (f *PermissionFilter) CurrentApp() *Manifest {
	f.mu.RLock()
	id := f.currentAppID
	f.mu.RUnlock()
	if id == "" {
		return nil
	}
	m, _ := f.registry.Get(id)
	return m
}
