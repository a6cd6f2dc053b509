package devices

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/alexhail/quickcontroller/apiclient"
)

// ViewMode selects between healthy entities and every entity.
type ViewMode string

const (
	ViewActive ViewMode = "active"
	ViewAll    ViewMode = "all"
)

// ParseViewMode validates a view mode name.
func ParseViewMode(s string) (ViewMode, error) {
	switch m := ViewMode(s); m {
	case ViewActive, ViewAll:
		return m, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidViewMode, s)
}

// Requester is the subset of apiclient.Client used to fetch entities.
type Requester interface {
	DoJSON(ctx context.Context, method, endpoint string, body, out any, opts ...apiclient.RequestOption) error
}

// HealthViewOption configures a HealthView.
type HealthViewOption func(*HealthView)

// WithNowFunc overrides the clock used for freshness checks.
func WithNowFunc(now func() time.Time) HealthViewOption {
	return func(v *HealthView) {
		v.nowFunc = now
	}
}

// WithFreshnessWindow overrides DefaultFreshnessWindow.
func WithFreshnessWindow(window time.Duration) HealthViewOption {
	return func(v *HealthView) {
		if window > 0 {
			v.freshness = window
		}
	}
}

// HealthView is the derived view over the entities of the selected
// controller. Every derived list is recomputed on access against the current
// time, so two reads may differ when an entity crosses the freshness window
// between them.
type HealthView struct {
	client    Requester
	nowFunc   func() time.Time
	freshness time.Duration

	mu                 sync.RWMutex
	entities           []Entity
	loading            bool
	lastErr            error
	selectedController string
	selectedDomain     string
	fetchedDomain      string // domain the current entity list was scoped to
	viewMode           ViewMode
	fetchSeq           uint64
}

// NewHealthView creates an empty view in active mode.
func NewHealthView(client Requester, options ...HealthViewOption) *HealthView {
	v := &HealthView{
		client:    client,
		nowFunc:   time.Now,
		freshness: DefaultFreshnessWindow,
		viewMode:  ViewActive,
	}
	for _, opt := range options {
		opt(v)
	}
	return v
}

// FetchEntities selects controllerID and domain and loads the controller's
// entities, scoped to domain when it is not empty. On failure the entity list
// is emptied and the error is kept in the error slot as well as returned. A
// response that arrives after a newer fetch started is discarded.
func (v *HealthView) FetchEntities(ctx context.Context, controllerID, domain string) error {
	v.mu.Lock()
	v.fetchSeq++
	seq := v.fetchSeq
	v.loading = true
	v.lastErr = nil
	v.selectedController = controllerID
	v.selectedDomain = domain
	v.mu.Unlock()

	var opts []apiclient.RequestOption
	if domain != "" {
		opts = append(opts, apiclient.WithQuery(url.Values{"domain": {domain}}))
	}
	endpoint := fmt.Sprintf(apiclient.EndpointControllerEntitiesFmt, url.PathEscape(controllerID))

	var entities []Entity
	err := v.client.DoJSON(ctx, http.MethodGet, endpoint, nil, &entities, opts...)

	v.mu.Lock()
	defer v.mu.Unlock()
	if seq != v.fetchSeq {
		return err
	}
	v.loading = false
	if err != nil {
		log.Warn().Err(err).Str("controller_id", controllerID).Msg("Failed to fetch entities")
		v.lastErr = err
		v.entities = nil
		v.fetchedDomain = ""
		return err
	}
	v.entities = entities
	v.fetchedDomain = domain
	return nil
}

// Refresh re-fetches the selected controller with the selected domain. It is
// a no-op when no controller is selected.
func (v *HealthView) Refresh(ctx context.Context) error {
	v.mu.RLock()
	controllerID, domain := v.selectedController, v.selectedDomain
	v.mu.RUnlock()
	if controllerID == "" {
		return nil
	}
	return v.FetchEntities(ctx, controllerID, domain)
}

// SetDomain selects a domain facet ("" clears it) and, when a controller is
// selected, re-fetches its entities scoped to that domain.
func (v *HealthView) SetDomain(ctx context.Context, domain string) error {
	v.mu.Lock()
	v.selectedDomain = domain
	controllerID := v.selectedController
	v.mu.Unlock()
	if controllerID == "" {
		return nil
	}
	return v.FetchEntities(ctx, controllerID, domain)
}

// SetViewMode switches between the active and all views and always clears the
// domain facet. If the loaded entities were scoped to a domain they are
// re-fetched unscoped, so the new view is not domain restricted.
func (v *HealthView) SetViewMode(ctx context.Context, mode ViewMode) error {
	if _, err := ParseViewMode(string(mode)); err != nil {
		return err
	}

	v.mu.Lock()
	v.viewMode = mode
	v.selectedDomain = ""
	controllerID, scoped := v.selectedController, v.fetchedDomain != ""
	v.mu.Unlock()

	if controllerID == "" || !scoped {
		return nil
	}
	return v.FetchEntities(ctx, controllerID, "")
}

// Healthy reports whether e is healthy under the view's clock and freshness
// window.
func (v *HealthView) Healthy(e Entity) bool {
	return IsHealthy(e, v.nowFunc(), v.freshness)
}

// SetEntities replaces the entity list without fetching.
func (v *HealthView) SetEntities(entities []Entity) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.entities = append([]Entity(nil), entities...)
	v.fetchedDomain = ""
}

// Entities returns the full entity list.
func (v *HealthView) Entities() []Entity {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return append([]Entity(nil), v.entities...)
}

// Domains returns the sorted distinct domains of all entities.
func (v *HealthView) Domains() []string {
	return distinctDomains(v.Entities())
}

// ActiveEntities returns the healthy entities as of now.
func (v *HealthView) ActiveEntities() []Entity {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.activeLocked()
}

func (v *HealthView) activeLocked() []Entity {
	now := v.nowFunc()
	active := make([]Entity, 0, len(v.entities))
	for _, e := range v.entities {
		if IsHealthy(e, now, v.freshness) {
			active = append(active, e)
		}
	}
	return active
}

// ActiveDomains returns the sorted distinct domains of the healthy entities.
func (v *HealthView) ActiveDomains() []string {
	return distinctDomains(v.ActiveEntities())
}

func (v *HealthView) baseLocked() []Entity {
	if v.viewMode == ViewAll {
		return append([]Entity(nil), v.entities...)
	}
	return v.activeLocked()
}

// CurrentDomains returns the domains of the current view mode.
func (v *HealthView) CurrentDomains() []string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return distinctDomains(v.baseLocked())
}

// FilteredEntities returns the entities of the current view mode restricted to
// the selected domain, if any.
func (v *HealthView) FilteredEntities() []Entity {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return filterDomain(v.baseLocked(), v.selectedDomain)
}

// ViewMode returns the current view mode.
func (v *HealthView) ViewMode() ViewMode {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.viewMode
}

// SelectedDomain returns the selected domain facet, or "".
func (v *HealthView) SelectedDomain() string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.selectedDomain
}

// SelectedController returns the selected controller id, or "".
func (v *HealthView) SelectedController() string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.selectedController
}

// Loading reports whether a fetch is in flight.
func (v *HealthView) Loading() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.loading
}

// Err returns the error of the last fetch, or nil.
func (v *HealthView) Err() error {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.lastErr
}

// Reset drops the entity list and every selection. Called on logout.
func (v *HealthView) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.fetchSeq++
	v.entities = nil
	v.loading = false
	v.lastErr = nil
	v.selectedController = ""
	v.selectedDomain = ""
	v.fetchedDomain = ""
	v.viewMode = ViewActive
}
