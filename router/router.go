package router

import (
	"context"
	"fmt"
	"path"
	"strings"
	"sync"
)

const maxRedirects = 10

// Meta is the metadata a guard inspects. Children inherit the flags of their
// parent route.
type Meta struct {
	RequiresAuth bool   `json:"requires_auth,omitempty"`
	Guest        bool   `json:"guest,omitempty"`
	AppID        string `json:"app_id,omitempty"`
}

func (m Meta) inherit(parent Meta) Meta {
	m.RequiresAuth = m.RequiresAuth || parent.RequiresAuth
	m.Guest = m.Guest || parent.Guest
	if m.AppID == "" {
		m.AppID = parent.AppID
	}
	return m
}

// Route is a node of the route tree. Child paths are relative to the parent;
// an empty child path is the parent's own path.
type Route struct {
	Path      string
	Name      string
	Component string
	Redirect  string
	Meta      Meta
	Children  []*Route
}

// Match is a resolved route.
type Match struct {
	Path      string `json:"path"`
	Name      string `json:"name,omitempty"`
	Component string `json:"component,omitempty"`
	Redirect  string `json:"redirect,omitempty"`
	Meta      Meta   `json:"meta"`
}

// Target identifies a navigation destination by name or by path. Name wins
// when both are set.
type Target struct {
	Name string
	Path string
}

// ToPath targets a path.
func ToPath(p string) Target { return Target{Path: p} }

// ToName targets a named route.
func ToName(name string) Target { return Target{Name: name} }

func (t Target) String() string {
	if t.Name != "" {
		return "name:" + t.Name
	}
	return t.Path
}

// Guard runs before every navigation. It returns nil to let the navigation
// proceed or a Target to redirect to.
type Guard func(ctx context.Context, to *Match) (*Target, error)

// Router holds the route table and the navigation guards.
type Router struct {
	mu      sync.RWMutex
	records []*Match
	byPath  map[string]*Match
	byName  map[string]*Match
	guards  []Guard
	current *Match
}

// New returns an empty router.
func New() *Router {
	return &Router{
		byPath: make(map[string]*Match),
		byName: make(map[string]*Match),
	}
}

// AddRoute adds r and its children. Names and paths must be unique and a
// redirect must point at a path that already exists. Nothing is added when an
// error is returned.
func (r *Router) AddRoute(route *Route) error {
	flat := flatten(route, "", Meta{})

	r.mu.Lock()
	defer r.mu.Unlock()

	names := make(map[string]struct{}, len(flat))
	paths := make(map[string]struct{}, len(flat))
	for _, m := range flat {
		if _, ok := r.byPath[m.Path]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateRoutePath, m.Path)
		}
		if _, ok := paths[m.Path]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateRoutePath, m.Path)
		}
		paths[m.Path] = struct{}{}
		if m.Name == "" {
			continue
		}
		if _, ok := r.byName[m.Name]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateRouteName, m.Name)
		}
		if _, ok := names[m.Name]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateRouteName, m.Name)
		}
		names[m.Name] = struct{}{}
	}
	for _, m := range flat {
		if m.Redirect == "" {
			continue
		}
		if _, ok := r.byPath[m.Redirect]; !ok {
			if _, ok := paths[m.Redirect]; !ok {
				return fmt.Errorf("%w: %s -> %s", ErrUnknownRedirect, m.Path, m.Redirect)
			}
		}
	}

	for _, m := range flat {
		r.records = append(r.records, m)
		r.byPath[m.Path] = m
		if m.Name != "" {
			r.byName[m.Name] = m
		}
	}
	return nil
}

func flatten(route *Route, parentPath string, parentMeta Meta) []*Match {
	full := joinPath(parentPath, route.Path)
	meta := route.Meta.inherit(parentMeta)

	var out []*Match
	// A parent whose empty-path child exists is represented by that child.
	if !hasIndexChild(route) {
		out = append(out, &Match{
			Path:      full,
			Name:      route.Name,
			Component: route.Component,
			Redirect:  normalize(route.Redirect),
			Meta:      meta,
		})
	}
	for _, child := range route.Children {
		out = append(out, flatten(child, full, meta)...)
	}
	return out
}

func hasIndexChild(route *Route) bool {
	for _, c := range route.Children {
		if c.Path == "" {
			return true
		}
	}
	return false
}

func joinPath(parent, p string) string {
	if strings.HasPrefix(p, "/") || parent == "" {
		return normalize(p)
	}
	return normalize(path.Join(parent, p))
}

func normalize(p string) string {
	if p == "" {
		return ""
	}
	p = path.Clean("/" + p)
	return p
}

// BeforeEach appends a navigation guard. Guards run in the order added.
func (r *Router) BeforeEach(g Guard) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.guards = append(r.guards, g)
}

// Resolve looks a target up without running guards or following redirects.
func (r *Router) Resolve(t Target) (*Match, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var (
		m  *Match
		ok bool
	)
	switch {
	case t.Name != "":
		m, ok = r.byName[t.Name]
	case t.Path != "":
		m, ok = r.byPath[normalize(t.Path)]
	default:
		return nil, ErrEmptyTarget
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRouteNotFound, t)
	}
	c := *m
	return &c, nil
}

// Navigate resolves t, follows static redirects and runs every guard,
// restarting whenever a guard redirects. The final match becomes the current
// route.
func (r *Router) Navigate(ctx context.Context, t Target) (*Match, error) {
	r.mu.RLock()
	guards := append([]Guard(nil), r.guards...)
	r.mu.RUnlock()

	target := t
	for hops := 0; hops <= maxRedirects; hops++ {
		m, err := r.Resolve(target)
		if err != nil {
			return nil, err
		}
		if m.Redirect != "" {
			target = ToPath(m.Redirect)
			continue
		}

		next, err := runGuards(ctx, guards, m)
		if err != nil {
			return nil, err
		}
		if next != nil {
			target = *next
			continue
		}

		r.mu.Lock()
		r.current = m
		r.mu.Unlock()
		return m, nil
	}
	return nil, fmt.Errorf("%w: navigating to %s", ErrTooManyRedirects, t)
}

func runGuards(ctx context.Context, guards []Guard, m *Match) (*Target, error) {
	for _, g := range guards {
		next, err := g(ctx, m)
		if err != nil || next != nil {
			return next, err
		}
	}
	return nil, nil
}

// Current returns the route of the last successful navigation, or nil.
func (r *Router) Current() *Match {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.current == nil {
		return nil
	}
	c := *r.current
	return &c
}

// Routes returns every route in the order added.
func (r *Router) Routes() []Match {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Match, 0, len(r.records))
	for _, m := range r.records {
		out = append(out, *m)
	}
	return out
}
