package apps

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var appIDPattern = regexp.MustCompile(`^[a-z0-9_]+$`)

// RouteSpec is a route declared by an app. Path is relative to the app root
// ("" is the app root itself). Name is optional and is namespaced with the
// app id when mounted.
type RouteSpec struct {
	Path      string `json:"path" yaml:"path"`
	Name      string `json:"name,omitempty" yaml:"name,omitempty"`
	Component string `json:"component" yaml:"component"` // Opaque view reference
}

// Manifest describes a pluggable application. A manifest is immutable once
// registered; the registry keeps its own copy.
type Manifest struct {
	AppID         string      `json:"app_id" yaml:"app_id"`
	DisplayName   string      `json:"display_name" yaml:"display_name"`
	Icon          string      `json:"icon" yaml:"icon"`
	IsDefault     bool        `json:"is_default" yaml:"is_default"`
	Routes        []RouteSpec `json:"routes" yaml:"routes"`
	Subscriptions []string    `json:"subscriptions,omitempty" yaml:"subscriptions,omitempty"`
}

// Validate checks the manifest contract: a well formed app id, a display name,
// a component on every route and no duplicate route names or paths.
func (m *Manifest) Validate() error {
	if m == nil {
		return ErrNilManifest
	}
	if err := m.validateAppID(); err != nil {
		return err
	}
	if strings.TrimSpace(m.DisplayName) == "" {
		return fmt.Errorf("%s: %w", m.AppID, ErrMissingDisplayName)
	}

	names := make(map[string]struct{}, len(m.Routes))
	paths := make(map[string]struct{}, len(m.Routes))
	for _, r := range m.Routes {
		if strings.HasPrefix(r.Path, "/") {
			return fmt.Errorf("%s: %w: %q", m.AppID, ErrInvalidRoutePath, r.Path)
		}
		if r.Component == "" {
			return fmt.Errorf("%s: route %q: %w", m.AppID, r.Path, ErrMissingComponent)
		}
		if _, ok := paths[r.Path]; ok {
			return fmt.Errorf("%s: %w: %q", m.AppID, ErrDuplicateRoutePath, r.Path)
		}
		paths[r.Path] = struct{}{}
		if r.Name == "" {
			continue
		}
		if _, ok := names[r.Name]; ok {
			return fmt.Errorf("%s: %w: %q", m.AppID, ErrDuplicateRouteName, r.Name)
		}
		names[r.Name] = struct{}{}
	}
	return nil
}

func (m *Manifest) validateAppID() error {
	if !appIDPattern.MatchString(m.AppID) {
		return fmt.Errorf("%w: %q", ErrInvalidAppID, m.AppID)
	}
	return nil
}

// ParseManifest decodes a YAML manifest and validates it. Unknown fields are
// rejected.
func ParseManifest(data []byte) (*Manifest, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var m Manifest
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedManifest, err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// FromYAML returns a Loader that parses data on every call.
func FromYAML(data []byte) Loader {
	return func(context.Context) (*Manifest, error) {
		return ParseManifest(data)
	}
}

// RootPath is the path the app is mounted at.
func (m *Manifest) RootPath() string {
	return "/" + m.AppID
}

// RouteName returns the globally unique name of one of the app's routes.
func (m *Manifest) RouteName(name string) string {
	if name == "" {
		return ""
	}
	return m.AppID + "-" + name
}

// HasSubscription reports whether the app subscribes to topic.
func (m *Manifest) HasSubscription(topic string) bool {
	for _, s := range m.Subscriptions {
		if s == topic {
			return true
		}
	}
	return false
}

func (m *Manifest) clone() *Manifest {
	c := *m
	c.Routes = append([]RouteSpec(nil), m.Routes...)

	seen := make(map[string]struct{}, len(m.Subscriptions))
	c.Subscriptions = make([]string, 0, len(m.Subscriptions))
	for _, s := range m.Subscriptions {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		c.Subscriptions = append(c.Subscriptions, s)
	}
	return &c
}
