package devices

import (
	"sort"
	"strings"
	"time"
)

// DefaultFreshnessWindow is how recently an entity must have updated to count
// as healthy.
const DefaultFreshnessWindow = 5 * time.Minute

// States that never count as healthy, compared case-insensitively
const (
	StateUnavailable = "unavailable"
	StateUnknown     = "unknown"
)

// DomainUnknown is the domain of an entity id without a domain prefix.
const DomainUnknown = "unknown"

// Entity is a read-only snapshot of one device-like entity reported by a
// controller.
type Entity struct {
	ID           string         `json:"entity_id"`
	State        string         `json:"state"`
	LastChanged  time.Time      `json:"last_changed"`
	LastUpdated  time.Time      `json:"last_updated"`
	FriendlyName string         `json:"friendly_name,omitempty"`
	Domain       string         `json:"domain"`
	Attributes   map[string]any `json:"attributes"`
}

// DisplayName returns the friendly name, falling back to the entity id.
func (e Entity) DisplayName() string {
	if e.FriendlyName != "" {
		return e.FriendlyName
	}
	return e.ID
}

// IsHealthy reports whether e has a usable state and updated strictly less
// than window before now.
func IsHealthy(e Entity, now time.Time, window time.Duration) bool {
	switch strings.ToLower(e.State) {
	case StateUnavailable, StateUnknown:
		return false
	}
	return now.Sub(e.LastUpdated) < window
}

// DomainOf extracts the domain prefix of an entity id ("light.kitchen" is
// "light"). Ids without a dot belong to DomainUnknown.
func DomainOf(entityID string) string {
	domain, _, ok := strings.Cut(entityID, ".")
	if !ok {
		return DomainUnknown
	}
	return domain
}

func distinctDomains(entities []Entity) []string {
	seen := make(map[string]struct{}, len(entities))
	domains := make([]string, 0)
	for _, e := range entities {
		if _, ok := seen[e.Domain]; ok {
			continue
		}
		seen[e.Domain] = struct{}{}
		domains = append(domains, e.Domain)
	}
	sort.Strings(domains)
	return domains
}

func filterDomain(entities []Entity, domain string) []Entity {
	if domain == "" {
		return entities
	}
	out := make([]Entity, 0, len(entities))
	for _, e := range entities {
		if e.Domain == domain {
			out = append(out, e)
		}
	}
	return out
}
