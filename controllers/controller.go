package controllers

import "time"

// Connection states reported by the server
const (
	StatusConnected    = "connected"
	StatusDisconnected = "disconnected"
	StatusError        = "error"
)

// Controller is a registered home automation controller. The access token is
// write-only: it is sent on create and update but never returned.
type Controller struct {
	ID               string     `json:"id"`
	UserID           string     `json:"user_id"`
	Name             string     `json:"name"`
	URL              string     `json:"url"`
	ConnectionStatus string     `json:"connection_status"`
	LastSeen         *time.Time `json:"last_seen,omitempty"`
	LastError        *string    `json:"last_error,omitempty"`
	HAVersion        *string    `json:"ha_version,omitempty"`
	DiscoveredVia    *string    `json:"discovered_via,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// NewController is the payload for adding a controller.
type NewController struct {
	Name          string  `json:"name"`
	URL           string  `json:"url"`
	AccessToken   string  `json:"access_token"`
	DiscoveredVia *string `json:"discovered_via"`
}

// Patch is a partial update; nil fields are left unchanged.
type Patch struct {
	Name        *string `json:"name,omitempty"`
	URL         *string `json:"url,omitempty"`
	AccessToken *string `json:"access_token,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Name == nil && p.URL == nil && p.AccessToken == nil
}

// DiscoveredController is a controller found on the local network.
type DiscoveredController struct {
	Name      string   `json:"name"`
	URL       string   `json:"url"`
	Addresses []string `json:"addresses"`
}

// ConnectionResult is the outcome of testing a URL and access token pair.
type ConnectionResult struct {
	Success bool    `json:"success"`
	Error   *string `json:"error,omitempty"`
	Version *string `json:"version,omitempty"`
}
