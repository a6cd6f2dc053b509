package controllers

import (
	"context"
	"net/http"
	"net/url"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/alexhail/quickcontroller/apiclient"
)

// Requester is the subset of apiclient.Client used by the store.
type Requester interface {
	DoJSON(ctx context.Context, method, endpoint string, body, out any, opts ...apiclient.RequestOption) error
}

type testConnectionRequest struct {
	URL         string `json:"url"`
	AccessToken string `json:"access_token"`
}

// Store caches the user's controllers. Every operation returns the server's
// error and also keeps it in the store's error slot for display.
type Store struct {
	client Requester

	mu          sync.RWMutex
	controllers []Controller
	loading     bool
	lastErr     error
}

// NewStore creates an empty store.
func NewStore(client Requester) *Store {
	return &Store{client: client}
}

func controllerEndpoint(id string) string {
	return apiclient.EndpointControllers + "/" + url.PathEscape(id)
}

// Fetch replaces the cache with the server's list. On failure the cache is
// emptied.
func (s *Store) Fetch(ctx context.Context) error {
	s.mu.Lock()
	s.loading = true
	s.lastErr = nil
	s.mu.Unlock()

	var list []Controller
	err := s.client.DoJSON(ctx, http.MethodGet, apiclient.EndpointControllers, nil, &list)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if err != nil {
		log.Warn().Err(err).Msg("Failed to fetch controllers")
		s.lastErr = err
		s.controllers = nil
		return err
	}
	s.controllers = list
	return nil
}

// Add creates a controller and puts it at the front of the cache.
func (s *Store) Add(ctx context.Context, nc NewController) (*Controller, error) {
	s.resetErr()
	var created Controller
	if err := s.client.DoJSON(ctx, http.MethodPost, apiclient.EndpointControllers, nc, &created); err != nil {
		return nil, s.fail(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.controllers = append([]Controller{created}, s.controllers...)
	return &created, nil
}

// Update applies patch to controller id and replaces the cached copy.
func (s *Store) Update(ctx context.Context, id string, patch Patch) (*Controller, error) {
	s.resetErr()
	if id == "" {
		return nil, s.fail(ErrMissingID)
	}
	if patch.IsEmpty() {
		return nil, s.fail(ErrEmptyPatch)
	}

	var updated Controller
	if err := s.client.DoJSON(ctx, http.MethodPatch, controllerEndpoint(id), patch, &updated); err != nil {
		return nil, s.fail(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.controllers {
		if s.controllers[i].ID == id {
			s.controllers[i] = updated
			break
		}
	}
	return &updated, nil
}

// Delete removes controller id on the server and from the cache.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.resetErr()
	if id == "" {
		return s.fail(ErrMissingID)
	}
	if err := s.client.DoJSON(ctx, http.MethodDelete, controllerEndpoint(id), nil, nil); err != nil {
		return s.fail(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.controllers[:0]
	for _, c := range s.controllers {
		if c.ID != id {
			kept = append(kept, c)
		}
	}
	s.controllers = kept
	return nil
}

// Discover scans the local network for controllers.
func (s *Store) Discover(ctx context.Context) ([]DiscoveredController, error) {
	s.resetErr()
	var found []DiscoveredController
	if err := s.client.DoJSON(ctx, http.MethodPost, apiclient.EndpointDiscover, nil, &found); err != nil {
		return nil, s.fail(err)
	}
	return found, nil
}

// TestConnection checks a URL and access token pair without saving it. An
// unreachable controller is a result with Success false, not an error.
func (s *Store) TestConnection(ctx context.Context, controllerURL, accessToken string) (*ConnectionResult, error) {
	s.resetErr()
	var result ConnectionResult
	req := testConnectionRequest{URL: controllerURL, AccessToken: accessToken}
	if err := s.client.DoJSON(ctx, http.MethodPost, apiclient.EndpointTestConnection, req, &result); err != nil {
		return nil, s.fail(err)
	}
	return &result, nil
}

// List returns the cached controllers.
func (s *Store) List() []Controller {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Controller(nil), s.controllers...)
}

// Get returns the cached controller with id.
func (s *Store) Get(id string) (Controller, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.controllers {
		if c.ID == id {
			return c, true
		}
	}
	return Controller{}, false
}

// Loading reports whether Fetch is in flight.
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Err returns the error of the last operation, or nil.
func (s *Store) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// Reset empties the cache and the error slot. Called on logout.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.controllers = nil
	s.lastErr = nil
	s.loading = false
}

func (s *Store) resetErr() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = nil
}

func (s *Store) fail(err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = err
	return err
}
