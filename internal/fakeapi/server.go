// Package fakeapi is an in-memory implementation of the dashboard REST API.
// It backs the package tests and the local development server.
package fakeapi

import (
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/alexhail/quickcontroller/apiclient"
	"github.com/alexhail/quickcontroller/apps"
	"github.com/alexhail/quickcontroller/devices"
)

const (
	defaultSigningSecret      = "fakeapi-development-secret"
	defaultAccessTokenExpiry  = 15 * time.Minute
	defaultRefreshTokenExpiry = 7 * 24 * time.Hour

	// CommandCenterAppID owns the entity, discovery and connection test endpoints.
	CommandCenterAppID = "command_center"
)

// Option configures a Server.
type Option func(*Server)

// WithNowFunc overrides the server clock, which drives token expiry and
// controller timestamps.
func WithNowFunc(now func() time.Time) Option {
	return func(s *Server) {
		s.nowFunc = now
	}
}

// WithSigningSecret sets the HMAC secret for access tokens.
func WithSigningSecret(secret string) Option {
	return func(s *Server) {
		if secret != "" {
			s.signer = newSigner(secret)
		}
	}
}

// WithAccessTokenExpiry sets the access token lifetime.
func WithAccessTokenExpiry(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.accessTokenExpiry = d
		}
	}
}

// WithRefreshTokenExpiry sets the refresh token lifetime.
func WithRefreshTokenExpiry(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.refreshTokenExpiry = d
		}
	}
}

// WithAllowedOrigins enables credentialed CORS for origins, so a dashboard
// served from another origin can send the refresh cookie.
func WithAllowedOrigins(origins ...string) Option {
	return func(s *Server) {
		s.allowedOrigins = origins
	}
}

// WithSecureCookies marks the refresh cookie Secure.
func WithSecureCookies(secure bool) Option {
	return func(s *Server) {
		s.secureCookies = secure
	}
}

type fault struct {
	status int
	detail string
}

// Server is the fake API. Its zero value is not usable; call New.
type Server struct {
	nowFunc            func() time.Time
	signer             *signer
	accessTokenExpiry  time.Duration
	refreshTokenExpiry time.Duration
	secureCookies      bool
	allowedOrigins     []string

	users       *userRepo
	refresh     *refreshStore
	revoked     *revokedTokens
	controllers *controllerRepo

	mu          sync.RWMutex
	instances   map[string]*Instance
	catalog     []apps.CatalogEntry
	permissions map[string]map[string]bool // user id -> app id -> access
	faults      map[string][]fault
	calls       map[string]int

	router chi.Router
}

// New creates a Server with the command center app in its catalog.
func New(options ...Option) *Server {
	s := &Server{
		nowFunc:            time.Now,
		signer:             newSigner(defaultSigningSecret),
		accessTokenExpiry:  defaultAccessTokenExpiry,
		refreshTokenExpiry: defaultRefreshTokenExpiry,
		users:              newUserRepo(),
		refresh:            newRefreshStore(),
		revoked:            newRevokedTokens(),
		controllers:        newControllerRepo(),
		instances:          make(map[string]*Instance),
		permissions:        make(map[string]map[string]bool),
		faults:             make(map[string][]fault),
		calls:              make(map[string]int),
		catalog: []apps.CatalogEntry{{
			AppID:         CommandCenterAppID,
			DisplayName:   "Command Center",
			Icon:          "settings",
			DefaultAccess: true,
		}},
	}
	for _, opt := range options {
		opt(s)
	}
	s.router = s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	if len(s.allowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.allowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
	r.Use(s.countCalls)
	r.Use(s.injectFaults)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/register", s.handleRegister)
		r.Post("/auth/login", s.handleLogin)
		r.Post("/auth/logout", s.handleLogout)
		r.Post("/auth/refresh", s.handleRefresh)
		r.Get("/apps", s.handleListApps)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Get("/auth/me", s.handleMe)
			r.Get("/apps/permissions", s.handlePermissions)

			r.Get("/controllers", s.handleListControllers)
			r.Post("/controllers", s.handleCreateController)
			r.Get("/controllers/{controllerID}", s.handleGetController)
			r.Patch("/controllers/{controllerID}", s.handleUpdateController)
			r.Delete("/controllers/{controllerID}", s.handleDeleteController)

			r.Group(func(r chi.Router) {
				r.Use(s.requireAppAccess(CommandCenterAppID))
				r.Post("/controllers/discover", s.handleDiscover)
				r.Post("/controllers/test-connection", s.handleTestConnection)
				r.Get("/apps/command_center/controllers/{controllerID}/entities", s.handleEntities)
			})
		})
	})
	return r
}

// AddInstance makes a simulated controller reachable at inst.URL.
func (s *Server) AddInstance(inst Instance) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := inst
	s.instances[inst.URL] = &cp
}

// SetInstanceEntities replaces the entities reported by the instance at url.
func (s *Server) SetInstanceEntities(url string, entities []devices.Entity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if inst, ok := s.instances[url]; ok {
		inst.Entities = append(inst.Entities[:0:0], entities...)
	}
}

// RegisterApp adds an app to the catalog.
func (s *Server) RegisterApp(entry apps.CatalogEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.catalog = append(s.catalog, entry)
}

// SetPermission records an explicit app permission for the account with email.
// It reports whether the account exists.
func (s *Server) SetPermission(email, appID string, hasAccess bool) bool {
	userID, ok := s.users.idForEmail(email)
	if !ok {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.permissions[userID] == nil {
		s.permissions[userID] = make(map[string]bool)
	}
	s.permissions[userID][appID] = hasAccess
	return true
}

// CreateUser registers an account directly, bypassing the HTTP layer.
func (s *Server) CreateUser(email, password string) error {
	_, err := s.users.create(email, password)
	return err
}

// FailNext makes the next request to method and path fail with status and a
// detail message. Faults queue up per route.
func (s *Server) FailNext(method, path string, status int, detail string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := method + " " + path
	s.faults[key] = append(s.faults[key], fault{status: status, detail: detail})
}

// Calls returns how many requests reached method and path.
func (s *Server) Calls(method, path string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.calls[method+" "+path]
}

// RefreshCalls returns how many refresh requests were made.
func (s *Server) RefreshCalls() int {
	return s.Calls(http.MethodPost, apiclient.EndpointRefresh)
}

func (s *Server) hasAppAccess(userID, appID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if explicit, ok := s.permissions[userID][appID]; ok {
		return explicit
	}
	for _, e := range s.catalog {
		if e.AppID == appID {
			return e.DefaultAccess
		}
	}
	return false
}

func (s *Server) instance(url string) (Instance, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inst, ok := s.instances[url]
	if !ok {
		return Instance{}, false
	}
	return *inst, true
}
