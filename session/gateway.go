package session

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/alexhail/quickcontroller/apiclient"
	"github.com/alexhail/quickcontroller/token"
	"github.com/alexhail/quickcontroller/users"
)

const initializeFlightID = "initialize"

// Session is a point-in-time view of the client session. AccessToken and User
// are either both set or both empty.
type Session struct {
	AccessToken   string
	User          *users.User
	IsInitialized bool
}

// Authenticated reports whether the snapshot holds a full session.
func (s Session) Authenticated() bool {
	return s.User != nil && s.AccessToken != ""
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Gateway owns the client session: registration, login, logout, identity
// fetch and the one-time silent initialization.
type Gateway struct {
	client *apiclient.Client
	ledger *token.Ledger

	mu          sync.RWMutex
	user        *users.User
	initialized bool
	epoch       uint64 // advanced by Logout; stale initialization results are dropped

	initFlight singleflight.Group
}

// NewGateway creates a Gateway over client. The gateway registers itself to
// be notified when a failed refresh clears the token.
func NewGateway(client *apiclient.Client) (*Gateway, error) {
	if client == nil {
		return nil, errors.New("[NewGateway] client is required")
	}
	g := &Gateway{
		client: client,
		ledger: client.Ledger(),
	}
	client.OnSessionCleared(g.clearUser)
	return g, nil
}

// Client returns the API client the gateway sends requests through.
func (g *Gateway) Client() *apiclient.Client {
	return g.client
}

// Register creates an account. Server-side validation failures (duplicate
// email, weak password) are returned as apiclient.ErrValidation carrying the
// server's message.
func (g *Gateway) Register(ctx context.Context, email, password string) (*users.User, error) {
	var user users.User
	err := g.client.DoJSON(ctx, http.MethodPost, apiclient.EndpointRegister,
		credentials{Email: email, Password: password}, &user, apiclient.Anonymous())
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Login exchanges credentials for an access token and loads the identity. On
// failure any prior session is left untouched. If the token is issued but the
// identity cannot be loaded the new token is discarded so no partial session
// remains.
func (g *Gateway) Login(ctx context.Context, email, password string) (Session, error) {
	resp, err := g.client.Do(ctx, http.MethodPost, apiclient.EndpointLogin,
		credentials{Email: email, Password: password}, apiclient.Anonymous())
	if err != nil {
		return Session{}, errors.Wrap(err, "login")
	}
	if err := apiclient.CheckResponse(resp, "Login failed"); err != nil {
		return Session{}, err
	}
	defer resp.Body.Close()

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return Session{}, errors.Wrap(err, "login: decode token response")
	}
	if tr.AccessToken == "" {
		return Session{}, errors.New("login: response has no access token")
	}

	g.ledger.Set(tr.AccessToken)
	user, err := g.loadUser(ctx)
	if err != nil {
		g.ledger.Clear()
		g.clearUser()
		return Session{}, errors.Wrap(err, "login: fetch identity")
	}
	g.mu.Lock()
	g.user = user
	g.initialized = true
	g.mu.Unlock()
	return g.Session(), nil
}

// Logout notifies the server (best effort) and then unconditionally clears the
// token, the current user and the initialized flag. The server error, if any,
// is returned after the local session has been cleared.
func (g *Gateway) Logout(ctx context.Context) error {
	err := g.client.DoJSON(ctx, http.MethodPost, apiclient.EndpointLogout, nil, nil)

	g.mu.Lock()
	g.user = nil
	g.initialized = false
	g.epoch++
	g.mu.Unlock()
	g.ledger.Clear()

	if err != nil {
		log.Warn().Err(err).Msg("Logout: server notification failed, local session cleared")
		return errors.Wrap(err, "logout")
	}
	return nil
}

// FetchUser loads the identity for the current token. It never fails: any
// error (including having no token) resolves to nil and clears the session.
func (g *Gateway) FetchUser(ctx context.Context) *users.User {
	user, err := g.loadUser(ctx)
	if err != nil {
		log.Debug().Err(err).Msg("FetchUser: no identity")
		g.clearUser()
		g.ledger.Clear()
		return nil
	}
	g.setUser(user)
	return user
}

// Initialize runs the silent session restore at most once per session
// lifetime. Concurrent callers share one in-flight run and observe the same
// outcome. It never fails; an anonymous visitor is an expected state.
func (g *Gateway) Initialize(ctx context.Context) {
	if g.IsInitialized() {
		return
	}
	_, _, _ = g.initFlight.Do(initializeFlightID, func() (any, error) {
		g.initialize(context.WithoutCancel(ctx))
		return nil, nil
	})
}

func (g *Gateway) initialize(ctx context.Context) {
	g.mu.RLock()
	if g.initialized {
		g.mu.RUnlock()
		return
	}
	epoch := g.epoch
	g.mu.RUnlock()

	var user *users.User
	if g.client.Refresh(ctx) {
		generation := g.ledger.Generation()
		u, err := g.loadUser(ctx)
		if err != nil {
			log.Debug().Err(err).Msg("Initialize: identity fetch failed after refresh")
			g.ledger.ClearIfGeneration(generation)
		} else {
			user = u
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.epoch != epoch {
		// Logged out while initializing; the result belongs to a dead session.
		return
	}
	if user != nil {
		g.user = user
	}
	g.initialized = true
}

// IsInitialized reports whether Initialize has completed for this session lifetime.
func (g *Gateway) IsInitialized() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.initialized
}

// IsAuthenticated reports whether a full session (token and user) is present.
func (g *Gateway) IsAuthenticated() bool {
	return g.Session().Authenticated()
}

// CurrentUser returns the current identity, or nil.
func (g *Gateway) CurrentUser() *users.User {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.user
}

// Session returns a snapshot of the session. A token without a user (or the
// reverse) is reported as no session.
func (g *Gateway) Session() Session {
	g.mu.RLock()
	user, initialized := g.user, g.initialized
	g.mu.RUnlock()

	accessToken, ok := g.ledger.Get()
	if !ok || user == nil {
		return Session{IsInitialized: initialized}
	}
	return Session{AccessToken: accessToken, User: user, IsInitialized: initialized}
}

func (g *Gateway) loadUser(ctx context.Context) (*users.User, error) {
	if _, ok := g.ledger.Get(); !ok {
		return nil, errors.New("no access token")
	}
	var user users.User
	if err := g.client.DoJSON(ctx, http.MethodGet, apiclient.EndpointMe, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (g *Gateway) setUser(user *users.User) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.user = user
}

func (g *Gateway) clearUser() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.user = nil
}
