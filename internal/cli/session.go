package cli

import (
	"context"
	"errors"
	"strings"

	"github.com/alexhail/quickcontroller/internal/config"
	"github.com/alexhail/quickcontroller/shell"
)

var errMissingCredentials = errors.New("--email and --password (or QC_EMAIL and QC_PASSWORD) are required")

// apiConfig overrides the base URL of the environment's API settings with the
// resolved --api-url.
type apiConfig struct {
	config.API
	url string
}

func (c apiConfig) GetAPIURL() string {
	return strings.TrimRight(c.url, "/")
}

// newShell builds and boots a shell for one invocation.
func (g *globals) newShell(ctx context.Context) (*shell.Shell, error) {
	s, err := shell.New(apiConfig{url: g.apiURL}, config.Health{})
	if err != nil {
		return nil, err
	}
	if err := s.Boot(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// signIn builds a shell and logs in with the resolved credentials. Nothing is
// persisted; every invocation starts a new session.
func (g *globals) signIn(ctx context.Context) (*shell.Shell, error) {
	if g.email == "" || g.password == "" {
		return nil, errMissingCredentials
	}
	s, err := g.newShell(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := s.Login(ctx, g.email, g.password); err != nil {
		return nil, err
	}
	return s, nil
}
