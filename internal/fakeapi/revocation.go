package fakeapi

import (
	"sync"
	"time"
)

// revokedTokens remembers revoked access token ids until the tokens would
// have expired anyway.
type revokedTokens struct {
	mu      sync.RWMutex
	revoked map[string]time.Time
}

func newRevokedTokens() *revokedTokens {
	return &revokedTokens{revoked: make(map[string]time.Time)}
}

// add revokes jti and drops entries that expired before now.
func (c *revokedTokens) add(jti string, exp, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, e := range c.revoked {
		if now.After(e) {
			delete(c.revoked, id)
		}
	}
	c.revoked[jti] = exp
}

func (c *revokedTokens) isRevoked(jti string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.revoked[jti]
	return ok
}
