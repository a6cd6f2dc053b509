package token

import (
	"sync"

	"golang.org/x/oauth2"
)

// Ledger is the process-wide holder of the current access credential. It has
// a single slot and no history. Every mutation advances a generation counter
// so that a caller that started work against one credential can detect that
// the slot was replaced or cleared while it was suspended (see SetIfGeneration).
type Ledger struct {
	mu         sync.RWMutex
	token      *oauth2.Token
	generation uint64
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{}
}

// Set stores accessToken as the current bearer credential. An empty string
// clears the slot.
func (l *Ledger) Set(accessToken string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.store(accessToken)
}

// SetIfGeneration stores accessToken only if no other mutation happened since
// generation was observed. It reports whether the token was stored.
func (l *Ledger) SetIfGeneration(generation uint64, accessToken string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.generation != generation {
		return false
	}
	l.store(accessToken)
	return true
}

// Get returns the current access token and whether one is present.
func (l *Ledger) Get() (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.token == nil {
		return "", false
	}
	return l.token.AccessToken, true
}

// Token returns a copy of the current credential, or nil.
func (l *Ledger) Token() *oauth2.Token {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.token == nil {
		return nil
	}
	t := *l.token
	return &t
}

// Generation returns the current mutation counter.
func (l *Ledger) Generation() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.generation
}

// Clear empties the slot.
func (l *Ledger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.token = nil
	l.generation++
}

// ClearIfGeneration empties the slot only if no other mutation happened since
// generation was observed. It reports whether the slot was cleared.
func (l *Ledger) ClearIfGeneration(generation uint64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.generation != generation {
		return false
	}
	l.token = nil
	l.generation++
	return true
}

func (l *Ledger) store(accessToken string) {
	l.generation++
	if accessToken == "" {
		l.token = nil
		return
	}
	t := &oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	}
	if claims, err := ParseClaims(accessToken); err == nil {
		t.Expiry = claims.ExpiresAt
	}
	l.token = t
}
