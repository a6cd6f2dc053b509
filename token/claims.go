package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrNotJWT = errors.New("access token is not a JWT")

// Claims is the subset of access token claims the client inspects. The
// signature is not verified; the server remains the authority on validity.
type Claims struct {
	Subject   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// ParseClaims extracts registered claims from an access token without
// verifying it. Opaque (non-JWT) tokens return ErrNotJWT.
func ParseClaims(accessToken string) (Claims, error) {
	var registered jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, &registered); err != nil {
		return Claims{}, errors.Join(ErrNotJWT, err)
	}

	c := Claims{Subject: registered.Subject}
	if registered.IssuedAt != nil {
		c.IssuedAt = registered.IssuedAt.Time
	}
	if registered.ExpiresAt != nil {
		c.ExpiresAt = registered.ExpiresAt.Time
	}
	return c, nil
}
