package fakeapi

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	apperrors "github.com/alexhail/quickcontroller/internal/errors"
)

const (
	tokenTypeAccess    = "access"
	refreshTokenLength = 32
)

// signer issues and verifies HS256 access tokens.
type signer struct {
	secret []byte
}

func newSigner(secret string) *signer {
	return &signer{secret: []byte(secret)}
}

func (s *signer) sign(claims jwt.MapClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", errors.Wrap(err, "failed to sign token with HMAC")
	}
	return signed, nil
}

func (s *signer) verificationKey(token *jwt.Token) (any, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, errors.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	return s.secret, nil
}

// accessClaims are the verified claims of an access token.
type accessClaims struct {
	UserID    string
	ID        string
	ExpiresAt time.Time
}

// issueAccessToken creates a signed access token for userID.
func (s *Server) issueAccessToken(userID string) (string, error) {
	now := s.nowFunc()
	return s.signer.sign(jwt.MapClaims{
		"sub":  userID,
		"jti":  uuid.NewString(),
		"iat":  now.Unix(),
		"exp":  now.Add(s.accessTokenExpiry).Unix(),
		"type": tokenTypeAccess,
	})
}

// verifyAccessToken returns the claims of a valid, unexpired and unrevoked
// access token.
func (s *Server) verifyAccessToken(raw string) (*accessClaims, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, s.signer.verificationKey,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.nowFunc),
	)
	if err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidToken, "parse: %v", err)
	}
	if claims["type"] != tokenTypeAccess {
		return nil, apperrors.ErrInvalidToken
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, apperrors.ErrInvalidToken
	}
	jti, _ := claims["jti"].(string)
	if jti != "" && s.revoked.isRevoked(jti) {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidToken, "token %s revoked", jti)
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, apperrors.ErrInvalidToken
	}
	return &accessClaims{UserID: sub, ID: jti, ExpiresAt: exp.Time}, nil
}

// revokeAccessToken revokes raw if it is a valid access token. Invalid tokens
// are ignored.
func (s *Server) revokeAccessToken(raw string) {
	claims, err := s.verifyAccessToken(raw)
	if err != nil || claims.ID == "" {
		return
	}
	s.revoked.add(claims.ID, claims.ExpiresAt, s.nowFunc())
}

// refreshToken is the server-side record of an opaque refresh token.
type refreshToken struct {
	Token  string
	UserID string
	Iat    time.Time
}

// refreshStore keeps one refresh token per user.
type refreshStore struct {
	lock    sync.RWMutex
	byToken map[string]*refreshToken
	byUser  map[string]string
}

func newRefreshStore() *refreshStore {
	return &refreshStore{
		byToken: make(map[string]*refreshToken),
		byUser:  make(map[string]string),
	}
}

// create replaces any existing refresh token of userID with a fresh one.
func (r *refreshStore) create(userID string, now time.Time) (string, error) {
	b := make([]byte, refreshTokenLength)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	tokenStr := hex.EncodeToString(b)

	r.lock.Lock()
	defer r.lock.Unlock()
	if existing, ok := r.byUser[userID]; ok {
		delete(r.byToken, existing)
	}
	r.byToken[tokenStr] = &refreshToken{Token: tokenStr, UserID: userID, Iat: now}
	r.byUser[userID] = tokenStr
	return tokenStr, nil
}

// validate returns the record of tokenStr if it exists and is younger than
// expiry. Expired tokens are removed.
func (r *refreshStore) validate(tokenStr string, now time.Time, expiry time.Duration) (*refreshToken, error) {
	r.lock.RLock()
	rt, ok := r.byToken[tokenStr]
	r.lock.RUnlock()
	if !ok {
		return nil, apperrors.ErrInvalidRefreshToken
	}
	if now.Sub(rt.Iat) > expiry {
		r.delete(tokenStr)
		return nil, apperrors.Wrapf(apperrors.ErrInvalidRefreshToken, "issued %s", rt.Iat.Format(time.RFC3339))
	}
	return rt, nil
}

func (r *refreshStore) delete(tokenStr string) {
	r.lock.Lock()
	defer r.lock.Unlock()
	rt, ok := r.byToken[tokenStr]
	if !ok {
		return
	}
	delete(r.byToken, tokenStr)
	if r.byUser[rt.UserID] == tokenStr {
		delete(r.byUser, rt.UserID)
	}
}
