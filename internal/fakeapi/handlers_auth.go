package fakeapi

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/alexhail/quickcontroller/apiclient"
	apperrors "github.com/alexhail/quickcontroller/internal/errors"
	"github.com/alexhail/quickcontroller/users"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func validEmail(email string) bool {
	local, domain, ok := strings.Cut(strings.TrimSpace(email), "@")
	return ok && local != "" && strings.Contains(domain, ".")
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if !validEmail(req.Email) {
		writeValidation(w, validationItem{
			Loc:  []string{"body", "email"},
			Msg:  "value is not a valid email address",
			Type: "value_error",
		})
		return
	}
	if err := users.ValidatePasswordStrength(req.Password); err != nil {
		writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := s.users.create(req.Email, req.Password)
	switch {
	case apperrors.Is(err, apperrors.ErrEmailRegistered):
		writeDetail(w, http.StatusBadRequest, "Email already registered")
		return
	case err != nil:
		log.Err(err).Msg("Register failed")
		writeDetail(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	user, err := s.users.authenticate(req.Email, req.Password)
	if err != nil {
		writeDetail(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	s.issueSession(w, r, user.ID)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(apiclient.RefreshCookieName)
	if err != nil || cookie.Value == "" {
		writeDetail(w, http.StatusUnauthorized, "Refresh token missing")
		return
	}
	rt, err := s.refresh.validate(cookie.Value, s.nowFunc(), s.refreshTokenExpiry)
	if err != nil {
		log.Debug().Err(err).Msg("Refresh rejected")
		writeDetail(w, http.StatusUnauthorized, "Invalid or expired refresh token")
		return
	}
	if _, err := s.users.get(rt.UserID); err != nil {
		writeDetail(w, http.StatusUnauthorized, "User not found")
		return
	}
	s.issueSession(w, r, rt.UserID)
}

// issueSession rotates the refresh cookie and returns a new access token.
func (s *Server) issueSession(w http.ResponseWriter, r *http.Request, userID string) {
	accessToken, err := s.issueAccessToken(userID)
	if err != nil {
		log.Err(err).Msg("Failed to issue access token")
		writeDetail(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	refreshToken, err := s.refresh.create(userID, s.nowFunc())
	if err != nil {
		log.Err(err).Msg("Failed to issue refresh token")
		writeDetail(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     apiclient.RefreshCookieName,
		Value:    refreshToken,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(s.refreshTokenExpiry.Seconds()),
	})
	writeJSON(w, http.StatusOK, tokenResponse{AccessToken: accessToken, TokenType: "bearer"})
}

// handleLogout revokes the refresh cookie and, when one is presented, the
// bearer access token.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok && raw != "" {
		s.revokeAccessToken(raw)
	}
	if cookie, err := r.Cookie(apiclient.RefreshCookieName); err == nil {
		s.refresh.delete(cookie.Value)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     apiclient.RefreshCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
	writeJSON(w, http.StatusOK, messageResponse{Message: "Logged out successfully"})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user, err := s.users.get(userIDFrom(r.Context()))
	if err != nil {
		writeDetail(w, http.StatusUnauthorized, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, user)
}
