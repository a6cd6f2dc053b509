package fakeapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

// ContextKeyUserID stores the authenticated user ID
const ContextKeyUserID ContextKey = "user_id"

func userIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(ContextKeyUserID).(string)
	return id
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Err(err).Msg("Failed to encode response")
	}
}

// writeDetail writes an error body in the {"detail": "..."} shape.
func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

type validationItem struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

// writeValidation writes a 422 body whose detail is a list of field errors.
func writeValidation(w http.ResponseWriter, items ...validationItem) {
	writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"detail": items})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeValidation(w, validationItem{Loc: []string{"body"}, Msg: "invalid JSON body", Type: "json_invalid"})
		return false
	}
	return true
}

func (s *Server) countCalls(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls[r.Method+" "+r.URL.Path]++
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) injectFaults(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path
		s.mu.Lock()
		queue := s.faults[key]
		var f *fault
		if len(queue) > 0 {
			f = &queue[0]
			s.faults[key] = queue[1:]
		}
		s.mu.Unlock()

		if f != nil {
			writeDetail(w, f.status, f.detail)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireAuth validates the bearer access token and stores its subject in the
// request context.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || raw == "" {
			writeDetail(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		claims, err := s.verifyAccessToken(raw)
		if err != nil {
			writeDetail(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}
		userID := claims.UserID
		if _, err := s.users.get(userID); err != nil {
			writeDetail(w, http.StatusUnauthorized, "User not found")
			return
		}
		ctx := context.WithValue(r.Context(), ContextKeyUserID, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) requireAppAccess(appID string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !s.hasAppAccess(userIDFrom(r.Context()), appID) {
				writeDetail(w, http.StatusForbidden, "Access denied to app '"+appID+"'")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
