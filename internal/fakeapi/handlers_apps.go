package fakeapi

import (
	"net/http"

	"github.com/alexhail/quickcontroller/apps"
)

func (s *Server) handleListApps(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	catalog := append([]apps.CatalogEntry(nil), s.catalog...)
	s.mu.RUnlock()
	writeJSON(w, http.StatusOK, catalog)
}

// handlePermissions returns one record per catalog app, using the explicit
// permission when there is one and the app's default access otherwise.
func (s *Server) handlePermissions(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r.Context())

	s.mu.RLock()
	perms := make([]apps.Permission, 0, len(s.catalog))
	for _, e := range s.catalog {
		access, ok := s.permissions[userID][e.AppID]
		if !ok {
			access = e.DefaultAccess
		}
		perms = append(perms, apps.Permission{AppID: e.AppID, HasAccess: access})
	}
	s.mu.RUnlock()

	writeJSON(w, http.StatusOK, perms)
}
