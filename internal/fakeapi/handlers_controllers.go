package fakeapi

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/alexhail/quickcontroller/controllers"
	"github.com/alexhail/quickcontroller/devices"
	apperrors "github.com/alexhail/quickcontroller/internal/errors"
	"github.com/alexhail/quickcontroller/internal/utils"
)

type testConnectionRequest struct {
	URL         string `json:"url"`
	AccessToken string `json:"access_token"`
}

// testConnection checks url and accessToken against the simulated instances.
func (s *Server) testConnection(url, accessToken string) controllers.ConnectionResult {
	inst, ok := s.instance(url)
	switch {
	case !ok:
		return controllers.ConnectionResult{Error: utils.Ptr("Cannot connect to " + url)}
	case inst.AccessToken != accessToken:
		return controllers.ConnectionResult{Error: utils.Ptr("Invalid access token")}
	}
	return controllers.ConnectionResult{Success: true, Version: utils.Ptr(inst.Version)}
}

func (s *Server) writeControllerError(w http.ResponseWriter, err error) {
	switch {
	case apperrors.Is(err, apperrors.ErrControllerNotFound):
		writeDetail(w, http.StatusNotFound, "Controller not found")
	case apperrors.Is(err, apperrors.ErrDuplicateURL):
		writeDetail(w, http.StatusBadRequest, "A controller with this URL already exists")
	case apperrors.Is(err, apperrors.ErrNoFieldsToUpdate):
		writeDetail(w, http.StatusBadRequest, "No fields to update")
	default:
		writeDetail(w, http.StatusInternalServerError, "Internal server error")
	}
}

func (s *Server) handleListControllers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.controllers.listForUser(userIDFrom(r.Context())))
}

func (s *Server) handleGetController(w http.ResponseWriter, r *http.Request) {
	c, err := s.controllers.get(userIDFrom(r.Context()), chi.URLParam(r, "controllerID"))
	if err != nil {
		s.writeControllerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c.Controller)
}

func (s *Server) handleCreateController(w http.ResponseWriter, r *http.Request) {
	var req controllers.NewController
	if !decodeBody(w, r, &req) {
		return
	}
	var missing []validationItem
	for _, f := range []struct{ field, value string }{
		{"name", req.Name},
		{"url", req.URL},
		{"access_token", req.AccessToken},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, validationItem{Loc: []string{"body", f.field}, Msg: "Field required", Type: "missing"})
		}
	}
	if len(missing) > 0 {
		writeValidation(w, missing...)
		return
	}

	result := s.testConnection(req.URL, req.AccessToken)
	if !result.Success {
		writeDetail(w, http.StatusBadRequest, "Failed to connect to Home Assistant: "+utils.Value(result.Error))
		return
	}

	created, err := s.controllers.create(userIDFrom(r.Context()), req, utils.Value(result.Version), s.nowFunc())
	if err != nil {
		s.writeControllerError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateController(w http.ResponseWriter, r *http.Request) {
	var patch controllers.Patch
	if !decodeBody(w, r, &patch) {
		return
	}
	updated, err := s.controllers.update(userIDFrom(r.Context()), chi.URLParam(r, "controllerID"), patch, s.nowFunc())
	if err != nil {
		s.writeControllerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteController(w http.ResponseWriter, r *http.Request) {
	if err := s.controllers.delete(userIDFrom(r.Context()), chi.URLParam(r, "controllerID")); err != nil {
		s.writeControllerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Controller deleted"})
}

func (s *Server) handleDiscover(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	found := make([]controllers.DiscoveredController, 0)
	for _, inst := range s.instances {
		if !inst.Discoverable {
			continue
		}
		found = append(found, controllers.DiscoveredController{
			Name:      inst.Name,
			URL:       inst.URL,
			Addresses: append([]string{}, inst.Addresses...),
		})
	}
	s.mu.RUnlock()
	writeJSON(w, http.StatusOK, found)
}

func (s *Server) handleTestConnection(w http.ResponseWriter, r *http.Request) {
	var req testConnectionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, s.testConnection(req.URL, req.AccessToken))
}

// handleEntities proxies the controller's entity states, optionally filtered
// by domain. Domains are derived from entity ids when missing.
func (s *Server) handleEntities(w http.ResponseWriter, r *http.Request) {
	c, err := s.controllers.get(userIDFrom(r.Context()), chi.URLParam(r, "controllerID"))
	if err != nil {
		s.writeControllerError(w, err)
		return
	}
	inst, ok := s.instance(c.URL)
	if !ok || inst.AccessToken != c.AccessToken {
		writeDetail(w, http.StatusServiceUnavailable, "Failed to fetch entities from Home Assistant")
		return
	}

	domain := r.URL.Query().Get("domain")
	entities := make([]devices.Entity, 0, len(inst.Entities))
	for _, e := range inst.Entities {
		if e.Domain == "" {
			e.Domain = devices.DomainOf(e.ID)
		}
		if e.Attributes == nil {
			e.Attributes = map[string]any{}
		}
		if domain != "" && e.Domain != domain {
			continue
		}
		entities = append(entities, e)
	}
	writeJSON(w, http.StatusOK, entities)
}
