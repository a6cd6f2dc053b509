package fakeapi

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alexhail/quickcontroller/controllers"
	"github.com/alexhail/quickcontroller/devices"
	apperrors "github.com/alexhail/quickcontroller/internal/errors"
	"github.com/alexhail/quickcontroller/users"
)

type userRecord struct {
	User         users.User
	PasswordHash string
}

// userRepo stores accounts keyed by id and email.
type userRepo struct {
	lock    sync.RWMutex
	byID    map[string]*userRecord
	byEmail map[string]string
}

func newUserRepo() *userRepo {
	return &userRepo{
		byID:    make(map[string]*userRecord),
		byEmail: make(map[string]string),
	}
}

func (r *userRepo) create(email, password string) (*users.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := users.HashPassword(password)
	if err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrInternal, "hash password: %v", err)
	}

	r.lock.Lock()
	defer r.lock.Unlock()
	if _, ok := r.byEmail[email]; ok {
		return nil, apperrors.ErrEmailRegistered
	}
	rec := &userRecord{
		User:         users.User{ID: uuid.New().String(), Email: email},
		PasswordHash: hash,
	}
	r.byID[rec.User.ID] = rec
	r.byEmail[email] = rec.User.ID
	u := rec.User
	return &u, nil
}

func (r *userRepo) authenticate(email, password string) (*users.User, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	id, ok := r.byEmail[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return nil, apperrors.ErrInvalidCredentials
	}
	rec := r.byID[id]
	if !users.CheckPasswordHash(password, rec.PasswordHash) {
		return nil, apperrors.ErrInvalidCredentials
	}
	u := rec.User
	return &u, nil
}

func (r *userRepo) get(id string) (*users.User, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	rec, ok := r.byID[id]
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	u := rec.User
	return &u, nil
}

func (r *userRepo) idForEmail(email string) (string, bool) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	id, ok := r.byEmail[strings.ToLower(strings.TrimSpace(email))]
	return id, ok
}

// Instance is a simulated home automation server reachable from the fake API.
type Instance struct {
	Name         string
	URL          string
	Addresses    []string
	AccessToken  string
	Version      string
	Discoverable bool
	Entities     []devices.Entity
}

type storedController struct {
	controllers.Controller
	AccessToken string
}

// controllerRepo stores controllers per user, newest first.
type controllerRepo struct {
	lock        sync.RWMutex
	controllers map[string]*storedController
}

func newControllerRepo() *controllerRepo {
	return &controllerRepo{
		controllers: make(map[string]*storedController),
	}
}

func (r *controllerRepo) listForUser(userID string) []controllers.Controller {
	r.lock.RLock()
	defer r.lock.RUnlock()
	list := make([]controllers.Controller, 0)
	for _, c := range r.controllers {
		if c.UserID == userID {
			list = append(list, c.Controller)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].ID > list[j].ID
		}
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	return list
}

func (r *controllerRepo) get(userID, id string) (*storedController, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	c, ok := r.controllers[id]
	if !ok || c.UserID != userID {
		return nil, apperrors.ErrControllerNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *controllerRepo) urlTaken(userID, url, exceptID string) bool {
	for _, c := range r.controllers {
		if c.UserID == userID && c.URL == url && c.ID != exceptID {
			return true
		}
	}
	return false
}

func (r *controllerRepo) create(userID string, nc controllers.NewController, version string, now time.Time) (*controllers.Controller, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.urlTaken(userID, nc.URL, "") {
		return nil, apperrors.ErrDuplicateURL
	}
	c := &storedController{
		Controller: controllers.Controller{
			ID:               uuid.New().String(),
			UserID:           userID,
			Name:             nc.Name,
			URL:              nc.URL,
			ConnectionStatus: controllers.StatusConnected,
			LastSeen:         &now,
			DiscoveredVia:    nc.DiscoveredVia,
			CreatedAt:        now,
			UpdatedAt:        now,
		},
		AccessToken: nc.AccessToken,
	}
	if version != "" {
		v := version
		c.HAVersion = &v
	}
	r.controllers[c.ID] = c
	out := c.Controller
	return &out, nil
}

func (r *controllerRepo) update(userID, id string, patch controllers.Patch, now time.Time) (*controllers.Controller, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	c, ok := r.controllers[id]
	if !ok || c.UserID != userID {
		return nil, apperrors.ErrControllerNotFound
	}
	if patch.IsEmpty() {
		return nil, apperrors.ErrNoFieldsToUpdate
	}
	if patch.URL != nil && r.urlTaken(userID, *patch.URL, id) {
		return nil, apperrors.ErrDuplicateURL
	}
	if patch.Name != nil {
		c.Name = *patch.Name
	}
	if patch.URL != nil {
		c.URL = *patch.URL
	}
	if patch.AccessToken != nil {
		c.AccessToken = *patch.AccessToken
	}
	c.UpdatedAt = now
	out := c.Controller
	return &out, nil
}

func (r *controllerRepo) delete(userID, id string) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	c, ok := r.controllers[id]
	if !ok || c.UserID != userID {
		return apperrors.ErrControllerNotFound
	}
	delete(r.controllers, id)
	return nil
}
