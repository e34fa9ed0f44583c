package store

import (
	"context"
	"sync"

	"github.com/ukydev/fleet-live/internal/models"
)

// Auth holds the signed-in user. It is the client side user source for
// the data access layer.
type Auth struct {
	notifier

	mu      sync.RWMutex
	user    *models.User
	loading bool
}

// SetUser signs user in; nil signs out.
func (s *Auth) SetUser(user *models.User) {
	s.mu.Lock()
	if user != nil {
		u := *user
		s.user = &u
	} else {
		s.user = nil
	}
	s.loading = false
	s.mu.Unlock()
	s.notify()
}

// User returns a copy of the signed-in user, or nil.
func (s *Auth) User() *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// CurrentUser returns the signed-in user.
func (s *Auth) CurrentUser(context.Context) *models.User {
	return s.User()
}

// Authenticated reports whether a user is signed in.
func (s *Auth) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil
}

// SetLoading sets the loading flag.
func (s *Auth) SetLoading(loading bool) {
	s.mu.Lock()
	s.loading = loading
	s.mu.Unlock()
	s.notify()
}

// Loading reports whether sign-in is in progress.
func (s *Auth) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Logout clears the user.
func (s *Auth) Logout() {
	s.SetUser(nil)
}
