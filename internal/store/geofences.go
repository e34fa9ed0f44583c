package store

import (
	"sync"

	"github.com/ukydev/fleet-live/internal/models"
)

// Geofences holds the geofence list and the current selection.
type Geofences struct {
	notifier

	mu         sync.RWMutex
	geofences  []models.Geofence
	selectedID string
	loading    bool
}

// All returns a copy of the geofence list.
func (s *Geofences) All() []models.Geofence {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Geofence(nil), s.geofences...)
}

// Loading reports whether a fetch is in flight.
func (s *Geofences) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// SetLoading sets the loading flag.
func (s *Geofences) SetLoading(loading bool) {
	s.mu.Lock()
	s.loading = loading
	s.mu.Unlock()
	s.notify()
}

// SetAll replaces the geofence list.
func (s *Geofences) SetAll(geofences []models.Geofence) {
	s.mu.Lock()
	s.geofences = append([]models.Geofence(nil), geofences...)
	s.loading = false
	s.mu.Unlock()
	s.notify()
}

// Select points the selection at id. An empty id clears it.
func (s *Geofences) Select(id string) {
	s.mu.Lock()
	s.selectedID = id
	s.mu.Unlock()
	s.notify()
}

// Selected resolves the selection against the current list.
func (s *Geofences) Selected() (models.Geofence, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.selectedID == "" {
		return models.Geofence{}, false
	}
	for _, g := range s.geofences {
		if g.ID == s.selectedID {
			return g, true
		}
	}
	return models.Geofence{}, false
}

// Add appends g.
func (s *Geofences) Add(g models.Geofence) {
	s.mu.Lock()
	s.geofences = append(s.geofences, g)
	s.mu.Unlock()
	s.notify()
}

// Update applies patch to geofence id. It reports false if id is unknown.
func (s *Geofences) Update(id string, patch models.GeofencePatch) bool {
	s.mu.Lock()
	found := false
	for i := range s.geofences {
		if s.geofences[i].ID == id {
			s.geofences[i] = patch.Apply(s.geofences[i])
			found = true
			break
		}
	}
	s.mu.Unlock()
	if found {
		s.notify()
	}
	return found
}

// Replace swaps in the server's copy of g.
func (s *Geofences) Replace(g models.Geofence) bool {
	s.mu.Lock()
	found := false
	for i := range s.geofences {
		if s.geofences[i].ID == g.ID {
			s.geofences[i] = g
			found = true
			break
		}
	}
	s.mu.Unlock()
	if found {
		s.notify()
	}
	return found
}

// Remove drops geofence id and clears the selection if it pointed there.
func (s *Geofences) Remove(id string) {
	s.mu.Lock()
	out := s.geofences[:0:0]
	for _, g := range s.geofences {
		if g.ID != id {
			out = append(out, g)
		}
	}
	s.geofences = out
	if s.selectedID == id {
		s.selectedID = ""
	}
	s.mu.Unlock()
	s.notify()
}
