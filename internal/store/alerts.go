package store

import (
	"sync"

	"github.com/ukydev/fleet-live/internal/models"
)

// Alerts holds the alert list, newest first.
type Alerts struct {
	notifier

	mu      sync.RWMutex
	alerts  []models.Alert
	loading bool
	gen     uint64
}

// All returns a copy of the alert list.
func (s *Alerts) All() []models.Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Alert(nil), s.alerts...)
}

// Loading reports whether a fetch is in flight.
func (s *Alerts) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// SetLoading sets the loading flag.
func (s *Alerts) SetLoading(loading bool) {
	s.mu.Lock()
	s.loading = loading
	s.mu.Unlock()
	s.notify()
}

// SetAll replaces the alert list.
func (s *Alerts) SetAll(alerts []models.Alert) {
	s.mu.Lock()
	s.alerts = append([]models.Alert(nil), alerts...)
	s.loading = false
	s.mu.Unlock()
	s.notify()
}

// BeginLoad starts a guarded fetch. See Devices.BeginLoad.
func (s *Alerts) BeginLoad() uint64 {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.loading = true
	s.mu.Unlock()
	s.notify()
	return gen
}

// CommitLoad stores alerts if gen is still the latest fetch.
func (s *Alerts) CommitLoad(gen uint64, alerts []models.Alert) bool {
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return false
	}
	s.alerts = append([]models.Alert(nil), alerts...)
	s.loading = false
	s.mu.Unlock()
	s.notify()
	return true
}

// AbortLoad clears the loading flag for fetch gen if it is still current.
func (s *Alerts) AbortLoad(gen uint64) {
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return
	}
	s.loading = false
	s.mu.Unlock()
	s.notify()
}

// Add prepends a new alert.
func (s *Alerts) Add(a models.Alert) {
	s.mu.Lock()
	alerts := make([]models.Alert, 0, len(s.alerts)+1)
	alerts = append(alerts, a)
	s.alerts = append(alerts, s.alerts...)
	s.mu.Unlock()
	s.notify()
}

// MarkRead flags alert id as read. Marking an already read or unknown
// alert changes nothing.
func (s *Alerts) MarkRead(id string) {
	s.mu.Lock()
	changed := false
	for i := range s.alerts {
		if s.alerts[i].ID == id && !s.alerts[i].IsRead {
			s.alerts[i].IsRead = true
			changed = true
		}
	}
	s.mu.Unlock()
	if changed {
		s.notify()
	}
}

// MarkAllRead flags every alert as read.
func (s *Alerts) MarkAllRead() {
	s.mu.Lock()
	for i := range s.alerts {
		s.alerts[i].IsRead = true
	}
	s.mu.Unlock()
	s.notify()
}

// UnreadCount is derived from the list on every call.
func (s *Alerts) UnreadCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, a := range s.alerts {
		if !a.IsRead {
			n++
		}
	}
	return n
}
