// Package store holds the dashboard's live, in-memory state: devices,
// alerts, geofences, UI preferences and the signed-in user.
//
// Each sub-store guards its own data with a mutex. Mutations are atomic
// and last-write-wins. Listeners registered with Subscribe are called
// after the lock is released, on the goroutine that made the change.
package store

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"
)

// notifier fans change notifications out to subscribers.
type notifier struct {
	mu        sync.Mutex
	next      int
	listeners map[int]func()
}

// Subscribe registers fn to run after every change. The returned function
// removes it; calling it more than once is harmless.
func (n *notifier) Subscribe(fn func()) func() {
	n.mu.Lock()
	if n.listeners == nil {
		n.listeners = make(map[int]func())
	}
	id := n.next
	n.next++
	n.listeners[id] = fn
	n.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			n.mu.Lock()
			delete(n.listeners, id)
			n.mu.Unlock()
		})
	}
}

func (n *notifier) notify() {
	n.mu.Lock()
	fns := make([]func(), 0, len(n.listeners))
	for _, fn := range n.listeners {
		fns = append(fns, fn)
	}
	n.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// Store is the container of all sub-stores.
type Store struct {
	Devices   *Devices
	Alerts    *Alerts
	Geofences *Geofences
	Stats     *Stats
	UI        *UI
	Auth      *Auth

	persister Persister
	log       *log.Entry
	unsubs    []func()
}

// New creates a store and restores persisted preferences through p.
// A nil persister disables persistence. A failed load is logged and the
// defaults are kept.
func New(ctx context.Context, p Persister) *Store {
	s := &Store{
		Devices:   &Devices{},
		Alerts:    &Alerts{},
		Geofences: &Geofences{},
		Stats:     &Stats{},
		UI:        NewUI(),
		Auth:      &Auth{},
		persister: p,
		log:       log.WithField("component", "store"),
	}
	if p == nil {
		return s
	}

	prefs, err := p.Load(ctx)
	if err != nil {
		s.log.WithError(err).Warn("Failed to restore preferences, using defaults")
	} else {
		s.UI.restore(prefs)
		if prefs.User != nil {
			s.Auth.SetUser(prefs.User)
		}
	}

	save := func() { s.save(context.Background()) }
	s.unsubs = append(s.unsubs, s.UI.Subscribe(save), s.Auth.Subscribe(save))
	return s
}

// Preferences returns the persisted subset of the current state.
func (s *Store) Preferences() Preferences {
	collapsed, dark := s.UI.persisted()
	return Preferences{
		SidebarCollapsed: collapsed,
		DarkMode:         dark,
		User:             s.Auth.User(),
	}
}

func (s *Store) save(ctx context.Context) {
	if s.persister == nil {
		return
	}
	if err := s.persister.Save(ctx, s.Preferences()); err != nil {
		s.log.WithError(err).Error("Failed to persist preferences")
	}
}

// Close detaches persistence hooks and writes the final preferences.
func (s *Store) Close(ctx context.Context) error {
	for _, unsub := range s.unsubs {
		unsub()
	}
	s.unsubs = nil
	if s.persister == nil {
		return nil
	}
	return s.persister.Save(ctx, s.Preferences())
}
