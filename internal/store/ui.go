package store

import (
	"sync"

	"github.com/ukydev/fleet-live/internal/geo"
	"github.com/ukydev/fleet-live/internal/models"
)

// Map viewport defaults: New York at city zoom.
var (
	DefaultMapCenter = geo.Point{Lat: 40.7128, Lng: -74.006}
	DefaultMapZoom   = 12
)

// UI holds view preferences. Only SidebarCollapsed and DarkMode survive a
// restart.
type UI struct {
	notifier

	mu               sync.RWMutex
	sidebarOpen      bool
	sidebarCollapsed bool
	darkMode         bool
	mapCenter        geo.Point
	mapZoom          int
}

// UIState is a snapshot of the UI sub-store.
type UIState struct {
	SidebarOpen      bool
	SidebarCollapsed bool
	DarkMode         bool
	MapCenter        geo.Point
	MapZoom          int
}

// NewUI returns the UI store with its defaults.
func NewUI() *UI {
	return &UI{
		sidebarOpen: true,
		mapCenter:   DefaultMapCenter,
		mapZoom:     DefaultMapZoom,
	}
}

// State returns a snapshot.
func (s *UI) State() UIState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return UIState{
		SidebarOpen:      s.sidebarOpen,
		SidebarCollapsed: s.sidebarCollapsed,
		DarkMode:         s.darkMode,
		MapCenter:        s.mapCenter,
		MapZoom:          s.mapZoom,
	}
}

func (s *UI) update(fn func()) {
	s.mu.Lock()
	fn()
	s.mu.Unlock()
	s.notify()
}

func (s *UI) ToggleSidebar()         { s.update(func() { s.sidebarOpen = !s.sidebarOpen }) }
func (s *UI) ToggleSidebarCollapse() { s.update(func() { s.sidebarCollapsed = !s.sidebarCollapsed }) }
func (s *UI) ToggleDarkMode()        { s.update(func() { s.darkMode = !s.darkMode }) }

// SetMapView moves the map viewport.
func (s *UI) SetMapView(center geo.Point, zoom int) {
	s.update(func() {
		s.mapCenter = center
		s.mapZoom = zoom
	})
}

func (s *UI) persisted() (collapsed, dark bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sidebarCollapsed, s.darkMode
}

// restore applies persisted preferences without notifying.
func (s *UI) restore(p Preferences) {
	s.mu.Lock()
	s.sidebarCollapsed = p.SidebarCollapsed
	s.darkMode = p.DarkMode
	s.mu.Unlock()
}

// Stats holds the last dashboard summary.
type Stats struct {
	notifier

	mu      sync.RWMutex
	stats   *models.DashboardStats
	loading bool
}

// Get returns the last summary, if any.
func (s *Stats) Get() (models.DashboardStats, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.stats == nil {
		return models.DashboardStats{}, false
	}
	return *s.stats, true
}

// Set stores a new summary.
func (s *Stats) Set(stats models.DashboardStats) {
	s.mu.Lock()
	s.stats = &stats
	s.loading = false
	s.mu.Unlock()
	s.notify()
}

// SetLoading sets the loading flag.
func (s *Stats) SetLoading(loading bool) {
	s.mu.Lock()
	s.loading = loading
	s.mu.Unlock()
	s.notify()
}

// Loading reports whether a fetch is in flight.
func (s *Stats) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}
