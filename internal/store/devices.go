package store

import (
	"sync"

	"github.com/ukydev/fleet-live/internal/models"
)

// Devices is the live device list, the selection and the latest position
// per device.
type Devices struct {
	notifier

	mu         sync.RWMutex
	devices    []models.Device
	positions  map[string]models.Position
	selectedID string
	loading    bool
	gen        uint64
}

// All returns a copy of the device list.
func (s *Devices) All() []models.Device {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Device(nil), s.devices...)
}

// Len returns the number of devices held.
func (s *Devices) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.devices)
}

// Loading reports whether a fetch is in flight.
func (s *Devices) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// SetLoading sets the loading flag.
func (s *Devices) SetLoading(loading bool) {
	s.mu.Lock()
	s.loading = loading
	s.mu.Unlock()
	s.notify()
}

// SetAll replaces the device list and clears the loading flag. Recorded
// positions of devices not in the new list are dropped.
func (s *Devices) SetAll(devices []models.Device) {
	s.mu.Lock()
	s.setAllLocked(devices)
	s.mu.Unlock()
	s.notify()
}

func (s *Devices) setAllLocked(devices []models.Device) {
	s.devices = append([]models.Device(nil), devices...)
	s.loading = false

	held := make(map[string]struct{}, len(devices))
	for _, d := range devices {
		held[d.ID] = struct{}{}
	}
	for id := range s.positions {
		if _, ok := held[id]; !ok {
			delete(s.positions, id)
		}
	}
}

// BeginLoad marks a fetch as started and returns its generation. Only the
// most recent generation may commit.
func (s *Devices) BeginLoad() uint64 {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.loading = true
	s.mu.Unlock()
	s.notify()
	return gen
}

// CommitLoad stores the result of fetch gen. A result from a superseded
// fetch is dropped and false is returned.
func (s *Devices) CommitLoad(gen uint64, devices []models.Device) bool {
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return false
	}
	s.setAllLocked(devices)
	s.mu.Unlock()
	s.notify()
	return true
}

// AbortLoad clears the loading flag for fetch gen if it is still current.
func (s *Devices) AbortLoad(gen uint64) {
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return
	}
	s.loading = false
	s.mu.Unlock()
	s.notify()
}

// Select points the selection at id. An empty id clears it.
func (s *Devices) Select(id string) {
	s.mu.Lock()
	s.selectedID = id
	s.mu.Unlock()
	s.notify()
}

// Selected resolves the selection against the current list, so it always
// reflects the latest position. It reports false when nothing is selected
// or the selected device is no longer held.
func (s *Devices) Selected() (models.Device, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.selectedID == "" {
		return models.Device{}, false
	}
	for _, d := range s.devices {
		if d.ID == s.selectedID {
			return d, true
		}
	}
	return models.Device{}, false
}

// Get returns the device with id.
func (s *Devices) Get(id string) (models.Device, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, d := range s.devices {
		if d.ID == id {
			return d, true
		}
	}
	return models.Device{}, false
}

// Upsert replaces the device with the same id, or appends d.
func (s *Devices) Upsert(d models.Device) {
	s.mu.Lock()
	replaced := false
	for i := range s.devices {
		if s.devices[i].ID == d.ID {
			s.devices[i] = d
			replaced = true
			break
		}
	}
	if !replaced {
		s.devices = append(s.devices, d)
	}
	s.mu.Unlock()
	s.notify()
}

// Remove drops the device with id and clears the selection if it pointed
// there.
func (s *Devices) Remove(id string) {
	s.mu.Lock()
	out := s.devices[:0:0]
	for _, d := range s.devices {
		if d.ID != id {
			out = append(out, d)
		}
	}
	s.devices = out
	delete(s.positions, id)
	if s.selectedID == id {
		s.selectedID = ""
	}
	s.mu.Unlock()
	s.notify()
}

// ApplyPositionDeltas sets lastPosition for every held device that has an
// entry in deltas. Devices without an entry are untouched. Entries for
// unknown devices are still recorded in the position map. It returns the
// number of devices updated.
func (s *Devices) ApplyPositionDeltas(deltas map[string]models.Position) int {
	if len(deltas) == 0 {
		return 0
	}
	s.mu.Lock()
	if s.positions == nil {
		s.positions = make(map[string]models.Position, len(deltas))
	}
	for id, p := range deltas {
		s.positions[id] = p
	}

	updated := 0
	devices := make([]models.Device, len(s.devices))
	copy(devices, s.devices)
	for i := range devices {
		p, ok := deltas[devices[i].ID]
		if !ok {
			continue
		}
		devices[i].LastPosition = &p
		updated++
	}
	s.devices = devices
	s.mu.Unlock()

	s.notify()
	return updated
}

// Position returns the latest live position recorded for id.
func (s *Devices) Position(id string) (models.Position, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.positions[id]
	return p, ok
}
