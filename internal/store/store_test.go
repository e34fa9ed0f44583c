package store

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ukydev/fleet-live/internal/geo"
	"github.com/ukydev/fleet-live/internal/models"
)

func sampleDevices() []models.Device {
	return []models.Device{
		{ID: "dev-1", Name: "Delivery Van 01", Status: models.DeviceMoving},
		{ID: "dev-2", Name: "Truck Alpha", Status: models.DeviceIdle},
		{ID: "dev-3", Name: "Service Car 03", Status: models.DeviceOffline},
	}
}

func TestDevices_ApplyPositionDeltas(t *testing.T) {
	s := &Devices{}
	s.SetAll(sampleDevices())
	before := s.All()

	n := s.ApplyPositionDeltas(map[string]models.Position{
		"dev-2":   {ID: "p-2", Latitude: 1, Longitude: 2},
		"missing": {ID: "p-x"},
	})
	assert.Equal(t, 1, n)

	after := s.All()
	require.Len(t, after, 3)
	assert.Equal(t, before[0], after[0])
	assert.Equal(t, before[2], after[2])
	require.NotNil(t, after[1].LastPosition)
	assert.Equal(t, "p-2", after[1].LastPosition.ID)

	p, ok := s.Position("missing")
	assert.True(t, ok)
	assert.Equal(t, "p-x", p.ID)

	assert.Equal(t, 0, s.ApplyPositionDeltas(nil))
}

func TestDevices_SetAllDropsStalePositions(t *testing.T) {
	s := &Devices{}
	s.SetAll(sampleDevices())
	s.ApplyPositionDeltas(map[string]models.Position{
		"dev-1":   {ID: "p-1"},
		"dev-2":   {ID: "p-2"},
		"missing": {ID: "p-x"},
	})

	s.SetAll(sampleDevices()[1:])
	_, ok := s.Position("dev-1")
	assert.False(t, ok)
	_, ok = s.Position("missing")
	assert.False(t, ok)
	p, ok := s.Position("dev-2")
	require.True(t, ok)
	assert.Equal(t, "p-2", p.ID)

	gen := s.BeginLoad()
	require.True(t, s.CommitLoad(gen, nil))
	_, ok = s.Position("dev-2")
	assert.False(t, ok)
}

func TestDevices_SelectionFollowsLatestPosition(t *testing.T) {
	s := &Devices{}
	s.SetAll(sampleDevices())
	s.Select("dev-1")

	s.ApplyPositionDeltas(map[string]models.Position{"dev-1": {ID: "fresh", Speed: 20}})
	d, ok := s.Selected()
	require.True(t, ok)
	require.NotNil(t, d.LastPosition)
	assert.Equal(t, "fresh", d.LastPosition.ID)

	s.SetAll(sampleDevices()[1:])
	_, ok = s.Selected()
	assert.False(t, ok, "selection of a removed device resolves to nothing")

	s.Select("")
	_, ok = s.Selected()
	assert.False(t, ok)
}

func TestDevices_StaleLoadIsDropped(t *testing.T) {
	s := &Devices{}
	first := s.BeginLoad()
	second := s.BeginLoad()
	assert.True(t, s.Loading())

	assert.True(t, s.CommitLoad(second, sampleDevices()[:1]))
	assert.False(t, s.CommitLoad(first, sampleDevices()))
	assert.Equal(t, 1, s.Len())
	assert.False(t, s.Loading())

	third := s.BeginLoad()
	s.AbortLoad(first)
	assert.True(t, s.Loading())
	s.AbortLoad(third)
	assert.False(t, s.Loading())
}

func TestDevices_UpsertRemove(t *testing.T) {
	s := &Devices{}
	s.SetAll(sampleDevices())
	s.Select("dev-3")

	s.Upsert(models.Device{ID: "dev-2", Name: "Renamed"})
	s.Upsert(models.Device{ID: "dev-4", Name: "New"})
	d, _ := s.Get("dev-2")
	assert.Equal(t, "Renamed", d.Name)
	assert.Equal(t, 4, s.Len())

	s.Remove("dev-3")
	_, ok := s.Get("dev-3")
	assert.False(t, ok)
	_, ok = s.Selected()
	assert.False(t, ok)
}

func TestAlerts(t *testing.T) {
	s := &Alerts{}
	s.SetAll([]models.Alert{
		{ID: "a1", IsRead: false},
		{ID: "a2", IsRead: true},
		{ID: "a3", IsRead: false},
	})
	assert.Equal(t, 2, s.UnreadCount())

	s.Add(models.Alert{ID: "a0"})
	assert.Equal(t, "a0", s.All()[0].ID)
	assert.Equal(t, 3, s.UnreadCount())

	s.MarkRead("a1")
	s.MarkRead("a1")
	s.MarkRead("unknown")
	assert.Equal(t, 2, s.UnreadCount())

	s.MarkAllRead()
	assert.Equal(t, 0, s.UnreadCount())
	for _, a := range s.All() {
		assert.True(t, a.IsRead)
	}
}

func TestAlerts_StaleLoadIsDropped(t *testing.T) {
	s := &Alerts{}
	old := s.BeginLoad()
	current := s.BeginLoad()
	assert.False(t, s.CommitLoad(old, []models.Alert{{ID: "stale"}}))
	assert.True(t, s.CommitLoad(current, []models.Alert{{ID: "fresh"}}))
	assert.Equal(t, "fresh", s.All()[0].ID)
}

func TestGeofences(t *testing.T) {
	s := &Geofences{}
	s.SetAll([]models.Geofence{{ID: "geo-1", Name: "Warehouse Zone", IsActive: true}})
	s.Add(models.Geofence{ID: "geo-2", Name: "Downtown Area"})
	s.Select("geo-1")

	name := "Main Warehouse"
	assert.True(t, s.Update("geo-1", models.GeofencePatch{Name: &name}))
	assert.False(t, s.Update("geo-9", models.GeofencePatch{Name: &name}))

	g, ok := s.Selected()
	require.True(t, ok)
	assert.Equal(t, "Main Warehouse", g.Name)
	assert.True(t, g.IsActive)

	assert.True(t, s.Replace(models.Geofence{ID: "geo-2", Name: "Uptown"}))

	s.Remove("geo-1")
	_, ok = s.Selected()
	assert.False(t, ok)
	require.Len(t, s.All(), 1)
	assert.Equal(t, "Uptown", s.All()[0].Name)
}

func TestUI(t *testing.T) {
	s := NewUI()
	st := s.State()
	assert.True(t, st.SidebarOpen)
	assert.Equal(t, DefaultMapCenter, st.MapCenter)
	assert.Equal(t, DefaultMapZoom, st.MapZoom)

	s.ToggleSidebar()
	s.ToggleSidebarCollapse()
	s.ToggleDarkMode()
	s.SetMapView(geo.Point{Lat: 51.5, Lng: -0.12}, 9)

	st = s.State()
	assert.False(t, st.SidebarOpen)
	assert.True(t, st.SidebarCollapsed)
	assert.True(t, st.DarkMode)
	assert.Equal(t, 9, st.MapZoom)
}

func TestSubscribe(t *testing.T) {
	s := &Alerts{}
	var calls int32
	unsub := s.Subscribe(func() { atomic.AddInt32(&calls, 1) })

	s.Add(models.Alert{ID: "a1"})
	s.MarkRead("a1")
	s.MarkRead("a1") // no change, no notification
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))

	unsub()
	unsub()
	s.MarkAllRead()
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestDevices_ConcurrentDeltas(t *testing.T) {
	s := &Devices{}
	s.SetAll(sampleDevices())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.ApplyPositionDeltas(map[string]models.Position{"dev-1": {ID: "p"}})
			_ = s.All()
			_, _ = s.Selected()
		}()
	}
	wg.Wait()

	d, _ := s.Get("dev-1")
	require.NotNil(t, d.LastPosition)
	assert.Equal(t, "p", d.LastPosition.ID)
}

type memPersister struct {
	mu    sync.Mutex
	prefs Preferences
	saves int
	err   error
}

func (m *memPersister) Load(context.Context) (Preferences, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.prefs, m.err
}

func (m *memPersister) Save(_ context.Context, p Preferences) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prefs = p
	m.saves++
	return nil
}

func TestStore_PersistsPreferences(t *testing.T) {
	p := &memPersister{prefs: Preferences{DarkMode: true, User: &models.User{ID: "demo-admin", Role: models.RoleAdmin}}}
	s := New(context.Background(), p)

	assert.True(t, s.UI.State().DarkMode)
	require.NotNil(t, s.Auth.User())
	assert.Equal(t, "demo-admin", s.Auth.CurrentUser(context.Background()).ID)

	s.UI.ToggleSidebarCollapse()
	assert.True(t, p.prefs.SidebarCollapsed)

	s.Auth.Logout()
	assert.Nil(t, p.prefs.User)

	// transient fields are not written
	saves := p.saves
	s.UI.SetMapView(geo.Point{Lat: 1, Lng: 1}, 3)
	assert.Equal(t, Preferences{SidebarCollapsed: true, DarkMode: true}, p.prefs)
	assert.Equal(t, saves+1, p.saves)

	require.NoError(t, s.Close(context.Background()))
	saves = p.saves
	s.UI.ToggleDarkMode()
	assert.Equal(t, saves, p.saves, "no saves after close")
}

func TestStore_LoadFailureKeepsDefaults(t *testing.T) {
	s := New(context.Background(), &memPersister{err: errors.New("boom")})
	assert.False(t, s.UI.State().DarkMode)
	assert.Nil(t, s.Auth.User())

	assert.NoError(t, New(context.Background(), nil).Close(context.Background()))
}

func TestFilePersister(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs", "ui.yaml")
	f := NewFilePersister(path)

	prefs, err := f.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Preferences{}, prefs)

	want := Preferences{
		SidebarCollapsed: true,
		User:             &models.User{ID: "demo-driver", Role: models.RoleDriver, GroupID: "grp-1", AssignedDeviceID: "dev-1"},
	}
	require.NoError(t, f.Save(context.Background(), want))

	got, err := f.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, got.SidebarCollapsed)
	assert.False(t, got.DarkMode)
	require.NotNil(t, got.User)
	assert.Equal(t, "dev-1", got.User.AssignedDeviceID)
	assert.Equal(t, models.RoleDriver, got.User.Role)
}
