package access

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/ukydev/fleet-live/internal/models"
)

func fleet() []models.Device {
	return []models.Device{
		{ID: "dev-1", GroupID: "grp-1"},
		{ID: "dev-2", GroupID: "grp-1"},
		{ID: "dev-3", GroupID: "grp-2"},
		{ID: "dev-4"},
		{ID: "dev-personal-1", GroupID: "grp-personal"},
	}
}

func ids(devices []models.Device) []string {
	out := make([]string, 0, len(devices))
	for _, d := range devices {
		out = append(out, d.ID)
	}
	return out
}

func TestDevices_ByRole(t *testing.T) {
	p := DefaultPolicy()
	tests := []struct {
		name string
		user *models.User
		want []string
	}{
		{"anonymous sees all", nil, []string{"dev-1", "dev-2", "dev-3", "dev-4", "dev-personal-1"}},
		{"admin sees all", &models.User{Role: models.RoleAdmin}, []string{"dev-1", "dev-2", "dev-3", "dev-4", "dev-personal-1"}},
		{"manager sees own group", &models.User{Role: models.RoleFleetManager, GroupID: "grp-1"}, []string{"dev-1", "dev-2"}},
		{"owner sees own group", &models.User{Role: models.RoleOwner, GroupID: "grp-personal"}, []string{"dev-personal-1"}},
		{"ungrouped manager sees all", &models.User{Role: models.RoleFleetManager}, []string{"dev-1", "dev-2", "dev-3", "dev-4", "dev-personal-1"}},
		{"driver sees assigned device", &models.User{Role: models.RoleDriver, GroupID: "grp-1", AssignedDeviceID: "dev-2"}, []string{"dev-2"}},
		{"unassigned driver sees nothing", &models.User{Role: models.RoleDriver, GroupID: "grp-1"}, []string{}},
		{"viewer denied", &models.User{Role: models.RoleViewer, GroupID: "grp-1"}, []string{}},
		{"user denied", &models.User{Role: models.RoleUser}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(p.Devices(tt.user, fleet())))
		})
	}
}

func TestDevices_StrictPolicy(t *testing.T) {
	p := Policy{}
	assert.Empty(t, p.Devices(nil, fleet()))
	assert.Empty(t, p.Devices(&models.User{Role: models.RoleOwner}, fleet()))
	assert.Len(t, p.Devices(&models.User{Role: models.RoleAdmin}, fleet()), 5)
}

func TestDevices_ManagerScenario(t *testing.T) {
	p := DefaultPolicy()
	devices := []models.Device{{ID: "d1", GroupID: "g1"}}

	assert.Equal(t, []string{"d1"}, ids(p.Devices(&models.User{Role: models.RoleFleetManager, GroupID: "g1"}, devices)))
	assert.Empty(t, p.Devices(&models.User{Role: models.RoleFleetManager, GroupID: "g2"}, devices))
}

func TestDevices_Properties(t *testing.T) {
	p := DefaultPolicy()
	users := []*models.User{
		nil,
		{Role: models.RoleAdmin},
		{Role: models.RoleFleetManager, GroupID: "grp-1"},
		{Role: models.RoleOwner},
		{Role: models.RoleDriver, AssignedDeviceID: "dev-3"},
		{Role: models.RoleDriver, AssignedDeviceID: "missing"},
		{Role: models.RoleViewer},
	}
	for _, u := range users {
		once := p.Devices(u, fleet())
		assert.Equal(t, once, p.Devices(u, once), "filter must be idempotent for %+v", u)

		if u != nil && u.Role == models.RoleAdmin {
			assert.Equal(t, fleet(), once)
		}
		if u != nil && u.Role == models.RoleDriver {
			assert.LessOrEqual(t, len(once), 1)
			for _, d := range once {
				assert.Equal(t, u.AssignedDeviceID, d.ID)
			}
		}
	}
}

func TestRidesAndAlerts_FollowDeviceVisibility(t *testing.T) {
	p := DefaultPolicy()
	rides := []models.Ride{{ID: "r1", DeviceID: "dev-1"}, {ID: "r2", DeviceID: "dev-3"}, {ID: "r3"}}
	alerts := []models.Alert{{ID: "a1", DeviceID: "dev-3"}, {ID: "a2", DeviceID: "dev-2"}}

	manager := &models.User{Role: models.RoleFleetManager, GroupID: "grp-1"}
	visibleRides := p.Rides(manager, rides, fleet())
	assert.Len(t, visibleRides, 1)
	assert.Equal(t, "r1", visibleRides[0].ID)

	visibleAlerts := p.Alerts(manager, alerts, fleet())
	assert.Len(t, visibleAlerts, 1)
	assert.Equal(t, "a2", visibleAlerts[0].ID)

	driver := &models.User{Role: models.RoleDriver, AssignedDeviceID: "dev-3"}
	assert.Equal(t, "r2", p.Rides(driver, rides, fleet())[0].ID)
	assert.Equal(t, "a1", p.Alerts(driver, alerts, fleet())[0].ID)

	admin := &models.User{Role: models.RoleAdmin}
	assert.Equal(t, rides, p.Rides(admin, rides, fleet()))
	assert.Equal(t, alerts, p.Alerts(admin, alerts, fleet()))

	assert.Empty(t, p.Rides(&models.User{Role: models.RoleViewer}, rides, fleet()))
}

func TestGroups(t *testing.T) {
	p := DefaultPolicy()
	groups := []models.Group{{ID: "grp-1"}, {ID: "grp-2"}, {ID: "grp-personal"}}

	assert.Len(t, p.Groups(&models.User{Role: models.RoleAdmin}, groups), 3)
	assert.Len(t, p.Groups(nil, groups), 3)

	own := p.Groups(&models.User{Role: models.RoleFleetManager, GroupID: "grp-2"}, groups)
	assert.Len(t, own, 1)
	assert.Equal(t, "grp-2", own[0].ID)

	driver := p.Groups(&models.User{Role: models.RoleDriver, GroupID: "grp-1", AssignedDeviceID: "dev-1"}, groups)
	assert.Len(t, driver, 1)

	assert.Empty(t, p.Groups(&models.User{Role: models.RoleViewer, GroupID: "grp-1"}, groups))
	assert.Len(t, p.Groups(&models.User{Role: models.RoleOwner}, groups), 3)
}
