// Package access decides which entities a user may see. Every function
// here is pure: same input, same output, no side effects.
package access

import (
	"github.com/ukydev/fleet-live/internal/models"
)

// Policy makes the two permissive fallbacks explicit. Both default to
// true, which is the long-standing demo behaviour.
type Policy struct {
	// AllowAnonymous grants full visibility when no user is signed in.
	AllowAnonymous bool `mapstructure:"allow_anonymous"`
	// UngroupedManagerSeesAll grants full visibility to a FLEET_MANAGER or
	// OWNER that has no group assigned.
	UngroupedManagerSeesAll bool `mapstructure:"ungrouped_manager_sees_all"`
}

// DefaultPolicy keeps both fallbacks open.
func DefaultPolicy() Policy {
	return Policy{AllowAnonymous: true, UngroupedManagerSeesAll: true}
}

// scope is the resolved visibility for one user.
type scope int

const (
	scopeAll scope = iota
	scopeGroup
	scopeDevice
	scopeNone
)

func (p Policy) resolve(user *models.User) scope {
	if user == nil {
		if p.AllowAnonymous {
			return scopeAll
		}
		return scopeNone
	}
	switch user.Role {
	case models.RoleAdmin:
		return scopeAll
	case models.RoleFleetManager, models.RoleOwner:
		if user.GroupID != "" {
			return scopeGroup
		}
		if p.UngroupedManagerSeesAll {
			return scopeAll
		}
		return scopeNone
	case models.RoleDriver:
		if user.AssignedDeviceID != "" {
			return scopeDevice
		}
		return scopeNone
	default:
		return scopeNone
	}
}

// CanSee reports whether user may see device d.
func (p Policy) CanSee(user *models.User, d models.Device) bool {
	switch p.resolve(user) {
	case scopeAll:
		return true
	case scopeGroup:
		return d.GroupID == user.GroupID
	case scopeDevice:
		return d.ID == user.AssignedDeviceID
	}
	return false
}

// Devices returns the subset of devices visible to user, in input order.
func (p Policy) Devices(user *models.User, devices []models.Device) []models.Device {
	if p.resolve(user) == scopeAll {
		return devices
	}
	out := make([]models.Device, 0, len(devices))
	for _, d := range devices {
		if p.CanSee(user, d) {
			out = append(out, d)
		}
	}
	return out
}

// DeviceIDs returns the ids of the devices visible to user.
func (p Policy) DeviceIDs(user *models.User, devices []models.Device) map[string]struct{} {
	visible := p.Devices(user, devices)
	ids := make(map[string]struct{}, len(visible))
	for _, d := range visible {
		ids[d.ID] = struct{}{}
	}
	return ids
}

// Rides returns the rides whose device is visible to user. devices is the
// full device collection the rides refer to.
func (p Policy) Rides(user *models.User, rides []models.Ride, devices []models.Device) []models.Ride {
	if p.resolve(user) == scopeAll {
		return rides
	}
	ids := p.DeviceIDs(user, devices)
	out := make([]models.Ride, 0, len(rides))
	for _, r := range rides {
		if _, ok := ids[r.DeviceID]; ok {
			out = append(out, r)
		}
	}
	return out
}

// Alerts returns the alerts whose device is visible to user.
func (p Policy) Alerts(user *models.User, alerts []models.Alert, devices []models.Device) []models.Alert {
	if p.resolve(user) == scopeAll {
		return alerts
	}
	ids := p.DeviceIDs(user, devices)
	out := make([]models.Alert, 0, len(alerts))
	for _, a := range alerts {
		if _, ok := ids[a.DeviceID]; ok {
			out = append(out, a)
		}
	}
	return out
}

// Groups returns the groups visible to user: all of them for full access,
// otherwise only the user's own group.
func (p Policy) Groups(user *models.User, groups []models.Group) []models.Group {
	switch p.resolve(user) {
	case scopeAll:
		return groups
	case scopeNone:
		return []models.Group{}
	}
	out := make([]models.Group, 0, 1)
	if user.GroupID == "" {
		return out
	}
	for _, g := range groups {
		if g.ID == user.GroupID {
			out = append(out, g)
		}
	}
	return out
}
