package models

import (
	"testing"
)

func TestIsValidRole(t *testing.T) {
	tests := []struct {
		name     string
		role     Role
		expected bool
	}{
		{"admin role", RoleAdmin, true},
		{"fleet manager role", RoleFleetManager, true},
		{"driver role", RoleDriver, true},
		{"owner role", RoleOwner, true},
		{"user role", RoleUser, true},
		{"viewer role", RoleViewer, true},
		{"invalid role", "invalid", false},
		{"lowercase role", "admin", false},
		{"empty role", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := IsValidRole(tt.role)
			if result != tt.expected {
				t.Errorf("IsValidRole(%s) = %v, want %v", tt.role, result, tt.expected)
			}
		})
	}
}

func TestUser_HasPermission(t *testing.T) {
	admin := &User{Role: RoleAdmin}
	manager := &User{Role: RoleFleetManager}
	owner := &User{Role: RoleOwner}
	driver := &User{Role: RoleDriver}
	viewer := &User{Role: RoleViewer}

	tests := []struct {
		name     string
		user     *User
		action   string
		expected bool
	}{
		{"admin can manage groups", admin, "manage_groups", true},
		{"admin can manage devices", admin, "manage_devices", true},

		{"manager cannot manage groups", manager, "manage_groups", false},
		{"manager can manage devices", manager, "manage_devices", true},
		{"manager can manage geofences", manager, "manage_geofences", true},

		{"owner can manage geofences", owner, "manage_geofences", true},
		{"owner cannot manage devices", owner, "manage_devices", false},

		{"driver can acknowledge alerts", driver, "manage_alerts", true},
		{"driver cannot manage geofences", driver, "manage_geofences", false},

		{"viewer cannot acknowledge alerts", viewer, "manage_alerts", false},
		{"viewer cannot manage devices", viewer, "manage_devices", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.user.HasPermission(tt.action)
			if result != tt.expected {
				t.Errorf("User with role %s HasPermission(%s) = %v, want %v",
					tt.user.Role, tt.action, result, tt.expected)
			}
		})
	}
}

func TestClaims_User(t *testing.T) {
	claims := &Claims{
		UserID:           "demo-driver",
		Email:            "driver@tracker.com",
		Role:             RoleDriver,
		GroupID:          "grp-1",
		AssignedDeviceID: "dev-1",
	}

	user := claims.User()
	if user.ID != "demo-driver" {
		t.Errorf("Expected ID to be 'demo-driver', got %s", user.ID)
	}
	if user.Role != RoleDriver {
		t.Errorf("Expected Role to be RoleDriver, got %s", user.Role)
	}
	if user.GroupID != "grp-1" {
		t.Errorf("Expected GroupID to be 'grp-1', got %s", user.GroupID)
	}
	if user.AssignedDeviceID != "dev-1" {
		t.Errorf("Expected AssignedDeviceID to be 'dev-1', got %s", user.AssignedDeviceID)
	}
}

func TestUser_FullName(t *testing.T) {
	if got := (&User{FirstName: "Fleet", LastName: "Manager"}).FullName(); got != "Fleet Manager" {
		t.Errorf("FullName() = %q", got)
	}
	if got := (&User{FirstName: "Fleet"}).FullName(); got != "Fleet" {
		t.Errorf("FullName() = %q", got)
	}
	if got := (&User{LastName: "Manager"}).FullName(); got != "Manager" {
		t.Errorf("FullName() = %q", got)
	}
}
