package models

import (
	"time"
)

// Role represents user roles in the system
type Role string

const (
	RoleAdmin        Role = "ADMIN"
	RoleFleetManager Role = "FLEET_MANAGER"
	RoleDriver       Role = "DRIVER"
	RoleOwner        Role = "OWNER"
	RoleUser         Role = "USER"
	RoleViewer       Role = "VIEWER"
)

// User represents the signed-in dashboard user. Role is fixed for the
// lifetime of a session.
type User struct {
	ID               string    `bson:"_id" json:"id" yaml:"id"`
	Email            string    `bson:"email" json:"email" yaml:"email"`
	FirstName        string    `bson:"first_name" json:"firstName" yaml:"first_name"`
	LastName         string    `bson:"last_name" json:"lastName" yaml:"last_name"`
	Phone            string    `bson:"phone,omitempty" json:"phone,omitempty" yaml:"phone,omitempty"`
	Role             Role      `bson:"role" json:"role" yaml:"role"`
	GroupID          string    `bson:"group_id,omitempty" json:"groupId,omitempty" yaml:"group_id,omitempty"`
	AssignedDeviceID string    `bson:"assigned_device_id,omitempty" json:"assignedDeviceId,omitempty" yaml:"assigned_device_id,omitempty"`
	CreatedAt        time.Time `bson:"created_at" json:"createdAt" yaml:"created_at"`
	UpdatedAt        time.Time `bson:"updated_at" json:"updatedAt" yaml:"updated_at"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse represents a successful login response
type LoginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// Claims represents JWT claims
type Claims struct {
	UserID           string `json:"user_id"`
	Email            string `json:"email"`
	Role             Role   `json:"role"`
	GroupID          string `json:"group_id,omitempty"`
	AssignedDeviceID string `json:"assigned_device_id,omitempty"`
	Exp              int64  `json:"exp"`
}

// User rebuilds the scoping part of a user from token claims.
func (c *Claims) User() *User {
	return &User{
		ID:               c.UserID,
		Email:            c.Email,
		Role:             c.Role,
		GroupID:          c.GroupID,
		AssignedDeviceID: c.AssignedDeviceID,
	}
}

// IsValidRole checks if a role is valid
func IsValidRole(role Role) bool {
	switch role {
	case RoleAdmin, RoleFleetManager, RoleDriver, RoleOwner, RoleUser, RoleViewer:
		return true
	default:
		return false
	}
}

// Write actions gated by HasPermission.
const (
	PermManageDevices   = "manage_devices"
	PermManageGeofences = "manage_geofences"
	PermManageAlerts    = "manage_alerts"
	PermManageGroups    = "manage_groups"
)

// HasPermission checks if a user has permission for a specific action.
// Visibility of individual entities is decided separately by the access
// package; this only gates write operations.
func (u *User) HasPermission(action string) bool {
	switch u.Role {
	case RoleAdmin:
		return true
	case RoleFleetManager:
		return action != PermManageGroups
	case RoleOwner:
		return action == PermManageGeofences || action == PermManageAlerts
	case RoleDriver, RoleUser:
		return action == PermManageAlerts
	default:
		return false
	}
}

// FullName joins first and last name.
func (u *User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}
