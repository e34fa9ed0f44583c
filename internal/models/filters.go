package models

import (
	"strings"
	"time"
)

// DeviceFilter narrows a device listing. Zero values mean "any".
type DeviceFilter struct {
	Search  string       `json:"search,omitempty"`
	Status  DeviceStatus `json:"status,omitempty"`
	GroupID string       `json:"groupId,omitempty"`
	Type    DeviceType   `json:"type,omitempty"`
}

// Match reports whether d passes the filter. Search matches the name and
// license plate case-insensitively, and the IMEI as a substring.
func (f DeviceFilter) Match(d Device) bool {
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		plate, _ := d.Attributes.String(AttrLicensePlate)
		if !strings.Contains(strings.ToLower(d.Name), q) &&
			!strings.Contains(d.IMEI, q) &&
			!strings.Contains(strings.ToLower(plate), q) {
			return false
		}
	}
	if f.Status != "" && d.Status != f.Status {
		return false
	}
	if f.GroupID != "" && d.GroupID != f.GroupID {
		return false
	}
	if f.Type != "" && d.Type != f.Type {
		return false
	}
	return true
}

// RideFilter narrows a ride listing. Dates bound the ride start time.
type RideFilter struct {
	DeviceID  string     `json:"deviceId,omitempty"`
	GroupID   string     `json:"groupId,omitempty"`
	Status    RideStatus `json:"status,omitempty"`
	StartDate *time.Time `json:"startDate,omitempty"`
	EndDate   *time.Time `json:"endDate,omitempty"`
}

// Match reports whether r passes the filter.
func (f RideFilter) Match(r Ride) bool {
	if f.DeviceID != "" && r.DeviceID != f.DeviceID {
		return false
	}
	if f.GroupID != "" && r.GroupID != f.GroupID {
		return false
	}
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	if f.StartDate != nil && r.StartTime.Before(*f.StartDate) {
		return false
	}
	if f.EndDate != nil && r.StartTime.After(*f.EndDate) {
		return false
	}
	return true
}

// AlertFilter narrows an alert listing.
type AlertFilter struct {
	DeviceID  string        `json:"deviceId,omitempty"`
	Type      AlertType     `json:"type,omitempty"`
	Severity  AlertSeverity `json:"severity,omitempty"`
	IsRead    *bool         `json:"isRead,omitempty"`
	StartDate *time.Time    `json:"startDate,omitempty"`
	EndDate   *time.Time    `json:"endDate,omitempty"`
}

// Match reports whether a passes the filter.
func (f AlertFilter) Match(a Alert) bool {
	if f.DeviceID != "" && a.DeviceID != f.DeviceID {
		return false
	}
	if f.Type != "" && a.Type != f.Type {
		return false
	}
	if f.Severity != "" && a.Severity != f.Severity {
		return false
	}
	if f.IsRead != nil && a.IsRead != *f.IsRead {
		return false
	}
	if f.StartDate != nil && a.CreatedAt.Before(*f.StartDate) {
		return false
	}
	if f.EndDate != nil && a.CreatedAt.After(*f.EndDate) {
		return false
	}
	return true
}

// DashboardStats summarises the visible fleet.
type DashboardStats struct {
	TotalDevices   int     `json:"totalDevices"`
	OnlineDevices  int     `json:"onlineDevices"`
	MovingDevices  int     `json:"movingDevices"`
	IdleDevices    int     `json:"idleDevices"`
	OfflineDevices int     `json:"offlineDevices"`
	TotalDistance  float64 `json:"totalDistance"` // km today
	TotalAlerts    int     `json:"totalAlerts"`
	CriticalAlerts int     `json:"criticalAlerts"`
}

// ComputeStats counts devices by status and today's alerts. distanceKm is
// supplied by the caller since it comes from trip data.
func ComputeStats(devices []Device, alerts []Alert, distanceKm float64, now time.Time) DashboardStats {
	s := DashboardStats{TotalDevices: len(devices), TotalDistance: distanceKm}
	for _, d := range devices {
		switch d.Status {
		case DeviceOffline:
			s.OfflineDevices++
			continue
		case DeviceMoving:
			s.MovingDevices++
		case DeviceIdle, DeviceStopped:
			s.IdleDevices++
		}
		s.OnlineDevices++
	}
	y, m, day := now.Date()
	for _, a := range alerts {
		ay, am, ad := a.CreatedAt.In(now.Location()).Date()
		if ay != y || am != m || ad != day {
			continue
		}
		s.TotalAlerts++
		if a.Severity == SeverityCritical {
			s.CriticalAlerts++
		}
	}
	return s
}
