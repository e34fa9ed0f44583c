package models

import (
	"time"

	"github.com/ukydev/fleet-live/internal/geo"
)

// Priority of a position report.
type Priority string

const (
	PriorityLow   Priority = "LOW"
	PriorityHigh  Priority = "HIGH"
	PriorityPanic Priority = "PANIC"
)

// Position is one GPS fix reported by (or simulated for) a device.
// Positions are never mutated; a newer Position replaces the old one.
type Position struct {
	ID         string     `bson:"_id" json:"id"`
	IMEI       string     `bson:"imei" json:"imei"`
	DeviceID   string     `bson:"device_id,omitempty" json:"deviceId,omitempty"`
	GroupID    string     `bson:"group_id,omitempty" json:"groupId,omitempty"`
	Protocol   string     `bson:"protocol,omitempty" json:"protocol,omitempty"`
	ServerTime time.Time  `bson:"server_time" json:"serverTime"`
	DeviceTime time.Time  `bson:"device_time" json:"deviceTime"`
	FixTime    *time.Time `bson:"fix_time,omitempty" json:"fixTime,omitempty"`
	Valid      bool       `bson:"valid" json:"valid"`
	Latitude   float64    `bson:"latitude" json:"latitude"`
	Longitude  float64    `bson:"longitude" json:"longitude"`
	Altitude   float64    `bson:"altitude" json:"altitude"`
	Speed      geo.Knots  `bson:"speed" json:"speed"` // knots
	Course     float64    `bson:"course" json:"course"`
	Address    string     `bson:"address,omitempty" json:"address,omitempty"`
	Accuracy   float64    `bson:"accuracy,omitempty" json:"accuracy,omitempty"`
	Priority   Priority   `bson:"priority" json:"priority"`
	Attributes Attributes `bson:"attributes,omitempty" json:"attributes,omitempty"`
}

// Point returns the fix coordinates.
func (p Position) Point() geo.Point {
	return geo.Point{Lat: p.Latitude, Lng: p.Longitude}
}

// Moving reports whether the fix has a non-zero speed.
func (p Position) Moving() bool {
	return p.Speed > 0
}
