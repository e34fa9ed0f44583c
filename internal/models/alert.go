package models

import (
	"time"

	"github.com/ukydev/fleet-live/internal/geo"
)

// AlertType is the detected event kind.
type AlertType string

const (
	AlertOverspeed         AlertType = "OVERSPEED"
	AlertGeofenceEnter     AlertType = "GEOFENCE_ENTER"
	AlertGeofenceExit      AlertType = "GEOFENCE_EXIT"
	AlertLowBattery        AlertType = "LOW_BATTERY"
	AlertPowerCut          AlertType = "POWER_CUT"
	AlertSOS               AlertType = "SOS"
	AlertTampering         AlertType = "TAMPERING"
	AlertIdle              AlertType = "IDLE"
	AlertTow               AlertType = "TOW"
	AlertAccident          AlertType = "ACCIDENT"
	AlertHarshAcceleration AlertType = "HARSH_ACCELERATION"
	AlertHarshBraking      AlertType = "HARSH_BRAKING"
	AlertHarshCornering    AlertType = "HARSH_CORNERING"
	AlertIgnitionOn        AlertType = "IGNITION_ON"
	AlertIgnitionOff       AlertType = "IGNITION_OFF"
)

// AlertSeverity ranks alerts.
type AlertSeverity string

const (
	SeverityInfo     AlertSeverity = "INFO"
	SeverityWarning  AlertSeverity = "WARNING"
	SeverityCritical AlertSeverity = "CRITICAL"
)

// Alert is an event raised for one device. Only IsRead ever changes,
// and only from false to true.
type Alert struct {
	ID           string        `bson:"_id" json:"id"`
	DeviceID     string        `bson:"device_id" json:"deviceId"`
	DeviceName   string        `bson:"device_name" json:"deviceName"`
	Type         AlertType     `bson:"type" json:"type"`
	Severity     AlertSeverity `bson:"severity" json:"severity"`
	Message      string        `bson:"message" json:"message"`
	Position     *Position     `bson:"position,omitempty" json:"position,omitempty"`
	GeofenceID   string        `bson:"geofence_id,omitempty" json:"geofenceId,omitempty"`
	GeofenceName string        `bson:"geofence_name,omitempty" json:"geofenceName,omitempty"`
	Speed        *geo.Knots    `bson:"speed,omitempty" json:"speed,omitempty"`
	SpeedLimit   *geo.Knots    `bson:"speed_limit,omitempty" json:"speedLimit,omitempty"`
	IsRead       bool          `bson:"is_read" json:"isRead"`
	CreatedAt    time.Time     `bson:"created_at" json:"createdAt"`
}
