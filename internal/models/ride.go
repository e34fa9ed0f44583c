package models

import (
	"errors"
	"time"

	"github.com/ukydev/fleet-live/internal/geo"
)

// RideStatus of a trip. IN_PROGRESS moves to ENDED exactly once.
type RideStatus string

const (
	RideInProgress RideStatus = "IN_PROGRESS"
	RideEnded      RideStatus = "ENDED"
)

// ErrRideEnded is returned when ending a ride twice.
var ErrRideEnded = errors.New("ride already ended")

// Station is a named trip endpoint.
type Station struct {
	Name      string  `bson:"name" json:"name"`
	Latitude  float64 `bson:"latitude" json:"latitude"`
	Longitude float64 `bson:"longitude" json:"longitude"`
}

// Ride represents one trip of a device from start to (optional) end station.
type Ride struct {
	ID           string     `bson:"_id" json:"id"`
	IMEI         string     `bson:"imei" json:"imei"`
	DeviceID     string     `bson:"device_id,omitempty" json:"deviceId,omitempty"`
	DeviceName   string     `bson:"device_name,omitempty" json:"deviceName,omitempty"`
	GroupID      string     `bson:"group_id,omitempty" json:"groupId,omitempty"`
	Distance     float64    `bson:"distance,omitempty" json:"distance,omitempty"` // meters
	StartStation *Station   `bson:"start_station,omitempty" json:"startStation,omitempty"`
	EndStation   *Station   `bson:"end_station,omitempty" json:"endStation,omitempty"`
	StartTime    time.Time  `bson:"start_time" json:"startTime"`
	EndTime      *time.Time `bson:"end_time,omitempty" json:"endTime,omitempty"`
	Locations    []Position `bson:"locations,omitempty" json:"locations,omitempty"`
	Status       RideStatus `bson:"status" json:"status"`
	MaxSpeed     geo.Knots  `bson:"max_speed,omitempty" json:"maxSpeed,omitempty"`
	AvgSpeed     geo.Knots  `bson:"avg_speed,omitempty" json:"avgSpeed,omitempty"`
	Duration     float64    `bson:"duration,omitempty" json:"duration,omitempty"` // seconds
}

// End records the end of the ride and flips it to ENDED.
func (r *Ride) End(at time.Time, station *Station) error {
	if r.Status == RideEnded {
		return ErrRideEnded
	}
	r.EndTime = &at
	r.EndStation = station
	r.Status = RideEnded
	r.Duration = at.Sub(r.StartTime).Seconds()
	return nil
}

// TrailDistance sums the haversine distance along the recorded trail in meters.
func (r *Ride) TrailDistance() float64 {
	total := 0.0
	for i := 1; i < len(r.Locations); i++ {
		total += geo.Haversine(r.Locations[i-1].Point(), r.Locations[i].Point())
	}
	return total
}
