package models

import (
	"time"

	"github.com/ukydev/fleet-live/internal/geo"
)

// GeofenceType is the shape of a geofence boundary.
type GeofenceType string

const (
	GeofenceCircle    GeofenceType = "CIRCLE"
	GeofencePolygon   GeofenceType = "POLYGON"
	GeofenceRectangle GeofenceType = "RECTANGLE"
)

// GeofenceArea holds either a circle (Center + Radius in meters) or an
// ordered vertex list for polygons and rectangles.
type GeofenceArea struct {
	Center      *geo.Point  `bson:"center,omitempty" json:"center,omitempty"`
	Radius      float64     `bson:"radius,omitempty" json:"radius,omitempty"`
	Coordinates []geo.Point `bson:"coordinates,omitempty" json:"coordinates,omitempty"`
}

// Geofence is a named geographic boundary. DeviceIDs and GroupID only
// narrow its scope; they are optional.
type Geofence struct {
	ID          string       `bson:"_id" json:"id"`
	Name        string       `bson:"name" json:"name"`
	Description string       `bson:"description,omitempty" json:"description,omitempty"`
	Type        GeofenceType `bson:"type" json:"type"`
	Area        GeofenceArea `bson:"area" json:"area"`
	GroupID     string       `bson:"group_id,omitempty" json:"groupId,omitempty"`
	DeviceIDs   []string     `bson:"device_ids,omitempty" json:"deviceIds,omitempty"`
	Color       string       `bson:"color,omitempty" json:"color,omitempty"`
	IsActive    bool         `bson:"is_active" json:"isActive"`
	CreatedAt   time.Time    `bson:"created_at" json:"createdAt"`
}

// Contains reports whether p lies inside the boundary.
func (g Geofence) Contains(p geo.Point) bool {
	switch g.Type {
	case GeofenceCircle:
		if g.Area.Center == nil {
			return false
		}
		return geo.Haversine(*g.Area.Center, p) <= g.Area.Radius
	case GeofencePolygon, GeofenceRectangle:
		return pointInPolygon(p, g.Area.Coordinates)
	}
	return false
}

// pointInPolygon is the even-odd ray casting test on raw lat/lng.
func pointInPolygon(p geo.Point, vertices []geo.Point) bool {
	if len(vertices) < 3 {
		return false
	}
	inside := false
	j := len(vertices) - 1
	for i := range vertices {
		vi, vj := vertices[i], vertices[j]
		if (vi.Lat > p.Lat) != (vj.Lat > p.Lat) &&
			p.Lng < (vj.Lng-vi.Lng)*(p.Lat-vi.Lat)/(vj.Lat-vi.Lat)+vi.Lng {
			inside = !inside
		}
		j = i
	}
	return inside
}

// GeofencePatch is a partial geofence update; nil fields are unchanged.
type GeofencePatch struct {
	Name        *string       `json:"name,omitempty"`
	Description *string       `json:"description,omitempty"`
	Type        *GeofenceType `json:"type,omitempty"`
	Area        *GeofenceArea `json:"area,omitempty"`
	GroupID     *string       `json:"groupId,omitempty"`
	DeviceIDs   []string      `json:"deviceIds,omitempty"`
	Color       *string       `json:"color,omitempty"`
	IsActive    *bool         `json:"isActive,omitempty"`
}

// Apply returns g with the patch applied.
func (p GeofencePatch) Apply(g Geofence) Geofence {
	if p.Name != nil {
		g.Name = *p.Name
	}
	if p.Description != nil {
		g.Description = *p.Description
	}
	if p.Type != nil {
		g.Type = *p.Type
	}
	if p.Area != nil {
		g.Area = *p.Area
	}
	if p.GroupID != nil {
		g.GroupID = *p.GroupID
	}
	if p.DeviceIDs != nil {
		g.DeviceIDs = append([]string(nil), p.DeviceIDs...)
	}
	if p.Color != nil {
		g.Color = *p.Color
	}
	if p.IsActive != nil {
		g.IsActive = *p.IsActive
	}
	return g
}
