package geo

import (
	"fmt"
	"math"
)

const (
	earthRadiusMeters = 6371e3

	// KmPerDegree is the flat-earth approximation used when projecting
	// short moves. Good enough at city scale, wrong near the poles.
	KmPerDegree = 111.0

	kphPerKnot = 1.852
	mphPerKnot = 1.15078
)

// Knots is a speed in nautical miles per hour. All stored and wire speeds
// are knots; conversion to km/h or mph happens only when rendering.
type Knots float64

// KnotsFromKph converts a km/h speed into knots.
func KnotsFromKph(kph float64) Knots {
	return Knots(kph / kphPerKnot)
}

// Kph returns the speed in km/h.
func (k Knots) Kph() float64 {
	return float64(k) * kphPerKnot
}

// Mph returns the speed in miles per hour.
func (k Knots) Mph() float64 {
	return float64(k) * mphPerKnot
}

// Point is a latitude/longitude pair in degrees.
type Point struct {
	Lat float64 `json:"lat" bson:"lat" yaml:"lat"`
	Lng float64 `json:"lng" bson:"lng" yaml:"lng"`
}

func toRad(deg float64) float64 { return deg * math.Pi / 180 }
func toDeg(rad float64) float64 { return rad * 180 / math.Pi }

// Haversine returns the great-circle distance between a and b in meters.
func Haversine(a, b Point) float64 {
	phi1 := toRad(a.Lat)
	phi2 := toRad(b.Lat)
	dPhi := toRad(b.Lat - a.Lat)
	dLambda := toRad(b.Lng - a.Lng)

	s := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(s), math.Sqrt(1-s))
	return earthRadiusMeters * c
}

// Bearing returns the initial compass bearing from a to b in [0, 360).
func Bearing(a, b Point) float64 {
	phi1 := toRad(a.Lat)
	phi2 := toRad(b.Lat)
	dLambda := toRad(b.Lng - a.Lng)

	y := math.Sin(dLambda) * math.Cos(phi2)
	x := math.Cos(phi1)*math.Sin(phi2) - math.Sin(phi1)*math.Cos(phi2)*math.Cos(dLambda)
	return NormalizeCourse(toDeg(math.Atan2(y, x)))
}

// Project moves p by km along course using the flat-earth approximation.
func Project(p Point, course, km float64) Point {
	rad := toRad(course)
	dLat := (km / KmPerDegree) * math.Cos(rad)
	dLng := (km / (KmPerDegree * math.Cos(toRad(p.Lat)))) * math.Sin(rad)
	return Point{Lat: p.Lat + dLat, Lng: p.Lng + dLng}
}

// NormalizeCourse wraps any angle into [0, 360).
func NormalizeCourse(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}

// MetersToKm converts meters to kilometers.
func MetersToKm(m float64) float64 { return m / 1000 }

// MetersToMiles converts meters to statute miles.
func MetersToMiles(m float64) float64 { return m / 1609.344 }

// FormatSpeed renders a knots value in the requested display unit
// ("kph" or "mph").
func FormatSpeed(k Knots, unit string) string {
	if unit == "mph" {
		return fmt.Sprintf("%.0f mph", k.Mph())
	}
	return fmt.Sprintf("%.0f km/h", k.Kph())
}

// FormatDistance renders meters in the requested display unit ("km" or "mi").
func FormatDistance(meters float64, unit string) string {
	if unit == "mi" {
		return fmt.Sprintf("%.2f mi", MetersToMiles(meters))
	}
	return fmt.Sprintf("%.2f km", MetersToKm(meters))
}
