package models

import "encoding/json"

// Known attribute keys. Positions carry telemetry keys, devices carry
// descriptive keys. Unknown keys are kept as-is for forward compatibility.
const (
	AttrSatellites   = "satellites"
	AttrIgnition     = "ignition"
	AttrMotion       = "motion"
	AttrBattery      = "battery"
	AttrBatteryLevel = "batteryLevel"
	AttrPower        = "power"
	AttrFuel         = "fuel"
	AttrFuelLevel    = "fuelLevel"
	AttrOdometer     = "odometer"
	AttrTripOdometer = "tripOdometer"
	AttrAlarm        = "alarm"

	AttrLicensePlate = "licensePlate"
	AttrMake         = "make"
	AttrModel        = "model"
	AttrColor        = "color"
	AttrVIN          = "vin"
	AttrDriverID     = "driverId"
	AttrDriverName   = "driverName"
	AttrFuelCapacity = "fuelCapacity"
	AttrIcon         = "icon"
)

// Attributes is a loosely typed bag of device or position properties.
// Use the typed accessors for known keys; plain map access is the escape
// hatch for anything else.
type Attributes map[string]any

// Float returns a numeric attribute.
func (a Attributes) Float(key string) (float64, bool) {
	switch v := a[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	}
	return 0, false
}

// Bool returns a boolean attribute.
func (a Attributes) Bool(key string) (bool, bool) {
	v, ok := a[key].(bool)
	return v, ok
}

// String returns a string attribute.
func (a Attributes) String(key string) (string, bool) {
	v, ok := a[key].(string)
	return v, ok
}

// Clone returns a shallow copy, nil stays nil.
func (a Attributes) Clone() Attributes {
	if a == nil {
		return nil
	}
	out := make(Attributes, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Merge returns a copy of a with every key of b written over it.
func (a Attributes) Merge(b Attributes) Attributes {
	out := a.Clone()
	if out == nil {
		out = make(Attributes, len(b))
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}
