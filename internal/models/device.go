package models

import (
	"time"
)

// DeviceStatus is the derived operational state of a device.
type DeviceStatus string

const (
	DeviceOnline  DeviceStatus = "ONLINE"
	DeviceOffline DeviceStatus = "OFFLINE"
	DeviceIdle    DeviceStatus = "IDLE"
	DeviceMoving  DeviceStatus = "MOVING"
	DeviceStopped DeviceStatus = "STOPPED"
	DeviceNoGPS   DeviceStatus = "NO_GPS"
)

// DeviceType classifies what a tracker is attached to.
type DeviceType string

const (
	DeviceVehicle   DeviceType = "VEHICLE"
	DevicePersonal  DeviceType = "PERSONAL"
	DeviceAsset     DeviceType = "ASSET"
	DeviceContainer DeviceType = "CONTAINER"
	DeviceAnimal    DeviceType = "ANIMAL"
)

// Device represents a tracked unit. IMEI is the unique hardware identity.
type Device struct {
	ID           string       `bson:"_id" json:"id"`
	IMEI         string       `bson:"imei" json:"imei"`
	Name         string       `bson:"name" json:"name"`
	Type         DeviceType   `bson:"type" json:"type"`
	Model        string       `bson:"model,omitempty" json:"model,omitempty"`
	Phone        string       `bson:"phone,omitempty" json:"phone,omitempty"`
	GroupID      string       `bson:"group_id,omitempty" json:"groupId,omitempty"`
	GroupName    string       `bson:"group_name,omitempty" json:"groupName,omitempty"`
	Status       DeviceStatus `bson:"status" json:"status"`
	LastPosition *Position    `bson:"last_position,omitempty" json:"lastPosition,omitempty"`
	Attributes   Attributes   `bson:"attributes,omitempty" json:"attributes,omitempty"`
	CreatedAt    time.Time    `bson:"created_at" json:"createdAt"`
	UpdatedAt    time.Time    `bson:"updated_at" json:"updatedAt"`
}

// StatusConsistent reports whether Status agrees with the last position's
// motion. The model does not enforce it.
func (d Device) StatusConsistent() bool {
	if d.Status != DeviceMoving {
		return true
	}
	return d.LastPosition != nil && d.LastPosition.Moving()
}

// ValidIMEI checks for a 15 digit identifier.
func ValidIMEI(imei string) bool {
	if len(imei) != 15 {
		return false
	}
	for _, r := range imei {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// DevicePatch is a partial device update. Nil fields are left unchanged;
// Attributes are merged key by key.
type DevicePatch struct {
	Name       *string       `json:"name,omitempty"`
	Type       *DeviceType   `json:"type,omitempty"`
	Model      *string       `json:"model,omitempty"`
	Phone      *string       `json:"phone,omitempty"`
	GroupID    *string       `json:"groupId,omitempty"`
	GroupName  *string       `json:"groupName,omitempty"`
	Status     *DeviceStatus `json:"status,omitempty"`
	Attributes Attributes    `json:"attributes,omitempty"`
}

// Apply returns d with the patch applied.
func (p DevicePatch) Apply(d Device) Device {
	if p.Name != nil {
		d.Name = *p.Name
	}
	if p.Type != nil {
		d.Type = *p.Type
	}
	if p.Model != nil {
		d.Model = *p.Model
	}
	if p.Phone != nil {
		d.Phone = *p.Phone
	}
	if p.GroupID != nil {
		d.GroupID = *p.GroupID
	}
	if p.GroupName != nil {
		d.GroupName = *p.GroupName
	}
	if p.Status != nil {
		d.Status = *p.Status
	}
	if p.Attributes != nil {
		d.Attributes = d.Attributes.Merge(p.Attributes)
	}
	return d
}
