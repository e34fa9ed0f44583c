// Package service defines the data access layer the dashboard talks to.
// Two backings implement it: service/demo serves an in-memory simulated
// fleet and service/remote talks to the REST and push API. Callers never
// depend on which one is active.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ukydev/fleet-live/internal/models"
)

var (
	// ErrNotFound means the entity is absent or not visible to the user.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized means the backend rejected the credentials.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden means the user's role may not perform the action.
	ErrForbidden = errors.New("forbidden")
	// ErrConflict means the write clashes with an existing entity.
	ErrConflict = errors.New("conflict")
	// ErrTransport classifies network and decoding failures.
	ErrTransport = errors.New("transport failure")
)

// NotFound wraps ErrNotFound with the entity kind and id.
func NotFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
}

// UserSource supplies the user whose visibility scope applies to a call.
type UserSource interface {
	CurrentUser(ctx context.Context) *models.User
}

// UserFunc adapts a function to UserSource.
type UserFunc func(ctx context.Context) *models.User

// CurrentUser calls f.
func (f UserFunc) CurrentUser(ctx context.Context) *models.User { return f(ctx) }

// Devices reads and writes trackers.
type Devices interface {
	List(ctx context.Context, filter models.DeviceFilter) ([]models.Device, error)
	Get(ctx context.Context, id string) (models.Device, error)
	// Positions returns the position history of a device, oldest first.
	Positions(ctx context.Context, id string, from, to *time.Time) ([]models.Position, error)
	Create(ctx context.Context, d models.Device) (models.Device, error)
	Update(ctx context.Context, id string, patch models.DevicePatch) (models.Device, error)
	Delete(ctx context.Context, id string) error
}

// Rides reads trip history.
type Rides interface {
	List(ctx context.Context, filter models.RideFilter) ([]models.Ride, error)
	Get(ctx context.Context, id string) (models.Ride, error)
}

// Geofences reads and writes geographic boundaries.
type Geofences interface {
	List(ctx context.Context) ([]models.Geofence, error)
	Get(ctx context.Context, id string) (models.Geofence, error)
	Create(ctx context.Context, g models.Geofence) (models.Geofence, error)
	Update(ctx context.Context, id string, patch models.GeofencePatch) (models.Geofence, error)
	Delete(ctx context.Context, id string) error
}

// Alerts reads alerts and acknowledges them.
type Alerts interface {
	List(ctx context.Context, filter models.AlertFilter) ([]models.Alert, error)
	MarkRead(ctx context.Context, id string) error
	MarkAllRead(ctx context.Context) error
}

// Groups reads and writes device groups.
type Groups interface {
	List(ctx context.Context) ([]models.Group, error)
	Get(ctx context.Context, id string) (models.Group, error)
	Create(ctx context.Context, g models.Group) (models.Group, error)
	Update(ctx context.Context, id string, patch models.GroupPatch) (models.Group, error)
	Delete(ctx context.Context, id string) error
}

// Session identifies the signed-in user.
type Session interface {
	Login(ctx context.Context, req models.LoginRequest) (models.LoginResponse, error)
	Me(ctx context.Context) (models.User, error)
	Logout(ctx context.Context) error
}

// Dashboard computes summary figures over the visible fleet.
type Dashboard interface {
	Stats(ctx context.Context) (models.DashboardStats, error)
}

// PositionHandler receives one batch of position deltas keyed by device id.
type PositionHandler func(map[string]models.Position)

// Feed streams live position deltas. Subscribe returns once the
// subscription is established; the returned function tears it down and
// may be called more than once. Cancelling ctx also ends the
// subscription.
type Feed interface {
	Subscribe(ctx context.Context, fn PositionHandler) (unsubscribe func(), err error)
}

// Backend bundles one implementation of every interface.
type Backend struct {
	Devices   Devices
	Rides     Rides
	Geofences Geofences
	Alerts    Alerts
	Groups    Groups
	Session   Session
	Dashboard Dashboard
	Feed      Feed

	// Close releases connections held by the backing. May be nil.
	Close func() error
}

// Shutdown calls Close when set.
func (b *Backend) Shutdown() error {
	if b.Close == nil {
		return nil
	}
	return b.Close()
}
