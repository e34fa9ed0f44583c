// Package dashboard wires the live store to the data access layer: it
// fetches into the store, keeps at most one live position subscription
// and mirrors successful writes back into the store.
package dashboard

import (
	"context"
	"errors"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/ukydev/fleet-live/internal/models"
	"github.com/ukydev/fleet-live/internal/service"
	"github.com/ukydev/fleet-live/internal/service/demo"
	"github.com/ukydev/fleet-live/internal/store"
)

// Session is one signed-in dashboard.
type Session struct {
	Store   *store.Store
	Backend *service.Backend

	log *log.Entry
	now func() time.Time

	mu          sync.Mutex
	unsubscribe func()
}

// New returns a session over st and b. A nil entry logs to the standard
// logger.
func New(st *store.Store, b *service.Backend, entry *log.Entry) *Session {
	if entry == nil {
		entry = log.WithField("component", "dashboard")
	}
	return &Session{Store: st, Backend: b, log: entry, now: time.Now}
}

// Login signs in and records the user in the store.
func (s *Session) Login(ctx context.Context, req models.LoginRequest) (models.User, error) {
	s.Store.Auth.SetLoading(true)
	resp, err := s.Backend.Session.Login(ctx, req)
	if err != nil {
		s.Store.Auth.SetLoading(false)
		return models.User{}, err
	}
	s.Store.Auth.SetUser(&resp.User)
	s.log.WithFields(log.Fields{"user_id": resp.User.ID, "role": resp.User.Role}).Info("Signed in")
	return resp.User, nil
}

// Resume refreshes the stored user from the backend, for a session
// restored from persisted preferences or a configured token.
func (s *Session) Resume(ctx context.Context) (models.User, error) {
	s.Store.Auth.SetLoading(true)
	user, err := s.Backend.Session.Me(ctx)
	if err != nil {
		s.Store.Auth.SetLoading(false)
		return models.User{}, err
	}
	s.Store.Auth.SetUser(&user)
	return user, nil
}

// Logout stops the live feed, tells the backend and clears the user and
// the fetched collections. Local state is cleared even when the backend
// call fails.
func (s *Session) Logout(ctx context.Context) error {
	s.StopLive()
	err := s.Backend.Session.Logout(ctx)
	s.Unauthorized()
	return err
}

// Unauthorized drops the user and every fetched collection. It is the
// hook for a rejected token.
func (s *Session) Unauthorized() {
	s.Store.Auth.Logout()
	s.Store.Devices.SetAll(nil)
	s.Store.Alerts.SetAll(nil)
	s.Store.Geofences.SetAll(nil)
	s.log.Info("Signed out")
}

// LoadDevices fetches the visible devices into the store. A fetch
// overtaken by a newer one is discarded.
func (s *Session) LoadDevices(ctx context.Context, filter models.DeviceFilter) error {
	gen := s.Store.Devices.BeginLoad()
	devices, err := s.Backend.Devices.List(ctx, filter)
	if err != nil {
		s.Store.Devices.AbortLoad(gen)
		return err
	}
	if !s.Store.Devices.CommitLoad(gen, devices) {
		s.log.WithField("generation", gen).Debug("Dropped stale device load")
	}
	return nil
}

// LoadAlerts fetches the visible alerts into the store.
func (s *Session) LoadAlerts(ctx context.Context, filter models.AlertFilter) error {
	gen := s.Store.Alerts.BeginLoad()
	alerts, err := s.Backend.Alerts.List(ctx, filter)
	if err != nil {
		s.Store.Alerts.AbortLoad(gen)
		return err
	}
	if !s.Store.Alerts.CommitLoad(gen, alerts) {
		s.log.WithField("generation", gen).Debug("Dropped stale alert load")
	}
	return nil
}

// LoadGeofences fetches every geofence into the store.
func (s *Session) LoadGeofences(ctx context.Context) error {
	s.Store.Geofences.SetLoading(true)
	geofences, err := s.Backend.Geofences.List(ctx)
	if err != nil {
		s.Store.Geofences.SetLoading(false)
		return err
	}
	s.Store.Geofences.SetAll(geofences)
	return nil
}

// Stats fetches the dashboard figures and caches them in the store.
func (s *Session) Stats(ctx context.Context) (models.DashboardStats, error) {
	s.Store.Stats.SetLoading(true)
	stats, err := s.Backend.Dashboard.Stats(ctx)
	if err != nil {
		s.Store.Stats.SetLoading(false)
		return models.DashboardStats{}, err
	}
	s.Store.Stats.Set(stats)
	return stats, nil
}

// StartLive subscribes the device store to position deltas, replacing
// any earlier subscription.
func (s *Session) StartLive(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()

	unsubscribe, err := s.Backend.Feed.Subscribe(ctx, func(deltas map[string]models.Position) {
		n := s.Store.Devices.ApplyPositionDeltas(deltas)
		s.log.WithFields(log.Fields{"received": len(deltas), "applied": n}).Trace("Positions merged")
	})
	if err != nil {
		return err
	}
	s.unsubscribe = unsubscribe
	s.log.Debug("Live positions started")
	return nil
}

// StopLive ends the live subscription, if any.
func (s *Session) StopLive() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *Session) stopLocked() {
	if s.unsubscribe == nil {
		return
	}
	s.unsubscribe()
	s.unsubscribe = nil
	s.log.Debug("Live positions stopped")
}

// Live reports whether a subscription is active.
func (s *Session) Live() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unsubscribe != nil
}

// MarkAlertRead acknowledges one alert.
func (s *Session) MarkAlertRead(ctx context.Context, id string) error {
	if err := s.Backend.Alerts.MarkRead(ctx, id); err != nil {
		return err
	}
	s.Store.Alerts.MarkRead(id)
	return nil
}

// MarkAllAlertsRead acknowledges every visible alert.
func (s *Session) MarkAllAlertsRead(ctx context.Context) error {
	if err := s.Backend.Alerts.MarkAllRead(ctx); err != nil {
		return err
	}
	s.Store.Alerts.MarkAllRead()
	return nil
}

// CreateGeofence stores g and adds the result to the live list.
func (s *Session) CreateGeofence(ctx context.Context, g models.Geofence) (models.Geofence, error) {
	created, err := s.Backend.Geofences.Create(ctx, g)
	if err != nil {
		return models.Geofence{}, err
	}
	s.Store.Geofences.Add(created)
	return created, nil
}

// UpdateGeofence applies patch and replaces the stored copy.
func (s *Session) UpdateGeofence(ctx context.Context, id string, patch models.GeofencePatch) (models.Geofence, error) {
	updated, err := s.Backend.Geofences.Update(ctx, id, patch)
	if err != nil {
		return models.Geofence{}, err
	}
	if !s.Store.Geofences.Replace(updated) {
		s.Store.Geofences.Add(updated)
	}
	return updated, nil
}

// DeleteGeofence removes the geofence from the backend and the store.
func (s *Session) DeleteGeofence(ctx context.Context, id string) error {
	if err := s.Backend.Geofences.Delete(ctx, id); err != nil {
		return err
	}
	s.Store.Geofences.Remove(id)
	return nil
}

// TripDetail fetches one trip. When the backend cannot be reached a
// generated placeholder trip is shown instead; other failures surface.
func (s *Session) TripDetail(ctx context.Context, id string) (models.Ride, error) {
	ride, err := s.Backend.Rides.Get(ctx, id)
	if err == nil {
		return ride, nil
	}
	if !errors.Is(err, service.ErrTransport) {
		return models.Ride{}, err
	}
	s.log.WithError(err).WithField("ride_id", id).Warn("Trip unavailable, showing placeholder")
	return demo.PlaceholderRide(id, s.now()), nil
}

// DeviceHistory returns the position trail of a device between from and to.
func (s *Session) DeviceHistory(ctx context.Context, id string, from, to *time.Time) ([]models.Position, error) {
	return s.Backend.Devices.Positions(ctx, id, from, to)
}

// Close stops the live feed, saves preferences and releases the backing.
func (s *Session) Close(ctx context.Context) error {
	s.StopLive()
	err := s.Store.Close(ctx)
	if shutdownErr := s.Backend.Shutdown(); err == nil {
		err = shutdownErr
	}
	return err
}
