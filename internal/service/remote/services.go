package remote

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ukydev/fleet-live/internal/models"
)

type devices struct{ c *Client }

func (s *devices) List(ctx context.Context, filter models.DeviceFilter) ([]models.Device, error) {
	q := url.Values{}
	setString(q, "search", filter.Search)
	setString(q, "status", string(filter.Status))
	setString(q, "groupId", filter.GroupID)
	setString(q, "type", string(filter.Type))

	var out []models.Device
	if err := s.c.do(ctx, http.MethodGet, "/api/devices", q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *devices) Get(ctx context.Context, id string) (models.Device, error) {
	var out models.Device
	err := s.c.do(ctx, http.MethodGet, pathID("/api/devices", id), nil, nil, &out)
	return out, err
}

func (s *devices) Positions(ctx context.Context, id string, from, to *time.Time) ([]models.Position, error) {
	q := url.Values{}
	setTime(q, "from", from)
	setTime(q, "to", to)

	var out []models.Position
	if err := s.c.do(ctx, http.MethodGet, pathID("/api/devices", id)+"/positions", q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *devices) Create(ctx context.Context, d models.Device) (models.Device, error) {
	var out models.Device
	err := s.c.do(ctx, http.MethodPost, "/api/devices", nil, d, &out)
	return out, err
}

func (s *devices) Update(ctx context.Context, id string, patch models.DevicePatch) (models.Device, error) {
	var out models.Device
	err := s.c.do(ctx, http.MethodPut, pathID("/api/devices", id), nil, patch, &out)
	return out, err
}

func (s *devices) Delete(ctx context.Context, id string) error {
	return s.c.do(ctx, http.MethodDelete, pathID("/api/devices", id), nil, nil, nil)
}

type rides struct{ c *Client }

func (s *rides) List(ctx context.Context, filter models.RideFilter) ([]models.Ride, error) {
	q := url.Values{}
	setString(q, "deviceId", filter.DeviceID)
	setString(q, "groupId", filter.GroupID)
	setString(q, "status", string(filter.Status))
	setTime(q, "startDate", filter.StartDate)
	setTime(q, "endDate", filter.EndDate)

	var out []models.Ride
	if err := s.c.do(ctx, http.MethodGet, "/api/rides", q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *rides) Get(ctx context.Context, id string) (models.Ride, error) {
	var out models.Ride
	err := s.c.do(ctx, http.MethodGet, pathID("/api/rides", id), nil, nil, &out)
	return out, err
}

type geofences struct{ c *Client }

func (s *geofences) List(ctx context.Context) ([]models.Geofence, error) {
	var out []models.Geofence
	if err := s.c.do(ctx, http.MethodGet, "/api/geofences", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *geofences) Get(ctx context.Context, id string) (models.Geofence, error) {
	var out models.Geofence
	err := s.c.do(ctx, http.MethodGet, pathID("/api/geofences", id), nil, nil, &out)
	return out, err
}

func (s *geofences) Create(ctx context.Context, g models.Geofence) (models.Geofence, error) {
	var out models.Geofence
	err := s.c.do(ctx, http.MethodPost, "/api/geofences", nil, g, &out)
	return out, err
}

func (s *geofences) Update(ctx context.Context, id string, patch models.GeofencePatch) (models.Geofence, error) {
	var out models.Geofence
	err := s.c.do(ctx, http.MethodPut, pathID("/api/geofences", id), nil, patch, &out)
	return out, err
}

func (s *geofences) Delete(ctx context.Context, id string) error {
	return s.c.do(ctx, http.MethodDelete, pathID("/api/geofences", id), nil, nil, nil)
}

type alerts struct{ c *Client }

func (s *alerts) List(ctx context.Context, filter models.AlertFilter) ([]models.Alert, error) {
	q := url.Values{}
	setString(q, "deviceId", filter.DeviceID)
	setString(q, "type", string(filter.Type))
	setString(q, "severity", string(filter.Severity))
	if filter.IsRead != nil {
		q.Set("isRead", strconv.FormatBool(*filter.IsRead))
	}
	setTime(q, "startDate", filter.StartDate)
	setTime(q, "endDate", filter.EndDate)

	var out []models.Alert
	if err := s.c.do(ctx, http.MethodGet, "/api/alerts", q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *alerts) MarkRead(ctx context.Context, id string) error {
	return s.c.do(ctx, http.MethodPut, pathID("/api/alerts", id)+"/read", nil, nil, nil)
}

func (s *alerts) MarkAllRead(ctx context.Context) error {
	return s.c.do(ctx, http.MethodPut, "/api/alerts/read-all", nil, nil, nil)
}

type groups struct{ c *Client }

func (s *groups) List(ctx context.Context) ([]models.Group, error) {
	var out []models.Group
	if err := s.c.do(ctx, http.MethodGet, "/api/groups", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *groups) Get(ctx context.Context, id string) (models.Group, error) {
	var out models.Group
	err := s.c.do(ctx, http.MethodGet, pathID("/api/groups", id), nil, nil, &out)
	return out, err
}

func (s *groups) Create(ctx context.Context, g models.Group) (models.Group, error) {
	var out models.Group
	err := s.c.do(ctx, http.MethodPost, "/api/groups", nil, g, &out)
	return out, err
}

func (s *groups) Update(ctx context.Context, id string, patch models.GroupPatch) (models.Group, error) {
	var out models.Group
	err := s.c.do(ctx, http.MethodPut, pathID("/api/groups", id), nil, patch, &out)
	return out, err
}

func (s *groups) Delete(ctx context.Context, id string) error {
	return s.c.do(ctx, http.MethodDelete, pathID("/api/groups", id), nil, nil, nil)
}

type session struct{ c *Client }

// Login exchanges credentials for a token and keeps it for later calls.
func (s *session) Login(ctx context.Context, req models.LoginRequest) (models.LoginResponse, error) {
	var out models.LoginResponse
	if err := s.c.do(ctx, http.MethodPost, "/api/auth/login", nil, req, &out); err != nil {
		return models.LoginResponse{}, err
	}
	s.c.tokens.SetToken(out.Token)
	return out, nil
}

func (s *session) Me(ctx context.Context) (models.User, error) {
	var out models.User
	err := s.c.do(ctx, http.MethodGet, "/api/users/me", nil, nil, &out)
	return out, err
}

// Logout tells the backend and drops the token even when the call fails.
func (s *session) Logout(ctx context.Context) error {
	err := s.c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil, nil)
	s.c.tokens.Invalidate()
	return err
}

type dashboard struct{ c *Client }

func (s *dashboard) Stats(ctx context.Context) (models.DashboardStats, error) {
	var out models.DashboardStats
	err := s.c.do(ctx, http.MethodGet, "/api/dashboard/stats", nil, nil, &out)
	return out, err
}
