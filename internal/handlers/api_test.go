package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ukydev/fleet-live/internal/auth"
	"github.com/ukydev/fleet-live/internal/middleware"
	"github.com/ukydev/fleet-live/internal/models"
	"github.com/ukydev/fleet-live/internal/realtime"
	"github.com/ukydev/fleet-live/internal/service"
	"github.com/ukydev/fleet-live/internal/service/demo"
)

func quietLog() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func newRouter(t *testing.T, attempts int) http.Handler {
	t.Helper()
	authService := auth.NewService("handlers-test", time.Hour)
	b := demo.New(demo.Options{
		Users:    service.UserFunc(middleware.CurrentUser),
		Tokens:   authService,
		Interval: 10 * time.Millisecond,
		Rand:     rand.New(rand.NewSource(7)),
		Log:      quietLog(),
	}).Service()
	return NewRouter(RouterOptions{
		Backend:       b,
		Auth:          authService,
		API:           NewAPI(b, quietLog()),
		LoginAttempts: attempts,
	})
}

func login(t *testing.T, h http.Handler, email string) string {
	t.Helper()
	body, err := json.Marshal(models.LoginRequest{Email: email, Password: demo.Password})
	require.NoError(t, err)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(body)))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp models.LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func call(h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	var r io.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestRouter_Public(t *testing.T) {
	h := newRouter(t, 0)

	w := call(h, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = call(h, http.MethodGet, "/api/devices", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = call(h, http.MethodPost, "/api/auth/login", "", models.LoginRequest{Email: "driver@tracker.com", Password: "nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouter_LoginRateLimit(t *testing.T) {
	h := newRouter(t, 2)
	bad := models.LoginRequest{Email: "driver@tracker.com", Password: "nope"}

	assert.Equal(t, http.StatusUnauthorized, call(h, http.MethodPost, "/api/auth/login", "", bad).Code)
	assert.Equal(t, http.StatusUnauthorized, call(h, http.MethodPost, "/api/auth/login", "", bad).Code)
	assert.Equal(t, http.StatusTooManyRequests, call(h, http.MethodPost, "/api/auth/login", "", bad).Code)
}

func TestRouter_DeviceVisibility(t *testing.T) {
	h := newRouter(t, 0)
	driver := login(t, h, "driver@tracker.com")
	admin := login(t, h, "admin@tracker.com")

	w := call(h, http.MethodGet, "/api/devices", driver, nil)
	require.Equal(t, http.StatusOK, w.Code)
	devices := decode[[]models.Device](t, w)
	require.Len(t, devices, 1)
	assert.Equal(t, "dev-1", devices[0].ID)

	w = call(h, http.MethodGet, "/api/devices", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.Device](t, w), 14)

	w = call(h, http.MethodGet, "/api/devices?groupId=grp-personal", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.Device](t, w), 2)

	assert.Equal(t, http.StatusOK, call(h, http.MethodGet, "/api/devices/dev-1", driver, nil).Code)
	assert.Equal(t, http.StatusNotFound, call(h, http.MethodGet, "/api/devices/dev-2", driver, nil).Code)
	assert.Equal(t, http.StatusOK, call(h, http.MethodGet, "/api/devices/dev-2", admin, nil).Code)
}

func TestRouter_DevicePositions(t *testing.T) {
	h := newRouter(t, 0)
	owner := login(t, h, "owner@tracker.com")

	w := call(h, http.MethodGet, "/api/devices/dev-personal-2/positions", owner, nil)
	require.Equal(t, http.StatusOK, w.Code)
	positions := decode[[]models.Position](t, w)
	require.NotEmpty(t, positions)
	assert.Equal(t, "dev-personal-2", positions[len(positions)-1].DeviceID)

	w = call(h, http.MethodGet, "/api/devices/dev-personal-2/positions?from=yesterday", owner, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_WritePermissions(t *testing.T) {
	h := newRouter(t, 0)
	driver := login(t, h, "driver@tracker.com")
	manager := login(t, h, "manager@tracker.com")
	admin := login(t, h, "admin@tracker.com")

	device := models.Device{Name: "Van 13", IMEI: "866069061009999", Type: models.DeviceVehicle, GroupID: "grp-1"}
	assert.Equal(t, http.StatusForbidden, call(h, http.MethodPost, "/api/devices", driver, device).Code)

	w := call(h, http.MethodPost, "/api/devices", manager, device)
	require.Equal(t, http.StatusCreated, w.Code)
	created := decode[models.Device](t, w)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, http.StatusConflict, call(h, http.MethodPost, "/api/devices", manager, device).Code)

	assert.Equal(t, http.StatusBadRequest,
		call(h, http.MethodPost, "/api/devices", manager, models.Device{Name: "x", IMEI: "123"}).Code)

	name := "Van 13b"
	w = call(h, http.MethodPut, "/api/devices/"+created.ID, manager, models.DevicePatch{Name: &name})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, name, decode[models.Device](t, w).Name)

	assert.Equal(t, http.StatusNoContent, call(h, http.MethodDelete, "/api/devices/"+created.ID, admin, nil).Code)
	assert.Equal(t, http.StatusNotFound, call(h, http.MethodDelete, "/api/devices/"+created.ID, admin, nil).Code)

	group := models.Group{Name: "Night Shift"}
	assert.Equal(t, http.StatusForbidden, call(h, http.MethodPost, "/api/groups", manager, group).Code)
	assert.Equal(t, http.StatusCreated, call(h, http.MethodPost, "/api/groups", admin, group).Code)
}

func TestRouter_GeofenceCRUD(t *testing.T) {
	h := newRouter(t, 0)
	owner := login(t, h, "owner@tracker.com")

	fence := models.Geofence{Name: "Home", Type: models.GeofenceCircle}
	w := call(h, http.MethodPost, "/api/geofences", owner, fence)
	require.Equal(t, http.StatusCreated, w.Code)
	created := decode[models.Geofence](t, w)

	assert.Equal(t, http.StatusOK, call(h, http.MethodGet, "/api/geofences/"+created.ID, owner, nil).Code)

	name := "Home sweet home"
	w = call(h, http.MethodPut, "/api/geofences/"+created.ID, owner, models.GeofencePatch{Name: &name})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, name, decode[models.Geofence](t, w).Name)

	assert.Equal(t, http.StatusNoContent, call(h, http.MethodDelete, "/api/geofences/"+created.ID, owner, nil).Code)
	assert.Equal(t, http.StatusNotFound, call(h, http.MethodDelete, "/api/geofences/"+created.ID, owner, nil).Code)
}

func TestRouter_Alerts(t *testing.T) {
	h := newRouter(t, 0)
	admin := login(t, h, "admin@tracker.com")

	w := call(h, http.MethodGet, "/api/alerts?isRead=maybe", admin, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.Equal(t, http.StatusNotFound, call(h, http.MethodPut, "/api/alerts/no-such-alert/read", admin, nil).Code)
	assert.Equal(t, http.StatusNoContent, call(h, http.MethodPut, "/api/alerts/read-all", admin, nil).Code)

	w = call(h, http.MethodGet, "/api/alerts?isRead=false", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[[]models.Alert](t, w))
}

func TestRouter_ProfileAndStats(t *testing.T) {
	h := newRouter(t, 0)
	owner := login(t, h, "owner@tracker.com")

	w := call(h, http.MethodGet, "/api/users/me", owner, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "owner@tracker.com", decode[models.User](t, w).Email)

	w = call(h, http.MethodGet, "/api/dashboard/stats", owner, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, decode[models.DashboardStats](t, w).TotalDevices)

	assert.Equal(t, http.StatusNoContent, call(h, http.MethodPost, "/api/auth/logout", owner, nil).Code)
}

func TestRouter_PositionPush(t *testing.T) {
	h := newRouter(t, 0)
	owner := login(t, h, "owner@tracker.com")

	srv := httptest.NewServer(h)
	defer srv.Close()

	var (
		mu   sync.Mutex
		seen = map[string]bool{}
	)
	feed := &realtime.WebSocketFeed{
		URL:   "ws" + strings.TrimPrefix(srv.URL, "http"),
		Token: func() string { return owner },
		Log:   quietLog(),
	}
	unsubscribe, err := feed.Subscribe(context.Background(), func(deltas map[string]models.Position) {
		mu.Lock()
		defer mu.Unlock()
		for id := range deltas {
			seen[id] = true
		}
	})
	require.NoError(t, err)
	defer unsubscribe()

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) > 0
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	for id := range seen {
		assert.Contains(t, []string{"dev-personal-1", "dev-personal-2"}, id)
	}

	anonymous := &realtime.WebSocketFeed{URL: feed.URL, Log: quietLog()}
	_, err = anonymous.Subscribe(context.Background(), func(map[string]models.Position) {})
	assert.ErrorIs(t, err, service.ErrUnauthorized)
}
