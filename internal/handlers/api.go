package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/ukydev/fleet-live/internal/auth"
	"github.com/ukydev/fleet-live/internal/models"
	"github.com/ukydev/fleet-live/internal/realtime"
	"github.com/ukydev/fleet-live/internal/service"
)

// maxBodyBytes bounds a request body.
const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Debug("Failed to write response")
	}
}

// writeError maps data access errors onto HTTP statuses.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		http.Error(w, "Not found", http.StatusNotFound)
	case errors.Is(err, service.ErrForbidden):
		http.Error(w, "Insufficient permissions", http.StatusForbidden)
	case errors.Is(err, service.ErrConflict):
		http.Error(w, "Conflict", http.StatusConflict)
	case errors.Is(err, service.ErrUnauthorized), errors.Is(err, auth.ErrInvalidCredentials):
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		http.Error(w, "Request cancelled", http.StatusServiceUnavailable)
	default:
		log.WithError(err).WithFields(log.Fields{"method": r.Method, "path": r.URL.Path}).Error("Request failed")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func readJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return false
	}
	if err := json.Unmarshal(body, v); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return false
	}
	return true
}

func parseTime(q url.Values, key string) (*time.Time, error) {
	v := q.Get(key)
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", key, err)
	}
	return &t, nil
}

// API serves the fleet REST surface over a data access backing.
type API struct {
	backend *service.Backend
	log     *log.Entry
}

// NewAPI returns handlers over b.
func NewAPI(b *service.Backend, entry *log.Entry) *API {
	if entry == nil {
		entry = log.WithField("component", "api")
	}
	return &API{backend: b, log: entry}
}

// ListDevices returns the caller's visible devices narrowed by the query
// filters.
func (a *API) ListDevices(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := models.DeviceFilter{
		Search:  q.Get("search"),
		Status:  models.DeviceStatus(q.Get("status")),
		GroupID: q.Get("groupId"),
		Type:    models.DeviceType(q.Get("type")),
	}
	devices, err := a.backend.Devices.List(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, devices)
}

// GetDevice returns one visible device.
func (a *API) GetDevice(w http.ResponseWriter, r *http.Request) {
	d, err := a.backend.Devices.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// DevicePositions returns a device's position history between the
// optional RFC3339 from and to query parameters.
func (a *API) DevicePositions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, err := parseTime(q, "from")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	to, err := parseTime(q, "to")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	positions, err := a.backend.Devices.Positions(r.Context(), mux.Vars(r)["id"], from, to)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, positions)
}

// CreateDevice registers a device. A duplicate IMEI yields 409.
func (a *API) CreateDevice(w http.ResponseWriter, r *http.Request) {
	var d models.Device
	if !readJSON(w, r, &d) {
		return
	}
	if d.Name == "" {
		http.Error(w, "Device name is required", http.StatusBadRequest)
		return
	}
	if d.IMEI != "" && !models.ValidIMEI(d.IMEI) {
		http.Error(w, "IMEI must be 15 digits", http.StatusBadRequest)
		return
	}
	created, err := a.backend.Devices.Create(r.Context(), d)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// UpdateDevice applies a partial update to a device.
func (a *API) UpdateDevice(w http.ResponseWriter, r *http.Request) {
	var patch models.DevicePatch
	if !readJSON(w, r, &patch) {
		return
	}
	updated, err := a.backend.Devices.Update(r.Context(), mux.Vars(r)["id"], patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// DeleteDevice removes a device.
func (a *API) DeleteDevice(w http.ResponseWriter, r *http.Request) {
	if err := a.backend.Devices.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListRides returns the caller's visible trips.
func (a *API) ListRides(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := models.RideFilter{
		DeviceID: q.Get("deviceId"),
		GroupID:  q.Get("groupId"),
		Status:   models.RideStatus(q.Get("status")),
	}
	var err error
	if filter.StartDate, err = parseTime(q, "startDate"); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if filter.EndDate, err = parseTime(q, "endDate"); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	rides, err := a.backend.Rides.List(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rides)
}

// GetRide returns one trip.
func (a *API) GetRide(w http.ResponseWriter, r *http.Request) {
	ride, err := a.backend.Rides.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ride)
}

// ListGeofences returns the caller's geofences.
func (a *API) ListGeofences(w http.ResponseWriter, r *http.Request) {
	geofences, err := a.backend.Geofences.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, geofences)
}

// GetGeofence returns one geofence.
func (a *API) GetGeofence(w http.ResponseWriter, r *http.Request) {
	g, err := a.backend.Geofences.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

// CreateGeofence stores a new geofence.
func (a *API) CreateGeofence(w http.ResponseWriter, r *http.Request) {
	var g models.Geofence
	if !readJSON(w, r, &g) {
		return
	}
	if g.Name == "" {
		http.Error(w, "Geofence name is required", http.StatusBadRequest)
		return
	}
	created, err := a.backend.Geofences.Create(r.Context(), g)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// UpdateGeofence applies a partial update to a geofence.
func (a *API) UpdateGeofence(w http.ResponseWriter, r *http.Request) {
	var patch models.GeofencePatch
	if !readJSON(w, r, &patch) {
		return
	}
	updated, err := a.backend.Geofences.Update(r.Context(), mux.Vars(r)["id"], patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// DeleteGeofence removes a geofence.
func (a *API) DeleteGeofence(w http.ResponseWriter, r *http.Request) {
	if err := a.backend.Geofences.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListAlerts returns alerts, filtered by the optional isRead parameter.
func (a *API) ListAlerts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := models.AlertFilter{
		DeviceID: q.Get("deviceId"),
		Type:     models.AlertType(q.Get("type")),
		Severity: models.AlertSeverity(q.Get("severity")),
	}
	if v := q.Get("isRead"); v != "" {
		read, err := strconv.ParseBool(v)
		if err != nil {
			http.Error(w, "invalid isRead", http.StatusBadRequest)
			return
		}
		filter.IsRead = &read
	}
	var err error
	if filter.StartDate, err = parseTime(q, "startDate"); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if filter.EndDate, err = parseTime(q, "endDate"); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	alerts, err := a.backend.Alerts.List(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, alerts)
}

// MarkAlertRead marks one alert read.
func (a *API) MarkAlertRead(w http.ResponseWriter, r *http.Request) {
	if err := a.backend.Alerts.MarkRead(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MarkAllAlertsRead marks every visible alert read.
func (a *API) MarkAllAlertsRead(w http.ResponseWriter, r *http.Request) {
	if err := a.backend.Alerts.MarkAllRead(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListGroups returns the caller's visible groups.
func (a *API) ListGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := a.backend.Groups.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, groups)
}

// GetGroup returns one group.
func (a *API) GetGroup(w http.ResponseWriter, r *http.Request) {
	g, err := a.backend.Groups.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

// CreateGroup stores a new group.
func (a *API) CreateGroup(w http.ResponseWriter, r *http.Request) {
	var g models.Group
	if !readJSON(w, r, &g) {
		return
	}
	if g.Name == "" {
		http.Error(w, "Group name is required", http.StatusBadRequest)
		return
	}
	created, err := a.backend.Groups.Create(r.Context(), g)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// UpdateGroup applies a partial update to a group.
func (a *API) UpdateGroup(w http.ResponseWriter, r *http.Request) {
	var patch models.GroupPatch
	if !readJSON(w, r, &patch) {
		return
	}
	updated, err := a.backend.Groups.Update(r.Context(), mux.Vars(r)["id"], patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// DeleteGroup removes a group.
func (a *API) DeleteGroup(w http.ResponseWriter, r *http.Request) {
	if err := a.backend.Groups.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DashboardStats returns the aggregate counts for the caller's fleet.
func (a *API) DashboardStats(w http.ResponseWriter, r *http.Request) {
	stats, err := a.backend.Dashboard.Stats(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// Positions streams live deltas for the caller's visible devices.
func (a *API) Positions(w http.ResponseWriter, r *http.Request) {
	realtime.ServeWebSocket(w, r, a.backend.Feed, a.log.WithField("endpoint", realtime.PositionsPath))
}

// Health reports liveness.
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
