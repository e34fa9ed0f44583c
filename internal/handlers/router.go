package handlers

import (
	"io"
	"net/http"

	gorillahandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/ukydev/fleet-live/internal/auth"
	"github.com/ukydev/fleet-live/internal/middleware"
	"github.com/ukydev/fleet-live/internal/models"
	"github.com/ukydev/fleet-live/internal/realtime"
	"github.com/ukydev/fleet-live/internal/service"
)

// RouterOptions configures NewRouter.
type RouterOptions struct {
	Backend *service.Backend
	Auth    *auth.Service
	API     *API
	// AccessLog receives one combined-format line per request. Nil
	// disables the access log.
	AccessLog io.Writer
	// LoginAttempts per client per minute.
	LoginAttempts int
}

// NewRouter mounts the fleet REST and push endpoints. Everything except
// login and the health check requires a bearer token; writes are further
// gated by the caller's permissions.
func NewRouter(opts RouterOptions) http.Handler {
	api := opts.API
	if api == nil {
		api = NewAPI(opts.Backend, nil)
	}
	authn := middleware.NewAuthMiddleware(opts.Auth)
	authHandler := NewAuthHandler(opts.Auth, opts.Backend.Session)
	limiter := middleware.NewRateLimitMiddleware()
	attempts := opts.LoginAttempts
	if attempts <= 0 {
		attempts = 10
	}

	r := mux.NewRouter()
	r.HandleFunc("/health", Health).Methods(http.MethodGet)
	r.Handle("/api/auth/login", limiter.RateLimit(attempts, 60)(http.HandlerFunc(authHandler.Login))).
		Methods(http.MethodPost)

	protected := r.NewRoute().Subrouter()
	protected.Use(authn.Authenticate)

	can := func(action string, h http.HandlerFunc) http.Handler {
		return authn.RequirePermission(action)(h)
	}

	protected.HandleFunc("/api/auth/logout", authHandler.Logout).Methods(http.MethodPost)
	protected.HandleFunc("/api/users/me", authHandler.GetProfile).Methods(http.MethodGet)
	protected.HandleFunc("/api/dashboard/stats", api.DashboardStats).Methods(http.MethodGet)
	protected.HandleFunc(realtime.PositionsPath, api.Positions).Methods(http.MethodGet)

	devices := protected.PathPrefix("/api/devices").Subrouter()
	devices.HandleFunc("", api.ListDevices).Methods(http.MethodGet)
	devices.Handle("", can(models.PermManageDevices, api.CreateDevice)).Methods(http.MethodPost)
	devices.HandleFunc("/{id}", api.GetDevice).Methods(http.MethodGet)
	devices.HandleFunc("/{id}/positions", api.DevicePositions).Methods(http.MethodGet)
	devices.Handle("/{id}", can(models.PermManageDevices, api.UpdateDevice)).Methods(http.MethodPut)
	devices.Handle("/{id}", can(models.PermManageDevices, api.DeleteDevice)).Methods(http.MethodDelete)

	rides := protected.PathPrefix("/api/rides").Subrouter()
	rides.HandleFunc("", api.ListRides).Methods(http.MethodGet)
	rides.HandleFunc("/{id}", api.GetRide).Methods(http.MethodGet)

	geofences := protected.PathPrefix("/api/geofences").Subrouter()
	geofences.HandleFunc("", api.ListGeofences).Methods(http.MethodGet)
	geofences.Handle("", can(models.PermManageGeofences, api.CreateGeofence)).Methods(http.MethodPost)
	geofences.HandleFunc("/{id}", api.GetGeofence).Methods(http.MethodGet)
	geofences.Handle("/{id}", can(models.PermManageGeofences, api.UpdateGeofence)).Methods(http.MethodPut)
	geofences.Handle("/{id}", can(models.PermManageGeofences, api.DeleteGeofence)).Methods(http.MethodDelete)

	alerts := protected.PathPrefix("/api/alerts").Subrouter()
	alerts.HandleFunc("", api.ListAlerts).Methods(http.MethodGet)
	alerts.Handle("/read-all", can(models.PermManageAlerts, api.MarkAllAlertsRead)).Methods(http.MethodPut)
	alerts.Handle("/{id}/read", can(models.PermManageAlerts, api.MarkAlertRead)).Methods(http.MethodPut)

	groups := protected.PathPrefix("/api/groups").Subrouter()
	groups.HandleFunc("", api.ListGroups).Methods(http.MethodGet)
	groups.Handle("", can(models.PermManageGroups, api.CreateGroup)).Methods(http.MethodPost)
	groups.HandleFunc("/{id}", api.GetGroup).Methods(http.MethodGet)
	groups.Handle("/{id}", can(models.PermManageGroups, api.UpdateGroup)).Methods(http.MethodPut)
	groups.Handle("/{id}", can(models.PermManageGroups, api.DeleteGroup)).Methods(http.MethodDelete)

	var h http.Handler = r
	h = gorillahandlers.CORS(
		gorillahandlers.AllowedOrigins([]string{"*"}),
		gorillahandlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		gorillahandlers.AllowedHeaders([]string{"Authorization", "Content-Type"}),
	)(h)
	if opts.AccessLog != nil {
		h = gorillahandlers.CombinedLoggingHandler(opts.AccessLog, h)
	}
	return gorillahandlers.RecoveryHandler(gorillahandlers.PrintRecoveryStack(true))(h)
}
