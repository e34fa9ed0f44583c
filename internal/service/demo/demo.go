// Package demo implements the data access layer over an in-memory
// simulated fleet. Every read applies the role visibility filter before
// any caller supplied filter, and every call waits a simulated network
// latency first.
package demo

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/ukydev/fleet-live/internal/access"
	"github.com/ukydev/fleet-live/internal/auth"
	"github.com/ukydev/fleet-live/internal/geo"
	"github.com/ukydev/fleet-live/internal/models"
	"github.com/ukydev/fleet-live/internal/service"
	"github.com/ukydev/fleet-live/internal/simulator"
)

// Latency is the simulated round trip per call kind.
type Latency struct {
	List  time.Duration
	Get   time.Duration
	Write time.Duration
}

// DefaultLatency mirrors a slow-ish hosted API.
func DefaultLatency() Latency {
	return ScaledLatency(300 * time.Millisecond)
}

// ScaledLatency derives by-id and write latencies from the list latency.
func ScaledLatency(list time.Duration) Latency {
	return Latency{List: list, Get: list * 2 / 3, Write: list * 5 / 3}
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// TokenIssuer signs a token for a signed-in demo account.
type TokenIssuer interface {
	GenerateToken(user *models.User) (string, error)
}

// Options configures a Backend. Zero values pick sensible defaults.
type Options struct {
	// Users supplies the caller whose visibility applies.
	Users service.UserSource
	// Policy decides visibility. Defaults to access.DefaultPolicy().
	Policy *access.Policy
	// Latency is waited before every call.
	Latency Latency
	// Interval is the live feed tick. Defaults to simulator.Tick.
	Interval time.Duration
	// DefaultRole picks the account Me returns when no user is known.
	DefaultRole models.Role
	// Tokens signs login tokens. Without it logins get an opaque token.
	Tokens TokenIssuer
	Rand   *rand.Rand
	Now    func() time.Time
	Log    *log.Entry
}

// Backend owns the simulated dataset.
type Backend struct {
	mu   sync.RWMutex
	data *Dataset

	users       service.UserSource
	policy      access.Policy
	latency     Latency
	interval    time.Duration
	defaultRole models.Role
	tokens      TokenIssuer
	sim         *simulator.Simulator
	now         func() time.Time
	log         *log.Entry

	hasher   *auth.Service
	hashOnce sync.Once
	hash     string
	hashErr  error
}

// New generates a dataset and returns a Backend serving it.
func New(opts Options) *Backend {
	b := &Backend{
		users:       opts.Users,
		policy:      access.DefaultPolicy(),
		latency:     opts.Latency,
		interval:    opts.Interval,
		defaultRole: opts.DefaultRole,
		tokens:      opts.Tokens,
		now:         opts.Now,
		log:         opts.Log,
		hasher:      auth.NewService("", 0),
	}
	if opts.Policy != nil {
		b.policy = *opts.Policy
	}
	if b.interval <= 0 {
		b.interval = simulator.Tick
	}
	if b.defaultRole == "" {
		b.defaultRole = models.RoleAdmin
	}
	if b.now == nil {
		b.now = time.Now
	}
	if b.log == nil {
		b.log = log.WithField("component", "demo")
	}
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(b.now().UnixNano()))
	}
	b.sim = simulator.New(
		simulator.WithRand(rand.New(rand.NewSource(rng.Int63()))),
		simulator.WithClock(b.now),
	)
	b.data = Generate(rng, b.now(), uuid.NewString)

	b.log.WithFields(log.Fields{
		"devices":   len(b.data.Devices),
		"rides":     len(b.data.Rides),
		"alerts":    len(b.data.Alerts),
		"geofences": len(b.data.Geofences),
	}).Info("Demo dataset generated")
	return b
}

// Service bundles the backend behind the data access interfaces.
func (b *Backend) Service() *service.Backend {
	return &service.Backend{
		Devices:   &devices{b},
		Rides:     &rides{b},
		Geofences: &geofences{b},
		Alerts:    &alerts{b},
		Groups:    &groups{b},
		Session:   &session{b},
		Dashboard: &dashboard{b},
		Feed:      &feed{b},
	}
}

// Accounts lists the demo sign-in identities.
func (b *Backend) Accounts() []models.User {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]models.User, 0, len(b.data.Accounts))
	for _, a := range b.data.Accounts {
		out = append(out, a.User)
	}
	return out
}

// AccountByRole returns the demo account for role.
func (b *Backend) AccountByRole(role models.Role) (models.User, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, a := range b.data.Accounts {
		if a.User.Role == role {
			return a.User, true
		}
	}
	return models.User{}, false
}

func (b *Backend) user(ctx context.Context) *models.User {
	if b.users == nil {
		return nil
	}
	return b.users.CurrentUser(ctx)
}

func newID(prefix string) string {
	return prefix + uuid.NewString()
}

// ---- devices ----

type devices struct{ b *Backend }

func (s *devices) List(ctx context.Context, filter models.DeviceFilter) ([]models.Device, error) {
	b := s.b
	if err := wait(ctx, b.latency.List); err != nil {
		return nil, err
	}
	user := b.user(ctx)
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]models.Device, 0, len(b.data.Devices))
	for _, d := range b.policy.Devices(user, b.data.Devices) {
		if filter.Match(d) {
			out = append(out, d)
		}
	}
	return out, nil
}

// visibleDevice must be called with b.mu held.
func (b *Backend) visibleDevice(user *models.User, id string) (int, bool) {
	for i, d := range b.data.Devices {
		if d.ID == id {
			return i, b.policy.CanSee(user, d)
		}
	}
	return -1, false
}

func (s *devices) Get(ctx context.Context, id string) (models.Device, error) {
	b := s.b
	if err := wait(ctx, b.latency.Get); err != nil {
		return models.Device{}, err
	}
	user := b.user(ctx)
	b.mu.RLock()
	defer b.mu.RUnlock()
	i, ok := b.visibleDevice(user, id)
	if !ok {
		return models.Device{}, service.NotFound("device", id)
	}
	return b.data.Devices[i], nil
}

func (s *devices) Positions(ctx context.Context, id string, from, to *time.Time) ([]models.Position, error) {
	b := s.b
	if err := wait(ctx, b.latency.Get); err != nil {
		return nil, err
	}
	user := b.user(ctx)
	b.mu.RLock()
	i, ok := b.visibleDevice(user, id)
	var last *models.Position
	if ok {
		last = b.data.Devices[i].LastPosition
	}
	b.mu.RUnlock()
	if !ok {
		return nil, service.NotFound("device", id)
	}
	if last == nil {
		return []models.Position{}, nil
	}

	history := b.history(*last, historyPoints)
	out := make([]models.Position, 0, len(history))
	for _, p := range history {
		if from != nil && p.ServerTime.Before(*from) {
			continue
		}
		if to != nil && p.ServerTime.After(*to) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// history simulates the n positions leading up to last, oldest first,
// by driving backwards from it.
func (b *Backend) history(last models.Position, n int) []models.Position {
	rev := last
	rev.Course = geo.NormalizeCourse(last.Course + 180)
	trail := b.sim.Trail(rev, n)

	out := make([]models.Position, len(trail))
	end := b.now()
	for i, p := range trail {
		j := len(trail) - 1 - i
		p.Course = geo.NormalizeCourse(p.Course + 180)
		at := end.Add(-time.Duration(i) * simulator.Tick)
		p.ServerTime = at
		p.DeviceTime = at
		out[j] = p
	}
	out[len(out)-1] = last
	return out
}

func (s *devices) Create(ctx context.Context, d models.Device) (models.Device, error) {
	b := s.b
	if err := wait(ctx, b.latency.Write); err != nil {
		return models.Device{}, err
	}
	now := b.now()
	d.ID = newID("dev-")
	d.CreatedAt = now
	d.UpdatedAt = now

	b.mu.Lock()
	if d.IMEI != "" {
		for _, existing := range b.data.Devices {
			if existing.IMEI == d.IMEI {
				b.mu.Unlock()
				return models.Device{}, fmt.Errorf("device imei %s: %w", d.IMEI, service.ErrConflict)
			}
		}
	}
	b.data.Devices = append(b.data.Devices, d)
	b.mu.Unlock()

	b.log.WithFields(log.Fields{"device_id": d.ID, "imei": d.IMEI}).Info("Device created")
	return d, nil
}

func (s *devices) Update(ctx context.Context, id string, patch models.DevicePatch) (models.Device, error) {
	b := s.b
	if err := wait(ctx, b.latency.Write); err != nil {
		return models.Device{}, err
	}
	user := b.user(ctx)
	b.mu.Lock()
	defer b.mu.Unlock()
	i, ok := b.visibleDevice(user, id)
	if !ok {
		return models.Device{}, service.NotFound("device", id)
	}
	d := patch.Apply(b.data.Devices[i])
	d.UpdatedAt = b.now()
	b.data.Devices[i] = d
	return d, nil
}

func (s *devices) Delete(ctx context.Context, id string) error {
	b := s.b
	if err := wait(ctx, b.latency.Write); err != nil {
		return err
	}
	user := b.user(ctx)
	b.mu.Lock()
	defer b.mu.Unlock()
	i, ok := b.visibleDevice(user, id)
	if !ok {
		return service.NotFound("device", id)
	}
	b.data.Devices = append(b.data.Devices[:i:i], b.data.Devices[i+1:]...)
	b.log.WithField("device_id", id).Info("Device deleted")
	return nil
}

// ---- rides ----

type rides struct{ b *Backend }

func (s *rides) List(ctx context.Context, filter models.RideFilter) ([]models.Ride, error) {
	b := s.b
	if err := wait(ctx, b.latency.List); err != nil {
		return nil, err
	}
	user := b.user(ctx)
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]models.Ride, 0)
	for _, r := range b.policy.Rides(user, b.data.Rides, b.data.Devices) {
		if filter.Match(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *rides) Get(ctx context.Context, id string) (models.Ride, error) {
	b := s.b
	if err := wait(ctx, b.latency.Get); err != nil {
		return models.Ride{}, err
	}
	user := b.user(ctx)
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, r := range b.policy.Rides(user, b.data.Rides, b.data.Devices) {
		if r.ID == id {
			return r, nil
		}
	}
	return models.Ride{}, service.NotFound("ride", id)
}

// ---- geofences ----

// Geofences are shared by the whole organisation and are not scoped.
type geofences struct{ b *Backend }

func (s *geofences) List(ctx context.Context) ([]models.Geofence, error) {
	b := s.b
	if err := wait(ctx, b.latency.List); err != nil {
		return nil, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]models.Geofence{}, b.data.Geofences...), nil
}

func (b *Backend) geofenceIndex(id string) int {
	for i, g := range b.data.Geofences {
		if g.ID == id {
			return i
		}
	}
	return -1
}

func (s *geofences) Get(ctx context.Context, id string) (models.Geofence, error) {
	b := s.b
	if err := wait(ctx, b.latency.Get); err != nil {
		return models.Geofence{}, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	i := b.geofenceIndex(id)
	if i < 0 {
		return models.Geofence{}, service.NotFound("geofence", id)
	}
	return b.data.Geofences[i], nil
}

func (s *geofences) Create(ctx context.Context, g models.Geofence) (models.Geofence, error) {
	b := s.b
	if err := wait(ctx, b.latency.Write); err != nil {
		return models.Geofence{}, err
	}
	g.ID = newID("geo-")
	g.CreatedAt = b.now()

	b.mu.Lock()
	b.data.Geofences = append(b.data.Geofences, g)
	b.mu.Unlock()

	b.log.WithFields(log.Fields{"geofence_id": g.ID, "type": g.Type}).Info("Geofence created")
	return g, nil
}

func (s *geofences) Update(ctx context.Context, id string, patch models.GeofencePatch) (models.Geofence, error) {
	b := s.b
	if err := wait(ctx, b.latency.Write); err != nil {
		return models.Geofence{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	i := b.geofenceIndex(id)
	if i < 0 {
		return models.Geofence{}, service.NotFound("geofence", id)
	}
	b.data.Geofences[i] = patch.Apply(b.data.Geofences[i])
	return b.data.Geofences[i], nil
}

func (s *geofences) Delete(ctx context.Context, id string) error {
	b := s.b
	if err := wait(ctx, b.latency.Write); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	i := b.geofenceIndex(id)
	if i < 0 {
		return service.NotFound("geofence", id)
	}
	b.data.Geofences = append(b.data.Geofences[:i:i], b.data.Geofences[i+1:]...)
	return nil
}

// ---- alerts ----

type alerts struct{ b *Backend }

func (s *alerts) List(ctx context.Context, filter models.AlertFilter) ([]models.Alert, error) {
	b := s.b
	if err := wait(ctx, b.latency.List); err != nil {
		return nil, err
	}
	user := b.user(ctx)
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]models.Alert, 0)
	for _, a := range b.policy.Alerts(user, b.data.Alerts, b.data.Devices) {
		if filter.Match(a) {
			out = append(out, a)
		}
	}
	return out, nil
}

// visibleAlertIDs must be called with b.mu held.
func (b *Backend) visibleAlertIDs(user *models.User) map[string]struct{} {
	visible := b.policy.Alerts(user, b.data.Alerts, b.data.Devices)
	ids := make(map[string]struct{}, len(visible))
	for _, a := range visible {
		ids[a.ID] = struct{}{}
	}
	return ids
}

func (s *alerts) MarkRead(ctx context.Context, id string) error {
	b := s.b
	if err := wait(ctx, b.latency.Get); err != nil {
		return err
	}
	user := b.user(ctx)
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.visibleAlertIDs(user)[id]; !ok {
		return service.NotFound("alert", id)
	}
	for i := range b.data.Alerts {
		if b.data.Alerts[i].ID == id {
			b.data.Alerts[i].IsRead = true
		}
	}
	return nil
}

// MarkAllRead acknowledges every alert the caller can see.
func (s *alerts) MarkAllRead(ctx context.Context) error {
	b := s.b
	if err := wait(ctx, b.latency.Get); err != nil {
		return err
	}
	user := b.user(ctx)
	b.mu.Lock()
	defer b.mu.Unlock()
	ids := b.visibleAlertIDs(user)
	for i := range b.data.Alerts {
		if _, ok := ids[b.data.Alerts[i].ID]; ok {
			b.data.Alerts[i].IsRead = true
		}
	}
	return nil
}

// ---- groups ----

type groups struct{ b *Backend }

func (s *groups) List(ctx context.Context) ([]models.Group, error) {
	b := s.b
	if err := wait(ctx, b.latency.List); err != nil {
		return nil, err
	}
	user := b.user(ctx)
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]models.Group{}, b.policy.Groups(user, b.data.Groups)...), nil
}

func (b *Backend) groupIndex(user *models.User, id string) int {
	visible := b.policy.Groups(user, b.data.Groups)
	found := false
	for _, g := range visible {
		if g.ID == id {
			found = true
			break
		}
	}
	if !found {
		return -1
	}
	for i, g := range b.data.Groups {
		if g.ID == id {
			return i
		}
	}
	return -1
}

func (s *groups) Get(ctx context.Context, id string) (models.Group, error) {
	b := s.b
	if err := wait(ctx, b.latency.Get); err != nil {
		return models.Group{}, err
	}
	user := b.user(ctx)
	b.mu.RLock()
	defer b.mu.RUnlock()
	i := b.groupIndex(user, id)
	if i < 0 {
		return models.Group{}, service.NotFound("group", id)
	}
	return b.data.Groups[i], nil
}

func (s *groups) Create(ctx context.Context, g models.Group) (models.Group, error) {
	b := s.b
	if err := wait(ctx, b.latency.Write); err != nil {
		return models.Group{}, err
	}
	g.ID = newID("grp-")
	g.CreatedAt = b.now()

	b.mu.Lock()
	b.data.Groups = append(b.data.Groups, g)
	b.mu.Unlock()
	return g, nil
}

func (s *groups) Update(ctx context.Context, id string, patch models.GroupPatch) (models.Group, error) {
	b := s.b
	if err := wait(ctx, b.latency.Write); err != nil {
		return models.Group{}, err
	}
	user := b.user(ctx)
	b.mu.Lock()
	defer b.mu.Unlock()
	i := b.groupIndex(user, id)
	if i < 0 {
		return models.Group{}, service.NotFound("group", id)
	}
	b.data.Groups[i] = patch.Apply(b.data.Groups[i])
	return b.data.Groups[i], nil
}

func (s *groups) Delete(ctx context.Context, id string) error {
	b := s.b
	if err := wait(ctx, b.latency.Write); err != nil {
		return err
	}
	user := b.user(ctx)
	b.mu.Lock()
	defer b.mu.Unlock()
	i := b.groupIndex(user, id)
	if i < 0 {
		return service.NotFound("group", id)
	}
	b.data.Groups = append(b.data.Groups[:i:i], b.data.Groups[i+1:]...)
	return nil
}

// ---- session ----

type session struct{ b *Backend }

func (b *Backend) passwordHash() (string, error) {
	b.hashOnce.Do(func() {
		b.hash, b.hashErr = b.hasher.HashPassword(Password)
	})
	return b.hash, b.hashErr
}

// Login signs a demo account in. All accounts share Password.
func (s *session) Login(ctx context.Context, req models.LoginRequest) (models.LoginResponse, error) {
	b := s.b
	if err := wait(ctx, b.latency.Get); err != nil {
		return models.LoginResponse{}, err
	}
	hash, err := b.passwordHash()
	if err != nil {
		return models.LoginResponse{}, err
	}

	var user *models.User
	b.mu.RLock()
	for _, a := range b.data.Accounts {
		if strings.EqualFold(a.User.Email, req.Email) {
			u := a.User
			user = &u
			break
		}
	}
	b.mu.RUnlock()

	if user == nil || !b.hasher.CheckPassword(req.Password, hash) {
		b.log.WithField("email", req.Email).Warn("Demo login rejected")
		return models.LoginResponse{}, auth.ErrInvalidCredentials
	}

	token := "demo-token-" + user.ID
	if b.tokens != nil {
		if token, err = b.tokens.GenerateToken(user); err != nil {
			return models.LoginResponse{}, err
		}
	}
	b.log.WithFields(log.Fields{"user_id": user.ID, "role": user.Role}).Info("Demo login")
	return models.LoginResponse{Token: token, User: *user}, nil
}

// Me returns the caller. Without a known caller it returns the account
// for the configured default role.
func (s *session) Me(ctx context.Context) (models.User, error) {
	b := s.b
	if err := wait(ctx, b.latency.List); err != nil {
		return models.User{}, err
	}
	if u := b.user(ctx); u != nil {
		b.mu.RLock()
		defer b.mu.RUnlock()
		for _, a := range b.data.Accounts {
			if a.User.ID == u.ID {
				return a.User, nil
			}
		}
		return *u, nil
	}
	u, ok := b.AccountByRole(b.defaultRole)
	if !ok {
		return models.User{}, service.NotFound("account for role", string(b.defaultRole))
	}
	return u, nil
}

func (s *session) Logout(ctx context.Context) error {
	return ctx.Err()
}

// ---- dashboard ----

type dashboard struct{ b *Backend }

// Stats summarises the caller's fleet. Distance is the total of today's
// visible trips in km.
func (s *dashboard) Stats(ctx context.Context) (models.DashboardStats, error) {
	b := s.b
	if err := wait(ctx, b.latency.List); err != nil {
		return models.DashboardStats{}, err
	}
	user := b.user(ctx)
	now := b.now()
	y, m, d := now.Date()

	b.mu.RLock()
	defer b.mu.RUnlock()
	devs := b.policy.Devices(user, b.data.Devices)
	alertList := b.policy.Alerts(user, b.data.Alerts, b.data.Devices)
	meters := 0.0
	for _, r := range b.policy.Rides(user, b.data.Rides, b.data.Devices) {
		ry, rm, rd := r.StartTime.In(now.Location()).Date()
		if ry == y && rm == m && rd == d {
			meters += r.Distance
		}
	}
	return models.ComputeStats(devs, alertList, math.Round(geo.MetersToKm(meters)), now), nil
}
