// Package simulator fabricates a moving GPS feed when no real device
// backend is available.
package simulator

import (
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ukydev/fleet-live/internal/geo"
	"github.com/ukydev/fleet-live/internal/models"
)

const (
	// Tick is the real-time step every simulated move covers.
	Tick = 5 * time.Second
	// StationaryKph is the speed at or below which a device does not drift.
	StationaryKph = 5.0

	maxCourseJitter   = 5.0 // degrees either way
	maxSpeedJitterKph = 2.5 // km/h either way
)

// Simulator advances positions. It is safe for concurrent use.
type Simulator struct {
	mu    sync.Mutex
	rng   *rand.Rand
	now   func() time.Time
	newID func() string
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithRand sets the random source, mostly for deterministic tests.
func WithRand(r *rand.Rand) Option {
	return func(s *Simulator) { s.rng = r }
}

// WithClock sets the time source used to stamp new positions.
func WithClock(now func() time.Time) Option {
	return func(s *Simulator) { s.now = now }
}

// WithIDs sets the id generator for new positions.
func WithIDs(newID func() string) Option {
	return func(s *Simulator) { s.newID = newID }
}

// New creates a Simulator seeded from the wall clock.
func New(opts ...Option) *Simulator {
	s := &Simulator{
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// uniform returns a value in [-max, max).
func (s *Simulator) uniform(max float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (s.rng.Float64()*2 - 1) * max
}

// Next returns the position one Tick after p. Positions at or below
// StationaryKph are returned unchanged.
func (s *Simulator) Next(p models.Position) models.Position {
	speedKph := p.Speed.Kph()
	if speedKph <= StationaryKph {
		return p
	}

	km := (speedKph / 3600) * Tick.Seconds()
	moved := geo.Project(p.Point(), p.Course, km)

	speed := p.Speed + geo.KnotsFromKph(s.uniform(maxSpeedJitterKph))
	if speed < 0 {
		speed = 0
	}

	now := s.now()
	next := p
	next.Attributes = p.Attributes.Clone()
	next.ID = s.newID()
	next.Latitude = moved.Lat
	next.Longitude = moved.Lng
	next.Course = geo.NormalizeCourse(p.Course + s.uniform(maxCourseJitter))
	next.Speed = speed
	next.ServerTime = now
	next.DeviceTime = now
	return next
}

// Trail returns n successive positions starting at p, oldest first, with
// timestamps spaced one Tick apart and ending now.
func (s *Simulator) Trail(p models.Position, n int) []models.Position {
	if n <= 0 {
		return nil
	}
	out := make([]models.Position, 0, n)
	cur := p
	for i := 0; i < n; i++ {
		out = append(out, cur)
		cur = s.Next(cur)
	}
	end := s.now()
	for i := range out {
		at := end.Add(-time.Duration(n-1-i) * Tick)
		out[i].ServerTime = at
		out[i].DeviceTime = at
	}
	return out
}
