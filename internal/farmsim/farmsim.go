// Package farmsim is a development stand-in for the Smart Farm backend. It
// serves the same routes as the real API from in-memory state, issues JWTs
// on login and produces simulated sensor readings.
package farmsim

import (
	"io"
	"log/slog"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/luki/smartfarm/internal/device"
	"github.com/luki/smartfarm/internal/reading"
)

const timeLayout = "2006-01-02 15:04:05"

// Config controls the simulator.
type Config struct {
	Secret   []byte
	TokenTTL time.Duration
	Capacity int   // readings kept in memory
	Seed     int64 // random walk seed
	Origins  []string
	Now      func() time.Time
}

func (c *Config) setDefaults() {
	if len(c.Secret) == 0 {
		c.Secret = []byte("smartfarm-dev-secret")
	}
	if c.TokenTTL <= 0 {
		c.TokenTTL = 24 * time.Hour
	}
	if c.Capacity <= 0 {
		c.Capacity = 50
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if len(c.Origins) == 0 {
		c.Origins = []string{"http://localhost:3000", "http://127.0.0.1:5000"}
	}
}

// Server holds the simulated farm.
type Server struct {
	cfg     Config
	logger  *slog.Logger
	metrics *metrics

	mu       sync.Mutex
	users    map[string][]byte // username -> bcrypt hash
	readings []reading.SensorReading
	relays   map[device.Action]bool
	rng      *rand.Rand
}

// New creates a simulator with an empty reading history.
func New(cfg Config, logger *slog.Logger) *Server {
	cfg.setDefaults()
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Server{
		cfg:     cfg,
		logger:  logger,
		metrics: newMetrics(),
		users:   make(map[string][]byte),
		relays:  make(map[device.Action]bool),
		rng:     rand.New(rand.NewSource(cfg.Seed)),
	}
}

// Seed appends n simulated readings spaced one minute apart, ending now.
func (s *Server) Seed(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	start := s.cfg.Now().Add(-time.Duration(n-1) * time.Minute)
	for i := 0; i < n; i++ {
		s.appendLocked(s.nextLocked(start.Add(time.Duration(i) * time.Minute)))
	}
}

// Readings returns a copy of the stored readings, oldest first.
func (s *Server) Readings() []reading.SensorReading {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]reading.SensorReading, len(s.readings))
	copy(out, s.readings)
	return out
}

// Simulate appends one new reading and returns it.
func (s *Server) Simulate() reading.SensorReading {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.nextLocked(s.cfg.Now())
	s.appendLocked(r)
	return r
}

// Append stores a reading as the newest one.
func (s *Server) Append(r reading.SensorReading) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendLocked(r)
}

func (s *Server) appendLocked(r reading.SensorReading) {
	s.readings = append(s.readings, r)
	if over := len(s.readings) - s.cfg.Capacity; over > 0 {
		s.readings = append(s.readings[:0], s.readings[over:]...)
	}
	for _, p := range reading.Parameters() {
		if v := r.Get(p); v.Valid {
			s.metrics.latest.WithLabelValues(string(p)).Set(v.Num)
		}
	}
}

// nextLocked walks every parameter from the latest reading. Relay state
// pushes the walk: open windows and fans cool the air and vent CO2, lights
// raise light intensity.
func (s *Server) nextLocked(at time.Time) reading.SensorReading {
	prev := reading.SensorReading{
		Temperature:    reading.Num(24),
		Humidity:       reading.Num(55),
		CO2:            reading.Num(600),
		LightIntensity: reading.Num(300),
	}
	if n := len(s.readings); n > 0 {
		prev = s.readings[n-1]
	}

	step := func(p reading.Parameter, fallback, jitter, bias, lo, hi float64) reading.Value {
		v := prev.Get(p).Or(fallback) + (s.rng.Float64()*2-1)*jitter + bias
		v = math.Max(lo, math.Min(hi, v))
		return reading.Num(math.Round(v*10) / 10)
	}

	var tempBias, co2Bias, lightBias float64
	if s.relays[device.OpenWindow] {
		tempBias -= 0.4
		co2Bias -= 40
	}
	if s.relays[device.OpenFan] {
		tempBias -= 0.3
	}
	if s.relays[device.LightOn] {
		lightBias += 60
	} else {
		lightBias -= 20
	}

	return reading.SensorReading{
		Timestamp:      at.Format(timeLayout),
		Temperature:    step(reading.Temperature, 24, 1.2, tempBias, 5, 45),
		Humidity:       step(reading.Humidity, 55, 3, 0, 10, 95),
		CO2:            step(reading.CO2, 600, 60, co2Bias+10, 350, 2000),
		LightIntensity: step(reading.LightIntensity, 300, 40, lightBias, 0, 1200),
	}
}

// setRelay records the effect of a device action.
func (s *Server) setRelay(a device.Action) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch a {
	case device.OpenWindow, device.LightOn, device.OpenFan:
		s.relays[a] = true
	case device.CloseWindow:
		s.relays[device.OpenWindow] = false
	case device.LightOff:
		s.relays[device.LightOn] = false
	case device.CloseFan:
		s.relays[device.OpenFan] = false
	}
}
