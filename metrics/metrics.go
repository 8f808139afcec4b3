// Package metrics publishes engine timings and counters to DogStatsD.
package metrics

import (
	"fmt"
	"time"

	"github.com/DataDog/datadog-go/v5/statsd"

	"github.com/RyanBlaney/sonido-tonal/logging"
)

// Metric names
const (
	TickDuration  = "engine.tick.duration"
	TickSkipped   = "engine.tick.skipped"
	NotesRecorded = "engine.notes.recorded"
	KeyDetected   = "engine.key.detected"
	InputLevel    = "engine.input.level"
	Subscribers   = "engine.subscribers"
	Acquisition   = "engine.acquisition.failed"
)

// Recorder receives engine measurements. Implementations must not block.
type Recorder interface {
	Timing(name string, value time.Duration, tags ...string)
	Count(name string, value int64, tags ...string)
	Gauge(name string, value float64, tags ...string)
	Close() error
}

// Noop discards all measurements
type Noop struct{}

func (Noop) Timing(string, time.Duration, ...string) {}
func (Noop) Count(string, int64, ...string)          {}
func (Noop) Gauge(string, float64, ...string)        {}
func (Noop) Close() error                            { return nil }

// Config configures the StatsD recorder
type Config struct {
	Addr      string   `mapstructure:"statsd_addr" json:"statsd_addr"`
	Namespace string   `mapstructure:"namespace" json:"namespace"`
	Tags      []string `mapstructure:"tags" json:"tags"`
}

// StatsD forwards measurements to a DogStatsD agent
type StatsD struct {
	client statsd.ClientInterface
	logger logging.Logger
}

// New returns a StatsD recorder, or Noop when no address is configured
func New(cfg Config, logger logging.Logger) (Recorder, error) {
	if cfg.Addr == "" {
		return Noop{}, nil
	}
	client, err := statsd.New(cfg.Addr,
		statsd.WithNamespace(cfg.Namespace),
		statsd.WithTags(cfg.Tags),
	)
	if err != nil {
		return nil, fmt.Errorf("metrics: statsd client for %s: %w", cfg.Addr, err)
	}
	return NewWithClient(client, logger), nil
}

// NewWithClient wraps an existing client
func NewWithClient(client statsd.ClientInterface, logger logging.Logger) *StatsD {
	if logger == nil {
		logger = &logging.NoOpLogger{}
	}
	return &StatsD{
		client: client,
		logger: logger.WithFields(logging.Fields{"component": "metrics"}),
	}
}

func (s *StatsD) Timing(name string, value time.Duration, tags ...string) {
	s.report(name, s.client.Timing(name, value, tags, 1))
}

func (s *StatsD) Count(name string, value int64, tags ...string) {
	s.report(name, s.client.Count(name, value, tags, 1))
}

func (s *StatsD) Gauge(name string, value float64, tags ...string) {
	s.report(name, s.client.Gauge(name, value, tags, 1))
}

func (s *StatsD) Close() error {
	return s.client.Close()
}

func (s *StatsD) report(name string, err error) {
	if err != nil {
		s.logger.Debug("metric dropped", logging.Fields{"metric": name, "error": err.Error()})
	}
}
