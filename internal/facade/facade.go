package facade

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/srg/mijia/internal/sensor"
)

// Host serves the read commands of a coordinator, in process or remotely.
// Each method fails with sensor.ErrCoordinatorUnavailable when the coordinator is not running.
type Host interface {
	ReadTemperature(ctx context.Context, id sensor.Identifier) (float64, error)
	ReadHumidity(ctx context.Context, id sensor.Identifier) (int, error)
	ReadBattery(ctx context.Context, id sensor.Identifier) (int, error)
}

// Sensor exposes the attributes of one sensor. Every query goes to the host;
// the last observed values are kept only for diagnostics.
type Sensor struct {
	id     sensor.Identifier
	host   Host
	logger *logrus.Logger

	mu          sync.Mutex
	temperature float64
	humidity    int
	battery     int
}

// New creates the accessor for one sensor.
func New(id sensor.Identifier, host Host, logger *logrus.Logger) *Sensor {
	if logger == nil {
		logger = logrus.New()
	}
	return &Sensor{
		id:          id,
		host:        host,
		logger:      logger,
		temperature: math.NaN(),
		humidity:    -1,
		battery:     -1,
	}
}

// ID returns the sensor identifier.
func (s *Sensor) ID() sensor.Identifier {
	return s.id
}

// Temperature returns the current temperature in °C. NaN means no valid data.
func (s *Sensor) Temperature(ctx context.Context) (float64, error) {
	v, err := s.host.ReadTemperature(ctx, s.id)
	if err != nil {
		return 0, s.failed("temperature", err)
	}
	s.mu.Lock()
	s.temperature = v
	s.mu.Unlock()
	s.observed("temperature", v)
	return v, nil
}

// Humidity returns the current relative humidity in %. -1 means no valid data.
func (s *Sensor) Humidity(ctx context.Context) (int, error) {
	v, err := s.host.ReadHumidity(ctx, s.id)
	if err != nil {
		return 0, s.failed("humidity", err)
	}
	s.mu.Lock()
	s.humidity = v
	s.mu.Unlock()
	s.observed("humidity", v)
	return v, nil
}

// Battery returns the current battery level in %. -1 means no valid data.
func (s *Sensor) Battery(ctx context.Context) (int, error) {
	v, err := s.host.ReadBattery(ctx, s.id)
	if err != nil {
		return 0, s.failed("battery", err)
	}
	s.mu.Lock()
	s.battery = v
	s.mu.Unlock()
	s.observed("battery", v)
	return v, nil
}

// LastObserved returns the values returned by the most recent successful queries.
func (s *Sensor) LastObserved() sensor.Reading {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sensor.Reading{Temperature: s.temperature, Humidity: s.humidity, Battery: s.battery}
}

func (s *Sensor) observed(attr string, v any) {
	s.logger.WithFields(logrus.Fields{
		"sensor": s.id,
		attr:     v,
	}).Debugf("Obtained %s", attr)
}

func (s *Sensor) failed(attr string, err error) error {
	s.logger.WithFields(logrus.Fields{
		"sensor": s.id,
		"error":  err,
	}).Errorf("Unable to receive %s", attr)
	return fmt.Errorf("sensor %s %s: %w", s.id, attr, err)
}
