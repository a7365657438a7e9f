package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/mcuadros/go-defaults"
	"github.com/sirupsen/logrus"
	"github.com/srg/mijia/internal/cache"
	"github.com/srg/mijia/internal/groutine"
	"github.com/srg/mijia/internal/radio"
	"github.com/srg/mijia/internal/sensor"
)

// ErrAlreadyStarted is returned by a second call to Start.
var ErrAlreadyStarted = errors.New("coordinator already started")

// Connector gives scoped access to a sensor connection on the shared radio.
// The connection is released before WithConnection returns.
type Connector interface {
	WithConnection(ctx context.Context, id sensor.Identifier, fn func(*radio.Handle) error) error
}

// Reader performs the measurement exchange on an open connection.
type Reader interface {
	Read(ctx context.Context, h *radio.Handle) (sensor.Reading, error)
}

// Registry resolves the sensors attached to a controller.
// A registry that cannot be resolved returns an empty list.
type Registry interface {
	Lookup(ctx context.Context, controller string) []sensor.Identifier
}

// Options configures the poll loop
type Options struct {
	// PollInterval is slept after every sensor and again after every full pass.
	PollInterval time.Duration `default:"120s"`
}

// Fault describes why a coordinator stopped.
type Fault struct {
	Sensor sensor.Identifier // sensor being polled when the fault occurred
	Err    error
	At     time.Time
}

// Status is a point-in-time view of the coordinator.
type Status struct {
	Controller string
	State      State
	Passes     uint64
	Fault      *Fault
	Sensors    []cache.Entry // configured order
}

// Coordinator polls every sensor of one controller, one at a time, forever.
//
// It is the only writer of the readings cache. Read commands are served from
// the cache and are refused with sensor.ErrCoordinatorUnavailable whenever
// the coordinator is not Running, or once polling was cancelled.
type Coordinator struct {
	controller string
	registry   Registry
	conns      Connector
	reader     Reader
	cache      *cache.Cache
	opts       Options
	logger     *logrus.Logger

	state   stateCell
	started atomic.Bool
	halted  atomic.Bool
	sensors atomic.Pointer[[]sensor.Identifier]
	passes  atomic.Uint64
	fault   atomic.Pointer[Fault]
	stopped chan struct{}

	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a coordinator in the Initializing state.
func New(controller string, registry Registry, conns Connector, reader Reader, readings *cache.Cache, opts *Options, logger *logrus.Logger) *Coordinator {
	if logger == nil {
		logger = logrus.New()
	}
	var o Options
	if opts != nil {
		o = *opts
	}
	defaults.SetDefaults(&o)

	return &Coordinator{
		controller: controller,
		registry:   registry,
		conns:      conns,
		reader:     reader,
		cache:      readings,
		opts:       o,
		logger:     logger,
		stopped:    make(chan struct{}),
		sleep:      sleepContext,
	}
}

// Start loads the sensor list, initializes the cache, enters Running and launches the poll loop.
// The loop runs until the coordinator faults or ctx is cancelled.
func (c *Coordinator) Start(ctx context.Context) error {
	if !c.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	ids := c.registry.Lookup(ctx, c.controller)
	if err := c.cache.Initialize(ids); err != nil {
		c.fault.Store(&Fault{Err: err, At: time.Now()})
		c.state.transition(Initializing, Faulted)
		close(c.stopped)
		return fmt.Errorf("failed to initialize readings cache: %w", err)
	}
	c.sensors.Store(&ids)

	c.state.transition(Initializing, Running)
	c.logger.WithFields(logrus.Fields{
		"controller": c.controller,
		"sensors":    len(ids),
		"interval":   c.opts.PollInterval,
	}).Info("Coordinator running")

	groutine.Go(ctx, "poll-coordinator", c.run)
	return nil
}

// State returns the current lifecycle state.
func (c *Coordinator) State() State {
	return c.state.Load()
}

// Done is closed when the poll loop has exited.
func (c *Coordinator) Done() <-chan struct{} {
	return c.stopped
}

// Fault returns the cause of a fault, or nil.
func (c *Coordinator) Fault() *Fault {
	return c.fault.Load()
}

// Sensors returns the configured sensors in poll order.
func (c *Coordinator) Sensors() []sensor.Identifier {
	p := c.sensors.Load()
	if p == nil {
		return nil
	}
	return append([]sensor.Identifier(nil), (*p)...)
}

// Status returns a snapshot of the coordinator and its cache.
func (c *Coordinator) Status() Status {
	st := Status{
		Controller: c.controller,
		State:      c.State(),
		Passes:     c.passes.Load(),
		Fault:      c.Fault(),
	}
	for _, id := range c.Sensors() {
		if e, err := c.cache.Entry(id); err == nil {
			st.Sensors = append(st.Sensors, e)
		}
	}
	return st
}

// Reading returns the cached reading of a sensor.
func (c *Coordinator) Reading(_ context.Context, id sensor.Identifier) (sensor.Reading, error) {
	if s := c.State(); s != Running {
		return sensor.Reading{}, fmt.Errorf("%w: coordinator for %s is %s", sensor.ErrCoordinatorUnavailable, c.controller, s)
	}
	if c.halted.Load() {
		return sensor.Reading{}, fmt.Errorf("%w: coordinator for %s has stopped polling", sensor.ErrCoordinatorUnavailable, c.controller)
	}
	return c.cache.Get(id)
}

// ReadTemperature returns the cached temperature of a sensor in °C.
func (c *Coordinator) ReadTemperature(ctx context.Context, id sensor.Identifier) (float64, error) {
	r, err := c.Reading(ctx, id)
	if err != nil {
		return 0, err
	}
	return r.Temperature, nil
}

// ReadHumidity returns the cached relative humidity of a sensor in %.
func (c *Coordinator) ReadHumidity(ctx context.Context, id sensor.Identifier) (int, error) {
	r, err := c.Reading(ctx, id)
	if err != nil {
		return 0, err
	}
	return r.Humidity, nil
}

// ReadBattery returns the cached battery level of a sensor in %.
func (c *Coordinator) ReadBattery(ctx context.Context, id sensor.Identifier) (int, error) {
	r, err := c.Reading(ctx, id)
	if err != nil {
		return 0, err
	}
	return r.Battery, nil
}

func (c *Coordinator) run(ctx context.Context) {
	defer func() {
		// cancelled: the cache is no longer refreshed
		if ctx.Err() != nil {
			c.halted.Store(true)
		}
		close(c.stopped)
	}()

	sensors := c.Sensors()
	for c.State() == Running {
		pass := c.passes.Load() + 1
		c.logger.WithFields(logrus.Fields{
			"pass":    pass,
			"sensors": len(sensors),
		}).Info("Starting poll pass")

		for _, id := range sensors {
			if !c.pollSensor(ctx, id) {
				return
			}
			if c.sleep(ctx, c.opts.PollInterval) != nil {
				c.logger.Info("Coordinator stopped")
				return
			}
		}

		c.passes.Add(1)
		if c.sleep(ctx, c.opts.PollInterval) != nil {
			c.logger.Info("Coordinator stopped")
			return
		}
	}
}

// pollSensor polls one sensor and stores the outcome. It returns false when the loop must stop.
func (c *Coordinator) pollSensor(ctx context.Context, id sensor.Identifier) bool {
	log := c.logger.WithField("sensor", id)
	log.Info("Receiving data from sensor")

	reading, err := c.poll(ctx, id)
	switch {
	case err == nil:
		if perr := c.cache.Put(id, reading); perr != nil {
			c.faultWith(id, perr)
			return false
		}
		log.WithFields(logrus.Fields{
			"temperature": reading.Temperature,
			"humidity":    reading.Humidity,
			"battery":     reading.Battery,
		}).Info("Sensor provided data")
		return true

	case ctx.Err() != nil:
		log.Info("Coordinator stopped during poll")
		return false

	case sensor.IsSensorScoped(err):
		log.WithError(err).Error("Sensor poll failed")
		if perr := c.cache.Put(id, sensor.Unavailable()); perr != nil {
			c.faultWith(id, perr)
			return false
		}
		return true

	default:
		c.faultWith(id, err)
		return false
	}
}

// poll reads one sensor over a connection that is released afterwards.
func (c *Coordinator) poll(ctx context.Context, id sensor.Identifier) (sensor.Reading, error) {
	var reading sensor.Reading
	err := c.conns.WithConnection(ctx, id, func(h *radio.Handle) error {
		r, err := c.reader.Read(ctx, h)
		if err != nil {
			return err
		}
		reading = r
		return nil
	})
	return reading, err
}

func (c *Coordinator) faultWith(id sensor.Identifier, err error) {
	c.fault.Store(&Fault{Sensor: id, Err: err, At: time.Now()})
	if !c.state.transition(Running, Faulted) {
		return
	}
	c.logger.WithFields(logrus.Fields{
		"controller": c.controller,
		"sensor":     id,
		"error":      err,
	}).Error("Connection to the controller failed; polling stopped")
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
