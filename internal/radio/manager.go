package radio

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mcuadros/go-defaults"
	"github.com/sirupsen/logrus"
	"github.com/srg/mijia/internal/sensor"
)

var (
	// ErrBusy is returned when Open is called while another handle is outstanding.
	ErrBusy = errors.New("radio busy: another connection is still open")

	// ErrHandleClosed is returned when closing a handle that is not the open one.
	ErrHandleClosed = errors.New("connection handle is not open")
)

// Options configures the connection manager
type Options struct {
	ConnectTimeout time.Duration `default:"30s"`
}

// Handle is an open connection to one sensor.
type Handle struct {
	Sensor sensor.Identifier
	Link   Link
}

// Manager owns one BLE adapter and opens at most one sensor connection at a time.
type Manager struct {
	controller Controller
	opts       Options
	logger     *logrus.Logger

	mu     sync.Mutex
	dialer Dialer
	active *Handle
}

// NewManager binds a manager to the adapter with the given address.
// It fails with sensor.ErrUnknownController when the address has no interface mapping.
// The adapter itself is opened lazily on the first Open.
func NewManager(address string, interfaces map[string]int, opts *Options, logger *logrus.Logger) (*Manager, error) {
	if logger == nil {
		logger = logrus.New()
	}

	controller, err := ResolveController(address, interfaces)
	if err != nil {
		return nil, err
	}

	var o Options
	if opts != nil {
		o = *opts
	}
	defaults.SetDefaults(&o)

	return &Manager{
		controller: controller,
		opts:       o,
		logger:     logger,
	}, nil
}

// Controller returns the adapter this manager drives.
func (m *Manager) Controller() Controller {
	return m.controller
}

// Open connects to the sensor. The returned handle must be released with Close.
func (m *Manager) Open(ctx context.Context, id sensor.Identifier) (*Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active != nil {
		return nil, fmt.Errorf("%w (%s)", ErrBusy, m.active.Sensor)
	}

	dialer, err := m.radioLocked()
	if err != nil {
		return nil, err
	}

	m.logger.WithFields(logrus.Fields{
		"sensor":     id,
		"controller": m.controller.Address,
		"timeout":    m.opts.ConnectTimeout,
	}).Debug("Connecting to sensor...")

	dialCtx, cancel := context.WithTimeout(ctx, m.opts.ConnectTimeout)
	defer cancel()

	link, err := dialer.Dial(dialCtx, id.String())
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("failed to connect to sensor %s: %w", id, NormalizeError(err))
	}

	m.active = &Handle{Sensor: id, Link: link}
	m.logger.WithField("sensor", id).Debug("Sensor connected")
	return m.active, nil
}

// Close releases the handle and the radio.
func (m *Manager) Close(h *Handle) error {
	m.mu.Lock()
	if h == nil || m.active != h {
		m.mu.Unlock()
		return ErrHandleClosed
	}
	m.active = nil
	m.mu.Unlock()

	if err := h.Link.CancelConnection(); err != nil {
		m.logger.WithFields(logrus.Fields{
			"sensor": h.Sensor,
			"error":  err,
		}).Warn("Failed to cancel sensor connection")
		return fmt.Errorf("failed to disconnect sensor %s: %w", h.Sensor, NormalizeError(err))
	}

	m.logger.WithField("sensor", h.Sensor).Debug("Sensor disconnected")
	return nil
}

// WithConnection opens a connection, runs fn and always closes the connection afterwards.
// The result is fn's error; a failed close is logged by Close and leaves the radio free.
func (m *Manager) WithConnection(ctx context.Context, id sensor.Identifier, fn func(*Handle) error) error {
	h, err := m.Open(ctx, id)
	if err != nil {
		return err
	}
	defer func() { _ = m.Close(h) }()
	return fn(h)
}

// Shutdown stops the adapter. Any open handle is released first.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	active := m.active
	dialer := m.dialer
	m.active = nil
	m.dialer = nil
	m.mu.Unlock()

	if active != nil {
		_ = active.Link.CancelConnection()
	}
	if dialer == nil {
		return nil
	}

	m.logger.WithField("controller", m.controller.String()).Info("Stopping BLE adapter")
	return dialer.Stop()
}

// radioLocked returns the adapter, opening it on first use. Caller holds m.mu.
func (m *Manager) radioLocked() (Dialer, error) {
	if m.dialer != nil {
		return m.dialer, nil
	}

	dialer, err := DeviceFactory(m.controller)
	if err != nil {
		m.logger.WithFields(logrus.Fields{
			"controller": m.controller.String(),
			"error":      err,
		}).Error("Failed to open BLE adapter")
		return nil, &sensor.LinkError{State: sensor.LinkGeneric, Msg: fmt.Sprintf("controller %s: %v", m.controller, err)}
	}

	m.logger.WithField("controller", m.controller.String()).Info("BLE adapter opened")
	m.dialer = dialer
	return dialer, nil
}
