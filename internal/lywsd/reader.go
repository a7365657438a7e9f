// Package lywsd reads the Xiaomi Mijia 2 (LYWSD03MMC) temperature and humidity sensor over GATT.
package lywsd

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/go-ble/ble"
	"github.com/mcuadros/go-defaults"
	"github.com/sirupsen/logrus"
	"github.com/srg/mijia/internal/radio"
	"github.com/srg/mijia/internal/sensor"
)

var (
	// ServiceUUID is the vendor service carrying the measurement characteristic
	ServiceUUID = ble.MustParse("ebe0ccb0-7a0a-4b0c-8a1a-6ff2997da3a6")

	// DataCharUUID is the temperature/humidity/voltage characteristic
	DataCharUUID = ble.MustParse("ebe0ccc1-7a0a-4b0c-8a1a-6ff2997da3a6")
)

const (
	// payloadLength is int16 temperature, uint8 humidity, uint16 voltage
	payloadLength = 5

	// emptyVoltage is the cell voltage reported as 0% battery
	emptyVoltage = 2.1
)

// Options configures the reader
type Options struct {
	ReadTimeout time.Duration `default:"10s"`
}

// Reader performs the measurement exchange on an open connection.
// It never retries; a failed read is reported to the caller as is.
type Reader struct {
	opts   Options
	logger *logrus.Logger
}

// NewReader creates a reader. Zero option values are replaced by defaults.
func NewReader(opts *Options, logger *logrus.Logger) *Reader {
	if logger == nil {
		logger = logrus.New()
	}
	var o Options
	if opts != nil {
		o = *opts
	}
	defaults.SetDefaults(&o)
	return &Reader{opts: o, logger: logger}
}

// Read fetches temperature, humidity and battery as one Reading.
// Failures are ErrLinkDisconnected, ErrLinkTimeout, ErrLinkGeneric or ErrProtocol.
func (r *Reader) Read(ctx context.Context, h *radio.Handle) (sensor.Reading, error) {
	if h == nil || h.Link == nil {
		return sensor.Reading{}, fmt.Errorf("%w: no open connection", sensor.ErrLinkDisconnected)
	}

	type readResult struct {
		reading sensor.Reading
		err     error
	}
	resultCh := make(chan readResult, 1)

	// go-ble reads are not cancellable, so bound the exchange from the outside
	go func() {
		reading, err := r.exchange(h)
		resultCh <- readResult{reading: reading, err: err}
	}()

	timer := time.NewTimer(r.opts.ReadTimeout)
	defer timer.Stop()

	select {
	case res := <-resultCh:
		return res.reading, res.err
	case <-timer.C:
		return sensor.Reading{}, fmt.Errorf("%w: reading sensor %s took longer than %v", sensor.ErrLinkTimeout, h.Sensor, r.opts.ReadTimeout)
	case <-ctx.Done():
		return sensor.Reading{}, ctx.Err()
	}
}

func (r *Reader) exchange(h *radio.Handle) (sensor.Reading, error) {
	char, err := r.findDataCharacteristic(h)
	if err != nil {
		return sensor.Reading{}, err
	}

	data, err := h.Link.ReadCharacteristic(char)
	if err != nil {
		return sensor.Reading{}, fmt.Errorf("failed to read characteristic %s: %w", DataCharUUID, radio.NormalizeError(err))
	}

	reading, err := Decode(data)
	if err != nil {
		return sensor.Reading{}, err
	}

	r.logger.WithFields(logrus.Fields{
		"sensor":  h.Sensor,
		"payload": fmt.Sprintf("% x", data),
	}).Debug("Decoded sensor payload")
	return reading, nil
}

func (r *Reader) findDataCharacteristic(h *radio.Handle) (*ble.Characteristic, error) {
	services, err := h.Link.DiscoverServices([]ble.UUID{ServiceUUID})
	if err != nil {
		return nil, fmt.Errorf("failed to discover services: %w", radio.NormalizeError(err))
	}

	for _, svc := range services {
		if !svc.UUID.Equal(ServiceUUID) {
			continue
		}
		chars, err := h.Link.DiscoverCharacteristics([]ble.UUID{DataCharUUID}, svc)
		if err != nil {
			return nil, fmt.Errorf("failed to discover characteristics: %w", radio.NormalizeError(err))
		}
		for _, c := range chars {
			if c.UUID.Equal(DataCharUUID) {
				return c, nil
			}
		}
		return nil, fmt.Errorf("%w: characteristic %s not found in service %s", sensor.ErrProtocol, DataCharUUID, ServiceUUID)
	}
	return nil, fmt.Errorf("%w: service %s not found", sensor.ErrProtocol, ServiceUUID)
}

// Decode parses the measurement payload.
// Format (5 bytes):
//   - Bytes 0-1: temperature in 0.01°C (little endian signed int16)
//   - Byte 2: humidity in % (unsigned int8)
//   - Bytes 3-4: cell voltage in mV (little endian unsigned int16)
func Decode(data []byte) (sensor.Reading, error) {
	if len(data) < payloadLength {
		return sensor.Reading{}, fmt.Errorf("%w: payload has %d bytes, want %d", sensor.ErrProtocol, len(data), payloadLength)
	}

	temperature := float64(int16(binary.LittleEndian.Uint16(data[0:2]))) / 100
	humidity := int(data[2])
	voltage := float64(binary.LittleEndian.Uint16(data[3:5])) / 1000

	if humidity > 100 {
		return sensor.Reading{}, fmt.Errorf("%w: humidity %d%% out of range", sensor.ErrProtocol, humidity)
	}

	return sensor.Reading{
		Temperature: temperature,
		Humidity:    humidity,
		Battery:     BatteryPercent(voltage),
	}, nil
}

// BatteryPercent converts the cell voltage into a 0-100 charge estimate.
func BatteryPercent(voltage float64) int {
	pct := int(math.Round((voltage - emptyVoltage) * 100))
	switch {
	case pct > 100:
		return 100
	case pct < 0:
		return 0
	default:
		return pct
	}
}
