//go:build test

package testutils

import (
	"math"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/srg/mijia/internal/sensor"
)

// Sensor addresses shared by the package test suites
const (
	TestControllerAddress = "B8:27:EB:B0:36:8F"

	TestSensorA sensor.Identifier = "A4:C1:38:00:00:0A"
	TestSensorB sensor.Identifier = "A4:C1:38:00:00:0B"
	TestSensorC sensor.Identifier = "A4:C1:38:00:00:0C"
)

type TestHelper struct {
	T      *testing.T
	Logger *logrus.Logger
}

// NewTestHelper creates a test helper with a debug logger.
func NewTestHelper(t *testing.T) *TestHelper {
	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel) // enable debug logs to track execution flow
	return &TestHelper{
		T:      t,
		Logger: logger,
	}
}

// LYWSD03MMCPayload encodes a sensor data payload: temperature in °C, humidity in %, voltage in mV.
func LYWSD03MMCPayload(temperature float64, humidity uint8, voltageMV uint16) []byte {
	raw := int16(math.Round(temperature * 100))
	return []byte{
		byte(uint16(raw)), byte(uint16(raw) >> 8),
		humidity,
		byte(voltageMV), byte(voltageMV >> 8),
	}
}
