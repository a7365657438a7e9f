package main

import (
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/srg/mijia/internal/coordinator"
	"github.com/srg/mijia/internal/rpc"
	"github.com/srg/mijia/internal/sensor"
	"github.com/srg/mijia/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	color.NoColor = true
}

func TestFormatValues(t *testing.T) {
	assert.Equal(t, "21.37°C", formatTemperature(21.37))
	assert.Equal(t, "-4.10°C", formatTemperature(-4.1))
	assert.Equal(t, unavailableText, formatTemperature(math.NaN()))
	assert.Equal(t, "0%", formatPercent(0))
	assert.Equal(t, "100%", formatPercent(100))
	assert.Equal(t, unavailableText, formatPercent(-1))
	assert.Equal(t, "running", formatState(coordinator.Running))
	assert.Equal(t, "faulted", formatState(coordinator.Faulted))
}

func TestFormatUpdated(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	then := now.Add(-2 * time.Hour)

	assert.Equal(t, "never", formatUpdated(nil, now))
	assert.Equal(t, "2 hours ago", formatUpdated(&then, now))
}

func TestParseAttributes(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
		wantErr  bool
	}{
		{
			name:     "all attributes",
			input:    "temperature,humidity,battery",
			expected: []string{"temperature", "humidity", "battery"},
		},
		{
			name:     "spaces, case and duplicates",
			input:    " Battery ,battery,HUMIDITY",
			expected: []string{"battery", "humidity"},
		},
		{
			name:    "unknown attribute",
			input:   "temperature,pressure",
			wantErr: true,
		},
		{
			name:    "empty list",
			input:   " , ",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attrs, err := parseAttributes(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, attrs)
		})
	}
}

func TestFormatUserError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		contains string
	}{
		{
			name:     "coordinator unavailable",
			err:      fmt.Errorf("sensor X temperature: %w", sensor.ErrCoordinatorUnavailable),
			contains: "mijia status",
		},
		{
			name:     "unknown sensor",
			err:      sensor.ErrUnknownSensor,
			contains: "not configured",
		},
		{
			name:     "unknown controller",
			err:      fmt.Errorf("%w: no interface mapping", sensor.ErrUnknownController),
			contains: "controller.interfaces",
		},
		{
			name:     "invalid sensor",
			err:      rpc.ErrInvalidSensor,
			contains: "A4:C1:38:12:34:56",
		},
		{
			name:     "invalid configuration",
			err:      fmt.Errorf("%w: controller.address is required", config.ErrInvalid),
			contains: "controller.address is required",
		},
		{
			name:     "anything else",
			err:      errors.New("boom"),
			contains: "boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := FormatUserError(tt.err)
			assert.Contains(t, msg, tt.err.Error())
			assert.Contains(t, msg, tt.contains)
		})
	}
}

func TestFormatVersion(t *testing.T) {
	assert.Equal(t, "v1.2.3", formatVersion("1.2.3"))
	assert.Equal(t, "dev", formatVersion("dev"))
	assert.Equal(t, "", formatVersion(""))
}
