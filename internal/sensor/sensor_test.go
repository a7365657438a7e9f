package sensor

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIdentifier(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected Identifier
		wantErr  bool
	}{
		{name: "upper case address", input: "A4:C1:38:0A:1B:2C", expected: "A4:C1:38:0A:1B:2C"},
		{name: "lower case address is normalized", input: "a4:c1:38:0a:1b:2c", expected: "A4:C1:38:0A:1B:2C"},
		{name: "surrounding spaces are trimmed", input: "  a4:c1:38:0a:1b:2c ", expected: "A4:C1:38:0A:1B:2C"},
		{name: "dash separated address", input: "a4-c1-38-0a-1b-2c", expected: "A4:C1:38:0A:1B:2C"},
		{name: "empty address", input: "", wantErr: true},
		{name: "garbage", input: "sensor-1", wantErr: true},
		{name: "EUI-64 is rejected", input: "02:00:5e:10:00:00:00:01", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := ParseIdentifier(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, id)
		})
	}
}

func TestUnavailable(t *testing.T) {
	r := Unavailable()

	assert.True(t, math.IsNaN(r.Temperature))
	assert.Equal(t, -1, r.Humidity)
	assert.Equal(t, -1, r.Battery)
	assert.True(t, r.IsUnavailable())
	assert.Equal(t, "unavailable", r.String())

	assert.False(t, Reading{Temperature: 21.5, Humidity: 40, Battery: 90}.IsUnavailable())
}

func TestLinkError_Is(t *testing.T) {
	wrapped := fmt.Errorf("poll A4:C1:38:0A:1B:2C: %w", &LinkError{State: LinkDisconnected, Msg: "peer gone"})

	assert.ErrorIs(t, wrapped, ErrLinkDisconnected)
	assert.NotErrorIs(t, wrapped, ErrLinkTimeout)
	var lerr *LinkError
	assert.True(t, errors.As(wrapped, &lerr))
	assert.Equal(t, LinkDisconnected, lerr.State)
	assert.Equal(t, "link_disconnected: peer gone", errors.Unwrap(wrapped).Error())
	assert.Equal(t, "link_timeout", ErrLinkTimeout.Error())
}

func TestIsSensorScoped(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{name: "disconnected", err: ErrLinkDisconnected, expected: true},
		{name: "wrapped protocol error", err: fmt.Errorf("decode: %w", ErrProtocol), expected: true},
		{name: "timeout", err: ErrLinkTimeout, expected: false},
		{name: "generic link error", err: ErrLinkGeneric, expected: false},
		{name: "unknown sensor", err: ErrUnknownSensor, expected: false},
		{name: "foreign error", err: errors.New("boom"), expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsSensorScoped(tt.err))
		})
	}
}

func TestNormalizeAddress(t *testing.T) {
	for _, in := range []string{"b8:27:eb:b0:36:8f", "B8-27-EB-B0-36-8F", "b827.ebb0.368f", " b8-27-eb-b0-36-8f "} {
		got, err := NormalizeAddress(in)
		require.NoError(t, err, in)
		assert.Equal(t, "B8:27:EB:B0:36:8F", got, in)
	}

	_, err := NormalizeAddress("hci0")
	assert.Error(t, err)
	_, err = NormalizeAddress("00:00:00:00:fe:80:00:00:00:00:00:00:02:00:5e:10:00:00:00:01")
	assert.Error(t, err, "only 48-bit addresses MUST be accepted")
}
