package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/srg/mijia/internal/sensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	sensorA sensor.Identifier = "A4:C1:38:00:00:0A"
	sensorB sensor.Identifier = "A4:C1:38:00:00:0B"
	sensorC sensor.Identifier = "A4:C1:38:00:00:0C"
)

func TestCache_InitializeCreatesSentinelEntries(t *testing.T) {
	tests := []struct {
		name string
		ids  []sensor.Identifier
	}{
		{name: "empty fleet", ids: nil},
		{name: "single sensor", ids: []sensor.Identifier{sensorA}},
		{name: "three sensors", ids: []sensor.Identifier{sensorC, sensorA, sensorB}},
		{name: "duplicates collapse into one entry", ids: []sensor.Identifier{sensorA, sensorA, sensorB}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New()
			require.NoError(t, c.Initialize(tt.ids))

			unique := map[sensor.Identifier]struct{}{}
			for _, id := range tt.ids {
				unique[id] = struct{}{}
			}

			assert.Equal(t, len(unique), c.Len())
			for id := range unique {
				r, err := c.Get(id)
				require.NoError(t, err)
				assert.True(t, r.IsUnavailable(), "entry %s MUST hold the sentinel", id)
			}
		})
	}
}

func TestCache_InitializeTwiceFails(t *testing.T) {
	c := New()
	require.NoError(t, c.Initialize([]sensor.Identifier{sensorA}))

	err := c.Initialize([]sensor.Identifier{sensorB})

	assert.ErrorIs(t, err, ErrAlreadyInitialized)
	assert.False(t, c.Contains(sensorB))
	assert.Equal(t, 1, c.Len())
}

func TestCache_PutAndGet(t *testing.T) {
	c := New()
	fixed := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return fixed }
	require.NoError(t, c.Initialize([]sensor.Identifier{sensorA, sensorB}))

	want := sensor.Reading{Temperature: 21.5, Humidity: 40, Battery: 90}
	require.NoError(t, c.Put(sensorA, want))

	got, err := c.Get(sensorA)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	e, err := c.Entry(sensorA)
	require.NoError(t, err)
	assert.Equal(t, fixed, e.UpdatedAt)

	untouched, err := c.Entry(sensorB)
	require.NoError(t, err)
	assert.True(t, untouched.UpdatedAt.IsZero())
	assert.True(t, untouched.Reading.IsUnavailable())
}

func TestCache_UnknownSensor(t *testing.T) {
	c := New()
	require.NoError(t, c.Initialize([]sensor.Identifier{sensorA}))

	err := c.Put(sensorC, sensor.Reading{Temperature: 1})
	assert.ErrorIs(t, err, sensor.ErrUnknownSensor)
	assert.False(t, c.Contains(sensorC), "put MUST NOT create new keys")

	_, err = c.Get(sensorC)
	assert.ErrorIs(t, err, sensor.ErrUnknownSensor)
}

func TestCache_ConcurrentReadersNeverSeeTornReadings(t *testing.T) {
	c := New()
	require.NoError(t, c.Initialize([]sensor.Identifier{sensorA}))

	const writes = 2000
	var wg sync.WaitGroup
	stop := make(chan struct{})

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				r, err := c.Get(sensorA)
				if !assert.NoError(t, err) {
					return
				}
				if r.IsUnavailable() {
					continue
				}
				// every written reading has all three fields derived from the same counter
				if !assert.Equal(t, r.Humidity, r.Battery) || !assert.Equal(t, float64(r.Humidity), r.Temperature) {
					return
				}
			}
		}()
	}

	for i := 0; i < writes; i++ {
		require.NoError(t, c.Put(sensorA, sensor.Reading{Temperature: float64(i), Humidity: i, Battery: i}))
	}
	close(stop)
	wg.Wait()

	last, err := c.Get(sensorA)
	require.NoError(t, err)
	assert.Equal(t, writes-1, last.Humidity)
}
