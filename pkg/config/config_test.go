package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalYAML = `
controller:
  address: B8:27:EB:B0:36:8F
sensors:
  - address: a4:c1:38:00:00:0a
    name: kitchen
`

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.NotNil(t, cfg)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 120*time.Second, cfg.Poll.Interval)
	assert.Equal(t, 30*time.Second, cfg.Poll.ConnectTimeout)
	assert.Equal(t, 10*time.Second, cfg.Poll.ReadTimeout)
	assert.Equal(t, ":8080", cfg.API.Listen)
	assert.Empty(t, cfg.Controller.Address)
}

func TestParse_AppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, "B8:27:EB:B0:36:8F", cfg.Controller.Address)
	require.Len(t, cfg.Sensors, 1)
	assert.Equal(t, "kitchen", cfg.Sensors[0].Name)
	assert.Equal(t, 120*time.Second, cfg.Poll.Interval)
	assert.Equal(t, ":8080", cfg.API.Listen)
}

func TestParse_ExplicitValues(t *testing.T) {
	cfg, err := Parse([]byte(`
log_level: debug
controller:
  address: 00:1A:7D:DA:71:13
  interfaces:
    00:1A:7D:DA:71:13: 2
poll:
  interval: 5s
  connect_timeout: 3s
  read_timeout: 1s
api:
  listen: 127.0.0.1:9000
`))
	require.NoError(t, err)

	assert.Equal(t, logrus.DebugLevel, cfg.Level())
	assert.Equal(t, map[string]int{"00:1A:7D:DA:71:13": 2}, cfg.Controller.Interfaces)
	assert.Equal(t, 5*time.Second, cfg.Poll.Interval)
	assert.Equal(t, 3*time.Second, cfg.Poll.ConnectTimeout)
	assert.Equal(t, time.Second, cfg.Poll.ReadTimeout)
	assert.Equal(t, "127.0.0.1:9000", cfg.API.Listen)
}

func TestParse_EnvOverrides(t *testing.T) {
	t.Setenv(EnvLogLevel, "warn")
	t.Setenv(EnvController, "00:1A:7D:DA:71:13")
	t.Setenv(EnvAPIListen, ":9999")

	cfg, err := Parse([]byte(minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "00:1A:7D:DA:71:13", cfg.Controller.Address)
	assert.Equal(t, ":9999", cfg.API.Listen)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mijia.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimalYAML), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "B8:27:EB:B0:36:8F", cfg.Controller.Address)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("controller: [\n"), 0o600))
	_, err = Load(bad)
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		cfg := DefaultConfig()
		cfg.Controller.Address = "B8:27:EB:B0:36:8F"
		cfg.Sensors = []SensorConfig{{Address: "A4:C1:38:00:00:0A"}}
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		valid  bool
	}{
		{
			name:   "complete config is valid",
			mutate: func(*Config) {},
			valid:  true,
		},
		{
			name:   "empty sensor list is valid",
			mutate: func(c *Config) { c.Sensors = nil },
			valid:  true,
		},
		{
			name:   "missing controller address",
			mutate: func(c *Config) { c.Controller.Address = " " },
		},
		{
			name:   "missing sensor address",
			mutate: func(c *Config) { c.Sensors = append(c.Sensors, SensorConfig{Name: "attic"}) },
		},
		{
			name:   "malformed sensor address",
			mutate: func(c *Config) { c.Sensors[0].Address = "not-a-mac" },
		},
		{
			name:   "dashed sensor controller is valid",
			mutate: func(c *Config) { c.Sensors[0].Controller = "b8-27-eb-b0-36-8f" },
			valid:  true,
		},
		{
			name:   "malformed sensor controller",
			mutate: func(c *Config) { c.Sensors[0].Controller = "hci0" },
		},
		{
			name:   "zero interval",
			mutate: func(c *Config) { c.Poll.Interval = 0 },
		},
		{
			name:   "negative read timeout",
			mutate: func(c *Config) { c.Poll.ReadTimeout = -time.Second },
		},
		{
			name:   "unknown log level",
			mutate: func(c *Config) { c.LogLevel = "loud" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalid)
			}
		})
	}
}

func TestConfig_NewLogger(t *testing.T) {
	tests := []struct {
		name     string
		logLevel string
		expected logrus.Level
	}{
		{
			name:     "creates logger with debug level",
			logLevel: "debug",
			expected: logrus.DebugLevel,
		},
		{
			name:     "creates logger with info level",
			logLevel: "info",
			expected: logrus.InfoLevel,
		},
		{
			name:     "creates logger with warn level",
			logLevel: "warn",
			expected: logrus.WarnLevel,
		},
		{
			name:     "falls back to info on garbage",
			logLevel: "loud",
			expected: logrus.InfoLevel,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				LogLevel: tt.logLevel,
			}

			logger := cfg.NewLogger()

			assert.NotNil(t, logger)
			assert.Equal(t, tt.expected, logger.GetLevel())

			// Verify formatter is set correctly
			formatter, ok := logger.Formatter.(*logrus.TextFormatter)
			assert.True(t, ok)
			assert.True(t, formatter.FullTimestamp)
			assert.Equal(t, time.RFC3339, formatter.TimestampFormat)
		})
	}
}

func BenchmarkParse(b *testing.B) {
	data := []byte(minimalYAML)
	for i := 0; i < b.N; i++ {
		_, _ = Parse(data)
	}
}
