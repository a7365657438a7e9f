package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/mcuadros/go-defaults"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the configuration file read when none is given
const DefaultPath = "mijia.yaml"

// Environment overrides, applied after the file
const (
	EnvLogLevel   = "MIJIA_LOG_LEVEL"
	EnvController = "MIJIA_CONTROLLER"
	EnvAPIListen  = "MIJIA_API_LISTEN"
)

// ErrInvalid is wrapped by every validation failure
var ErrInvalid = errors.New("invalid configuration")

// Config holds application configuration
type Config struct {
	LogLevel   string           `yaml:"log_level" default:"info"`
	Controller ControllerConfig `yaml:"controller"`
	Sensors    []SensorConfig   `yaml:"sensors"`
	Poll       PollConfig       `yaml:"poll"`
	API        APIConfig        `yaml:"api"`
}

// ControllerConfig selects the BLE radio this process drives
type ControllerConfig struct {
	Address string `yaml:"address"`

	// Interfaces maps a radio address to its HCI index. Empty means the built-in mapping.
	Interfaces map[string]int `yaml:"interfaces"`
}

// SensorConfig is one registered sensor. An empty Controller attaches it to every controller.
type SensorConfig struct {
	Address    string `yaml:"address"`
	Name       string `yaml:"name,omitempty"`
	Controller string `yaml:"controller,omitempty"`
}

// PollConfig tunes the poll loop
type PollConfig struct {
	Interval       time.Duration `yaml:"interval" default:"120s"`
	ConnectTimeout time.Duration `yaml:"connect_timeout" default:"30s"`
	ReadTimeout    time.Duration `yaml:"read_timeout" default:"10s"`
}

// APIConfig configures the HTTP read surface
type APIConfig struct {
	Listen string `yaml:"listen" default:":8080"`
}

// DefaultConfig returns default configuration values
func DefaultConfig() *Config {
	cfg := &Config{}
	defaults.SetDefaults(cfg)
	return cfg
}

// Load reads a YAML file, fills unset values with defaults and applies environment overrides.
// The result is validated.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration, see Load.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	defaults.SetDefaults(cfg)
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv(EnvController); v != "" {
		c.Controller.Address = v
	}
	if v := os.Getenv(EnvAPIListen); v != "" {
		c.API.Listen = v
	}
}

// Validate reports the first configuration error
func (c *Config) Validate() error {
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: log_level %q", ErrInvalid, c.LogLevel)
	}
	if strings.TrimSpace(c.Controller.Address) == "" {
		return fmt.Errorf("%w: controller.address is required", ErrInvalid)
	}
	for i, s := range c.Sensors {
		if strings.TrimSpace(s.Address) == "" {
			return fmt.Errorf("%w: sensors[%d].address is required", ErrInvalid, i)
		}
		if _, err := net.ParseMAC(strings.TrimSpace(s.Address)); err != nil {
			return fmt.Errorf("%w: sensors[%d].address %q", ErrInvalid, i, s.Address)
		}
		if c := strings.TrimSpace(s.Controller); c != "" {
			if _, err := net.ParseMAC(c); err != nil {
				return fmt.Errorf("%w: sensors[%d].controller %q", ErrInvalid, i, s.Controller)
			}
		}
	}
	if c.Poll.Interval <= 0 {
		return fmt.Errorf("%w: poll.interval must be positive", ErrInvalid)
	}
	if c.Poll.ConnectTimeout <= 0 || c.Poll.ReadTimeout <= 0 {
		return fmt.Errorf("%w: poll timeouts must be positive", ErrInvalid)
	}
	return nil
}

// Level returns the parsed log level, falling back to info
func (c *Config) Level() logrus.Level {
	lvl, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}

// NewLogger creates a configured logger instance
func (c *Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(c.Level())

	// Use structured logging format
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})

	return logger
}
