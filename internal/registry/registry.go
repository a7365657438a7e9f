// Package registry resolves the sensors attached to a controller.
package registry

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/srg/mijia/internal/sensor"
	"github.com/srg/mijia/pkg/config"
	"gopkg.in/yaml.v3"
)

// Static is a registry backed by an in-memory sensor list, usually the loaded configuration.
type Static struct {
	entries []config.SensorConfig
	logger  *logrus.Logger
}

// NewStatic creates a registry over the given entries.
func NewStatic(entries []config.SensorConfig, logger *logrus.Logger) *Static {
	if logger == nil {
		logger = logrus.New()
	}
	return &Static{
		entries: append([]config.SensorConfig(nil), entries...),
		logger:  logger,
	}
}

// Lookup returns the sensors of a controller in declaration order.
// Entries without a controller belong to every controller.
func (r *Static) Lookup(_ context.Context, controller string) []sensor.Identifier {
	return filter(r.entries, controller, r.logger)
}

// Names returns the display name of every named sensor.
func (r *Static) Names() map[sensor.Identifier]string {
	names := make(map[sensor.Identifier]string)
	for _, e := range r.entries {
		if e.Name == "" {
			continue
		}
		if id, err := sensor.ParseIdentifier(e.Address); err == nil {
			names[id] = e.Name
		}
	}
	return names
}

// File is a registry that re-reads a YAML document on every lookup.
// The document holds a top-level "sensors" list in the configuration format.
type File struct {
	path   string
	logger *logrus.Logger
}

// NewFile creates a file-backed registry.
func NewFile(path string, logger *logrus.Logger) *File {
	if logger == nil {
		logger = logrus.New()
	}
	return &File{path: path, logger: logger}
}

type document struct {
	Sensors []config.SensorConfig `yaml:"sensors"`
}

// Lookup reads the file and returns the sensors of a controller.
// Any failure to read or parse the file yields an empty list.
func (r *File) Lookup(_ context.Context, controller string) []sensor.Identifier {
	doc, err := r.load()
	if err != nil {
		r.logger.WithFields(logrus.Fields{
			"path":  r.path,
			"error": err,
		}).Warn("Sensor registry unavailable, no sensors loaded")
		return nil
	}
	return filter(doc.Sensors, controller, r.logger)
}

func (r *File) load() (*document, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return nil, err
	}
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", r.path, err)
	}
	return &doc, nil
}

func filter(entries []config.SensorConfig, controller string, logger *logrus.Logger) []sensor.Identifier {
	if normalized, err := sensor.NormalizeAddress(controller); err == nil {
		controller = normalized
	}

	seen := make(map[sensor.Identifier]struct{}, len(entries))
	var ids []sensor.Identifier

	for _, e := range entries {
		if strings.TrimSpace(e.Controller) != "" {
			owner, err := sensor.NormalizeAddress(e.Controller)
			if err != nil {
				logger.WithFields(logrus.Fields{
					"address":    e.Address,
					"controller": e.Controller,
				}).Warn("Skipping sensor with malformed controller address")
				continue
			}
			if owner != controller {
				continue
			}
		}

		id, err := sensor.ParseIdentifier(e.Address)
		if err != nil {
			logger.WithFields(logrus.Fields{
				"address": e.Address,
				"error":   err,
			}).Warn("Skipping malformed sensor address")
			continue
		}
		if _, dup := seen[id]; dup {
			logger.WithField("sensor", id).Warn("Skipping duplicate sensor")
			continue
		}

		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}
