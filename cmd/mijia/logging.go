package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/srg/mijia/pkg/config"
)

// configureLogger creates a logger from cfg, with the level overridden by --log-level.
// Returns a configured logger or error if the log-level is invalid.
func configureLogger(cmd *cobra.Command, cfg *config.Config) (*logrus.Logger, error) {
	logLevelStr, _ := cmd.Flags().GetString("log-level")
	if logLevelStr != "" {
		switch logLevelStr {
		case "debug", "info", "warn", "error":
			cfg.LogLevel = logLevelStr
		default:
			return nil, fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", logLevelStr)
		}
	}

	return cfg.NewLogger(), nil
}

// clientConfig is the logging configuration of commands that only talk to a server.
func clientConfig(level logrus.Level) *config.Config {
	cfg := config.DefaultConfig()
	cfg.LogLevel = level.String()
	return cfg
}
