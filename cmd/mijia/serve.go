package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/srg/mijia/internal/cache"
	"github.com/srg/mijia/internal/coordinator"
	"github.com/srg/mijia/internal/lywsd"
	"github.com/srg/mijia/internal/radio"
	"github.com/srg/mijia/internal/registry"
	"github.com/srg/mijia/internal/rpc"
	"github.com/srg/mijia/pkg/config"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Poll the sensors and serve their readings",
	Long: `Runs the poll coordinator for one Bluetooth adapter and serves the cached
readings over HTTP until interrupted.

Configuration (YAML):

  log_level: info
  controller:
    address: B8:27:EB:B0:36:8F
    interfaces:              # adapter address -> HCI index
      B8:27:EB:B0:36:8F: 1
  sensors:
    - address: A4:C1:38:12:34:56
      name: kitchen
  poll:
    interval: 120s           # slept after every sensor and every pass
    connect_timeout: 30s
    read_timeout: 10s
  api:
    listen: ":8080"

Environment overrides: MIJIA_LOG_LEVEL, MIJIA_CONTROLLER, MIJIA_API_LISTEN.

Examples:
  # Serve with the default config file
  mijia serve

  # Serve another config on a local port only
  mijia serve --config /etc/mijia.yaml --listen 127.0.0.1:8080

  # Take the sensor list from a separate file
  mijia serve --sensors /etc/mijia-sensors.yaml`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var (
	serveConfigPath  string
	serveListen      string
	serveSensorsFile string
)

func init() {
	serveCmd.Flags().StringVarP(&serveConfigPath, "config", "c", config.DefaultPath, "Configuration file")
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "HTTP listen address (overrides api.listen)")
	serveCmd.Flags().StringVar(&serveSensorsFile, "sensors", "", "YAML file with the sensor list (overrides sensors)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(serveConfigPath)
	if err != nil {
		return err
	}
	if serveListen != "" {
		cfg.API.Listen = serveListen
	}

	logger, err := configureLogger(cmd, cfg)
	if err != nil {
		return err
	}

	// All arguments validated - don't show usage on runtime errors
	cmd.SilenceUsage = true

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", cfg.API.Listen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.API.Listen, err)
	}

	return serve(ctx, cfg, serveSensorsFile, ln, logger)
}

// serve wires the radio, the coordinator and the HTTP server and blocks until ctx is done.
// A non-empty sensorsFile replaces the configured sensor list. serve owns ln.
func serve(ctx context.Context, cfg *config.Config, sensorsFile string, ln net.Listener, logger *logrus.Logger) error {
	manager, err := radio.NewManager(cfg.Controller.Address, cfg.Controller.Interfaces, &radio.Options{
		ConnectTimeout: cfg.Poll.ConnectTimeout,
	}, logger)
	if err != nil {
		_ = ln.Close()
		return err
	}
	defer func() {
		if err := manager.Shutdown(); err != nil {
			logger.WithError(err).Warn("Failed to stop BLE adapter")
		}
	}()

	static := registry.NewStatic(cfg.Sensors, logger)
	var reg coordinator.Registry = static
	if sensorsFile != "" {
		reg = registry.NewFile(sensorsFile, logger)
	}

	reader := lywsd.NewReader(&lywsd.Options{ReadTimeout: cfg.Poll.ReadTimeout}, logger)
	coord := coordinator.New(manager.Controller().Address, reg, manager, reader, cache.New(), &coordinator.Options{
		PollInterval: cfg.Poll.Interval,
	}, logger)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := coord.Start(ctx); err != nil {
		_ = ln.Close()
		return err
	}

	logger.WithFields(logrus.Fields{
		"controller": manager.Controller().String(),
		"sensors":    len(coord.Sensors()),
		"listen":     ln.Addr().String(),
	}).Info("Serving sensor readings")

	server := rpc.NewServer(coord, static.Names(), &rpc.Options{Listen: cfg.API.Listen}, logger)
	serveErr := server.Serve(ctx, ln)

	// stop polling before the adapter goes away
	cancel()
	<-coord.Done()

	if f := coord.Fault(); f != nil {
		logger.WithFields(logrus.Fields{
			"sensor": f.Sensor,
			"error":  f.Err,
		}).Warn("Coordinator had faulted")
	}
	return serveErr
}
