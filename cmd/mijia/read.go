package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/srg/mijia/internal/facade"
	"github.com/srg/mijia/internal/rpc"
	"github.com/srg/mijia/internal/sensor"
	"golang.org/x/term"
)

const defaultHost = "http://127.0.0.1:8080"

// readCmd represents the read command
var readCmd = &cobra.Command{
	Use:   "read <sensor-address>",
	Short: "Read the cached values of a sensor",
	Long: `Reads temperature, humidity and battery level of one sensor from a running
'mijia serve'. Values come from the coordinator cache; a sensor that could not
be reached on its last poll shows n/a.

Examples:
  # Read all attributes
  mijia read A4:C1:38:12:34:56

  # Read only the temperature from another host
  mijia read A4:C1:38:12:34:56 --attr temperature --host http://pi.local:8080

  # Refresh every 30 seconds
  mijia read A4:C1:38:12:34:56 --watch 30s`,
	Args: cobra.ExactArgs(1),
	RunE: runRead,
}

var (
	readHost  string
	readAttrs string
	readWatch string
)

func init() {
	readCmd.Flags().StringVar(&readHost, "host", defaultHost, "Address of the mijia server")
	readCmd.Flags().StringVar(&readAttrs, "attr", "temperature,humidity,battery", "Attributes to read, comma-separated")
	readCmd.Flags().StringVar(&readWatch, "watch", "", "Continuously read at interval (e.g., 30s); default 10s if no value given")
	readCmd.Flags().Lookup("watch").NoOptDefVal = "10s"
}

func runRead(cmd *cobra.Command, args []string) error {
	id, err := sensor.ParseIdentifier(args[0])
	if err != nil {
		return err
	}

	attrs, err := parseAttributes(readAttrs)
	if err != nil {
		return err
	}

	var watchInterval time.Duration
	if readWatch != "" {
		watchInterval, err = time.ParseDuration(readWatch)
		if err != nil {
			return fmt.Errorf("invalid watch interval: %w", err)
		}
		if watchInterval <= 0 {
			return fmt.Errorf("watch interval must be positive")
		}
	}

	logger, err := configureLogger(cmd, clientConfig(logrus.WarnLevel))
	if err != nil {
		return err
	}

	client, err := rpc.NewClient(readHost, nil)
	if err != nil {
		return err
	}

	// All arguments validated - don't show usage on runtime errors
	cmd.SilenceUsage = true

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s := facade.New(id, client, logger)
	out := cmd.OutOrStdout()

	if watchInterval == 0 {
		line, err := readLine(ctx, s, attrs)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, line)
		return nil
	}

	return watchRead(ctx, out, s, attrs, watchInterval)
}

// readLine queries every attribute through the facade and renders one line
func readLine(ctx context.Context, s *facade.Sensor, attrs []string) (string, error) {
	parts := make([]string, 0, len(attrs))
	for _, attr := range attrs {
		var value string
		switch attr {
		case rpc.AttrTemperature:
			v, err := s.Temperature(ctx)
			if err != nil {
				return "", err
			}
			value = formatTemperature(v)
		case rpc.AttrHumidity:
			v, err := s.Humidity(ctx)
			if err != nil {
				return "", err
			}
			value = formatPercent(v)
		case rpc.AttrBattery:
			v, err := s.Battery(ctx)
			if err != nil {
				return "", err
			}
			value = formatPercent(v)
		}
		parts = append(parts, fmt.Sprintf("%s: %s", attr, value))
	}
	return fmt.Sprintf("%s  %s", s.ID(), strings.Join(parts, "  ")), nil
}

// watchRead repeats readLine until ctx is cancelled or a read fails.
// On a terminal the line is redrawn in place.
func watchRead(ctx context.Context, out io.Writer, s *facade.Sensor, attrs []string, interval time.Duration) error {
	inPlace := isTerminal(out)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		line, err := readLine(ctx, s, attrs)
		if err != nil {
			if inPlace {
				fmt.Fprintln(out)
			}
			return err
		}
		if inPlace {
			fmt.Fprint(out, clearLineSequence+line)
		} else {
			fmt.Fprintln(out, line)
		}

		select {
		case <-ctx.Done():
			if inPlace {
				fmt.Fprintln(out)
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
