package main

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/srg/mijia/internal/coordinator"
	"github.com/srg/mijia/internal/rpc"
)

const (
	unavailableText   = "n/a"
	clearLineSequence = "\r\033[K"
)

var (
	unavailableColor = color.New(color.FgYellow)
	runningColor     = color.New(color.FgGreen)
	faultedColor     = color.New(color.FgRed, color.Bold)
)

func formatTemperature(v float64) string {
	if math.IsNaN(v) {
		return unavailableColor.Sprint(unavailableText)
	}
	return fmt.Sprintf("%.2f°C", v)
}

func formatPercent(v int) string {
	if v < 0 {
		return unavailableColor.Sprint(unavailableText)
	}
	return fmt.Sprintf("%d%%", v)
}

func formatState(s coordinator.State) string {
	switch s {
	case coordinator.Running:
		return runningColor.Sprint(s.String())
	case coordinator.Faulted:
		return faultedColor.Sprint(s.String())
	default:
		return s.String()
	}
}

// formatUpdated renders the age of a reading; a nil time means the sensor was never polled
func formatUpdated(t *time.Time, now time.Time) string {
	if t == nil {
		return "never"
	}
	return humanize.RelTime(*t, now, "ago", "from now")
}

// parseAttributes validates a comma-separated attribute list, keeping the given order
func parseAttributes(csv string) ([]string, error) {
	var attrs []string
	seen := make(map[string]struct{})
	for _, a := range strings.Split(csv, ",") {
		a = strings.ToLower(strings.TrimSpace(a))
		if a == "" {
			continue
		}
		switch a {
		case rpc.AttrTemperature, rpc.AttrHumidity, rpc.AttrBattery:
		default:
			return nil, fmt.Errorf("unknown attribute %q (must be temperature, humidity or battery)", a)
		}
		if _, dup := seen[a]; dup {
			continue
		}
		seen[a] = struct{}{}
		attrs = append(attrs, a)
	}
	if len(attrs) == 0 {
		return nil, fmt.Errorf("no attributes given")
	}
	return attrs, nil
}
