package main

import (
	"errors"
	"fmt"

	"github.com/srg/mijia/internal/rpc"
	"github.com/srg/mijia/internal/sensor"
	"github.com/srg/mijia/pkg/config"
)

// FormatUserError turns internal errors into short messages with a hint where one helps.
func FormatUserError(err error) string {
	switch {
	case errors.Is(err, sensor.ErrCoordinatorUnavailable):
		return fmt.Sprintf("%v\n  the coordinator has stopped polling; check 'mijia status' and restart 'mijia serve'", err)
	case errors.Is(err, sensor.ErrUnknownSensor):
		return fmt.Sprintf("%v\n  the sensor is not configured for this controller", err)
	case errors.Is(err, sensor.ErrUnknownController):
		return fmt.Sprintf("%v\n  add the adapter address to controller.interfaces", err)
	case errors.Is(err, rpc.ErrInvalidSensor):
		return fmt.Sprintf("%v\n  expected a hardware address such as A4:C1:38:12:34:56", err)
	case errors.Is(err, config.ErrInvalid):
		return fmt.Sprintf("%v\n  see 'mijia serve --help' for the configuration format", err)
	default:
		return err.Error()
	}
}
