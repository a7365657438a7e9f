package sensor

import (
	"errors"
	"fmt"
)

// LinkState identifies the kind of BLE link failure.
type LinkState string

const (
	LinkDisconnected LinkState = "link_disconnected"
	LinkTimeout      LinkState = "link_timeout"
	LinkGeneric      LinkState = "link_error"
)

// LinkError represents a failure of the BLE link to a sensor or of the radio itself.
type LinkError struct {
	State LinkState
	Msg   string
}

// Error implements the error interface
func (e *LinkError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Msg == "" {
		return string(e.State)
	}
	return fmt.Sprintf("%s: %s", e.State, e.Msg)
}

// Is allows errors.Is to compare LinkError values by State
func (e *LinkError) Is(target error) bool {
	if e == nil {
		return false
	}
	t, ok := target.(*LinkError)
	if !ok {
		return false
	}
	return e.State == t.State
}

// Link failures
var (
	ErrLinkDisconnected = &LinkError{State: LinkDisconnected}
	ErrLinkTimeout      = &LinkError{State: LinkTimeout}
	ErrLinkGeneric      = &LinkError{State: LinkGeneric}
)

var (
	// ErrProtocol indicates a malformed or partial response from a sensor.
	ErrProtocol = errors.New("protocol error")

	// ErrUnknownController is returned when a radio address has no interface mapping.
	ErrUnknownController = errors.New("unknown controller")

	// ErrUnknownSensor is returned for identifiers that are not part of the configured fleet.
	ErrUnknownSensor = errors.New("unknown sensor")

	// ErrCoordinatorUnavailable is returned to readers while the coordinator is not running.
	ErrCoordinatorUnavailable = errors.New("coordinator unavailable")
)

// IsSensorScoped reports whether err only concerns the sensor being polled.
// Such failures are absorbed by the poll loop; everything else faults the coordinator.
func IsSensorScoped(err error) bool {
	return errors.Is(err, ErrLinkDisconnected) || errors.Is(err, ErrProtocol)
}
