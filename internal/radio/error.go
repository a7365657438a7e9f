package radio

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/srg/mijia/internal/sensor"
)

// NormalizeError maps go-ble and HCI errors onto the sensor link taxonomy.
// Errors already carrying a taxonomy class pass through unchanged, as does context.Canceled.
// Returns wrapped errors to preserve original context.
func NormalizeError(err error) error {
	if err == nil {
		return nil
	}

	var lerr *sensor.LinkError
	if errors.As(err, &lerr) || errors.Is(err, sensor.ErrProtocol) || errors.Is(err, context.Canceled) {
		return err
	}

	msg := err.Error()
	switch {
	// the peer did not answer the connection request in time: asleep or out of range
	case errors.Is(err, context.DeadlineExceeded), containsIgnoreCase(msg, "deadline exceeded"):
		return fmt.Errorf("%w: %v", sensor.ErrLinkDisconnected, err)
	// HCI 0x08 and 0x22 are link supervision events of one peer, not a stuck controller
	case containsIgnoreCase(msg, "disconnected"),
		containsIgnoreCase(msg, "not connected"),
		containsIgnoreCase(msg, "connection refused"),
		containsIgnoreCase(msg, "remote user terminated"),
		containsIgnoreCase(msg, "failed to be established"),
		containsIgnoreCase(msg, "connection timeout"),
		containsIgnoreCase(msg, "ll response timeout"),
		containsIgnoreCase(msg, "lmp response timeout"):
		return fmt.Errorf("%w: %v", sensor.ErrLinkDisconnected, err)
	case containsIgnoreCase(msg, "timeout"), containsIgnoreCase(msg, "timed out"):
		return fmt.Errorf("%w: %v", sensor.ErrLinkTimeout, err)
	default:
		return fmt.Errorf("%w: %v", sensor.ErrLinkGeneric, err)
	}
}

// containsIgnoreCase checks the substring case-insensitively
func containsIgnoreCase(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
