//go:build linux

package radio

import (
	"fmt"

	"github.com/go-ble/ble"
	"github.com/go-ble/ble/linux"
)

// newPlatformDevice binds to the HCI socket of the configured adapter.
func newPlatformDevice(c Controller) (bleDevice, error) {
	dev, err := linux.NewDevice(ble.OptDeviceID(c.DeviceID))
	if err != nil {
		return nil, fmt.Errorf("failed to open hci%d: %w", c.DeviceID, err)
	}
	return dev, nil
}
