package radio

import (
	"fmt"

	"github.com/srg/mijia/internal/sensor"
)

// DefaultInterfaces maps the adapters of the reference installation to their HCI indices:
// the built-in Raspberry Pi controller and the USB dongle.
var DefaultInterfaces = map[string]int{
	"B8:27:EB:B0:36:8F": 1,
	"00:1A:7D:DA:71:13": 0,
}

// Controller identifies the single physical BLE adapter a coordinator drives.
type Controller struct {
	Address  string // adapter hardware address, upper case
	DeviceID int    // HCI index, e.g. 0 for hci0
}

func (c Controller) String() string {
	return fmt.Sprintf("%s (hci%d)", c.Address, c.DeviceID)
}

// ResolveController looks the adapter address up in the interface mapping.
// Addresses on both sides are normalized, so case and separator style do not matter.
// A nil mapping falls back to DefaultInterfaces.
func ResolveController(address string, interfaces map[string]int) (Controller, error) {
	if interfaces == nil {
		interfaces = DefaultInterfaces
	}

	normalized, err := sensor.NormalizeAddress(address)
	if err != nil {
		return Controller{}, fmt.Errorf("%w: invalid controller address %q", sensor.ErrUnknownController, address)
	}

	for addr, id := range interfaces {
		if key, err := sensor.NormalizeAddress(addr); err == nil && key == normalized {
			return Controller{Address: normalized, DeviceID: id}, nil
		}
	}
	return Controller{}, fmt.Errorf("%w: no interface mapping for %s", sensor.ErrUnknownController, normalized)
}
