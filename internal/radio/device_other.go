//go:build !linux

package radio

import (
	"fmt"
	"runtime"
)

// newPlatformDevice is only implemented for BlueZ hosts; selecting an adapter by HCI index
// has no equivalent on other platforms.
func newPlatformDevice(c Controller) (bleDevice, error) {
	return nil, fmt.Errorf("adapter selection for %s is not supported on %s", c, runtime.GOOS)
}
