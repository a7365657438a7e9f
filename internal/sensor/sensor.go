package sensor

import (
	"fmt"
	"math"
	"net"
	"strings"
)

// Identifier is the BLE hardware address of a sensor, normalized to upper case.
type Identifier string

// NormalizeAddress validates a 48-bit hardware address in any form net.ParseMAC accepts
// (colons, dashes or dots, either case) and returns it colon separated in upper case.
func NormalizeAddress(address string) (string, error) {
	address = strings.TrimSpace(address)
	hw, err := net.ParseMAC(address)
	if err != nil || len(hw) != 6 {
		return "", fmt.Errorf("invalid hardware address %q", address)
	}
	return strings.ToUpper(hw.String()), nil
}

// ParseIdentifier validates a sensor hardware address and normalizes it.
func ParseIdentifier(address string) (Identifier, error) {
	normalized, err := NormalizeAddress(address)
	if err != nil {
		return "", fmt.Errorf("invalid sensor address %q", strings.TrimSpace(address))
	}
	return Identifier(normalized), nil
}

// String returns the address form of the identifier.
func (id Identifier) String() string {
	return string(id)
}

// Reading is one poll result. The three values are always produced together.
type Reading struct {
	Temperature float64 `json:"temperature"` // °C
	Humidity    int     `json:"humidity"`    // %
	Battery     int     `json:"battery"`     // %
}

// Unavailable returns the sentinel Reading stored for a sensor without valid data.
func Unavailable() Reading {
	return Reading{Temperature: math.NaN(), Humidity: -1, Battery: -1}
}

// IsUnavailable reports whether r is the sentinel Reading.
func (r Reading) IsUnavailable() bool {
	return math.IsNaN(r.Temperature) && r.Humidity == -1 && r.Battery == -1
}

func (r Reading) String() string {
	if r.IsUnavailable() {
		return "unavailable"
	}
	return fmt.Sprintf("%.2f°C %d%% battery %d%%", r.Temperature, r.Humidity, r.Battery)
}
