package radio

import (
	"context"

	"github.com/go-ble/ble"
)

// Link is the part of a GATT client connection used to talk to a sensor.
// ble.Client satisfies it.
type Link interface {
	DiscoverServices(filter []ble.UUID) ([]*ble.Service, error)
	DiscoverCharacteristics(filter []ble.UUID, s *ble.Service) ([]*ble.Characteristic, error)
	ReadCharacteristic(c *ble.Characteristic) ([]byte, error)
	CancelConnection() error
}

// Dialer opens links through one BLE adapter.
type Dialer interface {
	Dial(ctx context.Context, address string) (Link, error)
	Stop() error
}

// bleDevice is the subset of ble.Device the dialer needs.
type bleDevice interface {
	Dial(ctx context.Context, a ble.Addr) (ble.Client, error)
	Stop() error
}

// bleDialer adapts a go-ble device to Dialer
type bleDialer struct {
	dev bleDevice
}

func (d *bleDialer) Dial(ctx context.Context, address string) (Link, error) {
	client, err := d.dev.Dial(ctx, ble.NewAddr(address))
	if err != nil {
		return nil, err
	}
	return client, nil
}

func (d *bleDialer) Stop() error {
	return d.dev.Stop()
}

// DeviceFactory opens the adapter described by c.
// This is a variable so that it can be overridden in tests.
var DeviceFactory = func(c Controller) (Dialer, error) {
	dev, err := newPlatformDevice(c)
	if err != nil {
		return nil, err
	}
	return &bleDialer{dev: dev}, nil
}
