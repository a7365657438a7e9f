//go:build test

package testutils

import (
	"context"

	"github.com/go-ble/ble"
	"github.com/srg/mijia/internal/radio"
	"github.com/stretchr/testify/mock"
)

// MockDialer is a testify mock of radio.Dialer
type MockDialer struct {
	mock.Mock
}

func (m *MockDialer) Dial(ctx context.Context, address string) (radio.Link, error) {
	args := m.Called(ctx, address)
	link, _ := args.Get(0).(radio.Link)
	return link, args.Error(1)
}

func (m *MockDialer) Stop() error {
	return m.Called().Error(0)
}

// MockLink is a testify mock of radio.Link
type MockLink struct {
	mock.Mock
}

func (m *MockLink) DiscoverServices(filter []ble.UUID) ([]*ble.Service, error) {
	args := m.Called(filter)
	svcs, _ := args.Get(0).([]*ble.Service)
	return svcs, args.Error(1)
}

func (m *MockLink) DiscoverCharacteristics(filter []ble.UUID, s *ble.Service) ([]*ble.Characteristic, error) {
	args := m.Called(filter, s)
	chars, _ := args.Get(0).([]*ble.Characteristic)
	return chars, args.Error(1)
}

func (m *MockLink) ReadCharacteristic(c *ble.Characteristic) ([]byte, error) {
	args := m.Called(c)
	data, _ := args.Get(0).([]byte)
	return data, args.Error(1)
}

func (m *MockLink) CancelConnection() error {
	return m.Called().Error(0)
}

// NewSensorLink returns a link mock exposing the LYWSD03MMC data characteristic with the given payload.
// Pass a non-nil readErr to make the characteristic read fail instead.
func NewSensorLink(service, characteristic ble.UUID, payload []byte, readErr error) *MockLink {
	svc := &ble.Service{UUID: service}
	char := &ble.Characteristic{UUID: characteristic}

	link := &MockLink{}
	link.On("DiscoverServices", mock.Anything).Return([]*ble.Service{svc}, nil)
	link.On("DiscoverCharacteristics", mock.Anything, svc).Return([]*ble.Characteristic{char}, nil)
	if readErr != nil {
		link.On("ReadCharacteristic", char).Return(nil, readErr)
	} else {
		link.On("ReadCharacteristic", char).Return(payload, nil)
	}
	link.On("CancelConnection").Return(nil)
	return link
}
