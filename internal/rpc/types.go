package rpc

import (
	"math"
	"time"

	"github.com/srg/mijia/internal/cache"
	"github.com/srg/mijia/internal/coordinator"
	"github.com/srg/mijia/internal/sensor"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes.
const (
	ErrCodeCoordinatorUnavailable = "coordinator_unavailable"
	ErrCodeUnknownSensor          = "unknown_sensor"
	ErrCodeInvalidSensor          = "invalid_sensor"
	ErrCodeNotFound               = "not_found"
	ErrCodeInternal               = "internal_error"
)

// Attributes served per sensor.
const (
	AttrTemperature = "temperature"
	AttrHumidity    = "humidity"
	AttrBattery     = "battery"
)

// AttributeResponse carries one attribute of a sensor. A null value means
// the temperature is unavailable; humidity and battery use -1 instead.
type AttributeResponse struct {
	Sensor    string   `json:"sensor"`
	Attribute string   `json:"attribute"`
	Value     *float64 `json:"value"`
}

// SensorResponse is the full cached reading of a sensor.
type SensorResponse struct {
	Sensor      string     `json:"sensor"`
	Name        string     `json:"name,omitempty"`
	Temperature *float64   `json:"temperature"`
	Humidity    int        `json:"humidity"`
	Battery     int        `json:"battery"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// Reading converts the response back into a sensor reading.
func (r SensorResponse) Reading() sensor.Reading {
	return sensor.Reading{
		Temperature: fromNullable(r.Temperature),
		Humidity:    r.Humidity,
		Battery:     r.Battery,
	}
}

// FaultResponse describes why the coordinator stopped.
type FaultResponse struct {
	Sensor string    `json:"sensor,omitempty"`
	Error  string    `json:"error"`
	At     time.Time `json:"at"`
}

// StatusResponse is the coordinator status.
type StatusResponse struct {
	Controller string            `json:"controller"`
	State      coordinator.State `json:"state"`
	Passes     uint64            `json:"passes"`
	Fault      *FaultResponse    `json:"fault,omitempty"`
	Sensors    []SensorResponse  `json:"sensors"`
}

// HealthResponse reports whether read commands are being served.
type HealthResponse struct {
	Status string            `json:"status"`
	State  coordinator.State `json:"state"`
}

func newSensorResponse(e cache.Entry, names map[sensor.Identifier]string) SensorResponse {
	resp := SensorResponse{
		Sensor:      e.Sensor.String(),
		Name:        names[e.Sensor],
		Temperature: nullable(e.Reading.Temperature),
		Humidity:    e.Reading.Humidity,
		Battery:     e.Reading.Battery,
	}
	if !e.UpdatedAt.IsZero() {
		t := e.UpdatedAt
		resp.UpdatedAt = &t
	}
	return resp
}

func newStatusResponse(st coordinator.Status, names map[sensor.Identifier]string) StatusResponse {
	resp := StatusResponse{
		Controller: st.Controller,
		State:      st.State,
		Passes:     st.Passes,
		Sensors:    make([]SensorResponse, 0, len(st.Sensors)),
	}
	if st.Fault != nil {
		resp.Fault = &FaultResponse{
			Sensor: st.Fault.Sensor.String(),
			At:     st.Fault.At,
		}
		if st.Fault.Err != nil {
			resp.Fault.Error = st.Fault.Err.Error()
		}
	}
	for _, e := range st.Sensors {
		resp.Sensors = append(resp.Sensors, newSensorResponse(e, names))
	}
	return resp
}

// nullable maps NaN, which JSON cannot carry, to null
func nullable(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}

func fromNullable(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}
