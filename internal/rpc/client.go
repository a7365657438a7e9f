package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/srg/mijia/internal/sensor"
)

// ErrInvalidSensor is returned when the server rejects a sensor identifier.
var ErrInvalidSensor = errors.New("invalid sensor")

// Client calls a remote server. It implements facade.Host, so a facade over a
// Client behaves the same as one over an in-process coordinator.
type Client struct {
	base *url.URL
	http *http.Client
}

// NewClient creates a client for the server at baseURL, e.g. "http://127.0.0.1:8080".
// A nil httpClient uses a client with a 10s timeout.
func NewClient(baseURL string, httpClient *http.Client) (*Client, error) {
	if !strings.Contains(baseURL, "://") {
		baseURL = "http://" + baseURL
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid server URL %q: %w", baseURL, err)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{base: u, http: httpClient}, nil
}

// ReadTemperature returns the cached temperature in °C, NaN when unavailable.
func (c *Client) ReadTemperature(ctx context.Context, id sensor.Identifier) (float64, error) {
	v, err := c.attribute(ctx, id, AttrTemperature)
	if err != nil {
		return 0, err
	}
	return fromNullable(v), nil
}

// ReadHumidity returns the cached relative humidity in %.
func (c *Client) ReadHumidity(ctx context.Context, id sensor.Identifier) (int, error) {
	return c.intAttribute(ctx, id, AttrHumidity)
}

// ReadBattery returns the cached battery level in %.
func (c *Client) ReadBattery(ctx context.Context, id sensor.Identifier) (int, error) {
	return c.intAttribute(ctx, id, AttrBattery)
}

// Reading returns the full cached reading of a sensor.
func (c *Client) Reading(ctx context.Context, id sensor.Identifier) (sensor.Reading, error) {
	var resp SensorResponse
	if err := c.get(ctx, "/api/v1/sensors/"+url.PathEscape(id.String()), &resp); err != nil {
		return sensor.Reading{}, err
	}
	return resp.Reading(), nil
}

// Status returns the coordinator status.
func (c *Client) Status(ctx context.Context) (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.get(ctx, "/api/v1/status", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Health returns nil when the coordinator is running.
func (c *Client) Health(ctx context.Context) error {
	return c.get(ctx, "/api/v1/health", &HealthResponse{})
}

func (c *Client) intAttribute(ctx context.Context, id sensor.Identifier, attr string) (int, error) {
	v, err := c.attribute(ctx, id, attr)
	if err != nil {
		return 0, err
	}
	if v == nil {
		return -1, nil
	}
	return int(*v), nil
}

func (c *Client) attribute(ctx context.Context, id sensor.Identifier, attr string) (*float64, error) {
	var resp AttributeResponse
	path := "/api/v1/sensors/" + url.PathEscape(id.String()) + "/" + attr
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return resp.Value, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	u := c.base.JoinPath(path)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", c.base.Host, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return decodeError(resp.StatusCode, body)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// decodeError maps a server error response back onto the sensor error taxonomy
func decodeError(status int, body []byte) error {
	var e Error
	if err := json.Unmarshal(body, &e); err != nil || e.Code == "" {
		e = Error{Status: status, Code: ErrCodeInternal, Message: http.StatusText(status)}
	}

	switch e.Code {
	case ErrCodeCoordinatorUnavailable:
		return rewrap(sensor.ErrCoordinatorUnavailable, e.Message)
	case ErrCodeUnknownSensor:
		return rewrap(sensor.ErrUnknownSensor, e.Message)
	case ErrCodeInvalidSensor:
		return rewrap(ErrInvalidSensor, e.Message)
	}

	// health reports unavailability without an error body
	if status == http.StatusServiceUnavailable {
		return sensor.ErrCoordinatorUnavailable
	}
	return fmt.Errorf("server returned %d %s: %s", status, e.Code, e.Message)
}

func rewrap(sentinel error, message string) error {
	message = strings.TrimPrefix(message, sentinel.Error()+": ")
	if message == "" || message == sentinel.Error() {
		return sentinel
	}
	return fmt.Errorf("%w: %s", sentinel, message)
}
