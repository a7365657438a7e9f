//go:build test

package main

import (
	"bytes"
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/fatih/color"
	"github.com/srg/mijia/internal/lywsd"
	"github.com/srg/mijia/internal/radio"
	"github.com/srg/mijia/internal/rpc"
	"github.com/srg/mijia/internal/testutils"
	"github.com/srg/mijia/pkg/config"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

// CommandTestSuite runs a full 'serve' stack against a mocked adapter.
// Sensor A answers with a fixed payload, sensor B is out of range, C is not configured.
// All cmd/mijia test suites embed it.
type CommandTestSuite struct {
	suite.Suite

	Helper *testutils.TestHelper
	Dialer *testutils.MockDialer
	URL    string

	originalFactory func(radio.Controller) (radio.Dialer, error)
	cancel          context.CancelFunc
	served          chan error
}

func (s *CommandTestSuite) SetupSuite() {
	s.Helper = testutils.NewTestHelper(s.T())
	color.NoColor = true
	s.originalFactory = radio.DeviceFactory
}

func (s *CommandTestSuite) TearDownSuite() {
	radio.DeviceFactory = s.originalFactory
}

func (s *CommandTestSuite) SetupTest() {
	resetFlags()

	s.Dialer = &testutils.MockDialer{}
	link := testutils.NewSensorLink(lywsd.ServiceUUID, lywsd.DataCharUUID, testutils.LYWSD03MMCPayload(21.37, 48, 3000), nil)
	s.Dialer.On("Dial", mock.Anything, string(testutils.TestSensorA)).Return(link, nil)
	s.Dialer.On("Dial", mock.Anything, string(testutils.TestSensorB)).Return(nil, errors.New("device disconnected"))
	s.Dialer.On("Stop").Return(nil)
	radio.DeviceFactory = func(radio.Controller) (radio.Dialer, error) { return s.Dialer, nil }

	cfg := config.DefaultConfig()
	cfg.Controller.Address = testutils.TestControllerAddress
	cfg.Sensors = []config.SensorConfig{
		{Address: string(testutils.TestSensorA), Name: "kitchen"},
		{Address: string(testutils.TestSensorB), Name: "attic"},
	}
	cfg.Poll.Interval = time.Hour
	s.Require().NoError(cfg.Validate())

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	s.Require().NoError(err)
	s.URL = "http://" + ln.Addr().String()

	var ctx context.Context
	ctx, s.cancel = context.WithCancel(context.Background())
	s.served = make(chan error, 1)
	go func() { s.served <- serve(ctx, cfg, "", ln, s.Helper.Logger) }()

	client, err := rpc.NewClient(s.URL, &http.Client{Timeout: time.Second})
	s.Require().NoError(err)
	s.Require().Eventually(func() bool {
		st, err := client.Status(context.Background())
		return err == nil && len(st.Sensors) == 2 && st.Sensors[0].UpdatedAt != nil
	}, 5*time.Second, 20*time.Millisecond, "sensor A MUST be polled")
}

func (s *CommandTestSuite) TearDownTest() {
	s.cancel()
	select {
	case err := <-s.served:
		s.NoError(err, "serve MUST shut down cleanly")
	case <-time.After(5 * time.Second):
		s.Fail("serve MUST return after cancellation")
	}
	s.Dialer.AssertCalled(s.T(), "Stop")
}

// ExecuteCommand runs the root command with args, returns output and error.
func (s *CommandTestSuite) ExecuteCommand(args ...string) (string, error) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}

// resetFlags restores the command flag variables to their defaults
func resetFlags() {
	readHost = defaultHost
	readAttrs = "temperature,humidity,battery"
	readWatch = ""
	statusHost = defaultHost
	serveConfigPath = config.DefaultPath
	serveListen = ""
	serveSensorsFile = ""
	_ = rootCmd.PersistentFlags().Set("log-level", "")
}
