//go:build test

package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/srg/mijia/internal/coordinator"
	"github.com/srg/mijia/internal/rpc"
	"github.com/srg/mijia/internal/testutils"
	"github.com/stretchr/testify/suite"
)

type StatusTestSuite struct {
	CommandTestSuite
}

func (suite *StatusTestSuite) TestStatus_Running() {
	// GOAL: Verify status shows the coordinator and every cached reading
	//
	// TEST SCENARIO: A polled, B pending → status → running, A values, B n/a never

	out, err := suite.ExecuteCommand("status", "--host", suite.URL)
	suite.Require().NoError(err)

	suite.Contains(out, "Controller: "+testutils.TestControllerAddress)
	suite.Contains(out, "State:      running")
	suite.Contains(out, "Passes:     0")
	suite.NotContains(out, "Fault:")
	suite.Regexp(`A4:C1:38:00:00:0A\s+kitchen\s+21\.37°C\s+48%\s+90%\s+now`, out)
	suite.Regexp(`A4:C1:38:00:00:0B\s+attic\s+n/a\s+n/a\s+n/a\s+never`, out)
}

func (suite *StatusTestSuite) TestStatus_ServerDown() {
	_, err := suite.ExecuteCommand("status", "--host", "127.0.0.1:1")
	suite.Error(err)
}

func (suite *StatusTestSuite) TestPrintStatus_Faulted() {
	// GOAL: Verify a faulted coordinator shows its cause
	//
	// TEST SCENARIO: fault on sensor B 3 minutes ago → Fault line names error, sensor and age

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	updated := now.Add(-10 * time.Minute)
	temp := 19.5

	var buf bytes.Buffer
	printStatus(&buf, &rpc.StatusResponse{
		Controller: testutils.TestControllerAddress,
		State:      coordinator.Faulted,
		Passes:     7,
		Fault: &rpc.FaultResponse{
			Sensor: string(testutils.TestSensorB),
			Error:  "link_timeout: hci timeout",
			At:     now.Add(-3 * time.Minute),
		},
		Sensors: []rpc.SensorResponse{
			{Sensor: string(testutils.TestSensorA), Temperature: &temp, Humidity: 50, Battery: 77, UpdatedAt: &updated},
		},
	}, now)

	testutils.NewTextAsserter(suite.T()).Assert(buf.String(), `Controller: B8:27:EB:B0:36:8F
State:      faulted
Passes:     7
Fault:      link_timeout: hci timeout while polling A4:C1:38:00:00:0B (3 minutes ago)

SENSOR             NAME  TEMPERATURE  HUMIDITY  BATTERY  UPDATED
A4:C1:38:00:00:0A        19.50°C      50%       77%      10 minutes ago
`)
}

func (suite *StatusTestSuite) TestPrintStatus_NoSensors() {
	var buf bytes.Buffer
	printStatus(&buf, &rpc.StatusResponse{Controller: testutils.TestControllerAddress, State: coordinator.Running}, time.Now())
	suite.Contains(buf.String(), "No sensors configured")
}

func TestStatusTestSuite(t *testing.T) {
	suite.Run(t, new(StatusTestSuite))
}
