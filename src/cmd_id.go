package soti

import (
	"fmt"
	"strconv"
	"strings"
)

// CmdID selects both what a message means and how its body is laid out.
// The numbering must match the flight software.
type CmdID byte

const (
	COMM_RESET CmdID = iota
	COMM_PREPARE_FOR_SHUTDOWN
	COMM_GET_TELEMETRY
	COMM_SET_TELEMETRY_INTERVAL
	COMM_GET_TELEMETRY_INTERVAL
	COMM_UPDATE_START
	COMM_UPDATE_LOAD
	COMM_UPDATE_END

	// Event processing
	CDH_PROCESS_HEARTBEAT
	CDH_PROCESS_RUNTIME_ERROR
	CDH_PROCESS_COMMAND_ERROR
	CDH_PROCESS_NOTIFICATION
	CDH_PROCESS_TELEMETRY_REPORT
	CDH_PROCESS_RETURN
	CDH_PROCESS_LED_TEST

	// Clock
	CDH_SET_RTC
	CDH_GET_RTC

	CDH_TEST_FLASH
	CDH_TEST_MRAM

	CDH_RESET_SUBSYSTEM

	// Antenna
	CDH_ENABLE_ANTENNA
	CDH_DEPLOY_ANTENNA

	PWR_PROCESS_HEARTBEAT
	PWR_SET_SUBSYSTEM_POWER
	PWR_GET_SUBSYSTEM_POWER
	PWR_SET_BATTERY_HEATER_POWER
	PWR_GET_BATTERY_HEATER_POWER
	PWR_SET_BATTERY_ACCESS
	PWR_GET_BATTERY_ACCESS

	ADCS_SET_MAGNETORQUER_DIRECTION
	ADCS_GET_MAGNETORQUER_DIRECTION
	ADCS_SET_OPERATING_MODE
	ADCS_GET_OPERATING_MODE

	PLD_SET_ACTIVE_ENVS
	PLD_GET_ACTIVE_ENVS
	PLD_SET_SETPOINT
	PLD_GET_SETPOINT
	PLD_SET_TOLERANCE
	PLD_GET_TOLERANCE
	PLD_TEST_LEDS

	numCmdIDs
)

var cmdNames = [numCmdIDs]string{
	"COMM_RESET",
	"COMM_PREPARE_FOR_SHUTDOWN",
	"COMM_GET_TELEMETRY",
	"COMM_SET_TELEMETRY_INTERVAL",
	"COMM_GET_TELEMETRY_INTERVAL",
	"COMM_UPDATE_START",
	"COMM_UPDATE_LOAD",
	"COMM_UPDATE_END",
	"CDH_PROCESS_HEARTBEAT",
	"CDH_PROCESS_RUNTIME_ERROR",
	"CDH_PROCESS_COMMAND_ERROR",
	"CDH_PROCESS_NOTIFICATION",
	"CDH_PROCESS_TELEMETRY_REPORT",
	"CDH_PROCESS_RETURN",
	"CDH_PROCESS_LED_TEST",
	"CDH_SET_RTC",
	"CDH_GET_RTC",
	"CDH_TEST_FLASH",
	"CDH_TEST_MRAM",
	"CDH_RESET_SUBSYSTEM",
	"CDH_ENABLE_ANTENNA",
	"CDH_DEPLOY_ANTENNA",
	"PWR_PROCESS_HEARTBEAT",
	"PWR_SET_SUBSYSTEM_POWER",
	"PWR_GET_SUBSYSTEM_POWER",
	"PWR_SET_BATTERY_HEATER_POWER",
	"PWR_GET_BATTERY_HEATER_POWER",
	"PWR_SET_BATTERY_ACCESS",
	"PWR_GET_BATTERY_ACCESS",
	"ADCS_SET_MAGNETORQUER_DIRECTION",
	"ADCS_GET_MAGNETORQUER_DIRECTION",
	"ADCS_SET_OPERATING_MODE",
	"ADCS_GET_OPERATING_MODE",
	"PLD_SET_ACTIVE_ENVS",
	"PLD_GET_ACTIVE_ENVS",
	"PLD_SET_SETPOINT",
	"PLD_GET_SETPOINT",
	"PLD_SET_TOLERANCE",
	"PLD_GET_TOLERANCE",
	"PLD_TEST_LEDS",
}

// AllCmdIDs is every command in id order.
var AllCmdIDs = func() []CmdID {
	var all = make([]CmdID, numCmdIDs)
	for i := range all {
		all[i] = CmdID(i)
	}
	return all
}()

func (c CmdID) Valid() bool {
	return c < numCmdIDs
}

func (c CmdID) String() string {
	if c.Valid() {
		return cmdNames[c]
	}

	return strconv.Itoa(int(c))
}

// Owner is the subsystem that handles the command, or NodeUnspecified
// for the COMM_ commands every subsystem understands.
func (c CmdID) Owner() NodeID {
	var name = c.String()

	switch {
	case strings.HasPrefix(name, "CDH_"):
		return NodeCDH
	case strings.HasPrefix(name, "PWR_"):
		return NodePWR
	case strings.HasPrefix(name, "ADCS_"):
		return NodeADCS
	case strings.HasPrefix(name, "PLD_"):
		return NodePLD
	}

	return NodeUnspecified
}

func (c CmdID) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *CmdID) UnmarshalText(text []byte) error {
	var v, err = ParseCmdID(string(text))
	if err != nil {
		return err
	}

	*c = v
	return nil
}

// ParseCmdID accepts the command name in any case, with '-' or '_', or
// its number.
func ParseCmdID(s string) (CmdID, error) {
	var name = normalizeName(s)

	for i, n := range cmdNames {
		if n == name {
			return CmdID(i), nil
		}
	}

	if v, err := strconv.ParseUint(name, 0, 8); err == nil && CmdID(v).Valid() {
		return CmdID(v), nil
	}

	return 0, fmt.Errorf("unknown command %q", s)
}
