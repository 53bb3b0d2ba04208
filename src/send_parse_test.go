package soti

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSendDefaults = SendDefaults{Priority: 4, Sender: NodeCDH}

func Test_ParseSend(t *testing.T) {
	var m, err = ParseSend("pwr_set_subsystem_power PWR 1", testSendDefaults)
	require.NoError(t, err)

	assert.Equal(t, byte(4), m.Priority)
	assert.Equal(t, NodeCDH, m.Sender)
	assert.Equal(t, NodePWR, m.Recipient)
	assert.Equal(t, PWR_SET_SUBSYSTEM_POWER, m.Cmd)
	assert.Equal(t, [DATA_SIZE]byte{1, 1}, m.Body)
	assert.Equal(t, SourceUser, m.Source)

	assert.Equal(t, []byte{0x04, 0x00, 0x01, 0x17, 0x01, 0x01, 0, 0, 0, 0, 0}, m.Serialize())
}

func Test_ParseSend_Options(t *testing.T) {
	var m, err = ParseSend("CDH_SET_RTC (u32)0x12345678 priority=9 sender=pld recipient=adcs", testSendDefaults)
	require.NoError(t, err)

	assert.Equal(t, byte(9), m.Priority)
	assert.Equal(t, NodePLD, m.Sender)
	assert.Equal(t, NodeADCS, m.Recipient)
	assert.Equal(t, [DATA_SIZE]byte{0x78, 0x56, 0x34, 0x12}, m.Body)
}

func Test_ParseSend_CommonCommandsNeedRecipient(t *testing.T) {
	var _, err = ParseSend("COMM_RESET", testSendDefaults)
	var ae *ArgumentError
	require.ErrorAs(t, err, &ae)

	m, err := ParseSend("COMM_RESET recipient=ALL", testSendDefaults)
	require.NoError(t, err)
	assert.Equal(t, NodeUnspecified, m.Recipient)

	m, err = ParseSend("COMM_GET_TELEMETRY 3 dest=PWR", testSendDefaults)
	require.NoError(t, err)
	assert.Equal(t, NodePWR, m.Recipient)
	assert.Equal(t, [DATA_SIZE]byte{3}, m.Body)
}

func Test_ParseSend_Errors(t *testing.T) {
	var tests = map[string]string{
		"empty":              "",
		"unknown command":    "PWR_EXPLODE",
		"unknown option":     "CDH_GET_RTC colour=red",
		"bad priority":       "CDH_GET_RTC priority=high",
		"priority range":     "CDH_GET_RTC priority=33",
		"bad recipient":      "CDH_GET_RTC recipient=MARS",
		"broadcast sender":   "CDH_GET_RTC sender=ALL",
		"too many bytes":     "COMM_UPDATE_LOAD 0x01020304 0x05060708",
		"bad literal":        "CDH_SET_RTC 12abc",
		"overflow":           "CDH_SET_RTC 0x123456789",
		"cast overflow":      "CDH_SET_RTC (u8)256",
		"unsigned negative":  "CDH_SET_RTC (u16)-1",
		"underflow":          "CDH_SET_RTC (i8)-129",
		"negative underflow": "CDH_SET_RTC -200",
		"bad cast width":     "CDH_SET_RTC (u64)1",
		"bad cast":           "CDH_SET_RTC (x8)1",
		"empty cast":         "CDH_SET_RTC ()1",
	}

	for name, line := range tests {
		t.Run(name, func(t *testing.T) {
			var _, err = ParseSend(line, testSendDefaults)

			var ae *ArgumentError
			assert.ErrorAs(t, err, &ae, line)
		})
	}
}

func Test_parseSendArg(t *testing.T) {
	var tests = []struct {
		arg  string
		want []byte
	}{
		{"5", []byte{5}},
		{"255", []byte{0xff}},
		{"256", []byte{0x00, 0x01}},
		{"70000", []byte{0x70, 0x11, 0x01, 0x00}},
		{"-3", []byte{0xfd}},
		{"-128", []byte{0x80}},
		{"(i16)-200", []byte{0x38, 0xff}},
		{"-300", []byte{0xd4, 0xfe}},
		{"0x0102", []byte{0x02, 0x01}},
		{"0x0001", []byte{0x01, 0x00}},
		{"0x123", []byte{0x23, 0x01}},
		{"0b101", []byte{0x05}},
		{"0b000000001", []byte{0x01, 0x00}},
		{"PWR", []byte{0x01}},
		{"payload", []byte{0x03}},
		{"CDH_SET_RTC", []byte{byte(CDH_SET_RTC)}},
		{"(u8)5", []byte{5}},
		{"(8)5", []byte{5}},
		{"(u16)7", []byte{7, 0}},
		{"(32)7", []byte{7, 0, 0, 0}},
		{"(i16)-300", []byte{0xd4, 0xfe}},
		{"(i8)-1", []byte{0xff}},
		{"(i8)200", []byte{0xc8}},
		{"(i32)-1", []byte{0xff, 0xff, 0xff, 0xff}},
	}

	for _, tt := range tests {
		var got, err = parseSendArg(tt.arg)
		require.NoError(t, err, tt.arg)
		assert.Equal(t, tt.want, got, tt.arg)
	}
}

// The minus sign does not widen an uncast literal.
func Test_parseSendArg_NegativeWidth(t *testing.T) {
	var _, err = parseSendArg("-200")
	assert.EqualError(t, err, "underflow: -200")

	_, err = parseSendArg("-129")
	assert.EqualError(t, err, "underflow: -129")

	var got, _ = parseSendArg("-129000")
	assert.Equal(t, []byte{0x18, 0x08, 0xfe, 0xff}, got)
}
