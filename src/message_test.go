package soti

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func Test_Message_SubsystemPower(t *testing.T) {
	var m, err = NewMessage(4, NodeCDH, NodePWR, PWR_SET_SUBSYSTEM_POWER, []byte{0x01, 0x01})
	require.NoError(t, err)

	assert.Equal(t, []byte{0x04, 0x00, 0x01, 0x17, 0x01, 0x01, 0, 0, 0, 0, 0}, m.Serialize())

	var body = m.Fields()
	assert.Equal(t, []string{"subsystem-id", "power"}, body.Keys())

	var id, _ = body.Get("subsystem-id")
	assert.Equal(t, NodePWR, id)

	var power, _ = body.Get("power")
	assert.Equal(t, true, power)

	assert.Equal(t, "subsystem-id: PWR, power: true", body.String())
}

func Test_Message_BodyPadding(t *testing.T) {
	var m, err = NewMessage(0, NodeCDH, NodePLD, PLD_TEST_LEDS, nil)
	require.NoError(t, err)
	assert.Equal(t, [DATA_SIZE]byte{}, m.Body)

	// Extra is cut off.
	m, err = NewMessage(0, NodeCDH, NodePLD, PLD_TEST_LEDS, []byte{1, 2, 3, 4, 5, 6, 7, 8, 9})
	require.NoError(t, err)
	assert.Equal(t, [DATA_SIZE]byte{1, 2, 3, 4, 5, 6, 7}, m.Body)
}

func Test_NewMessage_Invalid(t *testing.T) {
	var tests = []struct {
		name      string
		priority  int
		sender    NodeID
		recipient NodeID
		cmd       CmdID
	}{
		{"priority too high", MAX_PRIORITY + 1, NodeCDH, NodePWR, PWR_GET_SUBSYSTEM_POWER},
		{"negative priority", -1, NodeCDH, NodePWR, PWR_GET_SUBSYSTEM_POWER},
		{"broadcast sender", 4, NodeUnspecified, NodePWR, PWR_GET_SUBSYSTEM_POWER},
		{"unknown recipient", 4, NodeCDH, NodeID(9), PWR_GET_SUBSYSTEM_POWER},
		{"unknown command", 4, NodeCDH, NodePWR, CmdID(200)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var _, err = NewMessage(tt.priority, tt.sender, tt.recipient, tt.cmd, nil)

			var ae *ArgumentError
			assert.ErrorAs(t, err, &ae)
		})
	}

	var _, err = NewMessage(MAX_PRIORITY, NodePLD, NodeUnspecified, COMM_RESET, nil)
	assert.NoError(t, err)
}

func Test_Deserialize_Errors(t *testing.T) {
	var _, err = Deserialize(make([]byte, MSG_SIZE-1))
	assert.ErrorIs(t, err, ErrBadLength)

	_, err = Deserialize(make([]byte, MSG_SIZE+1))
	assert.ErrorIs(t, err, ErrBadLength)

	_, err = Deserialize([]byte{4, 0, 1, byte(numCmdIDs), 0, 0, 0, 0, 0, 0, 0})
	assert.ErrorIs(t, err, ErrUnknownCommand)

	_, err = Deserialize([]byte{4, 7, 1, 0, 0, 0, 0, 0, 0, 0, 0})
	assert.ErrorIs(t, err, ErrUnknownNode)

	_, err = Deserialize([]byte{4, 0, 7, 0, 0, 0, 0, 0, 0, 0, 0})
	assert.ErrorIs(t, err, ErrUnknownNode)

	var m, merr = Deserialize([]byte{4, 0, 0xff, 0, 0, 0, 0, 0, 0, 0, 0})
	require.NoError(t, merr)
	assert.Equal(t, NodeUnspecified, m.Recipient)
}

func Test_Message_RoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		var priority = rapid.IntRange(0, MAX_PRIORITY).Draw(t, "priority")
		var sender = rapid.SampledFrom(Nodes).Draw(t, "sender")
		var recipient = rapid.SampledFrom(append([]NodeID{NodeUnspecified}, Nodes...)).Draw(t, "recipient")
		var cmd = rapid.SampledFrom(AllCmdIDs).Draw(t, "cmd")
		var body = rapid.SliceOfN(rapid.Byte(), 0, DATA_SIZE).Draw(t, "body")

		var m, err = NewMessage(priority, sender, recipient, cmd, body)
		require.NoError(t, err)

		var wire = m.Serialize()
		require.Len(t, wire, MSG_SIZE)

		var back, derr = Deserialize(wire)
		require.NoError(t, derr)

		assert.Equal(t, m.Priority, back.Priority)
		assert.Equal(t, m.Sender, back.Sender)
		assert.Equal(t, m.Recipient, back.Recipient)
		assert.Equal(t, m.Cmd, back.Cmd)
		assert.Equal(t, m.Body, back.Body)
		assert.Equal(t, wire, back.Serialize())
	})
}
