package soti

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_DecodeAX25(t *testing.T) {
	var frame = []byte{
		'C' << 1, 'Q' << 1, ' ' << 1, ' ' << 1, ' ' << 1, ' ' << 1, 0xe0,
		'N' << 1, '0' << 1, 'C' << 1, 'A' << 1, 'L' << 1, 'L' << 1, 0x63,
		0x03, 0xf0,
		'T', 'E', 'S', 'T',
	}

	var d, err = DecodeAX25(frame)
	require.NoError(t, err)

	assert.Equal(t, "CQ", d.Destination)
	assert.Equal(t, 0, d.DestinationSSID)
	assert.Equal(t, "N0CALL", d.Source)
	assert.Equal(t, 1, d.SourceSSID)
	assert.Equal(t, byte(0x03), d.Control)
	assert.Equal(t, byte(0xf0), d.ProtocolID)
	assert.Equal(t, "TEST", d.Info)

	assert.Equal(t, "N0CALL-1>CQ-0: TEST", d.String())
}

func Test_DecodeAX25_TooShort(t *testing.T) {
	for n := range AX25MinFrameLen {
		var _, err = DecodeAX25(make([]byte, n))
		assert.ErrorIs(t, err, ErrTooShort, "%d bytes", n)
	}
}

func Test_DecodeAX25_InvalidEncoding(t *testing.T) {
	var frame, _ = EncodeAX25("CQ", "N0CALL", []byte{'o', 'k', 0xff, 0xfe})

	var _, err = DecodeAX25(frame)
	require.ErrorIs(t, err, ErrInvalidEncoding)

	var de *DecodeError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, frame, de.Raw)
}

func Test_EncodeAX25(t *testing.T) {
	var frame, err = EncodeAX25("cq-15", "N0CALL-7", []byte("hello"))
	require.NoError(t, err)

	assert.Len(t, frame, 16+5)
	assert.Equal(t, byte(0x80|0x60|15<<1), frame[6], "destination SSID, command bit")
	assert.Equal(t, byte(0x60|7<<1|0x01), frame[13], "source SSID, end of address")

	var d, _ = DecodeAX25(frame)
	assert.Equal(t, "N0CALL-7>CQ-15: hello", d.String())
	assert.Equal(t, []byte("hello"), Frame(frame).Info())
	assert.Equal(t, 21, Frame(frame).Len())
}

func Test_EncodeAX25_BadAddress(t *testing.T) {
	for _, addr := range []string{"", "TOOLONGCALL", "N0-CALL-1", "N0CALL-16", "N0CALL-x", "N0 CALL"} {
		var _, err = EncodeAX25(addr, "N0CALL", nil)
		var ae *ArgumentError
		assert.ErrorAs(t, err, &ae, "%q", addr)
	}
}

func Test_AX25FromText(t *testing.T) {
	var frame, err = AX25FromText("N0CALL-1>CQ: hello: world")
	require.NoError(t, err)

	var d, _ = DecodeAX25(frame)
	assert.Equal(t, "N0CALL-1>CQ-0: hello: world", d.String())

	// String output goes back in unchanged.
	again, err := AX25FromText(d.String())
	require.NoError(t, err)
	assert.Equal(t, frame, again)

	_, err = AX25FromText("N0CALL>CQ")
	assert.Error(t, err)

	_, err = AX25FromText("N0CALL CQ:info")
	assert.Error(t, err)
}

func Test_Frame_Info(t *testing.T) {
	assert.Nil(t, Frame(make([]byte, 10)).Info())
	assert.Empty(t, Frame(make([]byte, 16)).Info())
	assert.Equal(t, strings.Repeat("x", 3), string(Frame(append(make([]byte, 16), "xxx"...)).Info()))
}
