package soti

/*------------------------------------------------------------------
 *
 * Name:	ax25_pad
 *
 * Purpose:	Packet assembler and disassembler for the frames the
 *		satellite beacons.
 *
 *		Only UI frames with exactly two addresses are used:
 *
 *	* Destination Address	6 octets + SSID octet
 *	* Source Address	6 octets + SSID octet
 *	* Control		0x03 for UI
 *	* Protocol ID		0xf0, no layer 3
 *	* Information		whatever is left, normally text
 *
 *	Each address is composed of:
 *
 *	* 6 upper case letters or digits, blank padded.
 *		These are shifted left one bit, leaving the LSB always 0.
 *
 *	* a 7th octet containing the SSID and flags.
 *
 *		C R R SSID 0
 *
 *		The LSB is 1 on the last address (the source, since we
 *		never have digipeaters).
 *
 *	The receive side is lenient: control and protocol id are reported
 *	as they are, and the C/R and reserved bits are ignored.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	AX25_ADDR_LEN     = 7
	AX25_CALL_LEN     = 6
	AX25_MAX_SSID     = 15
	AX25_UI_FRAME     = 0x03
	AX25_PID_NO_LAYER = 0xf0

	ax25ControlOffset = 2 * AX25_ADDR_LEN
	ax25PIDOffset     = ax25ControlOffset + 1
	ax25InfoOffset    = ax25PIDOffset + 1
)

// Frame is one deframed octet sequence, flags and FCS already removed.
type Frame []byte

func (f Frame) Len() int {
	return len(f)
}

// Info is everything after the protocol id, or nil for a frame too short
// to have one.
func (f Frame) Info() []byte {
	if len(f) < ax25InfoOffset {
		return nil
	}

	return f[ax25InfoOffset:]
}

type DecodedAX25Frame struct {
	Destination     string
	DestinationSSID int
	Source          string
	SourceSSID      int
	Control         byte
	ProtocolID      byte
	Info            string
}

// String is the usual monitor format, always with both SSIDs.
func (d *DecodedAX25Frame) String() string {
	return fmt.Sprintf("%s-%d>%s-%d: %s", d.Source, d.SourceSSID, d.Destination, d.DestinationSSID, d.Info)
}

/*------------------------------------------------------------------------------
 *
 * Name:	DecodeAX25
 *
 * Purpose:	Take a deframed payload apart.
 *
 * Returns:	TooShort when there is not room for both addresses, control,
 *		protocol id, and one octet of information.
 *
 *		InvalidEncoding when the information field is not UTF-8.
 *		Raw carries the whole frame for the log.
 *
 *------------------------------------------------------------------------------*/

func DecodeAX25(payload []byte) (*DecodedAX25Frame, error) {
	if len(payload) < AX25MinFrameLen {
		return nil, &DecodeError{Kind: TooShort, Raw: payload, Detail: lengthDetail(len(payload))}
	}

	var info = payload[ax25InfoOffset:]
	if !utf8.Valid(info) {
		return nil, &DecodeError{Kind: InvalidEncoding, Raw: payload, Detail: "information field is not UTF-8"}
	}

	return &DecodedAX25Frame{
		Destination:     ax25GetCall(payload, 0),
		DestinationSSID: ax25GetSSID(payload, 0),
		Source:          ax25GetCall(payload, 1),
		SourceSSID:      ax25GetSSID(payload, 1),
		Control:         payload[ax25ControlOffset],
		ProtocolID:      payload[ax25PIDOffset],
		Info:            string(info),
	}, nil
}

// Address n, right shifted back into ASCII with trailing spaces trimmed.
func ax25GetCall(frame []byte, n int) string {
	var call = make([]byte, AX25_CALL_LEN)
	for i := range AX25_CALL_LEN {
		call[i] = frame[n*AX25_ADDR_LEN+i] >> 1
	}

	return strings.TrimRight(string(call), " ")
}

func ax25GetSSID(frame []byte, n int) int {
	return int(frame[n*AX25_ADDR_LEN+AX25_CALL_LEN]>>1) & 0x0f
}

/*------------------------------------------------------------------------------
 *
 * Name:	EncodeAX25
 *
 * Purpose:	Build a UI frame.  Used by soti-genframes and the tests.
 *
 * Inputs:	dst, src	- "CALL" or "CALL-n".
 *		info		- Information part.
 *
 *------------------------------------------------------------------------------*/

func EncodeAX25(dst string, src string, info []byte) ([]byte, error) {
	var frame = make([]byte, 0, ax25InfoOffset+len(info))

	for n, addr := range []string{dst, src} {
		var call, ssid, err = ax25ParseAddr(addr)
		if err != nil {
			return nil, err
		}

		for i := range AX25_CALL_LEN {
			var c byte = ' '
			if i < len(call) {
				c = call[i]
			}
			frame = append(frame, c<<1)
		}

		// Destination is a command (C=1), source is last.
		var last = byte(ssid<<1) | 0x60
		if n == 0 {
			last |= 0x80
		} else {
			last |= 0x01
		}
		frame = append(frame, last)
	}

	frame = append(frame, AX25_UI_FRAME, AX25_PID_NO_LAYER)
	frame = append(frame, info...)

	return frame, nil
}

// AX25FromText parses the monitor format, "SRC-n>DST-n:info".  A space
// after the colon, as printed by String, is dropped.
func AX25FromText(monitor string) ([]byte, error) {
	var addrs, info, found = strings.Cut(monitor, ":")
	if !found {
		return nil, argErrorf(monitor, "no colon after addresses")
	}

	var src, dst, ok = strings.Cut(addrs, ">")
	if !ok {
		return nil, argErrorf(addrs, "no '>' between source and destination")
	}

	return EncodeAX25(dst, src, []byte(strings.TrimPrefix(info, " ")))
}

func ax25ParseAddr(addr string) (string, int, error) {
	var call, ssidText, hasSSID = strings.Cut(strings.ToUpper(strings.TrimSpace(addr)), "-")

	if len(call) == 0 || len(call) > AX25_CALL_LEN {
		return "", 0, argErrorf(addr, "callsign must be 1 to %d characters", AX25_CALL_LEN)
	}

	for _, c := range call {
		if !(c >= 'A' && c <= 'Z') && !(c >= '0' && c <= '9') {
			return "", 0, argErrorf(addr, "callsign may only contain letters and digits")
		}
	}

	if !hasSSID {
		return call, 0, nil
	}

	var ssid, err = strconv.Atoi(ssidText)
	if err != nil || ssid < 0 || ssid > AX25_MAX_SSID {
		return "", 0, argErrorf(addr, "SSID must be 0 to %d", AX25_MAX_SSID)
	}

	return call, ssid, nil
}
