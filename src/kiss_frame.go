package soti

/*------------------------------------------------------------------
 *
 * Purpose:   	KISS framing for the feed of decoded frames.
 *
 * Description: The KISS TNC protocol is described in http://www.ka9q.net/papers/kiss.html
 *
 * 		Briefly, a frame is composed of
 *
 *			* FEND (0xC0)
 *			* Contents - with special escape sequences so a 0xc0
 *				byte in the data is not taken as end of frame.
 *			* FEND
 *
 *		The first byte of the contents has the port in the upper
 *		nybble and the command in the lower nybble.
 *
 *		We are receive only.  Every frame decoded off the air goes
 *		to the clients as a _0 Data Frame; anything the clients
 *		send us is unwrapped, logged and ignored.
 *
 *---------------------------------------------------------------*/

import (
	"bytes"
	"errors"
	"fmt"
)

const KISS_CMD_DATA_FRAME = 0

/*
 * Special characters used by SLIP protocol.
 */

const FEND = 0xC0
const FESC = 0xDB
const TFEND = 0xDC
const TFESC = 0xDD

const MAX_KISS_LEN = 2048 /* Spec calls for at least 1024. */

var errKISSNoEnd = errors.New("KISS frame should end with FEND")

// kissEncapsulate adds the FENDs and escapes.
func kissEncapsulate(in []byte) []byte {
	var buf bytes.Buffer

	buf.WriteByte(FEND)

	for _, b := range in {
		switch b {
		case FEND:
			buf.WriteByte(FESC)
			buf.WriteByte(TFEND)
		case FESC:
			buf.WriteByte(FESC)
			buf.WriteByte(TFESC)
		default:
			buf.WriteByte(b)
		}
	}

	buf.WriteByte(FEND)

	return buf.Bytes()
}

// KISSDataFrame is what goes to a client for a received frame.
func KISSDataFrame(port int, frame []byte) []byte {
	var msg = make([]byte, 0, len(frame)+1)
	msg = append(msg, byte(port<<4|KISS_CMD_DATA_FRAME))
	msg = append(msg, frame...)

	return kissEncapsulate(msg)
}

/*-------------------------------------------------------------------
 *
 * Name:        kissUnwrap
 *
 * Purpose:     Extract original data from a KISS frame.
 *
 * Inputs:	in	- FEND (optional), escaped data, FEND.
 *
 * Returns:	The type indicator byte followed by the data.  Protocol
 *		errors are reported but the best effort result is still
 *		returned, as a client with a small bug is better than no
 *		client.
 *
 *--------------------------------------------------------------------*/

func kissUnwrap(in []byte) ([]byte, error) {
	if len(in) < 2 {
		/* Need at least the "type indicator" byte and FEND. */
		return []byte{}, fmt.Errorf("KISS message less than minimum length")
	}

	var problem error

	if in[len(in)-1] == FEND {
		in = in[:len(in)-1] // Ignore last FEND
	} else {
		problem = errKISSNoEnd
	}

	if in[0] == FEND {
		in = in[1:] // Skip over optional leading FEND
	}

	var escapedMode = false
	var buf bytes.Buffer
	for _, b := range in {
		if b == FEND {
			problem = fmt.Errorf("KISS frame should not have FEND in the middle")
		}

		if escapedMode {
			switch b {
			case TFESC:
				buf.WriteByte(FESC)
			case TFEND:
				buf.WriteByte(FEND)
			default:
				problem = fmt.Errorf("KISS protocol error.  Found 0x%02x after FESC", b)
			}
			escapedMode = false
		} else if b == FESC {
			escapedMode = true
		} else {
			buf.WriteByte(b)
		}
	}

	return buf.Bytes(), problem
}

type kissState int

const (
	ksSearching  kissState = iota /* Looking for FEND to start KISS frame. */
	ksCollecting                  /* In process of collecting KISS frame. */
)

// kissFrameReader collects bytes from a client into KISS frames.
type kissFrameReader struct {
	state kissState
	msg   []byte
	noise []byte
}

// Feed takes the next byte and returns a complete, still escaped, frame
// once its closing FEND arrives.  Bytes outside a frame are noise.
func (kf *kissFrameReader) Feed(ch byte) []byte {
	switch kf.state {
	case ksSearching:
		if ch == FEND {
			kf.noise = kf.noise[:0]
			kf.msg = append(kf.msg[:0], ch)
			kf.state = ksCollecting
			return nil
		}

		kf.noise = append(kf.noise, ch)
		return nil

	default:
		if ch == FEND {
			if len(kf.msg) == 1 {
				/* Empty frame.  Just go on collecting. */
				return nil
			}

			var complete = append(kf.msg, ch)
			kf.msg = nil
			kf.state = ksSearching
			return complete
		}

		if len(kf.msg) < MAX_KISS_LEN {
			kf.msg = append(kf.msg, ch)
		} else {
			// Runaway; start over.
			kf.msg = kf.msg[:0]
			kf.state = ksSearching
		}
		return nil
	}
}
