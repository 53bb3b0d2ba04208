package soti

/********************************************************************************
 *
 * Purpose:	Extract HDLC frames from a stream of bits.
 *
 * Description:	Bits arrive in arbitrarily sized chunks (UDP datagrams from the
 *		SDR flow graph) and are appended to a BitStreamBuffer.
 *		NextFrame looks for a pair of flags, removes the bit stuffing
 *		from what is between them, and turns the result back into
 *		octets.
 *
 *		Everything that is not a good frame comes back as a
 *		*DecodeError so the caller can log it and carry on.
 *
 *******************************************************************************/

var flagBits = []byte{0, 1, 1, 1, 1, 1, 1, 0}

var abortBits = []byte{1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1}

const (
	// Two 7 byte addresses, control, protocol id, and at least one octet
	// of information.
	AX25MinFrameLen = 17

	// 63 byte radio packets less the two flag bytes.
	DefaultMaxFrameLen = 61

	fcsBits = 16
)

type HDLCDeframer struct {
	buf *BitStreamBuffer

	MinFrameLen int
	MaxFrameLen int // 0 means no limit.
	CheckFCS    bool

	// Bits thrown away while looking for an opening flag.
	skipped int
}

func NewHDLCDeframer(minFrameLen int, maxFrameLen int, checkFCS bool) *HDLCDeframer {
	return &HDLCDeframer{
		buf:         NewBitStreamBuffer(),
		MinFrameLen: minFrameLen,
		MaxFrameLen: maxFrameLen,
		CheckFCS:    checkFCS,
	}
}

// Write appends a chunk of received bytes.  It never fails.
func (d *HDLCDeframer) Write(p []byte) (int, error) {
	d.buf.AppendBytes(p)
	return len(p), nil
}

// Pending is the number of buffered bits not yet consumed.
func (d *HDLCDeframer) Pending() int {
	return d.buf.Len()
}

// TakeSkipped returns the number of bits discarded outside any frame
// since the last call, and resets it.  A frame that started right on the
// previous frame's closing flag ends up here.
func (d *HDLCDeframer) TakeSkipped() int {
	var n = d.skipped
	d.skipped = 0
	return n
}

/*-------------------------------------------------------------------
 *
 * Name:	NextFrame
 *
 * Purpose:	Pull the next frame out of the buffered bits.
 *
 * Returns:	The frame, with flags, stuffing and FCS removed.
 *
 *		ErrNoFrame when more bits are needed.  Call again after
 *		the next Write.
 *
 *		*DecodeError (TooShort, TooLong, Aborted, BadFCS) when a
 *		span was found and thrown away.  The buffer has already
 *		moved past it, so the caller just logs and calls again.
 *
 *--------------------------------------------------------------------*/

func (d *HDLCDeframer) NextFrame() (Frame, error) {
	for {
		var start, found = d.buf.FindPattern(flagBits, 0)
		if !found {
			// The start of a flag could be sitting at the very end.
			d.skipped += max(0, d.buf.Len()-(len(flagBits)-1))
			d.buf.KeepTail(len(flagBits) - 1)
			return nil, ErrNoFrame
		}

		d.skipped += start
		d.buf.DropBefore(start)

		var end, closed = d.buf.FindPattern(flagBits, len(flagBits))

		var limit = IfThenElse(closed, end, d.buf.Len())
		if abort, ok := d.buf.FindPattern(abortBits, len(flagBits)); ok && abort < limit {
			var through = abort + len(abortBits)
			var raw = packBits(d.buf.Slice(len(flagBits), abort))
			d.buf.DropBefore(through)

			return nil, &DecodeError{Kind: Aborted, Raw: raw, Detail: "transmitter gave up mid-frame"}
		}

		if !closed {
			if d.MaxFrameLen > 0 && d.buf.Len() > d.maxSpanBits() {
				var raw = packBits(d.buf.Slice(len(flagBits), d.buf.Len()))
				d.buf.DropBefore(len(flagBits))

				return nil, &DecodeError{Kind: TooLong, Raw: raw, Detail: "no closing flag"}
			}

			return nil, ErrNoFrame
		}

		if end == len(flagBits) {
			// Back to back flags are idle fill, not a frame.  The
			// second one may open the next frame.
			d.buf.DropBefore(end)
			continue
		}

		var frame, err = d.decodeSpan(d.buf.Slice(len(flagBits), end))
		d.buf.DropBefore(end + len(flagBits))

		return frame, err
	}
}

// The most bits an acceptable frame plus FCS can occupy once stuffed,
// with the opening flag and a little slack for a partial closing flag.
func (d *HDLCDeframer) maxSpanBits() int {
	var octets = d.MaxFrameLen + fcsBits/8
	return len(flagBits) + octets*8*6/5 + 2*len(flagBits)
}

func (d *HDLCDeframer) decodeSpan(stuffed []byte) (Frame, error) {
	var bits = unstuff(stuffed)

	if len(bits) < fcsBits {
		return nil, &DecodeError{Kind: TooShort, Raw: packReversed(bits), Detail: "0 bytes"}
	}

	var body = bits[:len(bits)-fcsBits]
	var frame = packReversed(body)

	if len(frame) < d.MinFrameLen {
		return nil, &DecodeError{Kind: TooShort, Raw: frame, Detail: lengthDetail(len(frame))}
	}

	if d.MaxFrameLen > 0 && len(frame) > d.MaxFrameLen {
		return nil, &DecodeError{Kind: TooLong, Raw: frame, Detail: lengthDetail(len(frame))}
	}

	if d.CheckFCS {
		if len(bits)%8 != 0 {
			return nil, &DecodeError{Kind: BadFCS, Raw: frame, Detail: "frame is not a whole number of octets"}
		}

		var fcs = packReversed(bits[len(bits)-fcsBits:])
		var actual = uint16(fcs[0]) | uint16(fcs[1])<<8
		var expected = fcsCalc(frame)

		if actual != expected {
			return nil, &DecodeError{Kind: BadFCS, Raw: frame, Detail: fcsDetail(actual, expected)}
		}
	}

	return Frame(frame), nil
}

// unstuff removes the 0 that follows every run of five 1 bits.
func unstuff(stuffed []byte) []byte {
	var out = make([]byte, 0, len(stuffed))

	var ones = 0
	for _, v := range stuffed {
		if v != 0 {
			ones++
			out = append(out, 1)
			continue
		}

		if ones >= 5 {
			ones = 0
			continue
		}

		ones = 0
		out = append(out, 0)
	}

	return out
}

// packReversed turns LSB-first groups of 8 bits into octets.  A short
// final group lands in the high bits of the last octet.
func packReversed(bits []byte) []byte {
	var out = make([]byte, 0, (len(bits)+7)/8)

	for i := 0; i < len(bits); i += 8 {
		var k = min(8, len(bits)-i)

		var b byte
		for j := range k {
			b |= bits[i+j] << (j + 8 - k)
		}
		out = append(out, b)
	}

	return out
}
