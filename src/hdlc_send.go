package soti

/*------------------------------------------------------------------
 *
 * Purpose:	Convert frames to an HDLC bit stream.
 *
 * Description:	This is the mirror image of hdlc_rec.go and exists so we
 *		have a synthetic byte source (soti-genframes) and can test
 *		the receiver against known-good input.
 *
 *		Octets go out least significant bit first.  Between the
 *		flags, a 0 is inserted after every run of five 1 bits so
 *		the flag pattern can never appear inside a frame.
 *
 *---------------------------------------------------------------*/

const hdlcFlag byte = 0x7e

// bitStuff returns the stuffed bits (one per byte) for in, sent LSB
// first, without flags.
func bitStuff(in []byte) []byte {
	var out = make([]byte, 0, len(in)*8+len(in)*8/5)

	var ones = 0
	for _, b := range in {
		for i := range 8 {
			var v = (b >> i) & 1
			out = append(out, v)

			if v == 1 {
				ones++
				if ones == 5 {
					out = append(out, 0)
					ones = 0
				}
			} else {
				ones = 0
			}
		}
	}

	return out
}

// HDLCEncodeBits builds the complete bit sequence for one frame: preamble
// flags, opening flag, stuffed frame and FCS, closing flag.
func HDLCEncodeBits(frame []byte, preambleFlags int) []byte {
	var fcs = fcsCalc(frame)

	var withFCS = make([]byte, 0, len(frame)+2)
	withFCS = append(withFCS, frame...)
	withFCS = append(withFCS, byte(fcs&0xff), byte(fcs>>8))

	var bits []byte
	for range preambleFlags + 1 {
		bits = append(bits, flagBits...)
	}

	bits = append(bits, bitStuff(withFCS)...)
	bits = append(bits, flagBits...)

	return bits
}

// HDLCEncode is HDLCEncodeBits packed into bytes, most significant bit
// first.  The final byte is padded with 0 bits, which can never complete a
// flag or abort pattern.
func HDLCEncode(frame []byte, preambleFlags int) []byte {
	return packBits(HDLCEncodeBits(frame, preambleFlags))
}

func packBits(bits []byte) []byte {
	var out = make([]byte, 0, (len(bits)+7)/8)

	for i := 0; i < len(bits); i += 8 {
		var b byte
		for j := range 8 {
			var v byte
			if i+j < len(bits) {
				v = bits[i+j]
			}
			b = b<<1 | v
		}
		out = append(out, b)
	}

	return out
}
