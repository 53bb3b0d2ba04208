package soti

import "slices"

/*------------------------------------------------------------------
 *
 * Purpose:	Growable bit buffer for frame extraction.
 *
 * Description:	Bits are held one per byte (0 or 1) behind a read cursor.
 *		Dropping a prefix only moves the cursor; the consumed
 *		region is reclaimed by compact() once it dominates the
 *		backing array, so a long-running stream never pays for
 *		repeated full-buffer copies.
 *
 *		Indices passed to and returned by the methods are relative
 *		to the current head of the buffer.
 *
 *---------------------------------------------------------------*/

// Compaction happens when at least this many bits are dead and they
// make up more than half of the backing array.
const bitBufCompactMin = 4096

type BitStreamBuffer struct {
	bits []byte
	off  int
}

func NewBitStreamBuffer() *BitStreamBuffer {
	return &BitStreamBuffer{}
}

// Len is the number of live bits.
func (b *BitStreamBuffer) Len() int {
	return len(b.bits) - b.off
}

// Append adds bits (each 0 or non-zero) to the tail.
func (b *BitStreamBuffer) Append(bits ...byte) {
	for _, v := range bits {
		b.bits = append(b.bits, bitValue(v))
	}
}

// AppendBytes adds each byte most significant bit first, which is the
// order the bits were transmitted in.
func (b *BitStreamBuffer) AppendBytes(p []byte) {
	b.bits = slices.Grow(b.bits, len(p)*8)

	for _, octet := range p {
		for i := 7; i >= 0; i-- {
			b.bits = append(b.bits, (octet>>i)&1)
		}
	}
}

// FindPattern returns the first index at or after start where pattern
// occurs.
func (b *BitStreamBuffer) FindPattern(pattern []byte, start int) (int, bool) {
	var live = b.bits[b.off:]

	if start < 0 {
		start = 0
	}

	if len(pattern) == 0 {
		return start, start <= len(live)
	}

	for i := start; i+len(pattern) <= len(live); i++ {
		var match = true

		for j, p := range pattern {
			if live[i+j] != p {
				match = false
				break
			}
		}

		if match {
			return i, true
		}
	}

	return -1, false
}

// Slice is a read-only view of [start, end). It is only valid until the
// next mutation.
func (b *BitStreamBuffer) Slice(start int, end int) []byte {
	var live = b.bits[b.off:]

	start = clamp(start, 0, len(live))
	end = clamp(end, start, len(live))

	return live[start:end:end]
}

// DropBefore discards every bit before index.
func (b *BitStreamBuffer) DropBefore(index int) {
	b.off += clamp(index, 0, b.Len())
	b.compact()
}

// KeepTail discards all but the last n bits.
func (b *BitStreamBuffer) KeepTail(n int) {
	if b.Len() > n {
		b.DropBefore(b.Len() - n)
	}
}

func (b *BitStreamBuffer) Reset() {
	b.bits = b.bits[:0]
	b.off = 0
}

func (b *BitStreamBuffer) compact() {
	if b.off == len(b.bits) {
		b.Reset()
		return
	}

	if b.off < bitBufCompactMin || b.off < len(b.bits)/2 {
		return
	}

	var n = copy(b.bits, b.bits[b.off:])
	b.bits = b.bits[:n]
	b.off = 0
}

func bitValue(v byte) byte {
	return IfThenElse[byte](v != 0, 1, 0)
}

func clamp(v int, lo int, hi int) int {
	return max(lo, min(v, hi))
}
