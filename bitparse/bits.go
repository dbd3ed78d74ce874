// Package bitparse converts raw fixed-length bit buffers carried by the
// Galileo I/NAV and OSNMA streams into typed records. Every function here
// is pure and allocates nothing beyond the returned value: this is the
// bottom of the data flow (spec.md §2 step 1) and runs once per received
// word or page.
package bitparse

import "fmt"

// ErrMalformedBits is returned whenever a bit buffer has the wrong length
// or carries a reserved-bit pattern the ICD forbids. Callers discard the
// input; nothing here ever panics.
type ErrMalformedBits struct {
	Where string
	Want  int
	Got   int
}

func (e *ErrMalformedBits) Error() string {
	return fmt.Sprintf("bitparse: %s: want %d bits, got %d", e.Where, e.Want, e.Got)
}

// Bits is a packed, MSB-first bit buffer: Bits[0] is bit 0 of the message.
// Galileo ICDs are specified bit-by-bit, so callers build one of these
// directly from the 240-bit I/NAV word or 40-bit OSNMA page rather than
// going through a byte-oriented decoder.
type Bits []bool

// FromBytes unpacks a byte slice into a Bits buffer of exactly n bits,
// MSB-first within each byte. Used by collaborators (Galmon decoding,
// serial-line hex decoding) that receive byte-aligned data.
func FromBytes(b []byte, n int) (Bits, error) {
	if (n+7)/8 != len(b) {
		return nil, &ErrMalformedBits{Where: "FromBytes", Want: (n + 7) / 8 * 8, Got: len(b) * 8}
	}
	out := make(Bits, n)
	for i := 0; i < n; i++ {
		byteIdx := i / 8
		bitIdx := 7 - uint(i%8)
		out[i] = (b[byteIdx]>>bitIdx)&1 == 1
	}
	return out, nil
}

// Uint extracts the unsigned integer formed by bits [start, start+width)
// of b, MSB-first.
func (b Bits) Uint(start, width int) uint64 {
	var v uint64
	for i := 0; i < width; i++ {
		v <<= 1
		if b[start+i] {
			v |= 1
		}
	}
	return v
}

// Int extracts a two's-complement signed integer from bits [start,
// start+width), MSB-first, as the Galileo OS SIS ICD encodes all signed
// navigation parameters.
func (b Bits) Int(start, width int) int64 {
	v := b.Uint(start, width)
	signBit := uint64(1) << (width - 1)
	if v&signBit != 0 {
		v -= signBit << 1
	}
	return int64(v)
}

// Slice returns the sub-range [start, start+width) as a fresh Bits value,
// used to extract a NavBlock's contribution from a word body.
func (b Bits) Slice(start, width int) Bits {
	out := make(Bits, width)
	copy(out, b[start:start+width])
	return out
}

// Pack serializes b into a big-endian byte slice, zero-padding the final
// byte. Used when a NavBlock's accumulated bits must be handed to a MAC
// function as a byte string.
func (b Bits) Pack() []byte {
	out := make([]byte, (len(b)+7)/8)
	for i, bit := range b {
		if bit {
			out[i/8] |= 1 << uint(7-i%8)
		}
	}
	return out
}
