package bitparse

// INAVWordBits is the fixed length of a Galileo I/NAV word (spec.md §3).
const INAVWordBits = 240

// Band identifies which I/NAV carrier a word or page arrived on.
type Band int

const (
	BandE1B Band = iota
	BandE5bI
)

func (b Band) String() string {
	if b == BandE5bI {
		return "E5b-I"
	}
	return "E1-B"
}

// INAVWord is the typed decoding of one 240-bit I/NAV word.
type INAVWord struct {
	Type int  // word-type 0..16
	Body Bits // word-body bits, excluding the 6-bit type field and tail
}

// even/odd page layout per the Galileo OS SIS ICD: the even page carries
// the word type (6 bits) and 112 bits of data; the odd page carries 16
// bits of data, a 6-bit reserved-1 field, 22 bits of SAR/spare, a 24-bit
// CRC, 8 bits of reserved-2 and 6 tail bits. The full 240-bit word handed
// to ParseINAVWord is the concatenation already time-aligned and
// tail/CRC-stripped by the collaborator that demodulated it, leaving a
// 6-bit type field followed by 234 body bits.
const (
	inavTypeFieldWidth = 6
)

// ParseINAVWord decodes a 240-bit I/NAV word buffer.
func ParseINAVWord(b Bits) (INAVWord, error) {
	if len(b) != INAVWordBits {
		return INAVWord{}, &ErrMalformedBits{Where: "ParseINAVWord", Want: INAVWordBits, Got: len(b)}
	}
	return INAVWord{
		Type: int(b.Uint(0, inavTypeFieldWidth)),
		Body: b.Slice(inavTypeFieldWidth, INAVWordBits-inavTypeFieldWidth),
	}, nil
}

// Ephemeris/clock accessors for word types 1-5 (ADKD 0 and 12 draw their
// NavBlock bits from these words; field widths per the Galileo OS SIS ICD
// issue 2.1, section 4.3). Only the fields this engine authenticates or
// uses for bookkeeping are exposed; a full navigation-message decoder is
// out of scope (spec.md §1 Non-goals).

// IODNav returns the Issue Of Data, Navigation field carried by word
// types 1-5, which identifies the ephemeris/clock batch a word belongs to.
func (w INAVWord) IODNav() (uint64, bool) {
	switch w.Type {
	case 1, 2, 3, 4, 5:
		return w.Body.Uint(0, 10), true
	default:
		return 0, false
	}
}

// GSTSubframeOffset returns the 2-bit spare/GST-subframe-fraction field
// carried in the first two body bits of word type 0, used to align E1-B and E5b-I pages
// within a subframe.
func (w INAVWord) GSTSubframeOffset() (uint64, bool) {
	if w.Type != 0 {
		return 0, false
	}
	return w.Body.Uint(0, 2), true
}
