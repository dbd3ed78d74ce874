// Package mack disassembles a subframe's reassembled ~480-bit MACK block
// into its tag list and disclosed key, authenticates the disclosed key
// against the TESLA chain, and verifies the previous subframe's buffered
// tags once that key is authenticated (spec.md §4.4, §4.5).
package mack

import (
	"errors"

	"osnma/bitparse"
	"osnma/dictionaries"
	"osnma/store"
)

// MACSEQBits is the width of the MACSEQ field every MACK block carries,
// authenticating the sequence of flex-ADKD choices made by its flex
// slots (spec.md §4.5).
const MACSEQBits = 12

// prndFieldBits is the width of a tag slot's PRN-D field.
const prndFieldBits = 8

// flexADKDBits is the width of a flex slot's inline ADKD field.
const flexADKDBits = 4

// ErrUnknownTable is returned when a chain names a MAC look-up table
// this engine has no row data for.
var ErrUnknownTable = errors.New("mack: unknown MAC look-up table")

// disassembled is the raw field decoding of one MACK block, before any
// cryptographic verification. The MACK payload itself carries no CID
// field of its own: a chain identity is only ever visible on the wire in
// the subframe's NMA-Header (spec.md §4.1 "Exposes NMA-Header ...
// CID 2 bits"), so classifying a MACK into its chain during a
// renewal/revocation window (spec.md §4.4 "concurrency of chains") is the
// caller's job, matching that header's CID against the installed chain
// descriptors (see engine.chainForCID).
type disassembled struct {
	Tag0         store.TagSlot
	MACSEQ       []byte
	FlexADKDs    []int
	Tags         []store.TagSlot
	DisclosedKey []byte
}

// disassemble splits bits (the full reassembled MACK payload) into its
// fields per the MAC look-up table tableID names (spec.md §4.1, §4.5).
func disassemble(svn store.SVN, tableID int, keyBits, tagBits int, bits bitparse.Bits) (disassembled, error) {
	table, ok := dictionaries.MACLookupTables[tableID]
	if !ok {
		return disassembled{}, ErrUnknownTable
	}

	off := 0
	need := func(n int) bool { return off+n <= len(bits) }

	if !need(tagBits) {
		return disassembled{}, &bitparse.ErrMalformedBits{Where: "mack.disassemble", Want: tagBits, Got: len(bits) - off}
	}
	tag0 := bits.Slice(off, tagBits).Pack()
	off += tagBits

	if !need(MACSEQBits) {
		return disassembled{}, &bitparse.ErrMalformedBits{Where: "mack.disassemble", Want: MACSEQBits, Got: len(bits) - off}
	}
	macseq := bits.Slice(off, MACSEQBits).Pack()
	off += MACSEQBits

	var tags []store.TagSlot
	var flexADKDs []int
	for slot := 1; ; slot++ {
		row, ok := table[slot]
		if !ok {
			break
		}
		if !need(tagBits + prndFieldBits) {
			return disassembled{}, &bitparse.ErrMalformedBits{Where: "mack.disassemble", Want: tagBits + prndFieldBits, Got: len(bits) - off}
		}
		tag := bits.Slice(off, tagBits).Pack()
		off += tagBits
		prnd := int(bits.Uint(off, prndFieldBits))
		off += prndFieldBits

		adkd := row.ADKD
		if row.Flex {
			if !need(flexADKDBits) {
				return disassembled{}, &bitparse.ErrMalformedBits{Where: "mack.disassemble", Want: flexADKDBits, Got: len(bits) - off}
			}
			adkd = int(bits.Uint(off, flexADKDBits))
			off += flexADKDBits
			flexADKDs = append(flexADKDs, adkd)
		}
		tags = append(tags, store.TagSlot{Tag: tag, ADKD: store.ADKD(adkd), PRND: store.SVN(prnd), Flex: row.Flex})
	}

	if !need(keyBits) {
		return disassembled{}, &bitparse.ErrMalformedBits{Where: "mack.disassemble", Want: keyBits, Got: len(bits) - off}
	}
	key := bits.Slice(off, keyBits).Pack()

	return disassembled{
		Tag0:         store.TagSlot{Tag: tag0, ADKD: store.ADKD0, PRND: svn},
		MACSEQ:       macseq,
		FlexADKDs:    flexADKDs,
		Tags:         tags,
		DisclosedKey: key,
	}, nil
}
