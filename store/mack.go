package store

// TagSlot is one raw tag field extracted from a MACK block, prior to
// verification (spec.md §4.5).
type TagSlot struct {
	Tag  []byte
	ADKD ADKD
	PRND SVN
	COP  int
	Flex bool
}

// MACKRecord is everything disassembled from one SVN's MACK block for
// one subframe, pending TESLA authentication of its disclosed key
// (spec.md §4.5 step 1: "buffer the tag list against K_n for later
// verification").
type MACKRecord struct {
	Key MACKKey

	CID         int
	DisclosedKey []byte
	MACSEQ      []byte
	FlexADKDs   []int
	Tag0        TagSlot
	Tags        []TagSlot

	// Verified is set once the disclosed key has been authenticated and
	// this record's tags have been drained into the tag verifier.
	Verified bool
}
