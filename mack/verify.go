package mack

import (
	"osnma/bitparse"
	"osnma/crypto"
	"osnma/gst"
	"osnma/store"
	"osnma/tesla"
)

// gapForADKD returns the subframe delta between a tag's own disclosure
// subframe and the NavBlock it authenticates (spec.md §4.5).
func gapForADKD(adkd store.ADKD) int64 {
	if adkd == store.ADKD12 {
		return store.SlowMACGap
	}
	return store.FastMACGap
}

// Process disassembles one subframe's MACK block, authenticates its
// disclosed key against the TESLA chain, and — once authenticated —
// verifies the previous subframe's buffered tag list with that key,
// draining verified tags into their target NavBlocks' accumulators
// (spec.md §4.4 step, §4.5, §4.6). status is the NMA-Status this engine
// last observed, carried into every tag's MAC header (spec.md §4.5 step
// 4); the ICD gives NMA-Status per subframe, but this engine retains
// only the latest value rather than a history keyed by subframe, so a
// status change lands one subframe later here than on the wire — a
// deliberate simplification, since NMA-Status changes are rare and
// persist across many subframes (see DESIGN.md).
//
// A TESLA chain authenticates one key per subframe, disclosed one
// subframe after the tags it was used to compute; Process is called
// once per (svn, subframe) with the full reassembled MACK payload.
func Process(st *store.Storage, desc *store.ChainDescriptor, svn store.SVN, g gst.Time, bits bitparse.Bits, status bitparse.NMAStatus) error {
	d, err := disassemble(svn, desc.MACLT, desc.KeyBits, desc.TagBits, bits)
	if err != nil {
		st.Telemetry.MalformedBits++
		return err
	}

	rec := st.MACKBlock(svn, g)
	rec.CID = desc.CID
	rec.DisclosedKey = d.DisclosedKey
	rec.MACSEQ = d.MACSEQ
	rec.FlexADKDs = d.FlexADKDs
	rec.Tag0 = d.Tag0
	rec.Tags = d.Tags

	keyGST := g.Add(-1)
	if err := tesla.Admit(desc, d.DisclosedKey, keyGST); err != nil {
		st.Telemetry.TESLAChainBroken++
		return err
	}

	prev := st.MACKBlock(svn, keyGST)
	drainPrevious(st, desc, svn, keyGST, d.DisclosedKey, prev, status)
	return nil
}

// drainPrevious verifies prev's MACSEQ and tag list using the
// just-authenticated key that produced them, then feeds every
// successfully verified tag into its target NavBlock's accumulator.
func drainPrevious(st *store.Storage, desc *store.ChainDescriptor, svn store.SVN, prevGST gst.Time, key []byte, prev *store.MACKRecord, status bitparse.NMAStatus) {
	if prev.Verified || prev.DisclosedKey == nil {
		return
	}

	macseqMsg := flexADKDMessage(prevGST, prev.FlexADKDs)
	ok, err := crypto.VerifyMAC(desc.MACFunc, key, macseqMsg, prev.MACSEQ)
	if err != nil || !ok {
		st.Telemetry.MACSEQInvalid++
		return
	}

	verifySlot(st, desc, svn, prevGST, key, 0, prev.Tag0, status)
	for i, t := range prev.Tags {
		verifySlot(st, desc, svn, prevGST, key, i+1, t, status)
	}
	prev.Verified = true
}

// verifySlot checks one tag against its target NavBlock and, if valid,
// records its contribution toward that NavBlock's authentication total.
// slot is tag0's position (0) or a subsequent tag's 0-based table-row
// index (1-based once turned into CTR below).
func verifySlot(st *store.Storage, desc *store.ChainDescriptor, svnA store.SVN, gstSf gst.Time, key []byte, slot int, tag store.TagSlot, status bitparse.NMAStatus) {
	gap := gapForADKD(tag.ADKD)
	navGST := gstSf.Add(-gap)
	nb, ok := st.NavBlock(store.NavBlockKey{ADKD: tag.ADKD, PRND: tag.PRND, GST: navGST})
	if !ok {
		st.Telemetry.MissingNavBlock++
		return
	}

	// CTR is the 1-based tag position within the MACK block: tag0 is
	// CTR=1, the table's first subsequent slot is CTR=2 (spec.md §4.5
	// steps 4/Tag0).
	ctr := slot + 1
	msg := tagMessage(gstSf, ctr, status, svnA, tag.PRND, nb.Bits)
	valid, err := crypto.VerifyMAC(desc.MACFunc, key, msg, tag.Tag)
	if err != nil || !valid {
		st.Telemetry.TagMismatch++
		return
	}

	threshold := st.Config().TagAccumulationThreshold
	nb.AddTagContribution(svnA, gstSf, slot, len(tag.Tag)*8, threshold)
}

// tagMessage builds the header-plus-NavBlock message a tag's MAC covers:
// (PRN_A ‖ PRN_D ‖ GST_sf ‖ CTR ‖ NMA-Status) ‖ NavBlock bits (spec.md
// §4.5 step 4). Tag0 is the same with ctr=1 and prnD=prnA.
func tagMessage(gstSf gst.Time, ctr int, status bitparse.NMAStatus, prnA, prnD store.SVN, navBits []byte) []byte {
	enc := crypto.EncodeGSTSubframe(gstSf.WN, gstSf.TOW)
	msg := make([]byte, 0, 1+1+4+1+1+len(navBits))
	msg = append(msg, byte(prnA), byte(prnD))
	msg = append(msg, enc[:]...)
	msg = append(msg, byte(ctr), byte(status))
	msg = append(msg, navBits...)
	return msg
}

// flexADKDMessage builds the message MACSEQ covers: GST ‖ the ordered
// list of flex slots' chosen ADKDs (spec.md §4.5).
func flexADKDMessage(gstSf gst.Time, flexADKDs []int) []byte {
	enc := crypto.EncodeGSTSubframe(gstSf.WN, gstSf.TOW)
	msg := make([]byte, 0, 4+len(flexADKDs))
	msg = append(msg, enc[:]...)
	for _, a := range flexADKDs {
		msg = append(msg, byte(a))
	}
	return msg
}
