// Package engine is the top-level OSNMA receiver state machine: it wires
// the bit parsers, the bounded storage, the DSM reassembler/verifiers,
// the TESLA chain verifier and the MACK tag verifier into the two feed
// operations a collaborator drives (spec.md §2, §4.7). No method here
// ever returns an error to a caller that would stop the feed — every
// failure increments a store.Telemetry counter and is otherwise
// swallowed (spec.md §7 propagation policy); FeedINAV/FeedOSNMA return
// nothing. Buffer-length checks happen earlier, in the bitparse parsers
// that build their typed INAVWord/OSNMAPage arguments.
package engine

import (
	"osnma/bitparse"
	"osnma/dsm"
	"osnma/gst"
	"osnma/mack"
	"osnma/store"
)

// dsmIDSplit is the DSM-ID boundary this engine uses to tell a DSM-KROOT
// stream from a DSM-PKR stream apart (spec.md §4.2): IDs below it carry
// chain-renewal KROOTs, IDs at or above it carry public-key material.
const dsmIDSplit = 12

// Engine is the receiver's single stateful core. It owns a Storage and
// the DSM reassembler built on top of it; everything else (crypto, DSM
// field parsing, MACK disassembly) is pure functions over that state.
type Engine struct {
	st          *store.Storage
	reassembler *dsm.Reassembler

	// lastHeader is the most recently parsed NMA-Header: the engine's
	// only view of the top-level CPKS/NMA-Status state machine (spec.md
	// §4.7) and of which CID is currently live (spec.md §4.4).
	lastHeader bitparse.NMAHeader
}

// New constructs an Engine with the given storage configuration.
func New(cfg store.Config) *Engine {
	st := store.New(cfg)
	return &Engine{st: st, reassembler: dsm.NewReassembler(st)}
}

// Storage exposes the engine's storage for collaborators that need to
// read telemetry, the public-key set, or chain status directly.
func (e *Engine) Storage() *store.Storage { return e.st }

// InstallInitialKeyMaterial seeds the public-key set and Merkle root
// before any OSNMA data has been received, as a receiver normally ships
// with a manufacturer-provisioned anchor (spec.md §6).
func (e *Engine) InstallInitialKeyMaterial(entry store.PublicKeyEntry, merkleRoot [32]byte) {
	e.st.PubKeys.SetCurrent(entry)
	e.st.MerkleRoot = merkleRoot
	e.st.HasMerkleRoot = true
}

// FeedINAV admits one decoded I/NAV word for (svn, band) at subframe g,
// and composes a NavBlock once every word its ADKD depends on has
// arrived (spec.md §4.6).
func (e *Engine) FeedINAV(svn store.SVN, band bitparse.Band, g gst.Time, word bitparse.INAVWord) {
	e.st.AdmitINAVWord(svn, band, g, word)
	if band != bitparse.BandE1B {
		return
	}
	e.composeNavBlock(store.ADKD0, svn, g)
	e.composeNavBlock(store.ADKD12, svn, g)
	e.composeTimingBlock(g)
}

// ephemerisWordTypes are the I/NAV word types ADKD 0 and 12 draw their
// NavBlock bits from (spec.md §3, bitparse.INAVWord.IODNav).
var ephemerisWordTypes = [5]int{1, 2, 3, 4, 5}

// composeNavBlock assembles the ephemeris/clock NavBlock for adkd once
// every contributing word type has arrived this subframe, discarding the
// block instead if a later word disagrees with what was already stored
// (spec.md §3 invariants).
func (e *Engine) composeNavBlock(adkd store.ADKD, svn store.SVN, g gst.Time) {
	var bits []byte
	for _, t := range ephemerisWordTypes {
		w, ok := e.st.PendingINAVWord(svn, bitparse.BandE1B, t)
		if !ok {
			return
		}
		bits = append(bits, w.Body.Pack()...)
	}
	key := store.NavBlockKey{ADKD: adkd, PRND: svn, GST: g}
	nb := e.st.PutNavBlock(key)
	if nb.Bits == nil {
		nb.Bits = bits
		return
	}
	if !nb.Agrees(bits) {
		e.st.DropNavBlock(key)
	}
}

// composeTimingBlock assembles the ADKD=4 NavBlock, which authenticates
// system time itself rather than any one satellite's navigation data
// (spec.md §3: TimingPRND).
func (e *Engine) composeTimingBlock(g gst.Time) {
	key := store.NavBlockKey{ADKD: store.ADKD4, PRND: store.TimingPRND, GST: g}
	nb := e.st.PutNavBlock(key)
	if nb.Bits == nil {
		nb.Bits = []byte{byte(g.WN >> 4), byte(g.WN<<4) | byte(g.TOW>>16), byte(g.TOW >> 8), byte(g.TOW)}
	}
}

// FeedOSNMA admits one subframe's 40-bit OSNMA page for svn: the HKROOT
// octet is routed to the NMA-Header reader or the DSM reassembler
// depending on whether this subframe's I/NAV word type 0 has been seen
// on E1-B, and the 32-bit MACK fragment is accumulated until a full MACK
// block is available for MACK tag verification (spec.md §4.1, §4.2,
// §4.5).
func (e *Engine) FeedOSNMA(svn store.SVN, g gst.Time, page bitparse.OSNMAPage) {
	// DSM progress and the DSM timeout are measured in subframes of GST.
	now := g.Subframes(gst.Time{})

	if _, sawWord0 := e.st.PendingINAVWord(svn, bitparse.BandE1B, 0); sawWord0 {
		e.handleHeader(bitparse.ParseNMAHeader(page.HKROOT))
	} else {
		if msg, dsmID, complete := e.reassembler.Admit(svn, g, page.HKROOT, now); complete {
			e.dispatchDSM(dsmID, msg)
		}
	}

	if complete, full := e.st.AccumulateMACK(svn, g, page.MACK); complete {
		e.dispatchMACK(svn, g, full)
	}

	e.reassembler.EvictStale(now)
}

// dispatchDSM routes a completed DSM message to the KROOT or PKR
// verifier by its DSM-ID range (spec.md §4.2).
func (e *Engine) dispatchDSM(dsmID int, message []byte) {
	if dsmID < dsmIDSplit {
		status := store.ChainStatusCurrent
		if e.st.Chains[store.ChainStatusCurrent] != nil {
			status = store.ChainStatusNext
		}
		if e.lastHeader.CPKS == bitparse.CPKSNominal {
			status = store.ChainStatusCurrent
		}
		_ = dsm.VerifyKROOT(e.st, message, status)
		return
	}
	_ = dsm.VerifyPKR(e.st, message)
}

// dispatchMACK feeds a completed MACK block to the tag verifier under
// whichever chain the subframe's NMA-Header CID names (spec.md §4.4
// "concurrency of chains": each incoming MACK is classified by its CID
// into one chain). NMA-Status=Don't-Use halts new tag acceptance outright
// (spec.md §4.7).
func (e *Engine) dispatchMACK(svn store.SVN, g gst.Time, bits bitparse.Bits) {
	if e.lastHeader.Status == bitparse.NMAStatusDontUse {
		return
	}
	desc := e.chainForCID(e.lastHeader.CID)
	if desc == nil {
		return
	}
	_ = mack.Process(e.st, desc, svn, g, bits, e.lastHeader.Status)
}

// chainForCID returns the installed chain descriptor (current or next)
// whose CID matches cid, the classification spec.md §4.4 requires while
// two descriptors coexist during a chain renewal/revocation. The MACK
// payload itself names no CID (see mack.disassembled); this engine's only
// source for one is the subframe's own NMA-Header. Falling back to the
// current descriptor when neither matches keeps single-chain operation
// (no renewal in flight) working before any NMA-Header has been parsed.
func (e *Engine) chainForCID(cid int) *store.ChainDescriptor {
	for _, desc := range e.st.Chains {
		if desc != nil && desc.CID == cid {
			return desc
		}
	}
	return e.st.Chains[store.ChainStatusCurrent]
}

// handleHeader reacts to the NMA-Status/CPKS top-level state machine
// carried in every subframe's NMA-Header (spec.md §4.7): PKREV promotes
// the next public key to current on the first subframe where the status
// leaves PKREV with NMA-Status Operational again (the new PKID now
// current); NMT is recorded as an observable event; EOC/NPK/AM are
// already driven by the corresponding DSM-KROOT/DSM-PKR.
func (e *Engine) handleHeader(hdr bitparse.NMAHeader) {
	prev := e.lastHeader
	if hdr.CPKS == bitparse.CPKSNMT && prev.CPKS != bitparse.CPKSNMT {
		e.st.Telemetry.NMTObserved++
	}
	if prev.CPKS == bitparse.CPKSPKREV && hdr.CPKS != bitparse.CPKSPKREV && hdr.Status == bitparse.NMAStatusOperational {
		e.st.PubKeys.Promote()
	}
	e.lastHeader = hdr
}

// Authenticated returns the latest authenticated NavBlock for (adkd,
// prnD): the subframe of its most recent contributing tag and its
// NavBlock bytes, without the caller needing to already know that
// subframe (spec.md §6: authenticated(adkd, prn_d) -> Option<(GST,
// NavBlock bytes)>). It reports false while NMA-Status is Don't-Use: the
// NavBlock remains internally authenticated, but is not exposed to the
// consumer (spec.md §4.7).
func (e *Engine) Authenticated(adkd store.ADKD, prnD store.SVN) (gst.Time, []byte, bool) {
	if e.lastHeader.Status == bitparse.NMAStatusDontUse {
		return gst.Time{}, nil, false
	}
	nb, ok := e.st.LatestAuthenticated(adkd, prnD)
	if !ok {
		return gst.Time{}, nil, false
	}
	return nb.AuthenticatedAt, nb.Bits, true
}

// AuthenticatedTiming returns the latest authenticated timing (ADKD=4)
// NavBlock (spec.md §3 TimingPRND, §6 authenticated_timing()).
func (e *Engine) AuthenticatedTiming() (gst.Time, []byte, bool) {
	return e.Authenticated(store.ADKD4, store.TimingPRND)
}
