// Package dsm reassembles the per-SVN HKROOT octet stream into complete
// DSM-KROOT and DSM-PKR messages, and verifies them (spec.md §4.2, §4.3):
// DSM-KROOT installs a fresh TESLA chain anchor once its ECDSA signature
// checks out; DSM-PKR admits a new public key once its Merkle path
// reproduces the stored root, or wipes cryptographic material on a
// verified Alert Message.
package dsm

import (
	"osnma/bitparse"
	"osnma/dictionaries"
	"osnma/gst"
	"osnma/store"
)

// TimeoutSubframes is how long a DSM buffer may sit without progress
// before the reassembler discards it (spec.md §4.2 partial-DSM-timeout).
const TimeoutSubframes = 16

// Reassembler buffers HKROOT octets per (SVN, DSM-ID) and emits complete
// messages for the caller to dispatch to VerifyKROOT or VerifyPKR.
type Reassembler struct {
	st *store.Storage
}

// NewReassembler constructs a Reassembler backed by st.
func NewReassembler(st *store.Storage) *Reassembler {
	return &Reassembler{st: st}
}

// Admit feeds one subframe's HKROOT octet for svn into the reassembler.
// The caller must not pass the NMA-Header octet (the one accompanying
// I/NAV word type 0); that is handled separately via
// bitparse.ParseNMAHeader. complete is true exactly once, the subframe
// the last missing block arrives, and message then holds the full
// reassembled DSM-KROOT or DSM-PKR byte string.
//
// The wire convention this engine uses (spec.md §4.2): every HKROOT
// octet splits into a 4-bit DSM-ID and a 4-bit position field via
// bitparse.DSMBlockID. The first octet received for a DSM-ID establishes
// the buffer; its low nibble is the NB field (dictionaries.NBField),
// giving the total block count, and that whole octet becomes block 0's
// content (so the reassembled message's leading byte carries (DSM-ID,
// NB) exactly as the ICD-defined DSM-KROOT/DSM-PKR header does). Every
// later octet's position nibble addresses its slot directly; receiving
// two different octets for the same (DSM-ID, slot) is an inconsistent
// block and resets the buffer (spec.md §4.2).
func (r *Reassembler) Admit(svn store.SVN, g gst.Time, hkroot byte, now int64) (message []byte, dsmID int, complete bool) {
	dsmID, pos := bitparse.DSMBlockID(hkroot)
	key := store.DSMKey{SVN: svn, DSMID: dsmID}
	buf := r.st.DSMBuffer(key, now)

	if buf.NumBlocks == 0 && !buf.Have[0] {
		numBlocks, ok := dictionaries.NBField[pos]
		if !ok {
			buf.Reset()
			r.st.Telemetry.MalformedBits++
			return nil, dsmID, false
		}
		buf.NumBlocks = numBlocks
		buf.Blocks[0] = []byte{hkroot}
		buf.Have[0] = true
		buf.LastProgress = now
		return r.checkComplete(key, buf)
	}

	if pos <= 0 || pos >= buf.NumBlocks {
		buf.Reset()
		r.st.Telemetry.MalformedBits++
		return nil, dsmID, false
	}
	if buf.Have[pos] {
		if buf.Blocks[pos][0] != hkroot {
			buf.Reset()
			r.st.Telemetry.MalformedBits++
		}
		return nil, dsmID, false
	}
	buf.Blocks[pos] = []byte{hkroot}
	buf.Have[pos] = true
	buf.LastProgress = now
	return r.checkComplete(key, buf)
}

func (r *Reassembler) checkComplete(key store.DSMKey, buf *store.DSMBuffer) ([]byte, int, bool) {
	if !buf.Complete() {
		return nil, key.DSMID, false
	}
	msg := buf.Assemble()
	r.st.FreeDSMBuffer(key)
	return msg, key.DSMID, true
}

// EvictStale discards every DSM buffer that has made no progress in
// TimeoutSubframes subframes (spec.md §4.2).
func (r *Reassembler) EvictStale(now int64) {
	r.st.EvictStaleDSM(now, TimeoutSubframes)
}
