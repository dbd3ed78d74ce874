// Package tesla implements the TESLA key-chain verifier (spec.md §4.4):
// walking a newly disclosed key's hash backward until it reproduces the
// chain's last-authenticated anchor, or giving up once the walk has run
// far longer than any legitimate disclosure gap could explain.
package tesla

import (
	"bytes"
	"errors"

	"osnma/crypto"
	"osnma/gst"
	"osnma/store"
)

// MaxChainSteps bounds the forward hash walk. A disclosure gap wider
// than this (around two hours of subframes) cannot be a legitimate
// late-arriving key under spec.md §5's late-arrival tolerance, so the
// walk is abandoned rather than run to completion.
const MaxChainSteps = 240

// ErrChainBroken is returned when the forward hash walk does not
// converge on the chain's authenticated anchor (spec.md §7
// tesla-chain-broken).
var ErrChainBroken = errors.New("tesla: chain hash walk did not converge")

// ErrStaleKey is returned when a disclosed key's chain index is not
// strictly greater than the chain's current authenticated index
// (spec.md §4.4: "MUST have a strictly greater chain index").
var ErrStaleKey = errors.New("tesla: disclosed key index is not newer than the authenticated anchor")

// rootTime reconstructs the GST of applicability a chain descriptor's
// index 0 corresponds to.
func rootTime(desc *store.ChainDescriptor) gst.Time {
	return gst.Time{WN: desc.RootGST[0], TOW: desc.RootGST[1]}
}

// Index returns the chain index a key disclosed at gstSf would occupy.
func Index(desc *store.ChainDescriptor, gstSf gst.Time) int64 {
	return gstSf.Subframes(rootTime(desc))
}

// Admit authenticates a newly disclosed key against desc. On success it
// advances desc.AuthKey/AuthIndex to (key, index) and returns nil. On
// failure desc is left untouched.
func Admit(desc *store.ChainDescriptor, key []byte, gstSf gst.Time) error {
	idx := Index(desc, gstSf)
	if idx <= desc.AuthIndex {
		return ErrStaleKey
	}
	if idx-desc.AuthIndex > MaxChainSteps {
		return ErrChainBroken
	}

	root := rootTime(desc)
	cur := key
	curIndex := idx
	for curIndex > desc.AuthIndex {
		prevGST := root.Add(curIndex - 1)
		prev, err := crypto.ChainStep(desc.HashFunc, cur, crypto.EncodeGSTSubframe(prevGST.WN, prevGST.TOW), desc.Alpha, desc.KeyBits)
		if err != nil {
			return err
		}
		cur = prev
		curIndex--
	}

	if !bytes.Equal(cur, desc.AuthKey) {
		return ErrChainBroken
	}
	desc.AuthKey = key
	desc.AuthIndex = idx
	return nil
}

// InstallRoot installs a freshly verified KROOT as the chain's index-0
// anchor (spec.md §4.3 DSM-KROOT verification success path).
func InstallRoot(desc *store.ChainDescriptor, kroot []byte, rootGSTWN, rootGSTTOW uint32) {
	desc.RootGST = [2]uint32{rootGSTWN, rootGSTTOW}
	desc.AuthKey = kroot
	desc.AuthIndex = 0
}
