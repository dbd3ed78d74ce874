package store

import "osnma/crypto"

// ChainStatus distinguishes the current TESLA chain from the next one
// during renewal/revocation (spec.md §3, §4.4 "concurrency of chains").
type ChainStatus int

const (
	ChainStatusCurrent ChainStatus = iota
	ChainStatusNext
)

// ChainDescriptor is a TESLA chain descriptor (spec.md §3): the static
// parameters announced by its DSM-KROOT, plus the mutable authenticated
// anchor the chain verifier advances.
type ChainDescriptor struct {
	CID      int // 0..3
	Alpha    []byte
	HashFunc crypto.HashFunc
	MACFunc  crypto.MACFunc
	KeyBits  int
	TagBits  int
	MACLT    int // MAC look-up table id
	Status   ChainStatus

	// AuthKey/AuthIndex are the current authenticated anchor: the most
	// recently verified key and its position in the chain (spec.md §4.4).
	AuthKey   []byte
	AuthIndex int64

	// RootGST is the GST of applicability of the chain's KROOT (index 0),
	// the reference point chain indices are computed from.
	RootGST [2]uint32 // WN, TOW
}
