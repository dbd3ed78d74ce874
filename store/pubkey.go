package store

import "osnma/crypto"

// KeyStatus distinguishes the current public key slot from the next one
// (spec.md §3, §9 "two-of-kind slots").
type KeyStatus int

const (
	KeyStatusCurrent KeyStatus = iota
	KeyStatusNext
)

// PublicKeyEntry is one slot of the bounded public-key set (spec.md §3).
type PublicKeyEntry struct {
	PKID   int
	Point  crypto.PublicKey
	Status KeyStatus
}

// PublicKeySet holds at most two ECDSA public keys: current and next
// (spec.md §3, §9). It never grows past this fixed pair.
type PublicKeySet struct {
	Current *PublicKeyEntry
	Next    *PublicKeyEntry
}

// SetCurrent installs e as the current key, discarding whatever was
// there before. Used both for construction-time configuration and for
// the PKREV transition's key eviction (spec.md §4.7).
func (s *PublicKeySet) SetCurrent(e PublicKeyEntry) {
	e.Status = KeyStatusCurrent
	s.Current = &e
}

// SetNext installs e as the next key, replacing any prior next
// (spec.md §4.3: "admit the NPK into the public-key set as next
// (replacing any prior next)").
func (s *PublicKeySet) SetNext(e PublicKeyEntry) {
	e.Status = KeyStatusNext
	s.Next = &e
}

// Promote replaces Current with Next and clears Next (spec.md §4.3, §4.7
// NPK/PKREV transitions).
func (s *PublicKeySet) Promote() {
	if s.Next == nil {
		return
	}
	next := *s.Next
	next.Status = KeyStatusCurrent
	s.Current = &next
	s.Next = nil
}

// ByPKID returns the entry (current or next) with the given PKID.
func (s *PublicKeySet) ByPKID(pkid int) (*PublicKeyEntry, bool) {
	if s.Current != nil && s.Current.PKID == pkid {
		return s.Current, true
	}
	if s.Next != nil && s.Next.PKID == pkid {
		return s.Next, true
	}
	return nil, false
}

// Wipe clears both key slots, used on a verified Alert Message
// (spec.md §4.3: "wipe all cryptographic material except the Merkle root").
func (s *PublicKeySet) Wipe() {
	s.Current = nil
	s.Next = nil
}
