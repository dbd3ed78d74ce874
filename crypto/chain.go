package crypto

import (
	"crypto/sha256"

	"golang.org/x/crypto/sha3"
)

// HashFunc identifies the hash function a TESLA chain descriptor uses
// for its per-step key derivation (spec.md §3, §4.4).
type HashFunc int

const (
	HashSHA256 HashFunc = iota
	HashSHA3_256
)

// ChainStep computes key[i-1] = H(key[i] ‖ gstSf ‖ alpha) truncated to
// keyBits, where gstSf is the 4-byte (WN, TOW) encoding of the subframe
// that discloses key[i-1] (spec.md §4.4). This is the single step the
// TESLA verifier iterates when walking a disclosed key back toward its
// last-authenticated anchor.
func ChainStep(hf HashFunc, key []byte, gstSf [4]byte, alpha []byte, keyBits int) ([]byte, error) {
	msg := make([]byte, 0, len(key)+4+len(alpha))
	msg = append(msg, key...)
	msg = append(msg, gstSf[:]...)
	msg = append(msg, alpha...)

	var digest []byte
	switch hf {
	case HashSHA256:
		sum := sha256.Sum256(msg)
		digest = sum[:]
	case HashSHA3_256:
		sum := sha3.Sum256(msg)
		digest = sum[:]
	default:
		return nil, ErrUnsupportedHash
	}

	keyBytes := (keyBits + 7) / 8
	if keyBytes > len(digest) {
		keyBytes = len(digest)
	}
	return digest[:keyBytes], nil
}

// EncodeGSTSubframe packs a (week-number, time-of-week) pair into the
// 4-byte big-endian form the ICD uses inside TESLA chain and MAC
// computations: 12 bits WN, 20 bits TOW-in-seconds.
func EncodeGSTSubframe(wn uint32, tow uint32) [4]byte {
	v := (wn&0xFFF)<<20 | (tow & 0xFFFFF)
	return [4]byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
}
