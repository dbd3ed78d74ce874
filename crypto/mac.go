package crypto

import (
	"crypto/aes"
	"crypto/hmac"
	"crypto/sha256"

	"github.com/aead/cmac"
)

// MACFunc identifies the MAC function a TESLA chain descriptor uses for
// tag computation and MACSEQ verification (spec.md §3, §4.5).
type MACFunc int

const (
	MACHMACSHA256 MACFunc = iota
	MACCMACAES
)

// ComputeMAC computes a MAC over msg with key under the given function,
// truncated to tagBits. Used both for per-slot tag verification (header ‖
// NavBlock-bits) and for the MACSEQ check (GST ‖ flex-ADKD-list).
func ComputeMAC(fn MACFunc, key, msg []byte, tagBits int) ([]byte, error) {
	var full []byte
	switch fn {
	case MACHMACSHA256:
		mac := hmac.New(sha256.New, key)
		mac.Write(msg)
		full = mac.Sum(nil)
	case MACCMACAES:
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, err
		}
		full, err = cmac.Sum(msg, block, block.BlockSize())
		if err != nil {
			return nil, err
		}
	default:
		return nil, ErrUnsupportedMAC
	}

	tagBytes := (tagBits + 7) / 8
	if tagBytes > len(full) {
		tagBytes = len(full)
	}
	return full[:tagBytes], nil
}

// VerifyMAC recomputes the MAC over msg with key and compares it in
// constant time against the truncated tag the MACK carried.
func VerifyMAC(fn MACFunc, key, msg, tag []byte) (bool, error) {
	want, err := ComputeMAC(fn, key, msg, len(tag)*8)
	if err != nil {
		return false, err
	}
	return constantTimeEqual(want, tag), nil
}

func constantTimeEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	var diff byte
	for i := range a {
		diff |= a[i] ^ b[i]
	}
	return diff == 0
}
