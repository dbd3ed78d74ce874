// Package keymaterial loads the receiver's manufacturer-provisioned
// trust anchor before any OSNMA data has been received: the initial
// ECDSA public key and the Merkle tree root it chains to (spec.md §6).
package keymaterial

import (
	"encoding/hex"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"strings"

	"osnma/crypto"
	"osnma/esim/asn1"
)

// ErrUnrecognizedKeyMaterial is returned when the input is neither PEM,
// a DER SubjectPublicKeyInfo, nor a raw uncompressed EC point.
var ErrUnrecognizedKeyMaterial = errors.New("keymaterial: unrecognized public key encoding")

// LoadPublicKey reads the initial public key from path.
func LoadPublicKey(path string) (crypto.PublicKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return crypto.PublicKey{}, fmt.Errorf("keymaterial: %w", err)
	}
	return ParsePublicKey(raw)
}

// ParsePublicKey decodes raw as a PEM-encoded SubjectPublicKeyInfo, a
// bare DER SubjectPublicKeyInfo, or a raw uncompressed EC point (65
// bytes for P-256, 133 for P-521, each 0x04-prefixed).
func ParsePublicKey(raw []byte) (crypto.PublicKey, error) {
	if block, _ := pem.Decode(raw); block != nil {
		raw = block.Bytes
	}
	if point, ok := asPoint(raw); ok {
		return decodePoint(point)
	}
	point, err := extractSPKIPoint(raw)
	if err != nil {
		return crypto.PublicKey{}, err
	}
	return decodePoint(point)
}

func asPoint(raw []byte) ([]byte, bool) {
	if len(raw) > 0 && raw[0] == 0x04 && (len(raw) == 65 || len(raw) == 133) {
		return raw, true
	}
	return nil, false
}

func decodePoint(point []byte) (crypto.PublicKey, error) {
	switch len(point) {
	case 65:
		return crypto.ParseUncompressedPoint(crypto.CurveP256, point)
	case 133:
		return crypto.ParseUncompressedPoint(crypto.CurveP521, point)
	default:
		return crypto.PublicKey{}, ErrUnrecognizedKeyMaterial
	}
}

// extractSPKIPoint walks a DER SubjectPublicKeyInfo ::= SEQUENCE {
// algorithm SEQUENCE, subjectPublicKey BIT STRING } using the same
// streaming tag/length/value reader the eSIM profile decoder uses, and
// returns the BIT STRING's content stripped of its unused-bits count
// byte.
func extractSPKIPoint(der []byte) ([]byte, error) {
	const (
		tagSequence = 0x10
		tagBitStr   = 0x03
	)
	outer := asn1.Init(der)
	if !outer.Unmarshal() || outer.TagCode != tagSequence {
		return nil, ErrUnrecognizedKeyMaterial
	}
	inner := asn1.Init(outer.Data)
	if !inner.Unmarshal() { // algorithm identifier SEQUENCE, skipped
		return nil, ErrUnrecognizedKeyMaterial
	}
	if !inner.Unmarshal() || inner.TagCode != tagBitStr {
		return nil, ErrUnrecognizedKeyMaterial
	}
	if len(inner.Data) < 2 {
		return nil, ErrUnrecognizedKeyMaterial
	}
	return inner.Data[1:], nil
}

// LoadMerkleRoot reads a 32-byte Merkle root anchor from path, either
// raw binary or hex-encoded text.
func LoadMerkleRoot(path string) ([32]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return [32]byte{}, fmt.Errorf("keymaterial: %w", err)
	}
	return ParseMerkleRoot(raw)
}

// ParseMerkleRoot decodes raw as either 32 raw bytes or a hex string.
func ParseMerkleRoot(raw []byte) ([32]byte, error) {
	var root [32]byte
	if len(raw) == 32 {
		copy(root[:], raw)
		return root, nil
	}
	decoded, err := hex.DecodeString(strings.TrimSpace(string(raw)))
	if err != nil || len(decoded) != 32 {
		return [32]byte{}, fmt.Errorf("keymaterial: Merkle root must be 32 bytes, got %d", len(raw))
	}
	copy(root[:], decoded)
	return root, nil
}
