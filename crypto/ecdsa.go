// Package crypto implements the cryptographic primitives the OSNMA
// protocol engine composes: ECDSA signature verification over DSM-KROOT
// and DSM-PKR, Merkle path verification, the TESLA hash-chain step
// function, and the MAC functions (HMAC-SHA-256, CMAC-AES) used for tag
// and MACSEQ verification.
package crypto

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/sha256"
	"errors"
	"fmt"
	"math/big"
)

// Curve identifies a supported ECDSA curve (spec.md §3 public key set).
type Curve int

const (
	CurveP256 Curve = iota
	CurveP521
)

// ErrUnsupportedCurve is returned for any curve outside {P-256, P-521}.
var ErrUnsupportedCurve = errors.New("crypto: unsupported curve")

// ErrUnsupportedHash is returned for any TESLA hash function outside
// {SHA-256, SHA3-256}.
var ErrUnsupportedHash = errors.New("crypto: unsupported hash function")

// ErrUnsupportedMAC is returned for any MAC function outside
// {HMAC-SHA-256, CMAC-AES}.
var ErrUnsupportedMAC = errors.New("crypto: unsupported MAC function")

// ErrSignatureInvalid is returned when an ECDSA signature does not verify.
var ErrSignatureInvalid = errors.New("crypto: ECDSA signature invalid")

func ellipticCurve(c Curve) (elliptic.Curve, error) {
	switch c {
	case CurveP256:
		return elliptic.P256(), nil
	case CurveP521:
		return elliptic.P521(), nil
	default:
		return nil, ErrUnsupportedCurve
	}
}

// PublicKey is an ECDSA public key together with the curve it is defined
// over, decoded from the ICD's uncompressed-point encoding.
type PublicKey struct {
	Curve Curve
	X, Y  *big.Int
}

// ParseUncompressedPoint decodes an uncompressed EC point (0x04 || X || Y)
// for the given curve.
func ParseUncompressedPoint(curve Curve, point []byte) (PublicKey, error) {
	ec, err := ellipticCurve(curve)
	if err != nil {
		return PublicKey{}, err
	}
	x, y := elliptic.Unmarshal(ec, point)
	if x == nil {
		return PublicKey{}, fmt.Errorf("crypto: malformed uncompressed point for %v", curve)
	}
	return PublicKey{Curve: curve, X: x, Y: y}, nil
}

// VerifyECDSA verifies an ECDSA signature (r || s, each field-width
// bytes) over SHA-256(message) against pub. Used for both DSM-KROOT and
// DSM-PKR signatures (spec.md §4.3), which are both specified as ECDSA
// over SHA-256 regardless of curve.
func VerifyECDSA(pub PublicKey, message, signature []byte) error {
	ec, err := ellipticCurve(pub.Curve)
	if err != nil {
		return err
	}
	fieldBytes := (ec.Params().BitSize + 7) / 8
	if len(signature) != 2*fieldBytes {
		return fmt.Errorf("crypto: signature length %d, want %d", len(signature), 2*fieldBytes)
	}
	r := new(big.Int).SetBytes(signature[:fieldBytes])
	s := new(big.Int).SetBytes(signature[fieldBytes:])

	digest := sha256.Sum256(message)
	goPub := &ecdsa.PublicKey{Curve: ec, X: pub.X, Y: pub.Y}
	if !ecdsa.Verify(goPub, digest[:], r, s) {
		return ErrSignatureInvalid
	}
	return nil
}
