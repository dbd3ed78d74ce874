package dsm

import (
	"errors"
	"fmt"

	"osnma/bitparse"
	"osnma/crypto"
	"osnma/store"
)

// PKRMerkleDepth is the fixed depth of the public-key Merkle tree this
// engine verifies DSM-PKR messages against (spec.md §4.3).
const PKRMerkleDepth = 4

// ErrPKRMalformed is returned when a reassembled DSM-PKR message does
// not carry a field combination this engine recognizes.
var ErrPKRMalformed = errors.New("dsm: malformed DSM-PKR message")

type pkr struct {
	NPKT      crypto.PKType
	NPKID     int
	NPK       []byte
	Path      [PKRMerkleDepth][32]byte
	SiblingR  [PKRMerkleDepth]bool
	Signature []byte
}

func pointBytes(curve crypto.Curve) int {
	switch curve {
	case crypto.CurveP256:
		return 65
	case crypto.CurveP521:
		return 133
	default:
		return 0
	}
}

// parsePKR decodes message under the assumption that its new-key payload
// (if any) is npkBytes wide and its trailing signature is sigBytes wide;
// VerifyPKR tries the combinations that make these self-consistent.
func parsePKR(message []byte, npkBytes, sigBytes int) (pkr, error) {
	n := len(message) * 8
	b, err := bitparse.FromBytes(message, n)
	if err != nil {
		return pkr{}, err
	}
	off := 8 // reassembler's (DSM-ID, NB) byte
	if n < off+2+4+2 {
		return pkr{}, ErrPKRMalformed
	}
	npkt := crypto.PKType(b.Uint(off, 2))
	off += 2
	npkid := int(b.Uint(off, 4))
	off += 4
	off += 2 // reserved

	var npk []byte
	if npkt != crypto.PKTypeAlertRevocation {
		if off+npkBytes*8 > n {
			return pkr{}, ErrPKRMalformed
		}
		npk = b.Slice(off, npkBytes*8).Pack()
		off += npkBytes * 8
	}

	// The per-level sibling-orientation bits are packed into one leading
	// byte (one bit per level, high 4 bits unused) rather than interleaved
	// 1-bit-per-level, so the four 256-bit hash fields that follow stay
	// byte-aligned.
	if off+8+PKRMerkleDepth*256 > n {
		return pkr{}, ErrPKRMalformed
	}
	orientations := b.Uint(off, 8)
	off += 8
	var path [PKRMerkleDepth][32]byte
	var siblingR [PKRMerkleDepth]bool
	for i := 0; i < PKRMerkleDepth; i++ {
		siblingR[i] = (orientations>>uint(i))&1 == 1
		copy(path[i][:], b.Slice(off, 256).Pack())
		off += 256
	}

	if off+sigBytes*8 != n {
		return pkr{}, ErrPKRMalformed
	}
	sig := b.Slice(off, sigBytes*8).Pack()

	return pkr{NPKT: npkt, NPKID: npkid, NPK: npk, Path: path, SiblingR: siblingR, Signature: sig}, nil
}

// VerifyPKR verifies a reassembled DSM-PKR message against st's Merkle
// root and current public key (the signer of every DSM-PKR, spec.md
// §4.3), admitting the announced key as next on success, or wiping all
// cryptographic material (keeping only the Merkle root) on a verified
// Alert Message.
func VerifyPKR(st *store.Storage, message []byte) error {
	if !st.HasMerkleRoot {
		return fmt.Errorf("dsm: DSM-PKR: %w", ErrPKRMalformed)
	}
	if st.PubKeys.Current == nil {
		return fmt.Errorf("dsm: DSM-PKR: no current public key to verify against")
	}
	signerSig := sigFieldBytes(st.PubKeys.Current.Point.Curve)

	var p pkr
	var err error
	found := false
	for _, npkBytes := range []int{0, pointBytes(crypto.CurveP256), pointBytes(crypto.CurveP521)} {
		p, err = parsePKR(message, npkBytes, signerSig)
		if err == nil {
			found = true
			break
		}
	}
	if !found {
		st.Telemetry.MalformedBits++
		return fmt.Errorf("dsm: DSM-PKR: %w", ErrPKRMalformed)
	}

	signed := message[:len(message)-len(p.Signature)]
	if err := crypto.VerifyECDSA(st.PubKeys.Current.Point, signed, p.Signature); err != nil {
		st.Telemetry.SignatureInvalid++
		return fmt.Errorf("dsm: DSM-PKR signature: %w", err)
	}

	if p.NPKT == crypto.PKTypeAlertRevocation {
		leaf := crypto.LeafHash(p.NPKT, p.NPKID, nil)
		if err := crypto.VerifyMerklePath(leaf, p.Path[:], p.SiblingR[:], st.MerkleRoot); err != nil {
			st.Telemetry.MerkleMismatch++
			return fmt.Errorf("dsm: Alert Message: %w", err)
		}
		st.PubKeys.Wipe()
		st.Chains[store.ChainStatusCurrent] = nil
		st.Chains[store.ChainStatusNext] = nil
		st.Telemetry.AlertTerminal++
		return nil
	}

	var curve crypto.Curve
	switch p.NPKT {
	case crypto.PKTypeP256:
		curve = crypto.CurveP256
	case crypto.PKTypeP521:
		curve = crypto.CurveP521
	default:
		st.Telemetry.UnsupportedCurve++
		return fmt.Errorf("dsm: DSM-PKR: %w", crypto.ErrUnsupportedCurve)
	}

	leaf := crypto.LeafHash(p.NPKT, p.NPKID, p.NPK)
	if err := crypto.VerifyMerklePath(leaf, p.Path[:], p.SiblingR[:], st.MerkleRoot); err != nil {
		st.Telemetry.MerkleMismatch++
		return fmt.Errorf("dsm: DSM-PKR: %w", err)
	}

	pub, err := crypto.ParseUncompressedPoint(curve, p.NPK)
	if err != nil {
		return fmt.Errorf("dsm: DSM-PKR: %w", err)
	}
	st.PubKeys.SetNext(store.PublicKeyEntry{PKID: p.NPKID, Point: pub})
	return nil
}
