package dsm

import (
	"errors"
	"fmt"

	"osnma/bitparse"
	"osnma/crypto"
	"osnma/dictionaries"
	"osnma/gst"
	"osnma/store"
	"osnma/tesla"
)

// keySizeBytes maps the DSM-KROOT KS field to a TESLA root-key length.
var keySizeBytes = map[int]int{0: 12, 1: 16, 2: 20, 3: 24, 4: 28, 5: 32}

// tagSizeBits maps the DSM-KROOT TS field to a MAC tag length.
var tagSizeBits = map[int]int{0: 20, 1: 24, 2: 28, 3: 32, 4: 40}

// ErrKROOTMalformed is returned when a reassembled DSM-KROOT message does
// not carry a field combination this engine recognizes.
var ErrKROOTMalformed = errors.New("dsm: malformed DSM-KROOT message")

// kroot is the decoded, not-yet-verified content of a DSM-KROOT message.
type kroot struct {
	Header    bitparse.NMAHeader
	CIDKR     int
	PKID      int
	HF        crypto.HashFunc
	MF        crypto.MACFunc
	MACLT     int
	KeyBits   int
	TagBits   int
	RootWN    uint32
	RootTOW   uint32
	Alpha     []byte
	Root      []byte
	Signature []byte
}

// parseKROOT decodes the fixed-width fields of a reassembled DSM-KROOT
// message, given the curve of the public key PKID names (needed up
// front to know the trailing signature's length).
func parseKROOT(message []byte, sigFieldBytes int) (kroot, error) {
	n := len(message) * 8
	b, err := bitparse.FromBytes(message, n)
	if err != nil {
		return kroot{}, err
	}

	// 2 reserved bits (not 7) so the header lands on a byte boundary: a
	// reassembled DSM message is always a whole number of octets, and
	// every field after it (root key, signature) is itself byte-wide.
	const headerBits = 8 + 2 + 4 + 2 + 2 + 4 + 4 + 8 + 2 + 12 + 8 + 48
	if n < 8+headerBits {
		return kroot{}, ErrKROOTMalformed
	}

	off := 8 // skip the reassembler's (DSM-ID, NB) block-0 byte
	hdr := bitparse.ParseNMAHeader(byte(b.Uint(off, 8)))
	off += 8
	cidkr := int(b.Uint(off, 2))
	off += 2
	pkid := int(b.Uint(off, 4))
	off += 4
	hf := int(b.Uint(off, 2))
	off += 2
	mf := int(b.Uint(off, 2))
	off += 2
	ks := int(b.Uint(off, 4))
	off += 4
	ts := int(b.Uint(off, 4))
	off += 4
	maclt := int(b.Uint(off, 8))
	off += 8
	off += 2 // reserved
	wn := uint32(b.Uint(off, 12))
	off += 12
	towh := uint32(b.Uint(off, 8))
	off += 8
	alpha := b.Slice(off, 48).Pack()
	off += 48

	keyBytes, ok := keySizeBytes[ks]
	if !ok {
		return kroot{}, ErrKROOTMalformed
	}
	tagBits, ok := tagSizeBits[ts]
	if !ok {
		return kroot{}, ErrKROOTMalformed
	}
	if hf > 1 || mf > 1 {
		return kroot{}, ErrKROOTMalformed
	}

	rootBits := keyBytes * 8
	if off+rootBits+sigFieldBytes*8 != n {
		return kroot{}, ErrKROOTMalformed
	}
	root := b.Slice(off, rootBits).Pack()
	off += rootBits
	sig := b.Slice(off, sigFieldBytes*8).Pack()

	return kroot{
		Header:    hdr,
		CIDKR:     cidkr,
		PKID:      pkid,
		HF:        crypto.HashFunc(hf),
		MF:        crypto.MACFunc(mf),
		MACLT:     maclt,
		KeyBits:   keyBytes * 8,
		TagBits:   tagBits,
		RootWN:    wn,
		RootTOW:   towh * 3600,
		Alpha:     alpha,
		Root:      root,
		Signature: sig,
	}, nil
}

// sigFieldBytes returns the ECDSA (r, s) encoding width for curve.
func sigFieldBytes(curve crypto.Curve) int {
	switch curve {
	case crypto.CurveP256:
		return 2 * 32
	case crypto.CurveP521:
		return 2 * 66
	default:
		return 0
	}
}

// VerifyKROOT verifies a reassembled DSM-KROOT message against st's
// current public key set and, on success, installs a fresh TESLA chain
// descriptor at the chain slot named by status (spec.md §4.3). message
// must be the byte string Reassembler.Admit returned on completion.
func VerifyKROOT(st *store.Storage, message []byte, status store.ChainStatus) error {
	// The PKID and curve are both needed to know the signature's width,
	// so decode twice: once tentatively against every plausible width to
	// recover PKID, then for real once the curve is known. Both widths
	// (P-256, P-521) are tried because PKID alone isn't decodable without
	// first knowing where the signature starts.
	var k kroot
	var pk *store.PublicKeyEntry
	var err error
	for _, fieldBytes := range []int{64, 132} {
		k, err = parseKROOT(message, fieldBytes)
		if err != nil {
			continue
		}
		entry, ok := st.PubKeys.ByPKID(k.PKID)
		if !ok {
			continue
		}
		if sigFieldBytes(entry.Point.Curve) != fieldBytes {
			continue
		}
		pk = entry
		break
	}
	if pk == nil {
		st.Telemetry.UnknownPKID++
		return fmt.Errorf("dsm: DSM-KROOT: %w", ErrKROOTMalformed)
	}

	signed := message[:len(message)-len(k.Signature)]
	if err := crypto.VerifyECDSA(pk.Point, signed, k.Signature); err != nil {
		st.Telemetry.SignatureInvalid++
		return fmt.Errorf("dsm: DSM-KROOT signature: %w", err)
	}

	desc := &store.ChainDescriptor{
		CID:      k.CIDKR,
		Alpha:    k.Alpha,
		HashFunc: k.HF,
		MACFunc:  k.MF,
		KeyBits:  k.KeyBits,
		TagBits:  k.TagBits,
		MACLT:    k.MACLT,
		Status:   status,
	}
	rootGST, err := gst.New(k.RootWN, k.RootTOW)
	if err != nil {
		return fmt.Errorf("dsm: DSM-KROOT: %w", err)
	}
	tesla.InstallRoot(desc, k.Root, rootGST.WN, rootGST.TOW)
	st.Chains[status] = desc

	lookupTable := dictionaries.MACLookupTables[k.MACLT]
	if lookupTable == nil {
		st.Telemetry.MalformedBits++
	}
	return nil
}
