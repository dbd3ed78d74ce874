package dsm

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"testing"

	"osnma/bitparse"
	"osnma/crypto"
	"osnma/gst"
	"osnma/store"
)

func appendUintBits(b bitparse.Bits, v uint64, width int) bitparse.Bits {
	for i := width - 1; i >= 0; i-- {
		b = append(b, (v>>uint(i))&1 == 1)
	}
	return b
}

func appendBytesBits(b bitparse.Bits, by []byte) bitparse.Bits {
	for _, x := range by {
		b = appendUintBits(b, uint64(x), 8)
	}
	return b
}

func signMessage(t *testing.T, priv *ecdsa.PrivateKey, msg []byte) []byte {
	t.Helper()
	digest := sha256.Sum256(msg)
	r, s, err := ecdsa.Sign(rand.Reader, priv, digest[:])
	if err != nil {
		t.Fatal(err)
	}
	fb := (priv.Curve.Params().BitSize + 7) / 8
	out := make([]byte, 2*fb)
	r.FillBytes(out[:fb])
	s.FillBytes(out[fb:])
	return out
}

// buildTestKROOT encodes a DSM-KROOT message the way the reassembler would
// hand one to VerifyKROOT: an arbitrary block-0 byte, the fixed header,
// root key, and a trailing signature produced by signFn over everything
// preceding it.
func buildTestKROOT(pkid, cidkr int, alpha, root []byte, rootGST gst.Time, signFn func([]byte) []byte) []byte {
	var b bitparse.Bits
	b = appendUintBits(b, 0x10, 8) // block-0 byte
	b = appendUintBits(b, 0, 8)    // NMA-Header
	b = appendUintBits(b, uint64(cidkr), 2)
	b = appendUintBits(b, uint64(pkid), 4)
	b = appendUintBits(b, 0, 2) // HF = SHA-256
	b = appendUintBits(b, 0, 2) // MF = HMAC-SHA-256
	b = appendUintBits(b, 3, 4) // KS field 3 -> 24-byte key
	b = appendUintBits(b, 3, 4) // TS field 3 -> 32-bit tag
	b = appendUintBits(b, 1, 8) // MACLT 1
	b = appendUintBits(b, 0, 2) // reserved
	b = appendUintBits(b, uint64(rootGST.WN), 12)
	b = appendUintBits(b, uint64(rootGST.TOW/3600), 8)
	b = appendBytesBits(b, alpha)
	b = appendBytesBits(b, root)

	prefix := b.Pack()
	return append(prefix, signFn(prefix)...)
}

func TestVerifyKROOTValid(t *testing.T) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	st := store.New(store.Config{MaxSatellites: 2})
	st.PubKeys.SetCurrent(store.PublicKeyEntry{PKID: 7, Point: crypto.PublicKey{Curve: crypto.CurveP256, X: priv.X, Y: priv.Y}})

	root, _ := gst.New(1200, 0)
	alpha := make([]byte, 6)
	rootKey := make([]byte, 24)
	message := buildTestKROOT(7, 2, alpha, rootKey, root, func(m []byte) []byte { return signMessage(t, priv, m) })

	if err := VerifyKROOT(st, message, store.ChainStatusCurrent); err != nil {
		t.Fatalf("VerifyKROOT: unexpected error: %v", err)
	}
	desc := st.Chains[store.ChainStatusCurrent]
	if desc == nil {
		t.Fatal("VerifyKROOT should install a chain descriptor")
	}
	if desc.CID != 2 {
		t.Errorf("CID: got %d, want 2", desc.CID)
	}
	if desc.RootGST[0] != root.WN || desc.RootGST[1] != root.TOW {
		t.Errorf("RootGST: got %v, want (%d,%d)", desc.RootGST, root.WN, root.TOW)
	}
}

func TestVerifyKROOTRejectsTamperedSignature(t *testing.T) {
	priv, _ := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	st := store.New(store.Config{MaxSatellites: 2})
	st.PubKeys.SetCurrent(store.PublicKeyEntry{PKID: 7, Point: crypto.PublicKey{Curve: crypto.CurveP256, X: priv.X, Y: priv.Y}})

	root, _ := gst.New(1200, 0)
	message := buildTestKROOT(7, 0, make([]byte, 6), make([]byte, 24), root, func(m []byte) []byte { return signMessage(t, priv, m) })
	message[len(message)-1] ^= 0xFF

	if err := VerifyKROOT(st, message, store.ChainStatusCurrent); err == nil {
		t.Error("expected an error for a tampered signature")
	}
	if st.Telemetry.SignatureInvalid == 0 {
		t.Error("tampered signature should increment SignatureInvalid telemetry")
	}
}

func TestVerifyKROOTUnknownPKID(t *testing.T) {
	priv, _ := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	st := store.New(store.Config{MaxSatellites: 2})
	st.PubKeys.SetCurrent(store.PublicKeyEntry{PKID: 1, Point: crypto.PublicKey{Curve: crypto.CurveP256, X: priv.X, Y: priv.Y}})

	root, _ := gst.New(1200, 0)
	// signs with a PKID the store has no entry for.
	message := buildTestKROOT(99, 0, make([]byte, 6), make([]byte, 24), root, func(m []byte) []byte { return signMessage(t, priv, m) })

	if err := VerifyKROOT(st, message, store.ChainStatusCurrent); err == nil {
		t.Error("expected an error for an unrecognized PKID")
	}
	if st.Telemetry.UnknownPKID == 0 {
		t.Error("unknown PKID should increment UnknownPKID telemetry")
	}
}

func TestVerifyKROOTHourAlignedRootTOW(t *testing.T) {
	priv, _ := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	st := store.New(store.Config{MaxSatellites: 2})
	st.PubKeys.SetCurrent(store.PublicKeyEntry{PKID: 1, Point: crypto.PublicKey{Curve: crypto.CurveP256, X: priv.X, Y: priv.Y}})

	// a root GST not on an hour boundary is truncated on the wire (the TOW
	// field only carries whole hours), so the decoded chain anchor's GST
	// must reflect that truncation rather than the exact value requested.
	root, _ := gst.New(1200, 3630) // 1h00m30s
	message := buildTestKROOT(1, 0, make([]byte, 6), make([]byte, 24), root, func(m []byte) []byte { return signMessage(t, priv, m) })

	if err := VerifyKROOT(st, message, store.ChainStatusCurrent); err != nil {
		t.Fatalf("VerifyKROOT: unexpected error: %v", err)
	}
	desc := st.Chains[store.ChainStatusCurrent]
	if desc.RootGST[1] != 3600 {
		t.Errorf("RootGST TOW should truncate to the hour: got %d, want 3600", desc.RootGST[1])
	}
}
