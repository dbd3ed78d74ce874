package mack

import (
	"testing"

	"osnma/bitparse"
	"osnma/crypto"
	"osnma/gst"
	"osnma/store"
)

// buildChainKeys generates a genuine forward hash chain anchored at root,
// keys[i] being the key disclosed at chain index i.
func buildChainKeys(t *testing.T, root gst.Time, n int) [][]byte {
	t.Helper()
	keys := make([][]byte, n+1)
	keys[n] = make([]byte, testKeyBits/8)
	for i := range keys[n] {
		keys[n][i] = byte(i + 7)
	}
	for i := n; i > 0; i-- {
		g := root.Add(int64(i - 1))
		prev, err := crypto.ChainStep(crypto.HashSHA256, keys[i], crypto.EncodeGSTSubframe(g.WN, g.TOW), nil, testKeyBits)
		if err != nil {
			t.Fatal(err)
		}
		keys[i-1] = prev
	}
	return keys
}

func primeNavBlocks(st *store.Storage, svn store.SVN, root gst.Time, lo, hi int) {
	for idx := lo; idx <= hi; idx++ {
		g := root.Add(int64(idx))
		for _, key := range []store.NavBlockKey{
			{ADKD: store.ADKD0, PRND: svn, GST: g},
			{ADKD: store.ADKD4, PRND: store.TimingPRND, GST: g},
			{ADKD: store.ADKD12, PRND: svn, GST: g},
		} {
			nb := st.PutNavBlock(key)
			if nb.Bits == nil {
				nb.Bits = []byte{byte(key.ADKD), byte(idx)}
			}
		}
	}
}

// buildBlockBits encodes a table-1 MACK payload for subframe g whose tags
// cover g's own NavBlocks (minus each ADKD's gap) and are MACed with
// tagKey, disclosing discloseKey.
func buildBlockBits(st *store.Storage, svn store.SVN, g gst.Time, tagKey, discloseKey []byte) bitparse.Bits {
	navBits := func(adkd store.ADKD, prnd store.SVN, gap int64) []byte {
		nb, _ := st.NavBlock(store.NavBlockKey{ADKD: adkd, PRND: prnd, GST: g.Add(-gap)})
		if nb == nil {
			return nil
		}
		return nb.Bits
	}
	mac := func(msg []byte) []byte {
		tag, err := crypto.ComputeMAC(crypto.MACHMACSHA256, tagKey, msg, testTagBits)
		if err != nil {
			panic(err)
		}
		return tag
	}

	const status = bitparse.NMAStatusTest
	tag0 := mac(tagMessage(g, 1, status, svn, svn, navBits(store.ADKD0, svn, store.FastMACGap)))
	s1 := mac(tagMessage(g, 2, status, svn, store.TimingPRND, navBits(store.ADKD4, store.TimingPRND, store.FastMACGap)))
	s2 := mac(tagMessage(g, 3, status, svn, svn, navBits(store.ADKD0, svn, store.FastMACGap)))
	s3 := mac(tagMessage(g, 4, status, svn, svn, navBits(store.ADKD12, svn, store.SlowMACGap)))
	s4 := mac(tagMessage(g, 5, status, svn, svn, navBits(store.ADKD0, svn, store.FastMACGap)))
	s5 := mac(tagMessage(g, 6, status, svn, svn, navBits(store.ADKD0, svn, store.FastMACGap)))
	s6 := mac(tagMessage(g, 7, status, svn, svn, navBits(store.ADKD0, svn, store.FastMACGap)))
	macseq := mac(flexADKDMessage(g, []int{int(store.ADKD0)}))

	var b bitparse.Bits
	b = appendBytesBits(b, tag0)
	b = appendBytesBits(b, macseq)
	appendSlot := func(tag []byte, prnd store.SVN, flex bool) {
		b = appendBytesBits(b, tag)
		b = appendUintBits(b, uint64(prnd), prndFieldBits)
		if flex {
			b = appendUintBits(b, uint64(store.ADKD0), flexADKDBits)
		}
	}
	appendSlot(s1, store.TimingPRND, false)
	appendSlot(s2, svn, false)
	appendSlot(s3, svn, false)
	appendSlot(s4, svn, false)
	appendSlot(s5, svn, false)
	appendSlot(s6, svn, true)
	b = appendBytesBits(b, discloseKey)
	return b
}

func TestProcessAuthenticatesAndDrainsPreviousTags(t *testing.T) {
	svn := store.SVN(11)
	st := store.New(store.Config{MaxSatellites: 2, TagAccumulationThreshold: 32})
	root, _ := gst.New(2000, 0)
	keys := buildChainKeys(t, root, 3)

	desc := &store.ChainDescriptor{
		CID: 1, HashFunc: crypto.HashSHA256, MACFunc: crypto.MACHMACSHA256,
		KeyBits: testKeyBits, TagBits: testTagBits, MACLT: testMACLT,
		AuthKey: keys[0], AuthIndex: 0, RootGST: [2]uint32{root.WN, root.TOW},
	}

	primeNavBlocks(st, svn, root, -store.SlowMACGap, 3)

	g2 := root.Add(2)
	bits2 := buildBlockBits(st, svn, g2, keys[2], keys[1])
	if err := Process(st, desc, svn, g2, bits2, bitparse.NMAStatusTest); err != nil {
		t.Fatalf("Process(subframe 2): unexpected error: %v", err)
	}
	if desc.AuthIndex != 1 {
		t.Fatalf("after subframe 2: AuthIndex got %d, want 1", desc.AuthIndex)
	}

	nb0, _ := st.NavBlock(store.NavBlockKey{ADKD: store.ADKD0, PRND: svn, GST: root.Add(1)})
	if nb0.Authenticated {
		t.Fatal("NavBlock should not be authenticated before its tags are drained")
	}

	g3 := root.Add(3)
	bits3 := buildBlockBits(st, svn, g3, keys[3], keys[2])
	if err := Process(st, desc, svn, g3, bits3, bitparse.NMAStatusTest); err != nil {
		t.Fatalf("Process(subframe 3): unexpected error: %v", err)
	}
	if desc.AuthIndex != 2 {
		t.Fatalf("after subframe 3: AuthIndex got %d, want 2", desc.AuthIndex)
	}

	if !nb0.Authenticated {
		t.Error("NavBlock at subframe 2's ADKD0 target should be authenticated once its tags drain")
	}
}

func TestProcessRejectsMalformedBlock(t *testing.T) {
	svn := store.SVN(11)
	st := store.New(store.Config{MaxSatellites: 2})
	root, _ := gst.New(2000, 0)
	desc := &store.ChainDescriptor{MACLT: testMACLT, KeyBits: testKeyBits, TagBits: testTagBits}

	if err := Process(st, desc, svn, root, make(bitparse.Bits, 4), bitparse.NMAStatusTest); err == nil {
		t.Error("expected an error for a too-short MACK payload")
	}
	if st.Telemetry.MalformedBits == 0 {
		t.Error("malformed MACK payload should increment MalformedBits telemetry")
	}
}

func TestGapForADKD(t *testing.T) {
	if gapForADKD(store.ADKD12) != store.SlowMACGap {
		t.Error("ADKD12 should use the slow-MAC gap")
	}
	if gapForADKD(store.ADKD0) != store.FastMACGap {
		t.Error("ADKD0 should use the fast-MAC gap")
	}
	if gapForADKD(store.ADKD4) != store.FastMACGap {
		t.Error("ADKD4 should use the fast-MAC gap")
	}
}
