package store

import (
	"testing"

	"osnma/bitparse"
	"osnma/gst"
)

func TestNewAppliesDefaults(t *testing.T) {
	s := New(Config{})
	cfg := s.Config()
	if cfg.MaxSatellites != 36 {
		t.Errorf("MaxSatellites default: got %d, want 36", cfg.MaxSatellites)
	}
	if cfg.TagAccumulationThreshold != 40 {
		t.Errorf("TagAccumulationThreshold default: got %d, want 40", cfg.TagAccumulationThreshold)
	}
}

func TestPutAndGetNavBlock(t *testing.T) {
	s := New(Config{MaxSatellites: 2})
	g, _ := gst.New(100, 0)
	key := NavBlockKey{ADKD: ADKD0, PRND: 1, GST: g}

	nb := s.PutNavBlock(key)
	if nb == nil {
		t.Fatal("PutNavBlock should never return nil")
	}
	again, ok := s.NavBlock(key)
	if !ok || again != nb {
		t.Error("NavBlock should return the same instance PutNavBlock created")
	}
}

func TestNavBlockHidesTainted(t *testing.T) {
	s := New(Config{MaxSatellites: 2})
	g, _ := gst.New(100, 0)
	key := NavBlockKey{ADKD: ADKD0, PRND: 1, GST: g}

	nb := s.PutNavBlock(key)
	nb.Tainted = true
	if _, ok := s.NavBlock(key); ok {
		t.Error("NavBlock should not return a tainted block")
	}
}

func TestDropNavBlock(t *testing.T) {
	s := New(Config{MaxSatellites: 2})
	g, _ := gst.New(100, 0)
	key := NavBlockKey{ADKD: ADKD0, PRND: 1, GST: g}

	s.PutNavBlock(key)
	s.DropNavBlock(key)
	if _, ok := s.NavBlock(key); ok {
		t.Error("NavBlock should be gone after DropNavBlock")
	}
}

func TestAccumulateMACKCompletesAtThreshold(t *testing.T) {
	s := New(Config{MaxSatellites: 2})
	g, _ := gst.New(100, 0)
	fragment := make(bitparse.Bits, 32)

	var complete bool
	for i := 0; i < PagesPerSubframe-1; i++ {
		complete, _ = s.AccumulateMACK(SVN(1), g, fragment)
		if complete {
			t.Fatalf("should not complete before %d pages, completed at %d", PagesPerSubframe, i+1)
		}
	}
	complete, full := s.AccumulateMACK(SVN(1), g, fragment)
	if !complete {
		t.Fatal("should complete at PagesPerSubframe pages")
	}
	if len(full) != 32*PagesPerSubframe {
		t.Errorf("full MACK payload length: got %d, want %d", len(full), 32*PagesPerSubframe)
	}
}

func TestAccumulateMACKRollsOverOnNewSubframe(t *testing.T) {
	s := New(Config{MaxSatellites: 2})
	g1, _ := gst.New(100, 0)
	g2, _ := gst.New(100, 30)
	fragment := make(bitparse.Bits, 32)

	s.AccumulateMACK(SVN(1), g1, fragment)
	complete, full := s.AccumulateMACK(SVN(1), g2, fragment)
	if complete {
		t.Error("a single page of a new subframe should not complete")
	}
	if len(full) != 0 {
		t.Error("incomplete accumulation should return no bits")
	}
}

func TestMACKBlockReturnsSameRecord(t *testing.T) {
	s := New(Config{MaxSatellites: 2})
	g, _ := gst.New(100, 0)

	rec := s.MACKBlock(SVN(4), g)
	again := s.MACKBlock(SVN(4), g)
	if rec != again {
		t.Error("MACKBlock should return the same record for the same (SVN, GST)")
	}
}

func TestDSMBufferEvictsOldestWhenFull(t *testing.T) {
	s := New(Config{MaxSatellites: 2})
	for i := 0; i < DSMMaxInFlight; i++ {
		s.DSMBuffer(DSMKey{SVN: SVN(i + 1), DSMID: 0}, int64(i))
	}
	// one more buffer beyond capacity should evict the buffer with the
	// smallest LastProgress (the first one created, at now=0).
	s.DSMBuffer(DSMKey{SVN: 99, DSMID: 0}, int64(DSMMaxInFlight))

	if _, ok := s.dsmBuffers[DSMKey{SVN: 1, DSMID: 0}]; ok {
		t.Error("oldest DSM buffer should have been evicted")
	}
	if len(s.dsmBuffers) != DSMMaxInFlight {
		t.Errorf("dsmBuffers count: got %d, want %d", len(s.dsmBuffers), DSMMaxInFlight)
	}
}

func TestFreeDSMBuffer(t *testing.T) {
	s := New(Config{MaxSatellites: 2})
	key := DSMKey{SVN: 1, DSMID: 0}
	s.DSMBuffer(key, 0)
	s.FreeDSMBuffer(key)
	if _, ok := s.dsmBuffers[key]; ok {
		t.Error("FreeDSMBuffer should remove the buffer")
	}
}

func TestEvictStaleDSM(t *testing.T) {
	s := New(Config{MaxSatellites: 2})
	key := DSMKey{SVN: 1, DSMID: 0}
	s.DSMBuffer(key, 0)

	s.EvictStaleDSM(10, 16)
	if _, ok := s.dsmBuffers[key]; !ok {
		t.Error("buffer within the timeout window should survive")
	}

	s.EvictStaleDSM(20, 16)
	if _, ok := s.dsmBuffers[key]; ok {
		t.Error("buffer past the timeout window should be evicted")
	}
}

func TestTouchSlotEvictsNavBlocksAndMACK(t *testing.T) {
	s := New(Config{MaxSatellites: 1}) // slotCap = 1*(10+6) = 16
	base, _ := gst.New(100, 0)

	var first gst.Time
	for i := 0; i <= 16; i++ {
		g := base.Add(int64(i))
		if i == 0 {
			first = g
		}
		key := NavBlockKey{ADKD: ADKD0, PRND: 1, GST: g}
		s.PutNavBlock(key)
		s.MACKBlock(SVN(1), g)
	}

	if _, ok := s.NavBlock(NavBlockKey{ADKD: ADKD0, PRND: 1, GST: first}); ok {
		t.Error("the least-recently-seen slot should have been evicted")
	}
	if s.Telemetry.StorageEvicted == 0 {
		t.Error("eviction should increment the StorageEvicted telemetry counter")
	}
}

func TestAdmitAndPendingINAVWord(t *testing.T) {
	s := New(Config{MaxSatellites: 2})
	g, _ := gst.New(100, 0)
	word := bitparse.INAVWord{Type: 1, Body: make(bitparse.Bits, 10)}

	s.AdmitINAVWord(SVN(1), bitparse.BandE1B, g, word)
	got, ok := s.PendingINAVWord(SVN(1), bitparse.BandE1B, 1)
	if !ok {
		t.Fatal("expected a pending word")
	}
	if got.Type != 1 {
		t.Errorf("Type: got %d, want 1", got.Type)
	}
}

func TestAdmitINAVWordRollsOverOnNewSubframe(t *testing.T) {
	s := New(Config{MaxSatellites: 2})
	g1, _ := gst.New(100, 0)
	g2, _ := gst.New(100, 30)

	s.AdmitINAVWord(SVN(1), bitparse.BandE1B, g1, bitparse.INAVWord{Type: 1})
	s.AdmitINAVWord(SVN(1), bitparse.BandE1B, g2, bitparse.INAVWord{Type: 2})

	if _, ok := s.PendingINAVWord(SVN(1), bitparse.BandE1B, 1); ok {
		t.Error("word type 1 from the prior subframe should have been rolled over")
	}
	if _, ok := s.PendingINAVWord(SVN(1), bitparse.BandE1B, 2); !ok {
		t.Error("word type 2 from the current subframe should be pending")
	}
}
