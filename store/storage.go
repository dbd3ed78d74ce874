package store

import (
	"container/list"

	"osnma/bitparse"
	"osnma/gst"
)

// SlowMACGap is the subframe delta between an ADKD=12 tag's disclosure
// subframe and the NavBlock it authenticates (spec.md §4.5).
const SlowMACGap = 10

// FastMACGap is the subframe delta for every other ADKD (spec.md §4.5).
const FastMACGap = 1

// slotKey identifies one (SVN, subframe) admission unit for the
// least-recently-seen eviction policy (spec.md §3 invariants, §9).
type slotKey struct {
	SVN SVN
	GST gst.Time
}

// Config holds the construction-time parameters of spec.md §6.
type Config struct {
	MaxSatellites            int // 12 or 36
	SlowMACEnabled            bool
	TagAccumulationThreshold  int // default 40 (bits)
}

// pendingPage is the single buffered INAV page per (SVN, band) the
// engine retains while a subframe's words are still arriving.
type pendingPage struct {
	GST   gst.Time
	Words map[int]bitparse.INAVWord // by word type, within the current subframe
}

// PagesPerSubframe is the nominal number of 2-second I/NAV/OSNMA pages
// per 30-second subframe, and therefore the number of 32-bit MACK
// fragments that concatenate into one subframe's ~480-bit MACK payload
// (spec.md §3).
const PagesPerSubframe = 15

// pendingMACK accumulates one subframe's MACK payload bits across the
// pages that carry it.
type pendingMACK struct {
	GST   gst.Time
	Bits  bitparse.Bits
	Pages int
}

// Storage is the engine's single, bounded storage instance (spec.md §2
// step 2, §5). It owns no goroutines and performs no I/O; every method
// is synchronous and non-blocking.
type Storage struct {
	cfg Config

	pendingINAV map[SVNBand]*pendingPage
	pendingMACK map[SVN]*pendingMACK

	navBlocks map[NavBlockKey]*NavBlock
	mackBlocks map[MACKKey]*MACKRecord

	dsmBuffers map[DSMKey]*DSMBuffer

	PubKeys       PublicKeySet
	MerkleRoot    [32]byte
	HasMerkleRoot bool
	Chains        [2]*ChainDescriptor // indexed by ChainStatus

	// slots tracks (SVN, subframe) admission recency for the
	// least-recently-seen eviction policy. The front of the list is the
	// least recently seen slot.
	slots     *list.List
	slotElems map[slotKey]*list.Element
	slotCap   int

	Telemetry Telemetry
}

// New constructs a Storage sized per cfg.
func New(cfg Config) *Storage {
	if cfg.MaxSatellites <= 0 {
		cfg.MaxSatellites = 36
	}
	if cfg.TagAccumulationThreshold <= 0 {
		cfg.TagAccumulationThreshold = 40
	}
	// Capacity covers the Slow-MAC retention window (10 subframes) plus
	// slack for interleaved SVNs and late arrivals (spec.md §5).
	slotCap := cfg.MaxSatellites * (SlowMACGap + 6)
	return &Storage{
		cfg:         cfg,
		pendingINAV: make(map[SVNBand]*pendingPage),
		pendingMACK: make(map[SVN]*pendingMACK),
		navBlocks:   make(map[NavBlockKey]*NavBlock),
		mackBlocks:  make(map[MACKKey]*MACKRecord),
		dsmBuffers:  make(map[DSMKey]*DSMBuffer),
		slots:       list.New(),
		slotElems:   make(map[slotKey]*list.Element),
		slotCap:     slotCap,
	}
}

// Config returns the storage's construction-time configuration.
func (s *Storage) Config() Config { return s.cfg }

// touchSlot marks (svn, g) as most-recently-seen, evicting the oldest
// slot if this is a new slot and the store is at capacity.
func (s *Storage) touchSlot(svn SVN, g gst.Time) {
	key := slotKey{SVN: svn, GST: g}
	if elem, ok := s.slotElems[key]; ok {
		s.slots.MoveToBack(elem)
		return
	}
	elem := s.slots.PushBack(key)
	s.slotElems[key] = elem

	for s.slots.Len() > s.slotCap {
		oldest := s.slots.Front()
		s.slots.Remove(oldest)
		ok := oldest.Value.(slotKey)
		delete(s.slotElems, ok)
		s.evictSlot(ok)
	}
}

// evictSlot drops every NavBlock and MACK record tied to slot (spec.md
// §3: "all tags/NavBlocks tied to that slot are dropped").
func (s *Storage) evictSlot(slot slotKey) {
	for k := range s.navBlocks {
		if k.PRND == slot.SVN && k.GST.Equal(slot.GST) {
			delete(s.navBlocks, k)
		}
	}
	delete(s.mackBlocks, MACKKey{SVN: slot.SVN, GST: slot.GST})
	s.Telemetry.StorageEvicted++
}

// PendingINAVWord returns the buffered word of wordType for (svn, band)
// in the current pending subframe, if any.
func (s *Storage) PendingINAVWord(svn SVN, band bitparse.Band, wordType int) (bitparse.INAVWord, bool) {
	p, ok := s.pendingINAV[SVNBand{SVN: svn, Band: band}]
	if !ok {
		return bitparse.INAVWord{}, false
	}
	w, ok := p.Words[wordType]
	return w, ok
}

// AdmitINAVWord buffers word for (svn, band, g), rolling over the
// pending-subframe buffer if g starts a new subframe.
func (s *Storage) AdmitINAVWord(svn SVN, band bitparse.Band, g gst.Time, word bitparse.INAVWord) {
	s.touchSlot(svn, g)
	sb := SVNBand{SVN: svn, Band: band}
	p, ok := s.pendingINAV[sb]
	if !ok || !p.GST.Equal(g) {
		p = &pendingPage{GST: g, Words: make(map[int]bitparse.INAVWord)}
		s.pendingINAV[sb] = p
	}
	p.Words[word.Type] = word
}

// AccumulateMACK appends one page's 32-bit MACK fragment to svn's
// subframe-g MACK accumulator, rolling it over on a new subframe.
// complete is true exactly once, when the accumulator reaches the full
// ~480-bit MACK payload, and full then holds the concatenated bits.
func (s *Storage) AccumulateMACK(svn SVN, g gst.Time, fragment bitparse.Bits) (complete bool, full bitparse.Bits) {
	p, ok := s.pendingMACK[svn]
	if !ok || !p.GST.Equal(g) {
		p = &pendingMACK{GST: g}
		s.pendingMACK[svn] = p
	}
	p.Bits = append(p.Bits, fragment...)
	p.Pages++
	if p.Pages >= PagesPerSubframe {
		full = p.Bits
		delete(s.pendingMACK, svn)
		return true, full
	}
	return false, nil
}

// PutNavBlock installs or returns the existing NavBlock for key,
// creating it if absent.
func (s *Storage) PutNavBlock(key NavBlockKey) *NavBlock {
	s.touchSlot(key.PRND, key.GST)
	nb, ok := s.navBlocks[key]
	if !ok {
		nb = NewNavBlock(key, nil)
		s.navBlocks[key] = nb
	}
	return nb
}

// NavBlock returns the NavBlock for key, if it exists and was not
// evicted or tainted.
func (s *Storage) NavBlock(key NavBlockKey) (*NavBlock, bool) {
	nb, ok := s.navBlocks[key]
	if !ok || nb.Tainted {
		return nil, false
	}
	return nb, true
}

// DropNavBlock removes key, used on disagreement or taint detection
// (spec.md §3, §4.6).
func (s *Storage) DropNavBlock(key NavBlockKey) {
	delete(s.navBlocks, key)
}

// LatestAuthenticated returns the authenticated NavBlock for (adkd, prnD)
// with the most recent AuthenticatedAt, letting a consumer query
// authentication status without already knowing the exact subframe
// (spec.md §6: authenticated(adkd, prn_d)).
func (s *Storage) LatestAuthenticated(adkd ADKD, prnD SVN) (*NavBlock, bool) {
	var best *NavBlock
	for _, nb := range s.navBlocks {
		if nb.Tainted || !nb.Authenticated || nb.Key.ADKD != adkd || nb.Key.PRND != prnD {
			continue
		}
		if best == nil || nb.AuthenticatedAt.After(best.AuthenticatedAt) {
			best = nb
		}
	}
	return best, best != nil
}

// NavBlocks returns every live (non-tainted) NavBlock, for status
// display (spec.md §6, output.PrintNavBlocks).
func (s *Storage) NavBlocks() []*NavBlock {
	out := make([]*NavBlock, 0, len(s.navBlocks))
	for _, nb := range s.navBlocks {
		if !nb.Tainted {
			out = append(out, nb)
		}
	}
	return out
}

// MACKBlock returns the MACK record for (svn, g), creating it if absent.
func (s *Storage) MACKBlock(svn SVN, g gst.Time) *MACKRecord {
	s.touchSlot(svn, g)
	key := MACKKey{SVN: svn, GST: g}
	rec, ok := s.mackBlocks[key]
	if !ok {
		rec = &MACKRecord{Key: key}
		s.mackBlocks[key] = rec
	}
	return rec
}

// DSMBuffer returns the in-flight reassembly buffer for key, creating a
// new one (possibly evicting the oldest in-flight buffer) if absent.
func (s *Storage) DSMBuffer(key DSMKey, now int64) *DSMBuffer {
	buf, ok := s.dsmBuffers[key]
	if ok {
		return buf
	}
	if len(s.dsmBuffers) >= DSMMaxInFlight {
		s.evictOldestDSM()
	}
	buf = &DSMBuffer{Key: key, LastProgress: now}
	s.dsmBuffers[key] = buf
	return buf
}

func (s *Storage) evictOldestDSM() {
	var oldestKey DSMKey
	var oldest int64 = -1
	for k, b := range s.dsmBuffers {
		if oldest == -1 || b.LastProgress < oldest {
			oldest = b.LastProgress
			oldestKey = k
		}
	}
	if oldest != -1 {
		delete(s.dsmBuffers, oldestKey)
		s.Telemetry.DSMIncompleteEvicted++
	}
}

// FreeDSMBuffer discards the in-flight buffer for key, called once it
// has dispatched a complete DSM message (spec.md §4.2: "then free the
// buffer").
func (s *Storage) FreeDSMBuffer(key DSMKey) {
	delete(s.dsmBuffers, key)
}

// EvictStaleDSM drops any DSM-ID buffer that has not progressed in K
// subframes (spec.md §4.2 partial-DSM-timeout, K = 16 by default).
func (s *Storage) EvictStaleDSM(now int64, k int64) {
	for key, buf := range s.dsmBuffers {
		if now-buf.LastProgress > k {
			delete(s.dsmBuffers, key)
			s.Telemetry.DSMIncompleteEvicted++
		}
	}
}
