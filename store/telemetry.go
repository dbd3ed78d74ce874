package store

// Telemetry counts every error kind spec.md §7 names. The engine's
// public API never returns an error for an individual feed call
// (spec.md §7 propagation policy); callers observe failures here
// instead.
type Telemetry struct {
	MalformedBits        int64
	UnknownPKID          int64
	UnsupportedCurve     int64
	UnsupportedHash      int64
	UnsupportedMAC       int64
	DSMIncompleteEvicted int64
	SignatureInvalid     int64
	MerkleMismatch       int64
	TESLAChainBroken     int64
	MACSEQInvalid        int64
	TagMismatch          int64
	MissingNavBlock      int64
	StorageEvicted       int64
	AlertTerminal        int64

	// NMTObserved counts transitions into CPKS=NMT, reported as an
	// observable event rather than acted on directly (spec.md §4.7).
	NMTObserved int64
}
