package bitparse

import "osnma/dictionaries"

// SlotDescriptor is the declared (ADKD, is-flex) pair for a subframe
// position in a MAC look-up table (spec.md §4.1).
type SlotDescriptor struct {
	ADKD int
	Flex bool
}

// MACLookupRow returns the declared slot descriptor for (tableID, slot).
// Flex slots accept any ADKD announced in the current MACSEQ flex list;
// callers must resolve ADKD themselves in that case.
func MACLookupRow(tableID, slot int) (SlotDescriptor, bool) {
	row, ok := dictionaries.Row(tableID, slot)
	if !ok {
		return SlotDescriptor{}, false
	}
	return SlotDescriptor{ADKD: row.ADKD, Flex: row.Flex}, true
}
