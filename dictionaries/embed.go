// Package dictionaries provides the static ICD-defined tables the engine
// consults at run time: MAC look-up table rows, the DSM NB-field
// block-count table, and curve parameter metadata. These are compiled in
// via Go's embed directive the same way the teacher embeds its ATR and
// MCC/MNC reference data, because they are reference tables from the
// controlling ICD rather than values the protocol ever negotiates.
package dictionaries

import (
	"embed"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
)

//go:embed maclt.csv
var content embed.FS

// MACLTRow describes one slot of one MAC look-up table (spec.md §4.1).
// ADKD is -1 for a flex slot, whose ADKD is instead taken from the
// disclosing MACK's flex-ADKD list (MACSEQ, spec.md §4.5).
type MACLTRow struct {
	Table int
	Slot  int
	ADKD  int
	Flex  bool
}

// MACLookupTables holds every row of every known MAC look-up table,
// indexed by (table id, slot index).
var MACLookupTables = mustLoadMACLT()

func mustLoadMACLT() map[int]map[int]MACLTRow {
	f, err := content.Open("maclt.csv")
	if err != nil {
		panic(fmt.Sprintf("dictionaries: embedded maclt.csv missing: %v", err))
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		panic(fmt.Sprintf("dictionaries: malformed maclt.csv: %v", err))
	}

	tables := make(map[int]map[int]MACLTRow)
	for i, rec := range records {
		if i == 0 {
			continue // header row
		}
		if len(rec) != 4 {
			continue
		}
		table, _ := strconv.Atoi(strings.TrimSpace(rec[0]))
		slot, _ := strconv.Atoi(strings.TrimSpace(rec[1]))
		adkd, _ := strconv.Atoi(strings.TrimSpace(rec[2]))
		flex := strings.TrimSpace(rec[3]) == "true"
		if tables[table] == nil {
			tables[table] = make(map[int]MACLTRow)
		}
		tables[table][slot] = MACLTRow{Table: table, Slot: slot, ADKD: adkd, Flex: flex}
	}
	return tables
}

// Row returns the declared slot descriptor for (table, slot), and whether
// that (table, slot) pair exists.
func Row(table, slot int) (MACLTRow, bool) {
	t, ok := MACLookupTables[table]
	if !ok {
		return MACLTRow{}, false
	}
	row, ok := t[slot]
	return row, ok
}

// NBField maps the DSM-KROOT/DSM-PKR length nibble (NB field) to the
// total number of 1-octet HKROOT blocks the message spans (spec.md §4.2,
// ICD NB-field interpretation table).
var NBField = map[int]int{
	1:  7,
	2:  8,
	3:  9,
	4:  10,
	5:  11,
	6:  12,
	7:  13,
	8:  14,
	9:  15,
	10: 16,
	// 0 and 11-15 are reserved in the controlling ICD and treated as
	// inconsistent-block by the reassembler.
}

// CurveParams describes the field width of a supported ECDSA curve.
type CurveParams struct {
	Name      string
	FieldBits int
}

var (
	CurveP256 = CurveParams{Name: "P-256", FieldBits: 256}
	CurveP521 = CurveParams{Name: "P-521", FieldBits: 521}
)
