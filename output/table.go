// Package output renders engine state to the terminal: authenticated
// NavBlocks, telemetry counters, the public-key set and TESLA chain
// status, and GSC scenario results.
package output

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"osnma/crypto"
	"osnma/gst"
	"osnma/store"
)

// Color styles
var (
	colorHeader  = text.Colors{text.FgCyan, text.Bold}
	colorLabel   = text.Colors{text.FgYellow}
	colorValue   = text.Colors{text.FgWhite}
	colorSuccess = text.Colors{text.FgGreen}
	colorError   = text.Colors{text.FgRed}
	colorWarn    = text.Colors{text.FgYellow}
)

// getTableStyle returns the default table style.
func getTableStyle() table.Style {
	style := table.StyleRounded
	style.Color.Header = colorHeader
	style.Color.Row = text.Colors{text.FgWhite}
	style.Color.RowAlternate = text.Colors{text.FgHiWhite}
	style.Options.SeparateRows = false
	return style
}

// newTable creates a new table writer with default settings.
func newTable() table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(getTableStyle())
	t.Style().Options.SeparateRows = false
	return t
}

// NavBlockRow is one authenticated or pending NavBlock, as a collaborator
// would read it off the engine for display.
type NavBlockRow struct {
	ADKD          store.ADKD
	PRND          store.SVN
	GST           gst.Time
	AuthBits      int
	Threshold     int
	Authenticated bool
}

// PrintNavBlocks prints the current NavBlock accumulation state.
func PrintNavBlocks(rows []NavBlockRow) {
	fmt.Println()
	t := newTable()
	t.SetTitle("NAVBLOCK AUTHENTICATION STATE")
	t.AppendHeader(table.Row{"ADKD", "PRN-D", "GST", "Bits", "Status"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Colors: colorLabel, WidthMin: 6},
		{Number: 2, Colors: colorValue, WidthMin: 6},
		{Number: 3, Colors: colorValue, WidthMin: 12},
		{Number: 4, WidthMin: 10},
		{Number: 5, WidthMin: 14},
	})

	if len(rows) == 0 {
		t.AppendRow(table.Row{"-", "-", "-", "-", "(none)"})
	}
	for _, r := range rows {
		status := colorWarn.Sprintf("pending")
		if r.Authenticated {
			status = colorSuccess.Sprintf("authenticated")
		}
		t.AppendRow(table.Row{
			r.ADKD, r.PRND, r.GST.String(),
			fmt.Sprintf("%d/%d", r.AuthBits, r.Threshold),
			status,
		})
	}
	t.Render()
}

// PrintTelemetry prints every error-taxonomy counter the engine has
// accumulated (spec.md §7).
func PrintTelemetry(tel store.Telemetry) {
	fmt.Println()
	t := newTable()
	t.SetTitle("TELEMETRY")
	t.AppendHeader(table.Row{"Counter", "Count"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Colors: colorLabel, WidthMin: 26},
		{Number: 2, Colors: colorValue, WidthMin: 8},
	})

	rows := []struct {
		name  string
		count int64
	}{
		{"Malformed bits", tel.MalformedBits},
		{"Unknown PKID", tel.UnknownPKID},
		{"Unsupported curve", tel.UnsupportedCurve},
		{"Unsupported hash", tel.UnsupportedHash},
		{"Unsupported MAC", tel.UnsupportedMAC},
		{"DSM incomplete/evicted", tel.DSMIncompleteEvicted},
		{"Signature invalid", tel.SignatureInvalid},
		{"Merkle mismatch", tel.MerkleMismatch},
		{"TESLA chain broken", tel.TESLAChainBroken},
		{"MACSEQ invalid", tel.MACSEQInvalid},
		{"Tag mismatch", tel.TagMismatch},
		{"Missing NavBlock", tel.MissingNavBlock},
		{"Storage evicted", tel.StorageEvicted},
		{"Alert terminal", tel.AlertTerminal},
	}
	for _, r := range rows {
		count := fmt.Sprintf("%d", r.count)
		if r.count > 0 {
			count = colorWarn.Sprintf("%d", r.count)
		}
		t.AppendRow(table.Row{r.name, count})
	}
	t.Render()
}

// PrintPublicKeys prints the current/next public-key slots.
func PrintPublicKeys(keys store.PublicKeySet) {
	fmt.Println()
	t := newTable()
	t.SetTitle("PUBLIC KEY SET")
	t.AppendHeader(table.Row{"Slot", "PKID", "Curve"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Colors: colorLabel, WidthMin: 10},
		{Number: 2, Colors: colorValue, WidthMin: 8},
		{Number: 3, Colors: colorValue, WidthMin: 10},
	})

	printEntry := func(slot string, e *store.PublicKeyEntry) {
		if e == nil {
			t.AppendRow(table.Row{slot, "-", "(empty)"})
			return
		}
		t.AppendRow(table.Row{slot, e.PKID, curveName(e.Point.Curve)})
	}
	printEntry("current", keys.Current)
	printEntry("next", keys.Next)
	t.Render()
}

func curveName(c crypto.Curve) string {
	switch c {
	case crypto.CurveP256:
		return "P-256"
	case crypto.CurveP521:
		return "P-521"
	default:
		return "unknown"
	}
}

// PrintChains prints the TESLA chain descriptors' anchor status.
func PrintChains(chains [2]*store.ChainDescriptor) {
	fmt.Println()
	t := newTable()
	t.SetTitle("TESLA CHAINS")
	t.AppendHeader(table.Row{"Slot", "CID", "Auth Index", "Key Bits", "Tag Bits"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Colors: colorLabel, WidthMin: 10},
		{Number: 2, Colors: colorValue, WidthMin: 6},
		{Number: 3, WidthMin: 12},
		{Number: 4, WidthMin: 10},
		{Number: 5, WidthMin: 10},
	})

	names := [2]string{"current", "next"}
	for i, desc := range chains {
		if desc == nil {
			t.AppendRow(table.Row{names[i], "-", "-", "-", "-"})
			continue
		}
		t.AppendRow(table.Row{names[i], desc.CID, desc.AuthIndex, desc.KeyBits, desc.TagBits})
	}
	t.Render()
}

// GSCResult is one GSC scenario's outcome, for PrintGSCResults.
type GSCResult struct {
	Name   string
	Passed bool
	Detail string
}

// PrintGSCResults prints the outcome of the GSC end-to-end scenarios.
func PrintGSCResults(results []GSCResult) {
	fmt.Println()
	t := newTable()
	t.SetTitle("GSC SCENARIO RESULTS")
	t.AppendHeader(table.Row{"Status", "Scenario", "Detail"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 6},
		{Number: 2, Colors: colorLabel, WidthMin: 30},
		{Number: 3, Colors: colorValue, WidthMin: 40},
	})

	passed := 0
	for _, r := range results {
		status := colorSuccess.Sprint("✓")
		if r.Passed {
			passed++
		} else {
			status = colorError.Sprint("✗")
		}
		t.AppendRow(table.Row{status, r.Name, r.Detail})
	}
	t.Render()
	fmt.Printf("\n%d/%d scenarios passed\n", passed, len(results))
}

// PrintError prints an error message.
func PrintError(msg string) {
	fmt.Println(colorError.Sprintf("✗ Error: %s", msg))
}

// PrintSuccess prints a success message.
func PrintSuccess(msg string) {
	fmt.Println(colorSuccess.Sprintf("✓ %s", msg))
}

// PrintWarning prints a warning message.
func PrintWarning(msg string) {
	fmt.Println(colorWarn.Sprintf("⚠ %s", msg))
}
