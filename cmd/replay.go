package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"osnma/output"
	"osnma/serialdemo"
	"osnma/store"
)

var replayCmd = &cobra.Command{
	Use:   "replay [capture-file]",
	Short: "Replay a recorded I/NAV + OSNMA capture and report authentication",
	Long: `Reads a capture file of "SVN WN TOW BAND HEX [OSNMA]" lines (the
same shape the serial-line demo device reads, spec.md §6) and feeds each
record into a fresh engine, printing the resulting NavBlock, telemetry,
public-key, and chain state once the capture is exhausted.`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)
}

func runReplay(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("replay: %w", err)
	}
	defer f.Close()

	eng, err := buildEngine()
	if err != nil {
		return fmt.Errorf("replay: %w", err)
	}

	records := 0
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := serialdemo.ReplayLine(eng, line); err != nil {
			printError(fmt.Sprintf("replay: line %d: %v", records+1, err))
			continue
		}
		records++
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("replay: %w", err)
	}

	output.PrintSuccess(fmt.Sprintf("replayed %d records", records))
	printEngineState(eng.Storage())
	return nil
}

// printEngineState renders the NavBlock accumulation table, telemetry,
// the public-key set, and the TESLA chain slots for a finished run
// (shared by replay/galmon/status).
func printEngineState(st *store.Storage) {
	output.PrintNavBlocks(navBlockRows(st))
	output.PrintTelemetry(st.Telemetry)
	output.PrintPublicKeys(st.PubKeys)
	output.PrintChains(st.Chains)
}

// navBlockRows renders every live NavBlock the storage is still holding
// as a display row (spec.md §6, output.PrintNavBlocks).
func navBlockRows(st *store.Storage) []output.NavBlockRow {
	threshold := st.Config().TagAccumulationThreshold
	blocks := st.NavBlocks()
	rows := make([]output.NavBlockRow, 0, len(blocks))
	for _, nb := range blocks {
		rows = append(rows, output.NavBlockRow{
			ADKD:          nb.Key.ADKD,
			PRND:          nb.Key.PRND,
			GST:           nb.Key.GST,
			AuthBits:      nb.AuthBits,
			Threshold:     threshold,
			Authenticated: nb.Authenticated,
		})
	}
	return rows
}
