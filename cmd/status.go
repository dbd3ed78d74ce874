package cmd

import (
	"github.com/spf13/cobra"

	"osnma/output"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print an empty engine's starting configuration",
	Long: `Constructs an engine from the persistent flags (--key,
--merkle-root, --max-satellites, --slow-mac, --tag-threshold) without
feeding it any data, and prints its initial telemetry, public-key, and
TESLA chain state. Mainly useful for sanity-checking a --key/
--merkle-root pair before a replay or galmon run.`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	eng, err := buildEngine()
	if err != nil {
		return err
	}
	output.PrintSuccess("engine constructed")
	printEngineState(eng.Storage())
	return nil
}
