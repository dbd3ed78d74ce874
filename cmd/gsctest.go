package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"osnma/gsctest"
	"osnma/output"
)

var gsctestReportPrefix string

var gsctestCmd = &cobra.Command{
	Use:   "gsctest",
	Short: "Run the GSC end-to-end reference scenarios",
	Long: `Runs the six literal GSC scenarios from spec.md §8 (Configuration
1, Configuration 2, chain renewal step 2, public-key renewal all-steps,
public-key revocation step 3, OSNMA Alert Message) against synthetic but
cryptographically genuine fixtures, and reports pass/fail per scenario.`,
	RunE: runGSCTest,
}

func init() {
	gsctestCmd.Flags().StringVar(&gsctestReportPrefix, "report", "",
		"write <prefix>.json and <prefix>.html alongside the table output")
	rootCmd.AddCommand(gsctestCmd)
}

func runGSCTest(cmd *cobra.Command, args []string) error {
	results := gsctest.RunAll()
	output.PrintGSCResults(results)

	if gsctestReportPrefix != "" {
		report := gsctest.BuildReport(results, time.Now())
		if err := report.WriteJSON(gsctestReportPrefix + ".json"); err != nil {
			return err
		}
		if err := report.WriteHTML(gsctestReportPrefix + ".html"); err != nil {
			return err
		}
		output.PrintSuccess(fmt.Sprintf("wrote %s.json and %s.html", gsctestReportPrefix, gsctestReportPrefix))
	}

	if n := countFailed(results); n > 0 {
		return fmt.Errorf("gsctest: %d scenario(s) failed", n)
	}
	return nil
}

func countFailed(results []output.GSCResult) int {
	n := 0
	for _, r := range results {
		if !r.Passed {
			n++
		}
	}
	return n
}
