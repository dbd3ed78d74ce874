package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"osnma/output"
	"osnma/serialdemo"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Drive the embedded demo's serial-line protocol over stdin/stdout",
	Long: `Runs the device role of the ASCII, CRLF-terminated serial-line
protocol (spec.md §6) over stdin/stdout, so it can be piped through a
real serial port (e.g. via socat) or driven directly by a test harness
feeding "SVN WN TOW BAND HEX" lines.`,
	RunE: runDemo,
}

func init() {
	rootCmd.AddCommand(demoCmd)
}

// stdioReadWriter adapts stdin/stdout to io.ReadWriter for serialdemo.NewDevice.
type stdioReadWriter struct {
	r io.Reader
	w io.Writer
}

func (s stdioReadWriter) Read(p []byte) (int, error)  { return s.r.Read(p) }
func (s stdioReadWriter) Write(p []byte) (int, error) { return s.w.Write(p) }

func runDemo(cmd *cobra.Command, args []string) error {
	eng, err := buildEngine()
	if err != nil {
		return fmt.Errorf("demo: %w", err)
	}

	rw := stdioReadWriter{r: os.Stdin, w: os.Stdout}
	dev := serialdemo.NewDevice(eng, rw)
	if err := dev.Run(); err != nil {
		return fmt.Errorf("demo: %w", err)
	}

	output.PrintSuccess("demo session ended")
	return nil
}
