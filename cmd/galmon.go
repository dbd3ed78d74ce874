package cmd

import (
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/spf13/cobra"

	"osnma/output"
	"osnma/transport/galmon"
)

var galmonAddr string

var galmonCmd = &cobra.Command{
	Use:   "galmon",
	Short: "Consume a live Galmon navmon protobuf stream",
	Long: `Dials a Galmon navmon TCP feed (or reads one from stdin with
--addr omitted), decodes its GalileoInav submessages, and feeds them
into an engine, printing engine state when the stream ends.`,
	RunE: runGalmon,
}

func init() {
	galmonCmd.Flags().StringVar(&galmonAddr, "addr", "",
		"host:port of a Galmon navmon TCP feed (reads stdin if empty)")
	rootCmd.AddCommand(galmonCmd)
}

func runGalmon(cmd *cobra.Command, args []string) error {
	eng, err := buildEngine()
	if err != nil {
		return fmt.Errorf("galmon: %w", err)
	}

	var r io.Reader = cmd.InOrStdin()
	if galmonAddr != "" {
		conn, err := net.Dial("tcp", galmonAddr)
		if err != nil {
			return fmt.Errorf("galmon: %w", err)
		}
		defer conn.Close()
		r = conn
	}

	dec := galmon.NewDecoder(r)
	messages := 0
	for {
		msg, err := dec.ReadMessage()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("galmon: %w", err)
		}
		if err := galmon.Feed(eng, msg); err != nil {
			printError(fmt.Sprintf("galmon: svn %d: %v", msg.SVN, err))
			continue
		}
		messages++
	}

	output.PrintSuccess(fmt.Sprintf("consumed %d GalileoInav messages", messages))
	printEngineState(eng.Storage())
	return nil
}
