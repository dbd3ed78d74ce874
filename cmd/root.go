package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"osnma/output"
)

var (
	version = "0.1.0"

	// Global flags
	keyFile       string
	merkleFile    string
	maxSatellites int
	slowMAC       bool
	tagThreshold  int
	jsonOutput    bool
)

var rootCmd = &cobra.Command{
	Use:   "osnma",
	Short: "Galileo OSNMA receiver-side authenticator",
	Long: `osnma v` + version + `
A receiver-side implementation of Galileo's Open Service Navigation
Message Authentication (OSNMA).

This tool supports:
  - Replaying a recorded I/NAV + OSNMA capture and reporting authentication
  - Consuming a live Galmon navmon protobuf stream
  - Driving the serial-line demo protocol against an external device
  - Inspecting engine state: NavBlocks, telemetry, public keys, chains`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&keyFile, "key", "",
		"path to the initial public key (PEM or raw uncompressed point)")
	rootCmd.PersistentFlags().StringVar(&merkleFile, "merkle-root", "",
		"path to the 32-byte Merkle root anchor (hex or raw)")
	rootCmd.PersistentFlags().IntVar(&maxSatellites, "max-satellites", 36,
		"bound on concurrently tracked satellites (12 or 36)")
	rootCmd.PersistentFlags().BoolVar(&slowMAC, "slow-mac", true,
		"process ADKD=12 slow-MAC tags")
	rootCmd.PersistentFlags().IntVar(&tagThreshold, "tag-threshold", 40,
		"tag accumulation threshold in bits")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false,
		"accepted but not read by any command; output is always rendered as tables")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func printError(msg string) {
	output.PrintError(msg)
}
