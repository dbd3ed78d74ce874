package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// receiverConfig is the on-disk form of the engine's construction-time
// configuration (spec.md §6), loadable as either JSON or YAML so an
// operator can keep it alongside whichever other config files their
// deployment already uses.
type receiverConfig struct {
	Key           string `json:"key,omitempty" yaml:"key,omitempty"`
	MerkleRoot    string `json:"merkle_root,omitempty" yaml:"merkle_root,omitempty"`
	MaxSatellites int    `json:"max_satellites,omitempty" yaml:"max_satellites,omitempty"`
	SlowMAC       *bool  `json:"slow_mac,omitempty" yaml:"slow_mac,omitempty"`
	TagThreshold  int    `json:"tag_threshold,omitempty" yaml:"tag_threshold,omitempty"`
}

var configFile string

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "",
		"path to a JSON or YAML receiver configuration file (overrides the other flags' defaults)")
}

// loadConfigFile reads configFile, if set, and applies it on top of
// whatever the persistent flags were given: a flag value that differs
// from its zero/default is left alone, so an explicit CLI flag always
// wins over the file.
func loadConfigFile() error {
	if configFile == "" {
		return nil
	}
	raw, err := os.ReadFile(configFile)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	var cfg receiverConfig
	if strings.HasSuffix(configFile, ".yaml") || strings.HasSuffix(configFile, ".yml") {
		err = yaml.Unmarshal(raw, &cfg)
	} else {
		err = json.Unmarshal(raw, &cfg)
	}
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	if keyFile == "" && cfg.Key != "" {
		keyFile = cfg.Key
	}
	if merkleFile == "" && cfg.MerkleRoot != "" {
		merkleFile = cfg.MerkleRoot
	}
	if maxSatellites == 36 && cfg.MaxSatellites != 0 {
		maxSatellites = cfg.MaxSatellites
	}
	if slowMAC && cfg.SlowMAC != nil {
		slowMAC = *cfg.SlowMAC
	}
	if tagThreshold == 40 && cfg.TagThreshold != 0 {
		tagThreshold = cfg.TagThreshold
	}
	return nil
}
