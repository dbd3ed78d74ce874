package cmd

import (
	"fmt"

	"osnma/engine"
	"osnma/keymaterial"
	"osnma/store"
)

// buildEngine constructs an Engine from the persistent flags, seeding
// its initial public key (as PKID 1) when --key is supplied, together
// with the --merkle-root anchor if that is also given (otherwise an
// all-zero root). Without --key, neither is installed and --merkle-root
// is not read (spec.md §6).
func buildEngine() (*engine.Engine, error) {
	if err := loadConfigFile(); err != nil {
		return nil, err
	}
	cfg := store.Config{
		MaxSatellites:            maxSatellites,
		SlowMACEnabled:           slowMAC,
		TagAccumulationThreshold: tagThreshold,
	}
	eng := engine.New(cfg)

	if keyFile == "" {
		return eng, nil
	}
	pub, err := keymaterial.LoadPublicKey(keyFile)
	if err != nil {
		return nil, fmt.Errorf("loading public key: %w", err)
	}

	var root [32]byte
	if merkleFile != "" {
		root, err = keymaterial.LoadMerkleRoot(merkleFile)
		if err != nil {
			return nil, fmt.Errorf("loading Merkle root: %w", err)
		}
	}
	eng.InstallInitialKeyMaterial(store.PublicKeyEntry{PKID: 1, Point: pub}, root)
	return eng, nil
}
