// Package config loads the runtime tunables that the library itself
// leaves to its host application: TX queue capacity, transfer-ID
// timeouts, MTU overrides, the local node id, and the registry
// persistence file path. It follows the default-overlay pattern of
// edgectl's miragectl config loader: a struct of defaults is built
// first, and toml.DecodeFile only overwrites the keys actually present
// in the file, so a partial config file never zeroes out unset fields.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config is the fully-resolved runtime configuration, ready to hand to
// can.New, udp.New, and registry.New.
type Config struct {
	// LocalNodeID is the node id to start with; 0xFFFFFFFF-equivalent
	// "unset" is spelled as a negative value here and resolved by the
	// caller into transport.UnsetNodeID.
	LocalNodeID int32

	TxQueueCapacity int

	// TransferIDTimeoutUS is the per-subscription multi-frame
	// reassembly timeout, in microseconds.
	TransferIDTimeoutUS int64

	// MTUOverride, if nonzero, overrides the MTU negotiated from the
	// configured media's own MTU() values.
	MTUOverride int

	RegistryPersistPath string
}

// Default returns the built-in defaults, overridden by nothing.
func Default() Config {
	return Config{
		LocalNodeID:         -1,
		TxQueueCapacity:     64,
		TransferIDTimeoutUS: 2_000_000,
		MTUOverride:         0,
		RegistryPersistPath: "registers.toml",
	}
}

// fileConfig mirrors Config's fields as the TOML file spells them.
type fileConfig struct {
	LocalNodeID         int64  `toml:"local_node_id"`
	TxQueueCapacity     int64  `toml:"tx_queue_capacity"`
	TransferIDTimeoutUS int64  `toml:"transfer_id_timeout_us"`
	MTUOverride         int64  `toml:"mtu_override"`
	RegistryPersistPath string `toml:"registry_persist_path"`
}

// Load reads path, overlaying only the keys present in the file onto
// Default(). A missing file is not an error; Load then returns the
// plain defaults, matching a fresh install with no config written yet.
func Load(path string) (Config, error) {
	cfg := Default()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("config: load %q: %w", path, err)
	}

	if meta.IsDefined("local_node_id") {
		cfg.LocalNodeID = int32(raw.LocalNodeID)
	}
	if meta.IsDefined("tx_queue_capacity") {
		cfg.TxQueueCapacity = int(raw.TxQueueCapacity)
	}
	if meta.IsDefined("transfer_id_timeout_us") {
		cfg.TransferIDTimeoutUS = raw.TransferIDTimeoutUS
	}
	if meta.IsDefined("mtu_override") {
		cfg.MTUOverride = int(raw.MTUOverride)
	}
	if meta.IsDefined("registry_persist_path") {
		cfg.RegistryPersistPath = strings.TrimSpace(raw.RegistryPersistPath)
	}

	if cfg.TxQueueCapacity <= 0 {
		return Config{}, fmt.Errorf("config: tx_queue_capacity must be positive, got %d", cfg.TxQueueCapacity)
	}
	return cfg, nil
}
