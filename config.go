package portshare

import "github.com/giantswarm/portshare/internal/core"

// managerConfig holds configuration for a Manager. This unexported type
// wraps core.ManagerConfig via embedding, keeping internal/core types out of
// the public API signature while avoiding field-by-field duplication.
type managerConfig struct {
	core.ManagerConfig

	// baseDataDir is where the stock KV server builder keeps per-server
	// data directories and port lease files. Unused when WithBuilder
	// supplies a custom builder.
	baseDataDir string
}

// toCoreConfig returns the embedded core.ManagerConfig, wiring the stock KV
// server builder when no custom builder was configured.
func (c managerConfig) toCoreConfig() core.ManagerConfig {
	cfg := c.ManagerConfig
	if cfg.Builder == nil {
		cfg.Builder = NewKVServerBuilder(c.baseDataDir)
	}
	return cfg
}
