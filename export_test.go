package portshare

import "time"

// ResetForTesting resets the singleton manager state so that the next call
// to NewManager creates a fresh instance. This is exported only for use in
// test packages (package portshare_test).
func ResetForTesting() { resetForTesting() }

// ConfigSnapshot holds a copy of managerConfig fields for test assertions.
// Exported only via export_test.go so that the _test package can verify
// option closures actually mutate the config without accessing internals.
type ConfigSnapshot struct {
	BuildTimeout     time.Duration
	StopTimeout      time.Duration
	BaseDataDir      string
	HasCustomBuilder bool
}

// ApplyOptionsForTesting creates a default managerConfig, applies the given
// options, and returns a ConfigSnapshot of the result. This tests the option
// closures directly without touching the singleton.
func ApplyOptionsForTesting(opts ...ManagerOption) ConfigSnapshot {
	cfg := defaultManagerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	return ConfigSnapshot{
		BuildTimeout:     cfg.BuildTimeout,
		StopTimeout:      cfg.StopTimeout,
		BaseDataDir:      cfg.baseDataDir,
		HasCustomBuilder: cfg.Builder != nil,
	}
}
