package portshare

import "time"

// Default configuration values for NewManager.
// These constants are exported so callers can reference the defaults when
// building custom configurations relative to them (e.g., 2 * DefaultBuildTimeout).
const (
	// DefaultBuildTimeout bounds a single builder invocation during
	// Acquire. The stock KV server starts in well under a second; the
	// generous default leaves room for heavyweight custom builders.
	DefaultBuildTimeout = 30 * time.Second

	// DefaultStopTimeout bounds the shutdown of one server, both on the
	// last-holder Release and per server during Shutdown.
	DefaultStopTimeout = 10 * time.Second

	// DefaultBaseDataDirName is the directory name under the system temp
	// directory where the stock KV server builder keeps per-server data.
	// The full path is computed as filepath.Join(os.TempDir(), DefaultBaseDataDirName).
	DefaultBaseDataDirName = "portshare"
)
