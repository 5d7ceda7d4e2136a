package portshare

import "github.com/giantswarm/portshare/internal/core"

// Sentinel errors for error inspection with errors.Is.
// These are immutable constants safe for use in wrapped error chain comparison.
const (
	// ErrShuttingDown is returned by Acquire when the manager is shutting down.
	ErrShuttingDown = core.ErrShuttingDown

	// ErrNegativePort is returned by Acquire when the requested port is negative.
	ErrNegativePort = core.ErrNegativePort

	// ErrServerReleased is returned by Server methods called after Release.
	// The underlying server may already be shut down, or re-acquired and
	// owned by other holders; either way this acquisition is over.
	ErrServerReleased = core.ErrServerReleased
)
