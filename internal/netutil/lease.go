package netutil

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// leaseRetryInterval is the interval between consecutive attempts to acquire
// a port lease file. 50ms balances responsiveness (low wait after the holder
// releases) against CPU overhead from busy-polling.
const leaseRetryInterval = 50 * time.Millisecond

// PortLease is an exclusive cross-process claim on a fixed port, backed by a
// lock file. It prevents two test binaries running on the same machine from
// both starting a server on the same fixed port: the second binary blocks in
// AcquirePortLease until the first releases the port.
type PortLease struct {
	fl   *flock.Flock
	port int
	log  *slog.Logger
}

// AcquirePortLease acquires an exclusive lock on the lease file for port
// under lockDir. It respects context cancellation and retries at
// leaseRetryInterval until the lock is held or the context is done.
// If logger is nil, slog.Default() is used as a fallback.
func AcquirePortLease(ctx context.Context, lockDir string, port int, logger *slog.Logger) (*PortLease, error) {
	if logger == nil {
		logger = slog.Default()
	}

	path := filepath.Join(lockDir, fmt.Sprintf("port-%d.lock", port))
	fl := flock.New(path)

	locked, err := fl.TryLockContext(ctx, leaseRetryInterval)
	if err != nil {
		return nil, fmt.Errorf("acquiring port lease %s: %w", path, err)
	}
	if !locked {
		// Defensive: TryLockContext should return an error when it fails,
		// but handle the case where it returns (false, nil) unexpectedly.
		if ctx.Err() != nil {
			return nil, fmt.Errorf("acquiring port lease %s: %w", path, ctx.Err())
		}
		return nil, fmt.Errorf("acquiring port lease %s: lock not acquired", path)
	}

	return &PortLease{fl: fl, port: port, log: logger}, nil
}

// Port returns the port this lease covers.
func (l *PortLease) Port() int {
	return l.port
}

// Path returns the lease file path.
func (l *PortLease) Path() string {
	return l.fl.Path()
}

// Release releases the lease and closes the underlying file descriptor.
// The lease file is intentionally left on disk: removing it could invalidate
// a lock concurrently acquired on the same path by another process.
// Best-effort cleanup; errors are logged at debug level. Safe on nil.
func (l *PortLease) Release() {
	if l == nil {
		return
	}
	if err := l.fl.Close(); err != nil {
		l.log.Debug("failed to release port lease", "path", l.fl.Path(), "err", err)
	}
}
