package core

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/giantswarm/portshare/internal/sentinel"
)

// ErrShuttingDown is returned by Acquire when the Manager is shutting down.
const ErrShuttingDown = sentinel.Error("manager is shutting down")

// ErrServerReleased is returned by Server methods called after Release.
const ErrServerReleased = sentinel.Error("server has been released")

// Manager wraps a Registry with the configured builder and timeouts. It is
// the concrete implementation behind the public Manager interface.
//
// It is safe for concurrent use by multiple goroutines. The Registry carries
// all shared mutable state; the Manager itself only adds the shutdown flag.
type Manager struct {
	cfg ManagerConfig
	reg *Registry

	// shuttingDown is set once by Shutdown. Acquire refuses new work after
	// it is set; in-flight registry operations complete normally because
	// the registry mutex serializes them against DrainAll.
	shuttingDown atomic.Bool
}

// NewManagerWithConfig creates a Manager with the provided configuration.
// This performs no I/O; servers are built on first Acquire per port.
//
// Panics if cfg.Validate() reports any errors. Invalid configuration is a
// programmer error that should be caught at construction time, similar to
// regexp.MustCompile.
func NewManagerWithConfig(cfg ManagerConfig) *Manager {
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("portshare: invalid manager config: %v", err))
	}
	return &Manager{
		cfg: cfg,
		reg: NewRegistry(),
	}
}

// Registry returns the underlying registry. Used by tests to assert
// reference counts.
func (m *Manager) Registry() *Registry {
	return m.reg
}

// Acquire returns the shared server for the requested port, building one
// with the configured builder if this is the first outstanding acquisition.
// The build is bounded by the configured BuildTimeout in addition to ctx.
//
// Returns ErrShuttingDown after Shutdown has been called.
func (m *Manager) Acquire(ctx context.Context, port int) (Handle, error) {
	if m.shuttingDown.Load() {
		return nil, ErrShuttingDown
	}

	buildCtx, cancel := context.WithTimeout(ctx, m.cfg.BuildTimeout)
	defer cancel()

	return m.reg.Acquire(buildCtx, port, m.cfg.Builder)
}

// Release decrements the reference count for the requested port, shutting
// the server down if this caller was the last holder. Release has no caller
// context; shutdown is bounded by the configured StopTimeout.
//
// Panics if the port has no outstanding acquisition (unbalanced release).
func (m *Manager) Release(port int) error {
	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.StopTimeout)
	defer cancel()

	return m.reg.Release(ctx, port)
}

// IsShuttingDown reports whether Shutdown has been called.
func (m *Manager) IsShuttingDown() bool {
	return m.shuttingDown.Load()
}

// Shutdown stops every registered server and prevents further Acquire
// calls. Servers that still have holders are stopped anyway, with a
// warning: a straggler's later Release panics because its entry is gone.
// Safe to call multiple times; after the first call the registry is empty
// and subsequent calls return nil.
func (m *Manager) Shutdown() error {
	m.shuttingDown.Store(true)

	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.StopTimeout)
	defer cancel()

	return m.reg.DrainAll(ctx)
}
