package portshare

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/giantswarm/portshare/internal/core"
)

// Singleton state for NewManager. The first call creates the manager;
// subsequent calls return the same instance and log a warning.
//
// singletonMu protects both singletonMgr and singletonOnce so that
// resetForTesting (used in tests) is concurrency-safe with NewManager.
var (
	singletonMu   sync.Mutex
	singletonMgr  Manager
	singletonOnce sync.Once
)

// Compile-time interface satisfaction checks.
var (
	_ Manager = (*managerWrapper)(nil)
	_ Server  = (*serverWrapper)(nil)
)

// managerWrapper wraps core.Manager to implement the Manager interface.
// It serves as the concrete singleton implementation returned by NewManager.
//
// The core.Manager is stored as a named (unexported) field rather than
// embedded to prevent callers from using type assertions to access internal
// methods (e.g., Registry) that are not part of the public Manager interface.
type managerWrapper struct {
	mgr *core.Manager
}

// Acquire implements Manager.Acquire, returning the Server interface.
//
//nolint:ireturn // Returns Server interface by design for testability (mockable).
func (w *managerWrapper) Acquire(ctx context.Context, port int) (Server, error) {
	h, err := w.mgr.Acquire(ctx, port)
	if err != nil {
		return nil, err
	}
	return &serverWrapper{mgr: w.mgr, handle: h, requested: port}, nil
}

// Shutdown wraps core.Manager.Shutdown.
func (w *managerWrapper) Shutdown() error {
	return w.mgr.Shutdown()
}

// serverWrapper binds one acquisition to the underlying shared handle.
//
// released tracks whether Release has been called on this wrapper. The
// shared reference count lives in the registry and cannot distinguish which
// holder releases twice; the wrapper-level flag provides a definitive
// per-acquisition guard, so a double Release surfaces as ErrServerReleased
// here instead of unbalancing the count (which would panic in the registry
// or, worse, tear the server away from a remaining holder).
type serverWrapper struct {
	mgr       *core.Manager
	handle    core.Handle
	requested int
	released  atomic.Bool
}

// Addr returns the server's loopback address using the actually bound port.
// Returns ErrServerReleased if called after Release.
func (w *serverWrapper) Addr() (string, error) {
	if w.released.Load() {
		return "", ErrServerReleased
	}
	return net.JoinHostPort("127.0.0.1", strconv.Itoa(w.handle.Port())), nil
}

// Port returns the port the server is actually bound to.
func (w *serverWrapper) Port() int {
	return w.handle.Port()
}

// Release gives up this acquisition. The last holder's release shuts the
// underlying server down; its error, if any, is returned. Safe in defer.
func (w *serverWrapper) Release() error {
	if !w.released.CompareAndSwap(false, true) {
		return ErrServerReleased
	}
	return w.mgr.Release(w.requested)
}

// defaultManagerConfig returns a managerConfig populated with all default
// values. Both NewManager and test helpers use this to avoid duplicating
// the default field assignments.
//
// The builder is left nil here and resolved in toCoreConfig, so that
// WithBaseDataDir can still influence the stock builder.
func defaultManagerConfig() managerConfig {
	cfg := managerConfig{
		baseDataDir: filepath.Join(os.TempDir(), DefaultBaseDataDirName),
	}
	cfg.BuildTimeout = DefaultBuildTimeout
	cfg.StopTimeout = DefaultStopTimeout
	return cfg
}

// resetForTesting resets the singleton state so that the next call to
// NewManager creates a fresh manager. This follows the Go stdlib pattern
// (e.g., net/http/internal) for enabling test isolation within a single
// binary. It must only be called from tests.
func resetForTesting() {
	singletonMu.Lock()
	defer singletonMu.Unlock()

	singletonMgr = nil
	singletonOnce = sync.Once{}
}

// NewManager returns the process-level singleton Manager.
//
// The first call creates the manager with the given options and stores it.
// Subsequent calls return the same instance — options are ignored and a
// warning is logged. A process-wide singleton is what makes sharing work:
// every test that asks for the same port must reach the same registry.
//
// This performs no I/O; servers are built on first Acquire per port.
//
// The singleton is never reset after Shutdown; callers that need a fresh
// manager must restart the process (or, in tests, use a separate test
// binary).
//
// Panics if any option receives an invalid value. See individual With*
// functions for constraints.
//
//nolint:ireturn // Returns Manager interface by design for testability (mockable).
func NewManager(opts ...ManagerOption) Manager {
	singletonMu.Lock()
	defer singletonMu.Unlock()

	// created is written inside the Do closure and read after Do returns.
	// sync.Once guarantees the closure completes (happens-before) Do
	// returns, so the write is visible here without additional
	// synchronization.
	created := false
	singletonOnce.Do(func() {
		cfg := defaultManagerConfig()
		for _, opt := range opts {
			opt(&cfg)
		}
		singletonMgr = &managerWrapper{mgr: core.NewManagerWithConfig(cfg.toCoreConfig())}
		created = true
	})
	if !created {
		core.Logger().Warn("NewManager called more than once; returning existing singleton (options ignored)")
	}
	return singletonMgr
}
