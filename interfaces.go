package portshare

import (
	"context"

	"github.com/giantswarm/portshare/internal/core"
)

// AnyPort is the sentinel port meaning "let the builder pick a free port".
//
// Sharing still applies: every acquirer that requests AnyPort is bound to
// the same server, because the registry indexes by the requested port, not
// the bound one. This is a deliberate contract inherited from fixed-port
// sharing — AnyPort does NOT mean "a private server per caller". Callers
// that need isolated servers must use distinct requested ports.
const AnyPort = core.AnyPort

// Manager hands out shared servers keyed by requested port.
//
// Callers must follow this lifecycle ordering:
//
//	NewManager → Acquire/Release (repeatable, concurrent) → Shutdown
//
// Multiple concurrent acquirers of the same port share one running server;
// the first acquire builds it and the last release tears it down. See each
// method's documentation for detailed error conditions.
type Manager interface {
	// Acquire returns the shared server for the requested port, building
	// one on demand if this is the first outstanding acquisition. The
	// build is bounded by the configured build timeout.
	//
	// Each successful Acquire must be balanced by exactly one Release on
	// the returned Server.
	//
	// Returns ErrShuttingDown after Shutdown has been called and
	// ErrNegativePort for port < 0. May fail if the builder fails; the
	// port then stays unregistered and a later Acquire retries the build.
	Acquire(ctx context.Context, port int) (Server, error)

	// Shutdown stops every registered server and prevents further
	// Acquire calls. Servers that still have holders are stopped anyway,
	// with a warning. Safe to call multiple times.
	Shutdown() error
}

// Server is one acquisition of a shared server. Several Server values may
// refer to the same underlying instance; the instance stays up until the
// last of them is released.
type Server interface {
	// Addr returns the server's loopback address in host:port form,
	// using the actually bound port.
	// Returns ErrServerReleased after Release.
	Addr() (string, error)

	// Port returns the port the server is actually bound to. For a fixed
	// requested port this is the same value; for AnyPort it is the port
	// the builder chose.
	Port() int

	// Release gives up this acquisition. If this caller was the last
	// holder of the requested port, the underlying server is shut down
	// and the shutdown error, if any, is returned; using
	// defer srv.Release() is safe.
	//
	// A second Release on the same Server returns ErrServerReleased
	// without touching the shared reference count.
	Release() error
}
