package core

import (
	"context"
	"fmt"
	"sync"

	"github.com/giantswarm/portshare/internal/sentinel"
	"golang.org/x/sync/errgroup"
)

// ErrNegativePort is returned by Acquire when the requested port is negative.
const ErrNegativePort = sentinel.Error("requested port must not be negative")

// entry pairs a running server with the number of outstanding acquirers.
// Keeping both in one record makes them atomically consistent by
// construction: there is no way for a handle to exist without a count or
// vice versa.
type entry struct {
	handle Handle
	refs   int
}

// Registry is a reference-counted registry of running servers keyed by
// requested port. Concurrent acquirers of the same port are multiplexed onto
// one server: the first acquire builds it, the last release tears it down.
//
// A port is either absent (no entry, zero holders) or present (one entry,
// positive holders). Acquire performs the absent→present transition by
// invoking the builder; Release performs present→absent by shutting the
// handle down. There are never two live servers for the same requested port.
//
// All state is guarded by a single mutex across all ports. Build and
// shutdown run under it, so a slow build for one port blocks acquire/release
// for every other port. That trade-off favors correctness and simplicity
// over throughput and is acceptable for test infrastructure; this is not a
// high-QPS production path.
//
// It is safe for concurrent use by multiple goroutines.
type Registry struct {
	mu      sync.Mutex
	servers map[int]*entry
}

// NewRegistry creates an empty Registry ready for use.
func NewRegistry() *Registry {
	return &Registry{
		servers: make(map[int]*entry),
	}
}

// Acquire returns the server registered under the requested port, building
// one via b if no acquirer currently holds the port. The reference count for
// the port is incremented; the caller must balance with exactly one Release.
//
// The entry is indexed by the REQUESTED port even when the builder binds a
// different actual port (the AnyPort case), so later acquirers requesting
// the same port reuse this server rather than building their own.
//
// If the build fails, nothing is recorded and the count stays at zero: the
// port remains retryable and the error is returned to this caller alone.
//
// Panics if b is nil. Returns ErrNegativePort for port < 0.
func (r *Registry) Acquire(ctx context.Context, port int, b Builder) (Handle, error) {
	if port < 0 {
		return nil, fmt.Errorf("acquire port %d: %w", port, ErrNegativePort)
	}
	if b == nil {
		panic("portshare: Acquire builder must not be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.servers[port]; ok {
		e.refs++
		Logger().Debug("using existing server", "port", port, "bound", e.handle.Port(), "refs", e.refs)
		return e.handle, nil
	}

	Logger().Debug("starting new server", "port", port)
	h, err := b.Build(ctx, port)
	if err != nil {
		return nil, fmt.Errorf("build server for port %d: %w", port, err)
	}
	if h == nil {
		return nil, fmt.Errorf("build server for port %d: builder returned nil handle", port)
	}

	if port == AnyPort {
		Logger().Debug("server requested for any port actually bound", "bound", h.Port())
	} else {
		Logger().Debug("server started", "port", h.Port())
	}

	r.servers[port] = &entry{handle: h, refs: 1}
	return h, nil
}

// Release decrements the reference count for the requested port. When the
// count drops to zero the entry is removed and the handle shut down; the
// shutdown error, if any, is returned after the entry is already gone, so
// the port is rebuildable either way.
//
// Releasing a port with no outstanding acquirer is an unbalanced
// acquire/release pair in the caller. Silently ignoring it would
// desynchronize the count from reality and cause premature teardown for
// later holders, so Release panics instead.
func (r *Registry) Release(ctx context.Context, port int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.servers[port]
	if !ok {
		panic(fmt.Sprintf("portshare: release of port %d with no outstanding acquire", port))
	}

	e.refs--
	if e.refs > 0 {
		Logger().Debug("released server, holders remain", "port", port, "refs", e.refs)
		return nil
	}

	delete(r.servers, port)
	Logger().Debug("closing server", "port", port, "bound", e.handle.Port())
	if err := e.handle.Shutdown(ctx); err != nil {
		return fmt.Errorf("shut down server for port %d: %w", port, err)
	}
	return nil
}

// Refs returns the number of outstanding acquirers for the requested port.
// A port with no entry has zero holders.
func (r *Registry) Refs(port int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.servers[port]
	if !ok {
		return 0
	}
	return e.refs
}

// Len returns the number of ports with at least one outstanding acquirer.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.servers)
}

// DrainAll removes every entry regardless of reference count and shuts the
// handles down in parallel. Entries with outstanding holders are logged as
// warnings: holders should release before shutdown, and any Release arriving
// after the drain panics, because its entry no longer exists.
//
// Intended for end-of-process shutdown, where leaking a server is worse than
// surprising a straggling holder.
func (r *Registry) DrainAll(ctx context.Context) error {
	r.mu.Lock()
	drained := make(map[int]*entry, len(r.servers))
	for port, e := range r.servers {
		drained[port] = e
	}
	r.servers = make(map[int]*entry)
	r.mu.Unlock()

	// Plain group rather than errgroup.WithContext: one failed shutdown
	// must not cancel the context of the others.
	var g errgroup.Group
	for port, e := range drained {
		port, e := port, e
		if e.refs > 0 {
			Logger().Warn("shutting down server that still has holders; "+
				"ensure all servers are released before shutdown",
				"port", port, "refs", e.refs)
		}
		g.Go(func() error {
			if err := e.handle.Shutdown(ctx); err != nil {
				return fmt.Errorf("shut down server for port %d: %w", port, err)
			}
			return nil
		})
	}
	return g.Wait()
}
