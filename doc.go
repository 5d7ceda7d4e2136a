// Package portshare shares expensive-to-start server instances between
// concurrently running tests, keyed by requested port.
//
// A process-wide manager keeps one running server per requested port with a
// reference count of outstanding acquirers. The first Acquire for a port
// builds the server, further Acquires reuse it, and the Release that drops
// the count to zero shuts it down. Tests that would each start and stop
// their own server instead multiplex onto one instance.
//
// # Basic Usage
//
//	import "github.com/giantswarm/portshare"
//
//	ctx := context.Background()
//
//	mgr := portshare.NewManager()
//	defer mgr.Shutdown()
//
//	srv, err := mgr.Acquire(ctx, 2181)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer srv.Release() // Returns nil on success; safe to ignore in defer
//
//	addr, err := srv.Addr()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	// Dial addr...
//
// # Parallel Testing
//
// Concurrent tests that request the same port share one server:
//
//	for i := 0; i < 10; i++ {
//	    t.Run(fmt.Sprintf("test-%d", i), func(t *testing.T) {
//	        t.Parallel()
//	        srv, err := mgr.Acquire(ctx, 2181)
//	        if err != nil {
//	            t.Fatal(err)
//	        }
//	        defer srv.Release()
//	        // All ten subtests talk to the same server.
//	    })
//	}
//
// # The AnyPort Sentinel
//
// Acquire(ctx, portshare.AnyPort) lets the builder pick a free port. All
// AnyPort acquirers still share a single server; use Server.Port or
// Server.Addr to find where it is bound. AnyPort does not hand each caller
// a private server.
//
// # Custom Servers
//
// By default the manager builds the stock KV server (a TCP key/value server
// backed by SQLite, see NewKVServerBuilder). Tests that need to share a
// different server supply a Builder via WithBuilder. Since servers are
// shared per port, behavior is undefined if two tests request the same port
// while expecting different server implementations.
package portshare
