package core

import "context"

// AnyPort is the sentinel requested port meaning "let the builder pick a
// free port". Unlike a per-caller ephemeral port, all acquirers that request
// AnyPort share a single server: the registry indexes by the requested port,
// so every AnyPort acquirer binds to the first server built under it. This
// mirrors fixed-port sharing and is a deliberate, documented contract.
const AnyPort = 0

// Handle is a running server instance bound to an actual port. The actual
// port may differ from the requested port only when the server was built for
// AnyPort.
//
// Shutdown is called exactly once per handle, by the releaser whose release
// drops the reference count to zero (or by Registry.DrainAll). Idempotence
// is not required.
type Handle interface {
	// Port returns the port the server is actually bound to.
	Port() int

	// Shutdown stops the server and releases its underlying resources.
	// The context bounds the shutdown; implementations should make a
	// best effort to stop within it.
	Shutdown(ctx context.Context) error
}

// Builder constructs a running server for a requested port. It is the
// external collaborator of the Registry: the registry decides when to build
// and when to tear down, the builder knows how.
//
// Build receives the requested port, AnyPort meaning the builder chooses.
// The returned handle reports the actual bound port via Handle.Port.
//
// Implementations must be safe for concurrent use; the Registry serializes
// Build calls, but a builder may be shared across several registries.
type Builder interface {
	Build(ctx context.Context, port int) (Handle, error)
}

// BuilderFunc adapts a plain function to the Builder interface, in the
// manner of http.HandlerFunc.
type BuilderFunc func(ctx context.Context, port int) (Handle, error)

// Build implements Builder by calling f.
func (f BuilderFunc) Build(ctx context.Context, port int) (Handle, error) {
	return f(ctx, port)
}
