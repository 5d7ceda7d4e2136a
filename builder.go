package portshare

import (
	"context"

	"github.com/giantswarm/portshare/internal/core"
	"github.com/giantswarm/portshare/internal/kvserver"
)

// Builder constructs a running server for a requested port. The Manager
// decides when to build and when to tear down; the builder knows how.
// Supply one via WithBuilder to share servers other than the stock KV
// server.
//
// Build receives the requested port, AnyPort meaning the builder chooses a
// free one. The returned handle reports the actual bound port. A shared
// server is built at most once per requested port, so implementations are
// free to be expensive.
type Builder = core.Builder

// Handle is a running server instance bound to an actual port, as produced
// by a Builder. Shutdown is called exactly once per handle, when the last
// holder releases it.
type Handle = core.Handle

// BuilderFunc adapts a plain function to the Builder interface.
type BuilderFunc = core.BuilderFunc

// NewKVServerBuilder returns the stock Builder: a TCP key/value server
// backed by a per-server SQLite database under baseDataDir. Fixed ports are
// additionally claimed across processes via lease files in baseDataDir, so
// concurrent test binaries on one machine cannot both start a server on the
// same port.
//
// This is the builder NewManager uses when WithBuilder is not given.
// Panics if baseDataDir is empty.
func NewKVServerBuilder(baseDataDir string) Builder {
	b := kvserver.NewBuilder(kvserver.BuilderConfig{
		BaseDataDir: baseDataDir,
		Logger:      core.Logger(),
	})
	return BuilderFunc(func(ctx context.Context, port int) (Handle, error) {
		srv, err := b.Build(ctx, port)
		if err != nil {
			return nil, err
		}
		return srv, nil
	})
}
