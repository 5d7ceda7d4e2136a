package kvserver

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"path/filepath"

	"github.com/giantswarm/portshare/internal/fileutil"
	"github.com/giantswarm/portshare/internal/netutil"
)

// BuilderConfig holds construction parameters for a Builder.
type BuilderConfig struct {
	// BaseDataDir is the directory under which per-server data
	// directories are created. Required.
	BaseDataDir string

	// LockDir is the directory holding cross-process port lease files.
	// Defaults to BaseDataDir.
	LockDir string

	// Logger is used by the builder and passed to the servers it builds.
	// Defaults to slog.Default().
	Logger *slog.Logger
}

// Builder constructs KV servers for requested ports. A requested port of 0
// gets a kernel-assigned port from the builder's port registry; a fixed
// port is additionally claimed across processes with a lease file, so two
// test binaries on one machine cannot both start a server on it.
//
// Safe for concurrent use; the registry serializes Build calls per
// registry, and the port registry handles cross-registry callers.
type Builder struct {
	cfg   BuilderConfig
	ports *netutil.PortRegistry
	log   *slog.Logger
}

// NewBuilder creates a Builder. Panics if cfg.BaseDataDir is empty: builder
// configuration is assembled from compile-time defaults or options, so an
// empty directory is a programmer error.
func NewBuilder(cfg BuilderConfig) *Builder {
	if cfg.BaseDataDir == "" {
		panic("portshare: kvserver builder base data directory must not be empty")
	}
	if cfg.LockDir == "" {
		cfg.LockDir = cfg.BaseDataDir
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Builder{
		cfg:   cfg,
		ports: netutil.NewPortRegistry(cfg.Logger),
		log:   cfg.Logger,
	}
}

// genID generates a random 8-character hex ID for data directory naming.
func genID() string {
	return fmt.Sprintf(
		"%08x",
		rand.Uint32(), //nolint:gosec // G404: directory names need uniqueness, not cryptographic strength
	)
}

// Build starts a KV server for the requested port. The returned server
// reports its actual bound port via Port; for requested port 0 that is the
// kernel-assigned one. The server's data directory, port reservation, and
// lease are all released by its Shutdown.
func (b *Builder) Build(ctx context.Context, port int) (*Server, error) {
	cfg := Config{
		RemoveData: true,
		Logger:     b.log,
	}

	switch {
	case port == 0:
		allocated, err := b.ports.AllocatePort()
		if err != nil {
			return nil, fmt.Errorf("allocate port: %w", err)
		}
		cfg.Port = allocated
		cfg.Ports = b.ports
	default:
		if err := fileutil.EnsureDir(b.cfg.LockDir); err != nil {
			return nil, fmt.Errorf("prepare lock dir: %w", err)
		}
		lease, err := netutil.AcquirePortLease(ctx, b.cfg.LockDir, port, b.log)
		if err != nil {
			return nil, fmt.Errorf("lease port %d: %w", port, err)
		}
		cfg.Port = port
		cfg.Lease = lease
	}

	cfg.DataDir = filepath.Join(b.cfg.BaseDataDir, fmt.Sprintf("srv-%d-%s", cfg.Port, genID()))

	srv, err := Start(ctx, cfg)
	if err != nil {
		// Start did not take ownership; give the port back ourselves.
		cfg.Lease.Release()
		if cfg.Ports != nil {
			cfg.Ports.Release(cfg.Port)
		}
		return nil, fmt.Errorf("start kv server on port %d: %w", cfg.Port, err)
	}
	return srv, nil
}
