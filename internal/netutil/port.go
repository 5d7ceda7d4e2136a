package netutil

import (
	"fmt"
	"log/slog"
	"net"
	"sync"
)

// maxPortRetries is the maximum number of attempts to obtain a kernel port
// that is not already reserved in the registry. Guards against pathological
// cases where the kernel keeps handing back recently released ports.
const maxPortRetries = 20

// PortRegistry tracks ports currently reserved by this process. It closes
// the TOCTOU window where two concurrent AllocatePort calls receive the same
// port from the kernel because the first caller closed its probe listener
// before the second caller opened theirs.
//
// One registry is created per builder and shared by all servers that builder
// produces.
type PortRegistry struct {
	mu    sync.Mutex
	ports map[int]struct{}
	log   *slog.Logger
}

// NewPortRegistry creates a PortRegistry ready for use.
// If logger is nil, slog.Default() is used as a fallback.
func NewPortRegistry(logger *slog.Logger) *PortRegistry {
	if logger == nil {
		logger = slog.Default()
	}
	return &PortRegistry{
		ports: make(map[int]struct{}),
		log:   logger,
	}
}

// reserve attempts to register a port in the registry.
// Returns true if the port was reserved, false if already taken.
func (r *PortRegistry) reserve(port int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.ports[port]; ok {
		return false
	}
	r.ports[port] = struct{}{}
	return true
}

// Reserved reports whether the port is currently reserved in the registry.
func (r *PortRegistry) Reserved(port int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.ports[port]
	return ok
}

// Release removes a port from the registry, allowing it to be handed out again.
func (r *PortRegistry) Release(port int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.ports, port)
}

// AllocatePort asks the kernel for a free loopback port, skipping any port
// already reserved in the registry. The returned port is reserved; the caller
// must call Release when the port is no longer in use.
//
// The probe listener is closed before returning, so the caller must bind the
// port promptly. The registry reservation protects against other callers of
// this registry, not against unrelated processes grabbing the port in the gap.
func (r *PortRegistry) AllocatePort() (int, error) {
	addr, err := net.ResolveTCPAddr("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, fmt.Errorf("resolve tcp address: %w", err)
	}

	for i := 0; i < maxPortRetries; i++ {
		l, err := net.ListenTCP("tcp", addr)
		if err != nil {
			return 0, fmt.Errorf("listen on tcp address: %w", err)
		}
		tcpAddr, ok := l.Addr().(*net.TCPAddr)
		if !ok {
			_ = l.Close()
			return 0, fmt.Errorf("unexpected address type: %T", l.Addr())
		}
		port := tcpAddr.Port
		if closeErr := l.Close(); closeErr != nil {
			r.log.Warn("close probe listener after port allocation", "port", port, "error", closeErr)
		}
		if r.reserve(port) {
			return port, nil
		}
		// Port already in registry, retry to get a different one.
		r.log.Debug("port already in registry, retrying", "port", port)
	}
	return 0, fmt.Errorf("allocate unique port: exhausted %d attempts", maxPortRetries)
}
