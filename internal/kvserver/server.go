package kvserver

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/giantswarm/portshare/internal/fileutil"
	"github.com/giantswarm/portshare/internal/netutil"
	"golang.org/x/sync/errgroup"
)

// dbFileName is the SQLite database file created inside each server's data
// directory.
const dbFileName = "kv.db"

// Config holds construction parameters for a Server.
type Config struct {
	// Port is the loopback port to bind. 0 lets the kernel choose.
	Port int

	// DataDir is the per-server directory holding the SQLite database.
	// Created if missing. Required.
	DataDir string

	// RemoveData removes DataDir during Shutdown. Set by the Builder,
	// whose directories are throwaway; the standalone runner keeps the
	// user's directory.
	RemoveData bool

	// Lease is an optional cross-process claim on the fixed port,
	// released during Shutdown.
	Lease *netutil.PortLease

	// Ports is the optional in-process registry the port was allocated
	// from; the port is released back during Shutdown.
	Ports *netutil.PortRegistry

	// Logger is the server-scoped logger. Defaults to slog.Default().
	Logger *slog.Logger
}

// Server is a small TCP key/value server backed by SQLite. It speaks a
// line protocol on a loopback listener:
//
//	PING            → +PONG
//	SET key value   → +OK
//	GET key         → +value | -NOTFOUND
//	DEL key         → +OK    | -NOTFOUND
//
// One command per line; responses are one line, prefixed with "+" on
// success and "-" on failure.
type Server struct {
	cfg   Config
	ln    net.Listener
	store *Store
	port  int
	log   *slog.Logger

	// baseCtx is canceled by Shutdown; store operations for in-flight
	// commands are bound to it.
	baseCtx context.Context
	cancel  context.CancelFunc

	// g supervises the accept loop and one goroutine per connection.
	g errgroup.Group

	// mu protects conns and closed.
	mu     sync.Mutex
	conns  map[net.Conn]struct{}
	closed bool
}

func (cfg Config) validate() error {
	if cfg.DataDir == "" {
		return errors.New("data directory must not be empty")
	}
	if cfg.Port < 0 {
		return fmt.Errorf("port must not be negative, got %d", cfg.Port)
	}
	return nil
}

// Start opens the store, binds the listener, and begins serving.
// On error nothing is left running, and cfg.Lease/cfg.Ports are untouched:
// the caller still owns them.
func Start(ctx context.Context, cfg Config) (*Server, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("kvserver config: %w", err)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	if err := fileutil.EnsureDir(cfg.DataDir); err != nil {
		return nil, fmt.Errorf("prepare data dir: %w", err)
	}

	store, err := OpenStore(ctx, filepath.Join(cfg.DataDir, dbFileName))
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", cfg.Port))
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("listen on port %d: %w", cfg.Port, err)
	}
	tcpAddr, ok := ln.Addr().(*net.TCPAddr)
	if !ok {
		_ = ln.Close()
		_ = store.Close()
		return nil, fmt.Errorf("unexpected address type: %T", ln.Addr())
	}

	baseCtx, cancel := context.WithCancel(context.Background())
	s := &Server{
		cfg:     cfg,
		ln:      ln,
		store:   store,
		port:    tcpAddr.Port,
		log:     cfg.Logger.With("kvserver", tcpAddr.Port),
		baseCtx: baseCtx,
		cancel:  cancel,
		conns:   make(map[net.Conn]struct{}),
	}

	s.g.Go(s.acceptLoop)
	s.log.Debug("kv server listening", "addr", s.Addr())
	return s, nil
}

// Port returns the port the server is actually bound to.
func (s *Server) Port() int {
	return s.port
}

// Addr returns the server's loopback address in host:port form.
func (s *Server) Addr() string {
	return s.ln.Addr().String()
}

// isClosed reports whether Shutdown has begun.
func (s *Server) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// trackConn registers or unregisters a connection for Shutdown to close.
// Returns false when the server is already closed; the caller must drop the
// connection instead of serving it.
func (s *Server) trackConn(c net.Conn, add bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if add {
		if s.closed {
			return false
		}
		s.conns[c] = struct{}{}
		return true
	}
	delete(s.conns, c)
	return true
}

// acceptLoop accepts connections until the listener is closed by Shutdown.
func (s *Server) acceptLoop() error {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if s.isClosed() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}
		if !s.trackConn(conn, true) {
			_ = conn.Close()
			continue
		}
		s.g.Go(func() error {
			defer func() {
				s.trackConn(conn, false)
				_ = conn.Close()
			}()
			s.serveConn(conn)
			return nil
		})
	}
}

// serveConn reads commands line by line until the client disconnects or
// Shutdown closes the connection. Protocol errors are reported to the
// client, not treated as server failures.
func (s *Server) serveConn(conn net.Conn) {
	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		reply := s.handleCommand(scanner.Text())
		if _, err := fmt.Fprintf(conn, "%s\n", reply); err != nil {
			s.log.Debug("write reply", "error", err)
			return
		}
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, net.ErrClosed) {
		s.log.Debug("read command", "error", err)
	}
}

// handleCommand executes one protocol line and returns the reply line.
func (s *Server) handleCommand(line string) string {
	parts := strings.SplitN(strings.TrimRight(line, "\r"), " ", 3)
	switch parts[0] {
	case "PING":
		return "+PONG"
	case "GET":
		if len(parts) != 2 {
			return "-ERR usage: GET key"
		}
		value, found, err := s.store.Get(s.baseCtx, parts[1])
		if err != nil {
			return "-ERR " + err.Error()
		}
		if !found {
			return "-NOTFOUND"
		}
		return "+" + value
	case "SET":
		if len(parts) != 3 {
			return "-ERR usage: SET key value"
		}
		if err := s.store.Set(s.baseCtx, parts[1], parts[2]); err != nil {
			return "-ERR " + err.Error()
		}
		return "+OK"
	case "DEL":
		if len(parts) != 2 {
			return "-ERR usage: DEL key"
		}
		found, err := s.store.Delete(s.baseCtx, parts[1])
		if err != nil {
			return "-ERR " + err.Error()
		}
		if !found {
			return "-NOTFOUND"
		}
		return "+OK"
	default:
		return "-ERR unknown command"
	}
}

// Shutdown stops the server: it closes the listener and all connections,
// waits for handler goroutines bounded by ctx, closes the store, releases
// the port lease and registry reservation, and removes the data directory
// when the config asks for it. Safe to call multiple times.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	conns := make([]net.Conn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	s.cancel()
	lnErr := s.ln.Close()
	for _, c := range conns {
		_ = c.Close()
	}

	// Bounded wait for the accept loop and connection handlers.
	done := make(chan error, 1)
	go func() { done <- s.g.Wait() }()
	var waitErr error
	select {
	case waitErr = <-done:
	case <-ctx.Done():
		waitErr = fmt.Errorf("waiting for connection handlers: %w", ctx.Err())
	}

	errs := []error{lnErr, waitErr}
	if err := s.store.Close(); err != nil {
		errs = append(errs, err)
	}

	s.cfg.Lease.Release()
	if s.cfg.Ports != nil {
		s.cfg.Ports.Release(s.port)
	}
	if s.cfg.RemoveData {
		if err := os.RemoveAll(s.cfg.DataDir); err != nil {
			s.log.Warn("remove data dir", "dir", s.cfg.DataDir, "error", err)
		}
	}

	s.log.Debug("kv server stopped")
	return errors.Join(errs...)
}
