package portshare

import (
	"fmt"
	"time"
)

// requirePositive panics if v <= 0 with a descriptive message.
func requirePositive(name string, v time.Duration) {
	if v <= 0 {
		panic(fmt.Sprintf("portshare: %s must be greater than 0, got %v", name, v))
	}
}

// requireNonEmpty panics if s is empty with a descriptive message.
func requireNonEmpty(name, s string) {
	if s == "" {
		panic(fmt.Sprintf("portshare: %s must not be empty", name))
	}
}

// ManagerOption configures a Manager during construction via NewManager.
// Each With* function returns a ManagerOption that sets a specific field.
//
// Several With* functions panic on invalid input (nil builder, empty paths,
// non-positive durations). These panics are intentional: option values are
// typically compile-time constants or package-level variables, so an invalid
// value indicates a programmer error rather than a runtime condition. The
// pattern mirrors [regexp.MustCompile] — fail fast during initialization
// instead of returning errors that would be universally fatal anyway.
type ManagerOption func(*managerConfig)

// WithBuilder sets the builder used to construct servers. All acquirers
// share one manager and therefore one builder: behavior is undefined if two
// tests request the same port while expecting different server
// implementations, so configure the builder once, at the top of the test
// binary.
//
// Default: the stock KV server builder (see NewKVServerBuilder).
//
// Panics if b is nil.
func WithBuilder(b Builder) ManagerOption {
	if b == nil {
		panic("portshare: builder must not be nil")
	}
	return func(c *managerConfig) {
		c.Builder = b
	}
}

// WithBuildTimeout bounds a single builder invocation during Acquire.
// A build that exceeds it fails the acquiring caller and leaves the port
// unregistered for the next caller to retry.
//
// Default: 30 seconds.
//
// Panics if d <= 0.
func WithBuildTimeout(d time.Duration) ManagerOption {
	requirePositive("build timeout", d)
	return func(c *managerConfig) {
		c.BuildTimeout = d
	}
}

// WithStopTimeout bounds the shutdown of one server, both on the
// last-holder Release and per server during Shutdown.
//
// Default: 10 seconds.
//
// Panics if d <= 0.
func WithStopTimeout(d time.Duration) ManagerOption {
	requirePositive("stop timeout", d)
	return func(c *managerConfig) {
		c.StopTimeout = d
	}
}

// WithBaseDataDir sets the base directory for the stock KV server builder's
// per-server data and port lease files. Useful in CI environments where
// multiple projects may use portshare simultaneously and need isolated data
// directories. Has no effect when WithBuilder supplies a custom builder.
// If not set, defaults to a "portshare" directory under the system temp
// directory.
//
// Panics if dir is empty.
func WithBaseDataDir(dir string) ManagerOption {
	requireNonEmpty("base data directory", dir)
	return func(c *managerConfig) {
		c.baseDataDir = dir
	}
}
