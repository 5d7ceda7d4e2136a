package core

import (
	"errors"
	"fmt"
	"time"
)

// ManagerConfig holds configuration for Manager instances.
//
// Concurrency contract: all fields are immutable after construction via
// NewManagerWithConfig. Acquire and Release goroutines read them without
// synchronization, relying on this guarantee.
type ManagerConfig struct {
	// Builder constructs a server when Acquire finds no registered server
	// for the requested port. Required.
	Builder Builder

	// BuildTimeout bounds a single builder invocation during Acquire.
	// Default: 30 seconds.
	BuildTimeout time.Duration

	// StopTimeout bounds the shutdown of one server, both on the
	// last-holder Release and per server during Shutdown.
	// Default: 10 seconds.
	StopTimeout time.Duration
}

// Validate checks all ManagerConfig invariants and returns an error
// describing every violation found. It uses errors.Join to report multiple
// issues at once, allowing callers to fix all problems in a single pass.
//
// Validate is called by NewManagerWithConfig, which panics on error, since
// invalid config is a programmer error.
func (c ManagerConfig) Validate() error {
	var errs []error

	if c.Builder == nil {
		errs = append(errs, errors.New("builder must not be nil"))
	}
	if c.BuildTimeout <= 0 {
		errs = append(errs, fmt.Errorf("build timeout must be greater than 0, got %s", c.BuildTimeout))
	}
	if c.StopTimeout <= 0 {
		errs = append(errs, fmt.Errorf("stop timeout must be greater than 0, got %s", c.StopTimeout))
	}

	return errors.Join(errs...)
}
